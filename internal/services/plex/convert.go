// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package plex

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ConvertXMLToMap converts a whole XML document into nested maps.
//
// The root element name is the single top-level key. Attributes are keyed
// with an "@" prefix, repeated child elements become lists in document
// order and text content is keyed "#text". An element with neither
// attributes nor children becomes its text, or nil when empty.
func ConvertXMLToMap(body []byte) (map[string]interface{}, error) {
	doc, err := parseXML(body)
	if err != nil {
		return nil, err
	}

	root := doc.Root()
	return map[string]interface{}{
		root.FullTag(): elementValue(root),
	}, nil
}

// ConvertXMLToJSON converts a whole XML document into a JSON string
func ConvertXMLToJSON(body []byte) (string, error) {
	converted, err := ConvertXMLToMap(body)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(converted)
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}

	return string(data), nil
}

func elementValue(el *etree.Element) interface{} {
	children := el.ChildElements()
	text := strings.TrimSpace(el.Text())

	if len(el.Attr) == 0 && len(children) == 0 {
		if text == "" {
			return nil
		}
		return text
	}

	value := make(map[string]interface{}, len(el.Attr)+len(children))
	for _, attr := range el.Attr {
		value["@"+attr.FullKey()] = attr.Value
	}

	lists := make(map[string]bool)
	for _, child := range children {
		key := child.FullTag()
		childValue := elementValue(child)

		existing, ok := value[key]
		switch {
		case !ok:
			value[key] = childValue
		case lists[key]:
			value[key] = append(existing.([]interface{}), childValue)
		default:
			value[key] = []interface{}{existing, childValue}
			lists[key] = true
		}
	}

	if text != "" {
		value["#text"] = text
	}

	return value
}
