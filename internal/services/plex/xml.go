// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package plex

import (
	"fmt"

	"github.com/beevik/etree"
)

const mediaContainerTag = "MediaContainer"

// parseXML parses a raw response body into a document
func parseXML(body []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseXML, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%w: document has no root element", ErrParseXML)
	}
	return doc, nil
}

// elementsByTag returns every descendant of el named tag, in document order.
// el itself is never part of the result.
func elementsByTag(el *etree.Element, tag string) []*etree.Element {
	var found []*etree.Element
	var walk func(*etree.Element)
	walk = func(parent *etree.Element) {
		for _, child := range parent.ChildElements() {
			if child.Tag == tag {
				found = append(found, child)
			}
			walk(child)
		}
	}
	walk(el)
	return found
}

// firstElementByTag returns the first descendant of el named tag, or nil
func firstElementByTag(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return child
		}
		if found := firstElementByTag(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// mediaContainer locates the first MediaContainer element of the document
func mediaContainer(doc *etree.Document) *etree.Element {
	return firstElementByTag(&doc.Element, mediaContainerTag)
}

// GetXMLAttr returns the value of the named attribute, or "" when the
// attribute is absent. An empty attribute value is treated as absent.
func GetXMLAttr(el *etree.Element, name string) string {
	return GetXMLAttrDefault(el, name, "")
}

// GetXMLAttrDefault returns the value of the named attribute, or defaultValue
// when the attribute is absent or empty.
func GetXMLAttrDefault(el *etree.Element, name, defaultValue string) string {
	if value := el.SelectAttrValue(name, ""); value != "" {
		return value
	}
	return defaultValue
}

// HasXMLAttr reports whether the element carries a non-empty named attribute
func HasXMLAttr(el *etree.Element, name string) bool {
	return el.SelectAttrValue(name, "") != ""
}
