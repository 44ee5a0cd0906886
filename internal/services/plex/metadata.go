// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package plex

import (
	"context"
	"fmt"

	"github.com/beevik/etree"

	"github.com/autobrr/plexbrr/internal/types"
	"github.com/autobrr/plexbrr/internal/utils"
)

type metadataBuilder func(el *etree.Element, credits types.Credits) types.Metadata

var metadataBuilders = map[string]metadataBuilder{
	types.MediaTypeMovie:   buildMovieMetadata,
	types.MediaTypeShow:    buildShowMetadata,
	types.MediaTypeEpisode: buildEpisodeMetadata,
	types.MediaTypeSeason:  buildSeasonMetadata,
}

// NewMetadata builds the record variant for metadataType.
// Unknown types return ErrUnknownMetadataType.
func NewMetadata(metadataType string, el *etree.Element, credits types.Credits) (types.Metadata, error) {
	build, ok := metadataBuilders[metadataType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetadataType, metadataType)
	}
	return build(el, credits), nil
}

// GetMetadataDetails fetches and normalizes the library item identified by ratingKey.
//
// A container matching anything other than exactly one item yields a
// MetadataList with nil Metadata and no error.
func (c *Client) GetMetadataDetails(ctx context.Context, ratingKey string) (*types.MetadataList, error) {
	body, err := c.fetchXML(ctx, metadataPath+ratingKey)
	if err != nil {
		c.log.Warn().Err(err).Str("rating_key", ratingKey).Msg("Failed to retrieve Plex metadata")
		return nil, err
	}

	doc, err := parseXML(body)
	if err != nil {
		c.log.Warn().Err(err).Str("rating_key", ratingKey).Msg("Error parsing XML for Plex metadata")
		return nil, err
	}

	container := mediaContainer(doc)
	if container == nil {
		c.log.Warn().Str("rating_key", ratingKey).Msg("Error parsing XML for Plex metadata. No MediaContainer found")
		return nil, ErrNoMediaContainer
	}

	if size := GetXMLAttr(container, "size"); size != "" && size != "1" {
		c.log.Debug().Str("rating_key", ratingKey).Str("size", size).Msg("Metadata query did not match a single item")
		return &types.MetadataList{Metadata: nil}, nil
	}

	item := firstElementByTag(container, "Directory")
	if item == nil {
		item = firstElementByTag(container, "Video")
	}
	if item == nil {
		c.log.Warn().Str("rating_key", ratingKey).Msg("Metadata failed. No Directory or Video element found")
		return nil, ErrNoMetadataElement
	}

	metadataType := GetXMLAttr(item, "type")
	c.log.Debug().Str("type", metadataType).Msg("Metadata type")

	metadata, err := NewMetadata(metadataType, item, collectCredits(item))
	if err != nil {
		c.log.Debug().Err(err).Str("rating_key", ratingKey).Msg("Unsupported metadata type")
		return nil, err
	}

	return &types.MetadataList{Metadata: metadata}, nil
}

// collectTags returns the tag attribute of every descendant named name, in document order
func collectTags(el *etree.Element, name string) []string {
	tags := make([]string, 0)
	for _, child := range elementsByTag(el, name) {
		tags = append(tags, GetXMLAttr(child, "tag"))
	}
	return tags
}

func collectCredits(el *etree.Element) types.Credits {
	return types.Credits{
		Writers:   collectTags(el, "Writer"),
		Directors: collectTags(el, "Director"),
		Genres:    collectTags(el, "Genre"),
		Actors:    collectTags(el, "Role"),
	}
}

func buildMovieMetadata(el *etree.Element, credits types.Credits) types.Metadata {
	return &types.MovieMetadata{
		Type:                  types.MediaTypeMovie,
		RatingKey:             GetXMLAttr(el, "ratingKey"),
		Studio:                GetXMLAttr(el, "studio"),
		Title:                 GetXMLAttr(el, "title"),
		ContentRating:         GetXMLAttr(el, "contentRating"),
		Summary:               GetXMLAttr(el, "summary"),
		Rating:                GetXMLAttr(el, "rating"),
		Duration:              utils.ConvertMillisecondsToMinutes(GetXMLAttr(el, "duration")),
		Year:                  GetXMLAttr(el, "year"),
		Thumb:                 GetXMLAttr(el, "thumb"),
		Art:                   GetXMLAttr(el, "art"),
		OriginallyAvailableAt: GetXMLAttr(el, "originallyAvailableAt"),
		Credits:               credits,
	}
}

func buildShowMetadata(el *etree.Element, credits types.Credits) types.Metadata {
	return &types.ShowMetadata{
		Type:                  types.MediaTypeShow,
		RatingKey:             GetXMLAttr(el, "ratingKey"),
		Studio:                GetXMLAttr(el, "studio"),
		Title:                 GetXMLAttr(el, "title"),
		ContentRating:         GetXMLAttr(el, "contentRating"),
		Summary:               GetXMLAttr(el, "summary"),
		Rating:                GetXMLAttr(el, "rating"),
		Duration:              utils.ConvertMillisecondsToMinutes(GetXMLAttr(el, "duration")),
		Year:                  GetXMLAttr(el, "year"),
		Thumb:                 GetXMLAttr(el, "thumb"),
		Art:                   GetXMLAttr(el, "art"),
		OriginallyAvailableAt: GetXMLAttr(el, "originallyAvailableAt"),
		Credits:               credits,
	}
}

func buildEpisodeMetadata(el *etree.Element, credits types.Credits) types.Metadata {
	return &types.EpisodeMetadata{
		Type:                  types.MediaTypeEpisode,
		RatingKey:             GetXMLAttr(el, "ratingKey"),
		GrandparentTitle:      GetXMLAttr(el, "grandparentTitle"),
		ParentIndex:           GetXMLAttr(el, "parentIndex"),
		Index:                 GetXMLAttr(el, "index"),
		Title:                 GetXMLAttr(el, "title"),
		ContentRating:         GetXMLAttr(el, "contentRating"),
		Summary:               GetXMLAttr(el, "summary"),
		Duration:              utils.ConvertMillisecondsToMinutes(GetXMLAttr(el, "duration")),
		Year:                  GetXMLAttr(el, "year"),
		Thumb:                 GetXMLAttr(el, "thumb"),
		ParentThumb:           GetXMLAttr(el, "parentThumb"),
		Art:                   GetXMLAttr(el, "art"),
		OriginallyAvailableAt: GetXMLAttr(el, "originallyAvailableAt"),
		Credits:               credits,
	}
}

// season records carry no credits
func buildSeasonMetadata(el *etree.Element, _ types.Credits) types.Metadata {
	return &types.SeasonMetadata{
		Type:        types.MediaTypeSeason,
		RatingKey:   GetXMLAttr(el, "ratingKey"),
		ParentTitle: GetXMLAttr(el, "parentTitle"),
		Index:       GetXMLAttr(el, "index"),
		Title:       GetXMLAttr(el, "title"),
		Thumb:       GetXMLAttr(el, "thumb"),
		Art:         GetXMLAttr(el, "art"),
	}
}
