// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package plex

import (
	"context"

	"github.com/autobrr/plexbrr/internal/types"
)

// GetCurrentActivity fetches the sessions document and normalizes every
// active stream. Track sessions always precede video sessions. StreamCount
// is taken verbatim from the container size and may differ from the number
// of sessions when unrecognized video types were skipped.
func (c *Client) GetCurrentActivity(ctx context.Context) (*types.Activity, error) {
	body, err := c.fetchXML(ctx, sessionsPath)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to retrieve Plex session data")
		return nil, err
	}

	doc, err := parseXML(body)
	if err != nil {
		c.log.Warn().Err(err).Msg("Error parsing XML for Plex session data")
		return nil, err
	}

	container := mediaContainer(doc)
	if container == nil {
		c.log.Warn().Msg("Error parsing XML for Plex session data. No MediaContainer found")
		return nil, ErrNoMediaContainer
	}

	size := GetXMLAttr(container, "size")
	if size == "0" {
		c.log.Debug().Msg("No active sessions")
		return &types.Activity{
			StreamCount: "0",
			Sessions:    []types.Session{},
		}, nil
	}

	sessions := make([]types.Session, 0)
	for _, kind := range []string{types.StreamKindTrack, types.StreamKindVideo} {
		tag := "Track"
		if kind == types.StreamKindVideo {
			tag = "Video"
		}

		elements := elementsByTag(container, tag)
		if len(elements) > 0 {
			c.log.Debug().Str("stream_kind", kind).Int("count", len(elements)).Msg("Sessions active")
		}

		for _, element := range elements {
			session, err := c.GetSessionEach(kind, element)
			if err != nil {
				c.log.Warn().Err(err).Str("session_key", GetXMLAttr(element, "sessionKey")).Msg("Error normalizing Plex session")
				return nil, err
			}
			if session == nil {
				continue
			}
			sessions = append(sessions, session)
		}
	}

	return &types.Activity{
		StreamCount: size,
		Sessions:    sessions,
	}, nil
}
