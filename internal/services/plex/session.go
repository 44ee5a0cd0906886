// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package plex

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/autobrr/plexbrr/internal/types"
	"github.com/autobrr/plexbrr/internal/utils"
)

// playback holds the user and player details shared by every session variant
type playback struct {
	user   string
	player string
	state  string
}

func readPlayback(session *etree.Element) (playback, error) {
	user := firstElementByTag(session, "User")
	if user == nil {
		return playback{}, fmt.Errorf("%w: no User element", ErrMalformedSession)
	}

	player := firstElementByTag(session, "Player")
	if player == nil {
		return playback{}, fmt.Errorf("%w: no Player element", ErrMalformedSession)
	}

	return playback{
		user:   GetXMLAttr(user, "title"),
		player: GetXMLAttr(player, "platform"),
		state:  GetXMLAttr(player, "state"),
	}, nil
}

func progressPercent(progress, duration string) string {
	return strconv.Itoa(utils.GetPercent(progress, duration))
}

// GetSessionEach normalizes one Track or Video session element.
//
// It returns a nil session without error when the video session type is
// neither episode nor movie, and when streamKind is unknown. A session
// without User or Player (or without Media when direct playing) is
// reported as ErrMalformedSession.
func (c *Client) GetSessionEach(streamKind string, session *etree.Element) (types.Session, error) {
	switch streamKind {
	case types.StreamKindTrack:
		return trackSession(session)
	case types.StreamKindVideo:
		return videoSession(session)
	default:
		c.log.Warn().Str("stream_kind", streamKind).Msg("No known stream types found in session list")
		return nil, nil
	}
}

func trackSession(session *etree.Element) (types.Session, error) {
	var audioDecision, audioChannels, audioCodec, duration, progress string

	if transcode := firstElementByTag(session, "TranscodeSession"); transcode != nil {
		audioDecision = GetXMLAttr(transcode, "audioDecision")
		audioChannels = GetXMLAttr(transcode, "audioChannels")
		audioCodec = GetXMLAttr(transcode, "audioCodec")
		duration = GetXMLAttr(transcode, "duration")
		progress = GetXMLAttr(transcode, "viewOffset")
	} else {
		media := firstElementByTag(session, "Media")
		if media == nil {
			return nil, fmt.Errorf("%w: no Media element", ErrMalformedSession)
		}
		audioDecision = types.DirectPlay
		audioChannels = GetXMLAttr(media, "audioChannels")
		audioCodec = GetXMLAttr(media, "audioCodec")
		duration = GetXMLAttr(media, "duration")
		progress = GetXMLAttr(session, "viewOffset")
	}

	pb, err := readPlayback(session)
	if err != nil {
		return nil, err
	}

	return &types.TrackSession{
		SessionKey:      GetXMLAttr(session, "sessionKey"),
		ParentThumb:     GetXMLAttr(session, "parentThumb"),
		Thumb:           GetXMLAttr(session, "thumb"),
		User:            pb.user,
		Player:          pb.player,
		State:           pb.state,
		Artist:          GetXMLAttr(session, "grandparentTitle"),
		Album:           GetXMLAttr(session, "parentTitle"),
		Track:           GetXMLAttr(session, "title"),
		RatingKey:       GetXMLAttr(session, "ratingKey"),
		AudioDecision:   audioDecision,
		AudioChannels:   audioChannels,
		AudioCodec:      audioCodec,
		Duration:        duration,
		Progress:        progress,
		ProgressPercent: progressPercent(progress, duration),
		Type:            types.MediaTypeTrack,
	}, nil
}

func videoSession(session *etree.Element) (types.Session, error) {
	mediaType := GetXMLAttr(session, "type")
	if mediaType != types.MediaTypeEpisode && mediaType != types.MediaTypeMovie {
		return nil, nil
	}

	// duration and progress always come from the session element for video
	stream := types.VideoStream{
		Duration: GetXMLAttr(session, "duration"),
		Progress: GetXMLAttr(session, "viewOffset"),
	}

	if transcode := firstElementByTag(session, "TranscodeSession"); transcode != nil {
		stream.AudioDecision = GetXMLAttr(transcode, "audioDecision")
		stream.AudioChannels = GetXMLAttr(transcode, "audioChannels")
		stream.AudioCodec = GetXMLAttr(transcode, "audioCodec")
		stream.VideoDecision = GetXMLAttr(transcode, "videoDecision")
		stream.VideoCodec = GetXMLAttr(transcode, "videoCodec")
		stream.Width = GetXMLAttr(transcode, "width")
		stream.Height = GetXMLAttr(transcode, "height")
	} else {
		media := firstElementByTag(session, "Media")
		if media == nil {
			return nil, fmt.Errorf("%w: no Media element", ErrMalformedSession)
		}
		stream.AudioDecision = types.DirectPlay
		stream.AudioChannels = GetXMLAttr(media, "audioChannels")
		stream.AudioCodec = GetXMLAttr(media, "audioCodec")
		stream.VideoDecision = types.DirectPlay
		stream.VideoCodec = GetXMLAttr(media, "videoCodec")
		stream.Width = GetXMLAttr(media, "width")
		stream.Height = GetXMLAttr(media, "height")
	}
	stream.ProgressPercent = progressPercent(stream.Progress, stream.Duration)

	pb, err := readPlayback(session)
	if err != nil {
		return nil, err
	}

	if mediaType == types.MediaTypeEpisode {
		return &types.EpisodeSession{
			SessionKey:       GetXMLAttr(session, "sessionKey"),
			Art:              GetXMLAttr(session, "art"),
			Thumb:            GetXMLAttr(session, "thumb"),
			User:             pb.user,
			Player:           pb.player,
			State:            pb.state,
			GrandparentTitle: GetXMLAttr(session, "grandparentTitle"),
			Title:            GetXMLAttr(session, "title"),
			RatingKey:        GetXMLAttr(session, "ratingKey"),
			VideoStream:      stream,
			Type:             mediaType,
		}, nil
	}

	return &types.MovieSession{
		SessionKey:  GetXMLAttr(session, "sessionKey"),
		Art:         GetXMLAttr(session, "art"),
		Thumb:       GetXMLAttr(session, "thumb"),
		User:        pb.user,
		Player:      pb.player,
		State:       pb.state,
		Title:       GetXMLAttr(session, "title"),
		RatingKey:   GetXMLAttr(session, "ratingKey"),
		VideoStream: stream,
		Type:        mediaType,
	}, nil
}
