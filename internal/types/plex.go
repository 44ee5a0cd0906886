// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package types

// Stream kinds reported by the sessions endpoint
const (
	StreamKindTrack = "track"
	StreamKindVideo = "video"
)

// Media item types
const (
	MediaTypeTrack   = "track"
	MediaTypeMovie   = "movie"
	MediaTypeShow    = "show"
	MediaTypeSeason  = "season"
	MediaTypeEpisode = "episode"
)

// DirectPlay is the decision reported when no TranscodeSession is attached to a session
const DirectPlay = "direct play"

// Session is one normalized active stream. The concrete type is one of
// *TrackSession, *EpisodeSession or *MovieSession.
type Session interface {
	SessionType() string
	Identity() SessionIdentity
}

// SessionIdentity is the subset of fields shared by every session variant
type SessionIdentity struct {
	SessionKey      string
	RatingKey       string
	Type            string
	User            string
	Player          string
	State           string
	Title           string
	ProgressPercent string
	AudioDecision   string
	VideoDecision   string
}

type TrackSession struct {
	SessionKey      string `json:"sessionKey"`
	ParentThumb     string `json:"parentThumb"`
	Thumb           string `json:"thumb"`
	User            string `json:"user"`
	Player          string `json:"player"`
	State           string `json:"state"`
	Artist          string `json:"artist"`
	Album           string `json:"album"`
	Track           string `json:"track"`
	RatingKey       string `json:"ratingKey"`
	AudioDecision   string `json:"audioDecision"`
	AudioChannels   string `json:"audioChannels"`
	AudioCodec      string `json:"audioCodec"`
	Duration        string `json:"duration"`
	Progress        string `json:"progress"`
	ProgressPercent string `json:"progressPercent"`
	Type            string `json:"type"`
}

func (s *TrackSession) SessionType() string { return MediaTypeTrack }

func (s *TrackSession) Identity() SessionIdentity {
	return SessionIdentity{
		SessionKey:      s.SessionKey,
		RatingKey:       s.RatingKey,
		Type:            s.Type,
		User:            s.User,
		Player:          s.Player,
		State:           s.State,
		Title:           s.Track,
		ProgressPercent: s.ProgressPercent,
		AudioDecision:   s.AudioDecision,
	}
}

// VideoStream holds the transcode facet shared by episode and movie sessions
type VideoStream struct {
	AudioDecision   string `json:"audioDecision"`
	AudioChannels   string `json:"audioChannels"`
	AudioCodec      string `json:"audioCodec"`
	VideoDecision   string `json:"videoDecision"`
	VideoCodec      string `json:"videoCodec"`
	Height          string `json:"height"`
	Width           string `json:"width"`
	Duration        string `json:"duration"`
	Progress        string `json:"progress"`
	ProgressPercent string `json:"progressPercent"`
}

type EpisodeSession struct {
	SessionKey       string `json:"sessionKey"`
	Art              string `json:"art"`
	Thumb            string `json:"thumb"`
	User             string `json:"user"`
	Player           string `json:"player"`
	State            string `json:"state"`
	GrandparentTitle string `json:"grandparentTitle"`
	Title            string `json:"title"`
	RatingKey        string `json:"ratingKey"`
	VideoStream
	Type string `json:"type"`
}

func (s *EpisodeSession) SessionType() string { return MediaTypeEpisode }

func (s *EpisodeSession) Identity() SessionIdentity {
	return SessionIdentity{
		SessionKey:      s.SessionKey,
		RatingKey:       s.RatingKey,
		Type:            s.Type,
		User:            s.User,
		Player:          s.Player,
		State:           s.State,
		Title:           s.Title,
		ProgressPercent: s.ProgressPercent,
		AudioDecision:   s.AudioDecision,
		VideoDecision:   s.VideoDecision,
	}
}

type MovieSession struct {
	SessionKey string `json:"sessionKey"`
	Art        string `json:"art"`
	Thumb      string `json:"thumb"`
	User       string `json:"user"`
	Player     string `json:"player"`
	State      string `json:"state"`
	Title      string `json:"title"`
	RatingKey  string `json:"ratingKey"`
	VideoStream
	Type string `json:"type"`
}

func (s *MovieSession) SessionType() string { return MediaTypeMovie }

func (s *MovieSession) Identity() SessionIdentity {
	return SessionIdentity{
		SessionKey:      s.SessionKey,
		RatingKey:       s.RatingKey,
		Type:            s.Type,
		User:            s.User,
		Player:          s.Player,
		State:           s.State,
		Title:           s.Title,
		ProgressPercent: s.ProgressPercent,
		AudioDecision:   s.AudioDecision,
		VideoDecision:   s.VideoDecision,
	}
}

// Activity is the current activity snapshot of the media server.
// StreamCount is the container's size attribute and is not recomputed from Sessions.
type Activity struct {
	StreamCount string    `json:"stream_count"`
	Sessions    []Session `json:"sessions"`
}

// Metadata is one normalized library item. The concrete type is one of
// *MovieMetadata, *ShowMetadata, *SeasonMetadata or *EpisodeMetadata.
type Metadata interface {
	MetadataType() string
}

// MetadataList wraps the metadata lookup result. A nil Metadata means the
// server matched zero or several items for the requested rating key.
type MetadataList struct {
	Metadata Metadata `json:"metadata"`
}

// Credits are the repeated tag lists of a library item, in document order
type Credits struct {
	Writers   []string `json:"writers"`
	Directors []string `json:"directors"`
	Genres    []string `json:"genres"`
	Actors    []string `json:"actors"`
}

type MovieMetadata struct {
	Type                  string `json:"type"`
	RatingKey             string `json:"ratingKey"`
	Studio                string `json:"studio"`
	Title                 string `json:"title"`
	ContentRating         string `json:"contentRating"`
	Summary               string `json:"summary"`
	Rating                string `json:"rating"`
	Duration              int    `json:"duration"`
	Year                  string `json:"year"`
	Thumb                 string `json:"thumb"`
	Art                   string `json:"art"`
	OriginallyAvailableAt string `json:"originallyAvailableAt"`
	Credits
}

func (m *MovieMetadata) MetadataType() string { return MediaTypeMovie }

type ShowMetadata struct {
	Type                  string `json:"type"`
	RatingKey             string `json:"ratingKey"`
	Studio                string `json:"studio"`
	Title                 string `json:"title"`
	ContentRating         string `json:"contentRating"`
	Summary               string `json:"summary"`
	Rating                string `json:"rating"`
	Duration              int    `json:"duration"`
	Year                  string `json:"year"`
	Thumb                 string `json:"thumb"`
	Art                   string `json:"art"`
	OriginallyAvailableAt string `json:"originallyAvailableAt"`
	Credits
}

func (m *ShowMetadata) MetadataType() string { return MediaTypeShow }

type EpisodeMetadata struct {
	Type                  string `json:"type"`
	RatingKey             string `json:"ratingKey"`
	GrandparentTitle      string `json:"grandparentTitle"`
	ParentIndex           string `json:"parentIndex"`
	Index                 string `json:"index"`
	Title                 string `json:"title"`
	ContentRating         string `json:"contentRating"`
	Summary               string `json:"summary"`
	Duration              int    `json:"duration"`
	Year                  string `json:"year"`
	Thumb                 string `json:"thumb"`
	ParentThumb           string `json:"parentThumb"`
	Art                   string `json:"art"`
	OriginallyAvailableAt string `json:"originallyAvailableAt"`
	Credits
}

func (m *EpisodeMetadata) MetadataType() string { return MediaTypeEpisode }

type SeasonMetadata struct {
	Type        string `json:"type"`
	RatingKey   string `json:"ratingKey"`
	ParentTitle string `json:"parentTitle"`
	Index       string `json:"index"`
	Title       string `json:"title"`
	Thumb       string `json:"thumb"`
	Art         string `json:"art"`
}

func (m *SeasonMetadata) MetadataType() string { return MediaTypeSeason }

// Image is a transcoded image fetched from the media server
type Image struct {
	ContentType string
	Data        []byte
}
