// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package types

import "time"

// ActivitySnapshot is one persisted poll of the current activity
type ActivitySnapshot struct {
	ID          string    `json:"id"`
	TakenAt     time.Time `json:"takenAt"`
	StreamCount string    `json:"streamCount"`
}

// SessionHistory is one stored session row belonging to a snapshot
type SessionHistory struct {
	ID              int64     `json:"id"`
	SnapshotID      string    `json:"snapshotId"`
	SessionKey      string    `json:"sessionKey"`
	RatingKey       string    `json:"ratingKey"`
	MediaType       string    `json:"mediaType"`
	User            string    `json:"user"`
	Player          string    `json:"player"`
	State           string    `json:"state"`
	Title           string    `json:"title"`
	ProgressPercent string    `json:"progressPercent"`
	AudioDecision   string    `json:"audioDecision"`
	VideoDecision   string    `json:"videoDecision,omitempty"`
	TakenAt         time.Time `json:"takenAt"`
}

type FindHistoryParams struct {
	Limit     uint64
	User      string
	RatingKey string
}
