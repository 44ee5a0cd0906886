// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/plexbrr/internal/config"
	"github.com/autobrr/plexbrr/internal/types"
)

func testActivity() *types.Activity {
	return &types.Activity{
		StreamCount: "2",
		Sessions: []types.Session{
			&types.TrackSession{
				SessionKey:      "11",
				RatingKey:       "200",
				User:            "bob",
				Player:          "Android",
				State:           "paused",
				Track:           "Teardrop",
				AudioDecision:   types.DirectPlay,
				ProgressPercent: "18",
				Type:            types.MediaTypeTrack,
			},
			&types.MovieSession{
				SessionKey: "10",
				RatingKey:  "100",
				User:       "alice",
				Player:     "Chrome",
				State:      "playing",
				Title:      "Heat",
				VideoStream: types.VideoStream{
					AudioDecision:   types.DirectPlay,
					VideoDecision:   "transcode",
					ProgressPercent: "50",
				},
				Type: types.MediaTypeMovie,
			},
		},
	}
}

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return New(conn, DriverSQLite), mock
}

func setupSQLiteDB(t *testing.T) *DB {
	t.Helper()
	db, err := InitDBWithConfig(config.DatabaseConfig{
		Type: DriverSQLite,
		Path: filepath.Join(t.TempDir(), "data", "plexbrr.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveActivity_Mock(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO activity_snapshots \(id,taken_at,stream_count\) VALUES \(\$1,\$2,\$3\)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO session_history`).
		WithArgs(
			sqlmock.AnyArg(), "11", "200", types.MediaTypeTrack, "bob", "Android", "paused", "Teardrop", "18", types.DirectPlay, "", sqlmock.AnyArg(),
			sqlmock.AnyArg(), "10", "100", types.MediaTypeMovie, "alice", "Chrome", "playing", "Heat", "50", types.DirectPlay, "transcode", sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectCommit()

	id, err := db.SaveActivity(context.Background(), testActivity())
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveActivity_EmptySkipsSessions(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO activity_snapshots`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "0").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := db.SaveActivity(context.Background(), &types.Activity{StreamCount: "0", Sessions: []types.Session{}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveActivity_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO activity_snapshots`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO session_history`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	id, err := db.SaveActivity(context.Background(), testActivity())
	assert.ErrorContains(t, err, "error inserting sessions: disk full")
	assert.Empty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveActivity_Nil(t *testing.T) {
	db, _ := newMockDB(t)

	_, err := db.SaveActivity(context.Background(), nil)
	assert.Error(t, err)
}

func TestListSessionHistory_Mock(t *testing.T) {
	db, mock := newMockDB(t)
	takenAt := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(sessionHistoryColumns).
		AddRow(7, "snap", "10", "100", types.MediaTypeMovie, "alice", "Chrome", "playing", "Heat", "50", types.DirectPlay, types.DirectPlay, takenAt)
	mock.ExpectQuery(`SELECT .* FROM session_history WHERE user_name = \$1 ORDER BY taken_at DESC, id DESC LIMIT 10`).
		WithArgs("alice").
		WillReturnRows(rows)

	history, err := db.ListSessionHistory(context.Background(), types.FindHistoryParams{Limit: 10, User: "alice"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(7), history[0].ID)
	assert.Equal(t, "Heat", history[0].Title)
	assert.Equal(t, takenAt, history[0].TakenAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSessionHistory_DefaultLimit(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`LIMIT 50`).WillReturnRows(sqlmock.NewRows(sessionHistoryColumns))

	history, err := db.ListSessionHistory(context.Background(), types.FindHistoryParams{})
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestSnapshot_Empty(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT id, taken_at, stream_count FROM activity_snapshots`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "taken_at", "stream_count"}))

	snapshot, err := db.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestSQLiteHistoryRoundTrip(t *testing.T) {
	db := setupSQLiteDB(t)
	ctx := context.Background()

	first, err := db.SaveActivity(ctx, testActivity())
	require.NoError(t, err)
	second, err := db.SaveActivity(ctx, &types.Activity{StreamCount: "0", Sessions: []types.Session{}})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	snapshot, err := db.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, second, snapshot.ID)
	assert.Equal(t, "0", snapshot.StreamCount)

	history, err := db.ListSessionHistory(ctx, types.FindHistoryParams{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, h := range history {
		assert.Equal(t, first, h.SnapshotID)
	}

	byRatingKey, err := db.ListSessionHistory(ctx, types.FindHistoryParams{RatingKey: "100"})
	require.NoError(t, err)
	require.Len(t, byRatingKey, 1)
	assert.Equal(t, "alice", byRatingKey[0].User)
	assert.Equal(t, "transcode", byRatingKey[0].VideoDecision)

	limited, err := db.ListSessionHistory(ctx, types.FindHistoryParams{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLitePruneHistory(t *testing.T) {
	db := setupSQLiteDB(t)
	ctx := context.Background()

	_, err := db.SaveActivity(ctx, testActivity())
	require.NoError(t, err)

	removed, err := db.PruneHistory(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	removed, err = db.PruneHistory(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	snapshot, err := db.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}
