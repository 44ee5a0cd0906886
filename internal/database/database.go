// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/autobrr/plexbrr/internal/config"
	"github.com/autobrr/plexbrr/internal/types"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultHistoryLimit = 50
)

var sessionHistoryColumns = []string{
	"id", "snapshot_id", "session_key", "rating_key", "media_type", "user_name", "player",
	"state", "title", "progress_percent", "audio_decision", "video_decision", "taken_at",
}

// DB represents the database connection
type DB struct {
	*sql.DB
	driver string
	path   string

	squirrel sq.StatementBuilderType
}

// New wraps an open connection. The schema is not touched.
func New(conn *sql.DB, driver string) *DB {
	return &DB{
		DB:     conn,
		driver: driver,
		// set default placeholder for squirrel to support both sqlite and postgres
		squirrel: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// InitDBWithConfig opens the configured database and creates the history schema
func InitDBWithConfig(cfg config.DatabaseConfig) (*DB, error) {
	var (
		database *sql.DB
		err      error
	)

	maxRetries := 5
	baseDelay := time.Second

	if cfg.Type == DriverPostgres {
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
		log.Debug().
			Str("host", cfg.Host).
			Int("port", cfg.Port).
			Str("database", cfg.Name).
			Msg("Initializing PostgreSQL database")

		// Retry loop with linear backoff
		for attempt := 1; attempt <= maxRetries; attempt++ {
			database, err = sql.Open("postgres", dsn)
			if err == nil {
				err = database.Ping()
				if err == nil {
					break
				}
			}

			if attempt == maxRetries {
				return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
			}

			delay := time.Duration(attempt) * baseDelay
			log.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying database connection")
			time.Sleep(delay)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
			return nil, err
		}

		database, err = sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("error opening database: %w", err)
		}

		// Force SQLite to create the database file by pinging it
		if err := database.Ping(); err != nil {
			return nil, fmt.Errorf("error creating database file: %w", err)
		}

		if err := os.Chmod(cfg.Path, 0640); err != nil {
			return nil, fmt.Errorf("error setting database file permissions: %w", err)
		}
		log.Debug().
			Str("path", cfg.Path).
			Msg("Initializing SQLite database")
	}

	database.SetMaxOpenConns(25)
	database.SetMaxIdleConns(25)
	database.SetConnMaxLifetime(5 * time.Minute)

	driver := cfg.Type
	if driver != DriverPostgres {
		driver = DriverSQLite
	}

	log.Info().
		Str("driver", driver).
		Msg("Successfully connected to database")

	db := New(database, driver)
	db.path = cfg.Path

	if err := db.initSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	return db, nil
}

// Path returns the database file path (for SQLite)
func (db *DB) Path() string {
	return db.path
}

// initSchema creates the history tables
func (db *DB) initSchema(ctx context.Context) error {
	autoIncrement := "INTEGER"
	if db.driver == DriverPostgres {
		autoIncrement = "SERIAL"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS activity_snapshots (
			id TEXT PRIMARY KEY,
			taken_at TIMESTAMP NOT NULL,
			stream_count TEXT NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS session_history (
			id %s PRIMARY KEY,
			snapshot_id TEXT NOT NULL REFERENCES activity_snapshots(id) ON DELETE CASCADE,
			session_key TEXT NOT NULL,
			rating_key TEXT NOT NULL,
			media_type TEXT NOT NULL,
			user_name TEXT NOT NULL,
			player TEXT NOT NULL,
			state TEXT NOT NULL,
			title TEXT NOT NULL,
			progress_percent TEXT NOT NULL,
			audio_decision TEXT NOT NULL,
			video_decision TEXT NOT NULL,
			taken_at TIMESTAMP NOT NULL
		)`, autoIncrement),
		`CREATE INDEX IF NOT EXISTS idx_session_history_taken_at ON session_history (taken_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "error creating schema")
		}
	}

	return nil
}

// SaveActivity stores one snapshot and its sessions in a single transaction and returns the snapshot id
func (db *DB) SaveActivity(ctx context.Context, activity *types.Activity) (string, error) {
	if activity == nil {
		return "", errors.New("activity is nil")
	}

	snapshotID := uuid.NewString()
	takenAt := time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "error starting transaction")
	}
	defer tx.Rollback()

	query, args, err := db.squirrel.Insert("activity_snapshots").
		Columns("id", "taken_at", "stream_count").
		Values(snapshotID, takenAt, activity.StreamCount).
		ToSql()
	if err != nil {
		return "", errors.Wrap(err, "error building query")
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return "", errors.Wrap(err, "error inserting snapshot")
	}

	if len(activity.Sessions) > 0 {
		insert := db.squirrel.Insert("session_history").Columns(sessionHistoryColumns[1:]...)
		for _, session := range activity.Sessions {
			id := session.Identity()
			insert = insert.Values(snapshotID, id.SessionKey, id.RatingKey, id.Type, id.User, id.Player,
				id.State, id.Title, id.ProgressPercent, id.AudioDecision, id.VideoDecision, takenAt)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return "", errors.Wrap(err, "error building query")
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return "", errors.Wrap(err, "error inserting sessions")
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "error committing transaction")
	}

	return snapshotID, nil
}

// ListSessionHistory returns stored sessions, newest first
func (db *DB) ListSessionHistory(ctx context.Context, params types.FindHistoryParams) ([]types.SessionHistory, error) {
	limit := params.Limit
	if limit == 0 {
		limit = DefaultHistoryLimit
	}

	queryBuilder := db.squirrel.Select(sessionHistoryColumns...).
		From("session_history").
		OrderBy("taken_at DESC", "id DESC").
		Limit(limit)

	if params.User != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"user_name": params.User})
	}
	if params.RatingKey != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"rating_key": params.RatingKey})
	}

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	history := make([]types.SessionHistory, 0)
	for rows.Next() {
		var h types.SessionHistory
		if err := rows.Scan(&h.ID, &h.SnapshotID, &h.SessionKey, &h.RatingKey, &h.MediaType, &h.User, &h.Player,
			&h.State, &h.Title, &h.ProgressPercent, &h.AudioDecision, &h.VideoDecision, &h.TakenAt); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	return history, nil
}

// LatestSnapshot returns the most recent snapshot or nil when none was stored yet
func (db *DB) LatestSnapshot(ctx context.Context) (*types.ActivitySnapshot, error) {
	query, args, err := db.squirrel.Select("id", "taken_at", "stream_count").
		From("activity_snapshots").
		OrderBy("taken_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	var snapshot types.ActivitySnapshot
	err = db.QueryRowContext(ctx, query, args...).Scan(&snapshot.ID, &snapshot.TakenAt, &snapshot.StreamCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "error executing query")
	}

	return &snapshot, nil
}

// PruneHistory deletes snapshots and sessions taken before cutoff
func (db *DB) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "error starting transaction")
	}
	defer tx.Rollback()

	query, args, err := db.squirrel.Delete("session_history").Where(sq.Lt{"taken_at": cutoff}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "error building query")
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "error deleting sessions")
	}

	query, args, err = db.squirrel.Delete("activity_snapshots").Where(sq.Lt{"taken_at": cutoff}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "error building query")
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, errors.Wrap(err, "error deleting snapshots")
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "error committing transaction")
	}

	return result.RowsAffected()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
