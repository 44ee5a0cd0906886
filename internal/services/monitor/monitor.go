// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/plexbrr/internal/config"
	"github.com/autobrr/plexbrr/internal/types"
)

const (
	ChangeInitial  = "initial_sessions"
	ChangeStarted  = "stream_started"
	ChangeEnded    = "stream_ended"
	ChangeState    = "state_changed"
	breakerFailure = 5
)

var (
	ErrAlreadyRunning = errors.New("another monitor instance is already running")
	ErrCircuitOpen    = errors.New("polling paused after repeated failures")
)

// ActivitySource provides the current activity snapshot
type ActivitySource interface {
	GetCurrentActivity(ctx context.Context) (*types.Activity, error)
}

// HistoryStore persists snapshots
type HistoryStore interface {
	SaveActivity(ctx context.Context, activity *types.Activity) (string, error)
	PruneHistory(ctx context.Context, cutoff time.Time) (int64, error)
}

// Status describes the most recent poll
type Status struct {
	Running    bool            `json:"running"`
	LastPoll   time.Time       `json:"lastPoll,omitempty"`
	LastChange string          `json:"lastChange,omitempty"`
	LastError  string          `json:"lastError,omitempty"`
	Activity   *types.Activity `json:"activity,omitempty"`
}

// Monitor polls the media server and records every snapshot
type Monitor struct {
	source    ActivitySource
	store     HistoryStore
	interval  time.Duration
	retention time.Duration
	lockPath  string
	lock      *flock.Flock
	breaker   *CircuitBreaker
	log       zerolog.Logger

	mu       sync.RWMutex
	running  bool
	seen     bool
	lastHash string
	status   Status
}

type Option func(*Monitor)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Monitor) {
		m.log = logger
	}
}

// New builds a monitor. store may be nil, in which case snapshots are only tracked in memory.
func New(source ActivitySource, store HistoryStore, cfg config.MonitorConfig, opts ...Option) *Monitor {
	interval := cfg.Interval.Std()
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}

	m := &Monitor{
		source:    source,
		store:     store,
		interval:  interval,
		retention: cfg.Retention.Std(),
		lockPath:  cfg.LockPath,
		breaker:   NewCircuitBreaker(breakerFailure, 5*interval),
		log:       log.With().Str("module", "monitor").Logger(),
	}
	if cfg.LockPath != "" {
		m.lock = flock.New(cfg.LockPath)
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Run polls until ctx is cancelled. It refuses to start when another process holds the lock.
func (m *Monitor) Run(ctx context.Context) error {
	if m.lock != nil {
		ok, err := m.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return ErrAlreadyRunning
		}
		defer func() {
			if err := m.lock.Unlock(); err != nil {
				m.log.Warn().Err(err).Msg("failed to release monitor lock")
			}
		}()
	}

	m.setRunning(true)
	defer m.setRunning(false)

	m.log.Info().
		Dur("interval", m.interval).
		Str("lock", m.lockPath).
		Msg("Activity monitor started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if err := m.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrCircuitOpen) {
			m.log.Error().Err(err).Msg("Activity poll failed")
		}

		select {
		case <-ctx.Done():
			m.log.Info().Msg("Activity monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll fetches one snapshot, stores it and logs what changed since the last one
func (m *Monitor) Poll(ctx context.Context) error {
	if m.breaker.IsOpen() {
		m.log.Debug().Msg("Skipping poll, circuit open")
		return ErrCircuitOpen
	}

	activity, err := m.source.GetCurrentActivity(ctx)
	if err != nil {
		m.breaker.RecordFailure()
		m.recordError(err)
		return err
	}
	m.breaker.RecordSuccess()

	if m.store != nil {
		id, err := m.store.SaveActivity(ctx, activity)
		if err != nil {
			m.recordError(err)
			return fmt.Errorf("save activity: %w", err)
		}
		m.log.Trace().Str("snapshot", id).Msg("Stored activity snapshot")

		if m.retention > 0 {
			removed, err := m.store.PruneHistory(ctx, time.Now().UTC().Add(-m.retention))
			if err != nil {
				m.log.Warn().Err(err).Msg("Failed to prune history")
			} else if removed > 0 {
				m.log.Debug().Int64("removed", removed).Msg("Pruned session history")
			}
		}
	}

	m.compareAndLogSessionChanges(activity)
	return nil
}

// Status returns the outcome of the most recent poll
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := m.status
	status.Running = m.running
	return status
}

func (m *Monitor) setRunning(running bool) {
	m.mu.Lock()
	m.running = running
	m.mu.Unlock()
}

func (m *Monitor) recordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status.LastPoll = time.Now()
	m.status.LastError = err.Error()
}

func (m *Monitor) compareAndLogSessionChanges(activity *types.Activity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status.LastPoll = time.Now()
	m.status.LastError = ""
	m.status.Activity = activity

	currentHash := createSessionHash(activity)
	if m.seen && currentHash == m.lastHash {
		return
	}

	change := detectSessionChanges(m.seen, m.lastHash, currentHash)
	m.log.Info().
		Str("streams", activity.StreamCount).
		Int("sessions", len(activity.Sessions)).
		Str("change", change).
		Msg("Sessions changed")

	m.seen = true
	m.lastHash = currentHash
	m.status.LastChange = change
}

// createSessionHash summarizes the identity and playback state of every session
func createSessionHash(activity *types.Activity) string {
	if activity == nil || len(activity.Sessions) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, session := range activity.Sessions {
		id := session.Identity()
		fmt.Fprintf(&sb, "%s:%s:%s:%s\n", id.SessionKey, id.Title, id.User, id.State)
	}
	return sb.String()
}

func detectSessionChanges(seen bool, oldHash, newHash string) string {
	if !seen {
		return ChangeInitial
	}

	oldCount := strings.Count(oldHash, "\n")
	newCount := strings.Count(newHash, "\n")

	switch {
	case oldCount < newCount:
		return ChangeStarted
	case oldCount > newCount:
		return ChangeEnded
	default:
		return ChangeState
	}
}
