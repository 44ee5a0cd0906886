// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package monitor

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/plexbrr/internal/config"
	"github.com/autobrr/plexbrr/internal/types"
)

type fakeSource struct {
	mu        sync.Mutex
	responses []*types.Activity
	err       error
	calls     int
}

func (f *fakeSource) GetCurrentActivity(ctx context.Context) (*types.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &types.Activity{StreamCount: "0", Sessions: []types.Session{}}, nil
	}
	next := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return next, nil
}

type fakeStore struct {
	mu      sync.Mutex
	saved   []*types.Activity
	pruned  []time.Time
	saveErr error
}

func (f *fakeStore) SaveActivity(ctx context.Context, activity *types.Activity) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved = append(f.saved, activity)
	return "snapshot", nil
}

func (f *fakeStore) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned = append(f.pruned, cutoff)
	return 0, nil
}

func (f *fakeStore) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func activityOf(states ...string) *types.Activity {
	sessions := make([]types.Session, 0, len(states))
	for i, state := range states {
		sessions = append(sessions, &types.MovieSession{
			SessionKey: string(rune('a' + i)),
			Title:      "Heat",
			User:       "alice",
			State:      state,
			Type:       types.MediaTypeMovie,
		})
	}
	return &types.Activity{StreamCount: string(rune('0' + len(states))), Sessions: sessions}
}

func changes(logs string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(logs), "\n") {
		if i := strings.Index(line, `"change":"`); i >= 0 {
			rest := line[i+len(`"change":"`):]
			out = append(out, rest[:strings.Index(rest, `"`)])
		}
	}
	return out
}

func TestMonitor_Poll_DetectsChanges(t *testing.T) {
	source := &fakeSource{responses: []*types.Activity{
		activityOf("playing"),
		activityOf("playing"),
		activityOf("playing", "playing"),
		activityOf("paused", "playing"),
		activityOf("paused"),
	}}
	store := &fakeStore{}
	logs := &syncBuffer{}

	m := New(source, store, config.MonitorConfig{Interval: config.Duration(time.Second)}, WithLogger(zerolog.New(logs)))

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Poll(context.Background()))
	}

	assert.Equal(t, []string{ChangeInitial, ChangeStarted, ChangeState, ChangeEnded}, changes(logs.String()))
	assert.Equal(t, 5, store.savedCount())
	assert.Empty(t, store.pruned)

	status := m.Status()
	assert.False(t, status.Running)
	assert.Equal(t, ChangeEnded, status.LastChange)
	assert.Empty(t, status.LastError)
	require.NotNil(t, status.Activity)
	assert.Len(t, status.Activity.Sessions, 1)
}

func TestMonitor_Poll_Retention(t *testing.T) {
	store := &fakeStore{}
	m := New(&fakeSource{}, store, config.MonitorConfig{Retention: config.Duration(24 * time.Hour)}, WithLogger(zerolog.Nop()))

	require.NoError(t, m.Poll(context.Background()))
	require.Len(t, store.pruned, 1)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), store.pruned[0], time.Minute)
}

func TestMonitor_Poll_Errors(t *testing.T) {
	t.Run("source failure", func(t *testing.T) {
		m := New(&fakeSource{err: errors.New("connection refused")}, nil, config.MonitorConfig{}, WithLogger(zerolog.Nop()))

		err := m.Poll(context.Background())
		assert.EqualError(t, err, "connection refused")
		assert.Equal(t, "connection refused", m.Status().LastError)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &fakeStore{saveErr: errors.New("disk full")}
		m := New(&fakeSource{}, store, config.MonitorConfig{}, WithLogger(zerolog.Nop()))

		err := m.Poll(context.Background())
		assert.ErrorContains(t, err, "save activity: disk full")
	})

	t.Run("circuit opens after repeated failures", func(t *testing.T) {
		source := &fakeSource{err: errors.New("timeout")}
		m := New(source, nil, config.MonitorConfig{}, WithLogger(zerolog.Nop()))

		for i := 0; i < breakerFailure; i++ {
			assert.Error(t, m.Poll(context.Background()))
		}
		assert.ErrorIs(t, m.Poll(context.Background()), ErrCircuitOpen)
		assert.Equal(t, breakerFailure, source.calls)
	})
}

func TestMonitor_Run_Lock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "plexbrr.lock")
	cfg := config.MonitorConfig{Interval: config.Duration(10 * time.Millisecond), LockPath: lockPath}

	store := &fakeStore{}
	first := New(&fakeSource{}, store, cfg, WithLogger(zerolog.Nop()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- first.Run(ctx) }()

	require.Eventually(t, func() bool { return store.savedCount() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, first.Status().Running)

	second := New(&fakeSource{}, nil, cfg, WithLogger(zerolog.Nop()))
	assert.ErrorIs(t, second.Run(context.Background()), ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-done)
	assert.False(t, first.Status().Running)

	// the lock is released once the first monitor stops
	ctx2, cancel2 := context.WithCancel(context.Background())
	cancel2()
	assert.NoError(t, second.Run(ctx2))
}

func TestMonitor_Run_CircuitOpenIsQuiet(t *testing.T) {
	logs := &syncBuffer{}
	source := &fakeSource{err: errors.New("connection refused")}
	m := New(source, nil, config.MonitorConfig{Interval: config.Duration(5 * time.Millisecond)}, WithLogger(zerolog.New(logs)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "Skipping poll, circuit open")
	}, 2*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	// only real upstream failures are logged as errors, skipped ticks are not
	source.mu.Lock()
	calls := source.calls
	source.mu.Unlock()
	assert.GreaterOrEqual(t, calls, breakerFailure)
	assert.Equal(t, calls, strings.Count(logs.String(), "Activity poll failed"))
	assert.NotContains(t, logs.String(), ErrCircuitOpen.Error())
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	assert.False(t, cb.IsOpen())
	cb.RecordFailure()
	assert.False(t, cb.IsOpen())
	cb.RecordFailure()
	assert.True(t, cb.IsOpen())

	now = now.Add(2 * time.Minute)
	assert.False(t, cb.IsOpen())

	cb.RecordFailure()
	cb.RecordSuccess()
	assert.False(t, cb.IsOpen())
}
