package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowcraft-app/flowcraft/internal/provider"
)

type fakeFetcher struct {
	calls atomic.Int64
	err   atomic.Value
}

func (f *fakeFetcher) FetchParticipants(ctx context.Context, userID, providerName, externalID string) ([]provider.Participant, error) {
	f.calls.Add(1)
	if v := f.err.Load(); v != nil {
		if err, ok := v.(error); ok && err != nil {
			return nil, err
		}
	}
	return []provider.Participant{{ID: externalID, Name: "Alice"}}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestMonitorRestartReplacesSession(t *testing.T) {
	fetcher := &fakeFetcher{}
	m := New(fetcher, 10*time.Millisecond)
	defer m.StopAll()

	m.Start("user-1", "m-1", "zoom", "ext-1")
	waitFor(t, func() bool {
		snap, ok := m.Latest("user-1", "m-1")
		return ok && len(snap.Participants) == 1 && snap.Participants[0].ID == "ext-1"
	})

	// a second start tears the old poller down and polls fresh state
	m.Start("user-1", "m-1", "zoom", "ext-1b")
	waitFor(t, func() bool {
		snap, ok := m.Latest("user-1", "m-1")
		return ok && len(snap.Participants) == 1 && snap.Participants[0].ID == "ext-1b"
	})
	require.True(t, m.Active("user-1", "m-1"))

	// a different meeting gets its own session
	m.Start("user-1", "m-2", "zoom", "ext-2")
	require.True(t, m.Active("user-1", "m-1"))
	require.True(t, m.Active("user-1", "m-2"))
}

func TestMonitorPollsAndSnapshots(t *testing.T) {
	fetcher := &fakeFetcher{}
	m := New(fetcher, 10*time.Millisecond)
	defer m.StopAll()

	m.Start("user-1", "m-1", "zoom", "ext-1")
	waitFor(t, func() bool {
		snap, ok := m.Latest("user-1", "m-1")
		return ok && snap.Polls >= 2 && len(snap.Participants) == 1
	})

	snap, ok := m.Latest("user-1", "m-1")
	require.True(t, ok)
	require.Equal(t, "Alice", snap.Participants[0].Name)
	require.Empty(t, snap.LastErr)
}

func TestMonitorKeepsLastGoodSnapshotOnError(t *testing.T) {
	fetcher := &fakeFetcher{}
	m := New(fetcher, 10*time.Millisecond)
	defer m.StopAll()

	m.Start("user-1", "m-1", "zoom", "ext-1")
	waitFor(t, func() bool {
		snap, ok := m.Latest("user-1", "m-1")
		return ok && len(snap.Participants) == 1
	})

	fetcher.err.Store(errors.New("upstream down"))
	waitFor(t, func() bool {
		snap, _ := m.Latest("user-1", "m-1")
		return snap.LastErr != ""
	})

	snap, _ := m.Latest("user-1", "m-1")
	require.Len(t, snap.Participants, 1)
	require.Contains(t, snap.LastErr, "upstream down")
}

func TestMonitorStopIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{}
	m := New(fetcher, 10*time.Millisecond)

	m.Start("user-1", "m-1", "zoom", "ext-1")
	m.Stop("user-1", "m-1")
	require.False(t, m.Active("user-1", "m-1"))

	// stopping again and stopping unknown meetings are no-ops
	m.Stop("user-1", "m-1")
	m.Stop("user-1", "never-started")

	calls := fetcher.calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, calls, fetcher.calls.Load())

	// the meeting can be monitored again after a stop
	m.Start("user-1", "m-1", "zoom", "ext-1")
	m.StopAll()
	require.False(t, m.Active("user-1", "m-1"))
}
