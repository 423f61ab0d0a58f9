package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/flowcraft-app/flowcraft/internal/provider"
)

// ParticipantFetcher is the read path a session polls on each tick.
// *service.MeetingService satisfies it.
type ParticipantFetcher interface {
	FetchParticipants(ctx context.Context, userID, providerName, externalID string) ([]provider.Participant, error)
}

// Snapshot is the last successful poll of one monitored meeting.
type Snapshot struct {
	Participants []provider.Participant
	PolledAt     time.Time
	Polls        int
	LastErr      string
}

type session struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	snapshot Snapshot
}

// Monitor polls participants of started meetings in the background.
// At most one session runs per (user, meeting) key, a restart replaces
// the running session, Stop is idempotent and reads always see the
// latest complete snapshot.
type Monitor struct {
	fetcher  ParticipantFetcher
	interval time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

func New(fetcher ParticipantFetcher, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		fetcher:  fetcher,
		interval: interval,
		sessions: make(map[string]*session),
	}
}

func key(userID, meetingID string) string {
	return userID + "/" + meetingID
}

// Start begins polling one meeting. Starting a meeting that is already
// monitored tears the previous session down first, so exactly one
// poller is ever active per (user, meeting).
func (m *Monitor) Start(userID, meetingID, providerName, externalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(userID, meetingID)
	if prev, ok := m.sessions[k]; ok {
		prev.cancel()
		<-prev.done
	}
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{cancel: cancel, done: make(chan struct{})}
	m.sessions[k] = sess
	go m.run(ctx, sess, userID, meetingID, providerName, externalID)
}

// Stop ends the session for one meeting. Stopping a meeting that is
// not monitored is a no-op.
func (m *Monitor) Stop(userID, meetingID string) {
	m.mu.Lock()
	sess, ok := m.sessions[key(userID, meetingID)]
	if ok {
		delete(m.sessions, key(userID, meetingID))
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	sess.cancel()
	<-sess.done
}

// StopAll tears down every active session. Called on shutdown.
func (m *Monitor) StopAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()
	for _, sess := range sessions {
		sess.cancel()
	}
	for _, sess := range sessions {
		<-sess.done
	}
}

// Active reports whether a session is running for the meeting.
func (m *Monitor) Active(userID, meetingID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[key(userID, meetingID)]
	return ok
}

// Latest returns the last snapshot for the meeting. The second return
// is false when the meeting was never monitored since startup.
func (m *Monitor) Latest(userID, meetingID string) (Snapshot, bool) {
	m.mu.Lock()
	sess, ok := m.sessions[key(userID, meetingID)]
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot, true
}

func (m *Monitor) run(ctx context.Context, sess *session, userID, meetingID, providerName, externalID string) {
	defer close(sess.done)
	logger := logutil.GetLogger(ctx).With(
		zap.String("user_id", userID),
		zap.String("meeting_id", meetingID),
		zap.String("provider", providerName),
	)
	logger.Info("monitor session started")
	m.poll(ctx, sess, userID, providerName, externalID, logger)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("monitor session stopped")
			return
		case <-ticker.C:
			m.poll(ctx, sess, userID, providerName, externalID, logger)
		}
	}
}

func (m *Monitor) poll(ctx context.Context, sess *session, userID, providerName, externalID string, logger *zap.Logger) {
	participants, err := m.fetcher.FetchParticipants(ctx, userID, providerName, externalID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.snapshot.Polls++
	sess.snapshot.PolledAt = time.Now()
	if err != nil {
		// keep the last good participant list, only record the failure
		sess.snapshot.LastErr = err.Error()
		logger.Warn("participant poll failed", zap.Error(err))
		return
	}
	sess.snapshot.Participants = participants
	sess.snapshot.LastErr = ""
}
