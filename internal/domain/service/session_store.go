package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/domain/entity"
	"github.com/brandlens/brandlens/pkg/clock"
	"github.com/brandlens/brandlens/pkg/safego"
)

const (
	// DefaultMaxSessions bounds the store; eviction kicks in above it.
	DefaultMaxSessions = 500
	// DefaultSessionTTL is the idle lifetime of a session.
	DefaultSessionTTL = 30 * time.Minute

	sweepInterval = 5 * time.Minute
)

type sessionEntry struct {
	history   []entity.Turn
	createdAt time.Time
	updatedAt time.Time
}

// SessionStore keeps per-session conversation histories in memory, bounded
// by size (LRU on updatedAt) and idle TTL. All mutations are serialized; the
// hot path is O(1) map access.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*sessionEntry
	maxSessions int
	idleTTL     time.Duration
	clock       clock.Clock
	logger      *zap.Logger
}

func NewSessionStore(maxSessions int, idleTTL time.Duration, clk clock.Clock, logger *zap.Logger) *SessionStore {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if idleTTL <= 0 {
		idleTTL = DefaultSessionTTL
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &SessionStore{
		sessions:    make(map[string]*sessionEntry),
		maxSessions: maxSessions,
		idleTTL:     idleTTL,
		clock:       clk,
		logger:      logger,
	}
}

// Create allocates a new session and returns its v4 UUID. Under size
// pressure expired sessions are swept first, then the least recently used
// one is evicted.
func (s *SessionStore) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.makeRoomLocked()

	id := uuid.NewString()
	now := s.clock.Now()
	s.sessions[id] = &sessionEntry{createdAt: now, updatedAt: now}
	return id
}

// Get returns the session history, or nil/false for unknown or expired
// sessions. A successful read touches updatedAt.
func (s *SessionStore) Get(id string) ([]entity.Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.clock.Since(entry.updatedAt) > s.idleTTL {
		delete(s.sessions, id)
		return nil, false
	}
	entry.updatedAt = s.clock.Now()
	return entry.history, true
}

// Set overwrites the session history, creating the session if absent.
func (s *SessionStore) Set(id string, history []entity.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		s.makeRoomLocked()
		entry = &sessionEntry{createdAt: s.clock.Now()}
		s.sessions[id] = entry
	}
	entry.history = history
	entry.updatedAt = s.clock.Now()
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartSweeper runs the periodic idle-expiry sweep until ctx is cancelled.
func (s *SessionStore) StartSweeper(ctx context.Context) {
	safego.Go(s.logger, "session-sweeper", func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Info("Swept expired sessions", zap.Int("removed", n))
				}
			}
		}
	})
}

// Sweep removes all sessions idle longer than the TTL and returns the count.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *SessionStore) sweepLocked() int {
	removed := 0
	for id, entry := range s.sessions {
		if s.clock.Since(entry.updatedAt) > s.idleTTL {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// makeRoomLocked enforces the size bound: sweep expired sessions first, then
// evict by LRU until below the cap.
func (s *SessionStore) makeRoomLocked() {
	if len(s.sessions) < s.maxSessions {
		return
	}
	s.sweepLocked()
	for len(s.sessions) >= s.maxSessions {
		s.evictLRULocked()
	}
}

func (s *SessionStore) evictLRULocked() {
	var oldestID string
	var oldest time.Time
	for id, entry := range s.sessions {
		if oldestID == "" || entry.updatedAt.Before(oldest) {
			oldestID = id
			oldest = entry.updatedAt
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
		if s.logger != nil {
			s.logger.Debug("Evicted LRU session", zap.String("session_id", oldestID))
		}
	}
}
