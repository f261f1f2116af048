// Package console serves the operator panel. Every logged-in operator gets a
// session holding its own panel cache, panel states, election list and last
// ticket batch; all of it is dropped when the session goes idle.
package console

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/votedesk/console/internal/elections"
	"github.com/votedesk/console/internal/metrics"
	"github.com/votedesk/console/internal/models"
	"github.com/votedesk/console/internal/panel"
)

// VotingAPI is everything a session needs from the voting service.
type VotingAPI interface {
	elections.Gateway
	panel.Fetcher
	Stats(ctx context.Context) (models.Stats, error)
	CreateTickets(ctx context.Context, count int) (models.TicketBatch, error)
	TicketInventory(ctx context.Context) (models.TicketInventory, error)
}

// Notifier pushes events to a session's browser tabs.
type Notifier interface {
	Notify(event string, payload interface{})
}

// NotifierFunc builds the notifier of a session.
type NotifierFunc func(sessionID uuid.UUID) Notifier

// Session is one operator's panel state.
type Session struct {
	ID        uuid.UUID
	Cache     *panel.Cache
	Panels    *panel.Controller
	Elections *elections.Store
	Mutations *elections.Coordinator

	mu        sync.Mutex
	lastBatch *models.TicketBatch
	lastSeen  time.Time
}

// LastBatch returns the most recent ticket batch created in this session.
func (s *Session) LastBatch() (models.TicketBatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastBatch == nil {
		return models.TicketBatch{}, false
	}
	return *s.lastBatch, true
}

// SetLastBatch replaces the last batch.
func (s *Session) SetLastBatch(b models.TicketBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastBatch = &b
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry holds live sessions.
type Registry struct {
	api    VotingAPI
	notify NotifierFunc
	idle   time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates a registry. notify may be nil.
func NewRegistry(api VotingAPI, notify NotifierFunc, idle time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		api:      api,
		notify:   notify,
		idle:     idle,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Get returns the session, creating it on first use, and marks it active.
func (r *Registry) Get(id uuid.UUID) *Session {
	now := r.now()
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		s = r.newSession(id)
		r.sessions[id] = s
		metrics.ActiveSessions.Inc()
	}
	r.mu.Unlock()

	s.touch(now)
	if !ok {
		r.logger.Info("console session started", zap.String("session_id", id.String()))
	}
	return s
}

func (r *Registry) newSession(id uuid.UUID) *Session {
	var n Notifier
	if r.notify != nil {
		n = r.notify(id)
	}
	logger := r.logger.With(zap.String("session_id", id.String()))

	cache := panel.NewCache(r.api, logger)
	store := elections.NewStore(r.api, n, logger)
	return &Session{
		ID:        id,
		Cache:     cache,
		Panels:    panel.NewController(cache, n, logger),
		Elections: store,
		Mutations: elections.NewCoordinator(r.api, store, cache, n, logger),
	}
}

// Drop ends a session. It reports whether the session existed.
func (r *Registry) Drop(id uuid.UUID) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		metrics.ActiveSessions.Dec()
	}
	r.mu.Unlock()
	if ok {
		r.logger.Info("console session ended", zap.String("session_id", id.String()))
	}
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the idle timeout and returns how
// many went.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)
	var expired []uuid.UUID

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			expired = append(expired, id)
		}
	}
	r.mu.Unlock()

	metrics.ActiveSessions.Sub(float64(len(expired)))
	for _, id := range expired {
		r.logger.Info("console session expired", zap.String("session_id", id.String()))
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	every := r.idle / 4
	if every < time.Second {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
