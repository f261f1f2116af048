package elections

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/votedesk/console/internal/models"
)

// EventElectionsRefreshed carries the new list after a successful refresh.
const EventElectionsRefreshed = "elections_refreshed"

// Notifier receives election events. It must not block.
type Notifier interface {
	Notify(event string, payload interface{})
}

// Lister fetches the full election list.
type Lister interface {
	ListElections(ctx context.Context) ([]models.Election, error)
}

// Store holds the latest election list of a session. Mutations read their
// "current" field values from here right before building a payload.
type Store struct {
	lister   Lister
	notifier Notifier
	logger   *zap.Logger

	mu        sync.RWMutex
	list      []models.Election
	loaded    bool
	fetchedAt time.Time
	issued    uint64
	applied   uint64
}

// NewStore creates an empty store. notifier may be nil.
func NewStore(lister Lister, notifier Notifier, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{lister: lister, notifier: notifier, logger: logger}
}

// Refresh fetches the list. A failed refresh keeps the previous snapshot.
// When refreshes overlap, a response older than the one already applied is dropped.
func (s *Store) Refresh(ctx context.Context) ([]models.Election, error) {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	list, err := s.lister.ListElections(ctx)
	if err != nil {
		s.logger.Warn("election list refresh failed", zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	if seq > s.applied {
		s.applied = seq
		s.list = list
		s.loaded = true
		s.fetchedAt = time.Now()
	}
	current := s.list
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.Notify(EventElectionsRefreshed, current)
	}
	return current, nil
}

// Ensure returns the snapshot, fetching it first if none was ever loaded.
func (s *Store) Ensure(ctx context.Context) ([]models.Election, error) {
	if list, ok := s.Snapshot(); ok {
		return list, nil
	}
	return s.Refresh(ctx)
}

// Snapshot returns the latest list and whether one was ever loaded.
func (s *Store) Snapshot() ([]models.Election, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list, s.loaded
}

// FetchedAt is the time the current snapshot was applied.
func (s *Store) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// Find returns the election from the latest snapshot.
func (s *Store) Find(id int64) (models.Election, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.list {
		if e.ID == id {
			return e, true
		}
	}
	return models.Election{}, false
}
