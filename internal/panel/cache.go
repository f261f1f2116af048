// Package panel keeps the per-election sub-resources of the admin panel and
// the open/closed state of each election's panels.
//
// Each (election, kind) entry is absent, loading, or resolved. Only one fetch
// per entry is on the wire at a time; readers that arrive while it runs wait
// for it instead of issuing their own. Failures are never cached.
package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/votedesk/console/internal/metrics"
	"github.com/votedesk/console/internal/models"
)

// Kind names a per-election sub-resource.
type Kind string

const (
	KindResults Kind = "results"
	KindOptions Kind = "options"
)

// ErrUnknownKind is returned for a Kind the cache does not hold.
var ErrUnknownKind = errors.New("unknown sub-resource kind")

// Fetcher loads sub-resources from the voting service.
type Fetcher interface {
	Results(ctx context.Context, electionID int64) (models.Results, error)
	Options(ctx context.Context, electionID int64) (models.Options, error)
}

// Cache holds results and options per election for one operator session.
type Cache struct {
	results *store[models.Results]
	options *store[models.Options]
}

// NewCache creates an empty cache backed by f.
func NewCache(f Fetcher, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		results: newStore(KindResults, f.Results, logger),
		options: newStore(KindOptions, f.Options, logger),
	}
}

// Results returns the election's results, fetching them on first use.
func (c *Cache) Results(ctx context.Context, electionID int64) (models.Results, error) {
	return c.results.get(ctx, electionID)
}

// Options returns the election's options, fetching them on first use.
func (c *Cache) Options(ctx context.Context, electionID int64) (models.Options, error) {
	return c.options.get(ctx, electionID)
}

// CachedResults returns the resolved results without fetching.
func (c *Cache) CachedResults(electionID int64) (models.Results, bool) {
	return c.results.peek(electionID)
}

// CachedOptions returns the resolved options without fetching.
func (c *Cache) CachedOptions(electionID int64) (models.Options, bool) {
	return c.options.peek(electionID)
}

// Has reports whether the entry is resolved.
func (c *Cache) Has(electionID int64, kind Kind) bool {
	switch kind {
	case KindResults:
		_, ok := c.results.peek(electionID)
		return ok
	case KindOptions:
		_, ok := c.options.peek(electionID)
		return ok
	}
	return false
}

// Resolve makes sure the entry is loaded, fetching only on a miss.
func (c *Cache) Resolve(ctx context.Context, electionID int64, kind Kind) error {
	var err error
	switch kind {
	case KindResults:
		_, err = c.results.get(ctx, electionID)
	case KindOptions:
		_, err = c.options.get(ctx, electionID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return err
}

// Invalidate removes exactly one entry. A fetch still running for it will
// complete for its waiters but will not be stored.
func (c *Cache) Invalidate(electionID int64, kind Kind) {
	switch kind {
	case KindResults:
		c.results.invalidate(electionID)
	case KindOptions:
		c.options.invalidate(electionID)
	}
}

// InvalidateAndRefetch fetches the entry again. Until the new value lands,
// readers keep getting the old one; on failure the entry is dropped so the
// next read retries.
func (c *Cache) InvalidateAndRefetch(ctx context.Context, electionID int64, kind Kind) error {
	switch kind {
	case KindResults:
		return c.results.refetch(ctx, electionID)
	case KindOptions:
		return c.options.refetch(ctx, electionID)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Refresh refetches the entry only if it is loaded or loading.
func (c *Cache) Refresh(ctx context.Context, electionID int64, kind Kind) error {
	switch kind {
	case KindResults:
		if !c.results.known(electionID) {
			return nil
		}
	case KindOptions:
		if !c.options.known(electionID) {
			return nil
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return c.InvalidateAndRefetch(ctx, electionID, kind)
}

type flight[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func (f *flight[T]) wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// entry is absent when missing from the map, loading while inflight is set
// and resolved is false, and resolved once resolved is true. A resolved entry
// may carry an inflight refetch; its old value stays readable meanwhile.
type entry[T any] struct {
	value    T
	resolved bool
	inflight *flight[T]
}

type store[T any] struct {
	kind    Kind
	fetch   func(ctx context.Context, electionID int64) (T, error)
	logger  *zap.Logger
	mu      sync.Mutex
	entries map[int64]*entry[T]
}

func newStore[T any](kind Kind, fetch func(context.Context, int64) (T, error), logger *zap.Logger) *store[T] {
	return &store[T]{
		kind:    kind,
		fetch:   fetch,
		logger:  logger,
		entries: make(map[int64]*entry[T]),
	}
}

func (s *store[T]) get(ctx context.Context, id int64) (T, error) {
	s.mu.Lock()
	e := s.entries[id]
	if e != nil && e.resolved {
		v := e.value
		s.mu.Unlock()
		metrics.CacheHits.WithLabelValues(string(s.kind)).Inc()
		return v, nil
	}
	if e == nil {
		e = &entry[T]{}
		s.entries[id] = e
	}
	f := e.inflight
	if f == nil {
		f = s.start(ctx, id, e)
	}
	s.mu.Unlock()
	return f.wait(ctx)
}

func (s *store[T]) refetch(ctx context.Context, id int64) error {
	s.mu.Lock()
	e := s.entries[id]
	if e != nil && e.inflight != nil {
		// The running fetch may predate the change that triggered the
		// refetch. Let it land, then fetch again.
		prev := e.inflight
		s.mu.Unlock()
		select {
		case <-prev.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		e = s.entries[id]
		if e != nil && e.inflight != nil {
			f := e.inflight
			s.mu.Unlock()
			_, err := f.wait(ctx)
			return err
		}
	}
	if e == nil {
		e = &entry[T]{}
		s.entries[id] = e
	}
	f := s.start(ctx, id, e)
	s.mu.Unlock()
	_, err := f.wait(ctx)
	return err
}

// start launches the fetch for e. Caller holds s.mu.
func (s *store[T]) start(ctx context.Context, id int64, e *entry[T]) *flight[T] {
	f := &flight[T]{done: make(chan struct{})}
	e.inflight = f
	detached := context.WithoutCancel(ctx)

	go func() {
		v, err := s.fetch(detached, id)

		s.mu.Lock()
		if s.entries[id] == e && e.inflight == f {
			e.inflight = nil
			if err == nil {
				e.value = v
				e.resolved = true
			} else {
				delete(s.entries, id)
			}
		}
		s.mu.Unlock()

		if err != nil {
			metrics.CacheFetches.WithLabelValues(string(s.kind), "error").Inc()
			s.logger.Warn("sub-resource fetch failed",
				zap.String("kind", string(s.kind)),
				zap.Int64("election_id", id),
				zap.Error(err),
			)
		} else {
			metrics.CacheFetches.WithLabelValues(string(s.kind), "ok").Inc()
		}

		f.value, f.err = v, err
		close(f.done)
	}()
	return f
}

func (s *store[T]) peek(id int64) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.entries[id]; e != nil && e.resolved {
		return e.value, true
	}
	var zero T
	return zero, false
}

func (s *store[T]) known(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

func (s *store[T]) invalidate(id int64) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}
