package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/votedesk/console/internal/models"
)

// PanelKind names one of the two panels an election row can expand.
type PanelKind string

const (
	PanelResults PanelKind = "results"
	PanelEdit    PanelKind = "edit"
)

// ErrUnknownPanel is returned for a PanelKind the controller does not know.
var ErrUnknownPanel = errors.New("unknown panel kind")

// ParsePanelKind validates a panel kind taken from a request path.
func ParsePanelKind(s string) (PanelKind, error) {
	k := PanelKind(s)
	if k.needs() == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownPanel, s)
	}
	return k, nil
}

// needs lists the sub-resources the panel displays. The results panel shows
// tallies next to the option list, so it needs both.
func (k PanelKind) needs() []Kind {
	switch k {
	case PanelResults:
		return []Kind{KindResults, KindOptions}
	case PanelEdit:
		return []Kind{KindOptions}
	}
	return nil
}

// State is the visibility of one panel.
type State string

const (
	StateClosed  State = "closed"
	StateLoading State = "loading"
	StateOpen    State = "open"
)

// EventPanelState is published on every visibility change.
const EventPanelState = "panel_state"

// Transition is the payload of EventPanelState.
type Transition struct {
	ElectionID int64     `json:"election_id"`
	Panel      PanelKind `json:"panel"`
	State      State     `json:"state"`
	Error      string    `json:"error,omitempty"`
}

// Notifier receives panel events. It must not block.
type Notifier interface {
	Notify(event string, payload interface{})
}

type panelKey struct {
	electionID int64
	kind       PanelKind
}

// Controller tracks closed/loading/open per (election, panel). Opening a
// panel resolves its sub-resources through the cache, so data already loaded
// opens instantly and data still loading is awaited rather than refetched.
type Controller struct {
	cache    *Cache
	notifier Notifier
	logger   *zap.Logger

	mu     sync.Mutex
	states map[panelKey]State
	loads  map[panelKey]uint64
	seq    uint64
}

// NewController creates a controller over cache. notifier may be nil.
func NewController(cache *Cache, notifier Notifier, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		states:   make(map[panelKey]State),
		loads:    make(map[panelKey]uint64),
	}
}

// State returns the panel's current visibility.
func (c *Controller) State(electionID int64, kind PanelKind) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked(panelKey{electionID, kind})
}

func (c *Controller) stateLocked(key panelKey) State {
	if s, ok := c.states[key]; ok {
		return s
	}
	return StateClosed
}

// Toggle flips the panel. An open panel closes without touching the cache; a
// loading panel ignores the toggle; a closed panel opens, loading whatever
// its data needs first. A failed load leaves the panel closed and returns
// the error.
func (c *Controller) Toggle(ctx context.Context, electionID int64, kind PanelKind) (State, error) {
	needs := kind.needs()
	if needs == nil {
		return StateClosed, fmt.Errorf("%w: %q", ErrUnknownPanel, kind)
	}
	key := panelKey{electionID, kind}

	c.mu.Lock()
	switch c.stateLocked(key) {
	case StateOpen:
		delete(c.states, key)
		c.mu.Unlock()
		c.notify(Transition{ElectionID: electionID, Panel: kind, State: StateClosed})
		return StateClosed, nil
	case StateLoading:
		c.mu.Unlock()
		return StateLoading, nil
	}
	if c.cachedAll(electionID, needs) {
		c.states[key] = StateOpen
		c.mu.Unlock()
		c.notify(Transition{ElectionID: electionID, Panel: kind, State: StateOpen})
		return StateOpen, nil
	}
	c.seq++
	token := c.seq
	c.states[key] = StateLoading
	c.loads[key] = token
	c.mu.Unlock()
	c.notify(Transition{ElectionID: electionID, Panel: kind, State: StateLoading})

	err := c.resolve(ctx, electionID, needs)

	c.mu.Lock()
	if c.loads[key] != token || c.stateLocked(key) != StateLoading {
		// Closed (and maybe reopened) while loading; this load no longer
		// owns the panel.
		st := c.stateLocked(key)
		c.mu.Unlock()
		return st, err
	}
	delete(c.loads, key)
	next := StateOpen
	if err != nil {
		next = StateClosed
		delete(c.states, key)
	} else {
		c.states[key] = StateOpen
	}
	c.mu.Unlock()

	t := Transition{ElectionID: electionID, Panel: kind, State: next}
	if err != nil {
		t.Error = err.Error()
		c.logger.Info("panel load failed",
			zap.Int64("election_id", electionID),
			zap.String("panel", string(kind)),
			zap.Error(err),
		)
	}
	c.notify(t)
	return next, err
}

// Close closes the panel in any state. A load still running completes into
// the cache but does not reopen the panel.
func (c *Controller) Close(electionID int64, kind PanelKind) State {
	key := panelKey{electionID, kind}
	c.mu.Lock()
	prev := c.stateLocked(key)
	delete(c.states, key)
	delete(c.loads, key)
	c.mu.Unlock()
	if prev != StateClosed {
		c.notify(Transition{ElectionID: electionID, Panel: kind, State: StateClosed})
	}
	return StateClosed
}

func (c *Controller) cachedAll(electionID int64, needs []Kind) bool {
	for _, k := range needs {
		if !c.cache.Has(electionID, k) {
			return false
		}
	}
	return true
}

// resolve loads every needed kind; the panel opens only if all succeed.
func (c *Controller) resolve(ctx context.Context, electionID int64, needs []Kind) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range needs {
		k := k
		g.Go(func() error {
			return c.cache.Resolve(gctx, electionID, k)
		})
	}
	return g.Wait()
}

func (c *Controller) notify(t Transition) {
	if c.notifier != nil {
		c.notifier.Notify(EventPanelState, t)
	}
}

// PanelView is one panel as the browser renders it.
type PanelView struct {
	State   State           `json:"state"`
	Results *models.Results `json:"results,omitempty"`
	Options *models.Options `json:"options,omitempty"`
}

// ElectionView pairs an election with both of its panels.
type ElectionView struct {
	models.Election
	ResultsPanel PanelView `json:"results_panel"`
	EditPanel    PanelView `json:"edit_panel"`
}

// View renders an election with its panel states. Data is attached only to
// open panels and only from what is already cached.
func (c *Controller) View(e models.Election) ElectionView {
	v := ElectionView{
		Election:     e,
		ResultsPanel: PanelView{State: c.State(e.ID, PanelResults)},
		EditPanel:    PanelView{State: c.State(e.ID, PanelEdit)},
	}
	if v.ResultsPanel.State == StateOpen {
		if r, ok := c.cache.CachedResults(e.ID); ok {
			v.ResultsPanel.Results = &r
		}
		if o, ok := c.cache.CachedOptions(e.ID); ok {
			v.ResultsPanel.Options = &o
		}
	}
	if v.EditPanel.State == StateOpen {
		if o, ok := c.cache.CachedOptions(e.ID); ok {
			v.EditPanel.Options = &o
		}
	}
	return v
}
