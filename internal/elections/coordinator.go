// Package elections holds the session's election list and applies admin
// mutations against the voting service.
//
// The update endpoint replaces the whole record, so every update is rebuilt
// from the latest fetched election with only the edited fields swapped in.
// A mutation is followed by a list refresh and, where the change shows up in
// a panel, by a refresh of that election's cached sub-resources. A failed
// mutation touches neither.
package elections

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/votedesk/console/internal/models"
	"github.com/votedesk/console/internal/panel"
)

// EventElectionMutated is published after a successful mutation.
const EventElectionMutated = "election_mutated"

// Mutation is the payload of EventElectionMutated.
type Mutation struct {
	ElectionID int64  `json:"election_id"`
	Action     string `json:"action"`
}

// Gateway is the part of the voting API the coordinator mutates through.
type Gateway interface {
	Lister
	CreateElection(ctx context.Context, body models.CreateElectionRequest) (int64, error)
	UpdateElection(ctx context.Context, electionID int64, body models.UpdateElectionRequest) (int64, error)
	CreateOption(ctx context.Context, electionID int64, label string) (int64, error)
}

// SubResources is the per-election cache the coordinator keeps consistent.
type SubResources interface {
	InvalidateAndRefetch(ctx context.Context, electionID int64, kind panel.Kind) error
	Refresh(ctx context.Context, electionID int64, kind panel.Kind) error
}

// StaleError reports a mutation that succeeded on the server but whose
// follow-up refresh failed; the displayed data may lag behind.
type StaleError struct {
	Err error
}

func (e *StaleError) Error() string {
	return "saved, but refreshing failed: " + e.Err.Error()
}

func (e *StaleError) Unwrap() error { return e.Err }

// CreateForm is the operator's new-election form.
type CreateForm struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	StartsAt    string   `json:"starts_at"`
	EndsAt      string   `json:"ends_at"`
	Options     []string `json:"options"`
}

// Coordinator serializes mutations per election.
type Coordinator struct {
	gw       Gateway
	store    *Store
	cache    SubResources
	notifier Notifier
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewCoordinator wires a coordinator. notifier may be nil.
func NewCoordinator(gw Gateway, store *Store, cache SubResources, notifier Notifier, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		gw:       gw,
		store:    store,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (c *Coordinator) lock(electionID int64) func() {
	c.mu.Lock()
	l, ok := c.locks[electionID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[electionID] = l
	}
	c.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// UpdateStatus sets the election's status, resending every other field as
// last fetched.
func (c *Coordinator) UpdateStatus(ctx context.Context, electionID int64, status models.ElectionStatus) error {
	status = models.ElectionStatus(strings.TrimSpace(string(status)))
	if status == "" {
		return invalid("status", "status is required")
	}
	if !status.Known() {
		return invalid("status", fmt.Sprintf("status must be one of scheduled, active, closed; got %q", status))
	}

	unlock := c.lock(electionID)
	defer unlock()

	current, ok := c.store.Find(electionID)
	if !ok {
		return ErrElectionNotFound
	}
	body := models.UpdateFrom(current)
	body.Status = status

	if _, err := c.gw.UpdateElection(ctx, electionID, body); err != nil {
		return err
	}
	c.logger.Info("election status updated",
		zap.Int64("election_id", electionID),
		zap.String("status", string(status)),
	)
	return c.settle(ctx, electionID, "status", c.refresh(electionID, panel.KindResults))
}

// UpdateDates sets the election's start and end, resending every other field
// as last fetched. Both values are required.
func (c *Coordinator) UpdateDates(ctx context.Context, electionID int64, startsAt, endsAt string) error {
	start, end, err := normalizeRange(startsAt, endsAt)
	if err != nil {
		return err
	}

	unlock := c.lock(electionID)
	defer unlock()

	current, ok := c.store.Find(electionID)
	if !ok {
		return ErrElectionNotFound
	}
	body := models.UpdateFrom(current)
	body.StartsAt = start
	body.EndsAt = end

	if _, err := c.gw.UpdateElection(ctx, electionID, body); err != nil {
		return err
	}
	c.logger.Info("election dates updated",
		zap.Int64("election_id", electionID),
		zap.String("starts_at", start),
		zap.String("ends_at", end),
	)
	return c.settle(ctx, electionID, "dates")
}

// AddOption appends one option. The options entry is refetched outright
// since its panel is the one showing it.
func (c *Coordinator) AddOption(ctx context.Context, electionID int64, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return invalid("label", "option label is required")
	}

	unlock := c.lock(electionID)
	defer unlock()

	if _, err := c.gw.CreateOption(ctx, electionID, label); err != nil {
		return err
	}
	c.logger.Info("election option added", zap.Int64("election_id", electionID))
	return c.settle(ctx, electionID, "option",
		c.refetch(electionID, panel.KindOptions),
		c.refresh(electionID, panel.KindResults),
	)
}

// CreateElection validates the form and submits it as a scheduled election.
func (c *Coordinator) CreateElection(ctx context.Context, form CreateForm) (int64, error) {
	title := strings.TrimSpace(form.Title)
	if title == "" {
		return 0, invalid("title", "title is required")
	}
	if strings.TrimSpace(form.StartsAt) == "" || strings.TrimSpace(form.EndsAt) == "" {
		return 0, invalid("dates", "start and end are both required")
	}
	options := cleanOptions(form.Options)
	if len(options) == 0 {
		return 0, invalid("options", "at least one non-empty option is required")
	}
	start, end, err := normalizeRange(form.StartsAt, form.EndsAt)
	if err != nil {
		return 0, err
	}

	id, err := c.gw.CreateElection(ctx, models.CreateElectionRequest{
		Title:       title,
		Description: form.Description,
		StartsAt:    start,
		EndsAt:      end,
		Status:      models.StatusScheduled,
		Options:     options,
	})
	if err != nil {
		return 0, err
	}
	c.logger.Info("election created", zap.Int64("election_id", id), zap.Int("options", len(options)))

	c.publish(id, "created")
	if err := c.refreshList(ctx); err != nil {
		return id, &StaleError{Err: err}
	}
	return id, nil
}

// settle runs after a successful mutation: the list refresh first, then the
// cache steps. Every step runs even if an earlier one fails.
func (c *Coordinator) settle(ctx context.Context, electionID int64, action string, steps ...func(context.Context) error) error {
	c.publish(electionID, action)

	var firstErr error
	if err := c.refreshList(ctx); err != nil {
		firstErr = err
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			c.logger.Warn("cache refresh after mutation failed",
				zap.Int64("election_id", electionID),
				zap.String("action", action),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return &StaleError{Err: firstErr}
	}
	return nil
}

func (c *Coordinator) refetch(electionID int64, kind panel.Kind) func(context.Context) error {
	return func(ctx context.Context) error {
		return c.cache.InvalidateAndRefetch(ctx, electionID, kind)
	}
}

func (c *Coordinator) refresh(electionID int64, kind panel.Kind) func(context.Context) error {
	return func(ctx context.Context) error {
		return c.cache.Refresh(ctx, electionID, kind)
	}
}

func (c *Coordinator) refreshList(ctx context.Context) error {
	_, err := c.store.Refresh(ctx)
	return err
}

func (c *Coordinator) publish(electionID int64, action string) {
	if c.notifier != nil {
		c.notifier.Notify(EventElectionMutated, Mutation{ElectionID: electionID, Action: action})
	}
}
