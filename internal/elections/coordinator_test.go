package elections

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/votedesk/console/internal/gateway"
	"github.com/votedesk/console/internal/models"
	"github.com/votedesk/console/internal/panel"
)

type fakeGateway struct {
	mu        sync.Mutex
	list      []models.Election
	listErr   error
	listCalls int
	updates   []models.UpdateElectionRequest
	updateErr error
	creates   []models.CreateElectionRequest
	createErr error
	options   []string
	optionErr error
}

func (g *fakeGateway) ListElections(context.Context) ([]models.Election, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := make([]models.Election, len(g.list))
	copy(out, g.list)
	return out, nil
}

func (g *fakeGateway) CreateElection(_ context.Context, body models.CreateElectionRequest) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return 0, g.createErr
	}
	g.creates = append(g.creates, body)
	return 42, nil
}

func (g *fakeGateway) UpdateElection(_ context.Context, id int64, body models.UpdateElectionRequest) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.updateErr != nil {
		return 0, g.updateErr
	}
	g.updates = append(g.updates, body)
	for i := range g.list {
		if g.list[i].ID == id {
			g.list[i].Title = body.Title
			g.list[i].Description = body.Description
			g.list[i].StartsAt = body.StartsAt
			g.list[i].EndsAt = body.EndsAt
			g.list[i].Status = body.Status
		}
	}
	return 1, nil
}

func (g *fakeGateway) CreateOption(_ context.Context, _ int64, label string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.optionErr != nil {
		return 0, g.optionErr
	}
	g.options = append(g.options, label)
	return 1, nil
}

func (g *fakeGateway) networkCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.listCalls + len(g.updates) + len(g.creates) + len(g.options)
}

type cacheCall struct {
	op   string
	id   int64
	kind panel.Kind
}

type fakeCache struct {
	mu    sync.Mutex
	calls []cacheCall
	err   error
}

func (c *fakeCache) InvalidateAndRefetch(_ context.Context, id int64, kind panel.Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, cacheCall{"refetch", id, kind})
	return c.err
}

func (c *fakeCache) Refresh(_ context.Context, id int64, kind panel.Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, cacheCall{"refresh", id, kind})
	return c.err
}

func seedElection() models.Election {
	return models.Election{
		ID:          1,
		Title:       "Student council",
		Description: "Spring vote",
		StartsAt:    "2025-04-01 09:00:00",
		EndsAt:      "2025-04-01 18:00:00",
		Status:      models.StatusScheduled,
	}
}

func setup(t *testing.T) (*Coordinator, *fakeGateway, *fakeCache, *Store) {
	t.Helper()
	gw := &fakeGateway{list: []models.Election{seedElection()}}
	cache := &fakeCache{}
	store := NewStore(gw, nil, nil)
	_, err := store.Refresh(context.Background())
	require.NoError(t, err)
	return NewCoordinator(gw, store, cache, nil, nil), gw, cache, store
}

func TestUpdateStatusUsesLatestSnapshot(t *testing.T) {
	coord, gw, cache, store := setup(t)
	ctx := context.Background()

	// Someone renamed the election since the panel first loaded.
	gw.mu.Lock()
	gw.list[0].Title = "Student council 2025"
	gw.list[0].Description = "Spring vote, round two"
	gw.mu.Unlock()
	_, err := store.Refresh(ctx)
	require.NoError(t, err)

	require.NoError(t, coord.UpdateStatus(ctx, 1, models.StatusActive))

	require.Len(t, gw.updates, 1)
	got := gw.updates[0]
	assert.Equal(t, "Student council 2025", got.Title)
	assert.Equal(t, "Spring vote, round two", got.Description)
	assert.Equal(t, "2025-04-01 09:00:00", got.StartsAt)
	assert.Equal(t, "2025-04-01 18:00:00", got.EndsAt)
	assert.Equal(t, models.StatusActive, got.Status)

	e, ok := store.Find(1)
	require.True(t, ok)
	assert.Equal(t, models.StatusActive, e.Status, "list is refreshed after the mutation")
	assert.Equal(t, []cacheCall{{"refresh", 1, panel.KindResults}}, cache.calls)
}

func TestUpdateStatusValidation(t *testing.T) {
	coord, gw, _, _ := setup(t)
	before := gw.networkCalls()

	var vErr *ValidationError
	require.ErrorAs(t, coord.UpdateStatus(context.Background(), 1, "  "), &vErr)
	require.ErrorAs(t, coord.UpdateStatus(context.Background(), 1, "paused"), &vErr)
	require.ErrorIs(t, coord.UpdateStatus(context.Background(), 99, models.StatusClosed), ErrElectionNotFound)

	assert.Equal(t, before, gw.networkCalls())
}

func TestUpdateDatesNormalizesAndKeepsOtherFields(t *testing.T) {
	coord, gw, cache, _ := setup(t)

	require.NoError(t, coord.UpdateDates(context.Background(), 1, "2025-05-01T09:30", "2025-05-02T17:00"))

	require.Len(t, gw.updates, 1)
	got := gw.updates[0]
	assert.Equal(t, "2025-05-01 09:30:00", got.StartsAt)
	assert.Equal(t, "2025-05-02 17:00:00", got.EndsAt)
	assert.Equal(t, "Student council", got.Title)
	assert.Equal(t, "Spring vote", got.Description)
	assert.Equal(t, models.StatusScheduled, got.Status)
	assert.Empty(t, cache.calls)
}

func TestUpdateDatesRequiresBoth(t *testing.T) {
	coord, gw, _, _ := setup(t)
	before := gw.networkCalls()

	tests := []struct {
		name  string
		start string
		end   string
	}{
		{"missing end", "2025-05-01T09:30", ""},
		{"missing start", "", "2025-05-01T09:30"},
		{"garbage", "tomorrow", "2025-05-01T09:30"},
		{"end before start", "2025-05-02T09:30", "2025-05-01T09:30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vErr *ValidationError
			require.ErrorAs(t, coord.UpdateDates(context.Background(), 1, tt.start, tt.end), &vErr)
		})
	}
	assert.Equal(t, before, gw.networkCalls())
}

func TestAddOption(t *testing.T) {
	coord, gw, cache, _ := setup(t)
	before := gw.networkCalls()

	var vErr *ValidationError
	require.ErrorAs(t, coord.AddOption(context.Background(), 1, " \t "), &vErr)
	assert.Equal(t, before, gw.networkCalls())

	require.NoError(t, coord.AddOption(context.Background(), 1, "  Abstain "))
	assert.Equal(t, []string{"Abstain"}, gw.options)
	assert.Equal(t, []cacheCall{
		{"refetch", 1, panel.KindOptions},
		{"refresh", 1, panel.KindResults},
	}, cache.calls)
	assert.Equal(t, 2, gw.listCalls)
}

func TestCreateElectionRejectsBlankOptionsLocally(t *testing.T) {
	coord, gw, _, _ := setup(t)
	before := gw.networkCalls()

	_, err := coord.CreateElection(context.Background(), CreateForm{
		Title:    "Prom king",
		StartsAt: "2025-06-01T10:00",
		EndsAt:   "2025-06-01T12:00",
		Options:  []string{"", "   ", "\t"},
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "options", vErr.Field)
	assert.Equal(t, before, gw.networkCalls())

	_, err = coord.CreateElection(context.Background(), CreateForm{Title: " ", StartsAt: "x", EndsAt: "y", Options: []string{"a"}})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "title", vErr.Field)
}

func TestCreateElectionSubmitsScheduled(t *testing.T) {
	coord, gw, _, _ := setup(t)

	id, err := coord.CreateElection(context.Background(), CreateForm{
		Title:       "Prom king",
		Description: "Senior class",
		StartsAt:    "2025-06-01T10:00",
		EndsAt:      "2025-06-01T12:00",
		Options:     []string{" Alex ", "", "Sam"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	require.Len(t, gw.creates, 1)
	got := gw.creates[0]
	assert.Equal(t, models.StatusScheduled, got.Status)
	assert.Equal(t, []string{"Alex", "Sam"}, got.Options)
	assert.Equal(t, "2025-06-01 10:00:00", got.StartsAt)
	assert.Equal(t, "2025-06-01 12:00:00", got.EndsAt)
	assert.Equal(t, 2, gw.listCalls)
}

func TestFailedMutationLeavesStateUntouched(t *testing.T) {
	coord, gw, cache, store := setup(t)
	before, _ := store.Snapshot()
	listCalls := gw.listCalls

	gw.updateErr = &gateway.APIError{Status: 400, Message: "election is locked"}
	err := coord.UpdateStatus(context.Background(), 1, models.StatusClosed)
	require.EqualError(t, err, "election is locked")

	after, _ := store.Snapshot()
	assert.Equal(t, before, after)
	assert.Equal(t, listCalls, gw.listCalls)
	assert.Empty(t, cache.calls)

	gw.optionErr = errors.New("HTTP 500")
	require.Error(t, coord.AddOption(context.Background(), 1, "Yes"))
	assert.Empty(t, cache.calls)
}

func TestRefreshFailureAfterMutationIsStale(t *testing.T) {
	coord, gw, _, store := setup(t)
	before, _ := store.Snapshot()

	gw.listErr = errors.New("HTTP 503")
	err := coord.UpdateDates(context.Background(), 1, "2025-05-01T09:30", "2025-05-01T10:30")

	var stale *StaleError
	require.ErrorAs(t, err, &stale)
	require.Len(t, gw.updates, 1, "the mutation itself went through")
	after, _ := store.Snapshot()
	assert.Equal(t, before, after, "a failed refresh keeps the previous list")
}

func TestNormalizeDateTime(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2025-01-02T03:04", want: "2025-01-02 03:04:00"},
		{in: "2025-01-02T03:04:05", want: "2025-01-02 03:04:05"},
		{in: "2025-01-02 03:04", want: "2025-01-02 03:04:00"},
		{in: " 2025-01-02 03:04:05 ", want: "2025-01-02 03:04:05"},
		{in: "", wantErr: true},
		{in: "2025-13-02T03:04", wantErr: true},
		{in: "02/01/2025 03:04", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeDateTime(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
