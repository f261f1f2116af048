package console

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/votedesk/console/internal/models"
	"github.com/votedesk/console/pkg/queue"
)

type fakeAPI struct {
	mu        sync.Mutex
	elections []models.Election
	listErr   error
	updateErr error
	statsErr  error
	calls     map[string]int
	nextKey   int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		elections: []models.Election{
			{ID: 1, Title: "Council", StartsAt: "2025-04-01 09:00:00", EndsAt: "2025-04-01 18:00:00", Status: models.StatusScheduled},
			{ID: 2, Title: "Treasurer", StartsAt: "2025-04-02 09:00:00", EndsAt: "2025-04-02 18:00:00", Status: models.StatusActive, IsOpen: true},
		},
		calls: map[string]int{},
	}
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) hit(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeAPI) ListElections(context.Context) ([]models.Election, error) {
	f.hit("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Election(nil), f.elections...), nil
}

func (f *fakeAPI) CreateElection(context.Context, models.CreateElectionRequest) (int64, error) {
	f.hit("create_election")
	return 3, nil
}

func (f *fakeAPI) UpdateElection(_ context.Context, id int64, body models.UpdateElectionRequest) (int64, error) {
	f.hit("update")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	for i := range f.elections {
		if f.elections[i].ID == id {
			f.elections[i].Status = body.Status
			f.elections[i].StartsAt = body.StartsAt
			f.elections[i].EndsAt = body.EndsAt
		}
	}
	return 1, nil
}

func (f *fakeAPI) CreateOption(context.Context, int64, string) (int64, error) {
	f.hit("create_option")
	return 1, nil
}

func (f *fakeAPI) Results(_ context.Context, id int64) (models.Results, error) {
	f.hit("results")
	return models.Results{
		ElectionID: id,
		Results:    []models.VoteResultRow{{OptionID: 1, Label: "Yes", Votes: 3, Percent: 75}, {OptionID: 2, Label: "No", Votes: 1, Percent: 25}},
		TotalVotes: 4,
	}, nil
}

func (f *fakeAPI) Options(_ context.Context, id int64) (models.Options, error) {
	f.hit("options")
	return models.Options{ElectionID: id, Options: []models.ElectionOption{{ID: 1, Label: "Yes"}, {ID: 2, Label: "No"}}}, nil
}

func (f *fakeAPI) Stats(context.Context) (models.Stats, error) {
	f.hit("stats")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statsErr != nil {
		return models.Stats{}, f.statsErr
	}
	return models.Stats{TotalTickets: int64(f.nextKey), Voters: 1, Votes: 4}, nil
}

func (f *fakeAPI) CreateTickets(_ context.Context, count int) (models.TicketBatch, error) {
	f.hit("create_tickets")
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, count)
	for i := range keys {
		f.nextKey++
		keys[i] = fmt.Sprintf("KEY-%04d", f.nextKey)
	}
	return models.TicketBatch{Count: count, TicketKeys: keys}, nil
}

func (f *fakeAPI) TicketInventory(context.Context) (models.TicketInventory, error) {
	f.hit("inventory")
	return models.TicketInventory{Total: 10, Redeemed: 4, Available: 6}, nil
}

type memJobs struct {
	mu       sync.Mutex
	payloads []queue.TicketSheetArchivePayload
}

func (m *memJobs) EnqueueTicketSheetArchive(_ context.Context, p queue.TicketSheetArchivePayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, p)
	return p.JobID, nil
}

type memStatuses struct {
	mu sync.Mutex
	m  map[string]queue.Status
}

func (s *memStatuses) Set(_ context.Context, st queue.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[st.JobID] = st
	return nil
}

func (s *memStatuses) Get(_ context.Context, id string) (queue.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[id]
	if !ok {
		return queue.Status{}, queue.ErrStatusNotFound
	}
	return st, nil
}

type fakePresigner struct{}

func (fakePresigner) PresignTicketSheet(_ context.Context, key string) (string, error) {
	return "https://s3.example.org/" + key + "?sig=1", nil
}

type recordedEvent struct {
	session uuid.UUID
	event   string
}

type eventSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *eventSink) factory(id uuid.UUID) Notifier {
	return sinkNotifier{sink: e, id: id}
}

func (e *eventSink) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.event
	}
	return out
}

type sinkNotifier struct {
	sink *eventSink
	id   uuid.UUID
}

func (n sinkNotifier) Notify(event string, _ interface{}) {
	n.sink.mu.Lock()
	defer n.sink.mu.Unlock()
	n.sink.events = append(n.sink.events, recordedEvent{n.id, event})
}
