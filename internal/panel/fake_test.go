package panel

import (
	"context"
	"sync"

	"github.com/votedesk/console/internal/models"
)

type fetchCall struct {
	kind Kind
	id   int64
}

// fakeFetcher counts fetches per (kind, election). When gate is set, every
// fetch announces itself on started and blocks until gate is closed.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[fetchCall]int
	version map[fetchCall]int
	fail    map[Kind]error
	gate    chan struct{}
	started chan fetchCall
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls:   make(map[fetchCall]int),
		version: make(map[fetchCall]int),
		fail:    make(map[Kind]error),
		started: make(chan fetchCall, 64),
	}
}

func (f *fakeFetcher) hold() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeFetcher) setFail(kind Kind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, kind)
		return
	}
	f.fail[kind] = err
}

func (f *fakeFetcher) count(kind Kind, id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[fetchCall{kind, id}]
}

func (f *fakeFetcher) enter(kind Kind, id int64) (int, error) {
	key := fetchCall{kind, id}
	f.mu.Lock()
	f.calls[key]++
	f.version[key]++
	v := f.version[key]
	gate := f.gate
	err := f.fail[kind]
	f.mu.Unlock()

	f.started <- key
	if gate != nil {
		<-gate
	}
	return v, err
}

func (f *fakeFetcher) Results(_ context.Context, id int64) (models.Results, error) {
	v, err := f.enter(KindResults, id)
	if err != nil {
		return models.Results{}, err
	}
	return models.Results{
		ElectionID: id,
		TotalVotes: int64(v),
		Results:    []models.VoteResultRow{{OptionID: 1, Label: "A", Votes: int64(v), Percent: 100}},
	}, nil
}

func (f *fakeFetcher) Options(_ context.Context, id int64) (models.Options, error) {
	v, err := f.enter(KindOptions, id)
	if err != nil {
		return models.Options{}, err
	}
	opts := make([]models.ElectionOption, v)
	for i := range opts {
		opts[i] = models.ElectionOption{ID: int64(i + 1), Label: "opt"}
	}
	return models.Options{ElectionID: id, Options: opts}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Transition
}

func (n *recordingNotifier) Notify(event string, payload interface{}) {
	if t, ok := payload.(Transition); ok && event == EventPanelState {
		n.mu.Lock()
		n.events = append(n.events, t)
		n.mu.Unlock()
	}
}

func (n *recordingNotifier) states() []State {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]State, len(n.events))
	for i, e := range n.events {
		out[i] = e.State
	}
	return out
}
