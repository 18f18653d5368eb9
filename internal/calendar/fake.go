package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake is an in-memory EventAPI plus credential provider used by tests of
// the availability engine, the booking service and the reconciliation sweep.
type Fake struct {
	mu sync.Mutex

	Connected bool
	events    []Event
	nextID    int

	ListErr   error
	CreateErr error
	DeleteErr error
	WatchErr  error

	Deleted []string
}

// NewFake returns a connected fake with no events.
func NewFake() *Fake {
	return &Fake{Connected: true}
}

func (f *Fake) IsReady(ctx context.Context) bool { return f.Connected }

func (f *Fake) Calendar(ctx context.Context) (EventAPI, error) {
	if !f.Connected {
		return nil, ErrNotConnected
	}
	return f, nil
}

// Seed adds an event directly, bypassing CreateEvent bookkeeping.
func (f *Fake) Seed(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

// Events returns a snapshot of the stored events.
func (f *Fake) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *Fake) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	var out []Event
	for _, ev := range f.events {
		if ev.Overlaps(timeMin, timeMax) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *Fake) CreateEvent(ctx context.Context, draft EventDraft) (*Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.nextID++
	ev := Event{
		ID:      fmt.Sprintf("evt-%d", f.nextID),
		Summary: draft.Summary,
		Start:   draft.Start,
		End:     draft.End,
	}
	f.events = append(f.events, ev)
	return &ev, nil
}

func (f *Fake) Watch(ctx context.Context, address string, ttl time.Duration) (*WatchInfo, error) {
	if f.WatchErr != nil {
		return nil, f.WatchErr
	}
	if !f.Connected {
		return nil, ErrNotConnected
	}
	return &WatchInfo{
		ChannelID:  "chan-fake",
		ResourceID: "res-fake",
		Expiration: time.Now().Add(ttl).UTC(),
	}, nil
}

func (f *Fake) DeleteEvent(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deleted = append(f.Deleted, id)
	for i, ev := range f.events {
		if ev.ID == id {
			f.events = append(f.events[:i], f.events[i+1:]...)
			break
		}
	}
	// Unknown ids are fine: the real API treats re-deletes as gone.
	return nil
}
