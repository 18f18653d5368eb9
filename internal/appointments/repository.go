package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for appointment storage. The store is the
// single arbiter of slot uniqueness: Create must reject a second confirmed
// row at the same start instant with a ConflictError.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) error
	GetForSubject(ctx context.Context, id, subjectID string) (*Appointment, error)
	FindConfirmedAt(ctx context.Context, startAt time.Time) (*Appointment, error)
	ConfirmedBetween(ctx context.Context, from, to time.Time) ([]Appointment, error)
	ConfirmedFrom(ctx context.Context, from time.Time) ([]Appointment, error)
	Cancel(ctx context.Context, id string) error
	CompleteExpired(ctx context.Context, now time.Time) (int, error)
	ListBySubject(ctx context.Context, subjectID string) ([]Appointment, error)
}

// InMemoryRepository is an in-memory Repository used in tests. It enforces
// the same confirmed-start uniqueness as the database index.
type InMemoryRepository struct {
	mu    sync.RWMutex
	rows  map[string]*Appointment
	// CreateErr, when set, fails the next Create. Simulates store failure
	// for rollback tests.
	CreateErr error
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[string]*Appointment)}
}

func (r *InMemoryRepository) Create(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CreateErr != nil {
		err := r.CreateErr
		r.CreateErr = nil
		return err
	}

	for _, row := range r.rows {
		if row.Status == StatusConfirmed && row.StartAt.Equal(appt.StartAt) {
			return &ConflictError{Source: "local", StartAt: appt.StartAt, ExistingID: row.ID}
		}
	}

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	cp := *appt
	r.rows[appt.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetForSubject(ctx context.Context, id, subjectID string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok || row.SubjectID != subjectID {
		return nil, ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *InMemoryRepository) FindConfirmedAt(ctx context.Context, startAt time.Time) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if row.Status == StatusConfirmed && row.StartAt.Equal(startAt) {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *InMemoryRepository) ConfirmedBetween(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Appointment
	for _, row := range r.rows {
		if row.Status == StatusConfirmed && !row.StartAt.Before(from) && !row.StartAt.After(to) {
			out = append(out, *row)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *InMemoryRepository) ConfirmedFrom(ctx context.Context, from time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Appointment
	for _, row := range r.rows {
		if row.Status == StatusConfirmed && !row.StartAt.Before(from) {
			out = append(out, *row)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *InMemoryRepository) Cancel(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	row.Status = StatusCancelled
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) CompleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.Status == StatusConfirmed && !row.EndAt.After(now) {
			row.Status = StatusCompleted
			row.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) ListBySubject(ctx context.Context, subjectID string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Appointment
	for _, row := range r.rows {
		if row.SubjectID == subjectID {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.After(out[j].StartAt) })
	return out, nil
}

func sortByStart(rows []Appointment) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].StartAt.Before(rows[j].StartAt) })
}
