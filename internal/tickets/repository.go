package tickets

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/internal/practice"
)

// Repository defines ticket storage. Every call is scoped to one practice.
type Repository interface {
	Create(ctx context.Context, rec *Record) (*Record, error)
	Get(ctx context.Context, practiceID practice.ID, id string) (*Record, error)
	List(ctx context.Context, practiceID practice.ID, filter Filter) ([]*Record, error)
	UpdateStatus(ctx context.Context, practiceID practice.ID, id string, status booking.Status) (*Record, error)
	Delete(ctx context.Context, practiceID practice.ID, id string) error
}

// InMemoryRepository keeps tickets in process memory.
type InMemoryRepository struct {
	mu      sync.RWMutex
	tickets map[string]*Record
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{tickets: make(map[string]*Record)}
}

func (r *InMemoryRepository) Create(_ context.Context, rec *Record) (*Record, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	stored := *rec
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	r.tickets[stored.ID] = &stored
	r.mu.Unlock()

	out := stored
	return &out, nil
}

func (r *InMemoryRepository) Get(_ context.Context, practiceID practice.ID, id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.tickets[id]
	if !ok || rec.PracticeID != practiceID {
		return nil, ErrTicketNotFound
	}
	out := *rec
	return &out, nil
}

// List returns matching records, newest first.
func (r *InMemoryRepository) List(_ context.Context, practiceID practice.ID, filter Filter) ([]*Record, error) {
	r.mu.RLock()
	out := make([]*Record, 0, len(r.tickets))
	for _, rec := range r.tickets {
		if rec.PracticeID != practiceID || !filter.match(rec) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(_ context.Context, practiceID practice.ID, id string, status booking.Status) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.tickets[id]
	if !ok || rec.PracticeID != practiceID {
		return nil, ErrTicketNotFound
	}
	if err := CheckTransition(rec.Status, status); err != nil {
		return nil, err
	}
	data, err := withDataStatus(rec.Data, status)
	if err != nil {
		return nil, err
	}
	rec.Status = status
	rec.Data = data
	out := *rec
	return &out, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, practiceID practice.ID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.tickets[id]
	if !ok || rec.PracticeID != practiceID {
		return ErrTicketNotFound
	}
	delete(r.tickets, id)
	return nil
}
