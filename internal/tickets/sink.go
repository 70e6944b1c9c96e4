package tickets

import (
	"context"

	"github.com/wolfman30/practice-booking/internal/booking"
)

// Sink stores booking outcomes in a Repository.
type Sink struct {
	repo Repository
}

// NewSink adapts repo to booking.TicketSink.
func NewSink(repo Repository) *Sink {
	if repo == nil {
		panic("tickets: repository required")
	}
	return &Sink{repo: repo}
}

func (s *Sink) SaveTicket(ctx context.Context, t *booking.Ticket) error {
	rec, err := FromTicket(t)
	if err != nil {
		return err
	}
	_, err = s.repo.Create(ctx, rec)
	return err
}

func (s *Sink) SaveCallback(ctx context.Context, c *booking.CallbackTicket) error {
	rec, err := FromCallback(c)
	if err != nil {
		return err
	}
	_, err = s.repo.Create(ctx, rec)
	return err
}

var _ booking.TicketSink = (*Sink)(nil)
