package tickets

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/internal/practice"
)

var (
	// ErrTicketNotFound is returned when no ticket matches id and practice.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrInvalidTransition is returned for status changes the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidRecord is returned when a record misses required fields.
	ErrInvalidRecord = errors.New("invalid ticket record")
)

// Record is the stored form of a ticket or callback ticket.
type Record struct {
	ID           string          `json:"id"`
	PracticeID   practice.ID     `json:"practice_id"`
	Kind         string          `json:"kind"`
	Status       booking.Status  `json:"status"`
	PatientName  string          `json:"patient_name"`
	PatientPhone string          `json:"patient_phone,omitempty"`
	PatientEmail string          `json:"patient_email,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Message      string          `json:"message,omitempty"`
	SlotStart    *time.Time      `json:"slot_start,omitempty"`
	SlotEnd      *time.Time      `json:"slot_end,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Validate checks the fields every record needs.
func (r *Record) Validate() error {
	switch {
	case r.PracticeID == "":
		return fmt.Errorf("%w: practice_id is required", ErrInvalidRecord)
	case r.PatientName == "":
		return fmt.Errorf("%w: patient_name is required", ErrInvalidRecord)
	case r.Kind != booking.KindTicket && r.Kind != booking.KindCallback:
		return fmt.Errorf("%w: kind must be ticket or callback", ErrInvalidRecord)
	}
	if _, ok := booking.ParseStatus(string(r.Status)); !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	}
	return nil
}

// Filter narrows List results.
type Filter struct {
	Status booking.Status
	Kind   string
	Since  *time.Time
	Limit  int
}

func (f Filter) match(r *Record) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// FromTicket converts a booked ticket into a record.
func FromTicket(t *booking.Ticket) (*Record, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("tickets: marshal ticket: %w", err)
	}
	start, end := t.Slot.Start, t.Slot.End
	return &Record{
		ID:           t.ID,
		PracticeID:   t.PracticeID,
		Kind:         booking.KindTicket,
		Status:       t.Status,
		PatientName:  t.Request.PatientName,
		PatientPhone: t.Request.PatientPhone,
		PatientEmail: t.Request.PatientEmail,
		Message:      t.Message,
		SlotStart:    &start,
		SlotEnd:      &end,
		Data:         data,
		CreatedAt:    t.CreatedAt,
	}, nil
}

// FromCallback converts a callback ticket into a record.
func FromCallback(c *booking.CallbackTicket) (*Record, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("tickets: marshal callback: %w", err)
	}
	return &Record{
		ID:           c.ID,
		PracticeID:   c.PracticeID,
		Kind:         booking.KindCallback,
		Status:       c.Status,
		PatientName:  c.PatientName,
		PatientPhone: c.PatientPhone,
		Reason:       c.Reason,
		Data:         data,
		CreatedAt:    c.CreatedAt,
	}, nil
}

// withDataStatus rewrites the status field of a stored outcome snapshot so
// the payload agrees with the record after a status change.
func withDataStatus(data json.RawMessage, status booking.Status) (json.RawMessage, error) {
	if len(data) == 0 {
		return data, nil
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("tickets: decode data: %w", err)
	}
	if fields == nil {
		return data, nil
	}
	encoded, err := json.Marshal(status)
	if err != nil {
		return nil, err
	}
	fields["status"] = encoded
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("tickets: encode data: %w", err)
	}
	return out, nil
}

// transitions lists the allowed next states; closed is terminal.
var transitions = map[booking.Status][]booking.Status{
	booking.StatusOpen:     {booking.StatusBooked, booking.StatusCallback, booking.StatusClosed},
	booking.StatusBooked:   {booking.StatusClosed, booking.StatusCallback},
	booking.StatusCallback: {booking.StatusBooked, booking.StatusClosed},
}

// CheckTransition returns ErrInvalidTransition unless from may move to to.
// Setting the current status again is a no-op and allowed.
func CheckTransition(from, to booking.Status) error {
	if from == to {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
