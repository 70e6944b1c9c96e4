package booking

import (
	"time"

	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/internal/slots"
)

// Outcome is the result of a booking decision: either *Ticket or
// *CallbackTicket. The set is closed.
type Outcome interface {
	Kind() string
	isOutcome()
}

const (
	KindTicket   = "ticket"
	KindCallback = "callback"
)

// Ticket is a confirmed booking bound to one bookable slot.
type Ticket struct {
	ID         string      `json:"ticket_id"`
	PracticeID practice.ID `json:"practice_id"`
	Request    Request     `json:"booking_request"`
	Slot       slots.Slot  `json:"slot"`
	Status     Status      `json:"status"`
	Message    string      `json:"message"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CallbackTicket asks the practice to call the patient back.
type CallbackTicket struct {
	ID           string      `json:"ticket_id"`
	PracticeID   practice.ID `json:"practice_id"`
	PatientName  string      `json:"patient_name"`
	PatientPhone string      `json:"patient_phone,omitempty"`
	Reason       string      `json:"reason"`
	Status       Status      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}

func (*Ticket) Kind() string         { return KindTicket }
func (*CallbackTicket) Kind() string { return KindCallback }

func (*Ticket) isOutcome()         {}
func (*CallbackTicket) isOutcome() {}

// Match dispatches on the outcome variant.
func Match[T any](o Outcome, onTicket func(*Ticket) T, onCallback func(*CallbackTicket) T) T {
	switch v := o.(type) {
	case *Ticket:
		return onTicket(v)
	case *CallbackTicket:
		return onCallback(v)
	}
	panic("booking: unknown outcome type")
}
