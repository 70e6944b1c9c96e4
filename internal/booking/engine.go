package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/internal/slots"
)

// Callback reasons and booking messages.
const (
	ReasonNoSlots        = "no slots available this day"
	ReasonHouseVisit     = "house visit requires callback"
	ReasonNoBookableSlot = "no bookable slot found"
	ReasonVoiceNoSlot    = "no slot available, callback required"
	MessageBooked        = "appointment booked"
	MessageBookedVoice   = "appointment booked (voice)"
)

// ReasonCode maps a callback reason to a bounded label for metrics and
// traces. Free-text reasons, such as a caller transcript, become "requested".
func ReasonCode(reason string) string {
	switch reason {
	case "":
		return ""
	case ReasonNoSlots:
		return "no_slots"
	case ReasonHouseVisit:
		return "house_visit"
	case ReasonNoBookableSlot:
		return "no_bookable_slot"
	case ReasonVoiceNoSlot:
		return "voice_no_slot"
	}
	return "requested"
}

// Catalog yields the slots of one practice day.
type Catalog interface {
	SlotsFor(id practice.ID, date time.Time) []slots.Slot
}

// IDFunc mints ticket identifiers.
type IDFunc func() string

// Clock returns the current instant.
type Clock func() time.Time

// Engine turns a request and the day's catalog into an Outcome. It keeps no
// state between calls.
type Engine struct {
	catalog Catalog
	newID   IDFunc
	now     Clock
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithIDFunc overrides ID generation.
func WithIDFunc(fn IDFunc) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithClock overrides the time source.
func WithClock(fn Clock) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

// NewEngine builds an engine over a catalog, usually a *slots.Dispatcher.
func NewEngine(catalog Catalog, opts ...EngineOption) *Engine {
	if catalog == nil {
		catalog = slots.DefaultDispatcher()
	}
	e := &Engine{
		catalog: catalog,
		newID:   uuid.NewString,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide applies the standard policy, first match wins:
// empty day, any house visit that day, first bookable slot, otherwise callback.
func (e *Engine) Decide(req Request) Outcome {
	catalog := e.catalog.SlotsFor(req.PracticeID, req.RequestedDate)
	if len(catalog) == 0 {
		return e.callback(req.PracticeID, req.PatientName, req.PatientPhone, ReasonNoSlots)
	}

	for _, s := range catalog {
		if s.Category == slots.CategoryHouseVisit {
			return e.callback(req.PracticeID, req.PatientName, req.PatientPhone, ReasonHouseVisit)
		}
	}

	for _, s := range catalog {
		if s.Bookable {
			return e.ticket(req, s, MessageBooked)
		}
	}

	return e.callback(req.PracticeID, req.PatientName, req.PatientPhone, ReasonNoBookableSlot)
}

// DecideVoiceShortcut is the voice policy: the chronologically first slot of
// the day, whatever its category, or a callback when the day is empty.
// It intentionally has no house-visit veto.
func (e *Engine) DecideVoiceShortcut(id practice.ID, patientName, patientPhone string, date time.Time) Outcome {
	catalog := e.catalog.SlotsFor(id, date)
	if len(catalog) == 0 {
		return e.callback(id, patientName, patientPhone, ReasonVoiceNoSlot)
	}
	req := Request{
		PracticeID:    id,
		PatientName:   patientName,
		PatientPhone:  patientPhone,
		RequestedDate: date,
		CreatedAt:     e.now(),
	}
	return e.ticket(req, catalog[0], MessageBookedVoice)
}

func (e *Engine) ticket(req Request, slot slots.Slot, msg string) *Ticket {
	return &Ticket{
		ID:         e.newID(),
		PracticeID: req.PracticeID,
		Request:    req,
		Slot:       slot,
		Status:     StatusBooked,
		Message:    msg,
		CreatedAt:  e.now(),
	}
}

func (e *Engine) callback(id practice.ID, name, phone, reason string) *CallbackTicket {
	return &CallbackTicket{
		ID:           e.newID(),
		PracticeID:   id,
		PatientName:  name,
		PatientPhone: phone,
		Reason:       reason,
		Status:       StatusCallback,
		CreatedAt:    e.now(),
	}
}
