package booking

import (
	"encoding/json"
	"time"

	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/internal/slots"
)

// Status is the lifecycle state of a ticket.
type Status string

const (
	StatusOpen     Status = "open"
	StatusBooked   Status = "booked"
	StatusCallback Status = "callback"
	StatusClosed   Status = "closed"
)

// ParseStatus validates a status string.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusOpen, StatusBooked, StatusCallback, StatusClosed:
		return s, true
	}
	return "", false
}

// Request is a booking request as received from any intake channel.
// RequestedTime is kept for the record; slot selection does not use it.
type Request struct {
	PracticeID    practice.ID `json:"practice_id"`
	PatientName   string      `json:"patient_name"`
	PatientPhone  string      `json:"patient_phone,omitempty"`
	PatientEmail  string      `json:"patient_email,omitempty"`
	RequestedDate time.Time   `json:"requested_date"`
	RequestedTime string      `json:"requested_time,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// MarshalJSON renders RequestedDate as a calendar day.
func (r Request) MarshalJSON() ([]byte, error) {
	type alias Request
	return json.Marshal(struct {
		alias
		RequestedDate string `json:"requested_date"`
	}{alias: alias(r), RequestedDate: r.RequestedDate.Format(slots.DateLayout)})
}

func (r *Request) UnmarshalJSON(data []byte) error {
	type alias Request
	aux := struct {
		*alias
		RequestedDate string `json:"requested_date"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.RequestedDate == "" {
		r.RequestedDate = time.Time{}
		return nil
	}
	date, err := slots.ParseDate(aux.RequestedDate)
	if err != nil {
		return err
	}
	r.RequestedDate = date
	return nil
}

// VoiceRequest is the reduced request produced by the voice channel.
type VoiceRequest struct {
	PracticeID   practice.ID
	PatientName  string
	PatientPhone string
	Date         time.Time
}
