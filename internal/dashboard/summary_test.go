package dashboard

import (
	"testing"
	"time"

	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/internal/tickets"
)

var now = time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)

func record(id string, status booking.Status, created time.Time, slotStart *time.Time) *tickets.Record {
	kind := booking.KindTicket
	if status == booking.StatusCallback {
		kind = booking.KindCallback
	}
	return &tickets.Record{
		ID:          id,
		PracticeID:  practice.Default20Min,
		Kind:        kind,
		Status:      status,
		PatientName: "P " + id,
		SlotStart:   slotStart,
		CreatedAt:   created,
	}
}

func at(h, m int) *time.Time {
	t := time.Date(2025, 1, 6, h, m, 0, 0, time.UTC)
	return &t
}

func TestSummarize(t *testing.T) {
	// Response times: a=60, b=30, c is negative and skipped. f is yesterday.
	recs := []*tickets.Record{
		record("a", booking.StatusBooked, *at(8, 0), at(9, 0)),
		record("b", booking.StatusBooked, *at(10, 0), at(10, 30)),
		record("c", booking.StatusBooked, *at(12, 0), at(11, 0)),
		record("d", booking.StatusCallback, *at(13, 0), nil),
		record("e", booking.StatusClosed, *at(14, 0), nil),
		record("f", booking.StatusBooked, now.AddDate(0, 0, -1), at(9, 0)),
	}

	s := Summarize(recs, now)
	if s.Date != "2025-01-06" {
		t.Fatalf("date = %s", s.Date)
	}
	if s.TicketsToday != 5 {
		t.Fatalf("tickets today = %d, want 5", s.TicketsToday)
	}
	if s.OpenCallbacks != 1 {
		t.Fatalf("open callbacks = %d, want 1", s.OpenCallbacks)
	}
	if s.SuccessRate != 60 {
		t.Fatalf("success rate = %d, want 60", s.SuccessRate)
	}
	if s.AvgResponseTimeMinutes == nil || *s.AvgResponseTimeMinutes != 45 {
		t.Fatalf("avg response = %v, want 45", s.AvgResponseTimeMinutes)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, now)
	if s.TicketsToday != 0 || s.SuccessRate != 0 || s.AvgResponseTimeMinutes != nil {
		t.Fatalf("unexpected summary for no records: %+v", s)
	}
}

func TestSummarizeRoundsRate(t *testing.T) {
	recs := []*tickets.Record{
		record("a", booking.StatusBooked, *at(8, 0), nil),
		record("b", booking.StatusCallback, *at(8, 5), nil),
		record("c", booking.StatusCallback, *at(8, 10), nil),
	}
	s := Summarize(recs, now)
	if s.SuccessRate != 33 {
		t.Fatalf("success rate = %d, want 33", s.SuccessRate)
	}
	if s.AvgResponseTimeMinutes != nil {
		t.Fatalf("expected no average without slot starts")
	}
}

func TestCountByStatus(t *testing.T) {
	recs := []*tickets.Record{
		record("a", booking.StatusBooked, now, nil),
		record("b", booking.StatusBooked, now, nil),
		record("c", booking.StatusCallback, now, nil),
		record("d", booking.StatusOpen, now, nil),
		record("e", booking.StatusClosed, now, nil),
	}
	got := CountByStatus(recs)
	want := StatusCounts{Total: 5, Open: 1, Booked: 2, Callback: 1, Closed: 1}
	if got != want {
		t.Fatalf("counts = %+v, want %+v", got, want)
	}
}

func TestToday(t *testing.T) {
	recs := []*tickets.Record{
		record("a", booking.StatusBooked, *at(0, 0), nil),
		record("b", booking.StatusBooked, *at(23, 59), nil),
		record("c", booking.StatusBooked, now.AddDate(0, 0, 1), nil),
	}
	got := Today(recs, now)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected today records: %+v", got)
	}
}
