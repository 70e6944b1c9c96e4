package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/internal/slots"
)

func sampleTicket(id string, created time.Time) *booking.Ticket {
	start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	return &booking.Ticket{
		ID:         id,
		PracticeID: practice.Default20Min,
		Request: booking.Request{
			PracticeID:    practice.Default20Min,
			PatientName:   "Anna",
			PatientPhone:  "+4925021234",
			PatientEmail:  "anna@example.com",
			RequestedDate: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		},
		Slot:      slots.NewSlot(start, 20*time.Minute, slots.CategoryTreatment),
		Status:    booking.StatusBooked,
		Message:   booking.MessageBooked,
		CreatedAt: created,
	}
}

func sampleCallback(id string, p practice.ID, created time.Time) *booking.CallbackTicket {
	return &booking.CallbackTicket{
		ID:          id,
		PracticeID:  p,
		PatientName: "Ben",
		Reason:      booking.ReasonHouseVisit,
		Status:      booking.StatusCallback,
		CreatedAt:   created,
	}
}

func TestFromTicket(t *testing.T) {
	created := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
	rec, err := FromTicket(sampleTicket("t-1", created))
	if err != nil {
		t.Fatalf("FromTicket: %v", err)
	}
	if rec.Kind != booking.KindTicket || rec.Status != booking.StatusBooked {
		t.Fatalf("unexpected kind/status %s/%s", rec.Kind, rec.Status)
	}
	if rec.SlotStart == nil || rec.SlotStart.Format("15:04") != "08:00" || rec.SlotEnd.Format("15:04") != "08:20" {
		t.Fatalf("unexpected slot %v-%v", rec.SlotStart, rec.SlotEnd)
	}
	if rec.PatientEmail != "anna@example.com" {
		t.Fatalf("email not carried")
	}
	var data map[string]any
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		t.Fatalf("data not JSON: %v", err)
	}
	if data["ticket_id"] != "t-1" {
		t.Fatalf("data missing ticket id: %s", rec.Data)
	}
}

func TestCheckTransition(t *testing.T) {
	allowed := [][2]booking.Status{
		{booking.StatusOpen, booking.StatusBooked},
		{booking.StatusOpen, booking.StatusCallback},
		{booking.StatusOpen, booking.StatusClosed},
		{booking.StatusBooked, booking.StatusClosed},
		{booking.StatusBooked, booking.StatusCallback},
		{booking.StatusCallback, booking.StatusBooked},
		{booking.StatusCallback, booking.StatusClosed},
		{booking.StatusClosed, booking.StatusClosed},
	}
	for _, tr := range allowed {
		if err := CheckTransition(tr[0], tr[1]); err != nil {
			t.Fatalf("%s -> %s should be allowed: %v", tr[0], tr[1], err)
		}
	}
	denied := [][2]booking.Status{
		{booking.StatusClosed, booking.StatusOpen},
		{booking.StatusClosed, booking.StatusBooked},
		{booking.StatusBooked, booking.StatusOpen},
		{booking.StatusCallback, booking.StatusOpen},
	}
	for _, tr := range denied {
		if err := CheckTransition(tr[0], tr[1]); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> %s should be rejected, got %v", tr[0], tr[1], err)
		}
	}
}

func TestInMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	sink := NewSink(repo)
	base := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

	if err := sink.SaveTicket(ctx, sampleTicket("t-1", base)); err != nil {
		t.Fatalf("save ticket: %v", err)
	}
	if err := sink.SaveCallback(ctx, sampleCallback("c-1", practice.Default20Min, base.Add(time.Minute))); err != nil {
		t.Fatalf("save callback: %v", err)
	}
	if err := sink.SaveCallback(ctx, sampleCallback("c-2", practice.KrebsNottuln, base)); err != nil {
		t.Fatalf("save callback: %v", err)
	}

	all, err := repo.List(ctx, practice.Default20Min, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != "c-1" || all[1].ID != "t-1" {
		t.Fatalf("expected newest first for one practice, got %+v", all)
	}

	callbacks, _ := repo.List(ctx, practice.Default20Min, Filter{Status: booking.StatusCallback})
	if len(callbacks) != 1 || callbacks[0].ID != "c-1" {
		t.Fatalf("status filter failed: %+v", callbacks)
	}
	limited, _ := repo.List(ctx, practice.Default20Min, Filter{Limit: 1})
	if len(limited) != 1 {
		t.Fatalf("limit failed: %d", len(limited))
	}

	// Tenant isolation.
	if _, err := repo.Get(ctx, practice.KrebsNottuln, "t-1"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected not found across practices, got %v", err)
	}
	if err := repo.Delete(ctx, practice.KrebsNottuln, "t-1"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected delete across practices to fail, got %v", err)
	}

	rec, err := repo.UpdateStatus(ctx, practice.Default20Min, "c-1", booking.StatusBooked)
	if err != nil || rec.Status != booking.StatusBooked {
		t.Fatalf("update: %v %+v", err, rec)
	}
	if _, err := repo.UpdateStatus(ctx, practice.Default20Min, "c-1", booking.StatusOpen); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	// Returned records are copies.
	got, _ := repo.Get(ctx, practice.Default20Min, "t-1")
	got.Status = booking.StatusClosed
	again, _ := repo.Get(ctx, practice.Default20Min, "t-1")
	if again.Status != booking.StatusBooked {
		t.Fatalf("repository state leaked through returned pointer")
	}

	if err := repo.Delete(ctx, practice.Default20Min, "t-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, practice.Default20Min, "t-1"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestInMemoryRepositoryUpdateStatusRewritesData(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	if err := NewSink(repo).SaveCallback(ctx, sampleCallback("c-1", practice.Default20Min, time.Now())); err != nil {
		t.Fatalf("save callback: %v", err)
	}

	if _, err := repo.UpdateStatus(ctx, practice.Default20Min, "c-1", booking.StatusClosed); err != nil {
		t.Fatalf("update: %v", err)
	}
	rec, err := repo.Get(ctx, practice.Default20Min, "c-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var data map[string]any
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		t.Fatalf("data not JSON: %v", err)
	}
	if data["status"] != string(booking.StatusClosed) {
		t.Fatalf("data status = %v, want closed", data["status"])
	}
	if data["ticket_id"] != "c-1" {
		t.Fatalf("other data fields lost: %s", rec.Data)
	}
}

func TestWithDataStatus(t *testing.T) {
	out, err := withDataStatus(json.RawMessage(`{"status":"callback","reason":"house visit"}`), booking.StatusBooked)
	if err != nil {
		t.Fatalf("withDataStatus: %v", err)
	}
	if string(out) != `{"reason":"house visit","status":"booked"}` {
		t.Fatalf("unexpected data %s", out)
	}
	if out, err := withDataStatus(nil, booking.StatusBooked); err != nil || out != nil {
		t.Fatalf("empty data should pass through, got %s %v", out, err)
	}
	if _, err := withDataStatus(json.RawMessage(`[1,2]`), booking.StatusBooked); err == nil {
		t.Fatalf("expected error for non-object data")
	}
}

func TestInMemoryRepositoryValidates(t *testing.T) {
	repo := NewInMemoryRepository()
	_, err := repo.Create(context.Background(), &Record{PracticeID: practice.Default20Min, Kind: "ticket", Status: booking.StatusOpen})
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	rec, err := repo.Create(context.Background(), &Record{PracticeID: practice.Default20Min, Kind: "callback", Status: booking.StatusOpen, PatientName: "C"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", rec)
	}
}
