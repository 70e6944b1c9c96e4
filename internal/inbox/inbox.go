// Package inbox turns a practice's tickets into the front-desk work list.
package inbox

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/internal/tenancy"
	"github.com/wolfman30/practice-booking/internal/tickets"
	"github.com/wolfman30/practice-booking/pkg/logging"
)

const (
	KindBooking  = "booking"
	KindCallback = "callback"

	PriorityUrgent = "urgent"
	PriorityNormal = "normal"

	StatusOpen = "open"
	StatusDone = "done"
)

// Item is one inbox row.
type Item struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	Label     string    `json:"label"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"created_at"`
}

// Build maps records to inbox items, newest first. It always returns a
// non-nil slice.
func Build(records []*tickets.Record) []Item {
	items := make([]Item, 0, len(records))
	for _, r := range records {
		items = append(items, itemFor(r))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items
}

func itemFor(r *tickets.Record) Item {
	it := Item{
		ID:        r.ID,
		Kind:      KindBooking,
		Priority:  PriorityNormal,
		Status:    StatusOpen,
		Label:     "Buchung: " + r.PatientName,
		Time:      "--:--",
		CreatedAt: r.CreatedAt,
	}
	if r.Kind == booking.KindCallback {
		it.Kind = KindCallback
		it.Priority = PriorityUrgent
		it.Label = "Rückruf: " + r.PatientName
	}
	if r.PatientName == "" {
		it.Label = "Neue Anfrage"
	}
	if r.Status == booking.StatusClosed {
		it.Status = StatusDone
	}
	if !r.CreatedAt.IsZero() {
		it.Time = r.CreatedAt.UTC().Format("15:04")
	}
	return it
}

// Lister is the read side of tickets.Repository.
type Lister interface {
	List(ctx context.Context, practiceID practice.ID, filter tickets.Filter) ([]*tickets.Record, error)
}

// Handler serves GET /api/inbox.
type Handler struct {
	tickets Lister
	logger  *logging.Logger
}

func NewHandler(list Lister, logger *logging.Logger) *Handler {
	if list == nil {
		panic("inbox: ticket lister required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{tickets: list, logger: logger}
}

// Get returns the practice inbox. Listing failures yield an empty list.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing practice context"})
		return
	}
	recs, err := h.tickets.List(r.Context(), practiceID, tickets.Filter{})
	if err != nil {
		h.logger.Error("inbox: failed to list tickets", "practice_id", practiceID, "error", err)
		recs = nil
	}
	writeJSON(w, http.StatusOK, Build(recs))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
