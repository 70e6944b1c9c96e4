package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/internal/tenancy"
	"github.com/wolfman30/practice-booking/internal/tickets"
	"github.com/wolfman30/practice-booking/pkg/logging"
)

// Lister is the read side of tickets.Repository.
type Lister interface {
	List(ctx context.Context, practiceID practice.ID, filter tickets.Filter) ([]*tickets.Record, error)
}

// Handler serves the dashboard endpoints for one practice at a time.
type Handler struct {
	tickets Lister
	now     func() time.Time
	logger  *logging.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(list Lister, logger *logging.Logger) *Handler {
	if list == nil {
		panic("dashboard: ticket lister required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{tickets: list, now: time.Now, logger: logger}
}

// Summary handles GET /api/dashboard/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	recs, ok := h.list(w, r, sinceMidnight(now))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, Summarize(recs, now))
}

// Stats handles GET /dashboard/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	recs, ok := h.list(w, r, tickets.Filter{})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, CountByStatus(recs))
}

// Today handles GET /dashboard/today.
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	recs, ok := h.list(w, r, sinceMidnight(now))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, Today(recs, now))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter tickets.Filter) ([]*tickets.Record, bool) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "missing practice context")
		return nil, false
	}
	recs, err := h.tickets.List(r.Context(), practiceID, filter)
	if err != nil {
		h.logger.Error("dashboard: failed to list tickets", "practice_id", practiceID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load tickets")
		return nil, false
	}
	return recs, true
}

func sinceMidnight(now time.Time) tickets.Filter {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return tickets.Filter{Since: &start}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
