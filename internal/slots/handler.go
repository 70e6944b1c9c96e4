package slots

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/practice-booking/internal/http/middleware"
	"github.com/wolfman30/practice-booking/internal/observability/metrics"
	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/pkg/logging"
)

// DateLayout is the wire format of calendar days.
const DateLayout = "2006-01-02"

// Handler serves slot catalogs and the admin rules endpoints.
type Handler struct {
	source  Source
	store   *RuleStore
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewHandler creates a slots handler. store may be nil when redis is not
// configured; GET rules then serves the built-in table and writes answer 503.
func NewHandler(source Source, store *RuleStore, m *metrics.BookingMetrics, logger *logging.Logger) *Handler {
	if source == nil {
		source = StaticSource{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{source: source, store: store, metrics: m, logger: logger}
}

// AdminRoutes returns the rules management routes.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{practiceID}/rules", h.GetRules)
	r.Put("/{practiceID}/rules", h.PutRules)
	r.Delete("/{practiceID}/rules", h.DeleteRules)
	return r
}

// ListSlots returns the catalog of one practice day.
// GET /slots?practice_id=...&date=YYYY-MM-DD
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	id, err := practice.Parse(r.URL.Query().Get("practice_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown or missing practice_id")
		return
	}
	date, err := ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	d, err := h.source.Dispatcher(r.Context())
	if err != nil {
		h.logger.Error("failed to load rules", "practice_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load rules")
		return
	}

	h.metrics.ObserveSlotsServed(string(id))
	writeJSON(w, http.StatusOK, d.SlotsFor(id, date))
}

// RulesResponse wraps the effective rules of a practice.
type RulesResponse struct {
	PracticeID practice.ID `json:"practice_id"`
	Override   bool        `json:"override"`
	Rules      Rules       `json:"rules"`
}

// GetRules returns the effective rules.
// GET /admin/practices/{practiceID}/rules
func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	id, ok := h.allowedPractice(w, r)
	if !ok {
		return
	}
	if h.store == nil {
		d, err := h.source.Dispatcher(r.Context())
		if err != nil {
			h.logger.Error("failed to load rules", "practice_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		rules, found := d.Rules(id)
		if !found {
			writeError(w, http.StatusNotFound, "unknown practice")
			return
		}
		writeJSON(w, http.StatusOK, RulesResponse{PracticeID: id, Rules: rules})
		return
	}
	rules, override, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get rules", "practice_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, RulesResponse{PracticeID: id, Override: override, Rules: rules})
}

// PutRules stores an override.
// PUT /admin/practices/{practiceID}/rules
func (h *Handler) PutRules(w http.ResponseWriter, r *http.Request) {
	id, ok := h.adminPractice(w, r)
	if !ok {
		return
	}
	var rules Rules
	if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.store.Set(r.Context(), id, rules); err != nil {
		if errors.Is(err, ErrInvalidRules) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to save rules", "practice_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.logger.Info("practice rules updated", "practice_id", id, "duration_minutes", int(rules.Duration/time.Minute))
	writeJSON(w, http.StatusOK, RulesResponse{PracticeID: id, Override: true, Rules: rules})
}

// DeleteRules drops an override.
// DELETE /admin/practices/{practiceID}/rules
func (h *Handler) DeleteRules(w http.ResponseWriter, r *http.Request) {
	id, ok := h.adminPractice(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete rules", "practice_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.logger.Info("practice rules reset", "practice_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminPractice(w http.ResponseWriter, r *http.Request) (practice.ID, bool) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "rules store not configured")
		return "", false
	}
	return h.allowedPractice(w, r)
}

// allowedPractice resolves the path practice and checks it against the
// staff token scope when one is present.
func (h *Handler) allowedPractice(w http.ResponseWriter, r *http.Request) (practice.ID, bool) {
	id, err := practice.Parse(chi.URLParam(r, "practiceID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown practice")
		return "", false
	}
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok && !claims.AllowsPractice(string(id)) {
		h.logger.Warn("practice outside token scope", "practice_id", id, "subject", claims.Subject)
		writeError(w, http.StatusForbidden, "practice not permitted")
		return "", false
	}
	return id, true
}

// ParseDate parses a YYYY-MM-DD day.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
