package tickets

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/internal/observability/metrics"
	"github.com/wolfman30/practice-booking/internal/tenancy"
	"github.com/wolfman30/practice-booking/pkg/logging"
	"github.com/wolfman30/practice-booking/pkg/validation"
)

// Handler handles HTTP requests for tickets
type Handler struct {
	repo    Repository
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewHandler creates a new tickets handler
func NewHandler(repo Repository, m *metrics.BookingMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, metrics: m, logger: logger}
}

// Routes returns the ticket routes; mount behind the tenancy middleware.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{ticketID}", h.Get)
	r.Patch("/{ticketID}/status", h.UpdateStatus)
	r.Delete("/{ticketID}", h.Delete)
	return r
}

// ListResponse is the response for listing tickets
type ListResponse struct {
	Tickets []*Record `json:"tickets"`
	Count   int       `json:"count"`
}

// List handles GET /tickets
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "missing practice context")
		return
	}

	filter := Filter{Limit: 100}
	q := r.URL.Query()
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 500 {
			filter.Limit = limit
		}
	}
	if raw := q.Get("status"); raw != "" {
		status, ok := booking.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		filter.Status = status
	}
	if kind := q.Get("kind"); kind != "" {
		filter.Kind = kind
	}

	recs, err := h.repo.List(r.Context(), practiceID, filter)
	if err != nil {
		h.logger.Error("failed to list tickets", "practice_id", practiceID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Tickets: recs, Count: len(recs)})
}

// Get handles GET /tickets/{ticketID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "missing practice context")
		return
	}
	rec, err := h.repo.Get(r.Context(), practiceID, chi.URLParam(r, "ticketID"))
	if err != nil {
		h.writeRepoError(w, err, "failed to load ticket")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CreateRequest is the POST /tickets body for tickets entered by staff.
type CreateRequest struct {
	Kind         string     `json:"kind" validate:"required,oneof=ticket callback"`
	Status       string     `json:"status" validate:"omitempty,oneof=open booked callback closed"`
	PatientName  string     `json:"patient_name" validate:"required,max=200"`
	PatientPhone string     `json:"patient_phone" validate:"omitempty,max=40,e164ish"`
	PatientEmail string     `json:"patient_email" validate:"omitempty,max=254,email"`
	Reason       string     `json:"reason" validate:"max=500"`
	Message      string     `json:"message" validate:"max=500"`
	SlotStart    *time.Time `json:"slot_start"`
	SlotEnd      *time.Time `json:"slot_end"`
}

// Create handles POST /tickets
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "missing practice context")
		return
	}
	var req CreateRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := booking.StatusOpen
	if req.Status != "" {
		status = booking.Status(req.Status)
	}

	rec, err := h.repo.Create(r.Context(), &Record{
		PracticeID:   practiceID,
		Kind:         req.Kind,
		Status:       status,
		PatientName:  req.PatientName,
		PatientPhone: req.PatientPhone,
		PatientEmail: req.PatientEmail,
		Reason:       req.Reason,
		Message:      req.Message,
		SlotStart:    req.SlotStart,
		SlotEnd:      req.SlotEnd,
	})
	if err != nil {
		h.writeRepoError(w, err, "failed to create ticket")
		return
	}
	h.logger.Info("ticket created", "ticket_id", rec.ID, "practice_id", practiceID, "kind", rec.Kind)
	writeJSON(w, http.StatusCreated, rec)
}

// UpdateStatusRequest is the PATCH /tickets/{ticketID}/status body.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open booked callback closed"`
}

// UpdateStatus handles PATCH /tickets/{ticketID}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "missing practice context")
		return
	}
	var req UpdateStatusRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "ticketID")

	before, err := h.repo.Get(r.Context(), practiceID, id)
	if err != nil {
		h.writeRepoError(w, err, "failed to load ticket")
		return
	}
	rec, err := h.repo.UpdateStatus(r.Context(), practiceID, id, booking.Status(req.Status))
	if err != nil {
		h.writeRepoError(w, err, "failed to update ticket")
		return
	}
	if before.Status != rec.Status {
		h.metrics.ObserveTransition(string(before.Status), string(rec.Status))
	}
	h.logger.Info("ticket status updated", "ticket_id", id, "practice_id", practiceID, "status", rec.Status)
	writeJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /tickets/{ticketID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	practiceID, ok := tenancy.PracticeIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "missing practice context")
		return
	}
	id := chi.URLParam(r, "ticketID")
	if err := h.repo.Delete(r.Context(), practiceID, id); err != nil {
		h.writeRepoError(w, err, "failed to delete ticket")
		return
	}
	h.logger.Info("ticket deleted", "ticket_id", id, "practice_id", practiceID)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) writeRepoError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrTicketNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
