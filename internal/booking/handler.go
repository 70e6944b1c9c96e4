package booking

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/internal/slots"
	"github.com/wolfman30/practice-booking/pkg/logging"
	"github.com/wolfman30/practice-booking/pkg/validation"
)

// Handler exposes the booking endpoint.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a booking handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// BookRequest is the POST /book body.
type BookRequest struct {
	PracticeID    string `json:"practice_id" validate:"required"`
	PatientName   string `json:"patient_name" validate:"required,max=200"`
	PatientPhone  string `json:"patient_phone" validate:"omitempty,max=40,e164ish"`
	PatientEmail  string `json:"patient_email" validate:"omitempty,max=254,email"`
	RequestedDate string `json:"requested_date" validate:"required,datetime=2006-01-02"`
	RequestedTime string `json:"requested_time" validate:"omitempty,datetime=15:04"`
}

// BookResponse carries the outcome and its variant.
type BookResponse struct {
	Kind     string          `json:"kind"`
	Ticket   *Ticket         `json:"ticket,omitempty"`
	Callback *CallbackTicket `json:"callback,omitempty"`
}

// NewBookResponse wraps an outcome for the wire.
func NewBookResponse(o Outcome) BookResponse {
	return Match(o,
		func(t *Ticket) BookResponse { return BookResponse{Kind: KindTicket, Ticket: t} },
		func(c *CallbackTicket) BookResponse { return BookResponse{Kind: KindCallback, Callback: c} },
	)
}

// Book handles POST /book.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var body BookRequest
	if err := validation.Decode(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := practice.Parse(body.PracticeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown practice_id")
		return
	}
	date, err := slots.ParseDate(body.RequestedDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "requested_date must be YYYY-MM-DD")
		return
	}

	out, err := h.service.Book(r.Context(), Request{
		PracticeID:    id,
		PatientName:   body.PatientName,
		PatientPhone:  body.PatientPhone,
		PatientEmail:  body.PatientEmail,
		RequestedDate: date,
		RequestedTime: body.RequestedTime,
	})
	if err != nil {
		h.logger.Error("booking failed", "practice_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "booking failed")
		return
	}

	status := http.StatusCreated
	if out.Kind() == KindCallback {
		status = http.StatusAccepted
	}
	writeJSON(w, status, NewBookResponse(out))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
