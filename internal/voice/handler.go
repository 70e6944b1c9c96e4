// Package voice serves the telephony webhooks: Twilio speech calls, a JSON
// transcript webhook and a test endpoint that simulates a call.
package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/internal/intent"
	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/pkg/logging"
	"github.com/wolfman30/practice-booking/pkg/validation"
)

var voiceTracer = otel.Tracer("practice.internal.voice")

const (
	msgGreeting     = "Guten Tag! Sie erreichen die Praxis. Wie kann ich Ihnen helfen?"
	msgNoInput      = "Wir haben Sie nicht verstanden. Bitte rufen Sie erneut an oder hinterlassen Sie eine Nachricht."
	msgNoSlot       = "Leider sind aktuell keine Termine verfügbar. Wir rufen Sie gerne zurück."
	msgCallback     = "Vielen Dank für Ihren Anruf. Wir rufen Sie gerne zurück."
	msgWillContact  = "Vielen Dank für Ihren Anruf. Wir melden uns bei Ihnen."
	msgFailure      = "Es ist ein technischer Fehler aufgetreten. Bitte versuchen Sie es später erneut."
	voicePatient    = "Unbekannt (Voice)"
	testPatient     = "Test Patient"
	testFromNumber  = "+491234567890"
	bookedTimestamp = "02.01.2006 um 15:04"
)

// Result statuses reported by the JSON endpoints.
const (
	StatusBooked          = "booked"
	StatusCallbackCreated = "callback_created"
	StatusCancelDetected  = "cancel_intent_detected"
	StatusUnknownIntent   = "unknown_intent"
)

// Booker is the booking service surface the voice channel needs.
type Booker interface {
	BookVoice(ctx context.Context, req booking.VoiceRequest) (booking.Outcome, error)
	RequestCallback(ctx context.Context, req booking.VoiceRequest, reason string) (*booking.CallbackTicket, error)
}

// Config configures the voice handler.
type Config struct {
	// AuthToken enables Twilio signature checks when set.
	AuthToken       string
	PublicBaseURL   string
	DefaultPractice practice.ID
}

// Handler serves the voice routes.
type Handler struct {
	booker Booker
	cfg    Config
	now    func() time.Time
	logger *logging.Logger
}

// NewHandler creates a voice handler.
func NewHandler(booker Booker, cfg Config, logger *logging.Logger) *Handler {
	if booker == nil {
		panic("voice: booker required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DefaultPractice == "" {
		cfg.DefaultPractice = practice.Default20Min
	}
	return &Handler{booker: booker, cfg: cfg, now: time.Now, logger: logger}
}

// Routes registers the voice endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.JSONWebhook)
	r.Post("/twilio-webhook", h.TwilioWebhook)
	r.Post("/status", h.Status)
	r.Get("/test", h.Test)
	r.Post("/test", h.Test)
	return r
}

// SlotWindow is the booked slot as reported to callers.
type SlotWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Result describes what a voice interaction produced.
type Result struct {
	InputText  string        `json:"input_text,omitempty"`
	FromNumber string        `json:"from_number,omitempty"`
	PracticeID practice.ID   `json:"practice_id,omitempty"`
	Intent     intent.Intent `json:"intent"`
	Status     string        `json:"status"`
	TicketID   string        `json:"ticket_id,omitempty"`
	Slot       *SlotWindow   `json:"slot,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// call is one caller utterance to act on.
type call struct {
	practiceID  practice.ID
	patientName string
	from        string
	text        string
	// fallback turns cancel and unknown intents into callback tickets.
	fallback bool
}

func (h *Handler) handle(ctx context.Context, c call) (Result, error) {
	ctx, span := voiceTracer.Start(ctx, "voice.handle")
	defer span.End()

	detected := intent.Detect(c.text)
	span.SetAttributes(
		attribute.String("booking.practice_id", string(c.practiceID)),
		attribute.String("booking.intent", string(detected)),
	)
	res := Result{Intent: detected}
	req := booking.VoiceRequest{
		PracticeID:   c.practiceID,
		PatientName:  c.patientName,
		PatientPhone: c.from,
		Date:         h.now().UTC(),
	}

	switch {
	case detected == intent.Booking:
		out, err := h.booker.BookVoice(ctx, req)
		if err != nil {
			span.RecordError(err)
			return res, err
		}
		booking.Match(out,
			func(t *booking.Ticket) struct{} {
				res.Status = StatusBooked
				res.TicketID = t.ID
				res.Slot = &SlotWindow{Start: t.Slot.Start, End: t.Slot.End}
				res.Message = "Termin gebucht für " + t.Slot.Start.Format(bookedTimestamp)
				return struct{}{}
			},
			func(cb *booking.CallbackTicket) struct{} {
				res.Status = StatusCallbackCreated
				res.TicketID = cb.ID
				res.Message = "Kein Slot verfügbar – Rückruf erstellt"
				return struct{}{}
			},
		)
		return res, nil

	case detected == intent.Callback || c.fallback:
		cb, err := h.booker.RequestCallback(ctx, req, c.text)
		if err != nil {
			span.RecordError(err)
			return res, err
		}
		res.Status = StatusCallbackCreated
		res.TicketID = cb.ID
		res.Message = "Rückruf-Ticket erstellt"
		if detected != intent.Callback {
			res.Message = "Unbekannter Intent – Rückruf erstellt"
		}
		return res, nil

	case detected == intent.Cancel:
		res.Status = StatusCancelDetected
		res.Message = "Absage erkannt – Status-Update folgt"
		return res, nil
	}

	res.Status = StatusUnknownIntent
	res.Message = "Intent nicht eindeutig"
	return res, nil
}

// TwilioWebhook handles POST /voice/twilio-webhook.
func (h *Handler) TwilioWebhook(w http.ResponseWriter, r *http.Request) {
	if h.cfg.AuthToken != "" {
		if !ValidateTwilioSignature(r, h.cfg.AuthToken, buildAbsoluteURL(r, h.cfg.PublicBaseURL)) {
			h.logger.Warn("invalid twilio signature")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}
	webhook, err := ParseCallWebhook(r)
	if err != nil {
		h.logger.Error("failed to parse twilio voice webhook", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if webhook.SpeechResult == "" {
		h.respondTwiML(w, greeting(r.URL.Path))
		return
	}

	res, err := h.handle(r.Context(), call{
		practiceID:  h.cfg.DefaultPractice,
		patientName: voicePatient,
		from:        webhook.From,
		text:        webhook.SpeechResult,
		fallback:    true,
	})
	if err != nil {
		h.logger.Error("voice call handling failed", "call_sid", webhook.CallSid, "error", err)
		h.respondTwiML(w, twimlResponse{Verbs: []any{sayVerb(msgFailure)}})
		return
	}
	h.logger.Info("voice call handled",
		"call_sid", webhook.CallSid,
		"intent", res.Intent,
		"status", res.Status,
		"ticket_id", res.TicketID,
	)

	text := msgWillContact
	switch {
	case res.Status == StatusBooked:
		text = "Vielen Dank! Ihr Termin wurde für " + res.Slot.Start.Format(bookedTimestamp) + " gebucht."
	case res.Intent == intent.Booking:
		text = msgNoSlot
	case res.Intent == intent.Callback:
		text = msgCallback
	}
	h.respondTwiML(w, twimlResponse{Verbs: []any{sayVerb(text)}})
}

func (h *Handler) respondTwiML(w http.ResponseWriter, resp twimlResponse) {
	if err := writeTwiML(w, resp); err != nil {
		h.logger.Error("failed to write twiml", "error", err)
	}
}

// Status handles POST /voice/status call-progress callbacks.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	webhook, err := ParseCallWebhook(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	h.logger.Info("voice call status", "call_sid", webhook.CallSid, "call_status", webhook.CallStatus)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"call_sid":    webhook.CallSid,
		"call_status": webhook.CallStatus,
	})
}

// TranscriptRequest is the POST /voice body.
type TranscriptRequest struct {
	FromNumber string `json:"from_number" validate:"omitempty,max=40,e164ish"`
	Text       string `json:"text" validate:"required,max=2000"`
}

// JSONWebhook handles POST /voice with an already transcribed utterance.
// Cancel and unknown intents are reported without creating a ticket.
func (h *Handler) JSONWebhook(w http.ResponseWriter, r *http.Request) {
	var req TranscriptRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.handle(r.Context(), call{
		practiceID:  h.cfg.DefaultPractice,
		patientName: voicePatient,
		from:        req.FromNumber,
		text:        req.Text,
	})
	if err != nil {
		h.logger.Error("voice webhook failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to handle voice request")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// TestRequest is the optional POST /voice/test body.
type TestRequest struct {
	Text       string `json:"text"`
	FromNumber string `json:"from_number"`
	PracticeID string `json:"practice_id"`
}

// Test handles GET|POST /voice/test: a simulated call driven by query
// parameters or a JSON body.
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := TestRequest{
		Text:       q.Get("text"),
		FromNumber: q.Get("from_number"),
		PracticeID: q.Get("practice_id"),
	}
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		var body TestRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if body.Text != "" {
			req.Text = body.Text
		}
		if body.FromNumber != "" {
			req.FromNumber = body.FromNumber
		}
		if body.PracticeID != "" {
			req.PracticeID = body.PracticeID
		}
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.FromNumber == "" {
		req.FromNumber = testFromNumber
	}
	practiceID := practice.Default20Min
	if req.PracticeID != "" {
		id, err := practice.Parse(req.PracticeID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		practiceID = id
	}

	res, err := h.handle(r.Context(), call{
		practiceID:  practiceID,
		patientName: testPatient,
		from:        req.FromNumber,
		text:        req.Text,
		fallback:    true,
	})
	if err != nil {
		h.logger.Error("voice test failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to handle voice request")
		return
	}
	res.InputText = req.Text
	res.FromNumber = req.FromNumber
	res.PracticeID = practiceID
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
