package booking

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/practice-booking/internal/calendar"
	"github.com/wolfman30/practice-booking/internal/observability/metrics"
	"github.com/wolfman30/practice-booking/internal/slots"
	"github.com/wolfman30/practice-booking/pkg/logging"
)

var bookingTracer = otel.Tracer("practice.internal.booking")

const (
	ChannelAPI   = "api"
	ChannelVoice = "voice"
)

// TicketSink persists decided outcomes.
type TicketSink interface {
	SaveTicket(ctx context.Context, t *Ticket) error
	SaveCallback(ctx context.Context, c *CallbackTicket) error
}

// CallbackPublisher hands callback tickets to the notification pipeline.
type CallbackPublisher interface {
	Enqueue(ctx context.Context, c *CallbackTicket) error
}

// Service runs the decision engine and the side effects around it.
type Service struct {
	source    slots.Source
	sink      TicketSink
	calendar  calendar.EventCreator
	publisher CallbackPublisher
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
	opts      []EngineOption
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithCalendar creates a calendar event for every booked ticket.
func WithCalendar(c calendar.EventCreator) ServiceOption {
	return func(s *Service) { s.calendar = c }
}

// WithPublisher enqueues every callback ticket.
func WithPublisher(p CallbackPublisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics records decisions.
func WithMetrics(m *metrics.BookingMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithEngineOptions passes options to every engine the service builds.
func WithEngineOptions(opts ...EngineOption) ServiceOption {
	return func(s *Service) { s.opts = append(s.opts, opts...) }
}

// NewService wires the booking service.
func NewService(source slots.Source, sink TicketSink, logger *logging.Logger, opts ...ServiceOption) *Service {
	if sink == nil {
		panic("booking: ticket sink required")
	}
	if source == nil {
		source = slots.StaticSource{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{source: source, sink: sink, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book decides a request with the standard policy and persists the outcome.
func (s *Service) Book(ctx context.Context, req Request) (Outcome, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.practice_id", string(req.PracticeID)),
		attribute.String("booking.channel", ChannelAPI),
	)

	engine, err := s.engine(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = engine.now()
	}
	return s.apply(ctx, span, ChannelAPI, engine.Decide(req))
}

// BookVoice decides with the voice shortcut policy and persists the outcome.
func (s *Service) BookVoice(ctx context.Context, req VoiceRequest) (Outcome, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.book_voice")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.practice_id", string(req.PracticeID)),
		attribute.String("booking.channel", ChannelVoice),
	)

	engine, err := s.engine(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s.apply(ctx, span, ChannelVoice, engine.DecideVoiceShortcut(req.PracticeID, req.PatientName, req.PatientPhone, req.Date))
}

// RequestCallback records a callback ticket without consulting the calendar,
// used when a caller asks to be called back.
func (s *Service) RequestCallback(ctx context.Context, req VoiceRequest, reason string) (*CallbackTicket, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.request_callback")
	defer span.End()
	span.SetAttributes(attribute.String("booking.practice_id", string(req.PracticeID)))

	engine, err := s.engine(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	cb := engine.callback(req.PracticeID, req.PatientName, req.PatientPhone, reason)
	if _, err := s.apply(ctx, span, ChannelVoice, cb); err != nil {
		return nil, err
	}
	return cb, nil
}

func (s *Service) engine(ctx context.Context) (*Engine, error) {
	d, err := s.source.Dispatcher(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: load rules: %w", err)
	}
	return NewEngine(d, s.opts...), nil
}

func (s *Service) apply(ctx context.Context, span trace.Span, channel string, out Outcome) (Outcome, error) {
	switch o := out.(type) {
	case *Ticket:
		span.SetAttributes(
			attribute.String("booking.outcome", KindTicket),
			attribute.String("booking.ticket_id", o.ID),
		)
		if err := s.sink.SaveTicket(ctx, o); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("booking: save ticket: %w", err)
		}
		s.metrics.ObserveDecision(channel, KindTicket, "")
		s.logger.Info("appointment booked",
			"ticket_id", o.ID,
			"practice_id", o.PracticeID,
			"channel", channel,
			"slot_start", o.Slot.Start.Format(time.RFC3339),
		)
		s.createEvent(ctx, o)

	case *CallbackTicket:
		span.SetAttributes(
			attribute.String("booking.outcome", KindCallback),
			attribute.String("booking.reason", ReasonCode(o.Reason)),
			attribute.String("booking.ticket_id", o.ID),
		)
		if err := s.sink.SaveCallback(ctx, o); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("booking: save callback: %w", err)
		}
		s.metrics.ObserveDecision(channel, KindCallback, ReasonCode(o.Reason))
		s.logger.Info("callback requested",
			"ticket_id", o.ID,
			"practice_id", o.PracticeID,
			"channel", channel,
			"reason", o.Reason,
		)
		s.enqueue(ctx, o)
	}
	return out, nil
}

func (s *Service) createEvent(ctx context.Context, t *Ticket) {
	if s.calendar == nil {
		return
	}
	_, err := s.calendar.CreateEvent(ctx, calendar.Event{
		Title:       "Appointment – " + t.Request.PatientName,
		Description: "Booked via intake",
		Start:       t.Slot.Start,
		End:         t.Slot.End,
		PracticeID:  string(t.PracticeID),
		TicketID:    t.ID,
	})
	if err != nil {
		s.logger.Error("calendar event failed", "ticket_id", t.ID, "practice_id", t.PracticeID, "error", err)
	}
}

func (s *Service) enqueue(ctx context.Context, c *CallbackTicket) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Enqueue(ctx, c); err != nil {
		s.metrics.ObserveCallbackEnqueued("failed")
		s.logger.Error("callback enqueue failed", "ticket_id", c.ID, "practice_id", c.PracticeID, "error", err)
		return
	}
	s.metrics.ObserveCallbackEnqueued("queued")
}
