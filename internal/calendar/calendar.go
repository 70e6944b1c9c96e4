package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/wolfman30/practice-booking/pkg/logging"
)

// Event is an appointment to place on the practice calendar.
type Event struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	PracticeID  string
	TicketID    string
}

// EventCreator places events on an external calendar and returns their id.
type EventCreator interface {
	CreateEvent(ctx context.Context, ev Event) (string, error)
}

// GoogleCalendar writes events through the Google Calendar v3 API.
type GoogleCalendar struct {
	events     *gcal.EventsService
	calendarID string
	logger     *logging.Logger
}

// NewGoogleCalendar builds a client from service options such as
// option.WithCredentialsFile. An empty calendarID means "primary".
func NewGoogleCalendar(ctx context.Context, calendarID string, logger *logging.Logger, opts ...option.ClientOption) (*GoogleCalendar, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar: init google client: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleCalendar{events: gcal.NewEventsService(svc), calendarID: calendarID, logger: logger}, nil
}

// CreateEvent inserts the event. Times are sent as UTC wall-clock values.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, ev Event) (string, error) {
	body := &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         &gcal.EventDateTime{DateTime: ev.End.UTC().Format(time.RFC3339), TimeZone: "UTC"},
	}
	if ev.TicketID != "" {
		body.ExtendedProperties = &gcal.EventExtendedProperties{
			Private: map[string]string{"ticket_id": ev.TicketID, "practice_id": ev.PracticeID},
		}
	}

	created, err := g.events.Insert(g.calendarID, body).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}
	g.logger.Info("calendar event created", "event_id", created.Id, "ticket_id", ev.TicketID, "practice_id", ev.PracticeID)
	return created.Id, nil
}

// LogCalendar is used when no calendar is configured; it only logs.
type LogCalendar struct {
	logger *logging.Logger
}

func NewLogCalendar(logger *logging.Logger) *LogCalendar {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogCalendar{logger: logger}
}

func (c *LogCalendar) CreateEvent(_ context.Context, ev Event) (string, error) {
	id := "local-" + uuid.NewString()
	c.logger.Info("calendar event (not synced)",
		"event_id", id,
		"title", ev.Title,
		"start", ev.Start.Format(time.RFC3339),
		"end", ev.End.Format(time.RFC3339),
		"ticket_id", ev.TicketID,
	)
	return id, nil
}
