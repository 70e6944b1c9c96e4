package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestGoogleCalendarCreateEvent(t *testing.T) {
	var (
		mu       sync.Mutex
		gotPath  string
		gotEvent map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotEvent)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt-123","summary":"ok"}`))
	}))
	defer srv.Close()

	cal, err := NewGoogleCalendar(context.Background(), "", nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	start := time.Date(2025, 1, 6, 8, 30, 0, 0, time.UTC)
	id, err := cal.CreateEvent(context.Background(), Event{
		Title:       "Appointment – Anna",
		Description: "Booked via intake",
		Start:       start,
		End:         start.Add(20 * time.Minute),
		PracticeID:  "physio_krebs_nottuln",
		TicketID:    "t-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-123", id)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasSuffix(gotPath, "/calendars/primary/events"), gotPath)
	assert.Equal(t, "Appointment – Anna", gotEvent["summary"])
	startField, _ := gotEvent["start"].(map[string]any)
	assert.Equal(t, "2025-01-06T08:30:00Z", startField["dateTime"])
}

func TestGoogleCalendarInsertError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	cal, err := NewGoogleCalendar(context.Background(), "praxis@group.calendar.google.com", nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	_, err = cal.CreateEvent(context.Background(), Event{Title: "x", Start: time.Now(), End: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calendar: insert event")
}

func TestLogCalendar(t *testing.T) {
	id, err := NewLogCalendar(nil).CreateEvent(context.Background(), Event{Title: "Appointment – Ben"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "local-"))
}
