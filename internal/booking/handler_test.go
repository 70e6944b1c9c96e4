package booking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(sink *memorySink) *Handler {
	return NewHandler(newTestService(sink, &recordingCalendar{}, &recordingPublisher{}), nil)
}

func TestHandlerBook_Ticket(t *testing.T) {
	sink := &memorySink{}
	h := newTestHandler(sink)

	body := `{"practice_id":"physio_default_30min","patient_name":"Anna","patient_email":"anna@example.com","requested_date":"2025-01-06","requested_time":"10:00"}`
	rec := httptest.NewRecorder()
	h.Book(rec, httptest.NewRequest(http.MethodPost, "/book", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ticket", resp["kind"])
	ticket := resp["ticket"].(map[string]any)
	assert.Equal(t, "booked", ticket["status"])
	assert.Equal(t, "appointment booked", ticket["message"])
	slot := ticket["slot"].(map[string]any)
	assert.Equal(t, "2025-01-06T08:00:00Z", slot["start_time"])
	req := ticket["booking_request"].(map[string]any)
	assert.Equal(t, "2025-01-06", req["requested_date"])
	assert.Equal(t, "10:00", req["requested_time"])
	assert.Len(t, sink.tickets, 1)
}

func TestHandlerBook_Callback(t *testing.T) {
	h := newTestHandler(&memorySink{})

	body := `{"practice_id":"physio_krebs_nottuln","patient_name":"Anna","requested_date":"2025-01-12"}`
	rec := httptest.NewRecorder()
	h.Book(rec, httptest.NewRequest(http.MethodPost, "/book", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp BookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, KindCallback, resp.Kind)
	require.NotNil(t, resp.Callback)
	assert.Equal(t, ReasonNoSlots, resp.Callback.Reason)
	assert.Nil(t, resp.Ticket)
}

func TestHandlerBook_Validation(t *testing.T) {
	h := newTestHandler(&memorySink{})
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{`, "failed to decode"},
		{"missing name", `{"practice_id":"physio_default_20min","requested_date":"2025-01-06"}`, "patient_name is required"},
		{"bad date", `{"practice_id":"physio_default_20min","patient_name":"A","requested_date":"2025-13-01"}`, "requested_date"},
		{"unknown practice", `{"practice_id":"physio_mars","patient_name":"A","requested_date":"2025-01-06"}`, "unknown practice_id"},
		{"bad email", `{"practice_id":"physio_default_20min","patient_name":"A","requested_date":"2025-01-06","patient_email":"x"}`, "patient_email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Book(rec, httptest.NewRequest(http.MethodPost, "/book", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}
