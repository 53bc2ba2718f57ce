package appointments

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carenest/patient-portal/internal/careapi"
	"github.com/carenest/patient-portal/pkg/logging"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestIsUpcoming(t *testing.T) {
	tests := []struct {
		name string
		appt careapi.Appointment
		want bool
	}{
		{"future scheduled", careapi.Appointment{DateTime: "2025-03-11T09:00:00Z", Status: careapi.StatusScheduled}, true},
		{"exactly now", careapi.Appointment{DateTime: "2025-03-10T12:00:00Z", Status: careapi.StatusConfirmed}, true},
		{"offset timestamp", careapi.Appointment{DateTime: "2025-03-10T14:30:00+02:00", Status: careapi.StatusScheduled}, true},
		{"no offset read as UTC", careapi.Appointment{DateTime: "2025-03-10T12:30:00", Status: careapi.StatusScheduled}, true},
		{"past", careapi.Appointment{DateTime: "2025-03-09T09:00:00Z", Status: careapi.StatusScheduled}, false},
		{"cancelled", careapi.Appointment{DateTime: "2025-03-11T09:00:00Z", Status: careapi.StatusCancelled}, false},
		{"completed uppercase", careapi.Appointment{DateTime: "2025-03-11T09:00:00Z", Status: "COMPLETED"}, false},
		{"malformed", careapi.Appointment{DateTime: "next tuesday", Status: careapi.StatusScheduled}, false},
		{"empty", careapi.Appointment{Status: careapi.StatusScheduled}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUpcoming(tt.appt, now))
		})
	}
}

func TestUpcomingFiltersSortsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info", "json")

	list := []careapi.Appointment{
		{ID: "late", DateTime: "2025-04-01T09:00:00Z", Status: careapi.StatusScheduled},
		{ID: "bad", DateTime: "31/02/2025", Status: careapi.StatusScheduled},
		{ID: "past", DateTime: "2025-01-01T09:00:00Z", Status: careapi.StatusScheduled},
		{ID: "soon", DateTime: "2025-03-10T15:00:00Z", Status: careapi.StatusConfirmed},
		{ID: "cancelled", DateTime: "2025-03-12T09:00:00Z", Status: careapi.StatusCancelled},
		{ID: "tie", DateTime: "2025-04-01T09:00:00Z", Status: careapi.StatusScheduled},
	}

	got := Upcoming(list, now, logger)
	ids := make([]string, len(got))
	for i, a := range got {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"soon", "late", "tie"}, ids)
	assert.Contains(t, buf.String(), "malformed timestamp")
	assert.Contains(t, buf.String(), `"appointment_id":"bad"`)
}

func TestUpcomingEmpty(t *testing.T) {
	got := Upcoming(nil, now, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
