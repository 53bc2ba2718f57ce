package appointments

import (
	"sort"
	"strings"
	"time"

	"github.com/carenest/patient-portal/internal/careapi"
	"github.com/carenest/patient-portal/pkg/logging"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp parses the care API's appointment timestamps. Values without
// an offset are read as UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsUpcoming reports whether a is at or after now and neither cancelled nor
// completed. Malformed timestamps are never upcoming.
func IsUpcoming(a careapi.Appointment, now time.Time) bool {
	at, ok := ParseTimestamp(a.DateTime)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(a.Status)) {
	case careapi.StatusCancelled, careapi.StatusCompleted:
		return false
	}
	return !at.Before(now)
}

// Upcoming filters list down to upcoming appointments, soonest first.
// Entries with malformed timestamps are logged and skipped.
func Upcoming(list []careapi.Appointment, now time.Time, logger *logging.Logger) []careapi.Appointment {
	if logger == nil {
		logger = logging.Default()
	}
	type entry struct {
		at   time.Time
		appt careapi.Appointment
	}
	kept := make([]entry, 0, len(list))
	for _, a := range list {
		at, ok := ParseTimestamp(a.DateTime)
		if !ok {
			logger.Warn("appointments: skipping malformed timestamp", "appointment_id", a.ID, "date_time", a.DateTime)
			continue
		}
		if IsUpcoming(a, now) {
			kept = append(kept, entry{at: at, appt: a})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].at.Before(kept[j].at) })

	out := make([]careapi.Appointment, len(kept))
	for i, e := range kept {
		out[i] = e.appt
	}
	return out
}
