package notify

import (
	"fmt"
	"strings"
	"time"
)

// Severity is how a notification is rendered by the UI.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ParseSeverity validates a severity name.
func ParseSeverity(raw string) (Severity, error) {
	switch s := Severity(strings.ToLower(strings.TrimSpace(raw))); s {
	case SeveritySuccess, SeverityError, SeverityWarning, SeverityInfo:
		return s, nil
	default:
		return "", fmt.Errorf("notify: unknown severity %q", raw)
	}
}

// Notification is a transient message shown to the patient.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// State is the list of notifications currently shown to one patient, oldest
// first. The reducers below never mutate their input.
type State struct {
	Items []Notification `json:"items"`
}

// Add appends n, keeping at most limit items (oldest dropped). limit <= 0
// means unbounded.
func Add(s State, n Notification, limit int) State {
	items := make([]Notification, 0, len(s.Items)+1)
	items = append(items, s.Items...)
	items = append(items, n)
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return State{Items: items}
}

// Remove drops the notification with the given id.
func Remove(s State, id string) State {
	items := make([]Notification, 0, len(s.Items))
	for _, n := range s.Items {
		if n.ID != id {
			items = append(items, n)
		}
	}
	return State{Items: items}
}

// Clear empties the state.
func Clear(State) State {
	return State{Items: []Notification{}}
}
