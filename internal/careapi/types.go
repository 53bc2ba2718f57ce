package careapi

import (
	"fmt"
	"strings"
)

// ConsultationType is how the patient will see the doctor.
type ConsultationType string

const (
	ConsultationInPerson         ConsultationType = "in_person"
	ConsultationTeleconsultation ConsultationType = "teleconsultation"
	ConsultationHomeVisit        ConsultationType = "home_visit"
)

// ParseConsultationType accepts the canonical values plus the hyphenated
// spellings used by the web client. Empty input yields in-person.
func ParseConsultationType(raw string) (ConsultationType, error) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, "-", "_"))) {
	case "", "in_person", "inperson":
		return ConsultationInPerson, nil
	case "teleconsultation", "video":
		return ConsultationTeleconsultation, nil
	case "home_visit", "homevisit":
		return ConsultationHomeVisit, nil
	default:
		return "", fmt.Errorf("careapi: unknown consultation type %q", raw)
	}
}

// Appointment statuses reported by the care API.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Doctor is a practitioner as listed by the care API.
type Doctor struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Specialty      string   `json:"specialty"`
	Available      bool     `json:"available"`
	AvailableTimes []string `json:"availableTimes,omitempty"`
	Price          float64  `json:"price"`
}

// Appointment is owned by the care API. DateTime is kept raw so callers can
// decide how to treat malformed timestamps.
type Appointment struct {
	ID       string           `json:"id"`
	DoctorID string           `json:"doctorId"`
	Doctor   *Doctor          `json:"doctor,omitempty"`
	DateTime string           `json:"dateTime"`
	Duration int              `json:"duration"`
	Status   string           `json:"status"`
	Type     ConsultationType `json:"type"`
	Reason   string           `json:"reason"`
	Notes    string           `json:"notes,omitempty"`
}

// CreateAppointmentRequest is the body of POST /appointments.
type CreateAppointmentRequest struct {
	DoctorID string           `json:"doctorId"`
	DateTime string           `json:"dateTime"`
	Duration int              `json:"duration"`
	Type     ConsultationType `json:"type"`
	Reason   string           `json:"reason"`
	Notes    string           `json:"notes,omitempty"`
}

// User is the authenticated patient profile.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role,omitempty"`
	Language  string `json:"language,omitempty"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Credentials are posted to the login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned by a successful login.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
