package booking

import (
	"strings"

	"github.com/carenest/patient-portal/internal/careapi"
)

// Step is the wizard page the patient is on.
type Step int

const (
	StepReason   Step = 1
	StepSchedule Step = 2
	StepPayment  Step = 3
)

func (s Step) String() string {
	switch s {
	case StepReason:
		return "reason"
	case StepSchedule:
		return "schedule"
	case StepPayment:
		return "payment"
	default:
		return "closed"
	}
}

// FallbackSlots replace the care API's answer when the slot lookup fails.
var FallbackSlots = []string{"09:00", "10:00", "11:00", "14:00", "15:00", "16:00"}

// AppointmentDuration is the fixed length, in minutes, of booked appointments.
const AppointmentDuration = 30

const dateLayout = "2006-01-02"

// Payment holds the card fields entered on the last step. The portal only
// checks that they are present; they are never stored or forwarded.
type Payment struct {
	CardNumber string `json:"cardNumber"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
}

// Complete reports whether every field is non-blank.
func (p Payment) Complete() bool {
	return strings.TrimSpace(p.CardNumber) != "" &&
		strings.TrimSpace(p.Expiry) != "" &&
		strings.TrimSpace(p.CVV) != ""
}

// Draft is the reservation being assembled.
type Draft struct {
	ID       string                   `json:"id"`
	Doctor   careapi.Doctor           `json:"doctor"`
	Date     string                   `json:"date,omitempty"`
	Time     string                   `json:"time,omitempty"`
	Reason   string                   `json:"reason"`
	Type     careapi.ConsultationType `json:"consultationType"`
	Symptoms string                   `json:"symptoms,omitempty"`
	Payment  Payment                  `json:"-"`
}

// State is one patient's wizard snapshot. A zero State is Closed.
type State struct {
	Open          bool     `json:"open"`
	Step          Step     `json:"step"`
	Confirmed     bool     `json:"confirmed"`
	Draft         *Draft   `json:"draft,omitempty"`
	Slots         []string `json:"slots"`
	SlotsLoading  bool     `json:"slotsLoading"`
	SlotsFallback bool     `json:"slotsFallback"`
	Generation    uint64   `json:"generation"`
	AppointmentID string   `json:"appointmentId,omitempty"`
}

// Details carries the step 1 fields. Nil fields are left unchanged.
type Details struct {
	Reason           *string `json:"reason,omitempty"`
	ConsultationType *string `json:"consultationType,omitempty"`
	Symptoms         *string `json:"symptoms,omitempty"`
}

// SlotRequest asks for the slots of a doctor on a day. DraftID and
// Generation identify the wizard state that issued it; generations restart
// with every draft.
type SlotRequest struct {
	DraftID    string
	DoctorID   string
	Date       string
	Generation uint64
}

// SlotResult answers a SlotRequest.
type SlotResult struct {
	DraftID    string
	Generation uint64
	Slots      []string
	Fallback   bool
}

// Rules are the configurable validation bounds.
type Rules struct {
	ReasonMinLength int
	ReasonMaxLength int
}

// DefaultRules: reason between 5 and 500 characters.
func DefaultRules() Rules {
	return Rules{ReasonMinLength: 5, ReasonMaxLength: 500}
}

func (s State) clone() State {
	if s.Draft != nil {
		d := *s.Draft
		s.Draft = &d
	}
	if s.Slots != nil {
		s.Slots = append([]string(nil), s.Slots...)
	}
	return s
}
