package booking

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/carenest/patient-portal/internal/careapi"
)

// The functions below are the wizard's transitions. They never mutate their
// input and perform no I/O; callers persist the returned snapshot.

// Open starts a booking with doctor. Unavailable doctors are rejected.
func Open(doctor careapi.Doctor, draftID string) (State, error) {
	if !doctor.Available {
		return State{}, ErrDoctorUnavailable
	}
	return State{
		Open: true,
		Step: StepReason,
		Draft: &Draft{
			ID:     draftID,
			Doctor: doctor,
			Type:   careapi.ConsultationInPerson,
		},
		Slots: []string{},
	}, nil
}

// UpdateDetails edits the step 1 fields.
func UpdateDetails(s State, d Details, rules Rules) (State, error) {
	if err := editable(s); err != nil {
		return s, err
	}
	if s.Step != StepReason {
		return s, ErrInvalidStep
	}
	next := s.clone()
	if d.Reason != nil {
		if rules.ReasonMaxLength > 0 && reasonLength(*d.Reason) > rules.ReasonMaxLength {
			return s, ErrReasonTooLong
		}
		next.Draft.Reason = *d.Reason
	}
	if d.ConsultationType != nil {
		ct, err := careapi.ParseConsultationType(*d.ConsultationType)
		if err != nil {
			return s, fmt.Errorf("%w: %v", ErrInvalidConsultationType, err)
		}
		next.Draft.Type = ct
	}
	if d.Symptoms != nil {
		next.Draft.Symptoms = *d.Symptoms
	}
	return next, nil
}

// Advance moves to the next step when the current step's fields are valid.
func Advance(s State, rules Rules) (State, error) {
	if err := editable(s); err != nil {
		return s, err
	}
	next := s.clone()
	switch s.Step {
	case StepReason:
		n := reasonLength(s.Draft.Reason)
		if n < rules.ReasonMinLength {
			return s, ErrReasonTooShort
		}
		if rules.ReasonMaxLength > 0 && n > rules.ReasonMaxLength {
			return s, ErrReasonTooLong
		}
		next.Step = StepSchedule
	case StepSchedule:
		if s.Draft.Time == "" {
			return s, ErrTimeRequired
		}
		next.Step = StepPayment
	default:
		return s, ErrInvalidStep
	}
	return next, nil
}

// Back returns to the previous step, keeping what was entered. On step 1 it
// is a no-op.
func Back(s State) (State, error) {
	if err := editable(s); err != nil {
		return s, err
	}
	if s.Step <= StepReason {
		return s, nil
	}
	next := s.clone()
	next.Step--
	return next, nil
}

// SelectDate picks the appointment day. The selected time is cleared and a
// new slot lookup is requested under a fresh generation. today is the
// current calendar day in the clinic's time zone (YYYY-MM-DD).
func SelectDate(s State, date, today string) (State, SlotRequest, error) {
	if err := editable(s); err != nil {
		return s, SlotRequest{}, err
	}
	if s.Step != StepSchedule {
		return s, SlotRequest{}, ErrInvalidStep
	}
	date = strings.TrimSpace(date)
	if date == "" {
		return s, SlotRequest{}, ErrDateRequired
	}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return s, SlotRequest{}, ErrInvalidDate
	}
	date = day.Format(dateLayout)
	if today != "" && date < today {
		return s, SlotRequest{}, ErrDateInPast
	}

	next := s.clone()
	next.Draft.Date = date
	next.Draft.Time = ""
	next.Slots = []string{}
	next.SlotsLoading = true
	next.SlotsFallback = false
	next.Generation++
	return next, SlotRequest{
		DraftID:    s.Draft.ID,
		DoctorID:   s.Draft.Doctor.ID,
		Date:       date,
		Generation: next.Generation,
	}, nil
}

// ApplySlots stores a slot lookup result. Results from another draft or a
// superseded generation are discarded and reported as not applied.
func ApplySlots(s State, r SlotResult) (State, bool) {
	if !s.Open || s.Confirmed || s.Draft == nil {
		return s, false
	}
	if r.DraftID != s.Draft.ID || r.Generation != s.Generation {
		return s, false
	}
	next := s.clone()
	next.Slots = append([]string{}, r.Slots...)
	next.SlotsLoading = false
	next.SlotsFallback = r.Fallback
	return next, true
}

// SelectTime picks one of the slots currently offered.
func SelectTime(s State, label string) (State, error) {
	if err := editable(s); err != nil {
		return s, err
	}
	if s.Step != StepSchedule {
		return s, ErrInvalidStep
	}
	label = strings.TrimSpace(label)
	switch {
	case s.Draft.Date == "":
		return s, ErrDateRequired
	case s.SlotsLoading:
		return s, ErrSlotsLoading
	case label == "":
		return s, ErrTimeRequired
	case !slices.Contains(s.Slots, label):
		return s, ErrSlotUnavailable
	}
	next := s.clone()
	next.Draft.Time = label
	return next, nil
}

// SetPayment records the card fields on the payment step.
func SetPayment(s State, p Payment) (State, error) {
	if err := editable(s); err != nil {
		return s, err
	}
	if s.Step != StepPayment {
		return s, ErrInvalidStep
	}
	next := s.clone()
	next.Draft.Payment = p
	return next, nil
}

// ReadyToSubmit reports why s cannot be submitted, or nil. Card fields are
// checked for presence only.
func ReadyToSubmit(s State) error {
	if err := editable(s); err != nil {
		return err
	}
	if s.Step != StepPayment {
		return ErrInvalidStep
	}
	d := s.Draft
	if d.Doctor.ID == "" || d.Date == "" || d.Time == "" || strings.TrimSpace(d.Reason) == "" {
		return ErrIncomplete
	}
	if !d.Payment.Complete() {
		return ErrPaymentRequired
	}
	return nil
}

// MarkConfirmed enters the terminal Confirmed state. Card fields are dropped.
func MarkConfirmed(s State, appointmentID string) State {
	next := s.clone()
	next.Confirmed = true
	next.AppointmentID = appointmentID
	if next.Draft != nil {
		next.Draft.Payment = Payment{}
	}
	return next
}

// Cancel discards the draft, whatever the step.
func Cancel(State) State {
	return State{}
}

func editable(s State) error {
	if !s.Open || s.Draft == nil {
		return ErrNoDraft
	}
	if s.Confirmed {
		return ErrAlreadyConfirmed
	}
	return nil
}

func reasonLength(reason string) int {
	return utf8.RuneCountInString(strings.TrimSpace(reason))
}
