package booking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carenest/patient-portal/internal/careapi"
)

var doctorD = careapi.Doctor{ID: "doc-1", Name: "Dr. Dupont", Specialty: "Généraliste", Available: true, Price: 60}

func strPtr(s string) *string { return &s }

func openAt(t *testing.T, step Step) State {
	t.Helper()
	s, err := Open(doctorD, "draft-1")
	require.NoError(t, err)
	if step == StepReason {
		return s
	}
	s, err = UpdateDetails(s, Details{Reason: strPtr("Suivi annuel")}, DefaultRules())
	require.NoError(t, err)
	s, err = Advance(s, DefaultRules())
	require.NoError(t, err)
	if step == StepSchedule {
		return s
	}
	s, req, err := SelectDate(s, "2025-03-10", "2025-03-01")
	require.NoError(t, err)
	s, _ = ApplySlots(s, SlotResult{DraftID: req.DraftID, Generation: req.Generation, Slots: []string{"10:00", "14:00"}})
	s, err = SelectTime(s, "14:00")
	require.NoError(t, err)
	s, err = Advance(s, DefaultRules())
	require.NoError(t, err)
	return s
}

func TestOpenRejectsUnavailableDoctor(t *testing.T) {
	_, err := Open(careapi.Doctor{ID: "doc-2", Available: false}, "d")
	assert.ErrorIs(t, err, ErrDoctorUnavailable)
}

func TestOpenInitializesEmptyDraft(t *testing.T) {
	s, err := Open(doctorD, "draft-1")
	require.NoError(t, err)
	assert.True(t, s.Open)
	assert.Equal(t, StepReason, s.Step)
	assert.Equal(t, "doc-1", s.Draft.Doctor.ID)
	assert.Empty(t, s.Draft.Reason)
	assert.Empty(t, s.Draft.Date)
	assert.Empty(t, s.Draft.Time)
	assert.Equal(t, Payment{}, s.Draft.Payment)
	assert.Equal(t, careapi.ConsultationInPerson, s.Draft.Type)
}

func TestAdvanceFromReasonScenarios(t *testing.T) {
	tests := []struct {
		name    string
		reason  string
		wantErr error
		want    Step
	}{
		{name: "eleven characters", reason: "Suivi annuel", want: StepSchedule},
		{name: "too short", reason: "hi", wantErr: ErrReasonTooShort, want: StepReason},
		{name: "whitespace is trimmed", reason: "   abc    ", wantErr: ErrReasonTooShort, want: StepReason},
		{name: "exactly five", reason: "fièvr", want: StepSchedule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openAt(t, StepReason)
			s, err := UpdateDetails(s, Details{Reason: strPtr(tt.reason)}, DefaultRules())
			require.NoError(t, err)
			next, err := Advance(s, DefaultRules())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, next.Step)
		})
	}
}

func TestReasonUpperBoundEnforced(t *testing.T) {
	s := openAt(t, StepReason)
	_, err := UpdateDetails(s, Details{Reason: strPtr(strings.Repeat("a", 501))}, DefaultRules())
	assert.ErrorIs(t, err, ErrReasonTooLong)

	s.Draft.Reason = strings.Repeat("a", 501)
	_, err = Advance(s, DefaultRules())
	assert.ErrorIs(t, err, ErrReasonTooLong)
}

func TestUpdateDetailsConsultationType(t *testing.T) {
	s := openAt(t, StepReason)
	next, err := UpdateDetails(s, Details{ConsultationType: strPtr("home-visit"), Symptoms: strPtr("toux")}, DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, careapi.ConsultationHomeVisit, next.Draft.Type)
	assert.Equal(t, "toux", next.Draft.Symptoms)
	assert.Equal(t, careapi.ConsultationInPerson, s.Draft.Type, "input must not be mutated")

	_, err = UpdateDetails(s, Details{ConsultationType: strPtr("video")}, DefaultRules())
	assert.ErrorIs(t, err, ErrInvalidConsultationType)
}

func TestAdvanceFromScheduleRequiresTime(t *testing.T) {
	s := openAt(t, StepSchedule)
	_, err := Advance(s, DefaultRules())
	assert.ErrorIs(t, err, ErrTimeRequired)
}

func TestSelectDateClearsTimeAndBumpsGeneration(t *testing.T) {
	s := openAt(t, StepPayment)
	s, err := Back(s)
	require.NoError(t, err)
	require.Equal(t, "14:00", s.Draft.Time)

	next, req, err := SelectDate(s, "2025-03-11", "2025-03-01")
	require.NoError(t, err)
	assert.Empty(t, next.Draft.Time)
	assert.True(t, next.SlotsLoading)
	assert.Empty(t, next.Slots)
	assert.Equal(t, s.Generation+1, next.Generation)
	assert.Equal(t, SlotRequest{DraftID: s.Draft.ID, DoctorID: "doc-1", Date: "2025-03-11", Generation: next.Generation}, req)
	assert.Equal(t, "14:00", s.Draft.Time, "input must not be mutated")
}

func TestSelectDateValidation(t *testing.T) {
	s := openAt(t, StepSchedule)
	_, _, err := SelectDate(s, "", "2025-03-01")
	assert.ErrorIs(t, err, ErrDateRequired)
	_, _, err = SelectDate(s, "10/03/2025", "2025-03-01")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, _, err = SelectDate(s, "2025-02-28", "2025-03-01")
	assert.ErrorIs(t, err, ErrDateInPast)
	_, _, err = SelectDate(openAt(t, StepReason), "2025-03-10", "2025-03-01")
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestApplySlotsDiscardsStaleGeneration(t *testing.T) {
	s := openAt(t, StepSchedule)
	s, first, err := SelectDate(s, "2025-03-10", "")
	require.NoError(t, err)
	s, second, err := SelectDate(s, "2025-03-11", "")
	require.NoError(t, err)

	s, applied := ApplySlots(s, SlotResult{DraftID: second.DraftID, Generation: second.Generation, Slots: []string{"16:00"}})
	require.True(t, applied)

	after, applied := ApplySlots(s, SlotResult{DraftID: first.DraftID, Generation: first.Generation, Slots: []string{"09:00"}})
	assert.False(t, applied)
	assert.Equal(t, []string{"16:00"}, after.Slots)
	assert.False(t, after.SlotsLoading)
}

func TestApplySlotsDiscardsResultFromAnotherDraft(t *testing.T) {
	old, err := Open(doctorD, "draft-old")
	require.NoError(t, err)
	fresh, err := Open(careapi.Doctor{ID: "doc-3", Name: "Dr. Petit", Available: true}, "draft-new")
	require.NoError(t, err)

	old, err = UpdateDetails(old, Details{Reason: strPtr("Suivi annuel")}, DefaultRules())
	require.NoError(t, err)
	old, err = Advance(old, DefaultRules())
	require.NoError(t, err)
	_, oldReq, err := SelectDate(old, "2025-03-10", "")
	require.NoError(t, err)

	fresh, err = UpdateDetails(fresh, Details{Reason: strPtr("Douleurs dorsales")}, DefaultRules())
	require.NoError(t, err)
	fresh, err = Advance(fresh, DefaultRules())
	require.NoError(t, err)
	fresh, freshReq, err := SelectDate(fresh, "2025-03-12", "")
	require.NoError(t, err)
	require.Equal(t, oldReq.Generation, freshReq.Generation)

	after, applied := ApplySlots(fresh, SlotResult{DraftID: oldReq.DraftID, Generation: oldReq.Generation, Slots: []string{"08:15"}})
	assert.False(t, applied)
	assert.True(t, after.SlotsLoading)
	assert.Empty(t, after.Slots)
}

func TestFallbackSlotsThenSelectTimeAndAdvance(t *testing.T) {
	s := openAt(t, StepSchedule)
	s, req, err := SelectDate(s, "2025-03-10", "2025-03-01")
	require.NoError(t, err)

	s, applied := ApplySlots(s, SlotResult{DraftID: req.DraftID, Generation: req.Generation, Slots: FallbackSlots, Fallback: true})
	require.True(t, applied)
	assert.Equal(t, []string{"09:00", "10:00", "11:00", "14:00", "15:00", "16:00"}, s.Slots)
	assert.False(t, s.SlotsLoading)
	assert.True(t, s.SlotsFallback)

	s, err = SelectTime(s, "14:00")
	require.NoError(t, err)
	s, err = Advance(s, DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, StepPayment, s.Step)
}

func TestSelectTimeGuards(t *testing.T) {
	s := openAt(t, StepSchedule)
	_, err := SelectTime(s, "10:00")
	assert.ErrorIs(t, err, ErrDateRequired)

	loading, _, err := SelectDate(s, "2025-03-10", "")
	require.NoError(t, err)
	_, err = SelectTime(loading, "10:00")
	assert.ErrorIs(t, err, ErrSlotsLoading)

	ready, _ := ApplySlots(loading, SlotResult{DraftID: loading.Draft.ID, Generation: loading.Generation, Slots: []string{"10:00"}})
	_, err = SelectTime(ready, "12:00")
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	_, err = SelectTime(ready, " ")
	assert.ErrorIs(t, err, ErrTimeRequired)
}

func TestBackPreservesData(t *testing.T) {
	s := openAt(t, StepPayment)
	s, err := Back(s)
	require.NoError(t, err)
	assert.Equal(t, StepSchedule, s.Step)
	s, err = Back(s)
	require.NoError(t, err)
	assert.Equal(t, StepReason, s.Step)
	assert.Equal(t, "Suivi annuel", s.Draft.Reason)
	assert.Equal(t, "2025-03-10", s.Draft.Date)
	assert.Equal(t, "14:00", s.Draft.Time)

	same, err := Back(s)
	require.NoError(t, err)
	assert.Equal(t, StepReason, same.Step)
}

func TestReadyToSubmit(t *testing.T) {
	s := openAt(t, StepPayment)
	assert.ErrorIs(t, ReadyToSubmit(s), ErrPaymentRequired)

	partial, err := SetPayment(s, Payment{CardNumber: "4242", Expiry: "12/27"})
	require.NoError(t, err)
	assert.ErrorIs(t, ReadyToSubmit(partial), ErrPaymentRequired)

	full, err := SetPayment(s, Payment{CardNumber: "4242", Expiry: "12/27", CVV: "123"})
	require.NoError(t, err)
	assert.NoError(t, ReadyToSubmit(full))

	full.Draft.Time = ""
	assert.ErrorIs(t, ReadyToSubmit(full), ErrIncomplete)

	assert.ErrorIs(t, ReadyToSubmit(openAt(t, StepSchedule)), ErrInvalidStep)
	assert.ErrorIs(t, ReadyToSubmit(State{}), ErrNoDraft)
}

func TestConfirmedIsTerminal(t *testing.T) {
	s := openAt(t, StepPayment)
	s, err := SetPayment(s, Payment{CardNumber: "4242", Expiry: "12/27", CVV: "123"})
	require.NoError(t, err)

	c := MarkConfirmed(s, "appt-1")
	assert.True(t, c.Confirmed)
	assert.Equal(t, "appt-1", c.AppointmentID)
	assert.Equal(t, Payment{}, c.Draft.Payment)

	_, err = Back(c)
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
	_, _, err = SelectDate(c, "2025-03-12", "")
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
	_, applied := ApplySlots(c, SlotResult{DraftID: c.Draft.ID, Generation: c.Generation})
	assert.False(t, applied)
}

func TestCancelDiscardsAtAnyStep(t *testing.T) {
	for _, step := range []Step{StepReason, StepSchedule, StepPayment} {
		assert.Equal(t, State{}, Cancel(openAt(t, step)))
	}
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "reason", StepReason.String())
	assert.Equal(t, "payment", StepPayment.String())
	assert.Equal(t, "closed", Step(0).String())
}
