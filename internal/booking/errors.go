package booking

import "errors"

var (
	ErrNoDraft                 = errors.New("booking: no booking in progress")
	ErrDoctorNotFound          = errors.New("booking: doctor not found")
	ErrDoctorUnavailable       = errors.New("booking: doctor unavailable")
	ErrReasonTooShort          = errors.New("booking: reason too short")
	ErrReasonTooLong           = errors.New("booking: reason too long")
	ErrDateRequired            = errors.New("booking: date required")
	ErrInvalidDate             = errors.New("booking: invalid date")
	ErrDateInPast              = errors.New("booking: date in the past")
	ErrTimeRequired            = errors.New("booking: time required")
	ErrSlotUnavailable         = errors.New("booking: slot unavailable")
	ErrSlotsLoading            = errors.New("booking: slots still loading")
	ErrPaymentRequired         = errors.New("booking: payment fields required")
	ErrIncomplete              = errors.New("booking: draft incomplete")
	ErrAlreadyConfirmed        = errors.New("booking: already confirmed")
	ErrInvalidStep             = errors.New("booking: invalid step for this action")
	ErrInvalidConsultationType = errors.New("booking: invalid consultation type")
	ErrSubmitFailed            = errors.New("booking: submission failed")
)

var messageKeys = []struct {
	err error
	key string
}{
	{ErrNoDraft, "booking.error.no_draft"},
	{ErrDoctorNotFound, "booking.error.doctor_not_found"},
	{ErrDoctorUnavailable, "booking.error.doctor_unavailable"},
	{ErrReasonTooShort, "booking.error.reason_too_short"},
	{ErrReasonTooLong, "booking.error.reason_too_long"},
	{ErrDateRequired, "booking.error.date_required"},
	{ErrInvalidDate, "booking.error.invalid_date"},
	{ErrDateInPast, "booking.error.date_in_past"},
	{ErrTimeRequired, "booking.error.time_required"},
	{ErrSlotUnavailable, "booking.error.slot_unavailable"},
	{ErrSlotsLoading, "booking.error.slots_loading"},
	{ErrPaymentRequired, "booking.error.payment_required"},
	{ErrIncomplete, "booking.error.incomplete"},
	{ErrAlreadyConfirmed, "booking.error.already_confirmed"},
	{ErrInvalidStep, "booking.error.invalid_step"},
	{ErrInvalidConsultationType, "booking.error.invalid_consultation_type"},
	{ErrSubmitFailed, "booking.error.submit_failed"},
}

// MessageKey returns the i18n key describing err, or "" for errors that are
// not booking validation errors.
func MessageKey(err error) string {
	for _, m := range messageKeys {
		if errors.Is(err, m.err) {
			return m.key
		}
	}
	return ""
}

// IsValidation reports whether err is a local validation failure that keeps
// the wizard on its current step.
func IsValidation(err error) bool {
	return MessageKey(err) != "" && !errors.Is(err, ErrSubmitFailed)
}
