package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carenest/patient-portal/internal/careapi"
	"github.com/carenest/patient-portal/internal/observability/metrics"
	"github.com/carenest/patient-portal/pkg/logging"
)

// AppointmentCreator books an appointment with the care API.
type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, req careapi.CreateAppointmentRequest) (*careapi.Appointment, error)
}

var errNoAppointment = errors.New("care api returned no appointment")

// Submitter turns a complete draft into an appointment.
type Submitter struct {
	creator AppointmentCreator
	loc     *time.Location
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewSubmitter creates a submitter. loc is the clinic time zone used to
// build the appointment timestamp (UTC when nil).
func NewSubmitter(creator AppointmentCreator, loc *time.Location, m *metrics.BookingMetrics, logger *logging.Logger) *Submitter {
	if creator == nil {
		panic("booking: appointment creator cannot be nil")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Submitter{creator: creator, loc: loc, metrics: m, logger: logger, now: time.Now}
}

// BuildRequest maps a draft to the create-appointment body. Card fields are
// not part of it.
func (s *Submitter) BuildRequest(d Draft) (careapi.CreateAppointmentRequest, error) {
	at, err := time.ParseInLocation(dateLayout+" 15:04", d.Date+" "+d.Time, s.loc)
	if err != nil {
		return careapi.CreateAppointmentRequest{}, fmt.Errorf("%w: %v", ErrIncomplete, err)
	}
	ct := d.Type
	if ct == "" {
		ct = careapi.ConsultationInPerson
	}
	return careapi.CreateAppointmentRequest{
		DoctorID: d.Doctor.ID,
		DateTime: at.Format(time.RFC3339),
		Duration: AppointmentDuration,
		Type:     ct,
		Reason:   strings.TrimSpace(d.Reason),
		Notes:    strings.TrimSpace(d.Symptoms),
	}, nil
}

// Submit validates s and creates the appointment. Errors from the care API
// are wrapped in ErrSubmitFailed.
func (s *Submitter) Submit(ctx context.Context, st State) (*careapi.Appointment, error) {
	if err := ReadyToSubmit(st); err != nil {
		return nil, err
	}
	req, err := s.BuildRequest(*st.Draft)
	if err != nil {
		return nil, err
	}

	ctx, span := bookingTracer.Start(ctx, "booking.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.draft_id", st.Draft.ID),
		attribute.String("booking.doctor_id", req.DoctorID),
		attribute.String("booking.type", string(req.Type)),
	)

	start := s.now()
	appt, err := s.creator.CreateAppointment(ctx, req)
	elapsed := s.now().Sub(start).Seconds()
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveSubmission("error", elapsed)
		s.logger.WithContext(ctx).Error("appointment submission failed",
			"draft_id", st.Draft.ID, "doctor_id", req.DoctorID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	if appt == nil {
		span.RecordError(errNoAppointment)
		s.metrics.ObserveSubmission("error", elapsed)
		s.logger.WithContext(ctx).Error("appointment submission returned no appointment",
			"draft_id", st.Draft.ID, "doctor_id", req.DoctorID)
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, errNoAppointment)
	}
	s.metrics.ObserveSubmission("ok", elapsed)
	s.logger.WithContext(ctx).Info("appointment created",
		"draft_id", st.Draft.ID, "appointment_id", appt.ID, "doctor_id", req.DoctorID)
	return appt, nil
}
