package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carenest/patient-portal/internal/booking"
	"github.com/carenest/patient-portal/pkg/logging"
)

var bookingsTracer = otel.Tracer("carenest.internal.bookings")

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 50
)

// Ledger records confirmed bookings and lists them back.
type Ledger struct {
	repo   *Repository
	logger *logging.Logger
	now    func() time.Time
}

// NewLedger constructs a ledger.
func NewLedger(repo *Repository, logger *logging.Logger) *Ledger {
	if repo == nil {
		panic("bookings: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Ledger{repo: repo, logger: logger, now: time.Now}
}

// Record implements booking.Recorder.
func (l *Ledger) Record(ctx context.Context, c booking.Confirmation) error {
	ctx, span := bookingsTracer.Start(ctx, "bookings.record")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.appointment_id", c.AppointmentID),
		attribute.String("booking.doctor_id", c.DoctorID),
	)

	rec := Record{
		ID:               uuid.New(),
		AppointmentID:    c.AppointmentID,
		UserID:           c.UserID,
		DoctorID:         c.DoctorID,
		DoctorName:       c.DoctorName,
		ConsultationType: string(c.Type),
		Reason:           c.Reason,
		CreatedAt:        l.now().UTC(),
	}
	if !c.ScheduledFor.IsZero() {
		at := c.ScheduledFor.UTC()
		rec.ScheduledFor = &at
	}
	if rec.AppointmentID == "" {
		rec.AppointmentID = c.DraftID
	}

	inserted, err := l.repo.Insert(ctx, rec)
	if err != nil {
		span.RecordError(err)
		return err
	}
	l.logger.WithContext(ctx).Info("booking recorded", "user_id", c.UserID, "appointment_id", rec.AppointmentID, "inserted", inserted)
	return nil
}

// Recent lists the patient's latest bookings. limit is clamped to [1, 50],
// 10 when unset.
func (l *Ledger) Recent(ctx context.Context, userID string, limit int) ([]Record, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentLimit
	case limit > maxRecentLimit:
		limit = maxRecentLimit
	}
	return l.repo.ListRecent(ctx, userID, int32(limit))
}

var _ booking.Recorder = (*Ledger)(nil)
