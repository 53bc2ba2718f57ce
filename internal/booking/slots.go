package booking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carenest/patient-portal/internal/observability/metrics"
	"github.com/carenest/patient-portal/pkg/logging"
)

var bookingTracer = otel.Tracer("carenest.internal.booking")

// SlotSource lists the bookable time labels of a doctor on a day.
type SlotSource interface {
	GetAvailableSlots(ctx context.Context, doctorID, date string) ([]string, error)
}

// SlotFetcher looks up slots and falls back to FallbackSlots when the care
// API cannot answer.
type SlotFetcher struct {
	source  SlotSource
	timeout time.Duration
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewSlotFetcher creates a fetcher. timeout <= 0 disables the per-call
// deadline.
func NewSlotFetcher(source SlotSource, timeout time.Duration, m *metrics.BookingMetrics, logger *logging.Logger) *SlotFetcher {
	if source == nil {
		panic("booking: slot source cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotFetcher{source: source, timeout: timeout, metrics: m, logger: logger}
}

// Fetch never fails: lookup errors are logged and answered with the
// fallback slots.
func (f *SlotFetcher) Fetch(ctx context.Context, req SlotRequest) SlotResult {
	ctx, span := bookingTracer.Start(ctx, "booking.fetch_slots")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.draft_id", req.DraftID),
		attribute.String("booking.doctor_id", req.DoctorID),
		attribute.String("booking.date", req.Date),
		attribute.Int64("booking.generation", int64(req.Generation)),
	)

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	slots, err := f.source.GetAvailableSlots(ctx, req.DoctorID, req.Date)
	if err != nil {
		span.RecordError(err)
		f.metrics.ObserveSlotFetch("fallback")
		f.logger.WithContext(ctx).Warn("slot lookup failed, using fallback slots",
			"doctor_id", req.DoctorID, "date", req.Date, "error", err)
		return SlotResult{
			DraftID:    req.DraftID,
			Generation: req.Generation,
			Slots:      append([]string(nil), FallbackSlots...),
			Fallback:   true,
		}
	}

	f.metrics.ObserveSlotFetch("ok")
	if slots == nil {
		slots = []string{}
	}
	return SlotResult{DraftID: req.DraftID, Generation: req.Generation, Slots: slots}
}
