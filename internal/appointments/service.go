package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carenest/patient-portal/internal/cache"
	"github.com/carenest/patient-portal/internal/careapi"
	"github.com/carenest/patient-portal/pkg/logging"
)

var appointmentsTracer = otel.Tracer("carenest.internal.appointments")

// Lister lists the authenticated patient's appointments.
type Lister interface {
	ListAppointments(ctx context.Context) ([]careapi.Appointment, error)
}

// Service serves the patient's appointments and the upcoming projection,
// cached per patient.
type Service struct {
	lister Lister
	cache  cache.Cache
	ttl    time.Duration
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates the service. A nil cache disables caching.
func NewService(lister Lister, c cache.Cache, ttl time.Duration, logger *logging.Logger) *Service {
	if lister == nil {
		panic("appointments: lister cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{lister: lister, cache: c, ttl: ttl, logger: logger, now: time.Now}
}

func listKey(userID string) string { return "appointments:" + userID }

// List returns every appointment of the patient.
func (s *Service) List(ctx context.Context, userID string) ([]careapi.Appointment, error) {
	if s.cache != nil {
		var cached []careapi.Appointment
		err := s.cache.Get(ctx, listKey(userID), &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.WithContext(ctx).Warn("appointments: cache read failed", "user_id", userID, "error", err)
		}
	}
	return s.load(ctx, userID)
}

// Upcoming returns the patient's upcoming appointments, soonest first.
func (s *Service) Upcoming(ctx context.Context, userID string) ([]careapi.Appointment, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Upcoming(list, s.now(), s.logger), nil
}

// Refresh drops the cached list and reloads it from the care API.
func (s *Service) Refresh(ctx context.Context, userID string) error {
	_, err := s.load(ctx, userID)
	return err
}

// Forget drops the cached list. It matches auth.LogoutHook.
func (s *Service) Forget(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, listKey(userID)); err != nil {
		s.logger.WithContext(ctx).Warn("appointments: cache delete failed", "user_id", userID, "error", err)
	}
}

func (s *Service) load(ctx context.Context, userID string) ([]careapi.Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.refresh")
	defer span.End()
	span.SetAttributes(attribute.String("patient.user_id", userID))

	list, err := s.lister.ListAppointments(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	if list == nil {
		list = []careapi.Appointment{}
	}
	span.SetAttributes(attribute.Int("appointments.count", len(list)))

	if s.cache != nil {
		if err := s.cache.Set(ctx, listKey(userID), list, s.ttl); err != nil {
			s.logger.WithContext(ctx).Warn("appointments: cache write failed", "user_id", userID, "error", err)
		}
	}
	return list, nil
}
