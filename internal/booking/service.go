package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carenest/patient-portal/internal/auth"
	"github.com/carenest/patient-portal/internal/careapi"
	"github.com/carenest/patient-portal/internal/i18n"
	"github.com/carenest/patient-portal/internal/notify"
	"github.com/carenest/patient-portal/internal/observability/metrics"
	"github.com/carenest/patient-portal/pkg/logging"
)

// DoctorLookup finds a doctor in the directory.
type DoctorLookup interface {
	Find(ctx context.Context, doctorID string) (careapi.Doctor, bool, error)
}

// Notifier relays a message to the patient.
type Notifier interface {
	Notify(ctx context.Context, userID string, severity notify.Severity, message string) notify.Notification
}

// Refresher reloads the patient's upcoming appointments.
type Refresher interface {
	Refresh(ctx context.Context, userID string) error
}

// Confirmation is handed to the Recorder once an appointment is booked.
type Confirmation struct {
	AppointmentID string
	DraftID       string
	UserID        string
	DoctorID      string
	DoctorName    string
	ScheduledFor  time.Time
	Type          careapi.ConsultationType
	Reason        string
}

// Recorder keeps a ledger of confirmed bookings.
type Recorder interface {
	Record(ctx context.Context, c Confirmation) error
}

// Mailer sends the patient a confirmation email.
type Mailer interface {
	SendConfirmation(ctx context.Context, c notify.Confirmation) error
}

// Config tunes the service.
type Config struct {
	Rules             Rules
	Location          *time.Location
	ConfirmationDelay time.Duration
}

// Option configures optional collaborators.
type Option func(*Service)

func WithRefresher(r Refresher) Option { return func(s *Service) { s.refresher = r } }
func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }
func WithMailer(m Mailer) Option { return func(s *Service) { s.mailer = m } }
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service runs one booking wizard per patient. Mutations of a patient's
// wizard are serialized; slot lookups and the post-confirmation close run in
// the background.
type Service struct {
	store     DraftStore
	doctors   DoctorLookup
	fetcher   *SlotFetcher
	submitter *Submitter
	notifier  Notifier
	catalog   *i18n.Catalog
	cfg       Config

	refresher Refresher
	recorder  Recorder
	mailer    Mailer
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger

	locks *keyedMutex
	now   func() time.Time
	after func(time.Duration, func())
	spawn func(func())
	newID func() string
}

// NewService wires the booking service. All positional dependencies are
// required.
func NewService(store DraftStore, doctors DoctorLookup, fetcher *SlotFetcher, submitter *Submitter, notifier Notifier, catalog *i18n.Catalog, cfg Config, logger *logging.Logger, opts ...Option) *Service {
	switch {
	case store == nil:
		panic("booking: draft store cannot be nil")
	case doctors == nil:
		panic("booking: doctor lookup cannot be nil")
	case fetcher == nil:
		panic("booking: slot fetcher cannot be nil")
	case submitter == nil:
		panic("booking: submitter cannot be nil")
	case notifier == nil:
		panic("booking: notifier cannot be nil")
	case catalog == nil:
		panic("booking: catalog cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Rules == (Rules{}) {
		cfg.Rules = DefaultRules()
	}
	s := &Service{
		store:     store,
		doctors:   doctors,
		fetcher:   fetcher,
		submitter: submitter,
		notifier:  notifier,
		catalog:   catalog,
		cfg:       cfg,
		logger:    logger,
		locks:     newKeyedMutex(),
		now:       time.Now,
		after:     func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		spawn:     func(f func()) { go f() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the patient's wizard state.
func (s *Service) Current(ctx context.Context, userID string) (State, error) {
	return s.store.Load(ctx, userID)
}

// Open starts a booking with doctorID, replacing any draft in progress.
func (s *Service) Open(ctx context.Context, userID, doctorID string) (State, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	current, err := s.store.Load(ctx, userID)
	if err != nil {
		return State{}, err
	}
	doctor, found, err := s.doctors.Find(ctx, doctorID)
	if err != nil {
		return current, fmt.Errorf("booking: find doctor: %w", err)
	}
	if !found {
		return current, s.reject(ctx, userID, "open", ErrDoctorNotFound)
	}
	next, err := Open(doctor, s.newID())
	if err != nil {
		return current, s.reject(ctx, userID, "open", err)
	}
	return s.commit(ctx, userID, "open", next)
}

// UpdateDetails edits reason, consultation type and symptoms.
func (s *Service) UpdateDetails(ctx context.Context, userID string, d Details) (State, error) {
	return s.mutate(ctx, userID, "update_details", func(st State) (State, error) {
		return UpdateDetails(st, d, s.cfg.Rules)
	})
}

// Next advances to the following step.
func (s *Service) Next(ctx context.Context, userID string) (State, error) {
	return s.mutate(ctx, userID, "next", func(st State) (State, error) {
		return Advance(st, s.cfg.Rules)
	})
}

// Back returns to the previous step.
func (s *Service) Back(ctx context.Context, userID string) (State, error) {
	return s.mutate(ctx, userID, "back", Back)
}

// SelectDate picks the day and starts a slot lookup in the background.
func (s *Service) SelectDate(ctx context.Context, userID, date string) (State, error) {
	var req SlotRequest
	st, err := s.mutate(ctx, userID, "select_date", func(st State) (State, error) {
		today := s.now().In(s.cfg.Location).Format(dateLayout)
		next, r, err := SelectDate(st, date, today)
		req = r
		return next, err
	})
	if err != nil {
		return st, err
	}

	bg := context.WithoutCancel(ctx)
	s.spawn(func() {
		s.applySlots(bg, userID, s.fetcher.Fetch(bg, req))
	})
	return st, nil
}

func (s *Service) applySlots(ctx context.Context, userID string, res SlotResult) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	current, err := s.store.Load(ctx, userID)
	if err != nil {
		s.logger.WithContext(ctx).Error("booking: load draft for slots failed", "user_id", userID, "error", err)
		return
	}
	next, applied := ApplySlots(current, res)
	if !applied {
		s.metrics.ObserveSlotFetch("stale")
		s.logger.WithContext(ctx).Debug("discarding stale slot result",
			"user_id", userID, "generation", res.Generation, "current", current.Generation)
		return
	}
	if err := s.store.Save(ctx, userID, next); err != nil {
		s.logger.WithContext(ctx).Error("booking: save slots failed", "user_id", userID, "error", err)
	}
}

// SelectTime picks one of the offered slots.
func (s *Service) SelectTime(ctx context.Context, userID, label string) (State, error) {
	return s.mutate(ctx, userID, "select_time", func(st State) (State, error) {
		return SelectTime(st, label)
	})
}

// Confirm submits the booking with the given card fields. On success the
// wizard shows the confirmation, then closes after the configured delay and
// refreshes the upcoming appointments once. On failure it stays on the
// payment step.
func (s *Service) Confirm(ctx context.Context, userID string, p Payment) (State, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	current, err := s.store.Load(ctx, userID)
	if err != nil {
		return State{}, err
	}
	withPayment, err := SetPayment(current, p)
	if err == nil {
		err = ReadyToSubmit(withPayment)
	}
	if err != nil {
		return current, s.reject(ctx, userID, "confirm", err)
	}

	appt, err := s.submitter.Submit(ctx, withPayment)
	if err != nil && IsValidation(err) {
		return current, s.reject(ctx, userID, "confirm", err)
	}
	if err != nil {
		s.metrics.ObserveTransition("confirm", err)
		s.notify(ctx, userID, notify.SeverityError, ErrSubmitFailed)
		return current, err
	}
	// The appointment exists from here on. If the confirmed draft cannot be
	// stored, the draft is dropped so it cannot be submitted again.
	confirmed := MarkConfirmed(withPayment, appt.ID)
	if err := s.store.Save(ctx, userID, confirmed); err != nil {
		s.logger.WithContext(ctx).Error("booking: save confirmed draft failed", "user_id", userID, "appointment_id", appt.ID, "error", err)
		if err := s.store.Delete(ctx, userID); err != nil {
			s.logger.WithContext(ctx).Error("booking: drop submitted draft failed", "user_id", userID, "error", err)
		}
	}
	s.metrics.ObserveTransition("confirm", nil)

	d := confirmed.Draft
	lang := s.language(ctx)
	s.notifier.Notify(ctx, userID, notify.SeveritySuccess, s.catalog.T(lang, "booking.success.confirmed",
		"doctor", d.Doctor.Name, "date", d.Date, "time", d.Time))

	bg := context.WithoutCancel(ctx)
	s.record(ctx, userID, confirmed, appt)
	if s.mailer != nil {
		s.spawn(func() { s.mail(bg, confirmed) })
	}
	s.after(s.cfg.ConfirmationDelay, func() { s.finish(bg, userID, d.ID) })
	return confirmed, nil
}

// finish closes the submitted wizard and refreshes the appointments. A draft
// opened meanwhile is left alone.
func (s *Service) finish(ctx context.Context, userID, draftID string) {
	unlock := s.locks.Lock(userID)
	current, err := s.store.Load(ctx, userID)
	if err == nil && current.Draft != nil && current.Draft.ID == draftID {
		err = s.store.Delete(ctx, userID)
	}
	unlock()
	if err != nil {
		s.logger.WithContext(ctx).Error("booking: close confirmed wizard failed", "user_id", userID, "error", err)
	}

	if s.refresher == nil {
		return
	}
	if err := s.refresher.Refresh(ctx, userID); err != nil {
		s.logger.WithContext(ctx).Warn("appointments refresh after booking failed", "user_id", userID, "error", err)
	}
}

// Cancel discards the draft at any step.
func (s *Service) Cancel(ctx context.Context, userID string) (State, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.store.Delete(ctx, userID); err != nil {
		return State{}, err
	}
	s.metrics.ObserveTransition("cancel", nil)
	return Cancel(State{}), nil
}

// Discard drops the patient's draft. It matches auth.LogoutHook.
func (s *Service) Discard(ctx context.Context, userID string) {
	if _, err := s.Cancel(ctx, userID); err != nil {
		s.logger.WithContext(ctx).Warn("booking: discard draft failed", "user_id", userID, "error", err)
	}
}

// Message renders err for the patient, or "" when err is not a booking error.
func (s *Service) Message(lang string, err error) string {
	key := MessageKey(err)
	if key == "" {
		return ""
	}
	return s.catalog.T(lang, key, "min", s.cfg.Rules.ReasonMinLength, "max", s.cfg.Rules.ReasonMaxLength)
}

func (s *Service) mutate(ctx context.Context, userID, name string, fn func(State) (State, error)) (State, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	current, err := s.store.Load(ctx, userID)
	if err != nil {
		return State{}, err
	}
	next, err := fn(current)
	if err != nil {
		return current, s.reject(ctx, userID, name, err)
	}
	return s.commit(ctx, userID, name, next)
}

func (s *Service) commit(ctx context.Context, userID, name string, next State) (State, error) {
	if err := s.store.Save(ctx, userID, next); err != nil {
		return next, err
	}
	s.metrics.ObserveTransition(name, nil)
	return next, nil
}

// reject reports a validation failure to the patient and returns err.
func (s *Service) reject(ctx context.Context, userID, name string, err error) error {
	s.metrics.ObserveTransition(name, err)
	if IsValidation(err) {
		s.notify(ctx, userID, notify.SeverityError, err)
	}
	s.logger.WithContext(ctx).Debug("booking transition rejected", "user_id", userID, "transition", name, "error", err)
	return err
}

func (s *Service) notify(ctx context.Context, userID string, sev notify.Severity, err error) {
	s.notifier.Notify(ctx, userID, sev, s.Message(s.language(ctx), err))
}

func (s *Service) language(ctx context.Context) string {
	if p, ok := auth.PrincipalFromContext(ctx); ok && p.Language != "" {
		return s.catalog.Normalize(p.Language)
	}
	return s.catalog.Fallback()
}

func (s *Service) record(ctx context.Context, userID string, st State, appt *careapi.Appointment) {
	if s.recorder == nil {
		return
	}
	d := st.Draft
	var scheduled time.Time
	if req, err := s.submitter.BuildRequest(*d); err == nil {
		scheduled, _ = time.Parse(time.RFC3339, req.DateTime)
	}
	err := s.recorder.Record(ctx, Confirmation{
		AppointmentID: appt.ID,
		DraftID:       d.ID,
		UserID:        userID,
		DoctorID:      d.Doctor.ID,
		DoctorName:    d.Doctor.Name,
		ScheduledFor:  scheduled,
		Type:          d.Type,
		Reason:        d.Reason,
	})
	if err != nil {
		s.logger.WithContext(ctx).Warn("booking ledger write failed", "user_id", userID, "appointment_id", appt.ID, "error", err)
	}
}

func (s *Service) mail(ctx context.Context, st State) {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return
	}
	d := st.Draft
	err := s.mailer.SendConfirmation(ctx, notify.Confirmation{
		PatientEmail: p.Email,
		PatientName:  p.Name,
		Language:     s.language(ctx),
		DoctorName:   d.Doctor.Name,
		Date:         d.Date,
		Time:         d.Time,
		Reason:       d.Reason,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WithContext(ctx).Warn("confirmation email failed", "user_id", p.UserID, "error", err)
	}
}
