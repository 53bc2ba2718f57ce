package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/carenest/patient-portal/internal/i18n"
	"github.com/carenest/patient-portal/pkg/logging"
)

// Confirmation describes a freshly booked appointment for the patient's
// confirmation email.
type Confirmation struct {
	PatientEmail string
	PatientName  string
	Language     string
	DoctorName   string
	Date         string
	Time         string
	Reason       string
}

// ConfirmationMailer renders localized booking confirmations and hands them
// to an EmailSender.
type ConfirmationMailer struct {
	sender  EmailSender
	catalog *i18n.Catalog
	logger  *logging.Logger
}

// NewConfirmationMailer wires a mailer. sender and catalog are required.
func NewConfirmationMailer(sender EmailSender, catalog *i18n.Catalog, logger *logging.Logger) *ConfirmationMailer {
	if sender == nil {
		panic("notify: email sender cannot be nil")
	}
	if catalog == nil {
		panic("notify: catalog cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ConfirmationMailer{sender: sender, catalog: catalog, logger: logger}
}

// Render builds the email without sending it.
func (m *ConfirmationMailer) Render(c Confirmation) EmailMessage {
	return EmailMessage{
		To:      c.PatientEmail,
		ToName:  c.PatientName,
		Subject: m.catalog.T(c.Language, "booking.email.subject"),
		Body: m.catalog.T(c.Language, "booking.email.body",
			"patient", c.PatientName,
			"doctor", c.DoctorName,
			"date", c.Date,
			"time", c.Time,
			"reason", c.Reason,
		),
	}
}

// SendConfirmation renders and sends the confirmation. Patients without an
// email address are skipped.
func (m *ConfirmationMailer) SendConfirmation(ctx context.Context, c Confirmation) error {
	if strings.TrimSpace(c.PatientEmail) == "" {
		m.logger.WithContext(ctx).Debug("confirmation email skipped: no address", "doctor", c.DoctorName)
		return nil
	}
	if err := m.sender.Send(ctx, m.Render(c)); err != nil {
		return fmt.Errorf("notify: send confirmation: %w", err)
	}
	return nil
}
