package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carenest/patient-portal/internal/i18n"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func sampleConfirmation(lang string) Confirmation {
	return Confirmation{
		PatientEmail: "pat@example.com",
		PatientName:  "Pat Martin",
		Language:     lang,
		DoctorName:   "Dr. Dupont",
		Date:         "2025-03-14",
		Time:         "10:00",
		Reason:       "Routine checkup",
	}
}

func TestConfirmationMailerRendersLocalized(t *testing.T) {
	sender := &recordingSender{}
	m := NewConfirmationMailer(sender, i18n.MustLoad("fr"), nil)

	require.NoError(t, m.SendConfirmation(context.Background(), sampleConfirmation("fr")))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "Confirmation de votre rendez-vous", msg.Subject)
	assert.Contains(t, msg.Body, "Bonjour Pat Martin")
	assert.Contains(t, msg.Body, "Dr. Dupont")
	assert.Contains(t, msg.Body, "2025-03-14")
	assert.Contains(t, msg.Body, "10:00")

	en := m.Render(sampleConfirmation("en-GB"))
	assert.Equal(t, "Your appointment confirmation", en.Subject)
}

func TestConfirmationMailerSkipsMissingAddress(t *testing.T) {
	sender := &recordingSender{}
	m := NewConfirmationMailer(sender, i18n.MustLoad("fr"), nil)

	c := sampleConfirmation("fr")
	c.PatientEmail = " "
	require.NoError(t, m.SendConfirmation(context.Background(), c))
	assert.Empty(t, sender.sent)
}

func TestConfirmationMailerWrapsSendError(t *testing.T) {
	boom := errors.New("smtp down")
	m := NewConfirmationMailer(&recordingSender{err: boom}, i18n.MustLoad("fr"), nil)
	assert.ErrorIs(t, m.SendConfirmation(context.Background(), sampleConfirmation("fr")), boom)
}

func TestNewConfirmationMailerPanicsOnNilDeps(t *testing.T) {
	assert.Panics(t, func() { NewConfirmationMailer(nil, i18n.MustLoad("fr"), nil) })
	assert.Panics(t, func() { NewConfirmationMailer(&recordingSender{}, nil, nil) })
}
