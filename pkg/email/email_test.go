package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestSMTPProvider_SendEmail(t *testing.T) {
	d := &fakeDialer{}
	p := &SMTPProvider{dialer: d, fromEmail: "alerts@shakti.example", fromName: "Shakti Shield"}

	resp, err := p.SendEmail(context.Background(), &EmailRequest{
		To:       "asha@example.com",
		Subject:  "Emergency",
		HTMLBody: "<p>help</p>",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.MessageID, "@shakti.example>")
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"asha@example.com"}, d.sent[0].GetHeader("To"))

	var buf bytes.Buffer
	_, err = d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/html")
}

func TestSMTPProvider_Errors(t *testing.T) {
	p := &SMTPProvider{dialer: &fakeDialer{err: errors.New("535 auth failed")}, fromEmail: "a@b.c"}

	_, err := p.SendEmail(context.Background(), &EmailRequest{To: "x@example.com"})
	assert.Error(t, err)

	_, err = p.SendEmail(context.Background(), &EmailRequest{To: " "})
	assert.ErrorIs(t, err, ErrEmptyRecipient)
}

func TestSimulatedProvider(t *testing.T) {
	resp, err := NewSimulatedProvider(nil).SendEmail(context.Background(), &EmailRequest{To: "x@example.com"})
	require.NoError(t, err)
	assert.True(t, resp.Simulated)
}
