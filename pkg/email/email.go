package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"shakti-shield/pkg/logger"
)

var ErrEmptyRecipient = errors.New("email recipient is empty")

type EmailProvider interface {
	Name() string
	SendEmail(ctx context.Context, request *EmailRequest) (*EmailResponse, error)
}

type EmailRequest struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body,omitempty"`
}

type EmailResponse struct {
	MessageID string `json:"message_id"`
	Simulated bool   `json:"simulated,omitempty"`
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	SSL       bool
}

type SMTPProvider struct {
	dialer    mailDialer
	fromEmail string
	fromName  string
}

func NewSMTPProvider(cfg SMTPConfig) *SMTPProvider {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL

	return &SMTPProvider{
		dialer:    d,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

func (s *SMTPProvider) Name() string { return "smtp" }

// SendEmail dials, sends and closes in one go. gomail has no context
// support, so cancellation is only checked before dialing.
func (s *SMTPProvider) SendEmail(ctx context.Context, request *EmailRequest) (*EmailResponse, error) {
	if strings.TrimSpace(request.To) == "" {
		return nil, ErrEmptyRecipient
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(s.fromEmail))

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.fromEmail, s.fromName)
	m.SetHeader("To", request.To)
	m.SetHeader("Subject", request.Subject)
	m.SetHeader("Message-ID", messageID)
	m.SetHeader("X-Priority", "1")
	if request.TextBody != "" {
		m.SetBody("text/plain", request.TextBody)
		m.AddAlternative("text/html", request.HTMLBody)
	} else {
		m.SetBody("text/html", request.HTMLBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return nil, fmt.Errorf("smtp send: %w", err)
	}

	return &EmailResponse{MessageID: messageID}, nil
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "localhost"
}

// SimulatedProvider logs instead of sending. Only used outside production
// when SMTP is not configured.
type SimulatedProvider struct {
	logger *logger.Logger
	seq    atomic.Int64
}

func NewSimulatedProvider(log *logger.Logger) *SimulatedProvider {
	if log == nil {
		log = logger.NewNop()
	}
	return &SimulatedProvider{logger: log}
}

func (s *SimulatedProvider) Name() string { return "simulated" }

func (s *SimulatedProvider) SendEmail(ctx context.Context, request *EmailRequest) (*EmailResponse, error) {
	if strings.TrimSpace(request.To) == "" {
		return nil, ErrEmptyRecipient
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"to":      request.To,
		"subject": request.Subject,
	}).Warn("SMTP not configured, email simulated")

	return &EmailResponse{
		MessageID: fmt.Sprintf("email_sim_%d_%d", time.Now().UnixNano(), s.seq.Add(1)),
		Simulated: true,
	}, nil
}
