package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shakti-shield/internal/models"
	"shakti-shield/internal/utils"
	"shakti-shield/pkg/email"
	"shakti-shield/pkg/logger"
	"shakti-shield/pkg/push"
	"shakti-shield/pkg/sms"
)

const defaultChannelTimeout = 5 * time.Second

type sendOutcome struct {
	messageID string
	simulated bool
	err       error
}

// deliver runs send under timeout and turns every failure, including a panic
// or a provider that ignores ctx, into a failed ChannelResult.
func deliver(ctx context.Context, channel models.Channel, timeout time.Duration, send func(ctx context.Context) sendOutcome) models.ChannelResult {
	if timeout <= 0 {
		timeout = defaultChannelTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan sendOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- sendOutcome{err: fmt.Errorf("%s channel panicked: %v", channel, r)}
			}
		}()
		done <- send(ctx)
	}()

	var out sendOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = sendOutcome{err: fmt.Errorf("%s channel: %w", channel, ctx.Err())}
	}

	res := models.ChannelResult{
		Channel:   channel,
		Success:   out.err == nil,
		MessageID: out.messageID,
		Simulated: out.simulated,
	}
	if out.err != nil {
		res.Error = out.err.Error()
	}
	return res
}

// SMSChannel delivers the alert text over the configured SMS provider.
// A nil provider means SMS is not configured.
type SMSChannel struct {
	provider sms.SMSProvider
	from     string
	timeout  time.Duration
	logger   *logger.Logger
}

func NewSMSChannel(provider sms.SMSProvider, from string, timeout time.Duration, log *logger.Logger) *SMSChannel {
	if log == nil {
		log = logger.NewNop()
	}
	return &SMSChannel{provider: provider, from: from, timeout: timeout, logger: log}
}

func (c *SMSChannel) Send(ctx context.Context, phone string, p models.NotificationPayload) models.ChannelResult {
	res := deliver(ctx, models.ChannelSMS, c.timeout, func(ctx context.Context) sendOutcome {
		if c.provider == nil {
			return sendOutcome{err: ErrChannelUnconfigured}
		}
		resp, err := c.provider.SendSMS(ctx, &sms.SMSRequest{
			To:      strings.TrimSpace(phone),
			From:    c.from,
			Message: smsBody(p),
			Type:    "transactional",
		})
		if err != nil {
			return sendOutcome{err: err}
		}
		return sendOutcome{messageID: resp.MessageID, simulated: resp.Simulated}
	})

	c.logger.LogNotificationEvent(string(res.Channel), utils.MaskPhone(phone), res.Success, resultDetails(res))
	return res
}

// EmailChannel renders the alert email and hands it to the email provider.
type EmailChannel struct {
	provider email.EmailProvider
	timeout  time.Duration
	logger   *logger.Logger
}

func NewEmailChannel(provider email.EmailProvider, timeout time.Duration, log *logger.Logger) *EmailChannel {
	if log == nil {
		log = logger.NewNop()
	}
	return &EmailChannel{provider: provider, timeout: timeout, logger: log}
}

func (c *EmailChannel) Send(ctx context.Context, to string, p models.NotificationPayload) models.ChannelResult {
	res := deliver(ctx, models.ChannelEmail, c.timeout, func(ctx context.Context) sendOutcome {
		if c.provider == nil {
			return sendOutcome{err: ErrChannelUnconfigured}
		}
		req, err := emailRequest(strings.TrimSpace(to), p)
		if err != nil {
			return sendOutcome{err: err}
		}
		resp, err := c.provider.SendEmail(ctx, req)
		if err != nil {
			return sendOutcome{err: err}
		}
		return sendOutcome{messageID: resp.MessageID, simulated: resp.Simulated}
	})

	c.logger.LogNotificationEvent(string(res.Channel), utils.MaskEmail(to), res.Success, resultDetails(res))
	return res
}

// PushChannel sends a single-recipient push.
type PushChannel struct {
	provider push.PushProvider
	link     string
	timeout  time.Duration
	logger   *logger.Logger
}

// NewPushChannel builds the channel. link is the client URL opened from web
// notifications.
func NewPushChannel(provider push.PushProvider, link string, timeout time.Duration, log *logger.Logger) *PushChannel {
	if log == nil {
		log = logger.NewNop()
	}
	return &PushChannel{provider: provider, link: link, timeout: timeout, logger: log}
}

func (c *PushChannel) Send(ctx context.Context, token string, p models.NotificationPayload) models.ChannelResult {
	res := deliver(ctx, models.ChannelPush, c.timeout, func(ctx context.Context) sendOutcome {
		if c.provider == nil {
			return sendOutcome{err: ErrChannelUnconfigured}
		}
		req := pushRequest(p, c.link+dashboardPath)
		req.Token = token
		resp, err := c.provider.SendNotification(ctx, req)
		if err != nil {
			return sendOutcome{err: err}
		}
		if !resp.Success {
			return sendOutcome{err: fmt.Errorf("push rejected: %s", resp.Error)}
		}
		return sendOutcome{messageID: resp.MessageID}
	})

	c.logger.LogNotificationEvent(string(res.Channel), maskToken(token), res.Success, resultDetails(res))
	return res
}

func resultDetails(res models.ChannelResult) map[string]interface{} {
	details := map[string]interface{}{}
	if res.MessageID != "" {
		details["message_id"] = res.MessageID
	}
	if res.Error != "" {
		details["error"] = res.Error
	}
	if res.Simulated {
		details["simulated"] = true
	}
	return details
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
