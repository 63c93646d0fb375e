package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"shakti-shield/internal/models"
	"shakti-shield/internal/repositories/interfaces"
	"shakti-shield/internal/utils"
	"shakti-shield/pkg/logger"
)

// Notifier delivers one SOS to one trusted contact.
type Notifier interface {
	Notify(ctx context.Context, contact models.TrustedContact, p models.NotificationPayload) models.ContactNotificationResult
}

// ContactNotifier tries SMS and email for a contact, plus a push when the
// contact is also a registered user with a push token. The contact counts as
// notified when at least one channel succeeded.
type ContactNotifier struct {
	sms     *SMSChannel
	email   *EmailChannel
	push    *PushChannel
	users   interfaces.UserRepository
	metrics *Metrics
	logger  *logger.Logger
}

func NewContactNotifier(smsChannel *SMSChannel, emailChannel *EmailChannel, pushChannel *PushChannel, users interfaces.UserRepository, metrics *Metrics, log *logger.Logger) *ContactNotifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &ContactNotifier{
		sms:     smsChannel,
		email:   emailChannel,
		push:    pushChannel,
		users:   users,
		metrics: metrics,
		logger:  log,
	}
}

const (
	slotSMS = iota
	slotEmail
	slotPush
	slotCount
)

func (n *ContactNotifier) Notify(ctx context.Context, contact models.TrustedContact, p models.NotificationPayload) models.ContactNotificationResult {
	var (
		slots [slotCount]*models.ChannelResult
		wg    sync.WaitGroup
	)

	run := func(slot int, send func() models.ChannelResult) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := send()
			slots[slot] = &res
		}()
	}

	phone := strings.TrimSpace(contact.Phone)
	mail := strings.TrimSpace(contact.Email)

	if phone != "" {
		run(slotSMS, func() models.ChannelResult { return n.sms.Send(ctx, phone, p) })
	}
	if mail != "" {
		run(slotEmail, func() models.ChannelResult { return n.email.Send(ctx, mail, p) })
	}
	if n.push != nil && n.users != nil && (phone != "" || mail != "") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res, ok := n.opportunisticPush(ctx, phone, mail, p); ok {
				slots[slotPush] = &res
			}
		}()
	}
	wg.Wait()

	result := models.ContactNotificationResult{ContactID: contact.ID}
	for _, res := range slots {
		if res == nil {
			continue
		}
		n.metrics.channel(*res)
		result.Results = append(result.Results, *res)
		if res.Success {
			result.Success = true
		} else if res.Error != "" {
			result.Errors = append(result.Errors, res.Error)
		}
	}

	return result
}

// opportunisticPush reports false when the contact is not a registered user
// with a push token.
func (n *ContactNotifier) opportunisticPush(ctx context.Context, phone, mail string, p models.NotificationPayload) (res models.ChannelResult, attempted bool) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.WithField("panic", r).Error("Push lookup for contact panicked")
			attempted = false
		}
	}()

	user, err := n.users.FindByEmailOrPhone(ctx, mail, utils.NormalizePhone(phone))
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			n.logger.WithError(err).Warn("Failed to look up contact as registered user")
		}
		return models.ChannelResult{}, false
	}

	token := user.PushToken()
	if token == "" {
		return models.ChannelResult{}, false
	}

	return n.push.Send(ctx, token, p), true
}
