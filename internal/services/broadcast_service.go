package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"shakti-shield/internal/models"
	"shakti-shield/internal/repositories/interfaces"
	"shakti-shield/pkg/logger"
	"shakti-shield/pkg/push"
)

const (
	defaultBroadcastConcurrency = 4
	defaultFallbackConcurrency  = 5
)

// Broadcaster notifies the whole user base about one SOS.
type Broadcaster interface {
	Broadcast(ctx context.Context, sender primitive.ObjectID, p models.NotificationPayload) models.BroadcastSummary
}

// PushBroadcaster sends one multicast per batch of registered push tokens
// and clears the tokens the provider rejects as dead.
type PushBroadcaster struct {
	users     interfaces.UserRepository
	provider  push.PushProvider
	batchSize int
	link      string
	metrics   *Metrics
	logger    *logger.Logger
}

func NewPushBroadcaster(users interfaces.UserRepository, provider push.PushProvider, batchSize int, link string, metrics *Metrics, log *logger.Logger) *PushBroadcaster {
	if batchSize <= 0 || batchSize > push.MaxMulticastTokens {
		batchSize = push.MaxMulticastTokens
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &PushBroadcaster{
		users:     users,
		provider:  provider,
		batchSize: batchSize,
		link:      link,
		metrics:   metrics,
		logger:    log,
	}
}

func (b *PushBroadcaster) Broadcast(ctx context.Context, p models.NotificationPayload) models.BroadcastResult {
	var result models.BroadcastResult
	if b.provider == nil {
		result.Error = ErrChannelUnconfigured.Error()
		return result
	}

	users, err := b.users.ListWithPushToken(ctx)
	if err != nil {
		b.logger.WithError(err).Error("Failed to load users for push broadcast")
		result.Error = err.Error()
		return result
	}

	tokens := uniqueTokens(users)
	result.TotalUsers = len(users)
	if len(tokens) == 0 {
		return result
	}

	b.logger.Debugf("Broadcasting SOS to %d push tokens in batches of %d", len(tokens), b.batchSize)
	req := pushRequest(p, b.link+historyPath)

	var (
		mu      sync.Mutex
		invalid []string
	)

	g := new(errgroup.Group)
	g.SetLimit(defaultBroadcastConcurrency)

	for start := 0; start < len(tokens); start += b.batchSize {
		end := start + b.batchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]

		g.Go(func() error {
			resp, err := b.provider.SendMulticast(ctx, req, batch)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				b.logger.WithError(err).WithField("batch_size", len(batch)).Warn("Push multicast batch failed")
				result.Failed += len(batch)
				return nil
			}
			result.Sent += resp.SuccessCount
			result.Failed += resp.FailureCount
			invalid = append(invalid, resp.InvalidTokens()...)
			return nil
		})
	}
	_ = g.Wait()

	if len(invalid) > 0 {
		// Cleanup must outlive a broadcast that ran out of time.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		cleared, err := b.users.ClearPushTokens(cleanupCtx, invalid)
		if err != nil {
			b.logger.WithError(err).WithField("tokens", len(invalid)).Error("Failed to clear invalid push tokens")
		} else {
			result.InvalidTokensCleared = int(cleared)
			b.logger.WithField("tokens", cleared).Info("Cleared invalid push tokens")
		}
	}

	b.metrics.broadcastResult(models.ChannelPush, result)
	return result
}

func uniqueTokens(users []*models.User) []string {
	seen := make(map[string]struct{}, len(users))
	tokens := make([]string, 0, len(users))
	for _, u := range users {
		t := u.PushToken()
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}
	return tokens
}

// SMSFallback texts every user that has no push token.
type SMSFallback struct {
	users       interfaces.UserRepository
	sms         *SMSChannel
	concurrency int
	metrics     *Metrics
	logger      *logger.Logger
}

func NewSMSFallback(users interfaces.UserRepository, channel *SMSChannel, concurrency int, metrics *Metrics, log *logger.Logger) *SMSFallback {
	if concurrency <= 0 {
		concurrency = defaultFallbackConcurrency
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &SMSFallback{
		users:       users,
		sms:         channel,
		concurrency: concurrency,
		metrics:     metrics,
		logger:      log,
	}
}

func (f *SMSFallback) Broadcast(ctx context.Context, sender primitive.ObjectID, p models.NotificationPayload) models.BroadcastResult {
	var result models.BroadcastResult

	users, err := f.users.ListWithoutPushToken(ctx, sender)
	if err != nil {
		f.logger.WithError(err).Error("Failed to load users for SMS fallback")
		result.Error = err.Error()
		return result
	}
	result.TotalUsers = len(users)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(f.concurrency)

	for _, u := range users {
		phone := u.Phone
		g.Go(func() error {
			res := f.sms.Send(ctx, phone, p)

			mu.Lock()
			if res.Success {
				result.Sent++
			} else {
				result.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	f.metrics.broadcastResult(models.ChannelSMS, result)
	return result
}

// broadcastService runs the push broadcast and the SMS fallback side by side.
type broadcastService struct {
	push   *PushBroadcaster
	sms    *SMSFallback
	logger *logger.Logger
}

func NewBroadcastService(pushBroadcaster *PushBroadcaster, smsFallback *SMSFallback, log *logger.Logger) Broadcaster {
	if log == nil {
		log = logger.NewNop()
	}
	return &broadcastService{push: pushBroadcaster, sms: smsFallback, logger: log}
}

func (s *broadcastService) Broadcast(ctx context.Context, sender primitive.ObjectID, p models.NotificationPayload) models.BroadcastSummary {
	var (
		summary models.BroadcastSummary
		wg      sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		summary.Push = s.push.Broadcast(ctx, p)
	}()
	go func() {
		defer wg.Done()
		summary.SMS = s.sms.Broadcast(ctx, sender, p)
	}()
	wg.Wait()

	summary.Success = summary.Push.OK() && summary.SMS.OK()

	s.logger.WithFields(map[string]interface{}{
		"sos_id":     p.SOSID,
		"push_total": summary.Push.TotalUsers,
		"push_sent":  summary.Push.Sent,
		"push_error": summary.Push.Error,
		"sms_total":  summary.SMS.TotalUsers,
		"sms_sent":   summary.SMS.Sent,
		"sms_error":  summary.SMS.Error,
	}).Info("SOS broadcast completed")

	return summary
}
