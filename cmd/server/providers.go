package main

import (
	"context"
	"fmt"

	"shakti-shield/internal/config"
	"shakti-shield/pkg/cache"
	"shakti-shield/pkg/email"
	"shakti-shield/pkg/logger"
	"shakti-shield/pkg/push"
	"shakti-shield/pkg/sms"
)

// newSMSProvider returns nil when SMS is unconfigured in production.
func newSMSProvider(ctx context.Context, cfg *config.Config, log *logger.Logger) (sms.SMSProvider, error) {
	switch cfg.SMS.Provider {
	case config.SMSProviderTwilio:
		if cfg.SMS.Twilio.Configured() {
			t := cfg.SMS.Twilio
			return sms.NewTwilioProvider(t.AccountSID, t.AuthToken, t.FromNumber), nil
		}
	case config.SMSProviderSNS:
		if cfg.SMS.AWS.Configured() {
			a := cfg.SMS.AWS
			p, err := sms.NewAWSSNSProvider(ctx, a.Region, a.AccessKeyID, a.SecretAccessKey, a.SenderID)
			if err != nil {
				return nil, fmt.Errorf("failed to create SNS provider: %w", err)
			}
			return p, nil
		}
	}

	if cfg.IsProduction() {
		log.Warn("SMS provider not configured, SMS delivery disabled")
		return nil, nil
	}
	log.Warn("SMS provider not configured, using simulated SMS")
	return sms.NewSimulatedProvider(log), nil
}

func newEmailProvider(cfg *config.Config, log *logger.Logger) email.EmailProvider {
	if cfg.SMTP.Configured() {
		s := cfg.SMTP
		return email.NewSMTPProvider(email.SMTPConfig{
			Host:      s.Host,
			Port:      s.Port,
			Username:  s.Username,
			Password:  s.Password,
			FromEmail: s.FromEmail,
			FromName:  s.FromName,
			SSL:       s.SSL,
		})
	}

	if cfg.IsProduction() {
		log.Warn("SMTP not configured, email delivery disabled")
		return nil
	}
	log.Warn("SMTP not configured, using simulated email")
	return email.NewSimulatedProvider(log)
}

func newPushProvider(cfg *config.Config) (push.PushProvider, error) {
	if cfg.Push.Provider == config.PushProviderAPNS {
		a := cfg.Push.APNS
		p, err := push.NewAPNSProvider(a.KeyFile, a.KeyID, a.TeamID, a.BundleID, a.Production)
		if err != nil {
			return nil, fmt.Errorf("failed to create APNs provider: %w", err)
		}
		return p, nil
	}

	f := cfg.Push.FCM
	return push.NewFCMProvider(push.FCMConfig{
		ProjectID:       f.ProjectID,
		CredentialsFile: f.CredentialsFile,
		CredentialsJSON: f.CredentialsJSON,
	}), nil
}

// newLocker prefers Redis and falls back to an in-process locker, which only
// serializes triggers within this instance.
func newLocker(cfg *config.Config, log *logger.Logger) (cache.Locker, *cache.RedisCache) {
	if !cfg.Redis.Enabled() {
		log.Info("Redis not configured, using in-memory locks")
		return cache.NewMemoryLocker(), nil
	}

	r := cfg.Redis
	rc, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         r.Host,
		Port:         r.Port,
		Password:     r.Password,
		DB:           r.DB,
		PoolSize:     r.PoolSize,
		MinIdleConns: r.MinIdleConns,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
	})
	if err != nil {
		if cfg.IsProduction() {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		log.WithError(err).Warn("Redis unavailable, using in-memory locks")
		return cache.NewMemoryLocker(), nil
	}

	return cache.NewRedisLocker(rc), rc
}
