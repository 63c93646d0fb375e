package config

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid configuration")

func (c *Config) validate() error {
	if c.Security.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("%w: JWT_SECRET is required in production", ErrInvalidConfig)
		}
		c.Security.JWTSecret = "dev-only-jwt-secret"
	}

	switch c.SOS.BroadcastMode {
	case BroadcastModeInline, BroadcastModeAsync:
	default:
		return fmt.Errorf("%w: SOS_BROADCAST_MODE must be %q or %q, got %q",
			ErrInvalidConfig, BroadcastModeInline, BroadcastModeAsync, c.SOS.BroadcastMode)
	}

	if c.SOS.BroadcastJobTimeout < c.SOS.BroadcastTimeout {
		c.SOS.BroadcastJobTimeout = c.SOS.BroadcastTimeout
	}
	if c.SOS.PushBatchSize <= 0 || c.SOS.PushBatchSize > MaxPushBatchSize {
		c.SOS.PushBatchSize = MaxPushBatchSize
	}
	if c.SOS.SMSFallbackConcurrency <= 0 {
		c.SOS.SMSFallbackConcurrency = 5
	}

	switch c.SMS.Provider {
	case SMSProviderTwilio, SMSProviderSNS, SMSProviderSimulated:
	default:
		return fmt.Errorf("%w: unknown SMS_PROVIDER %q", ErrInvalidConfig, c.SMS.Provider)
	}

	switch c.Push.Provider {
	case PushProviderFCM, PushProviderAPNS:
	default:
		return fmt.Errorf("%w: unknown PUSH_PROVIDER %q", ErrInvalidConfig, c.Push.Provider)
	}

	return nil
}
