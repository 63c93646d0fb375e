package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BroadcastModeInline, cfg.SOS.BroadcastMode)
	assert.Equal(t, 30*time.Second, cfg.SOS.BroadcastTimeout)
	assert.Equal(t, 5*time.Minute, cfg.SOS.BroadcastJobTimeout)
	assert.Equal(t, 5*time.Second, cfg.SOS.ChannelTimeout)
	assert.Equal(t, MaxPushBatchSize, cfg.SOS.PushBatchSize)
	assert.Equal(t, 5, cfg.SOS.SMSFallbackConcurrency)
	assert.NotEmpty(t, cfg.Security.JWTSecret)
}

func TestLoad_ClampsBatchSize(t *testing.T) {
	t.Setenv("SOS_PUSH_BATCH_SIZE", "2000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MaxPushBatchSize, cfg.SOS.PushBatchSize)
}

func TestLoad_BroadcastJobOutlastsWait(t *testing.T) {
	t.Setenv("SOS_BROADCAST_TIMEOUT", "2m")
	t.Setenv("SOS_BROADCAST_JOB_TIMEOUT", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.SOS.BroadcastJobTimeout)
}

func TestLoad_RejectsUnknownBroadcastMode(t *testing.T) {
	t.Setenv("SOS_BROADCAST_MODE", "eventually")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_ProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGetEnvAsSlice_TrimsBlanks(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	got := getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, got)
}

func TestCredentialChecks(t *testing.T) {
	assert.False(t, (&TwilioConfig{AccountSID: "AC1"}).Configured())
	assert.True(t, (&TwilioConfig{AccountSID: "AC1", AuthToken: "t", FromNumber: "+1"}).Configured())
	assert.False(t, (&SMTPConfig{Host: "smtp.example.com"}).Configured())
	assert.False(t, (*AWSSNSConfig)(nil).Configured())
}
