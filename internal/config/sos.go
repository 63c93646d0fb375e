package config

import "time"

const (
	BroadcastModeInline = "inline"
	BroadcastModeAsync  = "async"

	// FCM multicast accepts at most this many tokens per call.
	MaxPushBatchSize = 500
)

type SOSConfig struct {
	BroadcastMode          string        `yaml:"broadcast_mode"`
	BroadcastTimeout       time.Duration `yaml:"broadcast_timeout"`
	BroadcastJobTimeout    time.Duration `yaml:"broadcast_job_timeout"`
	ChannelTimeout         time.Duration `yaml:"channel_timeout"`
	PushBatchSize          int           `yaml:"push_batch_size"`
	SMSFallbackConcurrency int           `yaml:"sms_fallback_concurrency"`
	DispatcherWorkers      int           `yaml:"dispatcher_workers"`
	DispatcherQueueSize    int           `yaml:"dispatcher_queue_size"`
	TriggerLockTTL         time.Duration `yaml:"trigger_lock_ttl"`
	DefaultMessage         string        `yaml:"default_message"`
}

func loadSOSConfig() *SOSConfig {
	return &SOSConfig{
		BroadcastMode:          getEnv("SOS_BROADCAST_MODE", BroadcastModeInline),
		BroadcastTimeout:       getEnvAsDuration("SOS_BROADCAST_TIMEOUT", 30*time.Second),
		BroadcastJobTimeout:    getEnvAsDuration("SOS_BROADCAST_JOB_TIMEOUT", 5*time.Minute),
		ChannelTimeout:         getEnvAsDuration("SOS_CHANNEL_TIMEOUT", 5*time.Second),
		PushBatchSize:          getEnvAsInt("SOS_PUSH_BATCH_SIZE", MaxPushBatchSize),
		SMSFallbackConcurrency: getEnvAsInt("SOS_SMS_FALLBACK_CONCURRENCY", 5),
		DispatcherWorkers:      getEnvAsInt("SOS_DISPATCHER_WORKERS", 4),
		DispatcherQueueSize:    getEnvAsInt("SOS_DISPATCHER_QUEUE_SIZE", 64),
		TriggerLockTTL:         getEnvAsDuration("SOS_TRIGGER_LOCK_TTL", 60*time.Second),
		DefaultMessage:         getEnv("SOS_DEFAULT_MESSAGE", "Emergency SOS activated"),
	}
}
