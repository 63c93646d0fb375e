package config

const (
	SMSProviderTwilio    = "twilio"
	SMSProviderSNS       = "sns"
	SMSProviderSimulated = "simulated"
)

type SMSConfig struct {
	Provider    string        `yaml:"provider"`
	Twilio      *TwilioConfig `yaml:"twilio"`
	AWS         *AWSSNSConfig `yaml:"aws"`
	DefaultFrom string        `yaml:"default_from"` // overrides the provider sender when set
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type AWSSNSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SenderID        string `yaml:"sender_id"`
}

func (c *TwilioConfig) Configured() bool {
	return c != nil && c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

func (c *AWSSNSConfig) Configured() bool {
	return c != nil && c.Region != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

func loadSMSConfig() *SMSConfig {
	return &SMSConfig{
		Provider: getEnv("SMS_PROVIDER", SMSProviderTwilio),
		Twilio: &TwilioConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_PHONE_NUMBER", getEnv("TWILIO_FROM_NUMBER", "")),
		},
		AWS: &AWSSNSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			SenderID:        getEnv("AWS_SNS_SENDER_ID", "SHAKTI"),
		},
		DefaultFrom: getEnv("SMS_DEFAULT_FROM", ""),
	}
}
