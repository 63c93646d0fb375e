package config

type SMTPConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
	SSL       bool   `yaml:"ssl"`
}

func (c *SMTPConfig) Configured() bool {
	return c != nil && c.Host != "" && c.Username != "" && c.Password != ""
}

func loadSMTPConfig() *SMTPConfig {
	return &SMTPConfig{
		Host:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		Port:      getEnvAsInt("SMTP_PORT", 587),
		Username:  getEnv("SMTP_USERNAME", ""),
		Password:  getEnv("SMTP_PASSWORD", ""),
		FromEmail: getEnv("SMTP_FROM_EMAIL", "alerts@shaktishield.app"),
		FromName:  getEnv("SMTP_FROM_NAME", "Shakti Shield"),
		SSL:       getEnvAsBool("SMTP_SSL", false),
	}
}
