package amazonses

import "github.com/espbridge/espbridge/core/provider"

// Config holds SES API and webhook configuration. Static credentials are
// optional; when absent the default AWS credential chain is used.
type Config struct {
	Region  string `env:"AWS_SES_REGION,required"`
	BaseURL string `env:"AWS_SES_BASE_URL"`

	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	SessionToken    string `env:"AWS_SESSION_TOKEN"`

	// ConfigurationSet enables event publishing for sends; open and click
	// tracking are governed by the set, not per message.
	ConfigurationSet string `env:"AWS_SES_CONFIGURATION_SET"`

	// WebhookUsername/WebhookPassword protect the SNS HTTPS subscription
	// endpoint with shared basic-auth credentials.
	WebhookUsername string `env:"AWS_SES_WEBHOOK_USERNAME"`
	WebhookPassword string `env:"AWS_SES_WEBHOOK_PASSWORD"`

	Strictness provider.Strictness `env:"AWS_SES_STRICTNESS" envDefault:"best-effort"`
}

// baseURL resolves the regional SESv2 endpoint unless overridden.
func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "https://email." + c.Region + ".amazonaws.com"
}
