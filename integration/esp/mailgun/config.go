package mailgun

import "github.com/espbridge/espbridge/core/provider"

// Config holds Mailgun API and webhook configuration.
type Config struct {
	Domain  string `env:"MAILGUN_DOMAIN,required"`
	APIKey  string `env:"MAILGUN_API_KEY,required"`
	BaseURL string `env:"MAILGUN_BASE_URL" envDefault:"https://api.mailgun.net"`

	// WebhookSigningKey is the account-level key Mailgun signs webhook
	// payloads with. Distinct from the sending API key.
	WebhookSigningKey string `env:"MAILGUN_WEBHOOK_SIGNING_KEY"`

	Strictness provider.Strictness `env:"MAILGUN_STRICTNESS" envDefault:"best-effort"`
}
