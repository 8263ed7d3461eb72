package sendgrid

import "github.com/espbridge/espbridge/core/provider"

// Config holds SendGrid API and webhook configuration.
type Config struct {
	APIKey  string `env:"SENDGRID_API_KEY,required"`
	BaseURL string `env:"SENDGRID_BASE_URL" envDefault:"https://api.sendgrid.com"`

	// WebhookUsername/WebhookPassword are the shared basic-auth
	// credentials configured on the SendGrid event webhook endpoint.
	WebhookUsername string `env:"SENDGRID_WEBHOOK_USERNAME"`
	WebhookPassword string `env:"SENDGRID_WEBHOOK_PASSWORD"`

	Strictness provider.Strictness `env:"SENDGRID_STRICTNESS" envDefault:"best-effort"`
}
