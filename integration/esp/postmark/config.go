package postmark

import "github.com/espbridge/espbridge/core/provider"

// defaultWebhookRanges are Postmark's published webhook source addresses.
var defaultWebhookRanges = []string{
	"3.134.147.250",
	"50.31.156.6",
	"50.31.156.77",
	"18.217.206.57",
}

// Config holds Postmark API and webhook configuration.
type Config struct {
	ServerToken string `env:"POSTMARK_SERVER_TOKEN,required"`
	BaseURL     string `env:"POSTMARK_BASE_URL" envDefault:"https://api.postmarkapp.com"`

	// MessageStream routes sends through a specific Postmark stream;
	// empty uses the server's default transactional stream.
	MessageStream string `env:"POSTMARK_MESSAGE_STREAM"`

	// WebhookUsername/WebhookPassword protect the webhook endpoint with
	// shared basic-auth credentials.
	WebhookUsername string `env:"POSTMARK_WEBHOOK_USERNAME"`
	WebhookPassword string `env:"POSTMARK_WEBHOOK_PASSWORD"`

	// WebhookRanges overrides the published webhook source addresses
	// (CIDR ranges or bare addresses).
	WebhookRanges []string `env:"POSTMARK_WEBHOOK_RANGES"`

	Strictness provider.Strictness `env:"POSTMARK_STRICTNESS" envDefault:"best-effort"`
}
