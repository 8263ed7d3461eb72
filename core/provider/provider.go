package provider

import (
	"fmt"
	"net/http"

	"github.com/espbridge/espbridge/core/mail"
)

// Strictness selects how encoders treat message features the provider
// does not support.
type Strictness string

const (
	// StrictMode fails encoding with ErrUnsupportedFeature.
	StrictMode Strictness = "strict"
	// BestEffort drops the unsupported feature and records a warning.
	BestEffort Strictness = "best-effort"
)

// UnmarshalText lets Strictness be loaded directly from environment
// configuration.
func (s *Strictness) UnmarshalText(text []byte) error {
	switch Strictness(text) {
	case StrictMode, BestEffort:
		*s = Strictness(text)
		return nil
	case "":
		*s = BestEffort
		return nil
	default:
		return fmt.Errorf("invalid strictness %q (want %q or %q)", text, StrictMode, BestEffort)
	}
}

// Request is a provider wire request, handed to the injected transport.
// Providers fill every field; the transport only executes.
type Request struct {
	Method      string
	URL         string
	Header      http.Header
	ContentType string
	Body        []byte
}

// Response is the provider's raw HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Provider encodes canonical messages for one ESP and parses its
// responses. Implementations are stateless and safe for concurrent use;
// their Capabilities value is immutable after construction.
type Provider interface {
	// Name returns the provider identity (e.g. "sendgrid").
	Name() string

	// Capabilities declares which message features this provider
	// supports.
	Capabilities() Capabilities

	// Encode maps the message to the provider wire format. Under
	// BestEffort, dropped features are named in the returned warnings.
	Encode(msg *mail.Message, strictness Strictness) (*Request, []string, error)

	// ParseResponse resolves the provider response into per-recipient
	// (or aggregate) results for the encoded message. A non-2xx response
	// yields a classified error; partial acceptance yields a mixed
	// result and no error.
	ParseResponse(msg *mail.Message, resp *Response) (*mail.Result, error)
}
