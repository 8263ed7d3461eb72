// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package automatically loads .env files on first use and uses the
// caarlos0/env library for parsing environment variables into struct fields.
//
// Basic usage:
//
//	import "github.com/espbridge/espbridge/core/config"
//
//	type MailgunConfig struct {
//		APIKey     string `env:"MAILGUN_API_KEY,required"`
//		Domain     string `env:"MAILGUN_DOMAIN,required"`
//		BaseURL    string `env:"MAILGUN_BASE_URL" envDefault:"https://api.mailgun.net"`
//		SigningKey string `env:"MAILGUN_WEBHOOK_SIGNING_KEY,required"`
//	}
//
//	func main() {
//		var cfg MailgunConfig
//
//		// Load with error handling
//		if err := config.Load(&cfg); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure (useful for startup)
//		config.MustLoad(&cfg)
//	}
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime:
//
//	var cfg1 MailgunConfig
//	config.Load(&cfg1) // Loads from environment
//
//	var cfg2 MailgunConfig
//	config.Load(&cfg2) // Returns cached value, cfg1 == cfg2
//
// Different types are cached independently, so each provider integration
// declares and loads its own Config struct without coordination. Loaded
// configuration is treated as immutable for the life of the process.
package config
