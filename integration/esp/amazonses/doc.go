// Package amazonses implements the Amazon SES v2 mail provider: JSON
// payloads for the SendEmail REST operation, a SigV4 signing transport
// built on aws-sdk-go-v2, and tracking-event normalization for SES
// notifications delivered through SNS.
//
// SES has no per-message tag or metadata echo, so sends carry X-Tag and
// X-Metadata headers that come back inside the notification's mail.headers
// block and are recovered during normalization. SNS envelopes are checked
// for header/body consistency during verification; SubscriptionConfirmation
// messages surface as events carrying the Token and SubscribeURL, never
// confirmed automatically.
package amazonses
