// Package provider defines the contract every ESP integration implements:
// encoding a canonical message into the provider's wire format and parsing
// the provider's response into per-recipient results.
//
// Per-provider polymorphism is a set of independent implementations behind
// one interface, selected at configuration time. Each provider also
// declares an immutable Capabilities value describing which message
// features it supports; the dispatcher consults it before encoding to
// decide whether to fail, degrade, or fan out.
//
// Under StrictMode, encoding a message that uses an unsupported feature
// fails with ErrUnsupportedFeature. Under BestEffort, the feature is
// dropped and named in the warning list returned alongside the payload —
// never silently discarded.
package provider
