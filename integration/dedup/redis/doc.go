// Package redis provides a Redis-backed webhook event deduper for
// consumers running more than one instance: SetNX with a TTL makes the
// first observer of an event ID the only one that processes it.
package redis
