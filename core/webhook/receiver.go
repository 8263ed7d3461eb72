package webhook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/espbridge/espbridge/core/tracking"
)

// Request carries the parts of an inbound webhook call this core needs.
// The host framework's request/response plumbing stays outside.
type Request struct {
	Body       []byte
	Header     http.Header
	RemoteAddr string
}

// Verifier authenticates an inbound webhook request for one provider.
// Implementations must use constant-time comparison for secrets.
type Verifier interface {
	Verify(req *Request) error
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(req *Request) error

func (f VerifierFunc) Verify(req *Request) error {
	return f(req)
}

// Normalizer decodes one provider's webhook payload into canonical
// tracking events. A payload may carry one event or a batch; on success
// the returned sequence plus per-event errors covers every raw event.
// Normalize is a pure function of its input.
type Normalizer interface {
	Normalize(body []byte) ([]tracking.Event, []tracking.EventError, error)
}

// Deduper filters redelivered events by provider event ID. Seen returns
// true when the ID was already observed.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// Receiver runs the receive path for one provider: verify, normalize,
// optionally dedup. Stateless apart from configuration; safe for
// concurrent use.
type Receiver struct {
	verifier   Verifier
	normalizer Normalizer
	deduper    Deduper
	log        *slog.Logger
}

// ReceiverOption configures a Receiver.
type ReceiverOption func(*Receiver)

// WithDeduper drops events whose provider event ID was already processed.
// Best-effort: dedup failures are logged, never fatal.
func WithDeduper(d Deduper) ReceiverOption {
	return func(r *Receiver) {
		r.deduper = d
	}
}

// WithReceiverLogger sets the structured logger for the receive path.
func WithReceiverLogger(log *slog.Logger) ReceiverOption {
	return func(r *Receiver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewReceiver creates a Receiver for one provider's verifier/normalizer
// pair.
func NewReceiver(v Verifier, n Normalizer, opts ...ReceiverOption) *Receiver {
	r := &Receiver{
		verifier:   v,
		normalizer: n,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Process authenticates and normalizes one inbound webhook request.
//
// A verification failure is terminal: no normalization is attempted and
// one of the package verification sentinels is returned (check with
// errors.Is). On success the canonical events are returned together with
// any per-event errors from the batch.
func (r *Receiver) Process(ctx context.Context, req *Request) ([]tracking.Event, []tracking.EventError, error) {
	if err := r.verifier.Verify(req); err != nil {
		r.log.WarnContext(ctx, "webhook rejected",
			slog.String("remote_addr", req.RemoteAddr),
			slog.Any("error", err),
		)
		return nil, nil, err
	}

	events, eventErrs, err := r.normalizer.Normalize(req.Body)
	if err != nil {
		return nil, nil, err
	}

	if r.deduper != nil {
		events = r.dedup(ctx, events)
	}

	r.log.DebugContext(ctx, "webhook processed",
		slog.Int("events", len(events)),
		slog.Int("event_errors", len(eventErrs)),
	)
	return events, eventErrs, nil
}

func (r *Receiver) dedup(ctx context.Context, events []tracking.Event) []tracking.Event {
	kept := events[:0]
	for _, ev := range events {
		if ev.EventID == "" {
			kept = append(kept, ev)
			continue
		}
		seen, err := r.deduper.Seen(ctx, ev.EventID)
		if err != nil {
			// Dedup is a convenience; delivery beats deduplication.
			r.log.WarnContext(ctx, "dedup check failed",
				slog.String("event_id", ev.EventID),
				slog.Any("error", err),
			)
			kept = append(kept, ev)
			continue
		}
		if !seen {
			kept = append(kept, ev)
		}
	}
	return kept
}

// eventIDNamespace scopes deterministic fallback event IDs.
var eventIDNamespace = uuid.MustParse("9c1f6f43-5b92-4a6e-8f0e-2d26d14b6a3c")

// DeriveEventID builds a deterministic identifier from raw event bytes for
// providers that do not assign event IDs. Normalizing the same payload
// twice yields the same ID, so downstream dedup still works.
func DeriveEventID(raw []byte) string {
	return uuid.NewSHA1(eventIDNamespace, raw).String()
}

// MemoryDeduper is an in-process Deduper with TTL-bounded memory, suitable
// for single-instance consumers and tests. Cross-process consumers should
// use the Redis-backed implementation in integration/dedup.
type MemoryDeduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

// NewMemoryDeduper creates an in-memory deduper remembering IDs for ttl.
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Seen implements Deduper.
func (d *MemoryDeduper) Seen(_ context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, fmt.Errorf("empty event id")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, at := range d.seen {
		if now.Sub(at) > d.ttl {
			delete(d.seen, id)
		}
	}
	if at, ok := d.seen[eventID]; ok && now.Sub(at) <= d.ttl {
		return true, nil
	}
	d.seen[eventID] = now
	return false, nil
}
