package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/espbridge/espbridge/core/classify"
	"github.com/espbridge/espbridge/core/mail"
	"github.com/espbridge/espbridge/core/provider"
	"github.com/espbridge/espbridge/pkg/async"
)

// Transport executes a provider wire request. Implementations are injected
// and externally owned (typically wrapping a pooled HTTP client); the
// dispatcher only invokes them and classifies their failures. Cancellation
// and timeouts are the transport's responsibility via ctx.
type Transport interface {
	Do(ctx context.Context, req *provider.Request) (*provider.Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *provider.Request) (*provider.Response, error)

func (f TransportFunc) Do(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	return f(ctx, req)
}

// sendState tracks progress through a single send for logging and error
// context. Failed is reachable from every state.
type sendState string

const (
	stateEncoding        sendState = "encoding"
	stateTransmitting    sendState = "transmitting"
	stateParsingResponse sendState = "parsing_response"
	stateDone            sendState = "done"
)

// Dispatcher orchestrates sends across providers. Stateless apart from its
// configuration; safe for concurrent use.
type Dispatcher struct {
	transport   Transport
	strictness  provider.Strictness
	concurrency int
	log         *slog.Logger
}

// New creates a Dispatcher with the given transport. Defaults: best-effort
// strictness, sequential split calls, no logging.
func New(transport Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		transport:   transport,
		strictness:  provider.BestEffort,
		concurrency: 1,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send encodes, transmits and resolves a message for the given provider.
//
// On success the Result covers every recipient in original order (or a
// single aggregate entry for single-call sends on providers without
// per-recipient responses). A returned error means the operation could not
// proceed at all; partial failures are reported inside the Result instead.
func (d *Dispatcher) Send(ctx context.Context, p provider.Provider, msg *mail.Message) (*mail.Result, error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	if err := msg.Validate(); err != nil {
		// Invalid input can never succeed on retry without change.
		return nil, &classify.Error{
			Class:  classify.Classification{Kind: classify.Configuration},
			Detail: "message validation failed",
			Cause:  err,
		}
	}

	started := time.Now()
	calls := d.plan(p, msg)

	var (
		results = make([]*mail.Result, len(calls))
		errs    = make([]error, len(calls))
	)
	if d.concurrency > 1 && len(calls) > 1 {
		d.sendConcurrent(ctx, p, calls, results, errs)
	} else {
		for i, call := range calls {
			results[i], errs[i] = d.sendOne(ctx, p, call)
		}
	}

	res, err := combine(calls, results, errs)
	if err != nil {
		d.log.ErrorContext(ctx, "send failed",
			slog.String("provider", p.Name()),
			slog.Int("recipients", len(msg.Recipients)),
			slog.Any("error", err),
		)
		return nil, err
	}

	d.log.InfoContext(ctx, "send dispatched",
		slog.String("provider", p.Name()),
		slog.Int("recipients", len(msg.Recipients)),
		slog.Int("calls", len(calls)),
		slog.Bool("aggregate", res.Aggregate),
		slog.Duration("duration", time.Since(started)),
	)
	return res, nil
}

// plan decides how many transport calls the message needs: one call when
// the provider can carry it whole, a fan-out into single-recipient calls
// for merge sends without batch templating, or recipient-limit chunks.
func (d *Dispatcher) plan(p provider.Provider, msg *mail.Message) []*mail.Message {
	caps := p.Capabilities()

	if msg.HasMergeData() && !caps.BatchMerge {
		out := make([]*mail.Message, len(msg.Recipients))
		for i, r := range msg.Recipients {
			out[i] = msg.ForRecipient(r)
		}
		return out
	}

	maxN := caps.MaxRecipients
	if maxN <= 0 || len(msg.Recipients) <= maxN {
		return []*mail.Message{msg}
	}

	var out []*mail.Message
	for start := 0; start < len(msg.Recipients); start += maxN {
		end := min(start+maxN, len(msg.Recipients))
		chunk := *msg
		chunk.Recipients = msg.Recipients[start:end]
		out = append(out, &chunk)
	}
	return out
}

func (d *Dispatcher) sendConcurrent(ctx context.Context, p provider.Provider, calls []*mail.Message, results []*mail.Result, errs []error) {
	sem := make(chan struct{}, d.concurrency)
	futures := make([]*async.ExecFuture, len(calls))
	for i := range calls {
		futures[i] = async.Exec(ctx, i, func(ctx context.Context, i int) error {
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = d.sendOne(ctx, p, calls[i])
			return nil
		})
	}
	// Every future must finish before combine reads the slots. A future
	// that failed without running its closure (pre-canceled context) left
	// both slots empty; its error becomes the call's error.
	for i, err := range async.AwaitAll(futures...) {
		if err != nil && results[i] == nil && errs[i] == nil {
			errs[i] = &classify.Error{
				Class:  classify.Classification{Kind: classify.Transient, Retryable: true},
				Detail: "call aborted before transmission",
				Cause:  err,
			}
		}
	}
}

// sendOne runs the Encoding -> Transmitting -> ParsingResponse state
// machine for a single wire call.
func (d *Dispatcher) sendOne(ctx context.Context, p provider.Provider, msg *mail.Message) (*mail.Result, error) {
	state := stateEncoding
	req, warnings, err := p.Encode(msg, d.strictness)
	if err != nil {
		// No network call was made; unrepresentable messages are a
		// configuration problem, never retried automatically.
		return nil, &classify.Error{
			Class:  classify.Classification{Kind: classify.Configuration},
			Detail: fmt.Sprintf("send failed during %s", state),
			Cause:  err,
		}
	}

	state = stateTransmitting
	d.log.DebugContext(ctx, "transmitting",
		slog.String("provider", p.Name()),
		slog.String("url", req.URL),
		slog.Int("recipients", len(msg.Recipients)),
	)
	resp, err := d.transport.Do(ctx, req)
	if err != nil {
		return nil, &classify.Error{
			Class:  classify.Classification{Kind: classify.Transient, Retryable: true},
			Detail: fmt.Sprintf("send failed during %s", state),
			Cause:  fmt.Errorf("%w: %w", ErrTransport, err),
		}
	}

	state = stateParsingResponse
	res, err := p.ParseResponse(msg, resp)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, warnings...)

	state = stateDone
	_ = state
	return res, nil
}

// combine merges per-call results back into one Result in original
// recipient order. When a send needed several calls, aggregate chunk
// verdicts are expanded to every recipient of that chunk so the combined
// result keeps one entry per recipient. A call that failed outright
// contributes failed entries carrying its classified error; if every call
// failed, the first error is returned instead of a result.
func combine(calls []*mail.Message, results []*mail.Result, errs []error) (*mail.Result, error) {
	if len(calls) == 1 {
		if errs[0] != nil {
			return nil, errs[0]
		}
		return results[0], nil
	}

	allFailed := true
	for _, err := range errs {
		if err == nil {
			allFailed = false
			break
		}
	}
	if allFailed {
		return nil, errs[0]
	}

	combined := &mail.Result{}
	seenWarnings := make(map[string]struct{})
	addWarnings := func(ws []string) {
		for _, w := range ws {
			if _, ok := seenWarnings[w]; ok {
				continue
			}
			seenWarnings[w] = struct{}{}
			combined.Warnings = append(combined.Warnings, w)
		}
	}
	for i, call := range calls {
		switch {
		case errs[i] != nil:
			for _, r := range call.Recipients {
				combined.Recipients = append(combined.Recipients, mail.RecipientResult{
					Recipient: r.Address,
					Status:    mail.StatusFailed,
					Err:       errs[i],
				})
			}
		case results[i].Aggregate:
			entry := results[i].Recipients[0]
			for _, r := range call.Recipients {
				expanded := entry
				expanded.Recipient = r.Address
				combined.Recipients = append(combined.Recipients, expanded)
			}
			addWarnings(results[i].Warnings)
		default:
			combined.Recipients = append(combined.Recipients, results[i].Recipients...)
			addWarnings(results[i].Warnings)
		}
	}
	return combined, nil
}
