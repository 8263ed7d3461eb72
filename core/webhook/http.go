package webhook

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// MaxBodyBytes caps how much of a webhook body is read. Provider batches
// are bounded; SendGrid's biggest documented batch stays well under this.
const MaxBodyBytes = 8 << 20

// proxyHeaders are consulted in order for the original client address
// when the endpoint sits behind a proxy or CDN. X-Forwarded-For may list
// several hops; the leftmost entry is the client.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// FromHTTPRequest reads an inbound webhook call into a Request, resolving
// the client address through common proxy headers so IP-allowlist
// verification works behind load balancers. The body is read fully
// (bounded by MaxBodyBytes) because verification needs the exact bytes.
func FromHTTPRequest(r *http.Request) (*Request, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read webhook body: %w", err)
	}
	return &Request{
		Body:       body,
		Header:     r.Header,
		RemoteAddr: clientAddr(r),
	}, nil
}

func clientAddr(r *http.Request) string {
	for _, name := range proxyHeaders {
		value := r.Header.Get(name)
		if value == "" {
			continue
		}
		candidate, _, _ := strings.Cut(value, ",")
		candidate = strings.TrimSpace(candidate)
		if ip := net.ParseIP(candidate); ip != nil && !ip.IsUnspecified() {
			return ip.String()
		}
	}
	return r.RemoteAddr
}
