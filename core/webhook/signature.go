package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"
)

// DefaultSkewWindow bounds how far a timestamped signature may drift from
// the local clock before it is treated as a replay.
const DefaultSkewWindow = 5 * time.Minute

// Header names for the generic HMAC scheme.
const (
	SignatureHeader = "X-Webhook-Signature"
	TimestampHeader = "X-Webhook-Timestamp"
)

// SecureCompare reports whether two strings are equal in constant time,
// avoiding timing side-channels on shared secrets.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ComputeHMAC returns the hex-encoded HMAC-SHA256 of data under key.
func ComputeHMAC(key string, data []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// CheckSkew validates that ts is within window of now, in either
// direction. A zero window falls back to DefaultSkewWindow.
func CheckSkew(now, ts time.Time, window time.Duration) error {
	if window <= 0 {
		window = DefaultSkewWindow
	}
	drift := now.Sub(ts)
	if drift < 0 {
		drift = -drift
	}
	if drift > window {
		return fmt.Errorf("%w: drift %s exceeds %s", ErrTimestampSkew, drift, window)
	}
	return nil
}

// CheckBasicAuth verifies Authorization: Basic credentials against the
// expected username and password using constant-time comparison. Username
// may be empty when only the password half carries the secret.
func CheckBasicAuth(header http.Header, username, password string) error {
	raw := header.Get("Authorization")
	if raw == "" {
		return fmt.Errorf("%w: no authorization header", ErrMissingSignature)
	}
	const prefix = "Basic "
	if !strings.HasPrefix(raw, prefix) {
		return fmt.Errorf("%w: not basic auth", ErrVerificationFailed)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw[len(prefix):])
	if err != nil {
		return fmt.Errorf("%w: malformed basic auth", ErrVerificationFailed)
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return fmt.Errorf("%w: malformed basic auth", ErrVerificationFailed)
	}
	// Compare both halves unconditionally to keep timing independent of
	// which one mismatched.
	userOK := SecureCompare(user, username)
	passOK := SecureCompare(pass, password)
	if !userOK || !passOK {
		return fmt.Errorf("%w: basic auth mismatch", ErrVerificationFailed)
	}
	return nil
}

// IPAllowlist is an immutable set of CIDR ranges a provider's webhook
// calls may originate from.
type IPAllowlist struct {
	prefixes []netip.Prefix
}

// NewIPAllowlist parses CIDR ranges (bare addresses are accepted as /32
// or /128).
func NewIPAllowlist(cidrs ...string) (*IPAllowlist, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		if !strings.Contains(c, "/") {
			addr, err := netip.ParseAddr(c)
			if err != nil {
				return nil, fmt.Errorf("invalid allowlist address %q: %w", c, err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(c)
		if err != nil {
			return nil, fmt.Errorf("invalid allowlist range %q: %w", c, err)
		}
		prefixes = append(prefixes, p)
	}
	return &IPAllowlist{prefixes: prefixes}, nil
}

// Check validates that remoteAddr (host or host:port) is inside one of the
// allowed ranges.
func (l *IPAllowlist) Check(remoteAddr string) error {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: unparseable remote address %q", ErrForbiddenAddress, remoteAddr)
	}
	for _, p := range l.prefixes {
		if p.Contains(addr) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrForbiddenAddress, addr)
}

// SignPayload produces the generic HMAC scheme headers for a payload:
// a hex HMAC-SHA256 over "<unix timestamp>.<body>" plus the timestamp
// itself, so receivers can enforce a replay window.
func SignPayload(secret string, payload []byte, now time.Time) map[string]string {
	ts := strconv.FormatInt(now.Unix(), 10)
	signed := append([]byte(ts+"."), payload...)
	return map[string]string{
		SignatureHeader: ComputeHMAC(secret, signed),
		TimestampHeader: ts,
	}
}

// HMACVerifier checks the generic HMAC scheme produced by SignPayload.
type HMACVerifier struct {
	secret string
	window time.Duration
	now    func() time.Time
}

// NewHMACVerifier creates a verifier for the generic scheme. A zero skew
// window uses DefaultSkewWindow.
func NewHMACVerifier(secret string, window time.Duration) *HMACVerifier {
	return &HMACVerifier{secret: secret, window: window, now: time.Now}
}

// Verify implements the Verifier contract for the generic HMAC scheme.
func (v *HMACVerifier) Verify(req *Request) error {
	sig := req.Header.Get(SignatureHeader)
	if sig == "" {
		return fmt.Errorf("%w: no %s header", ErrMissingSignature, SignatureHeader)
	}
	rawTS := req.Header.Get(TimestampHeader)
	if rawTS == "" {
		return fmt.Errorf("%w: no %s header", ErrMissingSignature, TimestampHeader)
	}
	unix, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", ErrVerificationFailed)
	}
	if err := CheckSkew(v.now(), time.Unix(unix, 0), v.window); err != nil {
		return err
	}
	signed := append([]byte(rawTS+"."), req.Body...)
	if !SecureCompare(sig, ComputeHMAC(v.secret, signed)) {
		return fmt.Errorf("%w: signature mismatch", ErrVerificationFailed)
	}
	return nil
}
