package amazonses

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/espbridge/espbridge/core/dispatch"
	"github.com/espbridge/espbridge/core/provider"
)

const signingService = "ses"

// SigningTransport wraps a dispatch.Transport and SigV4-signs every
// request before handing it to the inner transport. It owns AWS
// authentication so the provider's Encode stays credential-free.
type SigningTransport struct {
	inner  dispatch.Transport
	creds  aws.CredentialsProvider
	signer *v4.Signer
	region string
	now    func() time.Time
}

// NewSigningTransport builds the signing wrapper. Static credentials from
// the config win; otherwise the default AWS credential chain (environment,
// shared config, instance role) is consulted.
func NewSigningTransport(ctx context.Context, cfg Config, inner dispatch.Transport) (*SigningTransport, error) {
	var creds aws.CredentialsProvider
	if cfg.AccessKeyID != "" {
		creds = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		creds = awsCfg.Credentials
	}
	return &SigningTransport{
		inner:  inner,
		creds:  creds,
		signer: v4.NewSigner(),
		region: cfg.Region,
		now:    time.Now,
	}, nil
}

// Do signs the request and delegates to the inner transport. The signed
// Authorization, X-Amz-Date, and session headers are copied back onto the
// wire request.
func (t *SigningTransport) Do(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	creds, err := t.creds.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve aws credentials: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("build signing request: %w", err)
	}
	for key, values := range req.Header {
		httpReq.Header[key] = values
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	sum := sha256.Sum256(req.Body)
	payloadHash := hex.EncodeToString(sum[:])
	if err := t.signer.SignHTTP(ctx, creds, httpReq, payloadHash, signingService, t.region, t.now()); err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	signed := *req
	signed.Header = httpReq.Header
	return t.inner.Do(ctx, &signed)
}
