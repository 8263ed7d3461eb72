package classify_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espbridge/espbridge/core/classify"
)

func TestFromStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		header    http.Header
		wantKind  classify.Kind
		retryable bool
		backoff   time.Duration
	}{
		{
			name:     "success is unclassified",
			status:   http.StatusAccepted,
			wantKind: "",
		},
		{
			name:      "rate limit is transient retryable",
			status:    http.StatusTooManyRequests,
			wantKind:  classify.Transient,
			retryable: true,
		},
		{
			name:      "rate limit honors retry-after",
			status:    http.StatusTooManyRequests,
			header:    http.Header{"Retry-After": []string{"30"}},
			wantKind:  classify.Transient,
			retryable: true,
			backoff:   30 * time.Second,
		},
		{
			name:     "unauthorized is configuration",
			status:   http.StatusUnauthorized,
			wantKind: classify.Configuration,
		},
		{
			name:     "forbidden is configuration",
			status:   http.StatusForbidden,
			wantKind: classify.Configuration,
		},
		{
			name:     "bad request is permanent",
			status:   http.StatusBadRequest,
			wantKind: classify.Permanent,
		},
		{
			name:     "unprocessable entity is permanent",
			status:   http.StatusUnprocessableEntity,
			wantKind: classify.Permanent,
		},
		{
			name:      "server error is transient retryable",
			status:    http.StatusBadGateway,
			wantKind:  classify.Transient,
			retryable: true,
		},
		{
			name:     "unrecognized status is unknown non-retryable",
			status:   http.StatusTeapot,
			wantKind: classify.Unknown,
		},
		{
			name:      "malformed retry-after ignored",
			status:    http.StatusTooManyRequests,
			header:    http.Header{"Retry-After": []string{"soon"}},
			wantKind:  classify.Transient,
			retryable: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := classify.FromStatusCode(tt.status, tt.header)
			assert.Equal(t, tt.wantKind, c.Kind)
			assert.Equal(t, tt.retryable, c.Retryable)
			assert.Equal(t, tt.backoff, c.RetryAfter)
		})
	}
}

func TestError(t *testing.T) {
	t.Parallel()

	t.Run("wraps cause", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("connection reset")
		err := classify.NewError(classify.Transient, "upstream hiccup", cause)

		assert.ErrorIs(t, err, cause)
		assert.True(t, err.Retryable())
		assert.Contains(t, err.Error(), "transient")
		assert.Contains(t, err.Error(), "upstream hiccup")
	})

	t.Run("only transient defaults to retryable", func(t *testing.T) {
		t.Parallel()

		assert.False(t, classify.NewError(classify.Permanent, "", nil).Retryable())
		assert.False(t, classify.NewError(classify.Configuration, "", nil).Retryable())
		assert.False(t, classify.NewError(classify.Unknown, "", nil).Retryable())
	})

	t.Run("errors.As through wrapping", func(t *testing.T) {
		t.Parallel()

		inner := classify.NewError(classify.Configuration, "bad api key", nil)
		wrapped := errors.Join(errors.New("send failed"), inner)

		var ce *classify.Error
		require.True(t, errors.As(wrapped, &ce))
		assert.Equal(t, classify.Configuration, ce.Class.Kind)
	})
}
