package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"rate limited", ErrRateLimited, ErrorTransient},
		{"timeout", ErrCallTimeout, ErrorTransient},
		{"circuit open", ErrCircuitOpen, ErrorTransient},
		{"deadline", context.DeadlineExceeded, ErrorTransient},
		{"auth", ErrAuthenticationFailed, ErrorFatal},
		{"quota", ErrQuotaExceeded, ErrorFatal},
		{"invalid domain", ErrInvalidDomain, ErrorInvalid},
		{"unsupported tld", ErrUnsupportedTLD, ErrorInvalid},
		{"unknown defaults transient", stderrors.New("something odd"), ErrorTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestWrapPreservesSentinel(t *testing.T) {
	err := WrapTransient(ErrRateLimited, "Orchestrator", "attemptSource", "upstream call")
	require.Error(t, err)

	assert.True(t, stderrors.Is(err, ErrRateLimited))
	assert.True(t, IsTransient(err))
	assert.False(t, IsFatal(err))

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, "Orchestrator", ce.Component)
	assert.Equal(t, "attemptSource", ce.Operation)
	assert.True(t, ce.Retryable())
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "c", "m", "a"))
	assert.NoError(t, WrapTransient(nil, "c", "m", "a"))
	assert.NoError(t, WrapInvalid(nil, "c", "m", "a"))
	assert.NoError(t, WrapFatal(nil, "c", "m", "a"))
}

func TestCodedCarriesPresentationMetadata(t *testing.T) {
	err := Coded(ErrorFatal, "exhausted", ErrNoSourceAvailable,
		"every source failed; check upstream status")

	assert.Equal(t, "exhausted", CodeOf(err))
	assert.Equal(t, "every source failed; check upstream status", SuggestionOf(err))
	assert.False(t, err.Retryable())
	assert.True(t, stderrors.Is(err, ErrNoSourceAvailable))

	// Code survives further wrapping.
	wrapped := fmt.Errorf("resolve: %w", err)
	assert.Equal(t, "exhausted", CodeOf(wrapped))
}

func TestCodeOfUnclassified(t *testing.T) {
	assert.Equal(t, "unknown", CodeOf(stderrors.New("plain")))
	assert.Equal(t, "", SuggestionOf(stderrors.New("plain")))
}

func TestIsRetryableExcludesCircuitOpen(t *testing.T) {
	// Circuit-open is transient but carries its own recovery timer; the
	// caller must not spend retry budget on it.
	assert.True(t, IsTransient(ErrCircuitOpen))
	assert.False(t, IsRetryable(ErrCircuitOpen))
	assert.True(t, IsRetryable(ErrRateLimited))
	assert.False(t, IsRetryable(ErrAuthenticationFailed))
	assert.False(t, IsRetryable(nil))
}
