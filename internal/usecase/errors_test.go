package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"voicechat/internal/domain"
	"voicechat/internal/integrations/openai"
)

func TestClassifyCompletionError(t *testing.T) {
	cases := []struct {
		name   string
		err      error
		canceled bool
		code     ErrorCode
		reason   string
	}{
		{name: "rate limit", err: &openai.HTTPStatusError{StatusCode: http.StatusTooManyRequests}, code: ErrorRateLimited, reason: "submit_rate_limited"},
		{name: "auth", err: &openai.HTTPStatusError{StatusCode: http.StatusUnauthorized}, code: ErrorAuth, reason: "submit_auth_error"},
		{name: "server", err: &openai.HTTPStatusError{StatusCode: http.StatusServiceUnavailable}, code: ErrorUpstream, reason: "submit_upstream_error"},
		{name: "wrapped status", err: fmt.Errorf("openai: request failed: %w", &openai.HTTPStatusError{StatusCode: http.StatusTooManyRequests}), code: ErrorRateLimited, reason: "submit_rate_limited"},
		{name: "malformed", err: fmt.Errorf("x: %w", domain.ErrMalformedResponse), code: ErrorMalformedResponse, reason: "submit_malformed_response"},
		{name: "canceled", err: fmt.Errorf("do: %w", context.Canceled), canceled: true, code: ErrorCanceled, reason: "submit_canceled"},
		{name: "canceled after rate limit", err: &openai.HTTPStatusError{StatusCode: http.StatusTooManyRequests}, canceled: true, code: ErrorCanceled, reason: "submit_canceled"},
		{name: "stale context error on live request", err: fmt.Errorf("paramstore: fetch API key: %w", context.Canceled), code: ErrorNetwork, reason: "submit_network_error"},
		{name: "network", err: errors.New("no route to host"), code: ErrorNetwork, reason: "submit_network_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tc.canceled {
				cancel()
			}
			got := classifyCompletionError(ctx, "submit", tc.err)
			require.Equal(t, tc.code, got.Code)
			require.Equal(t, tc.reason, got.Reason)
			require.ErrorIs(t, got, tc.err)
		})
	}
}

func TestError_Message(t *testing.T) {
	require.Equal(t, "empty_input", newError(ErrorInvalidInput, "empty_input", nil).Message())
	require.Equal(t, "boom", newError(ErrorNetwork, "submit_network_error", errors.New("boom")).Message())
	require.Equal(t, ErrorBusy, ErrorCodeOf(fmt.Errorf("wrap: %w", newError(ErrorBusy, "submit_pending", nil))))
	require.Equal(t, ErrorCode(""), ErrorCodeOf(errors.New("plain")))
}
