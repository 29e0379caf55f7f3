package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"voicechat/internal/domain"
)

type staticKey string

func (k staticKey) APIKey(context.Context) (string, error) { return string(k), nil }

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: roleModel, Parts: parts},
	}}}
}

func newTestClient(t *testing.T, send sendFunc) *Client {
	t.Helper()
	c, err := NewClient(staticKey("k"), "")
	require.NoError(t, err)
	c.send = send
	return c
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(nil, "gemini-pro")
	require.Error(t, err)

	c, err := NewClient(staticKey("k"), " ")
	require.NoError(t, err)
	require.Equal(t, DefaultModel, c.Model())
	require.NoError(t, c.Close())
}

func TestComplete_SplitsSystemHistoryAndPrompt(t *testing.T) {
	var got request
	c := newTestClient(t, func(_ context.Context, req request) (*genai.GenerateContentResponse, error) {
		got = req
		return textResponse(genai.Text("Hi "), genai.Text("there")), nil
	})

	out, err := c.Complete(context.Background(), []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "Be brief."},
		{Role: domain.RoleAssistant, Content: "Welcome!"},
		{Role: domain.RoleUser, Content: "What is Go?"},
		{Role: domain.RoleAssistant, Content: "A language."},
		{Role: domain.RoleUser, Content: "Hello"},
	})
	require.NoError(t, err)
	require.Equal(t, "Hi there", out)

	require.Equal(t, "Be brief.", got.system)
	require.Equal(t, []genai.Part{genai.Text("Hello")}, got.parts)
	require.Len(t, got.history, 3)
	require.Equal(t, roleModel, got.history[0].Role)
	require.Equal(t, roleUser, got.history[1].Role)
	require.Equal(t, roleModel, got.history[2].Role)
}

func TestComplete_RequiresTrailingUserPrompt(t *testing.T) {
	c := newTestClient(t, func(context.Context, request) (*genai.GenerateContentResponse, error) {
		t.Fatal("send must not be called")
		return nil, nil
	})
	_, err := c.Complete(context.Background(), []domain.ChatMessage{{Role: domain.RoleAssistant, Content: "x"}})
	require.Error(t, err)
}

func TestComplete_MalformedResponses(t *testing.T) {
	cases := map[string]*genai.GenerateContentResponse{
		"nil":          nil,
		"no candidate": {},
		"no content":   {Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}},
		"no text":      textResponse(genai.Blob{MIMEType: "audio/mp3"}),
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(context.Context, request) (*genai.GenerateContentResponse, error) {
				return resp, nil
			})
			_, err := c.Complete(context.Background(), []domain.ChatMessage{{Role: domain.RoleUser, Content: "x"}})
			require.ErrorIs(t, err, domain.ErrMalformedResponse)
		})
	}
}

type httpCodeErr int

func (e httpCodeErr) Error() string { return fmt.Sprintf("http %d", int(e)) }
func (e httpCodeErr) HTTPCode() int { return int(e) }

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{name: "http coder", err: httpCodeErr(http.StatusTooManyRequests), code: http.StatusTooManyRequests},
		{name: "googleapi", err: &googleapi.Error{Code: http.StatusForbidden}, code: http.StatusForbidden},
		{name: "grpc exhausted", err: status.Error(codes.ResourceExhausted, "quota"), code: http.StatusTooManyRequests},
		{name: "grpc unauthenticated", err: status.Error(codes.Unauthenticated, "bad key"), code: http.StatusUnauthorized},
		{name: "grpc unavailable", err: status.Error(codes.Unavailable, "down"), code: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := mapError(tc.err)
			var se *StatusError
			require.ErrorAs(t, mapped, &se)
			require.Equal(t, tc.code, se.HTTPStatusCode())
			require.ErrorIs(t, mapped, tc.err)
		})
	}
}

func TestMapError_WithoutStatus(t *testing.T) {
	plain := errors.New("dial tcp: timeout")
	mapped := mapError(plain)
	var se *StatusError
	require.False(t, errors.As(mapped, &se))
	require.ErrorIs(t, mapped, plain)

	require.Equal(t, context.Canceled, mapError(context.Canceled))

	blocked := mapError(&genai.BlockedError{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety}})
	require.ErrorIs(t, blocked, domain.ErrMalformedResponse)
}

func TestComplete_PropagatesMappedError(t *testing.T) {
	c := newTestClient(t, func(context.Context, request) (*genai.GenerateContentResponse, error) {
		return nil, status.Error(codes.ResourceExhausted, "slow down")
	})
	_, err := c.Complete(context.Background(), []domain.ChatMessage{{Role: domain.RoleUser, Content: "x"}})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusTooManyRequests, se.Code)
}
