package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"voicechat/internal/domain"
)

const (
	DefaultModel = "gemini-pro"

	roleUser  = "user"
	roleModel = "model"
)

// KeyResolver yields the API key used to open the Gemini client.
type KeyResolver interface {
	APIKey(ctx context.Context) (string, error)
}

// StatusError carries the HTTP-equivalent status of a failed Gemini call.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

func (e *StatusError) HTTPStatusCode() int {
	return e.Code
}

// request is one chat turn: everything before the final message becomes the
// chat history.
type request struct {
	system  string
	history []*genai.Content
	parts   []genai.Part
}

type sendFunc func(ctx context.Context, req request) (*genai.GenerateContentResponse, error)

// Client completes prompts with a Gemini model.
type Client struct {
	model string
	keys  KeyResolver
	opts  []option.ClientOption
	send  sendFunc

	mu     sync.Mutex
	client *genai.Client
}

type Option func(*Client)

// WithClientOptions appends options passed to genai.NewClient, e.g. an
// endpoint override.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *Client) {
		c.opts = append(c.opts, opts...)
	}
}

func NewClient(keys KeyResolver, model string, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("gemini: key resolver must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	c := &Client{model: model, keys: keys}
	c.send = c.sendChat
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Model() string {
	return c.model
}

// Complete sends the final message of messages as a chat turn and returns the
// concatenated text of the first candidate.
func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	req, err := toRequest(messages)
	if err != nil {
		return "", err
	}
	resp, err := c.send(ctx, req)
	if err != nil {
		return "", mapError(err)
	}
	return responseText(resp)
}

// Close releases the underlying genai client, if one was opened.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *Client) genaiClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini: resolve api key: %w", err)
	}
	opts := append([]option.ClientOption{option.WithAPIKey(key)}, c.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	c.client = client
	return client, nil
}

func (c *Client) sendChat(ctx context.Context, req request) (*genai.GenerateContentResponse, error) {
	client, err := c.genaiClient(ctx)
	if err != nil {
		return nil, err
	}
	model := client.GenerativeModel(c.model)
	if req.system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.system)}}
	}
	chat := model.StartChat()
	chat.History = req.history
	return chat.SendMessage(ctx, req.parts...)
}

func toRequest(messages []domain.ChatMessage) (request, error) {
	var req request
	var turns []*genai.Content
	var system []string
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := roleUser
		if m.Role == domain.RoleAssistant {
			role = roleModel
		}
		turns = append(turns, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != roleUser {
		return req, errors.New("gemini: last message must be a user prompt")
	}
	req.system = strings.Join(system, "\n\n")
	req.history = turns[:len(turns)-1]
	req.parts = turns[len(turns)-1].Parts
	return req, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: %w: no candidates", domain.ErrMalformedResponse)
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("gemini: %w: candidate has no content (finish reason %s)", domain.ErrMalformedResponse, cand.FinishReason)
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini: %w: candidate has no text", domain.ErrMalformedResponse)
	}
	return b.String(), nil
}

type httpCoder interface {
	HTTPCode() int
}

// mapError attaches an HTTP-equivalent status to err where one can be
// recovered, so callers classify Gemini and OpenAI failures alike.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("gemini: %w: %w", domain.ErrMalformedResponse, err)
	}

	var hc httpCoder
	if errors.As(err, &hc) && hc.HTTPCode() > 0 {
		return &StatusError{Code: hc.HTTPCode(), Err: err}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code > 0 {
		return &StatusError{Code: gerr.Code, Err: err}
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		if code, ok := grpcToHTTP[st.Code()]; ok {
			return &StatusError{Code: code, Err: err}
		}
	}
	return fmt.Errorf("gemini: send message: %w", err)
}

var grpcToHTTP = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.FailedPrecondition: http.StatusBadRequest,
	codes.Unauthenticated:    http.StatusUnauthorized,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.NotFound:           http.StatusNotFound,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.Internal:           http.StatusInternalServerError,
	codes.Unimplemented:      http.StatusNotImplemented,
	codes.Unavailable:        http.StatusServiceUnavailable,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
}
