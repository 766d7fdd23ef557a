// Package assistant calls the external reply-generation service used for
// auto-replies.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/retry"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/version"
	"github.com/sony/gobreaker"
)

const (
	requestTimeout = 15 * time.Second
	maxReplyLength = domain.MaxMessageLength
)

type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker
	policy   retry.Policy
}

var _ domain.ReplyGenerator = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }
func WithRetryPolicy(p retry.Policy) Option { return func(c *Client) { c.policy = p } }

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/v1/reply",
		apiKey:   apiKey,
		http:     &http.Client{Timeout: requestTimeout},
		policy: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   500 * time.Millisecond,
			RateLimitBackoff: 3 * time.Second,
			MaxBackoff:       5 * time.Second,
		},
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "assistant",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// Client errors mean our request was wrong, not that the service is down.
			var se *StatusError
			return err == nil || (errors.As(err, &se) && se.Code < 500 && se.Code != http.StatusTooManyRequests)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("assistant returned status %d: %s", e.Code, e.Body)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type replyRequest struct {
	Persona  string        `json:"persona"`
	Messages []chatMessage `json:"messages"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

// Reply generates a message in the voice described by persona. history is
// oldest first; FromPeer turns are the other party's messages.
func (c *Client) Reply(ctx context.Context, persona string, history []domain.ChatTurn) (string, error) {
	req := replyRequest{Persona: persona, Messages: make([]chatMessage, 0, len(history))}
	for _, turn := range history {
		role := "assistant"
		if turn.FromPeer {
			role = "user"
		}
		req.Messages = append(req.Messages, chatMessage{Role: role, Content: turn.Text})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal reply request: %w", err)
	}

	reply, err := retry.Do(ctx, c.policy, classify, func() (string, error) {
		out, err := c.cb.Execute(func() (any, error) { return c.post(ctx, body) })
		if err != nil {
			return "", err
		}
		return out.(string), nil
	})
	if err != nil {
		return "", fmt.Errorf("assistant reply: %w", err)
	}
	return reply, nil
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var out replyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	reply := strings.TrimSpace(out.Reply)
	if reply == "" {
		return "", errors.New("assistant returned an empty reply")
	}
	if r := []rune(reply); len(r) > maxReplyLength {
		reply = string(r[:maxReplyLength])
	}
	return reply, nil
}

func classify(err error) retry.Action {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return retry.Stop
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}
	var se *StatusError
	if errors.As(err, &se) {
		return retry.ClassifyHTTPStatus(se.Code)
	}
	return retry.Retry
}

// State exposes the breaker state for health reporting and tests.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}
