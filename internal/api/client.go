package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"llmdebate/internal/debate"
)

// HTTPError is a non-2xx response.
type HTTPError struct {
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Path, e.Status, e.Body)
}

// AppError is a 2xx response carrying {"status":"error"}.
type AppError struct {
	Path    string
	Message string
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Path + ": request rejected"
	}
	return e.Message
}

// Response is the common command reply.
type Response struct {
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	Topic        string `json:"topic,omitempty"`
	ForLabel     string `json:"for_label,omitempty"`
	AgainstLabel string `json:"against_label,omitempty"`
}

type StartRequest struct {
	SessionID    string `json:"session_id"`
	ForModel     string `json:"for_model"`
	AgainstModel string `json:"against_model"`
	MaxTurns     int    `json:"max_turns"`
}

type ModelRequest struct {
	SessionID    string `json:"session_id"`
	InstanceName string `json:"instance_name"`
	ModelName    string `json:"model_name"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type topicRequest struct {
	SessionID string `json:"session_id"`
	Topic     string `json:"topic"`
}

// Client issues debate commands over HTTP. Requests are never retried.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout < time.Second {
		timeout = time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Start(ctx context.Context, req StartRequest) (Response, error) {
	return c.post(ctx, "/api/start", req)
}

func (c *Client) Stop(ctx context.Context, sessionID string) (Response, error) {
	return c.post(ctx, "/api/stop", sessionRequest{SessionID: sessionID})
}

func (c *Client) Reset(ctx context.Context, sessionID string) (Response, error) {
	return c.post(ctx, "/api/reset", sessionRequest{SessionID: sessionID})
}

func (c *Client) SetTopic(ctx context.Context, sessionID, topic string) (Response, error) {
	return c.post(ctx, "/api/topic", topicRequest{SessionID: sessionID, Topic: topic})
}

func (c *Client) PullModel(ctx context.Context, req ModelRequest) (Response, error) {
	return c.post(ctx, "/api/pull_model", req)
}

func (c *Client) DeleteModel(ctx context.Context, req ModelRequest) (Response, error) {
	return c.post(ctx, "/api/delete_model", req)
}

// Conversation fetches the server-side history of the session.
func (c *Client) Conversation(ctx context.Context, sessionID string) ([]debate.Message, error) {
	path := "/api/conversation"
	endpoint := c.baseURL + path + "?" + url.Values{"session_id": {sessionID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	payload, err := c.do(req, path)
	if err != nil {
		return nil, err
	}
	var msgs []debate.Message
	if err := json.Unmarshal(payload, &msgs); err != nil {
		return nil, fmt.Errorf("%s: decode history: %w", path, err)
	}
	return msgs, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	payload, err := c.do(req, path)
	if err != nil {
		return Response{}, err
	}
	var resp Response
	if len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, &resp); err != nil {
			return Response{}, fmt.Errorf("%s: decode response: %w", path, err)
		}
	}
	if strings.EqualFold(resp.Status, "error") {
		return resp, &AppError{Path: path, Message: resp.Message}
	}
	return resp, nil
}

func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", path, err)
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", path, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{Path: path, Status: res.StatusCode, Body: compact(string(payload), 240)}
	}
	return payload, nil
}

func compact(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return s
}
