// Package api is the REST implementation of the remote task gateway.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/harrisonrobin/taskbox/pkg/gateway"
	"github.com/harrisonrobin/taskbox/pkg/model"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the hosted task service.
const DefaultBaseURL = "https://to-do-list-be-1.onrender.com"

// Client talks to the task REST API. Every request carries the bearer
// token from tokens.
type Client struct {
	baseURL string
	tokens  oauth2.TokenSource
	http    *http.Client
	logger  *slog.Logger
}

// NewClient returns a Client for baseURL. A nil httpClient uses
// http.DefaultClient; a nil logger discards output.
func NewClient(baseURL string, tokens oauth2.TokenSource, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    httpClient,
		logger:  logger,
	}
}

var _ gateway.Gateway = (*Client)(nil)

// wireTask accepts the server's "_id" when "id" is missing.
type wireTask struct {
	model.Task
	MongoID string `json:"_id,omitempty"`
}

func (c *Client) List(ctx context.Context) ([]model.Task, error) {
	var wire []wireTask
	if err := c.do(ctx, "list", http.MethodGet, "/tasks", nil, &wire); err != nil {
		return nil, err
	}
	tasks := make([]model.Task, 0, len(wire))
	for _, w := range wire {
		t := w.Task
		if t.ID == "" {
			t.ID = w.MongoID
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Create sends task with its local id. Tasks are addressed by that id
// afterwards, so a server that echoes a different id is only reported.
func (c *Client) Create(ctx context.Context, task model.Task) error {
	raw, _, err := c.send(ctx, "create", http.MethodPost, "/tasks", task)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var echoed wireTask
	if err := json.Unmarshal(raw, &echoed); err != nil {
		c.logger.Debug("ignoring unreadable create response", "id", task.ID, "error", err)
		return nil
	}
	remoteID := echoed.ID
	if remoteID == "" {
		remoteID = echoed.MongoID
	}
	if remoteID != "" && remoteID != task.ID {
		c.logger.Warn("server stored the task under a different id", "id", task.ID, "remote_id", remoteID)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, id string, patch model.Patch) error {
	return c.do(ctx, "update", http.MethodPut, taskPath(id), patch, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, taskPath(id), nil, nil)
}

func (c *Client) SetFavorite(ctx context.Context, id string, favorite bool) error {
	body := map[string]bool{"favorite": favorite}
	return c.do(ctx, "set favorite", http.MethodPatch, taskPath(id)+"/favorite", body, nil)
}

func (c *Client) SetCompleted(ctx context.Context, id string, completed bool) error {
	body := map[string]bool{"completed": completed}
	return c.do(ctx, "set completed", http.MethodPatch, taskPath(id)+"/complete", body, nil)
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

// do sends one request and decodes a non-empty response into out.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	raw, status, err := c.send(ctx, op, method, path, in)
	if err != nil {
		return err
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &gateway.RemoteRejectedError{
				Op:         op,
				StatusCode: status,
				Message:    fmt.Sprintf("unreadable response: %v", err),
			}
		}
	}
	return nil
}

// send performs one request and returns the body and status of a 2xx
// response. A missing credential fails before anything is sent. Non-2xx
// responses become RemoteRejectedError, everything that prevents a
// response becomes TransportError.
func (c *Client) send(ctx context.Context, op, method, path string, in any) ([]byte, int, error) {
	if c.tokens == nil {
		return nil, 0, fmt.Errorf("%s: %w", op, gateway.ErrPreconditionFailed)
	}
	tok, err := c.tokens.Token()
	if err != nil {
		if errors.Is(err, gateway.ErrPreconditionFailed) {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		return nil, 0, fmt.Errorf("%s: %w: %v", op, gateway.ErrPreconditionFailed, err)
	}
	if tok == nil || !tok.Valid() {
		return nil, 0, fmt.Errorf("%s: %w", op, gateway.ErrPreconditionFailed)
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tok.SetAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &gateway.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &gateway.TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &gateway.RemoteRejectedError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
	}
	return raw, resp.StatusCode, nil
}

// errorMessage prefers a JSON "message" or "error" field over the raw body.
func errorMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
