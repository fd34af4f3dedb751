package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"teamboard-cli/internal/logging"
)

const (
	SessionQueryParam = "session_id"
	UserIDHeader      = "x-user-id"
)

type Request struct {
	Method string
	Path   string
	Body   any
	Query  url.Values
}

type Response struct {
	Data   json.RawMessage
	Status int
}

type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

type DoerFunc func(ctx context.Context, req Request) (*Response, error)

func (f DoerFunc) Do(ctx context.Context, req Request) (*Response, error) { return f(ctx, req) }

// Middleware decorates every call made through a Client.
type Middleware func(next Doer) Doer

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is the single HTTP entry point for the API. It injects the session id
// query parameter and the user id header into every request.
type Client struct {
	base *url.URL
	http *http.Client
	log  *slog.Logger

	mu        sync.RWMutex
	sessionID string
	userID    string
	chain     Doer
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url: %q", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	c := &Client{
		base: base,
		http: hc,
		log:  logging.OrDiscard(opts.Logger),
	}
	c.chain = DoerFunc(c.transport)
	return c, nil
}

// Use wraps the current call chain with mws. The first middleware is outermost.
func (c *Client) Use(mws ...Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(mws) - 1; i >= 0; i-- {
		c.chain = mws[i](c.chain)
	}
}

// Raw returns the undecorated transport (identity injection only, no middleware).
func (c *Client) Raw() Doer { return DoerFunc(c.transport) }

func (c *Client) SetSessionID(id string) {
	c.mu.Lock()
	c.sessionID = strings.TrimSpace(id)
	c.mu.Unlock()
}

func (c *Client) SetUserID(id int64) {
	c.mu.Lock()
	c.userID = strconv.FormatInt(id, 10)
	c.mu.Unlock()
}

func (c *Client) ClearIdentity() {
	c.mu.Lock()
	c.sessionID = ""
	c.userID = ""
	c.mu.Unlock()
}

func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	c.mu.RLock()
	chain := c.chain
	c.mu.RUnlock()
	return chain.Do(ctx, req)
}

func (c *Client) transport(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(req.Path, "/")
	q := url.Values{}
	for k, vs := range req.Query {
		q[k] = append([]string(nil), vs...)
	}

	c.mu.RLock()
	sessionID, userID := c.sessionID, c.userID
	c.mu.RUnlock()
	if sessionID != "" {
		q.Set(SessionQueryParam, sessionID)
	}
	u.RawQuery = q.Encode()

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, req.Path, err)
		}
		body = bytes.NewReader(b)
	}

	hreq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, networkError(method, req.Path, err)
	}
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		hreq.Header.Set(UserIDHeader, userID)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		c.log.Debug("api request failed", "method", method, "path", req.Path, "err", err)
		return nil, networkError(method, req.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(method, req.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug("api request rejected", "method", method, "path", req.Path, "status", resp.StatusCode)
		return nil, httpError(method, req.Path, resp.StatusCode, raw)
	}
	out := &Response{Status: resp.StatusCode}
	if len(bytes.TrimSpace(raw)) > 0 {
		out.Data = json.RawMessage(raw)
	}
	return out, nil
}

// Call performs req and decodes the response payload into out (when non-nil).
func (c *Client) Call(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.Path, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Call(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Call(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Call(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Call(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Call(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// NewSession asks the backend for a fresh session id.
func (c *Client) NewSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.Post(ctx, "/_synthetic/new_session", map[string]any{}, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.SessionID) == "" {
		return "", fmt.Errorf("new session: empty session_id in response")
	}
	return out.SessionID, nil
}
