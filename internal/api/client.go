// Package api is the gateway to the storefront REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/SigNoz/ecommerce-go-storefront/internal/metrics"
)

var logger = loggo.GetLogger("storefront.api")

// Config holds the dependencies of a Client.
type Config struct {
	// BaseURL is the API root, e.g. http://localhost:8000/api.
	BaseURL string

	// Tokens holds the bearer credential. Defaults to a MemoryTokenStore.
	Tokens TokenStore

	// Metrics is optional.
	Metrics *metrics.AppMetrics

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client

	// OnUnauthorized is called after the credential has been cleared
	// because the backend answered 401.
	OnUnauthorized func()
}

// Client calls the storefront backend. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenStore
	metrics *metrics.AppMetrics

	mu             sync.Mutex
	onUnauthorized func()

	Auth     *AuthService
	Products *ProductService
	Cart     *CartService
	Orders   *OrderService
	Payments *PaymentService
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, errors.Annotatef(err, "parsing API base URL %q", cfg.BaseURL)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.NotValidf("API base URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = &MemoryTokenStore{}
	}

	c := &Client{
		baseURL:        base,
		http:           httpClient,
		tokens:         tokens,
		metrics:        cfg.Metrics,
		onUnauthorized: cfg.OnUnauthorized,
	}
	c.Auth = &AuthService{c: c}
	c.Products = &ProductService{c: c}
	c.Cart = &CartService{c: c}
	c.Orders = &OrderService{c: c}
	c.Payments = &PaymentService{c: c}
	return c, nil
}

// Tokens returns the credential store used by the client.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// SetOnUnauthorized replaces the hook called after a 401.
func (c *Client) SetOnUnauthorized(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = f
}

// newRequest builds a request for path relative to the base URL.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u, err := c.baseURL.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, errors.Annotatef(err, "building URL for %q", path)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Trace(err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// send attaches the credential and a request id, then executes req. Any
// non-2xx response is turned into an error and its body closed.
func (c *Client) send(req *http.Request, route string) (*http.Response, error) {
	token, err := c.tokens.Token()
	if err != nil {
		logger.Warningf("reading stored credential: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordAPIRequest(req.Context(), req.Method, route, 0, start)
		return nil, errors.Annotatef(err, "%s %s", req.Method, route)
	}
	c.metrics.RecordAPIRequest(req.Context(), req.Method, route, resp.StatusCode, start)
	logger.Debugf("%s %s -> %d (%s)", req.Method, req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusUnauthorized {
		c.unauthorized()
	}
	return nil, errorFromResponse(resp.StatusCode, body)
}

// unauthorized drops the credential and fires the hook. Other requests in
// flight are left alone.
func (c *Client) unauthorized() {
	if err := c.tokens.Clear(); err != nil {
		logger.Errorf("clearing credential after 401: %v", err)
	}
	logger.Warningf("credential rejected, session ended")
	c.mu.Lock()
	hook := c.onUnauthorized
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// do sends an optional JSON body and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Annotate(err, "encoding request body")
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return errors.Trace(err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.send(req, routeOf(path))
	if err != nil {
		return errors.Trace(err)
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Annotatef(err, "decoding %s %s response", method, path)
	}
	return nil
}

// errorFromResponse maps a failed response onto the juju error kinds.
func errorFromResponse(status int, body []byte) error {
	msg := serverMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch status {
	case http.StatusBadRequest:
		return errors.NewBadRequest(nil, msg)
	case http.StatusUnauthorized:
		return errors.NewUnauthorized(nil, msg)
	case http.StatusForbidden:
		return errors.NewForbidden(nil, msg)
	case http.StatusNotFound:
		return errors.NewNotFound(nil, msg)
	case http.StatusConflict:
		return errors.NewAlreadyExists(nil, msg)
	}
	return errors.Errorf("server returned %d: %s", status, msg)
}

// serverMessage extracts a readable message from {"error": ...},
// {"detail": ...} or a field error map such as {"email": ["taken"]}.
func serverMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, key := range []string{"error", "detail", "message", "non_field_errors"} {
		if raw, ok := fields[key]; ok {
			if s := flatten(raw); s != "" {
				return s
			}
		}
	}
	var parts []string
	for key, raw := range fields {
		if s := flatten(raw); s != "" {
			parts = append(parts, key+": "+s)
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func flatten(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return strings.Join(list, " ")
	}
	return ""
}

// routeOf replaces numeric and order id segments so metrics keep a small
// label set.
func routeOf(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segs {
		if s == "" {
			continue
		}
		if isID(s) {
			segs[i] = "{id}"
		}
	}
	return "/" + strings.Join(segs, "/") + "/"
}

func isID(s string) bool {
	if strings.HasPrefix(s, "ORD") {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
