// Package remote is the HTTP transport to the per-user, per-month line item
// store.
//
// Every call takes the caller's session explicitly; the client holds no
// credentials of its own and never retries.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"budgeting/internal/core"
	applog "budgeting/internal/log"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 4 << 10

var ErrBulkUnsupported = errors.New("bulk upsert is only supported for expenses")

// StatusError is returned when the store answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// NotFound reports whether the store did not know the addressed record.
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL   *url.URL
	transport http.RoundTripper
	timeout   time.Duration
	logger    *applog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets the base round tripper beneath the credential layer.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *applog.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(applog.ComponentRemote) }
}

// New creates a client for the store at baseURL (e.g. https://host/api).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url scheme %q: must be http or https", u.Scheme)
	}
	c := &Client{
		baseURL:   u,
		transport: http.DefaultTransport,
		timeout:   10 * time.Second,
		logger:    applog.FromContext(context.Background()).WithComponent(applog.ComponentRemote),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchAll returns every item of the scope in store order.
func (c *Client) FetchAll(ctx context.Context, sess core.Session, scope core.Scope) ([]core.LineItem, error) {
	q := url.Values{}
	q.Set("userId", scope.UserID)
	q.Set("month", string(scope.Month))

	body, err := c.do(ctx, sess, http.MethodGet, c.endpoint(q, string(scope.Category)), nil)
	if err != nil {
		return nil, err
	}
	items, skipped, err := DecodeItems(scope.Category, body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		c.logger.WarnContext(ctx, "Skipped malformed items from store",
			applog.NewFields().WithScope(scope).WithCount(skipped).ToSlice()...)
	}
	for i := range items {
		items[i] = items[i].InScope(scope)
	}
	return items, nil
}

// Create sends the full item and returns it with the id the store
// assigned. A store that acknowledges without echoing the item yields the
// sent item with whatever id the acknowledgement carried.
func (c *Client) Create(ctx context.Context, sess core.Session, scope core.Scope, item core.LineItem) (core.LineItem, error) {
	item = item.InScope(scope)
	payload, err := EncodeItem(scope.Category, item)
	if err != nil {
		return core.LineItem{}, err
	}
	body, err := c.do(ctx, sess, http.MethodPost, c.endpoint(nil, string(scope.Category)), payload)
	if err != nil {
		return core.LineItem{}, err
	}

	created := item
	if echoed, err := DecodeItem(scope.Category, body); err == nil {
		created.ID = echoed.ID
		if echoed.Name == item.Name {
			created.Value = echoed.Value
			created.Tags = echoed.Tags
		}
	} else {
		var ack map[string]json.RawMessage
		if json.Unmarshal(body, &ack) == nil {
			created.ID = rawString(ack[fieldID])
		}
	}
	return created, nil
}

// Update sends only the patched attributes of the record addressed by key
// (id, or name before sync). The store must reject unknown keys.
func (c *Client) Update(ctx context.Context, sess core.Session, scope core.Scope, key string, patch core.Patch) error {
	payload, err := json.Marshal(NewUpdateRequest(patch))
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}
	_, err = c.do(ctx, sess, http.MethodPut, c.itemEndpoint(scope, key), payload)
	return err
}

// Delete removes the record addressed by key.
func (c *Client) Delete(ctx context.Context, sess core.Session, scope core.Scope, key string) error {
	_, err := c.do(ctx, sess, http.MethodDelete, c.itemEndpoint(scope, key), nil)
	return err
}

// BulkUpsert writes the whole batch in one call. Expense scope only.
func (c *Client) BulkUpsert(ctx context.Context, sess core.Session, scope core.Scope, items []core.LineItem) error {
	if scope.Category != core.Expense {
		return ErrBulkUnsupported
	}
	req := BulkRequest{Expenses: make([]json.RawMessage, 0, len(items))}
	for _, it := range items {
		raw, err := EncodeItem(core.Expense, it.InScope(scope))
		if err != nil {
			return err
		}
		req.Expenses = append(req.Expenses, raw)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode bulk request: %w", err)
	}
	_, err = c.do(ctx, sess, http.MethodPost, c.endpoint(nil, string(core.Expense)), payload)
	return err
}

func (c *Client) endpoint(q url.Values, segments ...string) *url.URL {
	u := *c.baseURL
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = c.baseURL.Path + "/" + strings.Join(segments, "/")
	u.RawPath = c.baseURL.EscapedPath() + "/" + strings.Join(escaped, "/")
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return &u
}

func (c *Client) itemEndpoint(scope core.Scope, key string) *url.URL {
	return c.endpoint(nil, string(scope.Category), scope.UserID, string(scope.Month), key)
}

// httpClient attaches the session's bearer token to every request.
func (c *Client) httpClient(sess core.Session) *http.Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: sess.Token})
	return &http.Client{
		Transport: &oauth2.Transport{Source: src, Base: c.transport},
		Timeout:   c.timeout,
	}
}

func (c *Client) do(ctx context.Context, sess core.Session, method string, u *url.URL, payload []byte) ([]byte, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient(sess).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Store request completed",
		applog.FieldMethod, method,
		applog.FieldPath, u.Path,
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method:     method,
			Path:       u.Path,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}
