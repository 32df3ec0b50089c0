// Package apiclient is the single path through which the console talks to the content backend.
// Every call made on behalf of a signed-in principal carries the bearer credential from the
// token store; rejected credentials trigger the session teardown callback exactly as a 401 would.
package apiclient

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
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	apperrors "github.com/versehub/console/internal/errors"
	"github.com/versehub/console/internal/observability/metrics"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseBody = 4 << 20

	// messageExpr pulls a human readable message out of a JSON error body.
	messageExpr = "message || error_description || error"
)

// TokenSource supplies the bearer credential for the current client.
type TokenSource interface {
	GetToken(ctx context.Context) (string, bool)
}

// AuthFailureFunc is invoked once per rejected call before the error is returned.
type AuthFailureFunc func(ctx context.Context)

// Request describes one backend call. Path is relative to the client base URL.
// Body is JSON-encoded unless it is a RawBody.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// RawBody is a payload sent as-is under its own content type.
type RawBody struct {
	ContentType string
	Data        io.Reader
}

// Multipart wraps a multipart body; contentType must carry the boundary
// (multipart.Writer.FormDataContentType).
func Multipart(contentType string, data io.Reader) RawBody {
	return RawBody{ContentType: contentType, Data: data}
}

// Binary wraps an opaque payload. An empty content type means application/octet-stream.
func Binary(contentType string, data io.Reader) RawBody {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return RawBody{ContentType: contentType, Data: data}
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL          string
	HTTPClient       *http.Client     // Optional: defaults to a client with Timeout
	Timeout          time.Duration    // Optional: per-call timeout for the default client
	TokenInvalidExpr string           // Optional: JMESPath flag marking a rejected credential
	OrderExpr        string           // Optional: JMESPath extracting order values from listings
	Metrics          *metrics.Metrics // Optional
	Logger           *slog.Logger     // Optional
}

// Client performs backend calls. It is safe for concurrent use.
type Client struct {
	base         *url.URL
	http         *http.Client
	tokenInvalid jmespath.JMESPath
	message      jmespath.JMESPath
	orders       jmespath.JMESPath
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// New builds a Client, compiling the configured expressions up front.
func New(opts ClientOptions) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base url %q", opts.BaseURL)
	}

	c := &Client{
		base:    base,
		http:    opts.HTTPClient,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "apiclient")

	if expr := strings.TrimSpace(opts.TokenInvalidExpr); expr != "" {
		if c.tokenInvalid, err = jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("apiclient: token invalid expression: %w", err)
		}
	}
	orderExpr := strings.TrimSpace(opts.OrderExpr)
	if orderExpr == "" {
		orderExpr = "data[].order"
	}
	if c.orders, err = jmespath.Compile(orderExpr); err != nil {
		return nil, fmt.Errorf("apiclient: order expression: %w", err)
	}
	if c.message, err = jmespath.Compile(messageExpr); err != nil {
		return nil, err
	}
	return c, nil
}

// Do performs an unauthenticated call and decodes a JSON response into out (when non-nil).
// Without a session there is nothing to tear down, so 401/403 surface as upstream errors.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	resp, err := c.send(ctx, req, "")
	if err != nil {
		return err
	}
	if failure := c.failure(resp); failure != nil {
		return failure
	}
	return resp.decode(out)
}

// As binds the client to a token source and a teardown callback.
func (c *Client) As(tokens TokenSource, onAuthFailure AuthFailureFunc) *Caller {
	return &Caller{client: c, tokens: tokens, onAuthFailure: onAuthFailure}
}

// Caller performs calls on behalf of one signed-in principal.
type Caller struct {
	client        *Client
	tokens        TokenSource
	onAuthFailure AuthFailureFunc
}

// Do sends req with the current bearer credential. A 401, a 403, or a body flagged by the
// token-invalid expression runs the teardown callback and yields a session_expired error.
func (c *Caller) Do(ctx context.Context, req Request, out any) error {
	token := ""
	if c.tokens != nil {
		token, _ = c.tokens.GetToken(ctx)
	}

	resp, err := c.client.send(ctx, req, token)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden || c.client.flagsInvalidToken(resp) {
		c.client.logger.InfoContext(ctx, "backend rejected credential", "path", req.Path, "status", resp.status)
		if c.onAuthFailure != nil {
			c.onAuthFailure(ctx)
		}
		return apperrors.SessionExpired(resp.status, c.client.extractMessage(resp))
	}
	if failure := c.client.failure(resp); failure != nil {
		return failure
	}
	return resp.decode(out)
}

// Orders lists the children at path and returns their order values.
// Non-integer values are skipped.
func (c *Caller) Orders(ctx context.Context, path string) ([]int, error) {
	var body any
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: path}, &body); err != nil {
		return nil, err
	}
	found, err := c.client.orders.Search(body)
	if err != nil {
		return nil, fmt.Errorf("extract order values: %w", err)
	}
	return toInts(found), nil
}

type response struct {
	status int
	body   []byte
	parsed any
	isJSON bool
}

func (r *response) ok() bool { return r.status >= 200 && r.status < 300 }

func (r *response) decode(out any) error {
	if out == nil || len(bytes.TrimSpace(r.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUpstream, "decode backend response")
	}
	return nil
}

func (c *Client) send(ctx context.Context, req Request, token string) (*response, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "encode request body")
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.resolve(req), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.UpstreamCall(0)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperrors.Wrap(ctxErr, codeForContext(ctxErr), "backend call aborted")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstreamUnavailable, "backend unavailable")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		c.metrics.UpstreamCall(0)
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstreamUnavailable, "read backend response")
	}
	c.metrics.UpstreamCall(resp.StatusCode)

	out := &response{status: resp.StatusCode, body: data}
	if len(bytes.TrimSpace(data)) > 0 && json.Unmarshal(data, &out.parsed) == nil {
		out.isJSON = true
	}
	return out, nil
}

func (c *Client) resolve(req Request) string {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	return u.String()
}

// failure maps a non-2xx response to an upstream error carrying its status.
func (c *Client) failure(resp *response) error {
	if resp.ok() {
		return nil
	}
	return apperrors.Upstream(resp.status, c.extractMessage(resp))
}

func (c *Client) flagsInvalidToken(resp *response) bool {
	if c.tokenInvalid == nil || !resp.isJSON {
		return false
	}
	v, err := c.tokenInvalid.Search(resp.parsed)
	return err == nil && truthy(v)
}

func (c *Client) extractMessage(resp *response) string {
	if !resp.isJSON {
		return ""
	}
	v, err := c.message.Search(resp.parsed)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case RawBody:
		return b.Data, b.ContentType, nil
	case *RawBody:
		return b.Data, b.ContentType, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func codeForContext(err error) apperrors.ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ErrCodeTimeout
	}
	return apperrors.ErrCodeCanceled
}

// truthy follows JMESPath truthiness: null, false, empty strings and empty collections are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func toInts(v any) []int {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		switch n := item.(type) {
		case float64:
			if n == float64(int(n)) {
				out = append(out, int(n))
			}
		case json.Number:
			if i, err := n.Int64(); err == nil {
				out = append(out, int(i))
			}
		}
	}
	return out
}
