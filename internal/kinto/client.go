package kinto

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"kinto-admin/internal/shared/logger"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a request when the context carries no deadline
const DefaultTimeout = 30 * time.Second

// Doer performs HTTP requests. *fasthttp.Client and *fasthttp.HostClient satisfy it.
type Doer interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
	DoDeadline(req *fasthttp.Request, resp *fasthttp.Response, deadline time.Time) error
}

// Client talks to one Kinto server on behalf of one set of credentials.
type Client struct {
	remote        string
	doer          Doer
	timeout       time.Duration
	authorization string
	headers       map[string]string
	log           logger.Logger

	mu       sync.Mutex
	batchMax int
}

// Option configures a Client
type Option func(*Client)

// WithDoer replaces the HTTP transport
func WithDoer(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.doer = d
		}
	}
}

// WithAuthorization sets the Authorization header sent with every request
func WithAuthorization(header string) Option {
	return func(c *Client) { c.authorization = header }
}

// WithTimeout sets the per-request timeout used without a context deadline
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHeader adds a static header to every request
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithLogger sets the client logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for the server root URL, e.g. https://kinto.example.com/v1
func New(remote string, opts ...Option) *Client {
	c := &Client{
		remote:  strings.TrimRight(remote, "/"),
		doer:    &fasthttp.Client{Name: "kinto-admin"},
		timeout: DefaultTimeout,
		headers: map[string]string{},
		log:     logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("kinto-client")
	return c
}

// Remote returns the server root URL
func (c *Client) Remote() string {
	return c.remote
}

// Authorization returns the Authorization header the client sends
func (c *Client) Authorization() string {
	return c.authorization
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        interface{}
	raw         []byte
	contentType string
	headers     map[string]string
}

type response struct {
	status       int
	body         []byte
	nextPage     string
	totalRecords int
	etag         string
}

func (c *Client) url(path string, query url.Values) string {
	u := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		u = c.remote + path
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	return u
}

func (c *Client) execute(ctx context.Context, r request) (*response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.url(r.path, r.query)
	req.SetRequestURI(uri)
	req.Header.SetMethod(r.method)
	req.Header.Set("Accept", "application/json")
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	switch {
	case r.raw != nil:
		req.SetBody(r.raw)
		req.Header.SetContentType(r.contentType)
	case r.body != nil:
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", r.method, r.path, err)
		}
		req.SetBody(payload)
		req.Header.SetContentType("application/json")
	}

	start := time.Now()
	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.doer.DoDeadline(req, resp, deadline)
	} else {
		err = c.doer.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.log.Warn("request failed", zap.String("method", r.method), zap.String("url", uri), zap.Error(err))
		return nil, &NetworkError{Method: r.method, URL: uri, Err: err}
	}

	out := &response{
		status:   resp.StatusCode(),
		body:     append([]byte(nil), resp.Body()...),
		nextPage: string(resp.Header.Peek("Next-Page")),
		etag:     strings.Trim(string(resp.Header.Peek("ETag")), `"`),
	}
	if total := resp.Header.Peek("Total-Records"); len(total) > 0 {
		out.totalRecords, _ = strconv.Atoi(string(total))
	}

	c.log.Debug("request done",
		zap.String("method", r.method),
		zap.String("url", uri),
		zap.Int("status", out.status),
		zap.Duration("elapsed", time.Since(start)))

	if out.status >= 400 {
		return nil, newServerError(out.status, out.body)
	}
	return out, nil
}

func decodeObject(body []byte) (*ObjectResponse, error) {
	var obj ObjectResponse
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	if obj.Data == nil {
		obj.Data = Resource{}
	}
	return &obj, nil
}

func (c *Client) getObject(ctx context.Context, path string) (*ObjectResponse, error) {
	resp, err := c.execute(ctx, request{method: fasthttp.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	return decodeObject(resp.body)
}

// WriteOptions control concurrency checks on writes.
// Safe with LastModified sends If-Match; Safe alone sends If-None-Match: *.
type WriteOptions struct {
	Safe         bool
	LastModified int64
}

func (o WriteOptions) headers() map[string]string {
	if !o.Safe {
		return nil
	}
	if o.LastModified > 0 {
		return map[string]string{"If-Match": fmt.Sprintf("%q", strconv.FormatInt(o.LastModified, 10))}
	}
	return map[string]string{"If-None-Match": "*"}
}

type objectBody struct {
	Data        Resource    `json:"data,omitempty"`
	Permissions Permissions `json:"permissions,omitempty"`
}

func (c *Client) writeObject(ctx context.Context, method, path string, body objectBody, wo WriteOptions) (*ObjectResponse, error) {
	resp, err := c.execute(ctx, request{method: method, path: path, body: body, headers: wo.headers()})
	if err != nil {
		return nil, err
	}
	return decodeObject(resp.body)
}

func (c *Client) deleteObject(ctx context.Context, path string, wo WriteOptions) error {
	_, err := c.execute(ctx, request{method: fasthttp.MethodDelete, path: path, headers: wo.headers()})
	return err
}

// FetchServerInfo returns the server root document
func (c *Client) FetchServerInfo(ctx context.Context) (ServerInfo, error) {
	resp, err := c.execute(ctx, request{method: fasthttp.MethodGet, path: rootPath()})
	if err != nil {
		return ServerInfo{}, err
	}
	info := DefaultServerInfo()
	if err := json.Unmarshal(resp.body, &info); err != nil {
		return ServerInfo{}, fmt.Errorf("decode server info: %w", err)
	}
	if info.Capabilities == nil {
		info.Capabilities = map[string]interface{}{}
	}
	if info.Settings.BatchMaxRequests <= 0 {
		info.Settings.BatchMaxRequests = DefaultBatchMaxRequests
	}

	c.mu.Lock()
	c.batchMax = info.Settings.BatchMaxRequests
	c.mu.Unlock()
	return info, nil
}

func (c *Client) batchMaxRequests(ctx context.Context) int {
	c.mu.Lock()
	max := c.batchMax
	c.mu.Unlock()
	if max > 0 {
		return max
	}
	if info, err := c.FetchServerInfo(ctx); err == nil {
		return info.Settings.BatchMaxRequests
	}
	return DefaultBatchMaxRequests
}
