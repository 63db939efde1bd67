// Package client is the HTTP transport virtual users issue requests with.
package client

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 60 * time.Second

	defaultMaxConnsPerHost = 1024
	userAgent              = "loadharness"
)

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	// Limiter, when set, caps the request rate across every user of the Client.
	Limiter *rate.Limiter
	// Debug prints per-request lines at 1 and above and bodies at 2 and above.
	Debug  int
	Logger *zap.Logger
}

// Response is a finished request. Body is a copy that outlives the
// underlying pooled response.
type Response struct {
	Path        string
	Status      int
	Body        []byte
	ContentType string
	Duration    time.Duration
	Err         error
}

// Failed reports whether the request counts as failed: a transport error or
// a status outside 200-399.
func (r *Response) Failed() bool {
	return r.Err != nil || r.Status < 200 || r.Status >= 400
}

// Client is a reusable, goroutine-safe HTTP client bound to one base URL.
type Client struct {
	client  *fasthttp.Client
	base    string
	timeout time.Duration
	limiter *rate.Limiter
	debug   int
	logger  *zap.Logger
}

// New creates a Client for baseURL.
func New(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client: &fasthttp.Client{
			Name:               userAgent,
			MaxConnsPerHost:    defaultMaxConnsPerHost,
			MaxConnWaitTimeout: timeout,
		},
		base:    baseURL,
		timeout: timeout,
		limiter: opts.Limiter,
		debug:   opts.Debug,
		logger:  logger,
	}
}

// Get issues a GET for path. It never returns nil; failures are reported in
// Response.Err. Time spent waiting on the rate limiter is not part of the
// measured duration.
func (c *Client) Get(ctx context.Context, path string) *Response {
	resp := &Response{Path: path}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			resp.Err = errors.Wrap(err, "rate limiter")
			return resp
		}
	}
	if err := ctx.Err(); err != nil {
		resp.Err = err
		return resp
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	// The pooled request and response are owned by the goroutine so an
	// abandoned request never releases them while still in use.
	done := make(chan *Response, 1)
	start := time.Now()
	go func() {
		done <- c.do(path, deadline)
	}()

	select {
	case r := <-done:
		r.Duration = time.Since(start)
		resp = r
	case <-ctx.Done():
		resp.Duration = time.Since(start)
		resp.Err = ctx.Err()
	}

	c.debugPrint(resp)
	return resp
}

func (c *Client) do(path string, deadline time.Time) *Response {
	req := fasthttp.AcquireRequest()
	res := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(res)

	req.SetRequestURI(c.base + path)
	req.Header.SetMethod(fasthttp.MethodGet)

	resp := &Response{Path: path}
	if err := c.client.DoDeadline(req, res, deadline); err != nil {
		resp.Err = errors.Wrapf(err, "GET %s", path)
		return resp
	}
	resp.Status = res.StatusCode()
	resp.Body = append([]byte(nil), res.Body()...)
	resp.ContentType = string(res.Header.ContentType())
	return resp
}

func (c *Client) debugPrint(resp *Response) {
	if c.debug <= 0 {
		return
	}
	fields := []zap.Field{
		zap.String("path", resp.Path),
		zap.Int("status", resp.Status),
		zap.Duration("duration", resp.Duration),
	}
	if resp.Err != nil {
		fields = append(fields, zap.Error(resp.Err))
	}
	if c.debug >= 2 {
		fields = append(fields, zap.ByteString("body", resp.Body))
	}
	c.logger.Debug("request", fields...)
}
