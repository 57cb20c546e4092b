package thttp

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"sync"

	"github.com/jackalope/jackalope-jackrabbit/tlog"
	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"go.uber.org/zap"
	"time"
)

// Options configure low-level transfer behavior of a connection
type Options struct {
	// Timeout bounds a whole request/response exchange; 0 = no limit
	Timeout time.Duration

	// ForceHTTP11 disables HTTP/2. Some proxies corrupt HTTP/2 responses
	// from the repository server; see the downgrade advice in the error
	// classifier.
	ForceHTTP11 bool
}

// Request is one wire request
type Request struct {
	Method string
	URI    string
	Body   []byte
	Header http.Header
}

// Response is the outcome of one wire request. The caller classifies non-2xx
// statuses; this layer only reports transport-level failures as errors.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the status is in the 2xx range
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

// Conn is a persistent connection handle, reused across sequential requests
// for the lifetime of a session. Not safe for concurrent use by multiple
// callers. Closed explicitly on logout; Close is idempotent, but any use
// after Close panics: silently reconnecting would mask a programming error.
type Conn struct {
	client  *http.Client
	headers http.Header

	userID, password string
	authed           bool

	transport *http.Transport
	closeOnce sync.Once
	closed    bool
}

// NewConn creates a connection handle
func NewConn(opts Options) *Conn {
	transport := &http.Transport{
		DialContext: retryingDialer,
	}
	if opts.ForceHTTP11 {
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}
	client := WithRequestsLogging(&http.Client{Transport: transport})
	client.Timeout = opts.Timeout
	return &Conn{
		client:    client,
		headers:   http.Header{},
		transport: transport,
	}
}

// SetBasicAuth attaches credentials to every subsequent request
func (c *Conn) SetBasicAuth(userID, password string) {
	c.userID, c.password = userID, password
	c.authed = true
}

// AddHeader appends a header sent with every subsequent request
func (c *Conn) AddHeader(key, value string) {
	c.headers.Add(key, value)
}

// Do performs one blocking request. Non-2xx statuses are returned as normal
// responses; error classification belongs to the caller.
func (c *Conn) Do(ctx context.Context, req Request) (*Response, error) {
	if c.closed {
		panic("thttp: use of closed connection")
	}
	return c.do(ctx, req)
}

// DoMany issues the keyed requests concurrently and collects responses under
// the same keys. Responses with a status outside 2xx, and requests that fail
// at the transport level, are dropped from the result: callers must cope
// with missing keys.
func (c *Conn) DoMany(ctx context.Context, reqs map[string]Request) (map[string]*Response, error) {
	if c.closed {
		panic("thttp: use of closed connection")
	}

	var mu sync.Mutex
	responses := map[string]*Response{}
	err := parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		for key, req := range reqs {
			key, req := key, req
			spawn("fetch "+key, parallel.Continue, func(ctx context.Context) error {
				res, err := c.do(ctx, req)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					tlog.Get(ctx).Debug("Dropping failed request from fan-out",
						zap.String("key", key), zap.Error(err))
					return nil
				}
				if !res.OK() {
					return nil
				}
				mu.Lock()
				responses[key] = res
				mu.Unlock()
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return responses, nil
}

func (c *Conn) do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hr := must.OK1(http.NewRequestWithContext(ctx, req.Method, req.URI, body))
	for key, values := range c.headers {
		hr.Header[key] = append(hr.Header[key], values...)
	}
	for key, values := range req.Header {
		hr.Header[key] = append(hr.Header[key], values...)
	}
	if c.authed {
		hr.SetBasicAuth(c.userID, c.password)
	}

	res, err := c.client.Do(hr)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	return &Response{Status: res.StatusCode, Header: res.Header, Body: data}, nil
}

// Close releases the connection. Idempotent; any further use of the handle
// panics.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.closed = true
		c.transport.CloseIdleConnections()
	})
}
