package client

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/jackalope/jackalope-jackrabbit/thttp"
	"github.com/jackalope/jackalope-jackrabbit/tlog"
	"github.com/jackalope/jackalope-jackrabbit/wire"
	"go.uber.org/zap"
)

// request describes one protocol operation before it is turned into wire
// bytes. A request targets either one URI or a keyed set of URIs; keyed
// requests go through execMany.
type request struct {
	method wire.Method
	uri    string
	uris   map[string]string // target URIs by result key, for execMany
	body   []byte

	contentType string // default text/xml for bodies
	header      http.Header
	depth       *int
	lockToken   string

	// fanout forces concurrent execution even for a single target URI
	fanout bool
}

func (r request) wireRequest() thttp.Request {
	header := http.Header{}
	for key, values := range r.header {
		header[key] = values
	}
	if len(r.body) > 0 {
		contentType := r.contentType
		if contentType == "" {
			contentType = "text/xml; charset=utf-8"
		}
		header.Set("Content-Type", contentType)
	}
	if r.depth != nil {
		header.Set("Depth", wire.DepthHeader(*r.depth))
	}
	if r.lockToken != "" {
		header.Set("Lock-Token", "<"+r.lockToken+">")
	}
	return thttp.Request{Method: string(r.method), URI: r.uri, Body: r.body, Header: header}
}

// exec performs a single request and funnels any failure through error
// classification
func (t *davex) exec(ctx context.Context, r request) (*thttp.Response, error) {
	if t.conn == nil {
		return nil, &wire.Error{Kind: wire.KindRepository, Method: r.method, URI: r.uri,
			Message: "operation attempted before login"}
	}
	res, err := t.conn.Do(ctx, r.wireRequest())
	if err != nil {
		return nil, t.classifyTransport(ctx, r, err)
	}
	if !res.OK() {
		return nil, t.classifyStatus(ctx, r, res)
	}
	return res, nil
}

// execXML performs the request and decodes the response as XML
func (t *davex) execXML(ctx context.Context, r request, out any) error {
	res, err := t.exec(ctx, r)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(res.Body, out); err != nil {
		return &wire.Error{Kind: wire.KindRepository, Method: r.method, URI: r.uri,
			Message: "malformed XML response: " + err.Error(),
			ResponseBody: wire.Truncate(string(res.Body))}
	}
	return nil
}

// execJSON performs the request and decodes the response as JSON
func (t *davex) execJSON(ctx context.Context, r request, out any) error {
	res, err := t.exec(ctx, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return &wire.Error{Kind: wire.KindRepository, Method: r.method, URI: r.uri,
			Message: "malformed JSON response: " + err.Error(),
			ResponseBody: wire.Truncate(string(res.Body))}
	}
	return nil
}

// execMany performs the request against every target URI in r.uris and
// collects the 2xx responses under the input keys; misses and failed
// exchanges are dropped from the result. A single target goes out as one
// plain call unless fanout is set.
func (t *davex) execMany(ctx context.Context, r request) (map[string]*thttp.Response, error) {
	if t.conn == nil {
		return nil, &wire.Error{Kind: wire.KindRepository, Method: r.method,
			Message: "operation attempted before login"}
	}
	if len(r.uris) == 1 && !r.fanout {
		for key, uri := range r.uris {
			single := r
			single.uri, single.uris = uri, nil
			res, err := t.conn.Do(ctx, single.wireRequest())
			if err != nil {
				return nil, t.classifyTransport(ctx, single, err)
			}
			if !res.OK() {
				return map[string]*thttp.Response{}, nil
			}
			return map[string]*thttp.Response{key: res}, nil
		}
	}
	reqs := make(map[string]thttp.Request, len(r.uris))
	for key, uri := range r.uris {
		keyed := r
		keyed.uri, keyed.uris = uri, nil
		reqs[key] = keyed.wireRequest()
	}
	return t.conn.DoMany(ctx, reqs)
}

// execJSONMany performs the keyed request and decodes each collected
// response as JSON under its key
func (t *davex) execJSONMany(ctx context.Context, r request) (map[string]json.RawMessage, error) {
	responses, err := t.execMany(ctx, r)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(responses))
	for key, res := range responses {
		if !json.Valid(res.Body) {
			return nil, &wire.Error{Kind: wire.KindRepository, Method: r.method, URI: r.uris[key],
				Message:      "malformed JSON response",
				ResponseBody: wire.Truncate(string(res.Body))}
		}
		out[key] = json.RawMessage(res.Body)
	}
	return out, nil
}

// unsupportedOn405 rewrites a method-not-allowed answer into the
// operation-unsupported kind callers match on. Used by operations where 405
// is the server's way of saying the primitive is absent rather than the URI
// being wrong.
func unsupportedOn405(err error, message string) error {
	var werr *wire.Error
	if errors.As(err, &werr) && werr.Kind == wire.KindMethodNotAllowed {
		return &wire.Error{Kind: wire.KindUnsupported, Method: werr.Method, URI: werr.URI, Message: message}
	}
	return err
}

// classifyTransport maps a failure below the HTTP layer to a typed error
func (t *davex) classifyTransport(ctx context.Context, r request, err error) error {
	t.checkVersionOnce(ctx)

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || (errors.As(err, &opErr) && opErr.Op == "dial") {
		return &wire.Error{Kind: wire.KindWorkspaceUnreachable, Method: r.method, URI: r.uri, Message: err.Error()}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || strings.Contains(err.Error(), "connection reset") {
		// Known interoperability issue: certain proxies corrupt HTTP/2
		// responses from the server. Not retried automatically; the caller
		// decides whether to reconnect with the downgrade option.
		return &wire.Error{Kind: wire.KindRepository, Method: r.method, URI: r.uri,
			Message: "response cut short (" + err.Error() + "); if the server sits behind a proxy, retry with Options.Transfer.ForceHTTP11"}
	}
	return &wire.Error{Kind: wire.KindRepository, Method: r.method, URI: r.uri, Message: err.Error()}
}

// classifyStatus maps a non-2xx response to a typed error
func (t *davex) classifyStatus(ctx context.Context, r request, res *thttp.Response) error {
	t.checkVersionOnce(ctx)

	if class, message, ok := wire.ParseException(res.Body); ok {
		return &wire.Error{Kind: wire.KindForClass(class), Method: r.method, URI: r.uri,
			Message: message, Class: class}
	}

	switch res.Status {
	case http.StatusUnauthorized:
		return &wire.Error{Kind: wire.KindAuthentication, Method: r.method, URI: r.uri}
	case http.StatusNotFound:
		return &wire.Error{Kind: wire.KindPathNotFound, Method: r.method, URI: r.uri}
	case http.StatusMethodNotAllowed:
		return &wire.Error{Kind: wire.KindMethodNotAllowed, Method: r.method, URI: r.uri}
	case http.StatusPreconditionFailed:
		return &wire.Error{Kind: wire.KindLockFailed, Method: r.method, URI: r.uri}
	}

	message := fmt.Sprintf("unexpected status %d", res.Status)
	if res.Status >= 500 && t.rootURI != "" {
		// Distinguish a misconfigured server URL from a genuine server
		// error with one diagnostic fetch of the workspace root
		probe, err := t.conn.Do(ctx, thttp.Request{Method: string(wire.MethodGet), URI: t.rootURI})
		if err != nil || !probe.OK() {
			message += "; the workspace root does not answer either, the server URL may be misconfigured"
		}
	}
	return &wire.Error{Kind: wire.KindRepository, Method: r.method, URI: r.uri,
		Message:      message,
		RequestBody:  wire.Truncate(string(r.body)),
		ResponseBody: wire.Truncate(string(res.Body))}
}

// checkVersionOnce validates server version compatibility when the first
// error of this instance is being classified. Diagnostic only: the outcome
// is logged and never replaces the error being classified.
func (t *davex) checkVersionOnce(ctx context.Context) {
	if t.versionChecked {
		return
	}
	t.versionChecked = true
	if _, err := t.RepositoryDescriptors(ctx); err != nil {
		tlog.Get(ctx).Warn("Server compatibility check failed", zap.Error(err))
	}
}
