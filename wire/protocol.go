package wire

import (
	"net/url"
	"strconv"
	"strings"
)

// Method is one verb of the Davex protocol vocabulary
type Method string

// Protocol methods. Most are WebDAV; the dcr: extensions ride on REPORT,
// PROPFIND and PROPPATCH bodies.
const (
	MethodGet         Method = "GET"
	MethodPost        Method = "POST"
	MethodPut         Method = "PUT"
	MethodMkcol       Method = "MKCOL"
	MethodDelete      Method = "DELETE"
	MethodReport      Method = "REPORT"
	MethodSearch      Method = "SEARCH"
	MethodPropfind    Method = "PROPFIND"
	MethodProppatch   Method = "PROPPATCH"
	MethodLock        Method = "LOCK"
	MethodUnlock      Method = "UNLOCK"
	MethodMkworkspace Method = "MKWORKSPACE"
	MethodCopy        Method = "COPY"
	MethodMove        Method = "MOVE"
	MethodCheckin     Method = "CHECKIN"
	MethodCheckout    Method = "CHECKOUT"
	MethodUpdate      Method = "UPDATE"
	MethodLabel       Method = "LABEL"
)

// XML namespaces of all structural requests and responses
const (
	NSDAV = "DAV:"
	NSDCR = "http://www.day.com/jcr/webdav/1.0"
)

// RootSuffix is appended to {server}{workspace} to form the workspace root URI
const RootSuffix = "/jcr:root"

// DepthInfinity is the sentinel depth rendered as the literal token the
// protocol expects instead of a number
const DepthInfinity = -1

// DepthHeader renders a traversal depth for the Depth request header
func DepthHeader(depth int) string {
	if depth == DepthInfinity {
		return "infinity"
	}
	return strconv.Itoa(depth)
}

// EncodePath percent-encodes a repository path for use in a request URI.
// The path separator and the bracket characters of same-name-sibling indices
// are deliberately left unescaped.
func EncodePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		s = url.PathEscape(s)
		s = strings.ReplaceAll(s, "%5B", "[")
		s = strings.ReplaceAll(s, "%5D", "]")
		segments[i] = s
	}
	return strings.Join(segments, "/")
}
