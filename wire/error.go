package wire

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Kind classifies a transport failure. A Kind is itself an error, so callers
// can match with errors.Is(err, wire.KindItemNotFound).
type Kind string

// Failure kinds
const (
	KindAuthentication       Kind = "authentication failed"
	KindWorkspaceNotFound    Kind = "workspace not found"
	KindWorkspaceUnreachable Kind = "workspace unreachable"
	KindPathNotFound         Kind = "path not found"
	KindItemNotFound         Kind = "item not found"
	KindNodeTypeNotFound     Kind = "node type not found"
	KindConstraintViolation  Kind = "constraint violation"
	KindReferentialIntegrity Kind = "referential integrity violated"
	KindLockFailed           Kind = "lock precondition failed"
	KindMethodNotAllowed     Kind = "method not allowed"
	KindUnsupported          Kind = "operation unsupported"
	KindValueFormat          Kind = "invalid value format"
	KindInvalidItemState     Kind = "invalid item state"
	KindAccessDenied         Kind = "access denied"
	KindRepository           Kind = "repository error"
)

func (k Kind) Error() string {
	return string(k)
}

// MaxDiagnosticBody caps the response body embedded in error diagnostics
const MaxDiagnosticBody = 2000

// Error is a classified transport failure. It always carries the method and
// target of the failed request; 500-class and unclassified failures
// additionally carry the request and response bodies for debugging.
type Error struct {
	Kind    Kind
	Method  Method
	URI     string
	Message string

	// Class is the server-reported exception class name, when the response
	// carried a structured exception element.
	Class string

	RequestBody  string
	ResponseBody string // truncated at MaxDiagnosticBody
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", e.Method, e.URI, e.Kind)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Class != "" {
		fmt.Fprintf(&b, " (%s)", e.Class)
	}
	if e.RequestBody != "" {
		fmt.Fprintf(&b, "; request: %s", e.RequestBody)
	}
	if e.ResponseBody != "" {
		fmt.Fprintf(&b, "; response: %s", e.ResponseBody)
	}
	return b.String()
}

// Unwrap exposes the Kind for errors.Is matching
func (e *Error) Unwrap() error {
	return e.Kind
}

const classPrefix = "javax.jcr."

// Server exception classes with a dedicated failure kind
var knownClasses = map[string]Kind{
	"javax.jcr.NoSuchWorkspaceException":              KindWorkspaceNotFound,
	"javax.jcr.nodetype.NoSuchNodeTypeException":      KindNodeTypeNotFound,
	"javax.jcr.ItemNotFoundException":                 KindItemNotFound,
	"javax.jcr.PathNotFoundException":                 KindPathNotFound,
	"javax.jcr.nodetype.ConstraintViolationException": KindConstraintViolation,
	"javax.jcr.ReferentialIntegrityException":         KindReferentialIntegrity,
}

// Best-effort mapping from a class name with the javax.jcr. prefix stripped.
// FIXME: could map more errors here
var derivedKinds = map[string]Kind{
	"AccessDeniedException":                   KindAccessDenied,
	"LoginException":                          KindAuthentication,
	"InvalidItemStateException":               KindInvalidItemState,
	"UnsupportedRepositoryOperationException": KindUnsupported,
	"ValueFormatException":                    KindValueFormat,
	"lock.LockException":                      KindLockFailed,
}

// KindForClass maps a server-reported exception class name to a failure kind.
// Unrecognized names fall back to the generic repository kind; the caller
// keeps the original class name in Error.Class.
func KindForClass(class string) Kind {
	if kind, ok := knownClasses[class]; ok {
		return kind
	}
	if kind, ok := derivedKinds[strings.TrimPrefix(class, classPrefix)]; ok {
		return kind
	}
	return KindRepository
}

type davException struct {
	XMLName   xml.Name `xml:"DAV: error"`
	Exception struct {
		Class   string `xml:"http://www.day.com/jcr/webdav/1.0 class"`
		Message string `xml:"http://www.day.com/jcr/webdav/1.0 message"`
	} `xml:"http://www.day.com/jcr/webdav/1.0 exception"`
}

// ParseException extracts the structured exception element from an error
// response body. Returns ok=false when the body is not such a document.
func ParseException(body []byte) (class, message string, ok bool) {
	if !bytes.HasPrefix(bytes.TrimLeft(body, " \t\r\n"), []byte("<?xml")) {
		return "", "", false
	}
	var e davException
	if err := xml.Unmarshal(body, &e); err != nil || e.Exception.Class == "" {
		return "", "", false
	}
	return e.Exception.Class, e.Exception.Message, true
}

// Truncate caps a diagnostic string at MaxDiagnosticBody bytes
func Truncate(body string) string {
	if len(body) > MaxDiagnosticBody {
		return body[:MaxDiagnosticBody] + "..."
	}
	return body
}
