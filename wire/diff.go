package wire

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/ridge/must/v2"
	"golang.org/x/exp/slices"
)

// DiffField is the form field carrying the diff script in a flush request
const DiffField = ":diff"

// Batch accumulates the mutations of one save cycle: a line-oriented diff
// script plus any number of keyed binary payloads that cannot be inlined into
// the script. Created on first mutation, cleared unconditionally by Flush.
type Batch struct {
	diff  strings.Builder
	parts []Part
}

// Part is one non-inlineable payload queued alongside the diff script. The
// name is the property path (with a [] suffix for each value of a
// multi-valued property); the content type tags the value type for the
// server.
type Part struct {
	Name        string
	ContentType string
	Data        []byte
}

// Empty reports whether the batch contains no pending mutations
func (b *Batch) Empty() bool {
	return b.diff.Len() == 0 && len(b.parts) == 0
}

// Remove appends a delete operation
func (b *Batch) Remove(path string) {
	b.line("-", path, "")
}

// Move appends a move or child-reorder operation
func (b *Batch) Move(src, dst string) {
	b.line(">", src, dst)
}

// AddNode appends a create-node operation with the given JSON properties
func (b *Batch) AddNode(path string, props json.RawMessage) {
	b.line("+", path, string(props))
}

// SetProperty appends a set-property operation with an inline JSON value
func (b *Batch) SetProperty(path string, value json.RawMessage) {
	b.line("^", path, string(value))
}

// AddPart queues a payload to be sent as a multipart segment
func (b *Batch) AddPart(name, contentType string, data []byte) {
	b.parts = append(b.parts, Part{Name: name, ContentType: contentType, Data: data})
}

func (b *Batch) line(op, key, value string) {
	if b.diff.Len() > 0 {
		b.diff.WriteString("\r\n")
	}
	b.diff.WriteString(op)
	b.diff.WriteString(key)
	b.diff.WriteString(" : ")
	b.diff.WriteString(value)
}

// Script returns the accumulated diff script
func (b *Batch) Script() string {
	return b.diff.String()
}

// Render produces the request body and its content type. A batch holding
// only the diff script is sent as a single URL-encoded form field; one with
// binary payloads becomes a multipart request with a fresh boundary.
func (b *Batch) Render() (contentType string, body []byte) {
	if len(b.parts) == 0 {
		values := url.Values{DiffField: []string{b.diff.String()}}
		return "application/x-www-form-urlencoded; charset=utf-8", []byte(values.Encode())
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	must.OK(w.WriteField(DiffField, b.diff.String()))
	for _, part := range b.parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+escapeQuotes(part.Name)+`"`)
		h.Set("Content-Type", part.ContentType)
		must.OK1(must.OK1(w.CreatePart(h)).Write(part.Data))
	}
	must.OK(w.Close())
	return w.FormDataContentType(), buf.Bytes()
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}

// CompareRemoveOrder orders paths for batched deletion: deeper paths and
// higher same-name-sibling indices first, lexicographically later sibling
// names before earlier ones. This works around same-name-sibling renumbering
// during sequential deletion on the server. The ordering only helps within
// one flush; deletions spread over several save cycles are not protected.
func CompareRemoveOrder(a, b string) int {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		an, ai := splitIndex(as[i])
		bn, bi := splitIndex(bs[i])
		if an == bn {
			return bi - ai
		}
		return strings.Compare(bs[i], as[i])
	}
	return len(bs) - len(as)
}

// SortRemoveOrder sorts paths in place per CompareRemoveOrder
func SortRemoveOrder(paths []string) {
	slices.SortFunc(paths, func(a, b string) bool {
		return CompareRemoveOrder(a, b) < 0
	})
}

// splitIndex splits a path segment into its name and 1-based same-name
// sibling index (1 when no index suffix is present)
func splitIndex(segment string) (string, int) {
	if !strings.HasSuffix(segment, "]") {
		return segment, 1
	}
	open := strings.LastIndexByte(segment, '[')
	if open < 0 {
		return segment, 1
	}
	index, err := strconv.Atoi(segment[open+1 : len(segment)-1])
	if err != nil || index < 1 {
		return segment, 1
	}
	return segment[:open], index
}
