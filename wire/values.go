package wire

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackalope/jackalope-jackrabbit/jcr"
)

// Inlineable reports whether values of the given type can be carried inside
// the diff script. Binaries always travel as multipart segments.
func Inlineable(t jcr.PropertyType) bool {
	return t != jcr.TypeBinary
}

// NeedsTypeAnnotation reports whether a property type is carried as a JSON
// string and therefore needs a ":name" type annotation in a create-node
// object so the server does not store it as a plain string.
func NeedsTypeAnnotation(t jcr.PropertyType) bool {
	switch t {
	case jcr.TypeDate, jcr.TypeName, jcr.TypePath, jcr.TypeReference,
		jcr.TypeWeakReference, jcr.TypeURI, jcr.TypeDecimal:
		return true
	default:
		return false
	}
}

// PartContentType returns the content type tagging a multipart value segment
func PartContentType(t jcr.PropertyType) string {
	return "jcr-value/" + strings.ToLower(t.String())
}

// EncodeInline serializes a storage value for the diff script
func EncodeInline(value any) (json.RawMessage, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("value not serializable: %w", err)
	}
	return raw, nil
}

// DecodeValue converts a protocol type-tagged value element into a typed
// value. The server serializes boolean false as the literal text "false",
// which must be special-cased: generic conversion would treat any non-empty
// text as true.
func DecodeValue(typeName, text string) (jcr.Value, error) {
	t, ok := jcr.TypeByName(typeName)
	if !ok {
		t = jcr.TypeUndefined
	}
	v := jcr.Value{Type: t, Text: text}
	switch t {
	case jcr.TypeLong:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return jcr.Value{}, fmt.Errorf("malformed Long value %q: %w", text, err)
		}
		v.Long = n
	case jcr.TypeDouble:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return jcr.Value{}, fmt.Errorf("malformed Double value %q: %w", text, err)
		}
		v.Double = f
	case jcr.TypeBoolean:
		v.Bool = text != "" && text != "false"
	}
	return v, nil
}
