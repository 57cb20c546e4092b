package jcr

import "fmt"

// PropertyType is the tag of a typed repository value
type PropertyType int

// Property types, numbered as the repository numbers them
const (
	TypeUndefined PropertyType = iota
	TypeString
	TypeBinary
	TypeLong
	TypeDouble
	TypeDate
	TypeBoolean
	TypeName
	TypePath
	TypeReference
	TypeWeakReference
	TypeURI
	TypeDecimal
)

var typeNames = map[PropertyType]string{
	TypeUndefined:     "undefined",
	TypeString:        "String",
	TypeBinary:        "Binary",
	TypeLong:          "Long",
	TypeDouble:        "Double",
	TypeDate:          "Date",
	TypeBoolean:       "Boolean",
	TypeName:          "Name",
	TypePath:          "Path",
	TypeReference:     "Reference",
	TypeWeakReference: "WeakReference",
	TypeURI:           "URI",
	TypeDecimal:       "Decimal",
}

func (t PropertyType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PropertyType(%d)", int(t))
}

// TypeByName returns the property type with the given protocol name. The
// lookup is case-sensitive, matching the server's spelling.
func TypeByName(name string) (PropertyType, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return TypeUndefined, false
}

// Value is one typed value as decoded from the protocol's type-tagged value
// elements (query result columns).
type Value struct {
	Type PropertyType

	// Exactly one of the following is meaningful, selected by Type.
	// Untyped and string-ish values are kept in Text.
	Text   string
	Long   int64
	Double float64
	Bool   bool
}
