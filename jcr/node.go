package jcr

// Node is the narrow view of the object-model layer's node abstraction that
// the transport consumes when storing nodes.
type Node interface {
	Path() string
	Properties() []Property

	// Reorders lists the pending child-reorder commands accumulated on this
	// node, in the order they were issued.
	Reorders() []Reorder

	IsDeleted() bool

	// IsNodeType reports whether the node is of the given type, directly or
	// through a mixin or supertype.
	IsNodeType(name string) bool
}

// Property is the narrow view of the object-model layer's property
// abstraction that the transport consumes.
type Property interface {
	Path() string
	Type() PropertyType

	// StorageValue returns the value already normalized to the
	// wire-appropriate native representation: string, int64, float64, bool,
	// []byte for binaries, or a slice of one of those for multi-valued
	// properties.
	StorageValue() any

	IsModified() bool
	IsNew() bool
}

// Reorder is one pending child-reorder command: move the child at SrcPath in
// front of the position named by DestPath.
type Reorder struct {
	SrcPath  string
	DestPath string
}
