// Package client is the repository transport: the façade translating each
// repository operation into Davex protocol requests, owning session binding
// and write-batch accumulation.
//
// A Transport instance is bound to one login session and is not safe for
// concurrent use by multiple callers; callers needing concurrency run
// multiple instances, each with its own session.
package client

import (
	"context"
	"encoding/json"

	"github.com/jackalope/jackalope-jackrabbit/jcr"
	"time"
)

// Connector covers session lifecycle and repository-level facts
type Connector interface {
	// Login binds the transport to a workspace using the given credentials
	// and returns the bound workspace name. Only jcr.SimpleCredentials are
	// understood. With an empty workspace name, the server is queried for
	// its default. Login may be called at most once per transport instance.
	Login(ctx context.Context, credentials jcr.Credentials, workspace string) (string, error)

	// Logout releases the session's connection. Idempotent. Any operation
	// after Logout panics: the transport never silently reconnects.
	Logout(ctx context.Context) error

	// RepositoryDescriptors returns the server's descriptor map, fetched
	// once and cached for the lifetime of the transport
	RepositoryDescriptors(ctx context.Context) (map[string][]string, error)

	AccessibleWorkspaceNames(ctx context.Context) ([]string, error)
}

// Reader covers read operations
type Reader interface {
	// Node fetches one node as its JSON payload, recursively up to the
	// configured fetch depth. A missing node fails with an item-not-found
	// error.
	Node(ctx context.Context, path string) (json.RawMessage, error)

	// Nodes fetches several nodes in one request. Missing nodes are
	// silently omitted from the result.
	Nodes(ctx context.Context, paths []string) (map[string]json.RawMessage, error)

	NodeByIdentifier(ctx context.Context, id string) (json.RawMessage, error)

	// NodePathForIdentifier resolves the path of the node with the given
	// identifier. A non-empty workspace other than the bound one resolves
	// against that workspace through a short-lived secondary session under
	// the same credentials.
	NodePathForIdentifier(ctx context.Context, id, workspace string) (string, error)

	// BinaryStream fetches the value(s) of a binary property: one element
	// for a single-valued property, several for a multi-valued one
	BinaryStream(ctx context.Context, path string) ([][]byte, error)

	// References returns the paths of properties referencing the node at
	// path, optionally restricted to properties with the given name
	References(ctx context.Context, path, name string) ([]string, error)
	WeakReferences(ctx context.Context, path, name string) ([]string, error)

	Permissions(ctx context.Context, path string) ([]string, error)
}

// Writer covers mutations. Batched mutations accumulate in an in-memory diff
// and are transmitted as one atomic unit by FinishSave; immediate variants
// round-trip at once.
type Writer interface {
	DeleteNodes(ctx context.Context, paths ...string) error
	DeleteProperties(ctx context.Context, paths ...string) error
	MoveNode(ctx context.Context, srcPath, dstPath string) error
	ReorderChildren(ctx context.Context, node jcr.Node) error
	StoreNodes(ctx context.Context, nodes ...jcr.Node) error
	UpdateProperties(ctx context.Context, node jcr.Node) error

	DeleteNodeImmediately(ctx context.Context, path string) error
	DeletePropertyImmediately(ctx context.Context, path string) error
	CopyNode(ctx context.Context, srcPath, dstPath, srcWorkspace string) error
	MoveNodeImmediately(ctx context.Context, srcPath, dstPath string) error
	CloneFrom(ctx context.Context, srcWorkspace, srcPath, dstPath string, removeExisting bool) error
	UpdateNode(ctx context.Context, path, srcWorkspace string) error

	// PrepareSave marks the start of a save cycle. The Davex protocol is
	// transactionless: the batch is applied atomically by the server at
	// FinishSave, so this is a validation point only.
	PrepareSave(ctx context.Context) error

	// FinishSave transmits and clears the pending batch. The batch is
	// cleared even on failure; rollback semantics belong to the caller.
	FinishSave(ctx context.Context) error

	// RollbackSave discards the pending batch
	RollbackSave(ctx context.Context) error
}

// QueryRunner covers query execution
type QueryRunner interface {
	// Query runs a statement in the given language. Negative limit or
	// offset means unbounded.
	Query(ctx context.Context, statement string, language jcr.QueryLanguage, limit, offset int64) ([]jcr.QueryRow, error)

	SupportedQueryLanguages() []jcr.QueryLanguage
}

// MetadataManager covers namespace, node type and workspace management
type MetadataManager interface {
	Namespaces(ctx context.Context) (map[string]string, error)

	// RegisterNamespace registers one prefix/URI pair. The protocol can
	// only replace the whole namespace map, so the existing map is fetched
	// and resubmitted with the new entry. Rebinding an existing prefix to a
	// different URI is rejected; rebinding to the same URI is a no-op.
	RegisterNamespace(ctx context.Context, prefix, uri string) error

	// UnregisterNamespace always fails: the server cannot safely
	// unregister a namespace
	UnregisterNamespace(ctx context.Context, prefix string) error

	// NodeTypes returns raw node type definitions keyed by name; with no
	// names, all node types are returned
	NodeTypes(ctx context.Context, names ...string) (map[string]string, error)

	// RegisterNodeTypesCnd registers node types from a CND schema
	// definition
	RegisterNodeTypesCnd(ctx context.Context, cnd string, allowUpdate bool) error

	// CreateWorkspace creates a new empty workspace. Creation from a
	// source workspace is unsupported (no server primitive exists).
	CreateWorkspace(ctx context.Context, name, srcWorkspace string) error

	// DeleteWorkspace always fails with an operation-unsupported error:
	// the server offers no primitive, workspaces must be removed from the
	// server's filesystem manually
	DeleteWorkspace(ctx context.Context, name string) error
}

// Locker covers node locking
type Locker interface {
	// LockNode acquires a lock. timeoutSeconds <= 0 requests an infinite
	// lock; empty ownerInfo defaults to the authenticated user id.
	LockNode(ctx context.Context, path string, deep, sessionScoped bool, timeoutSeconds int64, ownerInfo string) (jcr.Lock, error)

	Unlock(ctx context.Context, path, lockToken string) error
	IsLocked(ctx context.Context, path string) (bool, error)
}

// Observer covers the event journal
type Observer interface {
	// Events returns a lazily paginated view of the journal after the
	// given time, filtered by the given predicate. The buffer never shows
	// events generated after its creation.
	Events(ctx context.Context, after time.Time, filter jcr.EventFilter) (*EventBuffer, error)

	// JournalPage fetches one raw journal page starting after the given
	// millisecond timestamp
	JournalPage(ctx context.Context, afterMillis int64) ([]byte, error)
}

// Versioner covers versioning operations
type Versioner interface {
	// Checkin creates a new version of the node and returns the version's
	// URI as reported by the server
	Checkin(ctx context.Context, path string) (string, error)

	Checkout(ctx context.Context, path string) error
	RestoreVersion(ctx context.Context, nodePath, versionURI string, removeExisting bool) error
	RemoveVersion(ctx context.Context, versionPath string) error
	AddVersionLabel(ctx context.Context, versionURI, label string, moveLabel bool) error
	RemoveVersionLabel(ctx context.Context, versionURI, label string) error
}

// Transport is the full repository transport surface
type Transport interface {
	Connector
	Reader
	Writer
	QueryRunner
	MetadataManager
	Locker
	Observer
	Versioner
}
