package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jackalope/jackalope-jackrabbit/jcr"
	"github.com/jackalope/jackalope-jackrabbit/wire"
	"github.com/ridge/must/v2"
)

// ensureBatch creates the pending write batch on the first mutation after a
// save-cycle boundary
func (t *davex) ensureBatch() *wire.Batch {
	if t.batch == nil {
		t.batch = &wire.Batch{}
	}
	return t.batch
}

// DeleteNodes batches node deletions. Within this one call the paths are
// reordered so that higher same-name-sibling indices and deeper paths go
// first, working around sibling renumbering during sequential deletion on
// the server. Deletions spread over several calls or save cycles are not
// protected against renumbering.
func (t *davex) DeleteNodes(ctx context.Context, paths ...string) error {
	sorted := append([]string(nil), paths...)
	wire.SortRemoveOrder(sorted)
	batch := t.ensureBatch()
	for _, path := range sorted {
		batch.Remove(path)
	}
	return nil
}

func (t *davex) DeleteProperties(ctx context.Context, paths ...string) error {
	batch := t.ensureBatch()
	for _, path := range paths {
		batch.Remove(path)
	}
	return nil
}

func (t *davex) MoveNode(ctx context.Context, srcPath, dstPath string) error {
	t.ensureBatch().Move(srcPath, dstPath)
	return nil
}

func (t *davex) ReorderChildren(ctx context.Context, node jcr.Node) error {
	batch := t.ensureBatch()
	for _, reorder := range node.Reorders() {
		batch.Move(reorder.SrcPath, reorder.DestPath)
	}
	return nil
}

func (t *davex) StoreNodes(ctx context.Context, nodes ...jcr.Node) error {
	for _, node := range nodes {
		if node.IsDeleted() {
			continue
		}
		if err := t.storeNode(ctx, node); err != nil {
			return err
		}
	}
	return nil
}

func (t *davex) storeNode(ctx context.Context, node jcr.Node) error {
	batch := t.ensureBatch()
	props := map[string]any{}
	for _, p := range node.Properties() {
		value := p.StorageValue()
		if err := t.validateValue(ctx, p, value); err != nil {
			return err
		}
		if !wire.Inlineable(p.Type()) {
			queueBinaryParts(batch, p.Path(), value)
			continue
		}
		name := lastSegment(p.Path())
		props[name] = value
		if wire.NeedsTypeAnnotation(p.Type()) {
			props[":"+name] = p.Type().String()
		}
	}
	batch.AddNode(node.Path(), must.OK1(json.Marshal(props)))
	return nil
}

func (t *davex) UpdateProperties(ctx context.Context, node jcr.Node) error {
	batch := t.ensureBatch()
	for _, p := range node.Properties() {
		if !p.IsNew() && !p.IsModified() {
			continue
		}
		value := p.StorageValue()
		if err := t.validateValue(ctx, p, value); err != nil {
			return err
		}
		switch {
		case !wire.Inlineable(p.Type()):
			queueBinaryParts(batch, p.Path(), value)
		case wire.NeedsTypeAnnotation(p.Type()):
			// String-carried typed values travel as type-tagged segments:
			// an inline diff line would strip them down to plain strings
			queueTypedParts(batch, p.Path(), p.Type(), value)
		default:
			raw, err := wire.EncodeInline(value)
			if err != nil {
				return &wire.Error{Kind: wire.KindValueFormat, Message: fmt.Sprintf("property %s: %s", p.Path(), err)}
			}
			batch.SetProperty(p.Path(), raw)
		}
	}
	return nil
}

func queueBinaryParts(batch *wire.Batch, path string, value any) {
	contentType := wire.PartContentType(jcr.TypeBinary)
	switch v := value.(type) {
	case [][]byte:
		for _, data := range v {
			batch.AddPart(path+"[]", contentType, data)
		}
	case []byte:
		batch.AddPart(path, contentType, v)
	default:
		batch.AddPart(path, contentType, []byte(fmt.Sprint(v)))
	}
}

func queueTypedParts(batch *wire.Batch, path string, pt jcr.PropertyType, value any) {
	contentType := wire.PartContentType(pt)
	switch v := value.(type) {
	case []string:
		for _, s := range v {
			batch.AddPart(path+"[]", contentType, []byte(s))
		}
	case string:
		batch.AddPart(path, contentType, []byte(v))
	default:
		batch.AddPart(path, contentType, []byte(fmt.Sprint(v)))
	}
}

// validateValue rejects string values holding codepoints that would not
// survive XML transport. The supplemental plane is only allowed when the
// server is recent enough to store it without corruption.
func (t *davex) validateValue(ctx context.Context, p jcr.Property, value any) error {
	if p.Type() != jcr.TypeString {
		return nil
	}
	check := func(s string) error {
		if r, bad := wire.InvalidRune(s, t.fullUnicode(ctx)); bad {
			return &wire.Error{Kind: wire.KindValueFormat,
				Message: fmt.Sprintf("property %s contains invalid character %U", p.Path(), r)}
		}
		return nil
	}
	switch v := value.(type) {
	case string:
		return check(v)
	case []string:
		for _, s := range v {
			if err := check(s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *davex) DeleteNodeImmediately(ctx context.Context, path string) error {
	_, err := t.exec(ctx, request{method: wire.MethodDelete, uri: t.rootURI + wire.EncodePath(path)})
	return err
}

func (t *davex) DeletePropertyImmediately(ctx context.Context, path string) error {
	return t.DeleteNodeImmediately(ctx, path)
}

func (t *davex) CopyNode(ctx context.Context, srcPath, dstPath, srcWorkspace string) error {
	srcRoot := t.rootURI
	if srcWorkspace != "" {
		srcRoot = t.server + srcWorkspace + wire.RootSuffix
	}
	return t.copyRequest(ctx, srcRoot+wire.EncodePath(srcPath), t.rootURI+wire.EncodePath(dstPath), false)
}

func (t *davex) MoveNodeImmediately(ctx context.Context, srcPath, dstPath string) error {
	header := headerMap("Destination", t.rootURI+wire.EncodePath(dstPath))
	_, err := t.exec(ctx, request{
		method: wire.MethodMove,
		uri:    t.rootURI + wire.EncodePath(srcPath),
		header: header,
		depth:  depth(wire.DepthInfinity),
	})
	return err
}

func (t *davex) CloneFrom(ctx context.Context, srcWorkspace, srcPath, dstPath string, removeExisting bool) error {
	srcRoot := t.server + srcWorkspace + wire.RootSuffix
	return t.copyRequest(ctx, srcRoot+wire.EncodePath(srcPath), t.rootURI+wire.EncodePath(dstPath), removeExisting)
}

func (t *davex) copyRequest(ctx context.Context, srcURI, dstURI string, overwrite bool) error {
	header := headerMap("Destination", dstURI)
	value := "F"
	if overwrite {
		value = "T"
	}
	header.Set("Overwrite", value)
	_, err := t.exec(ctx, request{
		method: wire.MethodCopy,
		uri:    srcURI,
		header: header,
		depth:  depth(wire.DepthInfinity),
	})
	return err
}

func (t *davex) UpdateNode(ctx context.Context, path, srcWorkspace string) error {
	srcRoot := t.server + srcWorkspace + wire.RootSuffix
	_, err := t.exec(ctx, request{
		method: wire.MethodUpdate,
		uri:    t.rootURI + wire.EncodePath(path),
		body:   wire.UpdateFromWorkspace(srcRoot),
	})
	return err
}

func (t *davex) PrepareSave(ctx context.Context) error {
	// The server applies the whole batch atomically at FinishSave; there is
	// nothing to prepare
	return nil
}

func (t *davex) FinishSave(ctx context.Context) (err error) {
	if t.batch == nil || t.batch.Empty() {
		return nil
	}
	// The batch is cleared even when the flush fails: stale partial state
	// must never leak into the next save cycle
	batch := t.batch
	t.batch = nil

	contentType, body := batch.Render()
	_, err = t.exec(ctx, request{
		method:      wire.MethodPost,
		uri:         t.rootURI,
		body:        body,
		contentType: contentType,
	})
	return err
}

func (t *davex) RollbackSave(ctx context.Context) error {
	t.batch = nil
	return nil
}

func headerMap(key, value string) http.Header {
	header := http.Header{}
	header.Set(key, value)
	return header
}
