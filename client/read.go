package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"github.com/jackalope/jackalope-jackrabbit/wire"
)

// nodeURI renders the JSON read URI of a node
func (t *davex) nodeURI(path string) string {
	return fmt.Sprintf("%s%s.%d.json", t.rootURI, wire.EncodePath(path), t.opts.FetchDepth)
}

func (t *davex) Node(ctx context.Context, path string) (json.RawMessage, error) {
	res, err := t.exec(ctx, request{method: wire.MethodGet, uri: t.nodeURI(path)})
	if err != nil {
		// A missing node is an item-not-found condition for the caller,
		// not a dangling URI
		var werr *wire.Error
		if errors.As(err, &werr) && werr.Kind == wire.KindPathNotFound {
			return nil, &wire.Error{Kind: wire.KindItemNotFound, Method: werr.Method, URI: werr.URI,
				Message: "no node at " + path}
		}
		return nil, err
	}
	return json.RawMessage(res.Body), nil
}

func (t *davex) Nodes(ctx context.Context, paths []string) (map[string]json.RawMessage, error) {
	switch len(paths) {
	case 0:
		return map[string]json.RawMessage{}, nil
	case 1:
		// The multi-path form degrades to the single-path form, with the
		// single-path miss softened to an omission
		node, err := t.Node(ctx, paths[0])
		if err != nil {
			if errors.Is(err, wire.KindItemNotFound) {
				return map[string]json.RawMessage{}, nil
			}
			return nil, err
		}
		return map[string]json.RawMessage{paths[0]: node}, nil
	}

	form := url.Values{}
	for _, path := range paths {
		form.Add(":include", path)
	}
	var payload map[string]json.RawMessage
	err := t.execJSON(ctx, request{
		method:      wire.MethodPost,
		uri:         fmt.Sprintf("%s/.%d.json", t.rootURI, t.opts.FetchDepth),
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded; charset=utf-8",
	}, &payload)
	if err != nil {
		// Servers predating the batched read answer 405 to the POST form;
		// fetch the paths concurrently instead
		if errors.Is(err, wire.KindMethodNotAllowed) {
			return t.nodesFanOut(ctx, paths)
		}
		return nil, err
	}
	return payload, nil
}

// nodesFanOut fetches each path with its own concurrent GET, keyed by path.
// Missing nodes drop out of the result, matching the batched form.
func (t *davex) nodesFanOut(ctx context.Context, paths []string) (map[string]json.RawMessage, error) {
	uris := make(map[string]string, len(paths))
	for _, path := range paths {
		uris[path] = t.nodeURI(path)
	}
	return t.execJSONMany(ctx, request{method: wire.MethodGet, uris: uris})
}

func (t *davex) NodeByIdentifier(ctx context.Context, id string) (json.RawMessage, error) {
	path, err := t.NodePathForIdentifier(ctx, id, "")
	if err != nil {
		return nil, err
	}
	return t.Node(ctx, path)
}

func (t *davex) NodePathForIdentifier(ctx context.Context, id, workspace string) (string, error) {
	if workspace != "" && workspace != t.workspace {
		// The locate report only answers for the workspace the session is
		// bound to; a short-lived secondary session covers the other one
		other := New(t.server, t.opts)
		if _, err := other.Login(ctx, t.creds, workspace); err != nil {
			return "", err
		}
		defer func() { _ = other.Logout(ctx) }()
		return other.NodePathForIdentifier(ctx, id, "")
	}

	var ms wire.Multistatus
	err := t.execXML(ctx, request{
		method: wire.MethodReport,
		uri:    t.rootURI,
		body:   wire.ReportLocateByUUID(id),
	}, &ms)
	if err != nil {
		if errors.Is(err, wire.KindPathNotFound) {
			return "", &wire.Error{Kind: wire.KindItemNotFound, Method: wire.MethodReport, URI: t.rootURI,
				Message: "no node with identifier " + id}
		}
		return "", err
	}
	for _, response := range ms.Responses {
		if response.Href != "" {
			return strings.TrimSuffix(strings.TrimPrefix(response.Href, t.rootURI), "/"), nil
		}
	}
	return "", &wire.Error{Kind: wire.KindItemNotFound, Method: wire.MethodReport, URI: t.rootURI,
		Message: "no node with identifier " + id}
}

func (t *davex) BinaryStream(ctx context.Context, path string) ([][]byte, error) {
	uri := t.rootURI + wire.EncodePath(path)
	res, err := t.exec(ctx, request{method: wire.MethodGet, uri: uri})
	if err != nil {
		return nil, err
	}

	// The content type decides the decoding: an XML wrapper carries the
	// base64 values of a multi-valued binary property, anything jcr-value
	// tagged is one raw value
	contentType, _, _ := mime.ParseMediaType(res.Header.Get("Content-Type"))
	switch contentType {
	case "text/xml", "application/xml":
		var values wire.BinaryValues
		if err := xml.Unmarshal(res.Body, &values); err != nil {
			return nil, &wire.Error{Kind: wire.KindRepository, Method: wire.MethodGet, URI: uri,
				Message: "malformed binary property wrapper: " + err.Error()}
		}
		decoded := make([][]byte, 0, len(values.Values))
		for _, v := range values.Values {
			data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(v))
			if err != nil {
				return nil, &wire.Error{Kind: wire.KindRepository, Method: wire.MethodGet, URI: uri,
					Message: "malformed base64 binary value: " + err.Error()}
			}
			decoded = append(decoded, data)
		}
		return decoded, nil
	case "jcr-value/binary", "application/octet-stream":
		return [][]byte{res.Body}, nil
	default:
		return nil, &wire.Error{Kind: wire.KindRepository, Method: wire.MethodGet, URI: uri,
			Message: fmt.Sprintf("unexpected content type %q for a binary property", contentType)}
	}
}

func (t *davex) References(ctx context.Context, path, name string) ([]string, error) {
	return t.references(ctx, path, name, "references")
}

func (t *davex) WeakReferences(ctx context.Context, path, name string) ([]string, error) {
	return t.references(ctx, path, name, "weakreferences")
}

func (t *davex) references(ctx context.Context, path, name, prop string) ([]string, error) {
	var ms wire.Multistatus
	err := t.execXML(ctx, request{
		method: wire.MethodPropfind,
		uri:    t.rootURI + wire.EncodePath(path),
		body:   wire.PropfindBody(prop),
		depth:  depth(0),
	}, &ms)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, response := range ms.Responses {
		for _, ps := range response.Propstats {
			list := ps.Prop.References
			if prop == "weakreferences" {
				list = ps.Prop.WeakReferences
			}
			if list == nil {
				continue
			}
			for _, href := range list.Hrefs {
				p := strings.TrimSuffix(strings.TrimPrefix(href, t.rootURI), "/")
				if name != "" && lastSegment(p) != name {
					continue
				}
				paths = append(paths, p)
			}
		}
	}
	return paths, nil
}

func (t *davex) Permissions(ctx context.Context, path string) ([]string, error) {
	uri := t.rootURI + wire.EncodePath(path)
	var ms wire.Multistatus
	err := t.execXML(ctx, request{
		method: wire.MethodReport,
		uri:    t.workspaceURI,
		body:   wire.ReportPrivileges(uri),
	}, &ms)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var permissions []string
	add := func(names ...string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				permissions = append(permissions, n)
			}
		}
	}
	for _, response := range ms.Responses {
		for _, ps := range response.Propstats {
			if ps.Prop.Privileges == nil {
				continue
			}
			for _, holder := range ps.Prop.Privileges.Privileges {
				for _, privilege := range holder.Inner {
					switch privilege.XMLName.Local {
					case "all":
						add("read", "add_node", "set_property", "remove")
					case "read":
						add("read")
					case "write":
						add("add_node", "set_property", "remove")
					}
				}
			}
		}
	}
	return permissions, nil
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
