package client

import (
	"context"

	"github.com/jackalope/jackalope-jackrabbit/wire"
)

func (t *davex) Namespaces(ctx context.Context) (map[string]string, error) {
	var ms wire.Multistatus
	err := t.execXML(ctx, request{
		method: wire.MethodPropfind,
		uri:    t.workspaceURI,
		body:   wire.PropfindBody("namespaces"),
		depth:  depth(0),
	}, &ms)
	if err != nil {
		return nil, err
	}
	namespaces := map[string]string{}
	for _, resp := range ms.Responses {
		for _, propstat := range resp.Propstats {
			if propstat.Prop.Namespaces == nil {
				continue
			}
			for _, ns := range propstat.Prop.Namespaces.Namespaces {
				namespaces[ns.Prefix] = ns.URI
			}
		}
	}
	return namespaces, nil
}

func (t *davex) RegisterNamespace(ctx context.Context, prefix, uri string) error {
	namespaces, err := t.Namespaces(ctx)
	if err != nil {
		return err
	}
	if existing, ok := namespaces[prefix]; ok {
		if existing == uri {
			return nil
		}
		return &wire.Error{Kind: wire.KindUnsupported,
			Message: "prefix " + prefix + " is already bound to " + existing}
	}
	namespaces[prefix] = uri
	_, err = t.exec(ctx, request{
		method: wire.MethodProppatch,
		uri:    t.workspaceURI,
		body:   wire.ProppatchNamespaces(namespaces),
	})
	return err
}

func (t *davex) UnregisterNamespace(ctx context.Context, prefix string) error {
	return &wire.Error{Kind: wire.KindUnsupported,
		Message: "cannot unregister namespace " + prefix + ": the server does not support unregistration"}
}

func (t *davex) NodeTypes(ctx context.Context, names ...string) (map[string]string, error) {
	var report wire.NodeTypesReport
	err := t.execXML(ctx, request{
		method: wire.MethodReport,
		uri:    t.workspaceURI,
		body:   wire.ReportNodeTypes(names...),
	}, &report)
	if err != nil {
		return nil, err
	}
	types := map[string]string{}
	for _, nt := range report.NodeTypes {
		types[nt.Name] = nt.Raw
	}
	return types, nil
}

func (t *davex) RegisterNodeTypesCnd(ctx context.Context, cnd string, allowUpdate bool) error {
	_, err := t.exec(ctx, request{
		method: wire.MethodProppatch,
		uri:    t.workspaceURI,
		body:   wire.ProppatchNodeTypesCnd(cnd, allowUpdate),
	})
	return unsupportedOn405(err, "server does not support node type registration")
}

func (t *davex) CreateWorkspace(ctx context.Context, name, srcWorkspace string) error {
	if srcWorkspace != "" {
		return &wire.Error{Kind: wire.KindUnsupported,
			Message: "cannot create workspace from a source workspace: no server primitive exists"}
	}
	_, err := t.exec(ctx, request{
		method: wire.MethodMkworkspace,
		uri:    t.server + name,
	})
	return unsupportedOn405(err, "server does not support workspace creation")
}

func (t *davex) DeleteWorkspace(ctx context.Context, name string) error {
	return &wire.Error{Kind: wire.KindUnsupported,
		Message: "cannot delete workspace " + name + ": remove its directory from the server's repository home instead"}
}
