package client

import (
	"context"

	"github.com/jackalope/jackalope-jackrabbit/wire"
)

func (t *davex) Checkin(ctx context.Context, path string) (string, error) {
	resp, err := t.exec(ctx, request{
		method: wire.MethodCheckin,
		uri:    t.rootURI + wire.EncodePath(path),
	})
	if err != nil {
		// 405 on checkin means the node is not versionable
		return "", unsupportedOn405(err, "cannot check in non-versionable node "+path)
	}
	versionURI := resp.Header.Get("Location")
	if versionURI == "" {
		return "", &wire.Error{Kind: wire.KindRepository,
			Message: "checkin response carries no version location for " + path}
	}
	return versionURI, nil
}

func (t *davex) Checkout(ctx context.Context, path string) error {
	_, err := t.exec(ctx, request{
		method: wire.MethodCheckout,
		uri:    t.rootURI + wire.EncodePath(path),
	})
	return unsupportedOn405(err, "cannot check out non-versionable node "+path)
}

func (t *davex) RestoreVersion(ctx context.Context, nodePath, versionURI string, removeExisting bool) error {
	_, err := t.exec(ctx, request{
		method: wire.MethodUpdate,
		uri:    t.rootURI + wire.EncodePath(nodePath),
		body:   wire.UpdateToVersion(versionURI, removeExisting),
	})
	return err
}

func (t *davex) RemoveVersion(ctx context.Context, versionPath string) error {
	_, err := t.exec(ctx, request{
		method: wire.MethodDelete,
		uri:    t.rootURI + wire.EncodePath(versionPath),
	})
	return err
}

func (t *davex) AddVersionLabel(ctx context.Context, versionURI, label string, moveLabel bool) error {
	action := "add"
	if moveLabel {
		action = "set"
	}
	_, err := t.exec(ctx, request{
		method: wire.MethodLabel,
		uri:    versionURI,
		body:   wire.LabelBody(action, label),
	})
	return err
}

func (t *davex) RemoveVersionLabel(ctx context.Context, versionURI, label string) error {
	_, err := t.exec(ctx, request{
		method: wire.MethodLabel,
		uri:    versionURI,
		body:   wire.LabelBody("remove", label),
	})
	return err
}
