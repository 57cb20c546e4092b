package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackalope/jackalope-jackrabbit/jcr"
	"github.com/jackalope/jackalope-jackrabbit/wire"
	"time"
)

func (t *davex) LockNode(ctx context.Context, path string, deep, sessionScoped bool, timeoutSeconds int64, ownerInfo string) (jcr.Lock, error) {
	if ownerInfo == "" {
		ownerInfo = t.creds.UserID
	}
	lockDepth := 0
	if deep {
		lockDepth = wire.DepthInfinity
	}
	header := http.Header{}
	header.Set("Timeout", wire.FormatTimeout(timeoutSeconds))

	var resp wire.LockResponse
	err := t.execXML(ctx, request{
		method: wire.MethodLock,
		uri:    t.rootURI + wire.EncodePath(path),
		body:   wire.LockInfo(sessionScoped, ownerInfo),
		header: header,
		depth:  depth(lockDepth),
	}, &resp)
	if err != nil {
		if errors.Is(err, wire.KindLockFailed) {
			return jcr.Lock{}, &wire.Error{Kind: wire.KindLockFailed,
				Message: "cannot lock non-lockable node " + path}
		}
		return jcr.Lock{}, err
	}
	if resp.Lockdiscovery == nil || resp.Lockdiscovery.ActiveLock == nil {
		return jcr.Lock{}, &wire.Error{Kind: wire.KindRepository,
			Message: "lock response carries no active lock for " + path}
	}
	return wire.ParseActiveLock(resp.Lockdiscovery.ActiveLock, t.rootURI, true, time.Now())
}

func (t *davex) Unlock(ctx context.Context, path, lockToken string) error {
	_, err := t.exec(ctx, request{
		method:    wire.MethodUnlock,
		uri:       t.rootURI + wire.EncodePath(path),
		lockToken: lockToken,
	})
	return err
}

func (t *davex) IsLocked(ctx context.Context, path string) (bool, error) {
	var ms wire.Multistatus
	err := t.execXML(ctx, request{
		method: wire.MethodPropfind,
		uri:    t.rootURI + wire.EncodePath(path),
		body:   wire.PropfindBody("D:lockdiscovery"),
		depth:  depth(0),
	}, &ms)
	if err != nil {
		return false, err
	}
	for _, resp := range ms.Responses {
		for _, propstat := range resp.Propstats {
			ld := propstat.Prop.Lockdiscovery
			if ld != nil && ld.ActiveLock != nil {
				return true, nil
			}
		}
	}
	return false, nil
}
