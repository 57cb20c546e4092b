package client

import (
	"context"
	"fmt"
	"time"

	"github.com/jackalope/jackalope-jackrabbit/jcr"
	"github.com/jackalope/jackalope-jackrabbit/wire"
)

func (t *davex) JournalPage(ctx context.Context, afterMillis int64) ([]byte, error) {
	resp, err := t.exec(ctx, request{
		method: wire.MethodGet,
		uri:    fmt.Sprintf("%s?type=journal&after=%d", t.workspaceURI, afterMillis),
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (t *davex) Events(ctx context.Context, after time.Time, filter jcr.EventFilter) (*EventBuffer, error) {
	buffer := &EventBuffer{
		creation:  time.Now().UnixMilli(),
		nextAfter: after.UnixMilli(),
		hasNext:   true,
		filter:    filter,
		rootURI:   t.rootURI,
		fetch:     t.JournalPage,
	}
	if err := buffer.fetchPage(ctx); err != nil {
		return nil, err
	}
	return buffer, nil
}

// EventBuffer is a lazily paginated, filtered view of the change journal.
// Pages past the first are fetched on demand from Next. The buffer never
// shows events generated at or after its creation instant, even when the
// journal keeps growing while it is consumed.
type EventBuffer struct {
	events []jcr.Event
	pos    int

	nextAfter int64
	hasNext   bool
	creation  int64

	filter  jcr.EventFilter
	rootURI string
	fetch   func(ctx context.Context, afterMillis int64) ([]byte, error)
}

// Next returns the next matching event, fetching further journal pages as
// needed. It returns nil when the journal view is exhausted.
func (b *EventBuffer) Next(ctx context.Context) (*jcr.Event, error) {
	for {
		if b.pos < len(b.events) {
			event := &b.events[b.pos]
			b.pos++
			return event, nil
		}
		if !b.hasNext || b.nextAfter >= b.creation {
			return nil, nil
		}
		if err := b.fetchPage(ctx); err != nil {
			return nil, err
		}
	}
}

// Rewind restarts iteration over the events fetched so far. Pages not yet
// fetched are unaffected.
func (b *EventBuffer) Rewind() {
	b.pos = 0
}

func (b *EventBuffer) fetchPage(ctx context.Context) error {
	data, err := b.fetch(ctx, b.nextAfter)
	if err != nil {
		return err
	}
	journal, err := wire.ParseJournal(data, b.rootURI, b.creation)
	if err != nil {
		return &wire.Error{Kind: wire.KindRepository, Message: err.Error()}
	}
	for _, event := range journal.Events {
		if b.filter == nil || b.filter.Match(event) {
			b.events = append(b.events, event)
		}
	}
	b.nextAfter = journal.NextAfter
	b.hasNext = journal.HasNext
	return nil
}
