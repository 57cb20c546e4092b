package jcr

import "time"

// EventType is a bitmask tag of one repository change event
type EventType int

// Event types, with the repository's bit values
const (
	EventNodeAdded       EventType = 1
	EventNodeRemoved     EventType = 2
	EventPropertyAdded   EventType = 4
	EventPropertyRemoved EventType = 8
	EventPropertyChanged EventType = 16
	EventNodeMoved       EventType = 32
	EventPersist         EventType = 64
)

var eventTypeNames = map[EventType]string{
	EventNodeAdded:       "NODE_ADDED",
	EventNodeRemoved:     "NODE_REMOVED",
	EventPropertyAdded:   "PROPERTY_ADDED",
	EventPropertyRemoved: "PROPERTY_REMOVED",
	EventPropertyChanged: "PROPERTY_CHANGED",
	EventNodeMoved:       "NODE_MOVED",
	EventPersist:         "PERSIST",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// EventInfo is one entry of an event's ordered info mapping (used for move
// source and destination)
type EventInfo struct {
	Key   string
	Value string
}

// Event is one entry of the repository's change journal. Immutable once
// constructed.
type Event struct {
	Type        EventType
	Date        time.Time // second precision on the wire
	UserID      string
	Path        string
	Identifier  string
	PrimaryType string
	MixinTypes  []string
	UserData    string
	Info        []EventInfo
}

// EventFilter decides which journal events a consumer wants to see
type EventFilter interface {
	Match(Event) bool
}

// EventFilterFunc adapts a function to the EventFilter interface
type EventFilterFunc func(Event) bool

// Match implements EventFilter
func (f EventFilterFunc) Match(e Event) bool {
	return f(e)
}
