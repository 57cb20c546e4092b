package wire

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackalope/jackalope-jackrabbit/jcr"
)

// NSObservation is the namespace of the event elements inside journal
// entries
const NSObservation = "http://www.apache.org/jackrabbit/webdav/observation"

// Journal is one parsed page of the server's event feed
type Journal struct {
	Events []jcr.Event

	// NextAfter is the millisecond watermark for fetching the next page;
	// meaningless when HasNext is false
	NextAfter int64
	HasNext   bool
}

type atomFeed struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Links   []atomLink  `xml:"link"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type atomEntry struct {
	Author struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Content struct {
		Events []journalEvent `xml:"http://www.apache.org/jackrabbit/webdav/observation event"`
	} `xml:"content"`
}

type journalEvent struct {
	Href        string            `xml:"DAV: href"`
	Type        eventTypeElem     `xml:"eventtype"`
	Date        int64             `xml:"eventdate"` // milliseconds
	UserData    string            `xml:"eventuserdata"`
	PrimaryType string            `xml:"eventprimarynodetype"`
	MixinTypes  []string          `xml:"eventmixinnodetype"`
	Identifier  string            `xml:"eventidentifier"`
	Info        journalEventInfos `xml:"eventinfo"`
}

// The event type is expressed as an empty child element named after the type
type eventTypeElem struct {
	Inner []AnyElement `xml:",any"`
}

type journalEventInfos struct {
	Items []AnyElement `xml:",any"`
}

var eventTypesByElement = map[string]jcr.EventType{
	"nodeadded":       jcr.EventNodeAdded,
	"noderemoved":     jcr.EventNodeRemoved,
	"propertyadded":   jcr.EventPropertyAdded,
	"propertyremoved": jcr.EventPropertyRemoved,
	"propertychanged": jcr.EventPropertyChanged,
	"nodemoved":       jcr.EventNodeMoved,
	"persist":         jcr.EventPersist,
}

// ParseJournal parses one raw journal page. rootURI is stripped from event
// hrefs to recover repository paths. Events dated after the creation
// watermark (milliseconds) abort the page: parsing stops immediately and the
// page reports no continuation, so a page boundary landing inside a burst of
// events straddling the watermark cannot leak future events.
func ParseJournal(data []byte, rootURI string, watermark int64) (Journal, error) {
	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return Journal{}, fmt.Errorf("malformed journal page: %w", err)
	}

	journal := Journal{}
	for _, link := range feed.Links {
		if link.Rel != "next" {
			continue
		}
		after, err := nextWatermark(link.Href)
		if err != nil {
			return Journal{}, err
		}
		journal.NextAfter = after
		journal.HasNext = true
	}

	for _, entry := range feed.Entries {
		// One author per entry; every event of the entry belongs to them
		if entry.Author.Name == "" {
			return Journal{}, fmt.Errorf("malformed journal page: entry without author")
		}
		for _, raw := range entry.Content.Events {
			if raw.Date > watermark {
				journal.HasNext = false
				return journal, nil
			}
			event, err := decodeEvent(raw, rootURI, entry.Author.Name)
			if err != nil {
				return Journal{}, err
			}
			journal.Events = append(journal.Events, event)
		}
	}
	return journal, nil
}

func decodeEvent(raw journalEvent, rootURI, userID string) (jcr.Event, error) {
	event := jcr.Event{
		Date:        time.Unix(raw.Date/1000, 0),
		UserID:      userID,
		Path:        strings.TrimSuffix(strings.TrimPrefix(raw.Href, rootURI), "/"),
		Identifier:  raw.Identifier,
		PrimaryType: raw.PrimaryType,
		MixinTypes:  raw.MixinTypes,
		UserData:    raw.UserData,
	}
	for _, inner := range raw.Type.Inner {
		t, ok := eventTypesByElement[inner.XMLName.Local]
		if !ok {
			return jcr.Event{}, fmt.Errorf("malformed journal page: unknown event type %q", inner.XMLName.Local)
		}
		event.Type = t
	}
	if event.Type == 0 {
		return jcr.Event{}, fmt.Errorf("malformed journal page: event without type")
	}
	for _, item := range raw.Info.Items {
		event.Info = append(event.Info, jcr.EventInfo{Key: item.XMLName.Local, Value: item.Text})
	}
	return event, nil
}

func nextWatermark(href string) (int64, error) {
	u, err := url.Parse(href)
	if err != nil {
		return 0, fmt.Errorf("malformed journal page: bad next link %q: %w", href, err)
	}
	after, err := strconv.ParseInt(u.Query().Get("after"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed journal page: bad next link %q: %w", href, err)
	}
	return after, nil
}
