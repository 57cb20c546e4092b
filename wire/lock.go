package wire

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackalope/jackalope-jackrabbit/jcr"
)

// TimeoutInfinite is the literal timeout token meaning the lock never expires
const TimeoutInfinite = "Infinite"

// Older Jackrabbit patch versions report this sentinel second count (or the
// sentinel minus one) instead of the infinite token. Both must be read back
// as infinite to mask the bug.
const buggyInfiniteTimeout = 2147483

// FormatTimeout renders a lock timeout for the Timeout request header.
// Zero or negative means infinite.
func FormatTimeout(seconds int64) string {
	if seconds <= 0 {
		return TimeoutInfinite
	}
	return fmt.Sprintf("Second-%d", seconds)
}

// ParseTimeout converts a reported timeout string into an expiry timestamp
// relative to now. nil means the lock never expires.
func ParseTimeout(timeout string, now time.Time) (*time.Time, error) {
	if timeout == "" || strings.EqualFold(timeout, TimeoutInfinite) {
		return nil, nil
	}
	rest, ok := cutPrefixFold(timeout, "Second-")
	if !ok {
		return nil, fmt.Errorf("unparsable lock timeout %q", timeout)
	}
	seconds, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("unparsable lock timeout %q: %w", timeout, err)
	}
	if seconds == buggyInfiniteTimeout || seconds == buggyInfiniteTimeout-1 {
		return nil, nil
	}
	expires := now.Add(time.Duration(seconds) * time.Second)
	return &expires, nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// Lockdiscovery is the DAV: lockdiscovery property value
type Lockdiscovery struct {
	ActiveLock *ActiveLock `xml:"activelock"`
}

// ActiveLock is the activelock element of a lock response
type ActiveLock struct {
	Scope struct {
		Exclusive              *struct{} `xml:"DAV: exclusive"`
		ExclusiveSessionScoped *struct{} `xml:"http://www.day.com/jcr/webdav/1.0 exclusive-session-scoped"`
	} `xml:"lockscope"`
	Depth     string `xml:"depth"`
	Owner     string `xml:"owner"`
	Timeout   string `xml:"timeout"`
	LockToken *Href  `xml:"locktoken"`
	LockRoot  *Href  `xml:"lockroot"`
}

// LockResponse is the response document of a LOCK request
type LockResponse struct {
	XMLName       xml.Name       `xml:"DAV: prop"`
	Lockdiscovery *Lockdiscovery `xml:"lockdiscovery"`
}

// ParseActiveLock converts an activelock element into the lock value object.
// rootURI is stripped from the lock root to recover the node path; ownedBySelf
// records whether the current session acquired the lock.
func ParseActiveLock(al *ActiveLock, rootURI string, ownedBySelf bool, now time.Time) (jcr.Lock, error) {
	lock := jcr.Lock{
		Owner:         al.Owner,
		Deep:          !strings.EqualFold(al.Depth, "0"),
		SessionScoped: al.Scope.ExclusiveSessionScoped != nil,
		OwnedBySelf:   ownedBySelf,
	}
	if al.LockToken != nil {
		lock.Token = al.LockToken.Href
	}
	if al.LockRoot != nil {
		lock.Path = strings.TrimPrefix(al.LockRoot.Href, rootURI)
	}
	expires, err := ParseTimeout(al.Timeout, now)
	if err != nil {
		return jcr.Lock{}, err
	}
	lock.Expires = expires
	return lock, nil
}
