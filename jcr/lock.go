package jcr

import "time"

// Lock describes a lock held on a node, as reported by the server's
// activelock response. Read-only after construction.
type Lock struct {
	Owner         string
	Deep          bool
	SessionScoped bool
	Token         string
	Expires       *time.Time // nil = never
	Path          string     // path of the locked node
	OwnedBySelf   bool       // whether the current session holds this lock
}

// Live reports whether the lock has not yet expired
func (l Lock) Live(now time.Time) bool {
	return l.Expires == nil || l.Expires.After(now)
}
