package jcr

// Credentials is what a caller presents when logging into a repository.
//
// The Davex transport only understands SimpleCredentials; other
// implementations of this interface are rejected at login time with an
// authentication error.
type Credentials interface {
	credentials()
}

// SimpleCredentials is a user ID and password pair, the one credentials shape
// the Davex protocol can transmit (as HTTP basic auth).
type SimpleCredentials struct {
	UserID   string
	Password string
}

func (SimpleCredentials) credentials() {}
