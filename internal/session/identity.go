package session

import "github.com/google/uuid"

// Identity is the opaque token that lets the assistant service correlate
// every chat and upload from one running client. It never rotates.
type Identity struct {
	token string
}

// NewIdentity generates a random token. Call once at startup.
func NewIdentity() Identity {
	return Identity{token: uuid.NewString()}
}

// IdentityFrom wraps a known token, mainly for tests and replays.
func IdentityFrom(token string) Identity {
	return Identity{token: token}
}

// Token returns the same value for the lifetime of the identity.
func (i Identity) Token() string {
	return i.token
}

func (i Identity) String() string {
	return i.token
}
