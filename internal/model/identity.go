package model

import "time"

// Identity is the anonymous per-profile identity that namespaces remote
// documents. Token is the bearer secret issued alongside the UID.
type Identity struct {
	UID       string    `json:"uid"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// Valid reports whether both halves of the identity are present.
func (i Identity) Valid() bool {
	return i.UID != "" && i.Token != ""
}

// Session is a server-side bearer session bound to an anonymous user.
type Session struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// SyncTag names the deferred push intent registered with the relay.
const SyncTag = "sync-todos"

// MessageSyncTodos asks the foreground to re-run the push path.
const MessageSyncTodos = "SYNC_TODOS"

// SyncRegistration records that a deferred sync is owed for Tag.
type SyncRegistration struct {
	Tag          string    `json:"tag"`
	RegisteredAt time.Time `json:"registered_at"`
}
