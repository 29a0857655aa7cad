package session

import "context"

// Store is the durable mapping from Telegram user id to Session.
//
// Update serializes read-modify-write cycles per user, so concurrent events
// for the same user cannot interleave their patches. Get never persists;
// a session materializes on its first Update.
type Store interface {
	// Get returns the stored session or a default one for first contact.
	Get(ctx context.Context, userID int64) (*Session, error)
	// Update applies fn to the current session and persists the result.
	// Returning an error from fn aborts the update without persisting.
	Update(ctx context.Context, userID int64, fn func(*Session) error) (*Session, error)
	// ResetAuth clears auth, cursor, and tracked statuses for the user.
	ResetAuth(ctx context.Context, userID int64) error
	// Delete removes the record entirely; the next contact recreates it.
	Delete(ctx context.Context, userID int64) error
	// All enumerates every stored session.
	All(ctx context.Context) ([]*Session, error)
}
