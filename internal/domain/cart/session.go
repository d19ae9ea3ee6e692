package cart

// SessionContext carries the identity available to a cart operation: the
// anonymous session cart token issued by the cookie middleware, and the
// authenticated user id when present. It is passed explicitly on every
// operation rather than read from ambient request storage.
type SessionContext struct {
	SessionCartID string
	UserID        string
}

// OwnerKey is the resolved identifier a cart is addressed by. Exactly one
// lookup dimension is used: UserID when set, else SessionCartID.
type OwnerKey struct {
	UserID        string
	SessionCartID string
}

// OwnerKey resolves the lookup key for the owning cart, preferring the
// authenticated user id over the anonymous token. It fails with
// ErrSessionMissing when neither is available.
func (s SessionContext) OwnerKey() (OwnerKey, error) {
	if s.UserID == "" && s.SessionCartID == "" {
		return OwnerKey{}, ErrSessionMissing
	}
	return OwnerKey{UserID: s.UserID, SessionCartID: s.SessionCartID}, nil
}
