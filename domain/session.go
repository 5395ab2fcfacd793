package domain

import "time"

// Session is a signed-in actor, cached in Redis and referenced by the access token.
type Session struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	ActorKind ActorKind `json:"actor_kind"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}
