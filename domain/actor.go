package domain

// ActorKind tags which of the three identity tables an actor lives in.
type ActorKind string

const (
	ActorMember         ActorKind = "member"
	ActorAdmin          ActorKind = "admin"
	ActorProjectManager ActorKind = "project_manager"
)

// ActorKinds is the resolution order: the first table holding an id wins.
var ActorKinds = []ActorKind{ActorMember, ActorAdmin, ActorProjectManager}

// Actor is any identity that can be assigned a task or attributed as its creator or deleter.
// Ids are assumed unique across the three tables; nothing in the schema enforces it.
type Actor struct {
	ID           string    `json:"id"`
	Kind         ActorKind `json:"kind"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	Active       bool      `json:"active"`
	PasswordHash string    `json:"-"`
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Kind == ActorAdmin
}

// Summary returns the denormalized form attached to tasks.
func (a *Actor) Summary() *ActorSummary {
	if a == nil {
		return nil
	}
	return &ActorSummary{
		ID:     a.ID,
		Kind:   a.Kind,
		Name:   a.Name,
		Email:  a.Email,
		Avatar: a.Avatar,
	}
}

// ActorSummary is the actor identity attached to a task client-side.
type ActorSummary struct {
	ID     string    `json:"id"`
	Kind   ActorKind `json:"kind"`
	Name   string    `json:"name"`
	Email  string    `json:"email,omitempty"`
	Avatar string    `json:"avatar,omitempty"`
}
