package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventUserRegistered = "user.registered"
	EventPostDeleted    = "post.deleted"
	EventPostLiked      = "post.liked"
	EventPostDisliked   = "post.disliked"
)

// Domain event published to the broker
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    uuid.UUID `json:"actor_id"`
	PostID     uuid.UUID `json:"post_id,omitzero"`
}

func NewEvent(typ string, actorID uuid.UUID, postID uuid.UUID) Event {
	return Event{
		ID:         uuid.New(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		PostID:     postID,
	}
}
