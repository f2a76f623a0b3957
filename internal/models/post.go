package models

import (
	"time"

	"github.com/google/uuid"
)

type Post struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Header    string
	Body      string
	Owner     uuid.UUID
	Likes     int
	DeletedAt *time.Time
}

// Page of items returned by list queries
type Page[T any] struct {
	Items  []T
	Limit  int
	Offset int
	Count  int // total number of items matching the query
}
