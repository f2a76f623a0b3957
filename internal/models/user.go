package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	CreatedAt time.Time
	FirstName string
	LastName  string
	BirthDate time.Time
	DeletedAt *time.Time // nil while user is active
}

// Credential is the login/password pair of a user
// Shares its ID with the user it belongs to
type Credential struct {
	ID           uuid.UUID
	Login        string
	PasswordHash string
	CreatedAt    time.Time
}

// Filters to search users
// Empty fields are ignored
type UserFilter struct {
	FirstName string
	LastName  string
	Substr    string // matches first or last name
	BirthDate *time.Time
}
