package models

import (
	"time"

	"github.com/google/uuid"
)

// Stored part of the refresh token
// Only one token per owner may exist
type RefreshToken struct {
	ID         uuid.UUID
	Key        string // middle segment of the issued refresh token
	Owner      uuid.UUID
	CreatedAt  time.Time
	ValidUntil time.Time
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by AuthService
// Refresh is empty when only the access token was reissued
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
