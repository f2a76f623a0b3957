package apperrors

import (
	"errors"
)

var (
	ErrAlreadyRegistered  = errors.New("user already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")

	// Token errors. The gate and the refresh flow return them as is, handlers map all of them to 401.
	ErrWrongTokenType   = errors.New("wrong token type")
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredSignature = errors.New("token signature expired")
	ErrExpiredToken     = errors.New("refresh token expired")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExists   = errors.New("owner already has refresh token")

	ErrNotAuthenticated = errors.New("not authenticated")
	ErrActionNotAllowed = errors.New("action not allowed")

	ErrPostNotFound = errors.New("post not found")
)
