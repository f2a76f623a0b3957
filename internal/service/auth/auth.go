package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/nkiryanov/postboard/internal/apperrors"
	"github.com/nkiryanov/postboard/internal/logger"
	"github.com/nkiryanov/postboard/internal/models"
	"github.com/nkiryanov/postboard/internal/repository"
	"github.com/nkiryanov/postboard/internal/service/auth/tokenmanager"
)

const (
	defaultAccessHeaderName = "Authorization"
	defaultAccessAuthScheme = "Bearer"
	defaultRotateAttempts   = 3
	rotateBackoff           = 10 * time.Millisecond
)

// Interface to create or verify user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare user provided password with known hash
	// Must be protected against timing attacks
	// Mismatch returns false and nil error
	Verify(password string, hashedPassword string) (bool, error)
}

type Config struct {
	// Header to read access token from
	AccessHeaderName string

	// Auth scheme expected in the header, compared case-insensitive
	AccessAuthScheme string

	// Hasher to verify user password during login
	Hasher PasswordHasher

	// How many times to retry refresh token rotation if concurrent login won the race
	RotateAttempts uint64
}

// Auth service
type AuthService struct {
	accessHeaderName string
	accessAuthScheme string
	rotateAttempts   uint64

	// Manager to issue and verify tokens
	tokens *tokenmanager.TokenManager

	// hasher to verify user passwords
	hasher PasswordHasher

	storage repository.Storage
	logger  logger.Logger
}

func NewService(cfg Config, tokens *tokenmanager.TokenManager, storage repository.Storage, l logger.Logger) (*AuthService, error) {
	setDefault := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefault(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefault(&cfg.AccessAuthScheme, defaultAccessAuthScheme)

	if cfg.RotateAttempts == 0 {
		cfg.RotateAttempts = defaultRotateAttempts
	}
	if cfg.Hasher == nil {
		cfg.Hasher = DefaultHasher
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &AuthService{
		accessHeaderName: cfg.AccessHeaderName,
		accessAuthScheme: cfg.AccessAuthScheme,
		rotateAttempts:   cfg.RotateAttempts,
		tokens:           tokens,
		hasher:           cfg.Hasher,
		storage:          storage,
		logger:           l,
	}, nil
}

// Login user with login and password
// Unknown login and wrong password both return apperrors.ErrInvalidCredentials
// On success the previous refresh token of the user is replaced by the new one
func (s *AuthService) Login(ctx context.Context, login string, password string) (models.TokenPair, error) {
	var pair models.TokenPair

	cred, err := s.storage.Credential().GetByLogin(ctx, login)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return pair, apperrors.ErrInvalidCredentials
	case err != nil:
		return pair, fmt.Errorf("can't get credential. Err: %w", err)
	}

	ok, err := s.hasher.Verify(password, cred.PasswordHash)
	if err != nil {
		s.logger.Error("Stored password hash is broken", "user_id", cred.ID, "error", err)
		return pair, fmt.Errorf("can't verify password. Err: %w", err)
	}
	if !ok {
		return pair, apperrors.ErrInvalidCredentials
	}

	pair.Access, err = s.tokens.Issue(tokenmanager.Access, cred.Login)
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. Err: %w", err)
	}
	pair.Refresh, err = s.tokens.Issue(tokenmanager.Refresh, cred.ID.String())
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. Err: %w", err)
	}

	if err := s.rotate(ctx, cred.ID, pair.Refresh); err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

// Replace refresh token of the owner in one transaction
// Concurrent login may insert its token between delete and insert, than the whole rotation is retried
func (s *AuthService) rotate(ctx context.Context, owner uuid.UUID, refresh models.IssuedToken) error {
	key, err := tokenmanager.Key(refresh.Value)
	if err != nil {
		return fmt.Errorf("issued refresh token has no key. Err: %w", err)
	}

	backoff := retry.WithMaxRetries(s.rotateAttempts, retry.NewExponential(rotateBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.storage.InTx(ctx, func(st repository.Storage) error {
			if err := st.Refresh().DeleteByOwner(ctx, owner); err != nil {
				return err
			}
			_, err := st.Refresh().Create(ctx, models.RefreshToken{
				Key:        key,
				Owner:      owner,
				ValidUntil: refresh.ExpiresAt,
			})
			return err
		})

		if errors.Is(err, apperrors.ErrRefreshTokenExists) {
			s.logger.Debug("Refresh token rotation conflict, retrying", "user_id", owner)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("can't rotate refresh token. Err: %w", err)
	}

	return nil
}

// Issue new access token using refresh token
// Access token may be expired already, but must be valid otherwise
// Refresh token is not rotated: the returned pair has empty refresh token
func (s *AuthService) RefreshToken(ctx context.Context, access string, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	claims, err := s.tokens.Verify(access, tokenmanager.Access, tokenmanager.WithoutExpiry())
	if err != nil {
		return pair, err
	}

	key, err := tokenmanager.Key(refresh)
	if err != nil {
		return pair, err
	}

	stored, err := s.storage.Refresh().GetByKey(ctx, key)
	switch {
	case errors.Is(err, apperrors.ErrRefreshTokenNotFound):
		// The row may be swept already: expired tokens still report expiry
		if s.refreshExpired(refresh) {
			return pair, apperrors.ErrExpiredToken
		}
		return pair, apperrors.ErrInvalidToken
	case err != nil:
		return pair, fmt.Errorf("can't get refresh token. Err: %w", err)
	}

	if !stored.ValidUntil.After(time.Now()) {
		return pair, apperrors.ErrExpiredToken
	}

	// Refresh token must belong to the access token subject
	user, err := s.storage.User().GetUserByLogin(ctx, claims.User)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return pair, apperrors.ErrInvalidToken
	case err != nil:
		return pair, fmt.Errorf("can't get user. Err: %w", err)
	}
	if user.ID != stored.Owner {
		return pair, apperrors.ErrInvalidToken
	}

	pair.Access, err = s.tokens.Issue(tokenmanager.Access, claims.User)
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. Err: %w", err)
	}

	return pair, nil
}

// refreshExpired reports whether refresh is our own refresh token with passed expiration date
func (s *AuthService) refreshExpired(refresh string) bool {
	claims, err := s.tokens.Verify(refresh, tokenmanager.Refresh, tokenmanager.WithoutExpiry())
	if err != nil || claims.ExpirationDate == nil {
		return false
	}
	return !claims.ExpirationDate.After(time.Now())
}

// Authenticate request
// Request without access token is anonymous: nil user and nil error returned
func (s *AuthService) Authenticate(ctx context.Context, r *http.Request) (*models.User, error) {
	header := r.Header.Get(s.accessHeaderName)
	if header == "" {
		return nil, nil
	}

	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, s.accessAuthScheme) {
		return nil, apperrors.ErrWrongTokenType
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.ErrMalformedToken
	}

	claims, err := s.tokens.Verify(token, tokenmanager.Access)
	switch {
	case errors.Is(err, apperrors.ErrInvalidSignature):
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
	case err != nil:
		return nil, err
	}

	user, err := s.storage.User().GetUserByLogin(ctx, claims.User)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return nil, apperrors.ErrNotAuthenticated
	case err != nil:
		return nil, fmt.Errorf("can't get user. Err: %w", err)
	}

	return &user, nil
}
