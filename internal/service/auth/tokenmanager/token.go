package tokenmanager

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/postboard/internal/apperrors"
	"github.com/nkiryanov/postboard/internal/models"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 24 * time.Hour
)

type Kind int

const (
	Access Kind = iota
	Refresh
)

func (k Kind) String() string {
	switch k {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Claims of both access and refresh tokens
// Expiry is carried by 'expiration_date', not by the registered 'exp' claim
// 'typ' tells access and refresh tokens apart
type Claims struct {
	jwt.RegisteredClaims
	Type           string           `json:"typ"`
	User           string           `json:"user"`
	ExpirationDate *jwt.NumericDate `json:"expiration_date"`
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.ExpirationDate, nil
}

// Token manager with sensible default
type Config struct {
	// Secret key to sign tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TokenManager struct {
	// Secret key to sign tokens
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Access and refresh token lifetimes
	accessTTL  time.Duration
	refreshTTL time.Duration

	now func() time.Time
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg, ok := jwt.GetSigningMethod(cfg.Alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("signing method %q is not supported", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		key:        cfg.SecretKey,
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

func (m *TokenManager) ttl(kind Kind) time.Duration {
	if kind == Refresh {
		return m.refreshTTL
	}
	return m.accessTTL
}

// Issue signed token of the kind for the subject
func (m *TokenManager) Issue(kind Kind, subject string) (models.IssuedToken, error) {
	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(m.ttl(kind))

	token := jwt.NewWithClaims(
		m.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:       uuid.NewString(),
				IssuedAt: jwt.NewNumericDate(now),
			},
			Type:           kind.String(),
			User:           subject,
			ExpirationDate: jwt.NewNumericDate(expiresAt),
		},
	)

	signed, err := token.SignedString([]byte(m.key))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing %s token. Err: %w", kind, err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

type verifyOptions struct {
	skipExpiry bool
}

type VerifyOption func(*verifyOptions)

// Do not fail on expired tokens
func WithoutExpiry() VerifyOption {
	return func(o *verifyOptions) {
		o.skipExpiry = true
	}
}

// Parse and validate token of the expected kind
// Returns apperrors.ErrMalformedToken, apperrors.ErrInvalidSignature, apperrors.ErrExpiredSignature,
// apperrors.ErrWrongTokenType or apperrors.ErrInvalidToken
func (m *TokenManager) Verify(token string, kind Kind, opts ...VerifyOption) (Claims, error) {
	var o verifyOptions
	for _, opt := range opts {
		opt(&o)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if o.skipExpiry {
		parserOpts = append(parserOpts, jwt.WithoutClaimsValidation())
	} else {
		parserOpts = append(parserOpts, jwt.WithExpirationRequired())
	}

	claims := Claims{}
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		parserOpts...,
	)

	switch {
	case err == nil && claims.User == "":
		return claims, apperrors.ErrMalformedToken
	case err == nil && claims.Type != kind.String():
		return claims, fmt.Errorf("%w: expected %s token, got %q", apperrors.ErrWrongTokenType, kind, claims.Type)
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return claims, fmt.Errorf("%w: %w", apperrors.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return claims, fmt.Errorf("%w: %w", apperrors.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return claims, fmt.Errorf("%w: %w", apperrors.ErrExpiredSignature, err)
	default:
		return claims, fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
	}
}

// Key returns the middle (payload) segment of the token
// It is stored as refresh token key
func Key(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[1] == "" {
		return "", apperrors.ErrInvalidToken
	}
	return parts[1], nil
}
