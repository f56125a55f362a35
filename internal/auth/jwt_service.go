package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTokenExpiry is used when no access TTL is configured.
	DefaultAccessTokenExpiry = 15 * time.Minute
	// DefaultRefreshTokenExpiry is used when no refresh TTL is configured.
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

// ErrInvalidToken covers malformed, forged, expired and wrong-kind tokens alike.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenKind tells access tokens and refresh tokens apart.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Claims represents JWT claims. The subject is the user id.
type Claims struct {
	Kind TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is what every successful sign-in returns.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenIssuer creates and verifies signed, time-bounded tokens.
type TokenIssuer interface {
	GenerateTokenPair(userID string) (TokenPair, error)
	ValidateToken(tokenString string, kind TokenKind) (*Claims, error)
}

// JWTService handles JWT token generation and validation. Access and refresh
// tokens are signed with separate secrets and carry separate expiries.
//
// Tokens are stateless: there is no revocation, so a leaked token stays valid
// until it expires.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// Ensure JWTService implements TokenIssuer
var _ TokenIssuer = (*JWTService)(nil)

// Option customizes a JWTService.
type Option func(*JWTService)

// WithTTL overrides the token lifetimes. Non-positive values keep the defaults.
func WithTTL(access, refresh time.Duration) Option {
	return func(s *JWTService) {
		if access > 0 {
			s.accessTTL = access
		}
		if refresh > 0 {
			s.refreshTTL = refresh
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) { s.now = now }
}

// NewJWTService creates a new JWT service with the given secrets.
func NewJWTService(accessSecret, refreshSecret string, opts ...Option) *JWTService {
	s := &JWTService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     DefaultAccessTokenExpiry,
		refreshTTL:    DefaultRefreshTokenExpiry,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AccessTTL returns the configured access token lifetime.
func (s *JWTService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (s *JWTService) RefreshTTL() time.Duration { return s.refreshTTL }

// GenerateAccessToken generates a new access token for the user.
func (s *JWTService) GenerateAccessToken(userID string) (string, error) {
	return s.sign(userID, AccessToken)
}

// GenerateRefreshToken generates a new refresh token for the user.
func (s *JWTService) GenerateRefreshToken(userID string) (string, error) {
	return s.sign(userID, RefreshToken)
}

// GenerateTokenPair issues a fresh access and refresh token for the user.
func (s *JWTService) GenerateTokenPair(userID string) (TokenPair, error) {
	access, err := s.GenerateAccessToken(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := s.GenerateRefreshToken(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateToken verifies signature, expiry and kind, and returns the claims.
// Every failure is reported as ErrInvalidToken.
func (s *JWTService) ValidateToken(tokenString string, kind TokenKind) (*Claims, error) {
	secret, _, err := s.params(kind)
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *JWTService) sign(userID string, kind TokenKind) (string, error) {
	if userID == "" {
		return "", errors.New("empty subject")
	}
	secret, ttl, err := s.params(kind)
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *JWTService) params(kind TokenKind) ([]byte, time.Duration, error) {
	switch kind {
	case AccessToken:
		return s.accessSecret, s.accessTTL, nil
	case RefreshToken:
		return s.refreshSecret, s.refreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown token kind %q", ErrInvalidToken, kind)
	}
}
