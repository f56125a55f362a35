package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"authgate/internal/auth"
	"authgate/internal/logging"
	"authgate/internal/model"
	"authgate/internal/oauth"
)

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (auth.TokenPair, error)
	Login(ctx context.Context, email, password string) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	ExternalLogin(ctx context.Context, assertion oauth.Assertion) (auth.TokenPair, *model.UserProfile, error)
	Profile(ctx context.Context, userID string) (*model.UserProfile, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

type authService struct {
	identities IdentityResolver
	tokens     auth.TokenIssuer
	log        logging.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(identities IdentityResolver, tokens auth.TokenIssuer, log logging.Logger) AuthService {
	return &authService{
		identities: identities,
		tokens:     tokens,
		log:        log,
	}
}

// Register creates a local account and signs it in.
func (s *authService) Register(ctx context.Context, name, email, password string) (auth.TokenPair, error) {
	user, err := s.identities.RegisterLocal(ctx, name, email, password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return auth.TokenPair{}, ErrEmailTaken
		}
		s.log.Error(ctx, "register failed", "err", err)
		return auth.TokenPair{}, fmt.Errorf("register: %w", err)
	}
	return s.issue(ctx, user.ID)
}

// Login authenticates a local account and returns access and refresh tokens.
func (s *authService) Login(ctx context.Context, email, password string) (auth.TokenPair, error) {
	user, err := s.identities.ResolveLocal(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrBadCredentials) {
			return auth.TokenPair{}, ErrInvalidCredentials
		}
		s.log.Error(ctx, "login failed", "err", err)
		return auth.TokenPair{}, fmt.Errorf("login: %w", err)
	}
	return s.issue(ctx, user.ID)
}

// Refresh validates a refresh token and rotates both tokens. Tokens issued
// earlier stay valid until they expire.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, auth.RefreshToken)
	if err != nil {
		return auth.TokenPair{}, ErrInvalidRefreshToken
	}

	user, err := s.identities.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return auth.TokenPair{}, ErrInvalidRefreshToken
		}
		s.log.Error(ctx, "refresh failed", "err", err, "user_id", claims.Subject)
		return auth.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	return s.issue(ctx, user.ID)
}

// ExternalLogin signs in the account linked to a verified external identity,
// creating it on first sight.
func (s *authService) ExternalLogin(ctx context.Context, assertion oauth.Assertion) (auth.TokenPair, *model.UserProfile, error) {
	if err := validateAssertion(assertion); err != nil {
		s.log.Warn(ctx, "rejected external assertion", "provider", assertion.Provider, "err", err)
		return auth.TokenPair{}, nil, err
	}

	user, err := s.identities.ResolveOrCreateExternal(ctx,
		assertion.Provider, assertion.ProviderID, displayName(assertion), assertion.Email)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return auth.TokenPair{}, nil, ErrEmailTaken
		}
		s.log.Error(ctx, "external login failed", "provider", assertion.Provider, "err", err)
		return auth.TokenPair{}, nil, fmt.Errorf("external login: %w", err)
	}

	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		return auth.TokenPair{}, nil, err
	}
	return pair, user.Profile(), nil
}

// Profile returns the caller's own projection.
func (s *authService) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	user, err := s.identities.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// ChangePassword replaces the password of a local account.
func (s *authService) ChangePassword(ctx context.Context, userID, current, next string) error {
	err := s.identities.ChangePassword(ctx, userID, current, next)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrBadCredentials):
		return ErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrPasswordNotSupported):
		return err
	default:
		s.log.Error(ctx, "change password failed", "err", err, "user_id", userID)
		return fmt.Errorf("change password: %w", err)
	}
}

func (s *authService) issue(ctx context.Context, userID string) (auth.TokenPair, error) {
	pair, err := s.tokens.GenerateTokenPair(userID)
	if err != nil {
		s.log.Error(ctx, "token issuance failed", "err", err, "user_id", userID)
		return auth.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return pair, nil
}

func validateAssertion(a oauth.Assertion) error {
	switch {
	case a.Provider == "" || a.Provider == model.ProviderLocal:
		return fmt.Errorf("%w: provider", ErrAssertionMalformed)
	case strings.TrimSpace(a.ProviderID) == "":
		return fmt.Errorf("%w: provider id", ErrAssertionMalformed)
	case strings.TrimSpace(a.Email) == "":
		return fmt.Errorf("%w: email", ErrAssertionMalformed)
	}
	return nil
}

// displayName falls back to the email when the provider sent no name; the
// name column is required.
func displayName(a oauth.Assertion) string {
	if name := strings.TrimSpace(a.DisplayName); name != "" {
		return name
	}
	return a.Email
}
