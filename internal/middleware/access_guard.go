// Package middleware holds the request gate that protects authenticated routes.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"authgate/internal/auth"
	apperrors "authgate/internal/errors"
	"authgate/internal/logging"
	"authgate/internal/model"
	"authgate/internal/repository"
)

// ContextKey is where the resolved caller is stored on the echo context.
const ContextKey = "user"

var (
	errUnknownSubject   = errors.New("token subject has no account")
	errStoreUnavailable = errors.New("credential store unavailable")
)

// ProfileFinder loads the public projection of a user.
type ProfileFinder interface {
	FindProfileByID(ctx context.Context, id string) (*model.UserProfile, error)
}

// AccessGuard validates bearer access tokens and resolves them to users.
// It keeps no state between requests.
type AccessGuard struct {
	tokens auth.TokenIssuer
	users  ProfileFinder
	log    logging.Logger
}

// NewAccessGuard creates an access guard.
func NewAccessGuard(tokens auth.TokenIssuer, users ProfileFinder, log logging.Logger) *AccessGuard {
	return &AccessGuard{tokens: tokens, users: users, log: log}
}

// Middleware returns the echo middleware. Any missing, malformed or expired
// token, and any token whose user no longer exists, gets one 401 response.
func (g *AccessGuard) Middleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:     ContextKey,
		TokenLookup:    "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: g.authenticate,
		ErrorHandler:   g.reject,
	})
}

func (g *AccessGuard) authenticate(c echo.Context, token string) (interface{}, error) {
	claims, err := g.tokens.ValidateToken(token, auth.AccessToken)
	if err != nil {
		return nil, err
	}

	ctx := c.Request().Context()
	profile, err := g.users.FindProfileByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errUnknownSubject
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errStoreUnavailable, err)
	}
	return profile, nil
}

func (g *AccessGuard) reject(c echo.Context, err error) error {
	if errors.Is(err, errStoreUnavailable) {
		g.log.Error(c.Request().Context(), "access guard lookup failed", "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, apperrors.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
	httpErr := apperrors.Unauthorized()
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// CurrentUser returns the caller resolved by the guard.
func CurrentUser(c echo.Context) (*model.UserProfile, bool) {
	profile, ok := c.Get(ContextKey).(*model.UserProfile)
	return profile, ok && profile != nil
}
