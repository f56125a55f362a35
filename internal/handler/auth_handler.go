package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"authgate/internal/errors"
	"authgate/internal/model"
	"authgate/internal/oauth"
	"authgate/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	google      oauth.Verifier
}

// NewAuthHandler creates a new auth handler. google may be nil, in which case
// the Google routes answer 404.
func NewAuthHandler(authService service.AuthService, google oauth.Verifier) *AuthHandler {
	return &AuthHandler{authService: authService, google: google}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ExternalLoginResponse is returned by the provider callback.
type ExternalLoginResponse struct {
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
	User         *model.UserProfile `json:"user"`
}

// Register godoc
// @Summary Register a new local account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} auth.TokenPair
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.authService.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusCreated, pair)
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} auth.TokenPair
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, pair)
}

// Refresh godoc
// @Summary Rotate access and refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} auth.TokenPair
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, pair)
}

// GoogleStart godoc
// @Summary Start Google sign-in
// @Tags auth
// @Success 302
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/google [get]
func (h *AuthHandler) GoogleStart(c echo.Context) error {
	if h.google == nil {
		return providerDisabled()
	}
	url, err := h.google.AuthCodeURL(c.Request().Context())
	if err != nil {
		return errorResponse(err)
	}
	return c.Redirect(http.StatusFound, url)
}

// GoogleCallback godoc
// @Summary Complete Google sign-in
// @Tags auth
// @Produce json
// @Param code query string false "Authorization code"
// @Param state query string true "State issued by /auth/google"
// @Param error query string false "Provider error"
// @Success 200 {object} ExternalLoginResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	if h.google == nil {
		return providerDisabled()
	}

	ctx := c.Request().Context()
	assertion, err := h.google.Verify(ctx, oauth.Callback{
		Code:  c.QueryParam("code"),
		State: c.QueryParam("state"),
		Error: c.QueryParam("error"),
	})
	if err != nil {
		return errorResponse(err)
	}

	pair, profile, err := h.authService.ExternalLogin(ctx, assertion)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, ExternalLoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         profile,
	})
}

func providerDisabled() error {
	return echo.NewHTTPError(http.StatusNotFound, errors.ErrorResponse{
		Error: "provider not configured",
		Code:  "PROVIDER_DISABLED",
	})
}
