package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"authgate/internal/errors"
	"authgate/internal/middleware"
	"authgate/internal/service"
)

// UserHandler serves the caller's profile and the user directory.
type UserHandler struct {
	authService service.AuthService
	svc         service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(authService service.AuthService, svc service.UserService) *UserHandler {
	return &UserHandler{authService: authService, svc: svc}
}

// ChangePasswordRequest represents a password change for the caller's account.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

// Profile godoc
// @Summary Get the caller's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.UserProfile
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/profile [get]
func (h *UserHandler) Profile(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized()
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Change the caller's password
// @Tags users
// @Accept json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Current and new password"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users/profile/password [put]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized()
	}

	var req ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ChangePassword(c.Request().Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return errorResponse(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.UserProfile
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.svc.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, user)
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.UserProfile
// @Failure 401 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, users)
}

func unauthorized() error {
	httpErr := errors.Unauthorized()
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}
