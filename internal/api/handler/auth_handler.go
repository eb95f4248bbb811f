package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gary-backend/auth-service/internal/core/domain"
	"github.com/gary-backend/auth-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request / Response types ---

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expires_at"`
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Roles     []string  `json:"roles"`
}

type signupRequest struct {
	Username string   `json:"username" validate:"required,max=64"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Password string   `json:"password" validate:"required,max=72"`
	Roles    []string `json:"roles"`
}

type serverResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=72"`
}

type resetRequest struct {
	Username string `json:"username" validate:"required"`
}

type confirmResetRequest struct {
	NewPassword string `json:"new_password" validate:"required,max=72"`
}

type infoResponse struct {
	Name           string             `json:"name"`
	Details        domain.AuthDetails `json:"details"`
	TopLevelRole   string             `json:"top_level_role"`
	InheritedRoles []string           `json:"inherited_roles"`
}

// bindAndValidate decodes the body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Login authenticates a user and returns a session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{
		Token:     res.Token,
		Type:      res.TokenType,
		ExpiresAt: res.ExpiresAt,
		ID:        res.User.ID,
		Username:  res.User.Username,
		Email:     res.User.Email,
		Roles:     res.User.Roles,
	})
}

// Signup creates a new user account. It does not log the user in.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "User registration details"
// @Success      200   {object}  serverResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	_, err := h.authService.Signup(c.Request().Context(), ports.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serverResponse{Message: "User registered successfully!", Status: "OK"})
}

// ChangePassword replaces the caller's password.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  changePasswordRequest  true  "Old and new password"
// @Success      200
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/password/change [put]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	auth, err := requireAuth(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ChangePassword(c.Request().Context(), auth, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// RequestReset issues a password reset token and queues it for delivery.
// The response is the same whether or not the account exists.
//
// @Summary      Request a password reset
// @Tags         auth
// @Accept       json
// @Param        body  body  resetRequest  true  "Account to reset"
// @Success      200
// @Failure      400   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/password/reset [post]
func (h *AuthHandler) RequestReset(c echo.Context) error {
	var req resetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.RequestPasswordReset(c.Request().Context(), req.Username); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// ConfirmReset spends a reset token and sets the new password.
//
// @Summary      Reset password with a token
// @Tags         auth
// @Accept       json
// @Param        token  query  string               true  "Reset token"
// @Param        body   body   confirmResetRequest  true  "New password"
// @Success      200
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/password/reset [put]
func (h *AuthHandler) ConfirmReset(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	var req confirmResetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.authService.ConfirmPasswordReset(c.Request().Context(), token, req.NewPassword)
	switch {
	case err == nil:
		return c.NoContent(http.StatusOK)
	case errors.Is(err, domain.ErrTokenExpired):
		// Not a session failure: the reset link is stale.
		return echo.NewHTTPError(http.StatusBadRequest, "reset token expired")
	default:
		return err
	}
}

// Info describes the caller's authentication.
//
// @Summary      Describe the current authentication
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  infoResponse
// @Router       /auth/info [get]
func (h *AuthHandler) Info(c echo.Context) error {
	desc := h.authService.Describe(authFromContext(c))
	if !desc.Authenticated {
		return c.String(http.StatusOK, "Unauthenticated")
	}

	return c.JSON(http.StatusOK, infoResponse{
		Name:           desc.Name,
		Details:        desc.Details,
		TopLevelRole:   desc.TopLevelRole,
		InheritedRoles: desc.InheritedRoles,
	})
}
