package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gary-backend/auth-service/internal/core/domain"
	"github.com/gary-backend/auth-service/internal/core/ports"
)

// AdminHandler exposes account administration.
type AdminHandler struct {
	authService ports.AuthService
}

func NewAdminHandler(authService ports.AuthService) *AdminHandler {
	return &AdminHandler{authService: authService}
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active locked"`
}

// SetStatus locks or unlocks an account.
//
// @Summary      Lock or unlock a user
// @Tags         admin
// @Accept       json
// @Security     BearerAuth
// @Param        username  path  string         true  "Username"
// @Param        body      body  statusRequest  true  "New status"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /admin/users/{username}/status [put]
func (h *AdminHandler) SetStatus(c echo.Context) error {
	var req statusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.SetUserStatus(c.Request().Context(), c.Param("username"), domain.UserStatus(req.Status)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
