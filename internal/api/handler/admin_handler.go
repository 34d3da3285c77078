package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/onboardhq/account-service/internal/core/ports"
)

// AdminHandler handles user management performed by an admin account. The
// acting admin is identified by the adminId path parameter and checked by the
// service before any mutation.
type AdminHandler struct {
	service ports.AccountService
}

func NewAdminHandler(service ports.AccountService) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListUsers returns every non-admin account.
//
// @Summary      List non-admin users
// @Tags         admin
// @Produce      json
// @Success      200 {object}  messageResponse
// @Failure      404 {object}  messageResponse
// @Router       /api/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	accounts, err := h.service.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{
		Message: "All Users found",
		Data:    toAccountResponses(accounts),
	})
}

// UpdateUser applies a partial update to the target account.
//
// @Summary      Update a user (admin)
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        adminId  path      string              true  "Acting admin account id"
// @Param        id       path      string              true  "Target account id"
// @Param        body     body      adminUpdateRequest  true  "Fields to change"
// @Success      200      {object}  messageResponse
// @Failure      400      {object}  messageResponse
// @Failure      404      {object}  messageResponse
// @Router       /api/admin/{adminId}/users/{id} [put]
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	var req adminUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.service.AdminUpdate(c.Request().Context(), c.Param("adminId"), c.Param("id"), ports.UpdateAccountInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{
		Message: "User updated successfully",
		Data:    toAccountResponse(account),
	})
}

// DeleteUser removes the target account.
//
// @Summary      Delete a user (admin)
// @Tags         admin
// @Produce      json
// @Param        adminId  path      string  true  "Acting admin account id"
// @Param        id       path      string  true  "Target account id"
// @Success      200      {object}  messageResponse
// @Failure      400      {object}  messageResponse
// @Failure      404      {object}  messageResponse
// @Router       /api/admin/{adminId}/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	if err := h.service.AdminDelete(c.Request().Context(), c.Param("adminId"), c.Param("id")); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "User deleted successfully"})
}
