package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/onboardhq/account-service/internal/core/domain"
	"github.com/onboardhq/account-service/internal/core/ports"
)

// AccountHandler handles the public account-lifecycle endpoints.
type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// bindAndValidate decodes the JSON body and runs the request validator,
// converting failures into 400 responses.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Register creates a new, unverified account and emails a verification link.
//
// @Summary      Register a new account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /api/register [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.service.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			// echo back the email exactly as submitted
			return c.JSON(http.StatusBadRequest, messageResponse{
				Message: domain.DuplicateEmailMessage(req.Email),
			})
		}
		return err
	}

	return c.JSON(http.StatusCreated, messageResponse{
		Message: "Successfully created account",
		Data:    toAccountResponse(account),
	})
}

// VerifyEmail consumes the verification link.
//
// @Summary      Verify an account email
// @Tags         accounts
// @Produce      json
// @Param        id     path      string  true  "Account id"
// @Param        token  path      string  true  "Verification token"
// @Success      200    {object}  messageResponse
// @Failure      400    {object}  messageResponse
// @Failure      404    {object}  messageResponse
// @Router       /api/verify/{id}/{token} [get]
func (h *AccountHandler) VerifyEmail(c echo.Context) error {
	account, err := h.service.VerifyEmail(c.Request().Context(), c.Param("id"), c.Param("token"))
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return c.JSON(http.StatusBadRequest, messageResponse{
				Message: "This Link is Expired. Send another Email Verification",
			})
		}
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{
		Message: "User with Email: " + account.Email + " verified successfully",
	})
}

// ResendVerification issues a fresh verification token and email.
//
// @Summary      Resend the verification email
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      404   {object}  messageResponse
// @Router       /api/resend-verification [post]
func (h *AccountHandler) ResendVerification(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.service.ResendVerification(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{
		Message: "Verification email sent successfully to your email: " + account.Email,
	})
}

// Login authenticates a verified account and returns a short-lived access token.
//
// @Summary      Login
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      404   {object}  messageResponse
// @Router       /api/login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	accessToken, _, err := h.service.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{
		Message: "Log in Successful",
		Data:    tokenResponse{Token: accessToken},
	})
}

// SignOut clears the login state for an account.
//
// @Summary      Sign out
// @Tags         accounts
// @Produce      json
// @Param        id  path      string  true  "Account id"
// @Success      200 {object}  messageResponse
// @Failure      404 {object}  messageResponse
// @Router       /api/signout/{id} [post]
func (h *AccountHandler) SignOut(c echo.Context) error {
	account, err := h.service.SignOut(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{
		Message: "User Successfully logged out",
		Data:    toAccountResponse(account),
	})
}

// ListLoggedIn returns every account currently logged in.
//
// @Summary      List logged-in users
// @Tags         accounts
// @Produce      json
// @Success      200 {object}  messageResponse
// @Failure      404 {object}  messageResponse
// @Router       /api/users/loggedin [get]
func (h *AccountHandler) ListLoggedIn(c echo.Context) error {
	accounts, err := h.service.ListLoggedIn(c.Request().Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoAccounts) {
			return c.JSON(http.StatusNotFound, messageResponse{Message: "No Login Users at the Moment"})
		}
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{
		Message: "All Login Users",
		Data:    toAccountResponses(accounts),
	})
}

// ChangePassword stores a new password after re-authenticating the caller.
//
// @Summary      Change password
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "Account id"
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      404   {object}  messageResponse
// @Router       /api/changepassword/{id} [put]
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.service.ChangePassword(c.Request().Context(), c.Param("id"), req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{
		Message: "Password Changed Successfully",
		Data:    toAccountResponse(account),
	})
}

// ForgotPassword emails a short-lived reset link.
//
// @Summary      Request a password-reset link
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      404   {object}  messageResponse
// @Router       /api/forgotpassword [post]
func (h *AccountHandler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.service.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{
		Message: "Email sent successfully, please check your Email for the link to reset your Password",
	})
}

// ResetPassword consumes the reset link and stores the new password.
//
// @Summary      Reset password via link token
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id     path      string                true  "Account id"
// @Param        token  path      string                true  "Reset token"
// @Param        body   body      resetPasswordRequest  true  "New password"
// @Success      200    {object}  messageResponse
// @Failure      400    {object}  messageResponse
// @Failure      404    {object}  messageResponse
// @Router       /api/reset/{id}/{token} [post]
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	_, err := h.service.ResetPassword(c.Request().Context(), c.Param("id"), c.Param("token"), req.NewPassword)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return c.JSON(http.StatusBadRequest, messageResponse{
				Message: "This Link is Expired. Send another Password Verification",
			})
		}
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Password changed successfully"})
}

// Me returns the account identified by the bearer access token.
//
// @Summary      Current account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object}  messageResponse
// @Failure      401 {object}  messageResponse
// @Router       /api/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	id, _ := c.Get("account_id").(string)
	if id == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	account, err := h.service.GetAccount(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{
		Message: "Account found",
		Data:    toAccountResponse(account),
	})
}
