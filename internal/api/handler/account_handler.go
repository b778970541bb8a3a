package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/panelprompt/auth-api/internal/api/metrics"
	"github.com/panelprompt/auth-api/internal/core/ports"
)

const (
	signupMessage = "Account created successfully. We have sent a confirmation email to your inbox. " +
		"Please follow the instructions in it to complete your signup, then log in."
	loginMessage  = "Login successful."
	logoutMessage = "Logged out successfully."
	logoutTarget  = "/"
)

// AccountHandler serves signup, login and logout.
type AccountHandler struct {
	accounts ports.AccountService
}

func NewAccountHandler(accounts ports.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Signup creates the provider account and the KYC profile row.
//
// @Summary      Sign up
// @Description  Creates the identity provider account, then stores the KYC profile.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Signup form"
// @Success      201   {object}  signupResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /signup [post]
// @Router       /api/signup [post]
func (h *AccountHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindForm(c, &req); err != nil {
		metrics.SignupsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
		return err
	}

	res, err := h.accounts.Signup(c.Request().Context(), req.toInput())
	metrics.SignupsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, signupResponse{Message: signupMessage, IdentityID: res.IdentityID})
}

// Login resolves the username and verifies the password with the provider.
//
// @Summary      Log in
// @Description  Resolves the username to an email and verifies the password.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login form"
// @Success      200   {object}  redirectResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /login [post]
// @Router       /api/login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindForm(c, &req); err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
		return err
	}

	res, err := h.accounts.Login(c.Request().Context(), ports.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	metrics.LoginsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, redirectResponse{Message: loginMessage, RedirectTo: res.RedirectTo})
}

// Logout acknowledges the request. There is no server-side session to end.
//
// @Summary      Log out
// @Tags         accounts
// @Produce      json
// @Success      200  {object}  redirectResponse
// @Router       /logout [post]
// @Router       /api/logout [post]
func (h *AccountHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, redirectResponse{Message: logoutMessage, RedirectTo: logoutTarget})
}
