package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rendlabs/rend/internal/server/models"
	"github.com/rendlabs/rend/internal/server/services"
	"github.com/rendlabs/rend/internal/shared"
)

// userDTO is the public projection of a user. Password hashes and reset
// tokens never appear on the wire.
type userDTO struct {
	ID                  string    `json:"id"`
	Username            string    `json:"username"`
	Email               string    `json:"email,omitempty"`
	Role                string    `json:"role"`
	WalletAddress       string    `json:"walletAddress,omitempty"`
	WalletScheme        string    `json:"walletScheme,omitempty"`
	WalletAuthenticated bool      `json:"walletAuthenticated"`
	GoogleAuthenticated bool      `json:"googleAuthenticated"`
	CreatedAt           time.Time `json:"createdAt"`
}

func toUserDTO(u *models.User) *userDTO {
	return &userDTO{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		Role:                u.Role,
		WalletAddress:       u.WalletAddress,
		WalletScheme:        u.WalletScheme,
		WalletAuthenticated: u.WalletAuthenticated,
		GoogleAuthenticated: u.GoogleAuthenticated,
		CreatedAt:           u.CreatedAt,
	}
}

func respondAuth(c echo.Context, status int, res *services.AuthResult) error {
	return c.JSON(status, map[string]any{
		"success": true,
		"token":   res.Token,
		"user":    toUserDTO(res.User),
	})
}

func respondData(c echo.Context, status int, data any) error {
	return c.JSON(status, map[string]any{"success": true, "data": data})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]any{"success": true, "message": message})
}

func (s *Server) respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	message := "Server error"

	switch {
	case errors.Is(err, shared.ErrorValidation),
		errors.Is(err, shared.ErrorEmailExists),
		errors.Is(err, shared.ErrorUsernameExists),
		errors.Is(err, shared.ErrorInvalidMessage),
		errors.Is(err, shared.ErrorInvalidNonce),
		errors.Is(err, shared.ErrorInvalidResetToken):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, shared.ErrorInvalidCredentials),
		errors.Is(err, shared.ErrorInvalidSignature),
		errors.Is(err, shared.ErrorInvalidGoogleToken),
		errors.Is(err, shared.ErrorInvalidToken),
		errors.Is(err, shared.ErrorTokenExpired),
		errors.Is(err, shared.ErrorInvalidAuthheaderFormat),
		errors.Is(err, shared.ErrorUnauthorized):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, shared.ErrorNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, shared.ErrorGoogleNotConfigured),
		errors.Is(err, shared.ErrorMailDelivery):
		message = err.Error()
	default:
		s.logger.Error(c.Request().Context(), "unhandled error", "error", err)
	}

	return c.JSON(status, map[string]any{"success": false, "message": message})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleRegister(c echo.Context) error {
	req := &registerRequest{}
	if err := c.Bind(req); err != nil {
		return s.respondError(c, shared.ErrorValidation)
	}

	res, err := s.auth.Register(c.Request().Context(), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondAuth(c, http.StatusCreated, res)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c echo.Context) error {
	req := &loginRequest{}
	if err := c.Bind(req); err != nil {
		return s.respondError(c, shared.ErrorValidation)
	}

	res, err := s.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondAuth(c, http.StatusOK, res)
}

func (s *Server) handleMe(c echo.Context) error {
	user, ok := c.Get(contextKeyUser).(*models.User)
	if !ok {
		return s.respondError(c, shared.ErrorUnauthorized)
	}
	return respondData(c, http.StatusOK, toUserDTO(user))
}

type walletNonceRequest struct {
	WalletAddress string `json:"walletAddress"`
	Scheme        string `json:"scheme"`
}

func (s *Server) handleWalletNonce(c echo.Context) error {
	req := &walletNonceRequest{}
	if err := c.Bind(req); err != nil {
		return s.respondError(c, shared.ErrorValidation)
	}

	ch, err := s.auth.IssueNonce(c.Request().Context(), req.WalletAddress, req.Scheme)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, http.StatusOK, map[string]string{
		"nonce":   ch.Nonce,
		"message": ch.Message,
	})
}

type walletLoginRequest struct {
	WalletAddress string `json:"walletAddress"`
	Scheme        string `json:"scheme"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
}

func (s *Server) handleWalletLogin(c echo.Context) error {
	req := &walletLoginRequest{}
	if err := c.Bind(req); err != nil {
		return s.respondError(c, shared.ErrorValidation)
	}

	res, err := s.auth.AuthenticateWallet(c.Request().Context(), req.WalletAddress, req.Scheme, req.Signature, req.Message)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondAuth(c, http.StatusOK, res)
}

type googleLoginRequest struct {
	IDToken string `json:"idToken"`
}

func (s *Server) handleGoogleLogin(c echo.Context) error {
	req := &googleLoginRequest{}
	if err := c.Bind(req); err != nil {
		return s.respondError(c, shared.ErrorValidation)
	}

	res, err := s.auth.AuthenticateGoogle(c.Request().Context(), req.IDToken)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondAuth(c, http.StatusOK, res)
}

func (s *Server) handleGoogleURL(c echo.Context) error {
	url, err := s.auth.GoogleAuthURL()
	if err != nil {
		return s.respondError(c, err)
	}
	return respondData(c, http.StatusOK, map[string]string{"url": url})
}

type googleCallbackRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleGoogleCallback(c echo.Context) error {
	req := &googleCallbackRequest{}
	if err := c.Bind(req); err != nil {
		return s.respondError(c, shared.ErrorValidation)
	}
	if req.Code == "" {
		req.Code = c.QueryParam("code")
	}

	res, err := s.auth.ExchangeGoogleCode(c.Request().Context(), req.Code)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondAuth(c, http.StatusOK, res)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleForgotPassword(c echo.Context) error {
	req := &forgotPasswordRequest{}
	if err := c.Bind(req); err != nil {
		return s.respondError(c, shared.ErrorValidation)
	}

	if err := s.auth.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return s.respondError(c, err)
	}
	return respondMessage(c, http.StatusOK, "Email sent")
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleResetPassword(c echo.Context) error {
	req := &resetPasswordRequest{}
	if err := c.Bind(req); err != nil {
		return s.respondError(c, shared.ErrorValidation)
	}

	res, err := s.auth.ResetPassword(c.Request().Context(), c.Param("token"), req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return respondAuth(c, http.StatusOK, res)
}
