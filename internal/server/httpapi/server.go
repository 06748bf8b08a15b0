// Package httpapi exposes the authentication service over HTTP. All routes
// live under /api/auth and speak a JSON envelope: successful responses carry
// {"success": true, ...}, failures {"success": false, "message": ...}.
package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rendlabs/rend/internal/logging"
	"github.com/rendlabs/rend/internal/server/config"
	"github.com/rendlabs/rend/internal/server/models"
	"github.com/rendlabs/rend/internal/server/services"
)

// AuthProvider is the slice of the service layer the transport needs.
type AuthProvider interface {
	Register(ctx context.Context, username, email, password, role string) (*services.AuthResult, error)
	Login(ctx context.Context, identifier, password string) (*services.AuthResult, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	IssueNonce(ctx context.Context, address, scheme string) (*services.NonceChallenge, error)
	AuthenticateWallet(ctx context.Context, address, scheme, signature, message string) (*services.AuthResult, error)
	AuthenticateGoogle(ctx context.Context, idToken string) (*services.AuthResult, error)
	GoogleAuthURL() (string, error)
	ExchangeGoogleCode(ctx context.Context, code string) (*services.AuthResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) (*services.AuthResult, error)
}

// Server wires the auth routes into an echo instance.
type Server struct {
	echo   *echo.Echo
	auth   AuthProvider
	config *config.Config
	logger logging.Logger
}

func NewServer(auth AuthProvider, cfg *config.Config, logger logging.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	s := &Server{echo: e, auth: auth, config: cfg, logger: logger}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	g := s.echo.Group("/api/auth")

	g.POST("/register", s.handleRegister)
	g.POST("/login", s.handleLogin)
	g.GET("/me", s.handleMe, s.Protect)

	g.POST("/wallet/nonce", s.handleWalletNonce)
	g.POST("/wallet", s.handleWalletLogin)

	g.POST("/google", s.handleGoogleLogin)
	g.GET("/google/url", s.handleGoogleURL)
	g.POST("/google/callback", s.handleGoogleCallback)

	g.POST("/forgot-password", s.handleForgotPassword)
	g.POST("/reset-password/:token", s.handleResetPassword)
}

// Handler exposes the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start blocks serving HTTP on the configured address.
func (s *Server) Start() error {
	return s.echo.Start(s.config.EndpointAddr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
