package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/onboardhq/account-service/docs"
	"github.com/onboardhq/account-service/internal/api/handler"
	"github.com/onboardhq/account-service/internal/api/middleware"
	"github.com/onboardhq/account-service/internal/core/credentials"
	"github.com/onboardhq/account-service/internal/core/ports"
	"github.com/onboardhq/account-service/internal/core/service"
	"github.com/onboardhq/account-service/internal/core/token"
	mongodb "github.com/onboardhq/account-service/internal/infrastructure/db/mongo"
	"github.com/onboardhq/account-service/internal/pkg/config"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, mailQueue ports.MailQueue, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("accounts"))

	// --- Dependencies ---
	accountRepo := mongodb.NewAccountRepository(db)
	issuer := token.NewIssuer(cfg.JWTSecret)
	accountService := service.NewAccountService(
		accountRepo,
		credentials.NewHasher(),
		issuer,
		mailQueue,
		cfg.BaseURL,
		log,
	)
	accountHandler := handler.NewAccountHandler(accountService)
	adminHandler := handler.NewAdminHandler(accountService)
	authMiddleware := middleware.Auth(cfg.JWTSecret)

	// --- Account routes ---
	e.POST("/api/register", accountHandler.Register)
	e.GET("/api/verify/:id/:token", accountHandler.VerifyEmail)
	e.POST("/api/resend-verification", accountHandler.ResendVerification)
	e.POST("/api/login", accountHandler.Login)
	e.POST("/api/signout/:id", accountHandler.SignOut)
	e.GET("/api/users/loggedin", accountHandler.ListLoggedIn)
	e.PUT("/api/changepassword/:id", accountHandler.ChangePassword)
	e.POST("/api/forgotpassword", accountHandler.ForgotPassword)
	e.POST("/api/reset/:id/:token", accountHandler.ResetPassword)
	e.GET("/api/me", accountHandler.Me, authMiddleware)

	// --- Admin routes (adminId is checked by the service) ---
	e.GET("/api/users", adminHandler.ListUsers)
	e.PUT("/api/admin/:adminId/users/:id", adminHandler.UpdateUser)
	e.DELETE("/api/admin/:adminId/users/:id", adminHandler.DeleteUser)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
