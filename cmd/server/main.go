package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	_ "authgate/docs" // swagger docs

	"github.com/labstack/echo/v4"

	"authgate/internal/auth"
	"authgate/internal/cache"
	"authgate/internal/config"
	"authgate/internal/db"
	"authgate/internal/handler"
	"authgate/internal/logging"
	authmw "authgate/internal/middleware"
	"authgate/internal/oauth"
	"authgate/internal/repository"
	"authgate/internal/router"
	"authgate/internal/service"
)

// @title Auth Gateway API
// @version 1.0
// @description Email/password and Google sign-in with JWT access and refresh tokens.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	gormDB, err := db.Open(cfg, logger)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if cfg.ResetDB {
		logger.Warn(ctx, "RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			log.Fatalf("reset: %v", err)
		}
	}

	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn(ctx, "redis unreachable, profile cache disabled and Google sign-in will fail", "err", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTRefreshSecret,
		auth.WithTTL(cfg.AccessTokenTTL, cfg.RefreshTokenTTL))
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	// Initialize services
	identities := service.NewIdentityResolver(userRepo, hasher)
	authService := service.NewAuthService(identities, jwtService, logger.With("component", "auth"))
	userService := service.NewUserService(userRepo, cacheClient)

	var google oauth.Verifier
	if cfg.GoogleEnabled() {
		google = oauth.NewGoogleVerifier(oauth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		}, oauth.NewStateStore(cacheClient, cfg.OAuthStateTTL))
	} else {
		logger.Info(ctx, "GOOGLE_CLIENT_ID not set, Google sign-in disabled")
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, google)
	userHandler := handler.NewUserHandler(authService, userService)
	guard := authmw.NewAccessGuard(jwtService, userRepo, logger.With("component", "access_guard"))

	e := echo.New()
	e.HideBanner = true

	// Register routes
	router.Register(e, cfg, logger, guard, authHandler, userHandler)

	logger.Info(ctx, "swagger documentation available", "url", swaggerURL(cfg.SwaggerHost, cfg.ServerPort))

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server start: %v", err)
	}
}

func swaggerURL(host, port string) string {
	if host == "" {
		host = "localhost:" + port
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return strings.TrimSuffix(host, "/") + "/swagger/index.html"
}
