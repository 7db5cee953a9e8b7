package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	authapi "go.taskhive.io/auth/api/echo"
	"go.taskhive.io/auth/cache"
	cacheredis "go.taskhive.io/auth/cache/redis"
	"go.taskhive.io/auth/config"
	"go.taskhive.io/auth/internal/kratos"
	"go.taskhive.io/auth/internal/metrics"
	"go.taskhive.io/auth/mongodb"
	"go.taskhive.io/auth/services"
	"go.taskhive.io/auth/tracing"
)

const tokenIssuer = "taskhive-auth"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	if cfg.LogPretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = logger
	if parseErr != nil {
		log.Warn().Str("configured_log_level", cfg.LogLevel).Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}

	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db_name", cfg.MongoDBName).
		Str("kratos_url", cfg.KratosPublicURL).
		Msg("Starting taskhive auth server")

	registry := prometheus.NewRegistry()
	metrics.InitCustomMetrics(registry)

	tracerProvider, err := tracing.InitTracerProvider(tokenIssuer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	ctx := context.Background()
	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MongoDB connection")
	}
	db := mongodb.GetDB()

	accountRepo, err := mongodb.NewAccountRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize AccountRepository")
	}
	roleRepo, err := mongodb.NewRoleRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize RoleRepository")
	}
	memberRepo, err := mongodb.NewProjectMemberRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ProjectMemberRepository")
	}

	var revocations cache.RevocationStore
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		revocations = cacheredis.NewRevocationStore(redisClient, "taskhive")
		log.Info().Str("redis_addr", cfg.RedisAddr).Msg("Using Redis revocation store")
	} else {
		revocations, err = mongodb.NewRevokedTokenRepository(ctx, db)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize RevokedTokenRepository")
		}
		log.Info().Msg("Using MongoDB revocation store")
	}

	tokenService := services.NewTokenService(
		revocations,
		[]byte(cfg.JWTSignerKey),
		tokenIssuer,
		cfg.AccessTTL(),
		cfg.RefreshTTL(),
	)
	hasher := services.NewBcryptPasswordHasher(0)
	authService := services.NewAuthService(accountRepo, roleRepo, tokenService, revocations, hasher)
	kratosClient := kratos.NewClient(cfg.KratosPublicURL, nil)
	sessionBridge := services.NewSessionBridge(kratosClient, accountRepo, roleRepo, tokenService)
	authzService := services.NewAuthzService(accountRepo, memberRepo)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	api := authapi.NewAuthAPI(authService, sessionBridge, authzService, tokenService, cfg.SessionCookieName)
	api.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := mongodb.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("MongoDB disconnect failed")
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Tracer shutdown failed")
	}
}
