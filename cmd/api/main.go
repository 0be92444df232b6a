package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/raptiye/blog-api/docs"
	"github.com/raptiye/blog-api/internal/api"
	"github.com/raptiye/blog-api/internal/core/domain"
	"github.com/raptiye/blog-api/internal/core/password"
	"github.com/raptiye/blog-api/internal/core/ports"
	"github.com/raptiye/blog-api/internal/infrastructure/config"
	mongodb "github.com/raptiye/blog-api/internal/infrastructure/db/mongo"
	redisdb "github.com/raptiye/blog-api/internal/infrastructure/db/redis"
	"github.com/raptiye/blog-api/internal/infrastructure/queue"
	"github.com/raptiye/blog-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title           Blog Auth API
// @version         1.0
// @description     Stateless credential issuance and request authentication for the blog platform.
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{})
		boot.Fatal().Err(err).Msg("configuration failed")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	users := mongodb.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("user index creation failed")
	}

	// Login throttling degrades gracefully: without redis the service runs
	// unthrottled rather than not at all.
	var limiter ports.LoginLimiter
	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, login throttling disabled")
		rdb = nil
	} else {
		limiter = redisdb.NewLoginLimiter(rdb, cfg.Login.MaxAttempts, cfg.Login.Window)
	}

	audit := mongodb.NewAuditRepository(db)
	dispatcher := queue.NewAuditDispatcher(0, audit, log)
	dispatcher.Start(ctx)

	if err := seedAdmin(ctx, users, password.NewHasher(cfg.BcryptCost), cfg, log); err != nil {
		log.Fatal().Err(err).Msg("admin seeding failed")
	}

	e, err := api.NewRouter(cfg, api.Dependencies{
		Users:   users,
		Audit:   audit,
		Auditor: dispatcher,
		Limiter: limiter,
		Mongo:   db,
		Redis:   rdb,
		Logger:  log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("router construction failed")
	}

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// seedAdmin creates the initial ADMIN account when the configured password is
// set and the username is not yet taken.
func seedAdmin(ctx context.Context, users ports.UserRepository, hasher *password.Hasher, cfg *config.Config, log zerolog.Logger) error {
	if cfg.Seed.AdminPassword == "" {
		return nil
	}

	exists, err := users.ExistsByUsername(ctx, cfg.Seed.AdminUsername)
	if err != nil || exists {
		return err
	}

	hash, err := hasher.Hash(cfg.Seed.AdminPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if _, err := users.Create(ctx, &domain.User{
		Username:     cfg.Seed.AdminUsername,
		Email:        cfg.Seed.AdminEmail,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return err
	}

	log.Info().Str("username", cfg.Seed.AdminUsername).Msg("seeded admin account")
	return nil
}
