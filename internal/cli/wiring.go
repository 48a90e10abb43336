package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/docuhub/exam-service/internal/config"
	"github.com/docuhub/exam-service/internal/events"
	"github.com/docuhub/exam-service/internal/handlers"
	"github.com/docuhub/exam-service/internal/repositories"
	"github.com/docuhub/exam-service/internal/repositories/casdoor"
	"github.com/docuhub/exam-service/internal/repositories/memory"
	"github.com/docuhub/exam-service/internal/repositories/postgres"
	"github.com/docuhub/exam-service/internal/services"
	"github.com/docuhub/exam-service/internal/utils"
	"github.com/docuhub/exam-service/internal/validator"
	"github.com/docuhub/exam-service/pkg"
)

// app holds the wired dependencies shared by the subcommands
type app struct {
	cfg    *config.Config
	slog   *slog.Logger
	logger utils.Logger

	db          *gorm.DB
	redisClient *redis.Client
	repoManager repositories.RepositoryManager
	repoReady   bool
	localUsers  *memory.UserStore

	services      services.ServiceManager
	authenticator handlers.Authenticator
}

func loadConfig(envFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	return cfg, slogLogger, nil
}

// buildApp connects storage, cache, identity and events and initializes the services
func buildApp(ctx context.Context, envFile string) (*app, error) {
	cfg, slogLogger, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		slog:   slogLogger,
		logger: utils.NewSlogLogger(slogLogger),
	}

	// Redis is optional, caching is skipped without it
	if cfg.RedisURL != "" {
		a.redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			a.logger.Warn("Failed to initialize Redis, continuing without cache", "error", err)
			a.redisClient = nil
		}
	}

	users := a.buildUsers()

	if err := a.buildRepositories(users); err != nil {
		a.close(ctx)
		return nil, err
	}

	publisher, err := buildPublisher(cfg, slogLogger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	a.services = services.NewServiceManager(a.repoManager.GetRepository(), slogLogger, validator.New(), publisher)
	if err := a.services.Initialize(ctx); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	switch cfg.AuthProvider {
	case config.AuthCasdoor:
		a.authenticator = handlers.NewCasdoorAuthenticator(cfg.Casdoor, users, a.logger)
	default:
		a.authenticator = handlers.NewJWTAuthenticator(cfg.JWTSecret, a.localUsers)
	}

	return a, nil
}

func (a *app) buildUsers() repositories.UserRepository {
	a.localUsers = memory.NewUserStore()
	if a.cfg.AuthProvider != config.AuthCasdoor {
		return a.localUsers
	}
	return casdoor.NewUserCasdoor(casdoor.CasdoorConfig{
		Endpoint:         a.cfg.Casdoor.Endpoint,
		ClientID:         a.cfg.Casdoor.ClientID,
		ClientSecret:     a.cfg.Casdoor.ClientSecret,
		Certificate:      a.cfg.Casdoor.Cert,
		OrganizationName: a.cfg.Casdoor.Organization,
		ApplicationName:  a.cfg.Casdoor.Application,
	}, a.redisClient)
}

func (a *app) buildRepositories(users repositories.UserRepository) error {
	switch a.cfg.StorageDriver {
	case config.StorageMemory:
		// The in-memory store populates users from the local identity store only
		a.repoManager = memory.NewRepositoryManager(a.localUsers)
	default:
		db, err := pkg.InitDatabase(a.cfg)
		if err != nil {
			return err
		}
		a.db = db
		a.repoManager = postgres.NewRepositoryManager(postgres.RepositoryConfig{
			DB:          db,
			RedisClient: a.redisClient,
			Users:       users,
		})
	}

	if err := a.repoManager.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}
	a.repoReady = true
	return nil
}

// buildPublisher uses Kafka when brokers are configured and an in-process channel otherwise
func buildPublisher(cfg *config.Config, logger *slog.Logger) (events.EventPublisher, error) {
	if len(cfg.Kafka.Brokers) > 0 {
		return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix, logger)
	}
	publisher, _ := events.NewGoChannelPublisher(cfg.Kafka.TopicPrefix, logger)
	return publisher, nil
}

func (a *app) close(ctx context.Context) {
	if a.services != nil {
		if err := a.services.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to shutdown services", "error", err)
		}
	}

	switch {
	case a.repoReady:
		if err := a.repoManager.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to close repositories", "error", err)
		}
		// The postgres repository owns the Redis client once initialized
		if a.cfg.StorageDriver != config.StorageMemory {
			return
		}
	case a.db != nil:
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	if a.redisClient != nil {
		a.redisClient.Close()
	}
}
