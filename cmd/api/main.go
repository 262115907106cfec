// @title                       Car Marketplace API
// @version                     1.0
// @description                 Car listings with owner-only mutation, hosted images and full-text search.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	_ "github.com/carmarket/car-marketplace/docs"
	"github.com/carmarket/car-marketplace/internal/api"
	"github.com/carmarket/car-marketplace/internal/core/ports"
	"github.com/carmarket/car-marketplace/internal/core/service"
	"github.com/carmarket/car-marketplace/internal/infrastructure/config"
	"github.com/carmarket/car-marketplace/internal/infrastructure/db/mongo"
	"github.com/carmarket/car-marketplace/internal/infrastructure/db/redis"
	"github.com/carmarket/car-marketplace/internal/infrastructure/imagehost"
	"github.com/carmarket/car-marketplace/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		bootLog.Warn().Msg("no .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "car-marketplace",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- MongoDB ---
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}()

	authRepo := mongo.NewAuthRepository(db)
	carRepo := mongo.NewCarRepository(db)
	if err := mongo.EnsureIndexes(ctx, authRepo, carRepo); err != nil {
		return err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongo connected")

	// --- Redis (optional car cache) ---
	deps := api.Deps{Mongo: mongoClient, Logger: log}
	var carCache ports.CarCache
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		carCache = redis.NewCarCache(rdb, cfg.Redis.CacheTTL)
		deps.Redis = rdb
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis car cache enabled")
	} else {
		log.Info().Msg("REDIS_ADDR not set, car cache disabled")
	}

	// --- Image hosting ---
	host, err := newImageHost(ctx, cfg)
	if err != nil {
		return err
	}

	// --- Services ---
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	ingest := service.NewImageIngest(host, service.IngestOptions{
		Folder:      cfg.Images.Folder,
		Concurrency: cfg.Images.Concurrency,
		MaxBytes:    cfg.Images.MaxBytes,
	}, log)

	deps.Tokens = tokens
	deps.Auth = service.NewAuthService(authRepo, tokens, log)
	deps.Cars = service.NewCarService(carRepo, ingest, carCache, service.CarServiceOptions{
		ZeroOverwrites: cfg.Cars.ZeroOverwrites,
		SearchLimit:    cfg.Cars.SearchLimit,
	}, log)

	e := api.NewRouter(deps, api.Options{
		BodyLimit:   cfg.BodyLimit,
		CORSOrigins: cfg.CORSOrigins,
		AuthRPS:     cfg.RateLimit.AuthRPS,
		AuthBurst:   cfg.RateLimit.AuthBurst,
		TrustProxy:  cfg.RateLimit.TrustProxy,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("image_provider", cfg.Images.Provider).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

func newImageHost(ctx context.Context, cfg *config.Config) (ports.ImageHost, error) {
	switch strings.ToLower(cfg.Images.Provider) {
	case config.ImageProviderS3:
		return imagehost.NewS3(ctx, imagehost.S3Config{
			Bucket:        cfg.Images.S3Bucket,
			Region:        cfg.Images.S3Region,
			Endpoint:      cfg.Images.S3Endpoint,
			AccessKey:     cfg.Images.S3AccessKey,
			SecretKey:     cfg.Images.S3SecretKey,
			PublicBaseURL: cfg.Images.S3PublicBaseURL,
			MaxBytes:      cfg.Images.MaxBytes,
		})
	default:
		return imagehost.NewCloudinary(imagehost.CloudinaryConfig{
			CloudName: cfg.Images.CloudinaryCloudName,
			APIKey:    cfg.Images.CloudinaryAPIKey,
			APISecret: cfg.Images.CloudinaryAPISecret,
		})
	}
}
