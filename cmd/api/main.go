package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/cartfold/cartfold-backend/api"
	"github.com/cartfold/cartfold-backend/api/routes"
	authsvc "github.com/cartfold/cartfold-backend/internal/auth"
	cartsvc "github.com/cartfold/cartfold-backend/internal/cart"
	catsvc "github.com/cartfold/cartfold-backend/internal/categories"
	mediasvc "github.com/cartfold/cartfold-backend/internal/media"
	ordersvc "github.com/cartfold/cartfold-backend/internal/orders"
	prodsvc "github.com/cartfold/cartfold-backend/internal/products"
	"github.com/cartfold/cartfold-backend/internal/users"
	pkgauth "github.com/cartfold/cartfold-backend/pkg/auth"
	"github.com/cartfold/cartfold-backend/pkg/auth/session"
	"github.com/cartfold/cartfold-backend/pkg/config"
	"github.com/cartfold/cartfold-backend/pkg/db"
	"github.com/cartfold/cartfold-backend/pkg/logger"
	"github.com/cartfold/cartfold-backend/pkg/metrics"
	"github.com/cartfold/cartfold-backend/pkg/migrate"
	"github.com/cartfold/cartfold-backend/pkg/redis"
	"github.com/cartfold/cartfold-backend/pkg/security"
	"github.com/cartfold/cartfold-backend/pkg/storage/gcs"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fallbackExit("loading config", err)
	}

	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logg := logger.New(logger.Options{
		ServiceName: "cartfold-api",
		Level:       level,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "fatal", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.NewClient(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if cfg.FeatureFlags.AutoMigrate {
		sqlDB, err := dbClient.Gorm().DB()
		if err != nil {
			return err
		}
		if err := migrate.Up(ctx, sqlDB); err != nil {
			return err
		}
		logg.Info(ctx, "migrations applied")
	}

	redisClient, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	issuer, err := pkgauth.NewTokenIssuer(cfg.JWT)
	if err != nil {
		return err
	}
	sessions, err := session.NewManager(redisClient, cfg.JWT.RefreshTokenTTL(), issuer.TTL())
	if err != nil {
		return err
	}
	hasher := security.NewHasher(cfg.Password)

	gormDB := dbClient.Gorm()
	userRepo := users.NewRepository(gormDB)
	categoryRepo := catsvc.NewRepository(gormDB)
	productRepo := prodsvc.NewRepository(gormDB)
	cartRepo := cartsvc.NewRepository(gormDB)
	orderRepo := ordersvc.NewRepository(gormDB)

	authService, err := authsvc.NewService(userRepo, dbClient, hasher, issuer, sessions, logg)
	if err != nil {
		return err
	}
	categoryService, err := catsvc.NewService(categoryRepo, dbClient, logg)
	if err != nil {
		return err
	}
	productService, err := prodsvc.NewService(productRepo, categoryRepo, dbClient, logg)
	if err != nil {
		return err
	}
	cartService, err := cartsvc.NewService(cartRepo, productRepo, dbClient, logg)
	if err != nil {
		return err
	}
	workflow := metrics.NewOrderWorkflow(prometheus.DefaultRegisterer)
	orderService, err := ordersvc.NewService(orderRepo, cartRepo, dbClient, workflow, logg)
	if err != nil {
		return err
	}

	// Image uploads stay off unless a bucket is configured.
	var mediaService mediasvc.Service
	if cfg.GCS.BucketName != "" {
		storageClient, err := gcs.NewClient(cfg.GCS, cfg.GCP)
		if err != nil {
			return err
		}
		mediaService, err = mediasvc.NewService(storageClient, productRepo, cfg.Media.MaxUploadBytes(), logg)
		if err != nil {
			return err
		}
	} else {
		logg.Warn(ctx, "no GCS bucket configured, product image uploads disabled")
	}

	handler := routes.New(routes.Deps{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Issuer:     issuer,
		Sessions:   sessions,
		Auth:       authService,
		Categories: categoryService,
		Products:   productService,
		Cart:       cartService,
		Orders:     orderService,
		Media:      mediaService,
	})

	server := api.NewServer(cfg.App.Port, handler, logg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func fallbackExit(stage string, err error) {
	logg := logger.New(logger.Options{ServiceName: "cartfold-api"})
	logg.Error(context.Background(), stage, err)
	os.Exit(1)
}
