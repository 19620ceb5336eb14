package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-water-tracker/config"
	"github.com/oksasatya/go-water-tracker/internal/container"
	pginfra "github.com/oksasatya/go-water-tracker/internal/infrastructure/postgres"
	"github.com/oksasatya/go-water-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-water-tracker/internal/router"
	"github.com/oksasatya/go-water-tracker/internal/router/modules"
	"github.com/oksasatya/go-water-tracker/pkg/helpers"
	"github.com/oksasatya/go-water-tracker/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()
	checks := map[string]modules.Check{}

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetJWT(helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL))

	if cfg.UsesMemory() {
		logger.Warn("STORAGE_DRIVER=memory; data is lost on restart")
	} else {
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			logger.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), logger); err != nil {
			logger.Fatalf("migration failed: %v", err)
		}

		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		if err := helpers.PingRedis(ctx, rdb); err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}

		container.SetPGPool(pool)
		container.SetRedis(rdb)
		checks["postgres"] = func(ctx context.Context) error { return pginfra.Ping(ctx, pool) }
		checks["redis"] = func(ctx context.Context) error { return helpers.PingRedis(ctx, rdb) }
	}

	initOptionalClients(ctx, cfg, logger, checks)
	defer func() {
		if g := container.GetGCS(); g != nil {
			_ = g.Close()
		}
		container.GetRabbitPub().Close()
	}()

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RealIP())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	reg := router.NewRegistry(r)
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		reg.Use(middleware.AccessLog(logger))
	}
	reg.Add(modules.NewHealthModule(checks))
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.WithFields(logrus.Fields{"port": cfg.Port, "storage": cfg.StorageDriver}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

// initOptionalClients connects the services that only enrich the API. A
// failure disables the feature instead of stopping the server.
func initOptionalClients(ctx context.Context, cfg *config.Config, logger *logrus.Logger, checks map[string]modules.Check) {
	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			helpers.LogError(logger, "gcs disabled", err, nil)
		} else {
			container.SetGCS(gcsClient)
		}
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			helpers.LogError(logger, "elasticsearch disabled", err, nil)
		} else {
			container.SetES(es)
			checks["elasticsearch"] = func(ctx context.Context) error { return helpers.PingES(ctx, es) }
		}
	}

	if cfg.MailSendEnabled && cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue, cfg.AppName)
		if err != nil {
			helpers.LogError(logger, "email queue disabled", err, logrus.Fields{"queue": cfg.RabbitMQEmailQueue})
		} else {
			container.SetRabbitPub(pub)
			checks["rabbitmq"] = pub.Healthy
		}
	}
}
