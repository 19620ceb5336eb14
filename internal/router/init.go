package router

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-water-tracker/config"
	"github.com/oksasatya/go-water-tracker/internal/application"
	"github.com/oksasatya/go-water-tracker/internal/container"
	repo "github.com/oksasatya/go-water-tracker/internal/domain/repository"
	gcsinfra "github.com/oksasatya/go-water-tracker/internal/infrastructure/gcs"
	"github.com/oksasatya/go-water-tracker/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-water-tracker/internal/infrastructure/postgres"
	"github.com/oksasatya/go-water-tracker/internal/infrastructure/redisstore"
	"github.com/oksasatya/go-water-tracker/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-water-tracker/internal/interface/http"
	"github.com/oksasatya/go-water-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-water-tracker/internal/router/modules"
	tpl "github.com/oksasatya/go-water-tracker/pkg/mailer/templates"
)

// Stores groups the persistence ports selected by STORAGE_DRIVER.
type Stores struct {
	Users    repo.UserRepository
	Records  repo.DailyRecordRepository
	Sessions repo.SessionStore
	Tokens   repo.TokenStore
}

// buildStores returns Postgres + Redis stores, or in-process stores when the
// memory driver is selected.
func buildStores(cfg *config.Config) Stores {
	if cfg.UsesMemory() {
		return Stores{
			Users:    memory.NewUserRepository(),
			Records:  memory.NewDailyRecordRepository(),
			Sessions: memory.NewSessionStore(),
			Tokens:   memory.NewTokenStore(),
		}
	}
	pool := container.GetPGPool()
	rdb := container.GetRedis()
	return Stores{
		Users:    pginfra.NewUserRepository(pool),
		Records:  pginfra.NewDailyRecordRepository(pool),
		Sessions: redisstore.NewSessionStore(rdb),
		Tokens:   redisstore.NewTokenStore(rdb),
	}
}

// Services holds the use cases shared by the HTTP modules.
type Services struct {
	Stores  Stores
	Users   *application.Service
	Records *application.DailyRecordService
	Reports *application.MonthlyReportService
}

const (
	geoCacheSize = 1024
	geoCacheTTL  = 6 * time.Hour
)

func buildServices(cfg *config.Config, logger *logrus.Logger, st Stores) Services {
	var pub application.EmailPublisher
	if p := container.GetRabbitPub(); p != nil {
		pub = p
	}
	notify := application.NewNotifier(pub, cfg, tpl.NewCachedResolver(tpl.NewIPAPIResolver(nil), geoCacheSize, geoCacheTTL), logger)

	var avatars application.AvatarStorage
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		avatars = gcsinfra.NewAvatarStorage(gcs, cfg.GCSBucket)
	}
	var index application.UserIndex
	if es := container.GetES(); es != nil {
		index = search.NewUserIndex(es, cfg.ESUsersIndex)
	}

	users := application.NewService(application.ServiceDeps{
		Users:       st.Users,
		Records:     st.Records,
		Sessions:    st.Sessions,
		Tokens:      st.Tokens,
		JWT:         container.GetJWT(),
		Avatars:     avatars,
		Index:       index,
		Notify:      notify,
		Logger:      logger,
		SessionTTL:  cfg.SessionTTL,
		DefaultGoal: cfg.DefaultDailyWaterGoal,
	})
	return Services{
		Stores:  st,
		Users:   users,
		Records: application.NewDailyRecordService(st.Records, st.Users, cfg.DefaultDailyWaterGoal, logger),
		Reports: application.NewMonthlyReportService(st.Records),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) Services {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	svc := buildServices(cfg, logger, buildStores(cfg))

	jwt := container.GetJWT()
	authMW := middleware.Auth(svc.Stores.Sessions, jwt)

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(svc.Users, logger, cfg.CookieDomain, cfg.CookieSecure), authMW))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(svc.Users, logger, cfg.AvatarMaxBytes), authMW))
	r.Add(modules.NewWaterModule(handlers.NewWaterHandler(svc.Records, svc.Reports, logger), authMW))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
	return svc
}
