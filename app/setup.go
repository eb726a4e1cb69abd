package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/api"
	"github.com/sahilchouksey/dars-api/config"
	"github.com/sahilchouksey/dars-api/database"
	"github.com/sahilchouksey/dars-api/router"
	"github.com/sahilchouksey/dars-api/services/mailer"
	"github.com/sahilchouksey/dars-api/services/storage"
	"github.com/sahilchouksey/dars-api/utils/cache"
	"github.com/sahilchouksey/dars-api/utils/logger"
	"github.com/sahilchouksey/dars-api/utils/middleware"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	logger.Setup(getEnv.GO_ENV)

	// Initialize GORM database connection
	store, err := database.StartGORM(getEnv)
	if err != nil {
		log.Error().Msg("Check whether the Postgres is running or not")
		return err
	}

	if err := store.Init(); err != nil {
		log.Error().Msg("Failed to initialize database tables")
		return err
	}

	// Defer Closing DB
	defer store.Close()

	// Redis is optional
	var redisCache *cache.RedisCache
	if getEnv.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(getEnv.REDIS_URL)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis, continuing without it")
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	mail, err := mailer.New(getEnv, store.GetDB())
	if err != nil {
		return err
	}

	files, err := storage.New(getEnv)
	if err != nil {
		return err
	}

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT), getEnv.APP_NAME, getEnv.MAX_UPLOAD_MB)
	app := server.GetEngine()

	// Setup Routes
	err = router.SetupRoutes(app, store, router.Dependencies{
		Config: getEnv,
		Mailer: mail,
		Files:  files,
		Redis:  redisCache,
		Security: &middleware.SecurityConfig{
			AllowedOrigins:    getEnv.ALLOWED_ORIGINS,
			RateLimitRequests: getEnv.RATE_LIMIT_REQUESTS,
			RateLimitWindow:   getEnv.RATE_LIMIT_WINDOW,
		},
	})
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		if err := server.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	// Get the PORT & Start the Server
	return server.Run()
}
