package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/config"
	"github.com/sahilchouksey/dars-api/database"
	"github.com/sahilchouksey/dars-api/utils/logger"
)

func main() {
	// Load environment variables
	if err := config.LoadENV(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load environment variables")
	}

	getEnv, err := config.Get()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read configuration")
	}

	logger.Setup(getEnv.GO_ENV)

	// Initialize database connection using GORM
	store, err := database.StartGORM(getEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	// Make sure the schema is current before seeding
	if err := store.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	if err := store.HealthCheck(); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	err = database.RunSeeds(store.GetDB(), database.SeedConfig{
		Username: os.Getenv("SEED_USERNAME"),
		Email:    os.Getenv("SEED_EMAIL"),
		Password: os.Getenv("SEED_PASSWORD"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}

	log.Info().Msg("Seeding completed successfully")
}
