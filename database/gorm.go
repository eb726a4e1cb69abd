package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/config"
	"github.com/sahilchouksey/dars-api/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GORMStore struct {
	db *gorm.DB
}

// StartGORM initializes a GORM connection to PostgreSQL
func StartGORM(getEnv *config.EnviornmentVariable) (*GORMStore, error) {
	// Build DSN (Data Source Name)
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		getEnv.DB_HOST,
		getEnv.DB_USER_NAME,
		getEnv.DB_PASSWORD,
		getEnv.DB_NAME,
		getEnv.DB_PORT,
		getEnv.DB_SSL_MODE,
	)

	// Configure GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if getEnv.IsProduction() {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	// pgx is the dialector default; "postgres" switches to the lib/pq driver registered in pq.go
	pgConfig := postgres.Config{DSN: dsn}
	if getEnv.DB_DRIVER == "postgres" {
		pgConfig.DriverName = "postgres"
	}

	// Open GORM connection
	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		PrepareStmt:    true, // Prepare statements for better performance
	})
	if err != nil {
		log.Error().Err(err).Msg("Unable to connect to PostgreSQL with GORM")
		return nil, err
	}

	// Get underlying *sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info().Str("driver", getEnv.DB_DRIVER).Msg("Successfully connected to PostgreSQL Database with GORM.")

	return &GORMStore{db: db}, nil
}

// NewGORMStore wraps an already opened connection
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

// Init runs the AutoMigrate to create/update tables
func (s *GORMStore) Init() error {
	log.Info().Msg("Running GORM AutoMigrate for all models...")

	err := s.db.AutoMigrate(
		// Accounts
		&model.User{},
		&model.JWTTokenBlacklist{},

		// Courses and groups
		&model.Course{},
		&model.CourseGroup{},

		// Profiles
		&model.Teacher{},
		&model.Student{},

		// Lessons
		&model.Lesson{},
		&model.LessonVideo{},
		&model.Comment{},

		// Outgoing mail audit
		&model.EmailLog{},
		&model.EmailLogRecipient{},
	)

	if err != nil {
		log.Error().Err(err).Msg("Error running AutoMigrate")
		return err
	}

	log.Info().Msg("GORM AutoMigrate completed successfully!")
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	log.Info().Msg("Closing GORM PostgreSQL connection...")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in handlers
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
