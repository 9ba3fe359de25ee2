package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"recurring-poll-backend/config"
	"recurring-poll-backend/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database handle used by the HTTP handlers. The rollover
// engine does not touch it; it receives its store as an injected dependency.
var DB *gorm.DB

// InitDB opens the database connection and migrates the schema. The driver
// is selected with DB_DRIVER (mysql by default, sqlite for local runs).
func InitDB() error {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	var err error

	switch config.GetEnv("DB_DRIVER", "mysql") {
	case "sqlite":
		path := config.GetEnv("DB_PATH", "polls.db")
		DB, err = gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger})
	default:
		dbUser := config.GetEnv("DB_USER", "polluser")
		dbPassword := config.GetEnv("DB_PASSWORD", "pollpassword")
		dbHost := config.GetEnv("DB_HOST", "mysql")
		dbPort := config.GetEnv("DB_PORT", "3306")
		dbName := config.GetEnv("DB_NAME", "polldb")

		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			dbUser, dbPassword, dbHost, dbPort, dbName)
		DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	}

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(DB); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Println("Database connection and migration successful")
	return nil
}

// Migrate applies the schema for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Poll{},
		&models.PollInstance{},
		&models.Suggestion{},
		&models.AccessKey{},
		&models.Vote{},
	)
}
