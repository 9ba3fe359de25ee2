package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file if one is present. Missing files
// are fine in containerized deployments where the environment is injected.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using environment variables")
	}
}

// GetEnv returns the value of the environment variable or the fallback.
func GetEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

// GetEnvInt parses an integer environment variable, returning the fallback
// when unset or unparseable.
func GetEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("Warning: invalid value for %s: %q, using %d", key, val, fallback)
		return fallback
	}
	return n
}

// GetEnvDuration parses a duration environment variable (e.g. "1h", "30m").
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("Warning: invalid value for %s: %q, using %s", key, val, fallback)
		return fallback
	}
	return d
}
