// Package config provides configuration management for the techblog application.
// It handles loading and validation of configuration values from environment variables,
// with support for required variables, default values, and collective error reporting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PoolConfig represents configuration for the database connection pool.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// SessionConfig holds session-related configuration.
type SessionConfig struct {
	// TTL is the lifetime of a session record; expired sessions are
	// treated as anonymous and periodically swept.
	TTL time.Duration
	// CookieSecure marks the session cookie Secure; off by default so
	// local development over plain HTTP keeps working.
	CookieSecure bool
	// SweepInterval is how often the background sweeper deletes expired
	// session rows.
	SweepInterval time.Duration
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port string
	// AdminSecret guards the user-listing endpoint. When empty the
	// endpoint is open, matching the legacy deployment.
	AdminSecret string
	// MigrationsPath is the directory golang-migrate reads SQL files from.
	MigrationsPath string
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	DB      *PoolConfig
	Session *SessionConfig
	Server  *ServerConfig
}

// getRequiredEnv fetches a required environment variable, collecting an
// error if it is not set.
func getRequiredEnv(key string, errors *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errors = append(*errors, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getOptionalEnvInt(key string, defaultValue int, errors *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

func getOptionalEnvBool(key string, defaultValue bool, errors *[]string) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueBool, err := strconv.ParseBool(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected boolean, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueBool
}

// getOptionalEnvDuration parses values like "15m" or "24h".
func getOptionalEnvDuration(key string, defaultValue time.Duration, errors *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// clampPoolSize keeps the pool size between 2 and 100 connections.
func clampPoolSize(size int, varName string, errors *[]string) int {
	if size < 2 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is less than minimum 2, clamping to 2", varName, size))
		return 2
	}
	if size > 100 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is greater than maximum 100, clamping to 100", varName, size))
		return 100
	}
	return size
}

// LoadConfig creates and returns an AppConfig by reading and validating environment variables.
// It collects all errors encountered during loading and returns a single error if any exist.
func LoadConfig() (*AppConfig, error) {
	var errors []string

	dbUser := getRequiredEnv("DB_USER", &errors)
	dbPassword := getRequiredEnv("DB_PASSWORD", &errors)
	dbName := getRequiredEnv("DB_NAME", &errors)
	dbHost := getOptionalEnv("DB_HOST", "localhost")
	dbPort := getOptionalEnvInt("DB_PORT", 5432, &errors)
	poolSize := clampPoolSize(getOptionalEnvInt("DB_POOL_SIZE", 10, &errors), "DB_POOL_SIZE", &errors)

	dbConfig := &PoolConfig{
		Host:     dbHost,
		Port:     dbPort,
		User:     dbUser,
		Password: dbPassword,
		DBName:   dbName,
		MaxSize:  poolSize,
	}

	sessionConfig := &SessionConfig{
		TTL:           getOptionalEnvDuration("SESSION_TTL", 24*time.Hour, &errors),
		CookieSecure:  getOptionalEnvBool("COOKIE_SECURE", false, &errors),
		SweepInterval: getOptionalEnvDuration("SESSION_SWEEP_INTERVAL", 15*time.Minute, &errors),
	}

	serverConfig := &ServerConfig{
		Port:           getOptionalEnv("PORT", "8080"),
		AdminSecret:    getOptionalEnv("ADMIN_SECRET", ""),
		MigrationsPath: getOptionalEnv("MIGRATIONS_PATH", "./migrations"),
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return &AppConfig{
		DB:      dbConfig,
		Session: sessionConfig,
		Server:  serverConfig,
	}, nil
}
