// Package common provides shared configuration, logging and telemetry for
// the ki7mt-msis applications.
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds common configuration for all applications.
type Config struct {
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	DataDir            string
	LogLevel           string

	// API server
	APIPort     int
	BearerToken string

	// Space weather indices
	SpaceWeatherURL      string
	RefreshSchedule      string
	SpaceWeatherSQLite   string
	SpaceWeatherFilename string

	// Grid evaluation
	Workers int
}

// DefaultGFZURL is the GFZ Potsdam Kp/ap/Ap/SN/F10.7 file covering 1932 to date.
const DefaultGFZURL = "https://kp.gfz-potsdam.de/app/files/Kp_ap_Ap_SN_F107_since_1932.txt"

// DefaultConfig returns configuration with sensible defaults, taking
// string values from the environment.
func DefaultConfig() *Config {
	dataDir := getEnv("MSIS_DATA_DIR", "/var/lib/ki7mt-msis")
	return &Config{
		ClickHouseHost:       getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:       9000,
		ClickHouseDatabase:   getEnv("CLICKHOUSE_DATABASE", "msis"),
		ClickHouseUser:       getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword:   getEnv("CLICKHOUSE_PASSWORD", ""),
		DataDir:              dataDir,
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		APIPort:              8080,
		BearerToken:          getEnv("API_BEARER_TOKEN", ""),
		SpaceWeatherURL:      getEnv("SW_SOURCE_URL", DefaultGFZURL),
		RefreshSchedule:      getEnv("SW_REFRESH_SCHEDULE", "15 */3 * * *"),
		SpaceWeatherSQLite:   getEnv("SW_SQLITE_PATH", filepath.Join(dataDir, "spaceweather.db")),
		SpaceWeatherFilename: "Kp_ap_Ap_SN_F107_since_1932.txt",
		Workers:              runtime.NumCPU(),
	}
}

// Load reads an optional .env file, applies the environment over the
// defaults and validates numeric values.
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := DefaultConfig()

	var err error
	if cfg.ClickHousePort, err = getEnvInt("CLICKHOUSE_PORT", cfg.ClickHousePort); err != nil {
		return nil, err
	}
	if cfg.APIPort, err = getEnvInt("API_PORT", cfg.APIPort); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getEnvInt("MSIS_WORKERS", cfg.Workers); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ClickHouseAddr returns the native protocol host:port.
func (c *Config) ClickHouseAddr() string {
	return fmt.Sprintf("%s:%d", c.ClickHouseHost, c.ClickHousePort)
}

// ListenAddr returns the host:port string for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.APIPort)
}

// SpaceWeatherDataDir returns the space weather download directory path.
func (c *Config) SpaceWeatherDataDir() string {
	return filepath.Join(c.DataDir, "spaceweather")
}

// SpaceWeatherFile returns the local path of the downloaded index file.
func (c *Config) SpaceWeatherFile() string {
	return filepath.Join(c.SpaceWeatherDataDir(), c.SpaceWeatherFilename)
}

// GridDataDir returns the grid output directory path.
func (c *Config) GridDataDir() string {
	return filepath.Join(c.DataDir, "grid")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %s", key, value)
	}
	return n, nil
}
