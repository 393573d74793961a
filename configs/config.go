package config

import (
	"os"
	"strconv"
	"strings"
)

// DefaultModelRMSE は全モデル共通で使われる固定の RMSE 値です。
const DefaultModelRMSE = 19.0

// Config holds the application configuration
type Config struct {
	Port            string
	Environment     string
	ModelsDir       string
	DatasetDir      string
	ModelRMSE       float64
	MaxHorizonDays  int
	WatchArtifacts  bool
	DashboardConfig string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ModelsDir:       getEnv("MODELS_DIR", "models"),
		DatasetDir:      getEnv("DATASET_DIR", "."),
		ModelRMSE:       getEnvFloat("MODEL_RMSE", DefaultModelRMSE),
		MaxHorizonDays:  getEnvInt("MAX_HORIZON_DAYS", 366),
		WatchArtifacts:  getEnvBool("WATCH_ARTIFACTS", false),
		DashboardConfig: getEnv("DASHBOARD_CONFIG", "configs/dashboard.yaml"),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat は数値として解釈できない場合にデフォルト値を返します。
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f >= 0 {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
