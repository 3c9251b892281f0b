// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	stderrors "github.com/City-of-Helsinki/yjdh-sub002/internal/common/errors"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like AHJO_CLIENT_SECRET
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored when absent.
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Ahjo.ClientID == "" {
		if val := os.Getenv("AHJO_CLIENT_ID"); val != "" {
			cfg.Ahjo.ClientID = val
		}
	}
	if cfg.Ahjo.ClientSecret == "" {
		if val := os.Getenv("AHJO_CLIENT_SECRET"); val != "" {
			cfg.Ahjo.ClientSecret = val
		}
	}
	if cfg.Ahjo.RefreshToken == "" {
		if val := os.Getenv("AHJO_REFRESH_TOKEN"); val != "" {
			cfg.Ahjo.RefreshToken = val
		}
	}

	if cfg.Talpa.CallbackUser == "" {
		if val := os.Getenv("TALPA_CALLBACK_USER"); val != "" {
			cfg.Talpa.CallbackUser = val
		}
	}
	if cfg.Talpa.CallbackPassword == "" {
		if val := os.Getenv("TALPA_CALLBACK_PASSWORD"); val != "" {
			cfg.Talpa.CallbackPassword = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Ahjo.RequestTimeout == 0 {
		cfg.Ahjo.RequestTimeout = 60000
	}

	if cfg.Scheduler.DispatchInterval == 0 {
		cfg.Scheduler.DispatchInterval = 15
	}
	if cfg.Scheduler.TokenRefreshInterval == 0 {
		cfg.Scheduler.TokenRefreshInterval = 60
	}
	if cfg.Scheduler.DailyInterval == 0 {
		cfg.Scheduler.DailyInterval = 24 * 60
	}
	if cfg.Scheduler.WorkerPoolSize == 0 {
		cfg.Scheduler.WorkerPoolSize = 4
	}
	if cfg.Scheduler.RetentionDays == 0 {
		cfg.Scheduler.RetentionDays = 365
	}

	if cfg.Callback.ListenAddress == "" {
		cfg.Callback.ListenAddress = ":8080"
	}
	if cfg.Callback.MetricsPath == "" {
		cfg.Callback.MetricsPath = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields. Missing case or
// payment system credentials are fatal for the whole run.
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return stderrors.NewConfigurationError("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return stderrors.NewConfigurationError("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return stderrors.NewConfigurationError("database.postgres.user is required")
	}

	if cfg.Database.Redis.Address == "" {
		return stderrors.NewConfigurationError("database.redis.address is required")
	}

	if cfg.Ahjo.BaseURL == "" {
		return stderrors.NewConfigurationError("ahjo.base_url is required")
	}
	if cfg.Ahjo.TokenURL == "" {
		return stderrors.NewConfigurationError("ahjo.token_url is required")
	}
	if cfg.Ahjo.ClientID == "" || cfg.Ahjo.ClientSecret == "" {
		return stderrors.NewConfigurationError("ahjo.client_id and ahjo.client_secret are required")
	}
	if cfg.Ahjo.CallbackURL == "" {
		return stderrors.NewConfigurationError("ahjo.callback_url is required")
	}

	if cfg.Talpa.CallbackUser == "" || cfg.Talpa.CallbackPassword == "" {
		return stderrors.NewConfigurationError("talpa.callback_user and talpa.callback_password are required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetMinutes converts minutes from config to time.Duration
func GetMinutes(minutes int) time.Duration {
	return time.Duration(minutes) * time.Minute
}
