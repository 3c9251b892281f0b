// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Ahjo          AhjoConfig         `mapstructure:"ahjo"`
	Talpa         TalpaConfig        `mapstructure:"talpa"`
	Scheduler     SchedulerConfig    `mapstructure:"scheduler"`
	Callback      CallbackConfig     `mapstructure:"callback"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AhjoConfig holds settings for the case management system API and its
// OAuth token endpoint.
type AhjoConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TokenURL       string `mapstructure:"token_url"`
	ClientID       string `mapstructure:"client_id"`
	ClientSecret   string `mapstructure:"client_secret"`
	RefreshToken   string `mapstructure:"refresh_token"`
	CallbackURL    string `mapstructure:"callback_url"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// TalpaConfig holds settings for the payment system callback endpoint.
type TalpaConfig struct {
	CallbackUser     string `mapstructure:"callback_user"`
	CallbackPassword string `mapstructure:"callback_password"`
}

// SchedulerConfig holds the fixed job cadences.
type SchedulerConfig struct {
	DispatchInterval     int `mapstructure:"dispatch_interval"`      // minutes
	TokenRefreshInterval int `mapstructure:"token_refresh_interval"` // minutes
	DailyInterval        int `mapstructure:"daily_interval"`         // minutes
	WorkerPoolSize       int `mapstructure:"worker_pool_size"`
	RetentionDays        int `mapstructure:"retention_days"`
}

// CallbackConfig holds settings for the inbound callback HTTP server.
type CallbackConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	MetricsPath   string `mapstructure:"metrics_path"`
}

// NotificationConfig holds settings for handler notification emails.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ToEmail   string `mapstructure:"to_email"`
	} `mapstructure:"email"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
