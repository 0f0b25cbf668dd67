package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/davidkell/replay-audit/internal/utils"
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	Capture     CaptureConfig     `mapstructure:"capture"`
	Journal     JournalConfig     `mapstructure:"journal"`
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Output      OutputConfig      `mapstructure:"output"`
	Database    DatabaseConfig    `mapstructure:"database"`
}

type CaptureConfig struct {
	Directory          string `mapstructure:"directory"`
	FilePrefix         string `mapstructure:"file_prefix"`
	FileExtension      string `mapstructure:"file_extension"`
	BarIntervalMinutes int    `mapstructure:"bar_interval_minutes"`
	Workers            int    `mapstructure:"workers"`
}

type JournalConfig struct {
	Path string `mapstructure:"path"`
}

type CorrelationConfig struct {
	ToleranceSeconds int  `mapstructure:"tolerance_seconds"`
	RetentionCap     int  `mapstructure:"retention_cap"`
	Exclusive        bool `mapstructure:"exclusive"`
}

type OutputConfig struct {
	Directory   string `mapstructure:"directory"`
	SummaryFile string `mapstructure:"summary_file"`
	DetailFile  string `mapstructure:"detail_file"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// BarInterval returns the configured bar interval as a duration.
func (c *CaptureConfig) BarInterval() time.Duration {
	return time.Duration(c.BarIntervalMinutes) * time.Minute
}

// Tolerance returns the correlation tolerance window as a duration.
func (c *CorrelationConfig) Tolerance() time.Duration {
	return time.Duration(c.ToleranceSeconds) * time.Second
}

// DSN builds the Postgres connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from config.yaml, environment variables and
// defaults, then validates it. Validation failures are fatal configuration
// errors: the run must abort before any processing.
func Load() (*Config, error) {
	// Optional .env for local development
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvPrefix("REPLAY_AUDIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate enforces the configuration invariants once, at load time.
func (c *Config) Validate() error {
	if c.Capture.Directory == "" {
		return utils.NewConfigErrorf("capture.directory is required")
	}
	if c.Capture.BarIntervalMinutes <= 0 {
		return utils.NewConfigErrorf("capture.bar_interval_minutes must be positive, got %d", c.Capture.BarIntervalMinutes)
	}
	if c.Capture.Workers <= 0 {
		return utils.NewConfigErrorf("capture.workers must be positive, got %d", c.Capture.Workers)
	}
	if c.Correlation.ToleranceSeconds <= 0 {
		return utils.NewConfigErrorf("correlation.tolerance_seconds must be positive, got %d", c.Correlation.ToleranceSeconds)
	}
	if c.Correlation.RetentionCap <= 0 {
		return utils.NewConfigErrorf("correlation.retention_cap must be positive, got %d", c.Correlation.RetentionCap)
	}
	if c.Database.Enabled && c.Database.Host == "" {
		return utils.NewConfigErrorf("database.host is required when database.enabled is true")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Capture loading
	viper.SetDefault("capture.directory", "replay_data")
	viper.SetDefault("capture.file_prefix", "replay")
	viper.SetDefault("capture.file_extension", ".csv")
	viper.SetDefault("capture.bar_interval_minutes", 3)
	viper.SetDefault("capture.workers", 4)

	// Trade journal
	viper.SetDefault("journal.path", "trade_journal.jsonl")

	// Correlation
	viper.SetDefault("correlation.tolerance_seconds", 300)
	viper.SetDefault("correlation.retention_cap", 200)
	viper.SetDefault("correlation.exclusive", false)

	// Output artifacts
	viper.SetDefault("output.directory", ".")
	viper.SetDefault("output.summary_file", "replay_analysis_report.json")
	viper.SetDefault("output.detail_file", "replay_analysis.csv")

	// Optional report store
	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "replay_audit")
	viper.SetDefault("database.sslmode", "disable")
}
