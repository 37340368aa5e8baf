package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/vendorops/attendance/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// ReconcileConfig holds the reconciliation run configuration: window size,
// per-category budget, worker fan-out, and the rule thresholds.
type ReconcileConfig struct {
	WindowDays     int `mapstructure:"window_days"`
	CategoryBudget int `mapstructure:"category_budget"`
	Workers        int `mapstructure:"workers"`

	// Weekend weekdays as time.Weekday values (0=Sunday .. 6=Saturday).
	WeekendDays []int `mapstructure:"weekend_days"`

	Rules RulesConfig `mapstructure:"rules"`
}

// RulesConfig holds the engine rule thresholds. Clock values use "HH:MM".
type RulesConfig struct {
	LateArrivalAfter     string  `mapstructure:"late_arrival_after"`
	EarlyDepartureBefore string  `mapstructure:"early_departure_before"`
	AMWindowStart        string  `mapstructure:"am_window_start"`
	AMWindowEnd          string  `mapstructure:"am_window_end"`
	PMWindowStart        string  `mapstructure:"pm_window_start"`
	PMWindowEnd          string  `mapstructure:"pm_window_end"`
	StandardHours        float64 `mapstructure:"standard_hours"`
	OvertimeTolerance    float64 `mapstructure:"overtime_tolerance_hours"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/attendance.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")

	// Reconciliation defaults
	viper.SetDefault("reconcile.window_days", 60)
	viper.SetDefault("reconcile.category_budget", 2)
	viper.SetDefault("reconcile.workers", 4)
	viper.SetDefault("reconcile.weekend_days", []int{0, 6})
	viper.SetDefault("reconcile.rules.late_arrival_after", "11:00")
	viper.SetDefault("reconcile.rules.early_departure_before", "15:00")
	viper.SetDefault("reconcile.rules.am_window_start", "09:00")
	viper.SetDefault("reconcile.rules.am_window_end", "13:00")
	viper.SetDefault("reconcile.rules.pm_window_start", "14:00")
	viper.SetDefault("reconcile.rules.pm_window_end", "18:00")
	viper.SetDefault("reconcile.rules.standard_hours", 8.0)
	viper.SetDefault("reconcile.rules.overtime_tolerance_hours", 0.5)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("database.path", "ATTENDANCE_DB_PATH")
	viper.BindEnv("server.port", "ATTENDANCE_PORT")
	viper.BindEnv("logger.level", "ATTENDANCE_LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Reconcile.WindowDays <= 0 {
		return fmt.Errorf("reconcile.window_days must be positive")
	}
	if c.Reconcile.CategoryBudget <= 0 {
		return fmt.Errorf("reconcile.category_budget must be positive")
	}
	if c.Reconcile.Workers <= 0 {
		return fmt.Errorf("reconcile.workers must be positive")
	}
	for _, d := range c.Reconcile.WeekendDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("reconcile.weekend_days entries must be 0..6, got %d", d)
		}
	}
	if c.Reconcile.Rules.StandardHours <= 0 {
		return fmt.Errorf("reconcile.rules.standard_hours must be positive")
	}
	if c.Reconcile.Rules.OvertimeTolerance < 0 {
		return fmt.Errorf("reconcile.rules.overtime_tolerance_hours must not be negative")
	}

	clocks := map[string]string{
		"reconcile.rules.late_arrival_after":     c.Reconcile.Rules.LateArrivalAfter,
		"reconcile.rules.early_departure_before": c.Reconcile.Rules.EarlyDepartureBefore,
		"reconcile.rules.am_window_start":        c.Reconcile.Rules.AMWindowStart,
		"reconcile.rules.am_window_end":          c.Reconcile.Rules.AMWindowEnd,
		"reconcile.rules.pm_window_start":        c.Reconcile.Rules.PMWindowStart,
		"reconcile.rules.pm_window_end":          c.Reconcile.Rules.PMWindowEnd,
	}
	for key, value := range clocks {
		if _, err := utils.ParseClock(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	return nil
}
