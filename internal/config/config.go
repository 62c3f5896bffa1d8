package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const dateLayout = time.DateOnly

var (
	// ErrMissingDatabase is returned when connection settings are incomplete.
	ErrMissingDatabase = errors.New("config: database host, user and name are required")
	// ErrInvalidWindow is returned when the date window cannot be parsed or is empty.
	ErrInvalidWindow = errors.New("config: invalid date window")
)

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	Name           string        `yaml:"name"`
	SSLMode        string        `yaml:"sslmode"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	MaxOpenConns   int           `yaml:"max_open_conns"`
}

// TablesConfig names the tables the job reads and writes.
type TablesConfig struct {
	Readings    string `yaml:"readings"`
	Aggregation string `yaml:"aggregation"`
	Classrooms  string `yaml:"classrooms"`
}

// WindowConfig is the [start, end) range of days to aggregate, as YYYY-MM-DD.
type WindowConfig struct {
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Timezone string `yaml:"timezone"`
}

// RunConfig controls the day loop.
type RunConfig struct {
	FailFast   bool          `yaml:"fail_fast"`
	DayTimeout time.Duration `yaml:"day_timeout"`
	Workers    int           `yaml:"workers"`
	DryRun     bool          `yaml:"dry_run"`
}

// MetricsConfig controls where run metrics are published.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
	Textfile       string `yaml:"textfile"`
}

// Config defines the aggregation job configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Tables   TablesConfig   `yaml:"tables"`
	Window   WindowConfig   `yaml:"window"`
	Run      RunConfig      `yaml:"run"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Report   string         `yaml:"report"`
	Debug    bool           `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Port:           5432,
			SSLMode:        "prefer",
			ConnectTimeout: 10 * time.Second,
			MaxOpenConns:   4,
		},
		Tables: TablesConfig{
			Readings:    "sensor_data.classroom_energy_consumption",
			Aggregation: "sensor_data.classroom_data_aggregation",
			Classrooms:  "ufpel_data.classrooms",
		},
		Window: WindowConfig{
			Start:    "2024-01-01",
			End:      "2024-04-30",
			Timezone: "UTC",
		},
		Run: RunConfig{
			DayTimeout: 5 * time.Minute,
			Workers:    1,
		},
		Metrics: MetricsConfig{
			Job: "classroom_aggregation",
		},
	}
}

// Load builds the configuration from defaults, an optional .env file,
// an optional YAML file and the environment, in that order.
// path falls back to CLASSROOM_AGG_CONFIG when empty.
func Load(path string) (Config, error) {
	cfg := Default()

	envFile := getenvDefault("CLASSROOM_AGG_DOTENV", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	if path == "" {
		path = os.Getenv("CLASSROOM_AGG_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Database.Host = getenvDefault("ECO_UFPEL_DATABASE_IP", cfg.Database.Host)
	cfg.Database.Port = getenvIntDefault("ECO_UFPEL_DATABASE_PORT", cfg.Database.Port)
	cfg.Database.User = getenvDefault("ECO_UFPEL_DATABASE_USER", cfg.Database.User)
	cfg.Database.Password = getenvDefault("ECO_UFPEL_DATABASE_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getenvDefault("ECO_UFPEL_DATABASE_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getenvDefault("ECO_UFPEL_DATABASE_SSLMODE", cfg.Database.SSLMode)

	cfg.Window.Start = getenvDefault("AGGREGATION_START", cfg.Window.Start)
	cfg.Window.End = getenvDefault("AGGREGATION_END", cfg.Window.End)
	cfg.Window.Timezone = getenvDefault("AGGREGATION_TIMEZONE", cfg.Window.Timezone)

	cfg.Run.Workers = getenvIntDefault("AGGREGATION_WORKERS", cfg.Run.Workers)
	cfg.Run.DayTimeout = getenvDuration("AGGREGATION_DAY_TIMEOUT", cfg.Run.DayTimeout)

	cfg.Metrics.PushgatewayURL = getenvDefault("PUSHGATEWAY_URL", cfg.Metrics.PushgatewayURL)
	cfg.Metrics.Textfile = getenvDefault("METRICS_TEXTFILE", cfg.Metrics.Textfile)
}

// Validate checks required settings and the date window.
func (c Config) Validate() error {
	if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
		return ErrMissingDatabase
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("config: invalid database port %d", c.Database.Port)
	}
	if c.Run.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1, got %d", c.Run.Workers)
	}
	if c.Run.DayTimeout < 0 {
		return fmt.Errorf("config: negative day timeout %s", c.Run.DayTimeout)
	}
	if _, _, _, err := c.Window.Bounds(); err != nil {
		return err
	}
	return nil
}

// Bounds parses the window into midnights of start and end in the configured zone.
func (w WindowConfig) Bounds() (time.Time, time.Time, *time.Location, error) {
	tz := w.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidWindow, tz, err)
	}
	start, err := time.ParseInLocation(dateLayout, strings.TrimSpace(w.Start), loc)
	if err != nil {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("%w: start %q: %v", ErrInvalidWindow, w.Start, err)
	}
	end, err := time.ParseInLocation(dateLayout, strings.TrimSpace(w.End), loc)
	if err != nil {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("%w: end %q: %v", ErrInvalidWindow, w.End, err)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidWindow, w.Start, w.End)
	}
	return start, end, loc, nil
}

// ConnConfig returns the pgx connection config for the database settings.
func (d DatabaseConfig) ConnConfig() (*pgx.ConnConfig, error) {
	query := url.Values{}
	if d.SSLMode != "" {
		query.Set("sslmode", d.SSLMode)
	}
	if d.ConnectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(d.ConnectTimeout.Seconds())))
	}
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: query.Encode(),
	}
	connConfig, err := pgx.ParseConfig(dsn.String())
	if err != nil {
		return nil, fmt.Errorf("config: database: %w", err)
	}
	return connConfig, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
