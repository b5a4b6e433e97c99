// Package config loads the service configuration from the process environment.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"

	"github.com/vtseva/career-compass/internal/logging"
)

// DefaultDatabaseURL is the SQLite database used when no DSN is configured.
const DefaultDatabaseURL = "file:compass.db"

// Engine names the storage backend selected by the database URL.
type Engine string

const (
	EngineSQLite   Engine = "sqlite"
	EnginePostgres Engine = "postgres"
)

// Config captures environment driven configuration values for the service.
type Config struct {
	HTTPPort int `env:"PORT" envDefault:"5000"`

	DatabaseURL         string `env:"DATABASE_URL"`
	NeonConnStr         string `env:"NEON_CONN_STR"`
	DatabaseInsecureTLS bool   `env:"COMPASS_DB_INSECURE_TLS" envDefault:"true"`

	TimeZone       string        `env:"COMPASS_TIMEZONE" envDefault:"America/New_York"`
	JoinLeadWindow time.Duration `env:"COMPASS_JOIN_LEAD_WINDOW" envDefault:"15m"`
	PastGrace      time.Duration `env:"COMPASS_PAST_GRACE" envDefault:"0s"`

	LogLevel     string `env:"COMPASS_LOG_LEVEL" envDefault:"info"`
	OTelEndpoint string `env:"COMPASS_OTEL_ENDPOINT"`

	WhatsAppEnabled   bool   `env:"COMPASS_WHATSAPP_ENABLED" envDefault:"false"`
	WhatsAppDataDir   string `env:"COMPASS_WHATSAPP_DATA_DIR" envDefault:"data"`
	WhatsAppOrganizer string `env:"COMPASS_WHATSAPP_ORGANIZER"`

	// Location is TimeZone resolved by Load.
	Location *time.Location `env:"-"`
}

// Load parses configuration values from the current process environment.
//
// Defaults apply to optional fields. Missing and invalid values are collected
// and reported together.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid environment values: %w", err)
	}

	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = strings.TrimSpace(cfg.NeonConnStr)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = DefaultDatabaseURL
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, "PORT")
	}

	loc, err := time.LoadLocation(strings.TrimSpace(cfg.TimeZone))
	if err != nil || strings.TrimSpace(cfg.TimeZone) == "" {
		invalid = append(invalid, "COMPASS_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if cfg.JoinLeadWindow < 0 {
		invalid = append(invalid, "COMPASS_JOIN_LEAD_WINDOW")
	}
	if cfg.PastGrace < 0 {
		invalid = append(invalid, "COMPASS_PAST_GRACE")
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		invalid = append(invalid, "COMPASS_LOG_LEVEL")
	}

	if cfg.WhatsAppEnabled {
		cfg.WhatsAppOrganizer = strings.TrimSpace(cfg.WhatsAppOrganizer)
		if cfg.WhatsAppOrganizer == "" {
			missing = append(missing, "COMPASS_WHATSAPP_ORGANIZER")
		}
		if strings.TrimSpace(cfg.WhatsAppDataDir) == "" {
			invalid = append(invalid, "COMPASS_WHATSAPP_DATA_DIR")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Engine reports which storage backend DatabaseURL selects.
func (c Config) Engine() Engine {
	lower := strings.ToLower(c.DatabaseURL)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return EnginePostgres
	}
	return EngineSQLite
}
