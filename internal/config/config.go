package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Storage       *StorageConfig       `koanf:"storage"`
	Upload        UploadConfig         `koanf:"upload"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// IsProduction reports whether the service runs with production hardening
// (dev-only endpoints disabled).
func (p Primary) IsProduction() bool {
	return strings.EqualFold(p.Env, "production")
}

type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

type DatabaseConfig struct {
	Host     string `koanf:"host" validate:"required"`
	Port     int    `koanf:"port" validate:"required"`
	User     string `koanf:"user" validate:"required"`
	Password string `koanf:"password"`
	Name     string `koanf:"name" validate:"required"`
	SSLMode  string `koanf:"ssl_mode" validate:"required"`
	MaxConns int    `koanf:"max_conns"`
}

// URL builds the pgx connection string.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// AuthConfig covers the subscription-provider JWT bridge and the session
// cookie issued from it.
type AuthConfig struct {
	JWKSURL         string `koanf:"jwks_url" validate:"required"`
	CookieName      string `koanf:"cookie_name"`
	CookieDomain    string `koanf:"cookie_domain"`
	CookieMaxAgeSec int    `koanf:"cookie_max_age_sec"`
	RedirectPath    string `koanf:"redirect_path"`
	ShareBaseURL    string `koanf:"share_base_url"`
}

// StorageConfig is the S3-compatible archive for raw uploads. Optional: when
// nil the service ingests without archiving.
type StorageConfig struct {
	S3 *S3Config `koanf:"s3"`
}

type S3Config struct {
	Endpoint  string `koanf:"endpoint"`
	Region    string `koanf:"region"`
	Bucket    string `koanf:"bucket"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
}

type UploadConfig struct {
	MaxBytes int64 `koanf:"max_bytes"`
}

type ObservabilityConfig struct {
	ServiceName string `koanf:"service_name"`
	Environment string `koanf:"environment"`
	LicenseKey  string `koanf:"license_key"`
	Enabled     bool   `koanf:"enabled"`
}

const defaultMaxUploadBytes = 20 << 20 // 20 MiB

// LoadConfig loads the configuration from environment variables using koanf.
// Nested sections use a double underscore, e.g. CLETT_DATABASE__HOST.
func LoadConfig() (mainConfig *Config, err error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	k := koanf.New(".")
	err = k.Load(env.Provider("CLETT_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "CLETT_")), "__", ".")
	}), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load initial env variables")
	}

	mainConfig = &Config{}
	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not unmarshal mainconfig")
	}

	validate := validator.New()
	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not validate the struct")
	}

	applyDefaults(mainConfig)
	return
}

func applyDefaults(c *Config) {
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "clett_session"
	}
	if c.Auth.CookieMaxAgeSec <= 0 {
		c.Auth.CookieMaxAgeSec = 3600
	}
	if c.Auth.RedirectPath == "" {
		c.Auth.RedirectPath = "/chat"
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = defaultMaxUploadBytes
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Observability == nil {
		c.Observability = &ObservabilityConfig{}
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = "clett"
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Primary.Env
	}
	if c.Observability.LicenseKey == "" {
		c.Observability.Enabled = false
	}
}
