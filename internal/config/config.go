package config

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config agrupa la configuración del servicio, leída de variables de entorno.
type Config struct {
	AppEnv       string        `envconfig:"APP_ENV" default:"development"`
	AppAddr      string        `envconfig:"APP_ADDR" default:":8080"`
	Port         string        `envconfig:"PORT"`
	ReadTimeout  time.Duration `envconfig:"APP_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"10s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	AppName   string `envconfig:"APP_NAME" default:"eeg-data-sharing"`

	// Vacío => repos in-memory (modo dev).
	DBDSN string `envconfig:"DB_DSN"`

	// Vacío => sin lock distribuido para el reaper.
	RedisAddr string `envconfig:"REDIS_ADDR"`

	JWTSecret string `envconfig:"JWT_SECRET"`
	JWTIssuer string `envconfig:"JWT_ISSUER"`

	OdinBaseURL string `envconfig:"ODIN_BASE_URL"`
	OdinAPIKey  string `envconfig:"ODIN_API_KEY"`

	// Spec de cron (robfig/cron). Vacío deshabilita el barrido periódico in-process.
	ReaperSchedule string        `envconfig:"REAPER_SCHEDULE" default:"@every 5m"`
	ReaperLockTTL  time.Duration `envconfig:"REAPER_LOCK_TTL" default:"2m"`

	// Altas de sharing por minuto y usuario. 0 desactiva el límite.
	CreateRateLimit int `envconfig:"CREATE_RATE_LIMIT" default:"30"`
}

// Load lee la configuración desde el entorno.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.IsProduction() && strings.TrimSpace(c.JWTSecret) == "" && strings.TrimSpace(c.OdinBaseURL) == "" {
		// sin verifier el middleware confía en X-Debug-User-ID
		return errors.New("config: production requires JWT_SECRET or ODIN_BASE_URL")
	}
	if c.CreateRateLimit < 0 {
		return errors.New("config: CREATE_RATE_LIMIT must be >= 0")
	}
	return nil
}

// Addr respeta PORT (compatibilidad con plataformas tipo heroku) sobre APP_ADDR.
func (c *Config) Addr() string {
	if v := strings.TrimSpace(c.Port); v != "" {
		return ":" + v
	}
	return c.AppAddr
}

func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
