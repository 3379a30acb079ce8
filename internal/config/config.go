package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	// Reasoning-service (note extraction) settings.
	ReasonerAPIKey        string `mapstructure:"REASONER_API_KEY"`
	ReasonerBaseURL       string `mapstructure:"REASONER_BASE_URL"`
	ReasonerModel         string `mapstructure:"REASONER_MODEL"`
	ReasonerTimeoutSecs   int    `mapstructure:"REASONER_TIMEOUT_SECS"`
	ReasonerMaxAttempts   int    `mapstructure:"REASONER_MAX_ATTEMPTS"`
	ReasonerMaxConcurrent int    `mapstructure:"REASONER_MAX_CONCURRENT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REASONER_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("REASONER_MODEL", "gpt-4o-mini")
	v.SetDefault("REASONER_TIMEOUT_SECS", 15)
	v.SetDefault("REASONER_MAX_ATTEMPTS", 3)
	v.SetDefault("REASONER_MAX_CONCURRENT", 8)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("REASONER_API_KEY")
	v.BindEnv("REASONER_BASE_URL")
	v.BindEnv("REASONER_MODEL")
	v.BindEnv("REASONER_TIMEOUT_SECS")
	v.BindEnv("REASONER_MAX_ATTEMPTS")
	v.BindEnv("REASONER_MAX_CONCURRENT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Requests without a token are granted clinician access.")
		log.Println("WARNING: Set ENV=production and JWT_SECRET for production.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ReasonerTimeout returns the per-call timeout for reasoning-service requests.
func (c *Config) ReasonerTimeout() time.Duration {
	if c.ReasonerTimeoutSecs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.ReasonerTimeoutSecs) * time.Second
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret is required so that real authentication is enforced, and note
// extraction needs an API key for the reasoning service.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.IsProduction() && c.ReasonerAPIKey == "" {
		return fmt.Errorf("REASONER_API_KEY is required in production")
	}
	if c.ReasonerMaxAttempts < 1 {
		return fmt.Errorf("REASONER_MAX_ATTEMPTS must be at least 1, got %d", c.ReasonerMaxAttempts)
	}
	if c.ReasonerMaxConcurrent < 1 {
		return fmt.Errorf("REASONER_MAX_CONCURRENT must be at least 1, got %d", c.ReasonerMaxConcurrent)
	}
	return nil
}
