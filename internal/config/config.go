package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Storage backends accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	Host             string
	Port             string
	StoreBackend     string
	SQLitePath       string
	DatabaseURL      string
	JWTSecret        string
	TokenTTL         time.Duration
	SeedDemoData     bool
	AuthFallback     bool
	SimulatedLatency time.Duration
	MaxReward        decimal.Decimal
	CORSOrigins      []string
	WebhookURL       string
}

// Load reads the environment, after merging a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	c := &Config{
		Host:         os.Getenv("HOST"),
		Port:         os.Getenv("PORT"),
		StoreBackend: strings.ToLower(os.Getenv("STORE_BACKEND")),
		SQLitePath:   os.Getenv("SQLITE_PATH"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		WebhookURL:   os.Getenv("WEBHOOK_URL"),
	}

	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.StoreBackend == "" {
		c.StoreBackend = BackendSQLite
	}
	switch c.StoreBackend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("STORE_BACKEND: unknown backend %q", c.StoreBackend)
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "./paytask.db"
	}

	var err error
	if c.SeedDemoData, err = boolEnv("SEED_DEMO_DATA", true); err != nil {
		return nil, err
	}
	if c.AuthFallback, err = boolEnv("AUTH_FALLBACK", true); err != nil {
		return nil, err
	}
	if c.SimulatedLatency, err = durationEnv("SIMULATED_LATENCY", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if c.TokenTTL, err = durationEnv("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	c.MaxReward = decimal.Zero
	if v := os.Getenv("MAX_REWARD"); v != "" {
		if c.MaxReward, err = decimal.NewFromString(v); err != nil {
			return nil, fmt.Errorf("MAX_REWARD: %w", err)
		}
		if c.MaxReward.IsNegative() {
			return nil, fmt.Errorf("MAX_REWARD must not be negative")
		}
	}

	c.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = c.CORSOrigins[:0]
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}

	return c, nil
}

func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func boolEnv(name string, def bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}
