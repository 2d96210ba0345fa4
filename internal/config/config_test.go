package config

import (
	"strings"
	"testing"
	"time"
)

var allVars = []string{
	"HOST", "PORT", "STORE_BACKEND", "SQLITE_PATH", "DATABASE_URL", "JWT_SECRET",
	"SEED_DEMO_DATA", "AUTH_FALLBACK", "SIMULATED_LATENCY", "TOKEN_TTL",
	"MAX_REWARD", "CORS_ORIGINS", "WEBHOOK_URL",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range allVars {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr: got %q", c.Addr())
	}
	if c.StoreBackend != BackendSQLite || c.SQLitePath != "./paytask.db" {
		t.Errorf("store: got %q %q", c.StoreBackend, c.SQLitePath)
	}
	if !c.SeedDemoData || !c.AuthFallback {
		t.Error("seed and fallback should default to true")
	}
	if c.SimulatedLatency != 500*time.Millisecond || c.TokenTTL != 24*time.Hour {
		t.Errorf("durations: %v %v", c.SimulatedLatency, c.TokenTTL)
	}
	if !c.MaxReward.IsZero() {
		t.Errorf("MaxReward: got %s", c.MaxReward)
	}
	if len(c.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins: got %v", c.CORSOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("SEED_DEMO_DATA", "false")
	t.Setenv("SIMULATED_LATENCY", "0s")
	t.Setenv("MAX_REWARD", "250.50")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("WEBHOOK_URL", "http://hooks.local/events")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Port != "9090" || c.StoreBackend != BackendMemory || c.SeedDemoData {
		t.Errorf("got %+v", c)
	}
	if c.SimulatedLatency != 0 {
		t.Errorf("latency: got %v", c.SimulatedLatency)
	}
	if c.MaxReward.String() != "250.5" {
		t.Errorf("MaxReward: got %s", c.MaxReward)
	}
	if strings.Join(c.CORSOrigins, " ") != "https://a.example https://b.example" {
		t.Errorf("CORSOrigins: got %v", c.CORSOrigins)
	}
	if c.WebhookURL != "http://hooks.local/events" {
		t.Errorf("WebhookURL: got %q", c.WebhookURL)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "redis"}, "unknown backend"},
		{"postgres without url", map[string]string{"STORE_BACKEND": "postgres"}, "DATABASE_URL"},
		{"bad bool", map[string]string{"SEED_DEMO_DATA": "maybe"}, "SEED_DEMO_DATA"},
		{"bad duration", map[string]string{"SIMULATED_LATENCY": "soon"}, "SIMULATED_LATENCY"},
		{"negative duration", map[string]string{"SIMULATED_LATENCY": "-1s"}, "negative"},
		{"bad reward", map[string]string{"MAX_REWARD": "lots"}, "MAX_REWARD"},
		{"negative reward", map[string]string{"MAX_REWARD": "-5"}, "negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("got %v, want error containing %q", err, tc.want)
			}
		})
	}
}
