package asker

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(map[string]string{"TALK2DATA_DEMO_SEED": "7"}))
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8080" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.Interval != 5*time.Second || cfg.HTTPTimeout != 60*time.Second {
		t.Fatalf("timing = %s/%s", cfg.Interval, cfg.HTTPTimeout)
	}
	if cfg.WriteRatio != 0 || cfg.MaxAsks != 0 || cfg.Seed != 7 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(map[string]string{
		"TALK2DATA_DEMO_API_URL":      "http://api:8080/",
		"TALK2DATA_DEMO_API_KEY":      "k1",
		"TALK2DATA_DEMO_DATABASE":     "employee.db",
		"TALK2DATA_DEMO_INTERVAL":     "250ms",
		"TALK2DATA_DEMO_HTTP_TIMEOUT": "3s",
		"TALK2DATA_DEMO_WRITE_RATIO":  "0.25",
		"TALK2DATA_DEMO_MAX_ASKS":     "10",
	}))
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if cfg.APIBaseURL != "http://api:8080" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.APIKey != "k1" || cfg.Database != "employee.db" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Interval != 250*time.Millisecond || cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("timing = %s/%s", cfg.Interval, cfg.HTTPTimeout)
	}
	if cfg.WriteRatio != 0.25 || cfg.MaxAsks != 10 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigFromEnvRejectsInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"TALK2DATA_DEMO_API_URL": " "},
		{"TALK2DATA_DEMO_INTERVAL": "0s"},
		{"TALK2DATA_DEMO_INTERVAL": "soon"},
		{"TALK2DATA_DEMO_HTTP_TIMEOUT": "-1s"},
		{"TALK2DATA_DEMO_WRITE_RATIO": "1.5"},
		{"TALK2DATA_DEMO_WRITE_RATIO": "half"},
		{"TALK2DATA_DEMO_MAX_ASKS": "-2"},
		{"TALK2DATA_DEMO_SEED": "abc"},
	}
	for _, env := range tests {
		if _, err := LoadConfigFromEnv(mapLookup(env)); err == nil {
			t.Fatalf("expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
