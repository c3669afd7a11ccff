package config

import (
	"testing"
	"time"
)

func TestLoadAppConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadAppConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadAppConfigFromEnv: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port=%q", cfg.Port)
	}
	if cfg.AmadeusHost != "test" {
		t.Fatalf("AmadeusHost=%q", cfg.AmadeusHost)
	}
	if cfg.KayakBaseURL != "https://api.kayak.com" {
		t.Fatalf("KayakBaseURL=%q", cfg.KayakBaseURL)
	}
	if cfg.ProviderTimeout != 10*time.Second {
		t.Fatalf("ProviderTimeout=%v", cfg.ProviderTimeout)
	}
}

func TestLoadAppConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("AMADEUS_CLIENT_ID", "id-1")
	t.Setenv("PROVIDER_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadAppConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadAppConfigFromEnv: %v", err)
	}
	if cfg.Port != "9999" || cfg.AmadeusClientID != "id-1" || cfg.ProviderTimeout != 3*time.Second {
		t.Fatalf("cfg=%+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("CORSOrigins=%v", cfg.CORSOrigins)
	}
}
