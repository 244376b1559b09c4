package config_test

import (
	"testing"
	"time"

	"github.com/scopewise/scopewise/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SCOPEWISE_API_URL", "")
	t.Setenv("SCOPEWISE_TIMEOUT", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Client.BaseURL != "http://127.0.0.1:8080" {
		t.Fatalf("unexpected base url: %s", cfg.Client.BaseURL)
	}
	if cfg.Client.Timeout != 30*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.Client.Timeout)
	}
}

func TestLoadPortVariants(t *testing.T) {
	t.Setenv("PORT", "9000")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}

	t.Setenv("PORT", "127.0.0.1:9001")
	cfg, err = config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9001" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("SCOPEWISE_TIMEOUT", "zero")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for non-numeric timeout")
	}

	t.Setenv("SCOPEWISE_TIMEOUT", "0")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for non-positive timeout")
	}
}

func TestLoadCustomTimeoutAndURL(t *testing.T) {
	t.Setenv("SCOPEWISE_TIMEOUT", "5")
	t.Setenv("SCOPEWISE_API_URL", "https://api.example.com")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Client.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.Client.Timeout)
	}
	if cfg.Client.BaseURL != "https://api.example.com" {
		t.Fatalf("unexpected base url: %s", cfg.Client.BaseURL)
	}
}
