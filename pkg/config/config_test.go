package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}

	if cfg.Backend.BaseURL != "https://api.buildmart.test" {
		t.Fatalf("unexpected backend base URL: %q", cfg.Backend.BaseURL)
	}

	if cfg.Delivery.RadiusKm != 25 {
		t.Fatalf("expected default delivery radius 25, got %v", cfg.Delivery.RadiusKm)
	}

	if cfg.Poller.Interval != 5*time.Second {
		t.Fatalf("expected default poll interval 5s, got %v", cfg.Poller.Interval)
	}

	if !cfg.Storage.IsSQLite() {
		t.Fatalf("expected sqlite storage driver by default, got %q", cfg.Storage.Driver)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_UnknownStorageDriver(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStorageDriver, "etcd")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown storage driver to return an error")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvBackendBaseURL, "https://api.buildmart.test")
	t.Setenv(EnvBackendClientID, "client-123")
	t.Setenv(EnvBackendSecret, "secret-456")
	t.Setenv(EnvDeliveryOriginLat, "12.9716")
	t.Setenv(EnvDeliveryOriginLng, "77.5946")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "Production"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}
