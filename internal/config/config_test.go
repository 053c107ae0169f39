package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BaseHost != "localhost" {
		t.Fatalf("unexpected BaseHost: %q", cfg.BaseHost)
	}
	if cfg.DataDir != "./data" {
		t.Fatalf("unexpected DataDir: %q", cfg.DataDir)
	}
	if cfg.SettingsCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected SettingsCacheTTL: %s", cfg.SettingsCacheTTL)
	}
	if cfg.UsePolling {
		t.Fatalf("expected UsePolling=false by default")
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected CORSAllowedOrigins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_ExtraHostsParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("BASE_HOST", "leagr.app")
	t.Setenv("EXTRA_HOSTS", "Play.Monday-Crew.com:Monday, five.example.org:thursday")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ExtraHosts["play.monday-crew.com"] != "monday" {
		t.Fatalf("unexpected ExtraHosts: %v", cfg.ExtraHosts)
	}
	if cfg.ExtraHosts["five.example.org"] != "thursday" {
		t.Fatalf("unexpected ExtraHosts: %v", cfg.ExtraHosts)
	}
}

func TestLoad_ExtraHostsRejectsMalformedItems(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("EXTRA_HOSTS", "no-league-id")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed EXTRA_HOSTS")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_PyroscopeRequiresServerWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_LogLevelParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("APP_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LogLevel.String() != "warn" {
		t.Fatalf("unexpected LogLevel: %s", cfg.LogLevel.String())
	}
}
