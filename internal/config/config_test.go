package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EAGLEEYE_DEFAULT_STATE", "")
	t.Setenv("EAGLEEYE_ROLLUP_ASYNC", "")
	t.Setenv("EXPORT_URL_TTL_SECONDS", "")

	cfg := Load()
	if cfg.DefaultState != "GA" {
		t.Fatalf("DefaultState = %q, want GA", cfg.DefaultState)
	}
	if cfg.RollupAsync {
		t.Fatal("RollupAsync should default to false")
	}
	if cfg.ExportURLTTL != time.Hour {
		t.Fatalf("ExportURLTTL = %v, want 1h", cfg.ExportURLTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EAGLEEYE_DEFAULT_STATE", "FL")
	t.Setenv("EAGLEEYE_ROLLUP_ASYNC", "true")
	t.Setenv("EAGLEEYE_ACCESS_TTL_SECONDS", "60")
	t.Setenv("EAGLEEYE_NOTIFY_TO", "sales@example.com, , owner@example.com")

	cfg := Load()
	if cfg.DefaultState != "FL" {
		t.Fatalf("DefaultState = %q, want FL", cfg.DefaultState)
	}
	if !cfg.RollupAsync {
		t.Fatal("expected RollupAsync=true")
	}
	if cfg.AccessTTL != time.Minute {
		t.Fatalf("AccessTTL = %v, want 1m", cfg.AccessTTL)
	}
	if len(cfg.NotifyTo) != 2 || cfg.NotifyTo[1] != "owner@example.com" {
		t.Fatalf("unexpected NotifyTo: %#v", cfg.NotifyTo)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("EAGLEEYE_ACCESS_TTL_SECONDS", "soon")
	t.Setenv("OBJECT_STORE_USE_SSL", "maybe")

	cfg := Load()
	if cfg.AccessTTL != 12*time.Hour {
		t.Fatalf("AccessTTL = %v, want 12h", cfg.AccessTTL)
	}
	if cfg.ObjectStoreUseSSL {
		t.Fatal("expected invalid bool to fall back to false")
	}
}
