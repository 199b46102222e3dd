package config

import (
	"reflect"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Addr != ":8090" {
		t.Fatalf("addr=%q", cfg.Addr)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("driver=%q want memory", cfg.Storage.Driver)
	}
	if cfg.TooltipTTL != 1200*time.Millisecond {
		t.Fatalf("tooltip ttl=%v", cfg.TooltipTTL)
	}
	if cfg.RestoreRevalidate {
		t.Fatalf("restore revalidation must default to off")
	}
	if cfg.Refresh.Enabled || cfg.Refresh.Topic != "restriction-updates" {
		t.Fatalf("refresh=%+v", cfg.Refresh)
	}
	if cfg.Upstream.RestrictionsPath != "/api/get_geo_json/" {
		t.Fatalf("restrictions path=%q", cfg.Upstream.RestrictionsPath)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "REDIS")
	t.Setenv("H3_RES", "99")
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	t.Setenv("RESTORE_REVALIDATE", "yes")
	t.Setenv("UPSTREAM_URL", "http://shop.local/")
	t.Setenv("UPSTREAM_RETRIES", "not-a-number")
	t.Setenv("CATALOGUE_REFRESH_ENABLED", "true")
	t.Setenv("CATALOGUE_REFRESH_GROUP", "drawd-blue")

	cfg := FromEnv()
	if cfg.Storage.Driver != "redis" {
		t.Fatalf("driver=%q want redis", cfg.Storage.Driver)
	}
	if cfg.H3Res != 6 {
		t.Fatalf("out of range H3_RES must fall back, got %d", cfg.H3Res)
	}
	if !reflect.DeepEqual(cfg.Events.Brokers, []string{"a:9092", "b:9092"}) {
		t.Fatalf("brokers=%v", cfg.Events.Brokers)
	}
	if !cfg.Refresh.Enabled || cfg.Refresh.GroupID != "drawd-blue" {
		t.Fatalf("refresh=%+v", cfg.Refresh)
	}
	if !cfg.RestoreRevalidate {
		t.Fatalf("expected revalidation on")
	}
	if cfg.Upstream.BaseURL != "http://shop.local" {
		t.Fatalf("base url=%q", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.Retries != 3 {
		t.Fatalf("invalid retries must fall back, got %d", cfg.Upstream.Retries)
	}
}
