// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type UpstreamCfg struct {
	BaseURL          string
	RestrictionsPath string
	ParametersPath   string
	CostPath         string
	BasketPath       string
	Timeout          time.Duration
	Retries          uint64
}

type StorageCfg struct {
	Driver     string // redis | memory
	RedisAddr  string
	TTL        time.Duration
	OpTimeout  time.Duration
	MemorySize int
}

type EventsCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	Queue   int
}

// RefreshCfg drives the catalogue refresh consumer; it shares the
// event brokers.
type RefreshCfg struct {
	Enabled bool
	Topic   string
	GroupID string
}

type Config struct {
	Addr              string
	LogLevel          string
	Upstream          UpstreamCfg
	Storage           StorageCfg
	Events            EventsCfg
	Refresh           RefreshCfg
	SessionCapacity   int
	H3Res             int
	IndexMemoSize     int
	TooltipTTL        time.Duration
	RestoreRevalidate bool
}

func FromEnv() Config {
	res := getint("H3_RES", 6)
	if res < 0 || res > 15 {
		res = 6
	}

	driver := strings.ToLower(getenv("STORAGE_DRIVER", "memory"))
	if driver != "redis" {
		driver = "memory"
	}

	return Config{
		Addr:     getenv("ADDR", ":8090"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		Upstream: UpstreamCfg{
			BaseURL:          strings.TrimRight(getenv("UPSTREAM_URL", "http://localhost:8080"), "/"),
			RestrictionsPath: getenv("RESTRICTIONS_PATH", "/api/get_geo_json/"),
			ParametersPath:   getenv("PARAMETERS_PATH", "/api/service/parameters"),
			CostPath:         getenv("COST_PATH", "/api/service/cost_service"),
			BasketPath:       getenv("BASKET_PATH", "/api/basket/add_service"),
			Timeout:          getduration("UPSTREAM_TIMEOUT", 10*time.Second),
			Retries:          getuint64("UPSTREAM_RETRIES", 3),
		},
		Storage: StorageCfg{
			Driver:     driver,
			RedisAddr:  getenv("REDIS_ADDR", "localhost:6379"),
			TTL:        getduration("STORAGE_TTL", 30*24*time.Hour),
			OpTimeout:  getduration("STORAGE_OP_TIMEOUT", 250*time.Millisecond),
			MemorySize: getint("MEMORY_STORE_SIZE", 10000),
		},
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("KAFKA_TOPIC", "aoi-drawing-events"),
			Queue:   getint("EVENTS_QUEUE", 1024),
		},
		Refresh: RefreshCfg{
			Enabled: getbool("CATALOGUE_REFRESH_ENABLED", false),
			Topic:   getenv("CATALOGUE_REFRESH_TOPIC", "restriction-updates"),
			GroupID: getenv("CATALOGUE_REFRESH_GROUP", "aoi-drawing-catalogue"),
		},
		SessionCapacity:   getint("SESSION_CAPACITY", 1024),
		H3Res:             res,
		IndexMemoSize:     getint("INDEX_MEMO_SIZE", 4096),
		TooltipTTL:        getduration("TOOLTIP_TTL", 1200*time.Millisecond),
		RestoreRevalidate: getbool("RESTORE_REVALIDATE", false),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getuint64(k string, def uint64) uint64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
