package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/aoi-drawing/internal/api"
	"github.com/mohammed-shakir/aoi-drawing/internal/catalogue"
	"github.com/mohammed-shakir/aoi-drawing/internal/catalogue/refresh"
	"github.com/mohammed-shakir/aoi-drawing/internal/core/config"
	"github.com/mohammed-shakir/aoi-drawing/internal/core/httpclient"
	"github.com/mohammed-shakir/aoi-drawing/internal/core/observability"
	"github.com/mohammed-shakir/aoi-drawing/internal/core/server"
	"github.com/mohammed-shakir/aoi-drawing/internal/drawevents"
	"github.com/mohammed-shakir/aoi-drawing/internal/logger"
	"github.com/mohammed-shakir/aoi-drawing/internal/metrics"
	"github.com/mohammed-shakir/aoi-drawing/internal/params"
	"github.com/mohammed-shakir/aoi-drawing/internal/persist"
	"github.com/mohammed-shakir/aoi-drawing/internal/persist/memstore"
	"github.com/mohammed-shakir/aoi-drawing/internal/persist/redisstore"
	"github.com/mohammed-shakir/aoi-drawing/internal/quote"
	"github.com/mohammed-shakir/aoi-drawing/internal/session"
	"github.com/mohammed-shakir/aoi-drawing/internal/upstream"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		SampleN:   envInt("LOG_SAMPLE_N", 0),
		Service:   "aoi-drawing",
		Component: "drawd",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting drawd",
		"addr", cfg.Addr,
		"version", Version,
		"upstream", cfg.Upstream.BaseURL,
		"storage", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		appLog.Error("storage setup failed", "driver", cfg.Storage.Driver, "err", err)
		return 1
	}
	defer closeKV()
	store := persist.New(kv, "",
		persist.WithTTL(cfg.Storage.TTL),
		persist.WithOpTimeout(cfg.Storage.OpTimeout),
		persist.WithLogger(appLog))

	hc := httpclient.NewOutbound(cfg.Upstream.Timeout)
	client := func(name string) *upstream.Client {
		uc := upstream.DefaultConfig(name)
		uc.Timeout = cfg.Upstream.Timeout
		uc.MaxRetries = cfg.Upstream.Retries
		return upstream.New(hc, uc)
	}
	base := cfg.Upstream.BaseURL

	cat := catalogue.New(
		catalogue.NewHTTPSource(client("restrictions"), base+cfg.Upstream.RestrictionsPath),
		catalogue.WithLogger(appLog),
		catalogue.WithIndex(cfg.H3Res, cfg.IndexMemoSize))
	// a failed load is retried on the next request
	if _, err := cat.Load(ctx); err != nil {
		appLog.Warn("restriction catalogue not loaded at startup", "err", err)
	}

	if cfg.Refresh.Enabled {
		rc := refresh.New(refresh.Config{
			Brokers:             cfg.Events.Brokers,
			Topic:               cfg.Refresh.Topic,
			GroupID:             cfg.Refresh.GroupID,
			InitialOffsetOldest: false,
		}, appLog, cat)
		go func() {
			if err := rc.Start(ctx); err != nil {
				appLog.Warn("catalogue refresh consumer stopped", "err", err)
			}
		}()
	}

	var notifier session.Notifier
	if cfg.Events.Enabled {
		prod, err := drawevents.NewProducer(cfg.Events.Brokers)
		if err != nil {
			appLog.Warn("drawing events disabled", "brokers", cfg.Events.Brokers, "err", err)
		} else {
			pub := drawevents.NewPublisher(prod, cfg.Events.Topic, cfg.Events.Queue, appLog)
			defer func() {
				if err := pub.Close(); err != nil {
					appLog.Warn("drawing event publisher close", "err", err)
				}
			}()
			notifier = pub
		}
	}

	h, err := api.New(api.Deps{
		Catalogue:         cat,
		Params:            params.NewHTTPSource(client("parameters"), base+cfg.Upstream.ParametersPath),
		Quote:             quote.New(client("quote"), base+cfg.Upstream.CostPath, base+cfg.Upstream.BasketPath),
		Store:             store,
		Notifier:          notifier,
		Log:               appLog,
		SessionCapacity:   cfg.SessionCapacity,
		TooltipTTL:        cfg.TooltipTTL,
		RestoreRevalidate: cfg.RestoreRevalidate,
	})
	if err != nil {
		appLog.Error("api setup failed", "err", err)
		return 1
	}

	if os.Getenv("METRICS_ENABLED") == "true" {
		startMetrics(ctx, appLog, h, cat)
	}

	handler := server.NewRouter(appLog, cat, func(r chi.Router) { h.Routes(r) })
	if err := server.Run(ctx, cfg, appLog, handler); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func openStorage(ctx context.Context, sc config.StorageCfg) (persist.KV, func(), error) {
	if sc.Driver != "redis" {
		return memstore.New(sc.MemorySize, sc.TTL), func() {}, nil
	}
	rc, err := redisstore.New(ctx, sc.RedisAddr,
		redisstore.WithDialTimeout(2*time.Second),
		redisstore.WithReadTimeout(sc.OpTimeout))
	if err != nil {
		return nil, nil, err
	}
	return rc, func() { _ = rc.Close() }, nil
}

func startMetrics(ctx context.Context, log *slog.Logger, h *api.Handler, cat *catalogue.Catalogue) {
	p := metrics.Init(metrics.Config{
		Addr: os.Getenv("METRICS_ADDR"),
		Path: os.Getenv("METRICS_PATH"),
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	p.Register(observability.Collectors()...)
	p.Gauge("drawd_open_sessions", "Drawing sessions held in memory.",
		func() float64 { return float64(h.Sessions()) })
	p.Gauge("restriction_polygons", "Restriction footprints in the loaded catalogue.",
		func() float64 { return float64(cat.Len()) })

	go func() {
		if err := p.Serve(ctx, log); err != nil {
			log.Warn("metrics server exited", "err", err)
		}
	}()
}
