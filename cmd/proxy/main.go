// Command proxy serves only POST /api/gemini, for deployments that keep the
// model key away from the main server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/studycards/internal/app"
	"github.com/yungbote/studycards/internal/config"
	httpx "github.com/yungbote/studycards/internal/http"
	httpH "github.com/yungbote/studycards/internal/http/handlers"
	"github.com/yungbote/studycards/internal/observability"
	"github.com/yungbote/studycards/internal/platform/logger"
	"github.com/yungbote/studycards/internal/proxy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:      cfg.Otel.Enabled,
		ServiceName:  cfg.Otel.ServiceName + "-proxy",
		Environment:  cfg.Env,
		SamplerRatio: cfg.Otel.SamplerRatio,
	})
	defer func() { _ = shutdown(context.Background()) }()

	eng, err := app.NewEngine(ctx, cfg.Proxy, log)
	if err != nil {
		log.Fatal("Failed to init engine", "error", err)
	}

	router := httpx.NewRouter(httpx.RouterConfig{
		Log:            log,
		ServiceName:    cfg.Otel.ServiceName + "-proxy",
		AllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		Metrics:        observability.NewMetrics(),
		ProxyHandler:   proxy.NewHandler(eng, log),
		HealthHandler:  httpH.NewHealthHandler(nil),
	})
	if err := httpx.NewServer(cfg.HTTP.Addr, router, log).Run(ctx, cfg.HTTP.ShutdownTimeout.Std()); err != nil {
		log.Error("Proxy exited", "error", err)
	}
}
