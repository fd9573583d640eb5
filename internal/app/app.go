// Package app wires configuration, storage, transport and handlers into a
// runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studycards/internal/config"
	"github.com/yungbote/studycards/internal/data/db"
	"github.com/yungbote/studycards/internal/data/history"
	"github.com/yungbote/studycards/internal/generation"
	httpx "github.com/yungbote/studycards/internal/http"
	httpH "github.com/yungbote/studycards/internal/http/handlers"
	httpMW "github.com/yungbote/studycards/internal/http/middleware"
	"github.com/yungbote/studycards/internal/identity"
	"github.com/yungbote/studycards/internal/observability"
	"github.com/yungbote/studycards/internal/platform/gcp"
	"github.com/yungbote/studycards/internal/platform/logger"
	"github.com/yungbote/studycards/internal/proxy"
	"github.com/yungbote/studycards/internal/realtime"
	"github.com/yungbote/studycards/internal/realtime/bus"
	"github.com/yungbote/studycards/internal/session"
)

type App struct {
	Log      *logger.Logger
	Cfg      config.Config
	DB       *db.Service
	Bus      bus.Bus
	Hub      *realtime.SSEHub
	History  *history.Store
	Pipeline *session.Pipeline
	Metrics  *observability.Metrics
	Router   *gin.Engine

	avatars  *gcp.AvatarStore
	shutdown func(context.Context) error
	cancel   context.CancelFunc
}

// New builds the full server. The generation client talks to the proxy over
// HTTP, by default the proxy routes mounted on this same server.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (_ *App, err error) {
	a := &App{Log: log, Cfg: cfg, Metrics: observability.NewMetrics()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.shutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:      cfg.Otel.Enabled,
		ServiceName:  cfg.Otel.ServiceName,
		Environment:  cfg.Env,
		SamplerRatio: cfg.Otel.SamplerRatio,
	})

	log.Info("Opening database...", "driver", cfg.Database.Driver)
	a.DB, err = db.Open(db.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN, Silent: cfg.LogMode == "production"}, log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := a.DB.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("database automigrate: %w", err)
	}

	a.Bus, err = wireBus(ctx, cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	a.Hub = realtime.NewSSEHub(log)
	fwdCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	if err := a.Bus.StartForwarder(fwdCtx, a.Hub.Broadcast); err != nil {
		return nil, fmt.Errorf("start SSE forwarder: %w", err)
	}
	if cfg.Redis.Addr != "" {
		a.Metrics.StartRedisCollector(fwdCtx, log, a.Bus, 0)
	}

	a.History = history.NewStore(
		history.NewRepo(a.DB.DB(), log),
		cfg.History.Limit,
		historyNotifier(a.Bus, a.Metrics, log),
		log,
	)

	gen, err := generation.New(generation.Options{
		BaseURL:    proxyBaseURL(cfg),
		Timeout:    cfg.Generation.Timeout.Std(),
		RetryDelay: cfg.Generation.RetryDelay.Std(),
		Logger:     log,
		Metrics:    a.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("init generation client: %w", err)
	}
	a.Pipeline = session.NewPipeline(gen, a.History, log, session.WithMetrics(a.Metrics))

	eng, err := NewEngine(ctx, cfg.Proxy, log)
	if err != nil {
		return nil, err
	}

	var provider identity.Provider
	if secret := strings.TrimSpace(cfg.Auth.JWTSecret); secret != "" {
		p, err := identity.NewJWTProvider(secret, cfg.Auth.Issuer)
		if err != nil {
			return nil, fmt.Errorf("init identity provider: %w", err)
		}
		provider = p
	} else {
		log.Warn("JWT_SECRET_KEY not set; every caller is a guest")
	}

	var avatars httpH.AvatarUploader
	if cfg.Avatar.Bucket != "" {
		a.avatars, err = gcp.NewAvatarStore(ctx, gcp.AvatarConfig{
			Bucket:          cfg.Avatar.Bucket,
			CDNDomain:       cfg.Avatar.CDNDomain,
			Mode:            gcp.StorageMode(cfg.Avatar.Mode),
			EmulatorHost:    cfg.Avatar.EmulatorHost,
			CredentialsFile: cfg.Avatar.CredentialsFile,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("init avatar store: %w", err)
		}
		avatars = a.avatars
	}

	a.Router = httpx.NewRouter(httpx.RouterConfig{
		Log:            log,
		ServiceName:    cfg.Otel.ServiceName,
		AllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		Metrics:        a.Metrics,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, provider),
		ProxyHandler:   proxy.NewHandler(eng, log),
		SessionHandler: httpH.NewSessionHandler(log, a.Pipeline),
		HistoryHandler: httpH.NewHistoryHandler(log, a.History, a.Hub, a.Metrics),
		AvatarHandler:  httpH.NewAvatarHandler(log, avatars, a.Bus),
		HealthHandler: httpH.NewHealthHandler(map[string]httpH.Pinger{
			"database": a.DB,
			"bus":      a.Bus,
		}),
	})
	return a, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	srv := httpx.NewServer(a.Cfg.HTTP.Addr, a.Router, a.Log)
	return srv.Run(ctx, a.Cfg.HTTP.ShutdownTimeout.Std())
}

func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	var errs []error
	if a.Bus != nil {
		errs = append(errs, a.Bus.Close())
	}
	if a.avatars != nil {
		errs = append(errs, a.avatars.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(context.Background()))
	}
	if err := errors.Join(errs...); err != nil {
		a.Log.Warn("shutdown finished with errors", "error", err)
	}
	a.Log.Sync()
}

func wireBus(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (bus.Bus, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		log.Info("REDIS_ADDR not set; SSE events stay in-process")
		return bus.NewLocal(), nil
	}
	b, err := bus.NewRedisBus(ctx, bus.RedisConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Channel:  cfg.Channel,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init redis SSE bus: %w", err)
	}
	return b, nil
}

func historyNotifier(b bus.Bus, m *observability.Metrics, log *logger.Logger) history.Notifier {
	publish := bus.HistoryNotifier(b, log)
	return history.NotifierFunc(func(ctx context.Context, ev history.Event) {
		m.IncHistoryEvent(string(ev.Type))
		publish.Notify(ctx, ev)
	})
}

// proxyBaseURL falls back to this server's own listen address.
func proxyBaseURL(cfg config.Config) string {
	if u := strings.TrimSpace(cfg.Generation.BaseURL); u != "" {
		return u
	}
	host, port, err := net.SplitHostPort(cfg.HTTP.Addr)
	if err != nil {
		return "http://" + cfg.HTTP.Addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
