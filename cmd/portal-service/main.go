package main

import (
	"context"
	"encoding/json"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evoting/portal-service/internal/apiclient"
	"evoting/portal-service/internal/clock"
	"evoting/portal-service/internal/config"
	"evoting/portal-service/internal/httpapi"
	"evoting/portal-service/internal/hub"
	"evoting/portal-service/internal/realtime"
	"evoting/portal-service/internal/refdata"
	"evoting/portal-service/internal/store"
	"evoting/portal-service/internal/store/memory"
	"evoting/portal-service/internal/store/postgres"
	"evoting/portal-service/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("portal-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	var sessions store.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer pool.Close()
		sessions = postgres.NewStore(pool)
	} else {
		log.Printf("DB_DSN not set, sessions are kept in memory")
		sessions = memory.NewStore()
	}

	api := apiclient.New(cfg.APIBaseURL, nil)
	ref := refdata.NewHolder(api)
	refreshCtx, cancelRefresh := context.WithTimeout(ctx, 10*time.Second)
	if _, err := ref.Refresh(refreshCtx); err != nil {
		log.Printf("refdata load error: %v", err)
	}
	cancelRefresh()

	h := hub.New()
	expvar.Publish("realtime_clients", expvar.Func(func() any { return h.Counts() }))
	ticker := clock.NewTicker(cfg.PollInterval)
	go ticker.Run(ctx)

	if cfg.WSURL != "" {
		listener := realtime.NewListener(cfg.WSURL, func(ev realtime.Event) {
			payload, err := json.Marshal(ev)
			if err != nil {
				return
			}
			h.Broadcast(payload, hub.Subscription{ElectionID: ev.ElectionID})
		})
		go func() {
			if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("notifications listener stopped: %v", err)
			}
		}()
	}

	go sweepSessions(ctx, sessions, cfg.SessionSweep)

	handler := httpapi.NewHandler(api, sessions, ref, httpapi.Options{
		SessionTTL:   cfg.SessionTTL,
		ConfirmTTL:   cfg.ConfirmTTL,
		CookieSecure: cfg.CookieSecure,
		Location:     cfg.Location,
		Ticker:       ticker,
		Hub:          h,
		RateLimit: httpapi.RateLimitConfig{
			IPPerMinute: cfg.RateLimitPerMinute,
			IPBurst:     cfg.RateLimitBurst,
		},
	})

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(handler.Routes()), "portal-service")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("portal-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	stopBackground()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func sweepSessions(ctx context.Context, sessions store.Store, every time.Duration) {
	if every <= 0 {
		every = 10 * time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			removed, err := sessions.DeleteExpired(ctx, now)
			if err != nil {
				log.Printf("session sweep error: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("session sweep removed=%d", removed)
			}
		}
	}
}
