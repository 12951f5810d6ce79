package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "clinic_reviews/internal/adapters/http_server"
	"clinic_reviews/internal/adapters/observability"
	redisad "clinic_reviews/internal/adapters/redis"
	"clinic_reviews/internal/app"
	"clinic_reviews/internal/domain"
	"clinic_reviews/internal/shared"
	"clinic_reviews/internal/storage/file"
)

func main() {
	cfg, err := shared.Load(os.Args[1:])
	if err != nil {
		if shared.IsHelp(err) {
			os.Stdout.WriteString(err.Error() + "\n")
			return
		}
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(2)
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, os.Stderr, cfg.Debug)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// deps; the API only ever reads the snapshot
	place := cfg.Place()
	store := file.New(cfg.Snapshot, place)
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		cache = rc
	}
	q := app.NewQueryService(store, cache, place.PlaceID, cfg.CacheTTL)

	// http
	srv := server.New(15 * time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(sctx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("snapshot", cfg.Snapshot).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
