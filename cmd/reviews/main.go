package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"clinic_reviews/internal/adapters/importfile"
	"clinic_reviews/internal/adapters/observability"
	redisad "clinic_reviews/internal/adapters/redis"
	"clinic_reviews/internal/adapters/serpapi"
	"clinic_reviews/internal/app"
	"clinic_reviews/internal/domain"
	"clinic_reviews/internal/shared"
	"clinic_reviews/internal/storage/file"
	mysqlrepo "clinic_reviews/internal/storage/mysql"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := shared.Load(args)
	if err != nil {
		if shared.IsHelp(err) {
			fmt.Fprintln(stdout, err.Error())
			return exitOK
		}
		fmt.Fprintln(stderr, "error:", err)
		return exitConfig
	}

	// logs go to stderr; stdout carries only the summary
	log.Logger = observability.NewLogger(cfg.AppEnv, stderr, cfg.Debug)
	reg := observability.InitRegistry()
	place := cfg.Place()
	rc := cfg.RunConfig()

	var remote domain.RemoteSource
	if rc.Source == domain.SourceRemote {
		cl, err := serpapi.New(cfg.SerpBase, cfg.SerpAPIKey, serpapi.Options{
			Lang: cfg.Lang, MaxPages: cfg.MaxPages, RPS: cfg.RPS, Timeout: cfg.Timeout,
		})
		if err != nil {
			return fail(stderr, err)
		}
		remote = cl
	}

	var opts []app.Option
	if cfg.RedisAddr != "" {
		cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer cache.Close()
		if err := cache.Ping(ctx); err != nil {
			return fail(stderr, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err))
		}
		lock, err := cache.Acquire(ctx, cfg.LockKey(), cfg.LockTTL)
		if err != nil {
			if errors.Is(err, redisad.ErrLocked) {
				return fail(stderr, &domain.ConfigurationError{Reason: "another run in progress for " + cfg.Snapshot, Err: err})
			}
			return fail(stderr, err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("run lock release failed")
			}
		}()
		opts = append(opts, app.WithCache(cache))
		if remote != nil && cfg.CacheTTL > 0 {
			remote = app.NewCachedRemote(remote, cache, cfg.CacheTTL, cfg.RemoteCacheKey)
		}
	}

	var repo *mysqlrepo.Repo
	if cfg.MySQLDSN != "" {
		repo = openArchive(ctx, cfg.MySQLDSN)
		if repo != nil {
			opts = append(opts, app.WithArchive(repo))
		}
	}

	store := file.New(cfg.Snapshot, place)
	p := app.NewPipeline(place, remote, importfile.New(), store, opts...)

	sum, runErr := p.Run(ctx, rc)

	observability.ObserveRun(sum, runErr)
	if err := observability.WriteTextfile(cfg.MetricsTextfile, reg); err != nil {
		log.Warn().Err(err).Msg("metrics export failed")
	}
	if repo != nil {
		if err := repo.RecordRun(context.WithoutCancel(ctx), place.PlaceID, sum, runErr); err != nil {
			log.Warn().Err(err).Msg("run audit failed")
		}
	}

	if runErr != nil {
		return fail(stderr, runErr)
	}
	fmt.Fprint(stdout, app.FormatSummary(sum))
	return exitOK
}

// openArchive returns nil when the database is unreachable; the mirror is
// optional and never blocks a run.
func openArchive(ctx context.Context, dsn string) *mysqlrepo.Repo {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Warn().Err(err).Msg("archive disabled: sql.Open failed")
		return nil
	}
	if err := db.PingContext(ctx); err != nil {
		log.Warn().Err(err).Msg("archive disabled: db.Ping failed")
		_ = db.Close()
		return nil
	}
	log.Info().Msg("archive db ping ok")
	return mysqlrepo.New(db)
}

func fail(stderr io.Writer, err error) int {
	log.Error().Err(err).Msg("run aborted")
	fmt.Fprintln(stderr, "error:", err)
	var ce *domain.ConfigurationError
	if errors.As(err, &ce) {
		return exitConfig
	}
	return exitFailed
}
