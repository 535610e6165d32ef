package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/ebooks_storefront/internal/apiclient"
	"github.com/Skotchmaster/ebooks_storefront/internal/catalog"
	"github.com/Skotchmaster/ebooks_storefront/internal/checkout"
	"github.com/Skotchmaster/ebooks_storefront/internal/config"
	"github.com/Skotchmaster/ebooks_storefront/internal/httpserver"
	"github.com/Skotchmaster/ebooks_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/ebooks_storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/ebooks_storefront/internal/mykafka"
	"github.com/Skotchmaster/ebooks_storefront/internal/profile"
	"github.com/Skotchmaster/ebooks_storefront/internal/review"
	"github.com/Skotchmaster/ebooks_storefront/internal/search"
	"github.com/Skotchmaster/ebooks_storefront/internal/session"
	"github.com/Skotchmaster/ebooks_storefront/internal/validation"
	env "github.com/Skotchmaster/ebooks_storefront/pkg/config"
	"github.com/Skotchmaster/ebooks_storefront/pkg/db"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
	loggingmw "github.com/Skotchmaster/ebooks_storefront/pkg/middleware/logging"
)

const purgeEvery = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	env.MustNonEmpty(cfg.Session.Secret, "SESSION_SECRET")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("storefront_stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown_complete")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	gdb, err := db.Open(ctx, cfg.Database.URL, cfg.Database.SQLitePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Error("db_close_failed", "error", err)
		}
	}()

	repo := &session.GormRepo{DB: gdb}
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var (
		cache catalog.Cache = catalog.NewMemoryCache()
		rdb   *redis.Client
	)
	if cfg.Cache.RedisAddr != "" {
		rdb, err = catalog.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache = catalog.NewRedisCache(rdb, cfg.Cache.KeyPrefix)
		logger.Info("catalog_cache", "backend", "redis", "addr", cfg.Cache.RedisAddr)
	}

	var events mykafka.Publisher = mykafka.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		events = mykafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		logger.Info("events_enabled", "brokers", strings.Join(cfg.Kafka.Brokers, ","), "topic", cfg.Kafka.Topic)
	}
	defer func() {
		if err := events.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}()

	client := apiclient.NewClient(cfg.API.BaseURL, cfg.API.Timeout)

	cat := catalog.NewService(client, cache, catalog.Policy{
		Default: catalog.Window{Stale: cfg.Cache.StaleTime, GC: cfg.Cache.GCTime},
		Search:  catalog.Window{Stale: cfg.Cache.SearchStale, GC: cfg.Cache.SearchGC},
	})
	if cfg.Search.ElasticURL != "" {
		es, err := search.NewClient(ctx, cfg.Search.ElasticURL, cfg.Search.User, cfg.Search.Password)
		if err != nil {
			logger.Warn("search_index_unavailable", "url", cfg.Search.ElasticURL, "error", err)
		} else {
			cat.Searcher = search.New(es, cfg.Search.Index)
		}
	}

	sessions := session.NewService(repo, client, events, cfg.Session.RestoreInterval)

	deps := &httpserver.Deps{
		Sessions: sessions,
		Session: auth.SessionOptions{
			Secret:     []byte(cfg.Session.Secret),
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.SecureCookie,
		},
		Catalog: cat,
		Checkout: &checkout.Service{
			API: client,
			Pricing: checkout.Pricing{
				TaxRate:     decimal.NewFromFloat(cfg.Pricing.TaxRate),
				ShippingFee: decimal.NewFromFloat(cfg.Pricing.ShippingFee),
			},
			Events: events,
		},
		Reviews: &review.Service{API: client, Catalog: cat, Events: events},
		Profile: &profile.Service{API: client},
		Events:  events,
		Ready: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
			if rdb != nil {
				return rdb.Ping(ctx).Err()
			}
			return nil
		},
	}
	if cfg.Cart.RemoteSync {
		deps.CartMirror = client
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.Validator{}
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(loggingmw.RequestLogger(logger, loggingmw.Options{QuietPrefixes: []string{"/health"}}))
	if len(cfg.Server.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Server.AllowedOrigins,
			AllowCredentials: true,
		}))
	}
	if cfg.Server.CSRF {
		csrfCfg := csrf.DefaultConfig()
		csrfCfg.Secure = cfg.Session.SecureCookie
		e.Use(csrf.Middleware(csrfCfg))
	}

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           e,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http_listening", "addr", srv.Addr, "api", cfg.API.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		t := time.NewTicker(purgeEvery)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				n, err := sessions.Purge(gctx, cfg.Session.TTL)
				if err != nil {
					logger.Warn("session_purge_failed", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("sessions_purged", "count", n)
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting_down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
