// Command boardd runs a headless live board: it keeps the order and errand
// lists for one viewer synchronized against Supabase, exposing Prometheus
// metrics while it runs.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/RelayEats/sync_layer/auth"
	"github.com/RelayEats/sync_layer/domain"
	"github.com/RelayEats/sync_layer/email"
	"github.com/RelayEats/sync_layer/internal/app/metrics"
	"github.com/RelayEats/sync_layer/internal/config"
	"github.com/RelayEats/sync_layer/livesync"
	"github.com/RelayEats/sync_layer/pkg/logger"
	"github.com/RelayEats/sync_layer/storage"
	"github.com/RelayEats/sync_layer/supabase/client"
)

func main() {
	var (
		configPath = flag.String("config", "config/boardd.yaml", "Path to config file")
		envFile    = flag.String("env", "", "Optional .env file to load")
		token      = flag.String("token", "", "Supabase access token of the viewer")
		roleFlag   = flag.String("role", "customer", "Viewer role when no token is given: customer|driver|admin")
		userFlag   = flag.String("user", "", "Viewer user ID when no token is given")
		available  = flag.Bool("available", false, "Watch the unassigned pending pool (drivers)")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("load env (%s): %v", *envFile, err)
		}
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logg := logger.New("boardd", level)

	identity := auth.Identity{
		UserID: *userFlag,
		Role:   domain.Role(*roleFlag),
	}
	if *token != "" {
		identity, err = auth.FromAccessToken(*token)
		if err != nil {
			log.Fatalf("resolve identity: %v", err)
		}
	}
	if identity.UserID == "" && identity.Role != domain.RoleAdmin {
		log.Fatalf("viewer user ID required (pass -token or -user)")
	}

	apiClient, err := client.New(client.Config{
		URL:    cfg.Supabase.URL,
		APIKey: cfg.Supabase.AnonKey,
	})
	if err != nil {
		log.Fatalf("supabase client: %v", err)
	}
	realtime := client.NewRealtimeClient(cfg.Supabase.URL, cfg.Supabase.AnonKey)
	if *token != "" {
		apiClient.SetAccessToken(*token)
		realtime.SetAccessToken(*token)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var kv storage.Store
	if cfg.Redis.Enabled {
		kv = storage.NewRedisKV(storage.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	} else {
		kv = storage.NewMemoryKV()
	}
	if err := kv.Initialize(ctx); err != nil {
		log.Fatalf("snapshot store: %v", err)
	}
	defer kv.Close(context.Background())

	sweeper := storage.NewSweeper(kv, "snapshot:", cfg.SnapshotTTL(), logg)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("snapshot sweeper: %v", err)
	}
	defer sweeper.Stop()

	// A dead realtime socket is not fatal: screens mount in fetch-only
	// mode and recover on the next run.
	if err := realtime.Connect(ctx); err != nil {
		logg.WithError(err).Warn("realtime connect failed, screens run fetch-only")
	} else {
		defer realtime.Disconnect()
	}

	presenter := livesync.Fanout(
		livesync.NewLogPresenter(logg),
		email.NewDispatcher(apiClient, cfg.Supabase.EmailFunction, logg),
	)
	notifier := livesync.NewNotifier(presenter, logg)
	source := livesync.NewRealtimeSource(realtime)

	screenCfg := livesync.ScreenConfig{Quiescence: cfg.Quiescence(), Log: logg}

	orderScope := livesync.Scope{
		Role:      identity.Role,
		UserID:    identity.UserID,
		Resource:  domain.ResourceOrder,
		Available: *available,
	}
	orders := livesync.NewScreen[domain.Order](
		orderScope,
		livesync.NewFetcher[domain.Order](apiClient, cfg.Sync.PageSize, logg),
		livesync.NewSnapshotCache[*domain.Order](kv, logg),
		livesync.NewSubscriber[domain.Order](source, orderScope, logg),
		notifier,
		screenCfg,
	)

	errandScope := livesync.Scope{
		Role:      identity.Role,
		UserID:    identity.UserID,
		Resource:  domain.ResourceErrand,
		Available: *available,
	}
	errands := livesync.NewScreen[domain.Errand](
		errandScope,
		livesync.NewFetcher[domain.Errand](apiClient, cfg.Sync.PageSize, logg),
		livesync.NewSnapshotCache[*domain.Errand](kv, logg),
		livesync.NewSubscriber[domain.Errand](source, errandScope, logg),
		notifier,
		screenCfg,
	)

	if err := orders.Mount(ctx); err != nil {
		logg.WithError(err).Warn("order screen mounted with fetch error")
	}
	defer orders.Teardown(context.Background())

	if err := errands.Mount(ctx); err != nil {
		logg.WithError(err).Warn("errand screen mounted with fetch error")
	}
	defer errands.Teardown(context.Background())

	logg.WithFields(map[string]any{
		"role":    identity.Role,
		"user":    identity.UserID,
		"orders":  len(orders.Records()),
		"errands": len(errands.Records()),
		"live":    orders.Live(),
	}).Info("board mounted")

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logg.WithError(err).Error("metrics server failed")
			}
		}()
		logg.WithField("addr", cfg.Metrics.Addr).Info("metrics listening")
	}

	<-ctx.Done()
	logg.Info("shutting down")

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logg.WithError(err).Warn("metrics server shutdown failed")
		}
	}
}
