// msis-server - HTTP API for the NRLMSISE-00 atmosphere model
//
// Serves gtd7/gtd7d calls and time-based evaluations. Daily Ap and F10.7
// indices come from the GFZ file, cached in SQLite and refreshed on a
// cron schedule (optionally mirrored into ClickHouse).
//
// Build: CGO_ENABLED=1 go build -tags nrlmsise -ldflags="-s -w" -o build/msis-server ./cmd/msis-server

package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/KI7MT/ki7mt-msis/internal/api"
	"github.com/KI7MT/ki7mt-msis/internal/common"
	"github.com/KI7MT/ki7mt-msis/internal/msis"
	"github.com/KI7MT/ki7mt-msis/internal/spaceweather"
)

// Version can be overridden at build time via -ldflags
var Version = "0.3.0"

func main() {
	cfg, err := common.Load()
	if err != nil {
		common.NewLogger("info").Fatalf("Config error: %v", err)
	}

	flag.IntVar(&cfg.APIPort, "port", cfg.APIPort, "HTTP listen port")
	flag.StringVar(&cfg.RefreshSchedule, "schedule", cfg.RefreshSchedule, "Space weather refresh cron spec (empty disables)")
	flag.StringVar(&cfg.SpaceWeatherURL, "sw-url", cfg.SpaceWeatherURL, "GFZ index file URL")
	flag.StringVar(&cfg.SpaceWeatherSQLite, "sqlite", cfg.SpaceWeatherSQLite, "SQLite cache path")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	mirror := flag.Bool("clickhouse", false, "Mirror refreshed indices into ClickHouse")
	chTable := flag.String("ch-table", "indices", "ClickHouse indices table")
	flag.Parse()

	log := common.NewLogger(cfg.LogLevel)

	model := msis.Native()
	common.Banner(log, "MSIS Server v%s", Version)
	log.Infof("Model:    %s", model.Name())
	log.Infof("Listen:   %s", cfg.ListenAddr())
	log.Infof("Cache:    %s", cfg.SpaceWeatherSQLite)
	log.Infof("Schedule: %s", cfg.RefreshSchedule)
	if !model.IsAvailable() {
		log.Warn("Model unavailable; gtd7/gtd7d requests will return 503")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.SpaceWeatherSQLite), 0755); err != nil {
		log.Fatalf("Cannot create data directory: %v", err)
	}
	store, err := spaceweather.OpenSQLiteStore(cfg.SpaceWeatherSQLite, log)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer store.Close()

	var sinks []spaceweather.Saver
	if *mirror {
		w, err := spaceweather.DialClickHouseWriter(ctx, cfg.ClickHouseAddr(), cfg.ClickHouseDatabase, *chTable, "msis-server", log)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer w.Close()
		if err := w.EnsureTable(ctx); err != nil {
			log.Fatalf("Create table failed: %v", err)
		}
		sinks = append(sinks, w)
		log.Infof("Mirror:   %s", w.Table())
	}

	refresher := spaceweather.NewRefresher(spaceweather.RefresherConfig{
		URL:      cfg.SpaceWeatherURL,
		DestPath: cfg.SpaceWeatherFile(),
		Store:    store,
		Sinks:    sinks,
		Log:      log,
	})
	if err := refresher.Warm(ctx); err != nil {
		log.WithError(err).Warn("Could not warm space weather table")
	}
	if refresher.Table().Len() == 0 || stale(ctx, store) {
		go func() {
			rctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()
			if err := refresher.Refresh(rctx); err != nil {
				log.WithError(err).Error("Initial space weather refresh failed")
			}
		}()
	}
	if cfg.RefreshSchedule != "" {
		if err := refresher.Start(cfg.RefreshSchedule); err != nil {
			log.Fatalf("%v", err)
		}
		defer refresher.Stop()
	}

	adapter := msis.NewAdapter(model, log)
	server := api.New(cfg, adapter, refresher, log)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Info("Server stopped")
}

// stale reports whether the cache was last written more than a day ago.
func stale(ctx context.Context, store *spaceweather.SQLiteStore) bool {
	last, err := store.LastUpdate(ctx)
	if err != nil || last.IsZero() {
		return true
	}
	return time.Since(last) > 24*time.Hour
}
