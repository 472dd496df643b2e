// sw-backfill - Historical space weather backfill from GFZ Potsdam
//
// Reads the definitive Kp/ap/Ap/SN/F10.7 dataset from GFZ Potsdam (or a
// local copy, optionally .gz) and writes it to ClickHouse with 3-hour
// bucketing and/or to the local SQLite cache used by msis-server.
//
// Source: https://kp.gfz-potsdam.de (Helmholtz Centre Potsdam, GFZ)
// Format: Daily SSN + F10.7 + 8x 3-hourly Kp/ap values per day
//
// Each day produces 8 ClickHouse rows (one per 3-hour bucket: 00, 03, ..., 21 UTC).
// Daily values are replicated across all 8 buckets; Kp/ap are bucket-specific.
// ReplacingMergeTree(updated_at) on (date, time) handles deduplication.
//
// Build: CGO_ENABLED=1 go build -ldflags="-s -w" -o build/sw-backfill ./cmd/sw-backfill

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/KI7MT/ki7mt-msis/internal/common"
	"github.com/KI7MT/ki7mt-msis/internal/spaceweather"
)

var Version = "0.3.0"

const sourceTag = "gfz-kp-backfill"

func main() {
	cfg, err := common.Load()
	if err != nil {
		logrus.Fatalf("Config error: %v", err)
	}

	startStr := flag.String("start", "1932-01-01", "Start date (YYYY-MM-DD)")
	endStr := flag.String("end", "", "End date (YYYY-MM-DD, default: today)")
	localFile := flag.String("file", "", "Read from local file instead of downloading (.gz accepted)")
	url := flag.String("url", cfg.SpaceWeatherURL, "GFZ index file URL")
	chHost := flag.String("ch-host", cfg.ClickHouseAddr(), "ClickHouse host:port")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	chTable := flag.String("ch-table", "indices", "ClickHouse table")
	noClickHouse := flag.Bool("no-clickhouse", false, "Skip the ClickHouse insert")
	sqlitePath := flag.String("sqlite", "", "Also write days to this SQLite cache (e.g. "+cfg.SpaceWeatherSQLite+")")
	verify := flag.Bool("verify", false, "Read the inserted range back from ClickHouse and compare day counts")
	dryRun := flag.Bool("dry-run", false, "Parse and show stats without writing")
	httpTimeout := flag.Int("timeout", 120, "HTTP timeout in seconds")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	log := common.NewLogger(*logLevel)

	common.Banner(log, "Space Weather Backfill v%s", Version)

	startDate, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	endDate := spaceweather.Truncate(time.Now())
	if *endStr != "" {
		endDate, err = time.Parse("2006-01-02", *endStr)
		if err != nil {
			log.Fatalf("Invalid end date: %v", err)
		}
	}
	log.Infof("Date range: %s to %s", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Shutdown requested...")
		cancel()
	}()

	// Fetch or read GFZ data
	path := *localFile
	if path == "" {
		tmpDir, err := os.MkdirTemp("", "sw-backfill-")
		if err != nil {
			log.Fatalf("Cannot create temp dir: %v", err)
		}
		defer os.RemoveAll(tmpDir)

		log.Infof("Downloading from GFZ Potsdam...")
		log.Infof("  URL: %s", *url)
		client := &http.Client{Timeout: time.Duration(*httpTimeout) * time.Second}
		var n int64
		path, n, err = spaceweather.Download(ctx, client, *url, filepath.Join(tmpDir, "gfz.txt"), false)
		if err != nil {
			log.Fatalf("Download failed: %v", err)
		}
		log.Infof("  Received %d bytes", n)
	} else {
		log.Infof("Reading local file: %s", path)
	}

	log.Infof("Parsing GFZ data...")
	t0 := time.Now()
	days, err := spaceweather.ParseFile(path, startDate, endDate)
	if err != nil {
		log.Fatalf("Parse error: %v", err)
	}
	log.Infof("Parsed %d days in %v", len(days), time.Since(t0).Round(time.Millisecond))

	if len(days) == 0 {
		log.Fatal("No data found in date range")
	}

	printCoverage(log, days)

	totalRows := len(days) * spaceweather.BucketsPerDay
	log.Infof("Will write: %d days (%d ClickHouse rows)", len(days), totalRows)

	if *dryRun {
		log.Info("Dry run, skipping writes")
		return
	}

	first, last := days[0].Date, days[len(days)-1].Date
	t0 = time.Now()
	inserted := 0

	if !*noClickHouse {
		log.Infof("Connecting to ClickHouse at %s...", *chHost)
		w, err := spaceweather.DialClickHouseWriter(ctx, *chHost, *chDB, *chTable, sourceTag, log)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer w.Close()

		if err := w.EnsureTable(ctx); err != nil {
			log.Fatalf("Create table failed: %v", err)
		}
		log.Infof("Table: %s", w.Table())

		inserted, err = w.Write(ctx, days)
		if err != nil {
			log.Fatalf("Insert failed after %d rows: %v", inserted, err)
		}

		if *verify {
			verifyClickHouse(ctx, log, cfg, *chHost, *chDB, *chTable, first, last, len(days))
		}
	}

	if *sqlitePath != "" {
		store, err := spaceweather.OpenSQLiteStore(*sqlitePath, log)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer store.Close()
		if err := store.Save(ctx, days); err != nil {
			log.Fatalf("SQLite save failed: %v", err)
		}
		log.Infof("Saved %d days to %s", len(days), *sqlitePath)
	}

	elapsed := time.Since(t0)

	common.Banner(log, "Backfill Complete")
	log.Infof("Days:    %d (%s to %s)", len(days), first.Format("2006-01-02"), last.Format("2006-01-02"))
	log.Infof("Rows:    %d (8 per day)", inserted)
	log.Infof("Elapsed: %v", elapsed.Round(time.Millisecond))
	if inserted > 0 {
		log.Infof("Rate:    %.0f rows/sec", float64(inserted)/elapsed.Seconds())
		log.Infof("Source:  %s", sourceTag)
		log.Infof("Run OPTIMIZE TABLE %s.%s FINAL to merge duplicates.", *chDB, *chTable)
	}
}

// printCoverage logs how many days carry each index and its range.
func printCoverage(log logrus.FieldLogger, days []spaceweather.Day) {
	type span struct {
		count    int
		min, max float64
	}
	add := func(s *span, v float64) {
		if s.count == 0 || v < s.min {
			s.min = v
		}
		if s.count == 0 || v > s.max {
			s.max = v
		}
		s.count++
	}

	var f107, ssn, ap span
	for _, d := range days {
		if !d.Missing.Has(spaceweather.MissingF107) {
			add(&f107, d.F107Obs)
		}
		if !d.Missing.Has(spaceweather.MissingSSN) {
			add(&ssn, d.SSN)
		}
		if !d.Missing.Has(spaceweather.MissingAp) {
			add(&ap, d.DayAp)
		}
	}

	log.Infof("Coverage (%s to %s):", days[0].Date.Format("2006-01-02"), days[len(days)-1].Date.Format("2006-01-02"))
	for _, c := range []struct {
		name, format string
		s            span
	}{
		{"SSN  ", "  %s %d days with data (%.0f - %.0f)", ssn},
		{"F10.7", "  %s %d days with data (%.1f - %.1f SFU)", f107},
		{"Ap   ", "  %s %d days with data (%.0f - %.0f)", ap},
	} {
		if c.s.count == 0 {
			log.Infof("  %s no data", c.name)
			continue
		}
		log.Infof(c.format, c.name, c.s.count, c.s.min, c.s.max)
	}
}

func verifyClickHouse(ctx context.Context, log logrus.FieldLogger, cfg *common.Config, host, db, table string, first, last time.Time, want int) {
	r, err := spaceweather.OpenClickHouseReader(ctx, host, db, cfg.ClickHouseUser, cfg.ClickHousePassword, table)
	if err != nil {
		log.Errorf("Verify: %v", err)
		return
	}
	defer r.Close()

	got, err := r.Load(ctx, first, last)
	if err != nil {
		log.Errorf("Verify: %v", err)
		return
	}
	if len(got) != want {
		log.Warnf("Verify: %d days in ClickHouse, expected %d", len(got), want)
		return
	}
	log.Infof("Verify: %d days read back OK", len(got))
}
