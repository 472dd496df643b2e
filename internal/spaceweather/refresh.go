package spaceweather

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/KI7MT/ki7mt-msis/internal/msis"
)

// RefresherConfig configures a Refresher.
type RefresherConfig struct {
	URL      string       // GFZ file to download
	DestPath string       // local copy of the file
	Client   *http.Client // nil uses a client with a 2 minute timeout
	Store    Store        // optional local cache, loaded by Warm
	Sinks    []Saver      // extra destinations written after each refresh
	Log      logrus.FieldLogger
}

// Refresher keeps an in-memory Table current: download, parse, persist,
// then swap. Readers always see a complete table.
type Refresher struct {
	cfg  RefresherConfig
	log  logrus.FieldLogger
	cron *cron.Cron

	// refreshMu serialises Refresh; runs share DestPath and the sinks.
	refreshMu sync.Mutex

	mu          sync.RWMutex
	table       *Table
	lastRefresh time.Time
}

// NewRefresher creates a refresher with an empty table.
func NewRefresher(cfg RefresherConfig) *Refresher {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 2 * time.Minute}
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Refresher{cfg: cfg, log: log, table: NewTable(nil)}
}

// Table returns the current table.
func (r *Refresher) Table() *Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table
}

// LastRefresh returns when the table was last replaced.
func (r *Refresher) LastRefresh() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastRefresh
}

// Drivers looks up daily drivers in the current table.
func (r *Refresher) Drivers(t time.Time) (Drivers, error) {
	return r.Table().Drivers(t)
}

// DailyAp looks up the daily Ap in the current table.
func (r *Refresher) DailyAp(t time.Time) (float64, error) {
	return r.Table().DailyAp(t)
}

// PrevF107 looks up the previous day's F10.7 in the current table.
func (r *Refresher) PrevF107(t time.Time) (float64, error) {
	return r.Table().PrevF107(t)
}

// F107A looks up the centred F10.7 mean in the current table.
func (r *Refresher) F107A(t time.Time) (float64, error) {
	return r.Table().F107A(t)
}

// Day looks up one day in the current table.
func (r *Refresher) Day(t time.Time) (Day, error) {
	return r.Table().Day(t)
}

// ApArray looks up the magnetic history in the current table.
func (r *Refresher) ApArray(t time.Time) (msis.ApArray, error) {
	return r.Table().ApArray(t)
}

func (r *Refresher) swap(t *Table) {
	r.mu.Lock()
	r.table = t
	r.lastRefresh = time.Now()
	r.mu.Unlock()
}

// Warm fills the table from the store, falling back to an existing
// local file. It is a no-op when neither has data.
func (r *Refresher) Warm(ctx context.Context) error {
	if r.cfg.Store != nil {
		days, err := r.cfg.Store.Load(ctx, time.Time{}, time.Time{})
		if err != nil {
			return fmt.Errorf("load cache: %w", err)
		}
		if len(days) > 0 {
			r.swap(NewTable(days))
			r.log.WithField("days", len(days)).Info("Space weather table loaded from cache")
			return nil
		}
	}

	if r.cfg.DestPath != "" {
		if _, err := os.Stat(r.cfg.DestPath); err == nil {
			days, err := ParseFile(r.cfg.DestPath, time.Time{}, time.Time{})
			if err != nil {
				return err
			}
			r.swap(NewTable(days))
			r.log.WithField("days", len(days)).Info("Space weather table loaded from file")
		}
	}
	return nil
}

// Refresh downloads and parses the source file, saves the days to the
// store and sinks, and swaps in the new table. The previous table stays
// in place on any download or parse failure. Concurrent calls run one
// at a time.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	t0 := time.Now()
	if err := os.MkdirAll(filepath.Dir(r.cfg.DestPath), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	path, n, err := Download(ctx, r.cfg.Client, r.cfg.URL, r.cfg.DestPath, false)
	if err != nil {
		return err
	}
	days, err := ParseFile(path, time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	if len(days) == 0 {
		return fmt.Errorf("%w: %s contained no days", ErrNoData, r.cfg.URL)
	}

	if r.cfg.Store != nil {
		if err := r.cfg.Store.Save(ctx, days); err != nil {
			return fmt.Errorf("save cache: %w", err)
		}
	}
	for _, s := range r.cfg.Sinks {
		if err := s.Save(ctx, days); err != nil {
			r.log.WithError(err).Warn("Space weather sink failed")
		}
	}

	r.swap(NewTable(days))
	first, last := r.Table().Range()
	r.log.WithFields(logrus.Fields{
		"bytes":   n,
		"days":    len(days),
		"first":   first.Format("2006-01-02"),
		"last":    last.Format("2006-01-02"),
		"elapsed": time.Since(t0).Round(time.Millisecond),
	}).Info("Space weather table refreshed")
	return nil
}

// Start schedules Refresh with a standard 5-field cron spec. A run that
// is still going when the next one fires causes that one to be skipped.
func (r *Refresher) Start(spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(r.log))))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := r.Refresh(ctx); err != nil {
			r.log.WithError(err).Error("Scheduled space weather refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to set up cron job: %w", err)
	}
	r.cron = c
	c.Start()
	r.log.WithField("schedule", spec).Info("Space weather refresh scheduled")
	return nil
}

// Stop stops the scheduler and waits for a running refresh.
func (r *Refresher) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}
