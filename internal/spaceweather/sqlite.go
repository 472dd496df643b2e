package spaceweather

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Saver persists days.
type Saver interface {
	Save(ctx context.Context, days []Day) error
}

// Loader reads days within [start, end].
type Loader interface {
	Load(ctx context.Context, start, end time.Time) ([]Day, error)
}

// Store is a local index cache.
type Store interface {
	Saver
	Loader
	LastUpdate(ctx context.Context) (time.Time, error)
	Close() error
}

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	DBPath string
	log    logrus.FieldLogger
}

// OpenSQLiteStore opens or creates the cache database at dbPath.
func OpenSQLiteStore(dbPath string, log logrus.FieldLogger) (*SQLiteStore, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	log.Debugf("Opening database at %s", dbPath)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS sw_days (
		date TEXT PRIMARY KEY,
		kp TEXT NOT NULL,
		ap TEXT NOT NULL,
		day_ap REAL NOT NULL,
		ssn REAL NOT NULL,
		f107_obs REAL NOT NULL,
		f107_adj REAL NOT NULL,
		missing INTEGER NOT NULL,
		def INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sw_updated ON sw_days(updated_at);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStore{db: db, DBPath: dbPath, log: log}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save upserts days in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, days []Day) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sw_days(date, kp, ap, day_ap, ssn, f107_obs, f107_adj, missing, def, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date) DO UPDATE SET
		kp=excluded.kp,
		ap=excluded.ap,
		day_ap=excluded.day_ap,
		ssn=excluded.ssn,
		f107_obs=excluded.f107_obs,
		f107_adj=excluded.f107_adj,
		missing=excluded.missing,
		def=excluded.def,
		updated_at=excluded.updated_at
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, d := range days {
		_, err := stmt.ExecContext(ctx,
			d.Date.Format("2006-01-02"),
			joinBuckets(d.Kp),
			joinBuckets(d.Ap),
			d.DayAp,
			d.SSN,
			d.F107Obs,
			d.F107Adj,
			int(d.Missing),
			d.Def,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert %s: %w", d.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Debugf("Saved %d space weather days", len(days))
	return nil
}

// Load returns days within [start, end] ordered by date. Zero bounds are
// open.
func (s *SQLiteStore) Load(ctx context.Context, start, end time.Time) ([]Day, error) {
	lo, hi := "0000-01-01", "9999-12-31"
	if !start.IsZero() {
		lo = start.UTC().Format("2006-01-02")
	}
	if !end.IsZero() {
		hi = end.UTC().Format("2006-01-02")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, kp, ap, day_ap, ssn, f107_obs, f107_adj, missing, def
		FROM sw_days
		WHERE date BETWEEN ? AND ?
		ORDER BY date`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("failed to query days: %w", err)
	}
	defer rows.Close()

	var days []Day
	for rows.Next() {
		var (
			d       Day
			date    string
			kp, ap  string
			missing int
		)
		if err := rows.Scan(&date, &kp, &ap, &d.DayAp, &d.SSN, &d.F107Obs, &d.F107Adj, &missing, &d.Def); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if d.Date, err = time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("bad date %q: %w", date, err)
		}
		if d.Kp, err = splitBuckets(kp); err != nil {
			return nil, fmt.Errorf("kp for %s: %w", date, err)
		}
		if d.Ap, err = splitBuckets(ap); err != nil {
			return nil, fmt.Errorf("ap for %s: %w", date, err)
		}
		d.Missing = Missing(missing)
		days = append(days, d)
	}
	return days, rows.Err()
}

// LastUpdate returns the time of the most recent save, zero when empty.
func (s *SQLiteStore) LastUpdate(ctx context.Context) (time.Time, error) {
	var ts sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(updated_at) FROM sw_days").Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("failed to get last update time: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, ts.String); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", ts.String)
}

func joinBuckets(v [BucketsPerDay]float64) string {
	parts := make([]string, BucketsPerDay)
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func splitBuckets(s string) ([BucketsPerDay]float64, error) {
	var v [BucketsPerDay]float64
	parts := strings.Split(s, ",")
	if len(parts) != BucketsPerDay {
		return v, fmt.Errorf("expected %d values, got %d", BucketsPerDay, len(parts))
	}
	for i, p := range parts {
		x, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return v, err
		}
		v[i] = x
	}
	return v, nil
}
