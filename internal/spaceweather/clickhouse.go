package spaceweather

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

// DefaultBatchLimit flushes every 50k rows (~6250 days).
const DefaultBatchLimit = 50000

// IndexSchema creates the indices table. ReplacingMergeTree(updated_at)
// on (date, time) handles re-ingested days.
const IndexSchema = `CREATE TABLE IF NOT EXISTS %s (
    date          Date32,
    time          DateTime,
    kp_index      Float32,
    ap_index      Float32,
    day_ap        Float32,
    ssn           Float32,
    observed_flux Float32,
    adjusted_flux Float32,
    missing       UInt8,
    def           UInt8,
    source_file   String,
    updated_at    DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(updated_at)
ORDER BY (date, time)`

// IndexBatch holds columnar data for native ClickHouse insert.
// Each day contributes 8 rows, one per 3-hour bucket. Daily values are
// replicated across the buckets; Kp/ap are bucket-specific.
type IndexBatch struct {
	Date         *proto.ColDate32
	Time         *proto.ColDateTime
	KpIndex      *proto.ColFloat32
	ApIndex      *proto.ColFloat32
	DayAp        *proto.ColFloat32
	SSN          *proto.ColFloat32
	ObservedFlux *proto.ColFloat32
	AdjustedFlux *proto.ColFloat32
	Missing      *proto.ColUInt8
	Def          *proto.ColUInt8
	SourceFile   *proto.ColStr
}

func NewIndexBatch() *IndexBatch {
	return &IndexBatch{
		Date:         new(proto.ColDate32),
		Time:         new(proto.ColDateTime),
		KpIndex:      new(proto.ColFloat32),
		ApIndex:      new(proto.ColFloat32),
		DayAp:        new(proto.ColFloat32),
		SSN:          new(proto.ColFloat32),
		ObservedFlux: new(proto.ColFloat32),
		AdjustedFlux: new(proto.ColFloat32),
		Missing:      new(proto.ColUInt8),
		Def:          new(proto.ColUInt8),
		SourceFile:   new(proto.ColStr),
	}
}

func (b *IndexBatch) Reset() {
	b.Date.Reset()
	b.Time.Reset()
	b.KpIndex.Reset()
	b.ApIndex.Reset()
	b.DayAp.Reset()
	b.SSN.Reset()
	b.ObservedFlux.Reset()
	b.AdjustedFlux.Reset()
	b.Missing.Reset()
	b.Def.Reset()
	b.SourceFile.Reset()
}

func (b *IndexBatch) Len() int {
	return b.Date.Rows()
}

func (b *IndexBatch) Input() proto.Input {
	return proto.Input{
		{Name: "date", Data: b.Date},
		{Name: "time", Data: b.Time},
		{Name: "kp_index", Data: b.KpIndex},
		{Name: "ap_index", Data: b.ApIndex},
		{Name: "day_ap", Data: b.DayAp},
		{Name: "ssn", Data: b.SSN},
		{Name: "observed_flux", Data: b.ObservedFlux},
		{Name: "adjusted_flux", Data: b.AdjustedFlux},
		{Name: "missing", Data: b.Missing},
		{Name: "def", Data: b.Def},
		{Name: "source_file", Data: b.SourceFile},
	}
}

// AddDay appends the 8 bucket rows of d.
func (b *IndexBatch) AddDay(d Day, source string) {
	for i, hour := range bucketHours {
		ts := time.Date(d.Date.Year(), d.Date.Month(), d.Date.Day(), hour, 0, 0, 0, time.UTC)
		b.Date.Append(d.Date)
		b.Time.Append(ts)
		b.KpIndex.Append(float32(d.Kp[i]))
		b.ApIndex.Append(float32(d.Ap[i]))
		b.DayAp.Append(float32(d.DayAp))
		b.SSN.Append(float32(d.SSN))
		b.ObservedFlux.Append(float32(d.F107Obs))
		b.AdjustedFlux.Append(float32(d.F107Adj))
		b.Missing.Append(uint8(d.Missing))
		b.Def.Append(uint8(d.Def))
		b.SourceFile.Append(source)
	}
}

// =============================================================================
// Writer (ch-go native columnar insert)
// =============================================================================

// ClickHouseWriter inserts days into an indices table.
type ClickHouseWriter struct {
	conn       *ch.Client
	table      string
	source     string
	batchLimit int
	log        logrus.FieldLogger
}

// DialClickHouseWriter connects to addr and targets db.table.
func DialClickHouseWriter(ctx context.Context, addr, db, table, source string, log logrus.FieldLogger) (*ClickHouseWriter, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	conn, err := ch.Dial(ctx, ch.Options{
		Address:     addr,
		Database:    db,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		return nil, fmt.Errorf("ClickHouse connection failed: %w", err)
	}
	return &ClickHouseWriter{
		conn:       conn,
		table:      fmt.Sprintf("%s.%s", db, table),
		source:     source,
		batchLimit: DefaultBatchLimit,
		log:        log,
	}, nil
}

// EnsureTable creates the target table if it does not exist.
func (w *ClickHouseWriter) EnsureTable(ctx context.Context) error {
	return w.conn.Do(ctx, ch.Query{Body: fmt.Sprintf(IndexSchema, w.table)})
}

// Write inserts days in batches and returns the number of rows written.
func (w *ClickHouseWriter) Write(ctx context.Context, days []Day) (int, error) {
	batch := NewIndexBatch()
	inserted := 0
	t0 := time.Now()
	totalRows := len(days) * BucketsPerDay

	for _, d := range days {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}

		batch.AddDay(d, w.source)

		if batch.Len() >= w.batchLimit {
			if err := w.flush(ctx, batch); err != nil {
				return inserted, fmt.Errorf("insert error at row %d: %w", inserted, err)
			}
			inserted += batch.Len()
			rps := float64(inserted) / time.Since(t0).Seconds()
			w.log.Infof("  Inserted %d / %d rows (%.0f rows/sec)", inserted, totalRows, rps)
			batch.Reset()
		}
	}

	// Final flush
	if batch.Len() > 0 {
		if err := w.flush(ctx, batch); err != nil {
			return inserted, fmt.Errorf("final insert error: %w", err)
		}
		inserted += batch.Len()
	}
	return inserted, nil
}

// Save writes days, discarding the row count.
func (w *ClickHouseWriter) Save(ctx context.Context, days []Day) error {
	_, err := w.Write(ctx, days)
	return err
}

func (w *ClickHouseWriter) flush(ctx context.Context, batch *IndexBatch) error {
	if batch.Len() == 0 {
		return nil
	}
	query := fmt.Sprintf("INSERT INTO %s (date, time, kp_index, ap_index, day_ap, ssn, observed_flux, adjusted_flux, missing, def, source_file) VALUES", w.table)
	return w.conn.Do(ctx, ch.Query{
		Body:  query,
		Input: batch.Input(),
	})
}

// Table returns the fully qualified target table.
func (w *ClickHouseWriter) Table() string {
	return w.table
}

// Close closes the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

// =============================================================================
// Reader (clickhouse-go query side)
// =============================================================================

// IndexRow is one 3-hour bucket as stored in ClickHouse.
type IndexRow struct {
	Date         time.Time `ch:"date"`
	Time         time.Time `ch:"time"`
	KpIndex      float32   `ch:"kp_index"`
	ApIndex      float32   `ch:"ap_index"`
	DayAp        float32   `ch:"day_ap"`
	SSN          float32   `ch:"ssn"`
	ObservedFlux float32   `ch:"observed_flux"`
	AdjustedFlux float32   `ch:"adjusted_flux"`
	Missing      uint8     `ch:"missing"`
	Def          uint8     `ch:"def"`
}

// ClickHouseReader loads days back from an indices table.
type ClickHouseReader struct {
	conn  driver.Conn
	table string
}

// OpenClickHouseReader opens a pooled connection.
func OpenClickHouseReader(ctx context.Context, addr, db, user, password, table string) (*ClickHouseReader, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: db,
			Username: user,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ClickHouse connection failed: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ClickHouse ping failed: %w", err)
	}
	return &ClickHouseReader{conn: conn, table: fmt.Sprintf("%s.%s", db, table)}, nil
}

// Load returns the days within [start, end]. FINAL collapses replaced rows.
func (r *ClickHouseReader) Load(ctx context.Context, start, end time.Time) ([]Day, error) {
	query := fmt.Sprintf(`SELECT date, time, kp_index, ap_index, day_ap, ssn, observed_flux, adjusted_flux, missing, def
FROM %s FINAL
WHERE date BETWEEN ? AND ?
ORDER BY date, time`, r.table)

	var rows []IndexRow
	if err := r.conn.Select(ctx, &rows, query, Truncate(start), Truncate(end)); err != nil {
		return nil, fmt.Errorf("select indices: %w", err)
	}
	return regroupRows(rows), nil
}

// Close closes the connection pool.
func (r *ClickHouseReader) Close() error {
	return r.conn.Close()
}

// regroupRows folds bucket rows back into days. Rows must be ordered by
// date; a bucket is placed by its hour.
func regroupRows(rows []IndexRow) []Day {
	var days []Day
	for _, row := range rows {
		date := Truncate(row.Date)
		if len(days) == 0 || !days[len(days)-1].Date.Equal(date) {
			days = append(days, Day{
				Date:    date,
				DayAp:   float64(row.DayAp),
				SSN:     float64(row.SSN),
				F107Obs: float64(row.ObservedFlux),
				F107Adj: float64(row.AdjustedFlux),
				Missing: Missing(row.Missing),
				Def:     int(row.Def),
			})
		}
		b := row.Time.UTC().Hour() / 3
		if b < 0 || b >= BucketsPerDay {
			continue
		}
		d := &days[len(days)-1]
		d.Kp[b] = float64(row.KpIndex)
		d.Ap[b] = float64(row.ApIndex)
	}
	return days
}
