package grid

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/sirupsen/logrus"
)

// DefaultBatchLimit flushes every 100k grid points.
const DefaultBatchLimit = 100000

// RunSchema creates the model runs table, one row per grid point.
const RunSchema = `CREATE TABLE IF NOT EXISTS %s (
    run_id  String,
    method  String,
    time    DateTime64(3),
    alt     Float64,
    lat     Float64,
    lon     Float64,
    lst     Float64,
    ap      Float32,
    f107    Float32,
    f107a   Float32,
    he      Float64,
    o       Float64,
    n2      Float64,
    o2      Float64,
    ar      Float64,
    rho     Float64,
    h       Float64,
    n       Float64,
    anomo   Float64,
    texo    Float64,
    talt    Float64,
    created DateTime DEFAULT now()
) ENGINE = MergeTree()
ORDER BY (run_id, time, alt, lat, lon)`

// RunBatch holds columnar grid rows for native ClickHouse insert.
type RunBatch struct {
	RunID  *proto.ColStr
	Method *proto.ColStr
	Time   *proto.ColDateTime64
	Alt    *proto.ColFloat64
	Lat    *proto.ColFloat64
	Lon    *proto.ColFloat64
	LST    *proto.ColFloat64
	Ap     *proto.ColFloat32
	F107   *proto.ColFloat32
	F107A  *proto.ColFloat32
	Out    [NumVars]*proto.ColFloat64
}

func NewRunBatch() *RunBatch {
	b := &RunBatch{
		RunID:  new(proto.ColStr),
		Method: new(proto.ColStr),
		Time:   new(proto.ColDateTime64).WithPrecision(proto.PrecisionMilli),
		Alt:    new(proto.ColFloat64),
		Lat:    new(proto.ColFloat64),
		Lon:    new(proto.ColFloat64),
		LST:    new(proto.ColFloat64),
		Ap:     new(proto.ColFloat32),
		F107:   new(proto.ColFloat32),
		F107A:  new(proto.ColFloat32),
	}
	for i := range b.Out {
		b.Out[i] = new(proto.ColFloat64)
	}
	return b
}

func (b *RunBatch) Reset() {
	b.RunID.Reset()
	b.Method.Reset()
	b.Time.Reset()
	b.Alt.Reset()
	b.Lat.Reset()
	b.Lon.Reset()
	b.LST.Reset()
	b.Ap.Reset()
	b.F107.Reset()
	b.F107A.Reset()
	for _, c := range b.Out {
		c.Reset()
	}
}

func (b *RunBatch) Len() int {
	return b.Alt.Rows()
}

// outColumns are the output column names in OutputFields order.
var outColumns = [NumVars]string{"he", "o", "n2", "o2", "ar", "rho", "h", "n", "anomo", "texo", "talt"}

func (b *RunBatch) Input() proto.Input {
	in := proto.Input{
		{Name: "run_id", Data: b.RunID},
		{Name: "method", Data: b.Method},
		{Name: "time", Data: b.Time},
		{Name: "alt", Data: b.Alt},
		{Name: "lat", Data: b.Lat},
		{Name: "lon", Data: b.Lon},
		{Name: "lst", Data: b.LST},
		{Name: "ap", Data: b.Ap},
		{Name: "f107", Data: b.F107},
		{Name: "f107a", Data: b.F107A},
	}
	for i, c := range b.Out {
		in = append(in, proto.InputColumn{Name: outColumns[i], Data: c})
	}
	return in
}

// AddPoint appends grid point i of ds.
func (b *RunBatch) AddPoint(runID string, ds *Dataset, i int) {
	ti, ai, lai, loi := ds.Coords(i)
	b.RunID.Append(runID)
	b.Method.Append(ds.Method.String())
	b.Time.Append(ds.Times[ti])
	b.Alt.Append(ds.Alts[ai])
	b.Lat.Append(ds.Lats[lai])
	b.Lon.Append(ds.Lons[loi])
	b.LST.Append(ds.LST[ti*len(ds.Lons)+loi])
	b.Ap.Append(float32(ds.Ap[ti]))
	b.F107.Append(float32(ds.F107[ti]))
	b.F107A.Append(float32(ds.F107A[ti]))
	for k, c := range b.Out {
		c.Append(ds.Vars[k][i])
	}
}

// =============================================================================
// Writer
// =============================================================================

// ClickHouseWriter inserts evaluated grids into a model runs table.
type ClickHouseWriter struct {
	conn       *ch.Client
	table      string
	batchLimit int
	log        logrus.FieldLogger
}

// DialClickHouseWriter connects to addr and targets db.table.
func DialClickHouseWriter(ctx context.Context, addr, db, table string, log logrus.FieldLogger) (*ClickHouseWriter, error) {
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
		batchLimit: DefaultBatchLimit,
		log:        log,
	}, nil
}

// EnsureTable creates the target table if it does not exist.
func (w *ClickHouseWriter) EnsureTable(ctx context.Context) error {
	return w.conn.Do(ctx, ch.Query{Body: fmt.Sprintf(RunSchema, w.table)})
}

// Write inserts every point of ds under runID and returns the row count.
func (w *ClickHouseWriter) Write(ctx context.Context, runID string, ds *Dataset) (int, error) {
	batch := NewRunBatch()
	inserted := 0
	total := ds.Len()
	t0 := time.Now()

	for i := 0; i < total; i++ {
		batch.AddPoint(runID, ds, i)

		if batch.Len() >= w.batchLimit {
			if err := w.flush(ctx, batch); err != nil {
				return inserted, fmt.Errorf("insert error at row %d: %w", inserted, err)
			}
			inserted += batch.Len()
			rps := float64(inserted) / time.Since(t0).Seconds()
			w.log.Infof("  Inserted %d / %d rows (%.0f rows/sec)", inserted, total, rps)
			batch.Reset()
		}
	}

	if batch.Len() > 0 {
		if err := w.flush(ctx, batch); err != nil {
			return inserted, fmt.Errorf("final insert error: %w", err)
		}
		inserted += batch.Len()
	}
	return inserted, nil
}

func (w *ClickHouseWriter) flush(ctx context.Context, batch *RunBatch) error {
	input := batch.Input()
	cols := make([]string, len(input))
	for i, c := range input {
		cols[i] = c.Name
	}
	return w.conn.Do(ctx, ch.Query{
		Body:  fmt.Sprintf("INSERT INTO %s (%s) VALUES", w.table, strings.Join(cols, ", ")),
		Input: input,
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
