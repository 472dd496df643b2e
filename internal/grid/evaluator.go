package grid

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/KI7MT/ki7mt-msis/internal/common"
	"github.com/KI7MT/ki7mt-msis/internal/msis"
	"github.com/KI7MT/ki7mt-msis/internal/spaceweather"
)

// sequentialThreshold is the grid size below which goroutines cost more
// than they save.
const sequentialThreshold = 256

// Evaluator runs the adapter over every grid point in parallel chunks.
type Evaluator struct {
	adapter    *msis.Adapter
	source     Source
	numWorkers int
	stats      *common.Stats
	log        logrus.FieldLogger
}

// NewEvaluator creates an evaluator. source may be nil when every Spec
// carries explicit indices. numWorkers <= 0 uses one worker per CPU.
func NewEvaluator(adapter *msis.Adapter, source Source, numWorkers int, log logrus.FieldLogger) *Evaluator {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Evaluator{adapter: adapter, source: source, numWorkers: numWorkers, log: log}
}

// SetStats attaches progress counters.
func (e *Evaluator) SetStats(s *common.Stats) {
	e.stats = s
}

// Evaluate computes the grid. The first adapter error, or context
// cancellation, aborts the evaluation and no Dataset is returned.
func (e *Evaluator) Evaluate(ctx context.Context, spec *Spec) (*Dataset, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	ds := &Dataset{
		Times:  spec.Times,
		Alts:   spec.Alts,
		Lats:   spec.Lats,
		Lons:   spec.Lons,
		Method: spec.Method,
	}
	if err := e.resolveIndices(spec, ds); err != nil {
		return nil, err
	}
	if err := resolveLST(spec, ds); err != nil {
		return nil, err
	}
	apHist, flags, err := e.resolveApHistory(spec)
	if err != nil {
		return nil, err
	}

	n := ds.Len()
	for i := range ds.Vars {
		ds.Vars[i] = make([]float64, n)
	}
	if e.stats != nil {
		e.stats.SetTotal(uint64(n))
	}

	w := &work{spec: spec, ds: ds, apHist: apHist, flags: flags, adapter: e.adapter}

	t0 := time.Now()
	if n < sequentialThreshold || e.numWorkers <= 1 {
		err = e.processChunk(ctx, w, 0, n)
	} else {
		err = e.processParallel(ctx, w, n)
	}
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"points":  n,
		"method":  spec.Method.String(),
		"elapsed": time.Since(t0).Round(time.Millisecond),
	}).Debug("Grid evaluated")
	return ds, nil
}

type work struct {
	spec    *Spec
	ds      *Dataset
	apHist  [][]float64 // per time, nil when unused
	flags   []int
	adapter *msis.Adapter
}

// processParallel splits the points into one chunk per worker.
func (e *Evaluator) processParallel(ctx context.Context, w *work, n int) error {
	chunkSize := (n + e.numWorkers - 1) / e.numWorkers
	g, gctx := errgroup.WithContext(ctx)

	for workerID := 0; workerID < e.numWorkers; workerID++ {
		start := workerID * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= n {
			break
		}
		g.Go(func() error {
			return e.processChunk(gctx, w, start, end)
		})
	}
	return g.Wait()
}

// processChunk evaluates points [start, end).
func (e *Evaluator) processChunk(ctx context.Context, w *work, start, end int) error {
	const report = 1024
	ds := w.ds
	nLon := len(ds.Lons)
	t0 := time.Now()
	done := 0

	for i := start; i < end; i++ {
		if done%report == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		ti, ai, lai, loi := ds.Coords(i)
		year, doy, sec := msis.TimeFields(ds.Times[ti])
		req := msis.Request{
			Year:  year,
			DOY:   doy,
			Sec:   sec,
			Alt:   ds.Alts[ai],
			GLat:  ds.Lats[lai],
			GLong: ds.Lons[loi],
			LST:   ds.LST[ti*nLon+loi],
			F107A: ds.F107A[ti],
			F107:  ds.F107[ti],
			Ap:    ds.Ap[ti],
			ApA:   w.spec.ApA,
			Flags: w.flags,
		}
		if w.apHist != nil {
			req.ApA = w.apHist[ti]
		}

		res, err := w.adapter.Compute(w.spec.Method, req)
		if err != nil {
			return fmt.Errorf("point (time=%d alt=%d lat=%d lon=%d): %w", ti, ai, lai, loi, err)
		}
		for k, v := range res.Flat() {
			ds.Vars[k][i] = v
		}

		done++
		if e.stats != nil && done%report == 0 {
			e.stats.AddPoints(report)
			e.stats.SetChunkLatency(uint64(time.Since(t0).Nanoseconds()))
			t0 = time.Now()
		}
	}
	if e.stats != nil {
		e.stats.AddPoints(uint64(done % report))
	}
	return nil
}

// =============================================================================
// Input Resolution
// =============================================================================

func (e *Evaluator) resolveIndices(spec *Spec, ds *Dataset) error {
	nTime := len(spec.Times)
	var err error
	if ds.Ap, err = broadcastIndex("ap", spec.Ap, nTime); err != nil {
		return err
	}
	if ds.F107, err = broadcastIndex("f107", spec.F107, nTime); err != nil {
		return err
	}
	if ds.F107A, err = broadcastIndex("f107a", spec.F107A, nTime); err != nil {
		return err
	}
	if ds.Ap != nil && ds.F107 != nil && ds.F107A != nil {
		return nil
	}

	if e.source == nil {
		return fmt.Errorf("indices not given and no space weather source configured")
	}
	src := indexSource(e.source)
	ap, f107, f107a := make([]float64, nTime), make([]float64, nTime), make([]float64, nTime)
	for i, t := range spec.Times {
		drv, err := spaceweather.ResolveDrivers(src, t, at(ds.Ap, i), at(ds.F107, i), at(ds.F107A, i))
		if err != nil {
			return fmt.Errorf("indices for %s: %w", t.UTC().Format(time.RFC3339), err)
		}
		ap[i], f107[i], f107a[i] = drv.Ap, drv.F107, drv.F107A
	}
	ds.Ap, ds.F107, ds.F107A = ap, f107, f107a
	return nil
}

// at returns &v[i], or nil when v is nil.
func at(v []float64, i int) *float64 {
	if v == nil {
		return nil
	}
	return &v[i]
}

// indexSource looks indices up one at a time when src supports it.
func indexSource(src Source) spaceweather.IndexSource {
	if s, ok := src.(spaceweather.IndexSource); ok {
		return s
	}
	return driversSource{src}
}

// driversSource serves each index from a full Drivers lookup.
type driversSource struct{ Source }

func (s driversSource) DailyAp(t time.Time) (float64, error) {
	d, err := s.Drivers(t)
	return d.Ap, err
}

func (s driversSource) PrevF107(t time.Time) (float64, error) {
	d, err := s.Drivers(t)
	return d.F107, err
}

func (s driversSource) F107A(t time.Time) (float64, error) {
	d, err := s.Drivers(t)
	return d.F107A, err
}

// broadcastIndex returns nil for a missing index, otherwise one value per
// time.
func broadcastIndex(name string, v []float64, nTime int) ([]float64, error) {
	switch len(v) {
	case 0:
		if v != nil {
			return nil, fmt.Errorf("%w: %s is empty", ErrShape, name)
		}
		return nil, nil
	case nTime:
		return append([]float64(nil), v...), nil
	case 1:
		out := make([]float64, nTime)
		for i := range out {
			out[i] = v[0]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s has %d values, want 1 or %d", ErrShape, name, len(v), nTime)
	}
}

func resolveLST(spec *Spec, ds *Dataset) error {
	nTime, nLon := len(spec.Times), len(spec.Lons)
	if spec.LST != nil {
		lst, err := spec.LST.Broadcast(nTime, nLon)
		if err != nil {
			return err
		}
		ds.LST = lst
		return nil
	}

	ds.LST = make([]float64, nTime*nLon)
	for ti, t := range spec.Times {
		_, _, sec := msis.TimeFields(t)
		for li, lon := range spec.Lons {
			ds.LST[ti*nLon+li] = msis.SolarTime(sec, lon)
		}
	}
	return nil
}

// resolveApHistory returns per-time ap arrays and the flags to use.
func (e *Evaluator) resolveApHistory(spec *Spec) ([][]float64, []int, error) {
	if !spec.ApHistory {
		return nil, spec.Flags, nil
	}
	hist, ok := e.source.(ApHistory)
	if !ok {
		return nil, nil, fmt.Errorf("space weather source does not provide ap history")
	}

	out := make([][]float64, len(spec.Times))
	for i, t := range spec.Times {
		a, err := hist.ApArray(t)
		if err != nil {
			return nil, nil, fmt.Errorf("ap history for %s: %w", t.UTC().Format(time.RFC3339), err)
		}
		out[i] = a[:]
	}
	return out, msis.ApModeFlags(spec.Flags), nil
}
