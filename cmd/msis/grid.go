package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KI7MT/ki7mt-msis/internal/common"
	"github.com/KI7MT/ki7mt-msis/internal/grid"
	"github.com/KI7MT/ki7mt-msis/internal/msis"
)

var gridOpts struct {
	start, end string
	step       time.Duration
	alts       string
	lats       string
	lons       string
	lst        float64
	f107a      float64
	f107       float64
	ap         float64
	apA        []float64
	flags      []int
	method     string
	apHistory  bool
	out        string
	clickhouse bool
	chTable    string
	runID      string
	workers    int
}

func init() {
	rootCmd.AddCommand(gridCmd)

	f := gridCmd.Flags()
	f.StringVar(&gridOpts.start, "start", "", "first UTC time (RFC3339, required)")
	f.StringVar(&gridOpts.end, "end", "", "last UTC time (RFC3339, default --start)")
	f.DurationVar(&gridOpts.step, "step", time.Hour, "time step")
	f.StringVar(&gridOpts.alts, "alt", "100:1000:50", "altitudes [km] as start:stop:step or a comma list")
	f.StringVar(&gridOpts.lats, "lat", "-90:90:10", "latitudes [deg N] as start:stop:step or a comma list")
	f.StringVar(&gridOpts.lons, "lon", "-180:180:15", "longitudes [deg E] as start:stop:step or a comma list")
	f.Float64Var(&gridOpts.lst, "lst", 0, "local solar time [h] for every point (default derived from time and longitude)")
	f.Float64Var(&gridOpts.f107a, "f107a", 0, "81-day average F10.7 (default from space weather table)")
	f.Float64Var(&gridOpts.f107, "f107", 0, "previous day F10.7 (default from space weather table)")
	f.Float64Var(&gridOpts.ap, "ap", 0, "daily Ap (default from space weather table)")
	f.Float64SliceVar(&gridOpts.apA, "ap-a", nil, "7-element ap history used at every point")
	f.IntSliceVar(&gridOpts.flags, "flags", nil, "24 model switches")
	f.StringVar(&gridOpts.method, "method", "gtd7", "entry point: gtd7 or gtd7d")
	f.BoolVar(&gridOpts.apHistory, "ap-history", false, "fill ap_a per time from the space weather table and set switch 9 to -1")
	f.StringVarP(&gridOpts.out, "out", "o", "", "output file, .nc or .parquet (default <data dir>/grid/msis-<start>.nc)")
	f.BoolVar(&gridOpts.clickhouse, "clickhouse", false, "also insert the grid into ClickHouse")
	f.StringVar(&gridOpts.chTable, "ch-table", "model_runs", "ClickHouse table")
	f.StringVar(&gridOpts.runID, "run-id", "", "run identifier for ClickHouse rows (default output file name)")
	f.IntVar(&gridOpts.workers, "workers", 0, "parallel workers (default MSIS_WORKERS)")
}

// gridCmd evaluates the model over a 4-D grid.
var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Evaluate the model over a time x altitude x latitude x longitude grid",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()
		o := gridOpts

		method, err := msis.ParseMethod(o.method)
		if err != nil {
			return err
		}
		times, err := timeRange(o.start, o.end, o.step)
		if err != nil {
			return err
		}
		spec := &grid.Spec{
			Times:     times,
			ApA:       o.apA,
			Flags:     o.flags,
			Method:    method,
			ApHistory: o.apHistory,
		}
		if spec.Alts, err = parseAxis("alt", o.alts); err != nil {
			return err
		}
		if spec.Lats, err = parseAxis("lat", o.lats); err != nil {
			return err
		}
		if spec.Lons, err = parseAxis("lon", o.lons); err != nil {
			return err
		}
		if flags.Changed("lst") {
			spec.LST = grid.ScalarLST(o.lst)
		}
		if flags.Changed("f107a") {
			spec.F107A = []float64{o.f107a}
		}
		if flags.Changed("f107") {
			spec.F107 = []float64{o.f107}
		}
		if flags.Changed("ap") {
			spec.Ap = []float64{o.ap}
		}

		var source grid.Source
		if spec.Ap == nil || spec.F107 == nil || spec.F107A == nil || spec.ApHistory {
			table, err := loadTable(ctx)
			if err != nil {
				return err
			}
			source = table
		}

		out := o.out
		if out == "" {
			out = filepath.Join(cfg.GridDataDir(), fmt.Sprintf("msis-%s.nc", times[0].Format("20060102T150405")))
		}
		ext := strings.ToLower(filepath.Ext(out))
		if ext != ".nc" && ext != ".parquet" {
			return fmt.Errorf("unsupported output %q, want .nc or .parquet", out)
		}

		workers := o.workers
		if workers <= 0 {
			workers = cfg.Workers
		}

		shape := spec.Shape()
		common.Banner(log, "MSIS Grid v%s", Version)
		log.Infof("Model:   %s (%s)", msis.Native().Name(), method)
		log.Infof("Shape:   %d times x %d alts x %d lats x %d lons = %d points",
			shape[0], shape[1], shape[2], shape[3], shape[0]*shape[1]*shape[2]*shape[3])
		log.Infof("Workers: %d", workers)
		log.Infof("Output:  %s", out)

		stats := common.NewStats(log)
		ev := grid.NewEvaluator(msis.NewAdapter(msis.Native(), log), source, workers, log)
		ev.SetStats(stats)

		t0 := time.Now()
		stats.StartReporter()
		ds, err := ev.Evaluate(ctx, spec)
		stats.StopReporter()
		if err != nil {
			return err
		}
		evalTime := time.Since(t0)

		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			return err
		}
		switch ext {
		case ".nc":
			err = grid.WriteNetCDF(out, ds)
		case ".parquet":
			err = grid.WriteParquet(out, ds)
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}

		inserted := 0
		if o.clickhouse {
			runID := o.runID
			if runID == "" {
				runID = strings.TrimSuffix(filepath.Base(out), ext)
			}
			w, err := grid.DialClickHouseWriter(ctx, cfg.ClickHouseAddr(), cfg.ClickHouseDatabase, o.chTable, log)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.EnsureTable(ctx); err != nil {
				return fmt.Errorf("create table: %w", err)
			}
			if inserted, err = w.Write(ctx, runID, ds); err != nil {
				return err
			}
			log.Infof("Inserted %d rows into %s (run %s)", inserted, w.Table(), runID)
		}

		n := ds.Len()
		common.Banner(log, "Grid Complete")
		log.Infof("Points:  %d", n)
		log.Infof("Eval:    %v (%.0f points/sec)", evalTime.Round(time.Millisecond), float64(n)/evalTime.Seconds())
		log.Infof("Total:   %v", time.Since(t0).Round(time.Millisecond))
		log.Infof("Written: %s", out)
		if inserted > 0 {
			log.Infof("Rows:    %d", inserted)
		}
		return nil
	},
}

// timeRange returns start, start+step, ... up to and including end.
func timeRange(startStr, endStr string, step time.Duration) ([]time.Time, error) {
	if startStr == "" {
		return nil, fmt.Errorf("--start is required")
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return nil, fmt.Errorf("invalid --start: %w", err)
	}
	end := start
	if endStr != "" {
		if end, err = time.Parse(time.RFC3339, endStr); err != nil {
			return nil, fmt.Errorf("invalid --end: %w", err)
		}
	}
	if end.Before(start) {
		return nil, fmt.Errorf("--end %s is before --start %s", endStr, startStr)
	}
	if step <= 0 {
		return nil, fmt.Errorf("--step must be positive")
	}
	var times []time.Time
	for t := start; !t.After(end); t = t.Add(step) {
		times = append(times, t.UTC())
	}
	return times, nil
}

// parseAxis accepts "start:stop:step" (stop included when reached) or a
// comma separated list.
func parseAxis(name, s string) ([]float64, error) {
	if parts := strings.Split(s, ":"); len(parts) == 3 {
		var v [3]float64
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid --%s %q: %w", name, s, err)
			}
			v[i] = f
		}
		start, stop, step := v[0], v[1], v[2]
		if step <= 0 || stop < start {
			return nil, fmt.Errorf("invalid --%s %q: need start <= stop and step > 0", name, s)
		}
		n := int((stop-start)/step+1e-9) + 1
		out := make([]float64, n)
		for i := range out {
			out[i] = start + float64(i)*step
		}
		return out, nil
	}

	var out []float64
	for _, p := range strings.Split(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s %q: %w", name, s, err)
		}
		out = append(out, f)
	}
	return out, nil
}
