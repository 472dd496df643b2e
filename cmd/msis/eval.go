package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/KI7MT/ki7mt-msis/internal/msis"
	"github.com/KI7MT/ki7mt-msis/internal/spaceweather"
)

var evalOpts struct {
	when      string
	year      int
	doy       int
	sec       float64
	alt       float64
	lat       float64
	lon       float64
	lst       float64
	f107a     float64
	f107      float64
	ap        float64
	apA       []float64
	flags     []int
	method    string
	apHistory bool
	asJSON    bool
}

func init() {
	rootCmd.AddCommand(evalCmd)

	f := evalCmd.Flags()
	f.StringVar(&evalOpts.when, "time", "", "UTC time (RFC3339); replaces --year/--doy/--sec")
	f.IntVar(&evalOpts.year, "year", 2000, "year (ignored by the model)")
	f.IntVar(&evalOpts.doy, "doy", 1, "day of year")
	f.Float64Var(&evalOpts.sec, "sec", 0, "seconds into the day (UT)")
	f.Float64Var(&evalOpts.alt, "alt", 400, "altitude [km]")
	f.Float64Var(&evalOpts.lat, "lat", 0, "geodetic latitude [deg N]")
	f.Float64Var(&evalOpts.lon, "lon", 0, "geodetic longitude [deg E]")
	f.Float64Var(&evalOpts.lst, "lst", 0, "local solar time [h] (default sec/3600 + lon/15)")
	f.Float64Var(&evalOpts.f107a, "f107a", 0, "81-day average F10.7 (default from space weather table)")
	f.Float64Var(&evalOpts.f107, "f107", 0, "previous day F10.7 (default from space weather table)")
	f.Float64Var(&evalOpts.ap, "ap", 0, "daily Ap (default from space weather table)")
	f.Float64SliceVar(&evalOpts.apA, "ap-a", nil, "7-element ap history")
	f.IntSliceVar(&evalOpts.flags, "flags", nil, "24 model switches")
	f.StringVar(&evalOpts.method, "method", "gtd7", "entry point: gtd7 or gtd7d")
	f.BoolVar(&evalOpts.apHistory, "ap-history", false, "fill --ap-a from the space weather table and set switch 9 to -1")
	f.BoolVar(&evalOpts.asJSON, "json", false, "print JSON")
}

// evalCmd evaluates the model at one point.
var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate the model at one point",
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := msis.ParseMethod(evalOpts.method)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		o := evalOpts

		req := msis.Request{
			Year:  o.year,
			DOY:   o.doy,
			Sec:   o.sec,
			Alt:   o.alt,
			GLat:  o.lat,
			GLong: o.lon,
			F107A: o.f107a,
			F107:  o.f107,
			Ap:    o.ap,
			ApA:   o.apA,
			Flags: o.flags,
		}
		// Index lookups use --time, or --year/--doy/--sec when it is not given.
		t := msis.FieldsTime(o.year, o.doy, o.sec)
		if o.when != "" {
			if t, err = time.Parse(time.RFC3339, o.when); err != nil {
				return fmt.Errorf("invalid --time: %w", err)
			}
			req.Year, req.DOY, req.Sec = msis.TimeFields(t)
		}

		indices := !flags.Changed("f107a") || !flags.Changed("f107") || !flags.Changed("ap")
		if indices || o.apHistory {
			table, err := loadTable(cmd.Context())
			if err != nil {
				return err
			}
			if indices {
				drv, err := spaceweather.ResolveDrivers(table, t,
					given(flags.Changed("ap"), o.ap),
					given(flags.Changed("f107"), o.f107),
					given(flags.Changed("f107a"), o.f107a))
				if err != nil {
					return err
				}
				req.Ap, req.F107, req.F107A = drv.Ap, drv.F107, drv.F107A
			}
			if o.apHistory {
				hist, err := table.ApArray(t)
				if err != nil {
					return err
				}
				req.ApA = hist[:]
				req.Flags = msis.ApModeFlags(o.flags)
			}
		}

		req.LST = msis.SolarTime(req.Sec, req.GLong)
		if flags.Changed("lst") {
			req.LST = o.lst
		}

		adapter := msis.NewAdapter(msis.Native(), log)
		res, err := adapter.Compute(method, req)
		if err != nil {
			return err
		}
		return printResult(method, req, res, o.asJSON)
	},
}

// given returns &v when the flag was set.
func given(changed bool, v float64) *float64 {
	if !changed {
		return nil
	}
	return &v
}

func printResult(method msis.Method, req msis.Request, res msis.Result, asJSON bool) error {
	si := len(req.Flags) == msis.FlagsLen && req.Flags[msis.SwitchUnits] == 1
	molw := msis.MeanMolecularMass(res, method, si)
	h := msis.ScaleHeight(req.Alt, req.GLat, molw, res.Temperatures[msis.TempAltitude])

	if asJSON {
		out := map[string]any{
			"method":       method.String(),
			"input":        req,
			"densities":    res.Densities,
			"temperatures": res.Temperatures,
			"molw":         finite(molw),
			"scale_height": finite(h),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("%s  year=%d doy=%d sec=%.1f alt=%.1f lat=%.2f lon=%.2f lst=%.3f\n",
		method, req.Year, req.DOY, req.Sec, req.Alt, req.GLat, req.GLong, req.LST)
	fmt.Printf("      f107a=%.1f f107=%.1f ap=%.1f\n\n", req.F107A, req.F107, req.Ap)
	for i, v := range res.Flat() {
		f := msis.OutputFields[i]
		units := f.Units
		if si {
			units = siUnits(units)
		}
		fmt.Printf("  %-6s %14.6e  %-8s %s\n", f.Name, v, units, f.LongName)
	}
	fmt.Printf("\n  %-6s %14.6e  %-8s %s\n", "molw", molw, "kg/mol", "Mean molecular mass")
	fmt.Printf("  %-6s %14.6e  %-8s %s\n", "Hs", h, "m", "Scale height")
	return nil
}

// finite returns nil for NaN and infinities, which JSON cannot encode.
func finite(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func siUnits(cgs string) string {
	switch cgs {
	case "cm^-3":
		return "m^-3"
	case "g cm^-3":
		return "kg m^-3"
	}
	return cgs
}
