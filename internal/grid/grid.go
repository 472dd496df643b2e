// Package grid evaluates NRLMSISE-00 over a time x altitude x latitude x
// longitude grid and exports the result as NetCDF, Parquet or ClickHouse
// rows.
package grid

import (
	"errors"
	"fmt"
	"time"

	"github.com/KI7MT/ki7mt-msis/internal/msis"
	"github.com/KI7MT/ki7mt-msis/internal/spaceweather"
)

// NumVars is the number of model outputs per grid point.
const NumVars = msis.NumDensities + msis.NumTemperatures

// ErrShape reports an empty dimension or an index/LST array whose shape
// cannot be broadcast onto the grid.
var ErrShape = errors.New("incompatible shape")

// IndexField describes a daily index variable.
type IndexField struct {
	Name     string
	LongName string
	Units    string
}

// IndexFields lists the per-time index variables written with a Dataset.
var IndexFields = [3]IndexField{
	{"Ap", "Daily Ap index", "nT"},
	{"f107", "Observed solar f10.7 cm radio flux of the previous day", "sfu, 10^-22 W m^-2 Hz^-1"},
	{"f107a", "Observed 81-day running average of the solar f10.7 cm radio flux centred on day", "sfu, 10^-22 W m^-2 Hz^-1"},
}

// Source supplies daily drivers for a time. *spaceweather.Table and
// *spaceweather.Refresher implement it.
type Source interface {
	Drivers(t time.Time) (spaceweather.Drivers, error)
}

// ApHistory supplies the 7-element magnetic history for a time.
type ApHistory interface {
	ApArray(t time.Time) (msis.ApArray, error)
}

// Spec describes one grid evaluation.
type Spec struct {
	Times []time.Time
	Alts  []float64 // km
	Lats  []float64 // deg N
	Lons  []float64 // deg E

	// Explicit indices: nil takes the value from the Source, otherwise a
	// single value or one per time. F107 is the previous day's flux.
	Ap    []float64
	F107  []float64
	F107A []float64

	// LST overrides the local solar time derived from time and longitude.
	LST *LST

	ApA    []float64 // same history for every point
	Flags  []int
	Method msis.Method

	// ApHistory fills ap_a per time from the Source when it implements
	// ApHistory, and sets switch 9 to -1.
	ApHistory bool
}

// Shape returns the grid dimensions (time, alt, lat, lon).
func (s *Spec) Shape() [4]int {
	return [4]int{len(s.Times), len(s.Alts), len(s.Lats), len(s.Lons)}
}

func (s *Spec) validate() error {
	names := [4]string{"time", "alt", "lat", "lon"}
	for i, n := range s.Shape() {
		if n == 0 {
			return fmt.Errorf("%w: dimension %s is empty", ErrShape, names[i])
		}
	}
	return nil
}

// Dataset is an evaluated grid. Output variables are stored row-major in
// (time, alt, lat, lon) order.
type Dataset struct {
	Times []time.Time
	Alts  []float64
	Lats  []float64
	Lons  []float64

	Vars  [NumVars][]float64 // in msis.OutputFields order
	LST   []float64          // (time, lon)
	Ap    []float64          // (time)
	F107  []float64          // (time)
	F107A []float64          // (time)

	Method msis.Method
}

// Shape returns the grid dimensions (time, alt, lat, lon).
func (d *Dataset) Shape() [4]int {
	return [4]int{len(d.Times), len(d.Alts), len(d.Lats), len(d.Lons)}
}

// Len returns the number of grid points.
func (d *Dataset) Len() int {
	s := d.Shape()
	return s[0] * s[1] * s[2] * s[3]
}

// Index returns the flat offset of a grid point.
func (d *Dataset) Index(t, a, la, lo int) int {
	s := d.Shape()
	return ((t*s[1]+a)*s[2]+la)*s[3] + lo
}

// Coords returns the grid indices of a flat offset.
func (d *Dataset) Coords(i int) (t, a, la, lo int) {
	s := d.Shape()
	lo = i % s[3]
	i /= s[3]
	la = i % s[2]
	i /= s[2]
	a = i % s[1]
	t = i / s[1]
	return
}

// Var returns the named output variable, or nil.
func (d *Dataset) Var(name string) []float64 {
	for i, f := range msis.OutputFields {
		if f.Name == name {
			return d.Vars[i]
		}
	}
	return nil
}
