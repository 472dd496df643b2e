package grid

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"

	"github.com/KI7MT/ki7mt-msis/internal/msis"
)

var dims4 = []string{"time", "alt", "lat", "lon"}

// WriteNetCDF writes the dataset to a classic NetCDF file with
// dimensions (time, alt, lat, lon). Every variable carries long_name and
// units attributes.
func WriteNetCDF(path string, ds *Dataset) error {
	shape := ds.Shape()
	h := cdf.NewHeader(dims4, shape[:])
	h.AddAttribute("", "title", "NRLMSISE-00 model atmosphere")
	h.AddAttribute("", "method", ds.Method.String())

	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "long_name", "Time")
	h.AddAttribute("time", "units", "seconds since 1970-01-01 00:00:00")
	for _, c := range []struct{ name, long, units string }{
		{"alt", "Altitude", "km"},
		{"lat", "Geodetic latitude", "degrees_north"},
		{"lon", "Geodetic longitude", "degrees_east"},
	} {
		h.AddVariable(c.name, []string{c.name}, []float64{0})
		h.AddAttribute(c.name, "long_name", c.long)
		h.AddAttribute(c.name, "units", c.units)
	}

	for _, f := range msis.OutputFields {
		h.AddVariable(f.Name, dims4, []float64{0})
		h.AddAttribute(f.Name, "long_name", f.LongName)
		h.AddAttribute(f.Name, "units", f.Units)
	}

	h.AddVariable("lst", []string{"time", "lon"}, []float64{0})
	h.AddAttribute("lst", "long_name", "Mean Local Solar Time")
	h.AddAttribute("lst", "units", "h")

	for _, f := range IndexFields {
		h.AddVariable(f.Name, []string{"time"}, []float64{0})
		h.AddAttribute(f.Name, "long_name", f.LongName)
		h.AddAttribute(f.Name, "units", f.Units)
	}

	h.Define()

	ff, err := os.Create(path)
	if err != nil {
		return err
	}
	f, err := cdf.Create(ff, h) // writes the header to ff
	if err != nil {
		ff.Close()
		return err
	}

	times := make([]float64, len(ds.Times))
	for i, t := range ds.Times {
		times[i] = float64(t.UnixNano()) / 1e9
	}

	vars := map[string][]float64{
		"time":  times,
		"alt":   ds.Alts,
		"lat":   ds.Lats,
		"lon":   ds.Lons,
		"lst":   ds.LST,
		"Ap":    ds.Ap,
		"f107":  ds.F107,
		"f107a": ds.F107A,
	}
	for i, field := range msis.OutputFields {
		vars[field.Name] = ds.Vars[i]
	}
	for name, data := range vars {
		if err := writeNCF(f, name, data); err != nil {
			ff.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return ff.Close()
}

func writeNCF(f *cdf.File, name string, data []float64) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	_, err := w.Write(data)
	return err
}

// ReadNetCDFVar reads one float64 variable and its dimension lengths.
func ReadNetCDFVar(path, name string) ([]float64, []int, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer ff.Close()

	f, err := cdf.Open(ff)
	if err != nil {
		return nil, nil, err
	}
	dims := f.Header.Lengths(name)
	if dims == nil {
		return nil, nil, fmt.Errorf("variable %s not found", name)
	}
	n := 1
	for _, d := range dims {
		n *= d
	}
	r := f.Reader(name, nil, nil)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, nil, err
	}
	data, ok := buf.([]float64)
	if !ok {
		return nil, nil, fmt.Errorf("variable %s is not float64", name)
	}
	return data, dims, nil
}
