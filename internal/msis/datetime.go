package msis

import "time"

// Options are the optional parts of a time-based evaluation.
type Options struct {
	LST    *float64 // local solar time [h], derived from time and longitude when nil
	ApA    []float64
	Flags  []int
	Method Method
}

// TimeFields splits t (converted to UTC) into the model's year, day of
// year and seconds of day.
func TimeFields(t time.Time) (year, doy int, sec float64) {
	t = t.UTC()
	sec = float64(t.Hour()*3600+t.Minute()*60+t.Second()) + float64(t.Nanosecond())*1e-9
	return t.Year(), t.YearDay(), sec
}

// FieldsTime is the inverse of TimeFields.
func FieldsTime(year, doy int, sec float64) time.Time {
	t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
	return t.Add(time.Duration(sec * float64(time.Second)))
}

// SolarTime returns the local solar time [h] approximated from seconds
// of day and geodetic longitude [deg E].
func SolarTime(sec, lon float64) float64 {
	return sec/3600 + lon/15
}

// AtTime evaluates the model at a point in time and space. alt is in km,
// lat and lon are geodetic degrees.
func (a *Adapter) AtTime(t time.Time, alt, lat, lon, f107a, f107, ap float64, opts Options) (Result, error) {
	year, doy, sec := TimeFields(t)
	lst := SolarTime(sec, lon)
	if opts.LST != nil {
		lst = *opts.LST
	}
	return a.Compute(opts.Method, Request{
		Year:  year,
		DOY:   doy,
		Sec:   sec,
		Alt:   alt,
		GLat:  lat,
		GLong: lon,
		LST:   lst,
		F107A: f107a,
		F107:  f107,
		Ap:    ap,
		ApA:   opts.ApA,
		Flags: opts.Flags,
	})
}
