// Package spaceweather provides the solar and geomagnetic indices that
// drive NRLMSISE-00: daily Ap, 3-hourly ap history, and observed F10.7
// with its 81-day centred mean.
//
// Indices come from the GFZ Potsdam Kp/ap/Ap/SN/F10.7 file. They can be
// cached in SQLite or ClickHouse and are served from an in-memory Table.
package spaceweather

import (
	"errors"
	"time"
)

// BucketsPerDay is the number of 3-hour ap/Kp intervals in a day.
const BucketsPerDay = 8

// 3-hour bucket start hours (UTC)
var bucketHours = [BucketsPerDay]int{0, 3, 6, 9, 12, 15, 18, 21}

// ErrNoData reports a date outside the table or with missing values.
var ErrNoData = errors.New("no space weather data")

// Day holds one day of indices. Missing values are stored as 0 and
// recorded in the Missing bitmask.
type Day struct {
	Date    time.Time              // 00:00 UTC
	Kp      [BucketsPerDay]float64 // 3-hourly Kp (0-9 scale)
	Ap      [BucketsPerDay]float64 // 3-hourly ap
	DayAp   float64                // daily Ap
	SSN     float64                // sunspot number
	F107Obs float64                // observed F10.7 [sfu]
	F107Adj float64                // F10.7 adjusted to 1 AU [sfu]
	Missing Missing                // values absent in the source
	Def     int                    // GFZ definitive flag (0 nowcast, 1 Kp definitive, 2 all definitive)
}

// Missing flags absent values of a Day.
type Missing uint8

const (
	MissingAp Missing = 1 << iota // one or more 3-hourly ap, or daily Ap
	MissingKp
	MissingSSN
	MissingF107
)

// Has reports whether all bits of m2 are set.
func (m Missing) Has(m2 Missing) bool {
	return m&m2 == m2
}

// DayNumber returns the number of days since 1970-01-01 for t's UTC date.
func DayNumber(t time.Time) int64 {
	s := t.UTC().Unix()
	n := s / 86400
	if s%86400 < 0 {
		n--
	}
	return n
}

// Truncate returns 00:00 UTC of t's UTC date.
func Truncate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
