package spaceweather

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/KI7MT/ki7mt-msis/internal/msis"
)

// f107aHalfWindow is the half width in days of the centred F10.7 mean.
const f107aHalfWindow = 40

// Drivers are the daily model inputs for one date.
type Drivers struct {
	Ap    float64 // daily Ap of the date
	F107  float64 // observed F10.7 of the previous day
	F107A float64 // 81-day centred mean of observed F10.7
}

// Table is an immutable, date-indexed set of days.
type Table struct {
	days  []Day
	index map[int64]int
}

// NewTable builds a table. Days are sorted by date; a later duplicate
// replaces an earlier one.
func NewTable(days []Day) *Table {
	byDay := make(map[int64]Day, len(days))
	for _, d := range days {
		d.Date = Truncate(d.Date)
		byDay[DayNumber(d.Date)] = d
	}

	t := &Table{
		days:  make([]Day, 0, len(byDay)),
		index: make(map[int64]int, len(byDay)),
	}
	for _, d := range byDay {
		t.days = append(t.days, d)
	}
	sort.Slice(t.days, func(i, j int) bool { return t.days[i].Date.Before(t.days[j].Date) })
	for i, d := range t.days {
		t.index[DayNumber(d.Date)] = i
	}
	return t
}

// Len returns the number of days.
func (t *Table) Len() int {
	return len(t.days)
}

// Range returns the first and last date. Both are zero for an empty table.
func (t *Table) Range() (first, last time.Time) {
	if len(t.days) == 0 {
		return time.Time{}, time.Time{}
	}
	return t.days[0].Date, t.days[len(t.days)-1].Date
}

// Days returns the days within [start, end]. Zero bounds are open.
func (t *Table) Days(start, end time.Time) []Day {
	var out []Day
	for _, d := range t.days {
		if !start.IsZero() && d.Date.Before(Truncate(start)) {
			continue
		}
		if !end.IsZero() && d.Date.After(Truncate(end)) {
			break
		}
		out = append(out, d)
	}
	return out
}

// Day returns the indices for ts's UTC date.
func (t *Table) Day(ts time.Time) (Day, error) {
	return t.dayAt(DayNumber(ts))
}

func (t *Table) dayAt(n int64) (Day, error) {
	i, ok := t.index[n]
	if !ok {
		return Day{}, fmt.Errorf("%w for %s", ErrNoData, time.Unix(n*86400, 0).UTC().Format("2006-01-02"))
	}
	return t.days[i], nil
}

// F107A returns the mean observed F10.7 over the 81 days centred on ts's
// date. Days without an observation are skipped; at the end of the record
// the window is truncated.
func (t *Table) F107A(ts time.Time) (float64, error) {
	n := DayNumber(ts)
	if _, err := t.dayAt(n); err != nil {
		return 0, err
	}

	vals := make([]float64, 0, 2*f107aHalfWindow+1)
	for k := n - f107aHalfWindow; k <= n+f107aHalfWindow; k++ {
		d, err := t.dayAt(k)
		if err != nil || d.Missing.Has(MissingF107) {
			continue
		}
		vals = append(vals, d.F107Obs)
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("%w: no F10.7 observations around %s", ErrNoData, ts.UTC().Format("2006-01-02"))
	}
	return floats.Sum(vals) / float64(len(vals)), nil
}

// DailyAp returns the daily Ap of ts's date.
func (t *Table) DailyAp(ts time.Time) (float64, error) {
	day, err := t.dayAt(DayNumber(ts))
	if err != nil {
		return 0, err
	}
	if day.Missing.Has(MissingAp) {
		return 0, fmt.Errorf("%w: Ap missing for %s", ErrNoData, day.Date.Format("2006-01-02"))
	}
	return day.DayAp, nil
}

// PrevF107 returns the observed F10.7 of the day before ts's date.
func (t *Table) PrevF107(ts time.Time) (float64, error) {
	prev, err := t.dayAt(DayNumber(ts) - 1)
	if err != nil {
		return 0, err
	}
	if prev.Missing.Has(MissingF107) {
		return 0, fmt.Errorf("%w: F10.7 missing for %s", ErrNoData, prev.Date.Format("2006-01-02"))
	}
	return prev.F107Obs, nil
}

// Drivers returns the daily Ap, the previous day's F10.7 and the centred
// F10.7 mean for ts's date.
func (t *Table) Drivers(ts time.Time) (Drivers, error) {
	return ResolveDrivers(t, ts, nil, nil, nil)
}

// IndexSource looks up each daily driver on its own.
type IndexSource interface {
	DailyAp(ts time.Time) (float64, error)
	PrevF107(ts time.Time) (float64, error)
	F107A(ts time.Time) (float64, error)
}

// ResolveDrivers returns the drivers at ts. Non-nil ap, f107 and f107a
// are used as given; only the others are looked up in src, so a gap in
// one index does not affect the rest.
func ResolveDrivers(src IndexSource, ts time.Time, ap, f107, f107a *float64) (Drivers, error) {
	var (
		d   Drivers
		err error
	)
	if ap != nil {
		d.Ap = *ap
	} else if d.Ap, err = src.DailyAp(ts); err != nil {
		return Drivers{}, err
	}
	if f107 != nil {
		d.F107 = *f107
	} else if d.F107, err = src.PrevF107(ts); err != nil {
		return Drivers{}, err
	}
	if f107a != nil {
		d.F107A = *f107a
	} else if d.F107A, err = src.F107A(ts); err != nil {
		return Drivers{}, err
	}
	return d, nil
}

// ApArray returns the magnetic history at ts: daily Ap, the 3-hour ap of
// the current interval and the three before it, and the means of the
// eight intervals 12-33 h and 36-57 h before.
func (t *Table) ApArray(ts time.Time) (msis.ApArray, error) {
	var a msis.ApArray

	day, err := t.Day(ts)
	if err != nil {
		return a, err
	}
	a[0] = day.DayAp

	u := ts.UTC()
	k := DayNumber(u)*BucketsPerDay + int64(u.Hour()/3)

	for i := 0; i < 4; i++ {
		if a[1+i], err = t.ap3h(k - int64(i)); err != nil {
			return msis.ApArray{}, err
		}
	}
	if a[5], err = t.apMean(k-11, k-4); err != nil {
		return msis.ApArray{}, err
	}
	if a[6], err = t.apMean(k-19, k-12); err != nil {
		return msis.ApArray{}, err
	}
	return a, nil
}

// ap3h returns the ap value of 3-hour slot k counted from 1970-01-01 00 UT.
func (t *Table) ap3h(k int64) (float64, error) {
	n := k / BucketsPerDay
	b := k % BucketsPerDay
	if b < 0 {
		n--
		b += BucketsPerDay
	}
	d, err := t.dayAt(n)
	if err != nil {
		return 0, err
	}
	if d.Missing.Has(MissingAp) {
		return 0, fmt.Errorf("%w: ap missing for %s", ErrNoData, d.Date.Format("2006-01-02"))
	}
	return d.Ap[b], nil
}

func (t *Table) apMean(from, to int64) (float64, error) {
	vals := make([]float64, 0, to-from+1)
	for k := from; k <= to; k++ {
		v, err := t.ap3h(k)
		if err != nil {
			return 0, err
		}
		vals = append(vals, v)
	}
	return floats.Sum(vals) / float64(len(vals)), nil
}
