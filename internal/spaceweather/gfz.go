package spaceweather

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/pgzip"
)

// parseGFZLine parses one data line from the GFZ Kp file.
// Format (whitespace-delimited):
//
//	Col  0: Year
//	Col  1: Month
//	Col  2: Day
//	Col  3: Days (since 1932-01-01)
//	Col  4: Days_m (mid-day)
//	Col  5: Bsr (Bartels rotation)
//	Col  6: dB (day within rotation)
//	Col  7-14: Kp1..Kp8 (3-hourly, decimal 0.000-9.000)
//	Col 15-22: ap1..ap8 (3-hourly)
//	Col 23: Ap (daily)
//	Col 24: SN (sunspot number)
//	Col 25: F10.7obs
//	Col 26: F10.7adj
//	Col 27: D (definitive flag, optional)
//
// Missing values are -1.000 or -1.
func parseGFZLine(line string) (Day, bool) {
	fields := strings.Fields(line)
	if len(fields) < 27 {
		return Day{}, false
	}

	year, err := strconv.Atoi(fields[0])
	if err != nil || year < 1900 || year > 2100 {
		return Day{}, false
	}
	month, _ := strconv.Atoi(fields[1])
	day, _ := strconv.Atoi(fields[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Day{}, false
	}

	d := Day{
		Date: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC),
	}

	// Kp values: columns 7-14
	for i := 0; i < BucketsPerDay; i++ {
		if v, ok := parseValue(fields[7+i]); ok {
			d.Kp[i] = v
		} else {
			d.Missing |= MissingKp
		}
	}

	// ap values: columns 15-22
	for i := 0; i < BucketsPerDay; i++ {
		if v, ok := parseValue(fields[15+i]); ok {
			d.Ap[i] = v
		} else {
			d.Missing |= MissingAp
		}
	}

	// Daily Ap: column 23
	if v, ok := parseValue(fields[23]); ok {
		d.DayAp = v
	} else {
		d.Missing |= MissingAp
	}

	// SSN: column 24
	if v, ok := parseValue(fields[24]); ok {
		d.SSN = v
	} else {
		d.Missing |= MissingSSN
	}

	// F10.7 observed: column 25
	if v, ok := parseValue(fields[25]); ok && v > 0 {
		d.F107Obs = v
	} else {
		d.Missing |= MissingF107
	}

	// F10.7 adjusted: column 26
	if v, ok := parseValue(fields[26]); ok && v > 0 {
		d.F107Adj = v
	}

	if len(fields) > 27 {
		d.Def, _ = strconv.Atoi(fields[27])
	}

	return d, true
}

func parseValue(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// Parse reads a GFZ file and returns every day it contains, in file order.
func Parse(r io.Reader) ([]Day, error) {
	return ParseRange(r, time.Time{}, time.Time{})
}

// ParseRange reads a GFZ file and returns days within [start, end].
// A zero start or end leaves that side unbounded.
func ParseRange(r io.Reader, start, end time.Time) ([]Day, error) {
	var days []Day
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		d, ok := parseGFZLine(line)
		if !ok {
			continue
		}

		if !start.IsZero() && d.Date.Before(start) {
			continue
		}
		if !end.IsZero() && d.Date.After(end) {
			continue
		}

		days = append(days, d)
	}

	return days, scanner.Err()
}

// ParseFile reads a GFZ file from disk. Files ending in .gz are
// decompressed with parallel gzip.
func ParseFile(path string, start, end time.Time) ([]Day, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}

	days, err := ParseRange(reader, start, end)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return days, nil
}
