package grid

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

// parquetBatch is the number of rows buffered per Write call.
const parquetBatch = 10000

// PointRow is one grid point in flat (long) form.
type PointRow struct {
	Time   int64   `parquet:"time"` // Unix milliseconds UTC
	Alt    float64 `parquet:"alt"`
	Lat    float64 `parquet:"lat"`
	Lon    float64 `parquet:"lon"`
	LST    float64 `parquet:"lst"`
	Ap     float64 `parquet:"ap"`
	F107   float64 `parquet:"f107"`
	F107A  float64 `parquet:"f107a"`
	He     float64 `parquet:"he"`
	O      float64 `parquet:"o"`
	N2     float64 `parquet:"n2"`
	O2     float64 `parquet:"o2"`
	Ar     float64 `parquet:"ar"`
	Rho    float64 `parquet:"rho"`
	H      float64 `parquet:"h"`
	N      float64 `parquet:"n"`
	AnomO  float64 `parquet:"anomo"`
	Texo   float64 `parquet:"texo"`
	Talt   float64 `parquet:"talt"`
	Method string  `parquet:"method"`
}

// Row returns grid point i in flat form.
func (d *Dataset) Row(i int) PointRow {
	ti, ai, lai, loi := d.Coords(i)
	v := func(k int) float64 { return d.Vars[k][i] }
	return PointRow{
		Time:   d.Times[ti].UnixMilli(),
		Alt:    d.Alts[ai],
		Lat:    d.Lats[lai],
		Lon:    d.Lons[loi],
		LST:    d.LST[ti*len(d.Lons)+loi],
		Ap:     d.Ap[ti],
		F107:   d.F107[ti],
		F107A:  d.F107A[ti],
		He:     v(0),
		O:      v(1),
		N2:     v(2),
		O2:     v(3),
		Ar:     v(4),
		Rho:    v(5),
		H:      v(6),
		N:      v(7),
		AnomO:  v(8),
		Texo:   v(9),
		Talt:   v(10),
		Method: d.Method.String(),
	}
}

// WriteParquet writes one row per grid point.
func WriteParquet(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := parquet.NewGenericWriter[PointRow](f)
	rows := make([]PointRow, 0, parquetBatch)
	n := ds.Len()
	for i := 0; i < n; i++ {
		rows = append(rows, ds.Row(i))
		if len(rows) == cap(rows) || i == n-1 {
			if _, err := w.Write(rows); err != nil {
				f.Close()
				return fmt.Errorf("parquet write: %w", err)
			}
			rows = rows[:0]
		}
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("parquet close: %w", err)
	}
	return f.Close()
}

// ReadParquet reads rows written by WriteParquet.
func ReadParquet(path string) ([]PointRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, err
	}

	reader := parquet.NewGenericReader[PointRow](pf)
	defer reader.Close()

	rows := make([]PointRow, pf.NumRows())
	n, err := reader.Read(rows)
	if n == len(rows) {
		return rows, nil
	}
	if err != nil {
		return nil, err
	}
	return rows[:n], nil
}
