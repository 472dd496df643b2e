package grid

import "fmt"

// LST is an explicit local solar time array of up to two dimensions,
// stored row-major.
type LST struct {
	Shape []int
	Data  []float64
}

// ScalarLST is one local solar time for every time and longitude.
func ScalarLST(v float64) *LST {
	return &LST{Data: []float64{v}}
}

// VectorLST is a 1-D local solar time array, per longitude when its
// length matches the longitudes, otherwise per time.
func VectorLST(v []float64) *LST {
	return &LST{Shape: []int{len(v)}, Data: v}
}

// MatrixLST is a 2-D local solar time array given as rows. Rows must
// have equal length.
func MatrixLST(rows [][]float64) (*LST, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty LST matrix", ErrShape)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: LST row %d has %d columns, want %d", ErrShape, i, len(r), cols)
		}
		data = append(data, r...)
	}
	return &LST{Shape: []int{len(rows), cols}, Data: data}, nil
}

// Broadcast expands the array to (nTime, nLon), row-major.
//
// A 1-D array whose length equals nLon is per longitude, which takes
// precedence; otherwise its length must be 1 or nTime. A 2-D array of
// shape (1|nLon, 1|nTime) is read as (lon, time) and transposed; otherwise
// it must be (1|nTime, 1|nLon).
func (l *LST) Broadcast(nTime, nLon int) ([]float64, error) {
	size := 1
	for _, n := range l.Shape {
		size *= n
	}
	if size != len(l.Data) {
		return nil, fmt.Errorf("%w: LST shape %v does not match %d values", ErrShape, l.Shape, len(l.Data))
	}

	out := make([]float64, nTime*nLon)
	var at func(t, lo int) float64

	switch len(l.Shape) {
	case 0:
		at = func(int, int) float64 { return l.Data[0] }

	case 1:
		n := l.Shape[0]
		switch {
		case n == nLon:
			at = func(_, lo int) float64 { return l.Data[lo] }
		case n == 1:
			at = func(int, int) float64 { return l.Data[0] }
		case n == nTime:
			at = func(t, _ int) float64 { return l.Data[t] }
		default:
			return nil, fmt.Errorf("%w: 1-D LST of length %d matches neither %d times nor %d longitudes",
				ErrShape, n, nTime, nLon)
		}

	case 2:
		r, c := l.Shape[0], l.Shape[1]
		pick := func(i, n int) int {
			if n == 1 {
				return 0
			}
			return i
		}
		switch {
		case (r == 1 || r == nLon) && (c == 1 || c == nTime):
			at = func(t, lo int) float64 { return l.Data[pick(lo, r)*c+pick(t, c)] }
		case (r == 1 || r == nTime) && (c == 1 || c == nLon):
			at = func(t, lo int) float64 { return l.Data[pick(t, r)*c+pick(lo, c)] }
		default:
			return nil, fmt.Errorf("%w: 2-D LST of shape (%d, %d) cannot broadcast to (%d, %d)",
				ErrShape, r, c, nTime, nLon)
		}

	default:
		return nil, fmt.Errorf("%w: only up to 2-D arrays are supported for LST, got %d dimensions",
			ErrShape, len(l.Shape))
	}

	for t := 0; t < nTime; t++ {
		for lo := 0; lo < nLon; lo++ {
			out[t*nLon+lo] = at(t, lo)
		}
	}
	return out, nil
}
