package msis

import (
	"math"
	"testing"
	"time"
)

func TestTimeFields(t *testing.T) {
	ts := time.Date(2009, 6, 21, 8, 3, 20, 500_000_000, time.UTC)
	year, doy, sec := TimeFields(ts)
	if year != 2009 || doy != 172 {
		t.Errorf("year, doy = %d, %d, want 2009, 172", year, doy)
	}
	if math.Abs(sec-29000.5) > 1e-9 {
		t.Errorf("sec = %v, want 29000.5", sec)
	}

	// Non-UTC times are converted first.
	local := time.Date(2009, 6, 21, 0, 30, 0, 0, time.FixedZone("UTC+2", 2*3600))
	year, doy, sec = TimeFields(local)
	if year != 2009 || doy != 171 || sec != 81000 {
		t.Errorf("got %d, %d, %v, want 2009, 171, 81000", year, doy, sec)
	}
}

func TestFieldsTime(t *testing.T) {
	got := FieldsTime(2024, 60, 3600.5)
	want := time.Date(2024, 2, 29, 1, 0, 0, 5e8, time.UTC)
	if !got.Equal(want) {
		t.Errorf("FieldsTime = %v, want %v", got, want)
	}
	if y, d, s := TimeFields(got); y != 2024 || d != 60 || s != 3600.5 {
		t.Errorf("TimeFields(FieldsTime) = %d %d %v", y, d, s)
	}
}

func TestAtTime(t *testing.T) {
	m := &fakeModel{}
	a := NewAdapter(m, quietLogger())
	ts := time.Date(2009, 6, 21, 8, 3, 20, 0, time.UTC)

	if _, err := a.AtTime(ts, 400, 60, -70, 150, 150, 4, Options{}); err != nil {
		t.Fatal(err)
	}
	in := m.calls[0].in
	wantLST := 29000.0/3600 - 70.0/15
	if math.Abs(in.LST-wantLST) > 1e-12 {
		t.Errorf("LST = %v, want %v", in.LST, wantLST)
	}
	if m.calls[0].drag {
		t.Error("default method should be gtd7")
	}

	lst := 16.0
	if _, err := a.AtTime(ts, 400, 60, -70, 150, 150, 4, Options{LST: &lst, Method: MethodEffectiveDrag}); err != nil {
		t.Fatal(err)
	}
	if m.calls[1].in.LST != 16 || !m.calls[1].drag {
		t.Errorf("explicit LST or method ignored: %+v", m.calls[1])
	}
}

func TestScaleHeight(t *testing.T) {
	// At 45 deg the latitude term vanishes.
	molw := 0.0289644
	h := ScaleHeight(0, 45, molw, 288.15)
	want := 8.31446261815324 * 288.15 / (9.80665 * molw)
	if math.Abs(h-want)/want > 1e-9 {
		t.Errorf("ScaleHeight = %v, want %v", h, want)
	}

	// Gravity decreases with altitude so the scale height grows.
	if ScaleHeight(400, 45, molw, 288.15) <= h {
		t.Error("scale height should increase with altitude at fixed temperature")
	}
}

func TestMeanMolecularMass(t *testing.T) {
	// Pure N2 in cgs units.
	n := 1e10
	mN2 := 28.0134e-3 / avogadro // kg per molecule
	r := Result{Densities: make([]float64, NumDensities), Temperatures: make([]float64, NumTemperatures)}
	r.Densities[DensityN2] = n
	r.Densities[DensityTotal] = n * mN2 * 1e3 // g cm^-3
	r.Densities[DensityAnomO] = 1e8          // not in the gtd7 total

	got := MeanMolecularMass(r, MethodStandard, false)
	if math.Abs(got-28.0134e-3)/28.0134e-3 > 1e-9 {
		t.Errorf("MeanMolecularMass = %v, want 0.0280134", got)
	}

	if !math.IsNaN(MeanMolecularMass(Result{}, MethodStandard, false)) {
		t.Error("empty result should give NaN")
	}
}

func TestMeanMolecularMassEffectiveDrag(t *testing.T) {
	// gtd7d's total carries the anomalous oxygen mass, so it joins the sum.
	nN2, nAnomO := 1e10, 5e9
	mN2 := 28.0134e-3 / avogadro
	mO := 15.9994e-3 / avogadro
	r := Result{Densities: make([]float64, NumDensities), Temperatures: make([]float64, NumTemperatures)}
	r.Densities[DensityN2] = nN2
	r.Densities[DensityAnomO] = nAnomO
	r.Densities[DensityTotal] = (nN2*mN2 + nAnomO*mO) * 1e3

	want := r.Densities[DensityTotal] / (nN2 + nAnomO) * avogadro * 1e-3
	got := MeanMolecularMass(r, MethodEffectiveDrag, false)
	if math.Abs(got-want)/want > 1e-12 {
		t.Errorf("MeanMolecularMass(gtd7d) = %v, want %v", got, want)
	}
	if std := MeanMolecularMass(r, MethodStandard, false); std <= got {
		t.Errorf("gtd7 reading %v should exceed gtd7d %v when AnomO is left out", std, got)
	}
}
