package msis

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

type call struct {
	drag  bool
	in    Input
	ap    ApArray
	flags Flags
}

// fakeModel records every call and returns values derived from the input
// so tests can see what reached the model.
type fakeModel struct {
	calls []call
	anomO float64
}

func (m *fakeModel) record(in *Input, flags *Flags, drag bool) Output {
	c := call{drag: drag, in: *in, flags: *flags}
	if in.ApA != nil {
		c.ap = *in.ApA
	}
	m.calls = append(m.calls, c)

	var out Output
	for i := range out.D {
		out.D[i] = in.Alt + float64(i)
	}
	out.D[DensityAnomO] = m.anomO
	out.T[TempExospheric] = 1000 + in.F107
	out.T[TempAltitude] = 900 + float64(flags[1])
	if drag {
		out.D[DensityTotal] += m.anomO
	}
	return out
}

func (m *fakeModel) GTD7(in *Input, flags *Flags) Output  { return m.record(in, flags, false) }
func (m *fakeModel) GTD7D(in *Input, flags *Flags) Output { return m.record(in, flags, true) }
func (m *fakeModel) Name() string                         { return "fake" }
func (m *fakeModel) IsAvailable() bool                    { return true }

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func exampleRequest() Request {
	return Request{
		Year: 1995, DOY: 172, Sec: 29000, Alt: 400, GLat: 60, GLong: -70,
		LST: 16, F107A: 150, F107: 150, Ap: 4,
	}
}

func TestStandardExample(t *testing.T) {
	m := &fakeModel{}
	a := NewAdapter(m, quietLogger())

	res, err := a.Standard(exampleRequest())
	if err != nil {
		t.Fatalf("Standard() error = %v", err)
	}
	if len(res.Densities) != NumDensities || len(res.Temperatures) != NumTemperatures {
		t.Fatalf("got %d densities, %d temperatures", len(res.Densities), len(res.Temperatures))
	}
	if len(m.calls) != 1 || m.calls[0].drag {
		t.Fatalf("expected one gtd7 call, got %+v", m.calls)
	}

	in := m.calls[0].in
	if in.Year != 1995 || in.DOY != 172 || in.Sec != 29000 || in.Alt != 400 ||
		in.GLat != 60 || in.GLong != -70 || in.LST != 16 ||
		in.F107A != 150 || in.F107 != 150 || in.Ap != 4 {
		t.Errorf("input not passed through: %+v", in)
	}
	if in.ApA == nil {
		t.Error("ap array pointer must always be set")
	}
	if m.calls[0].ap != (ApArray{}) {
		t.Errorf("absent ap_a should be zero, got %v", m.calls[0].ap)
	}
	if m.calls[0].flags != DefaultFlags() {
		t.Errorf("flags = %v, want defaults", m.calls[0].flags)
	}
}

func TestEffectiveDragCallsGTD7D(t *testing.T) {
	m := &fakeModel{anomO: 1e5}
	a := NewAdapter(m, quietLogger())

	std, err := a.Standard(exampleRequest())
	if err != nil {
		t.Fatal(err)
	}
	drag, err := a.EffectiveDrag(exampleRequest())
	if err != nil {
		t.Fatal(err)
	}
	if !m.calls[1].drag {
		t.Fatal("EffectiveDrag did not call gtd7d")
	}
	for i := range std.Densities {
		if i == DensityTotal {
			continue
		}
		if std.Densities[i] != drag.Densities[i] {
			t.Errorf("density %d differs: %v vs %v", i, std.Densities[i], drag.Densities[i])
		}
	}
	if drag.Densities[DensityTotal] <= std.Densities[DensityTotal] {
		t.Errorf("drag rho %v should exceed standard rho %v", drag.Densities[DensityTotal], std.Densities[DensityTotal])
	}
}

func TestDefaultFlags(t *testing.T) {
	f := DefaultFlags()
	if f[0] != 0 {
		t.Errorf("flags[0] = %d, want 0", f[0])
	}
	for i := 1; i < FlagsLen; i++ {
		if f[i] != 1 {
			t.Errorf("flags[%d] = %d, want 1", i, f[i])
		}
	}
}

func TestApModeFlags(t *testing.T) {
	got := ApModeFlags(nil)
	if len(got) != FlagsLen || got[SwitchDailyAp] != -1 || got[0] != 0 || got[1] != 1 {
		t.Errorf("ApModeFlags(nil) = %v", got)
	}

	in := make([]int, FlagsLen)
	in[SwitchDailyAp] = 1
	got = ApModeFlags(in)
	if got[SwitchDailyAp] != -1 || in[SwitchDailyAp] != 1 {
		t.Errorf("ApModeFlags must copy: got %v, input %v", got, in)
	}

	// Wrong sizes pass through for validation to reject.
	if got := ApModeFlags([]int{1, 1}); len(got) != 2 || got[1] != 1 {
		t.Errorf("ApModeFlags(short) = %v", got)
	}
}

func TestExplicitDefaultFlagsMatchOmitted(t *testing.T) {
	m := &fakeModel{}
	a := NewAdapter(m, quietLogger())

	omitted, err := a.Standard(exampleRequest())
	if err != nil {
		t.Fatal(err)
	}
	req := exampleRequest()
	d := DefaultFlags()
	req.Flags = d[:]
	explicit, err := a.Standard(req)
	if err != nil {
		t.Fatal(err)
	}
	for i := range omitted.Flat() {
		if omitted.Flat()[i] != explicit.Flat()[i] {
			t.Fatalf("output %d differs: %v vs %v", i, omitted.Flat()[i], explicit.Flat()[i])
		}
	}
	if m.calls[0].flags != m.calls[1].flags {
		t.Errorf("flags differ: %v vs %v", m.calls[0].flags, m.calls[1].flags)
	}
}

func TestComputeValidation(t *testing.T) {
	tests := []struct {
		name  string
		apa   []float64
		flags []int
		msg   string
	}{
		{"ap_a too short", make([]float64, 6), nil, msgApWrongSize},
		{"ap_a too long", make([]float64, 8), nil, msgApWrongSize},
		{"ap_a empty", []float64{}, nil, msgApWrongSize},
		{"flags too short", nil, make([]int, 23), msgFlagsWrongSize},
		{"flags too long", nil, make([]int, 25), msgFlagsWrongSize},
	}

	for _, method := range []Method{MethodStandard, MethodEffectiveDrag} {
		for _, tt := range tests {
			t.Run(method.String()+"/"+tt.name, func(t *testing.T) {
				m := &fakeModel{}
				a := NewAdapter(m, quietLogger())
				req := exampleRequest()
				req.ApA = tt.apa
				req.Flags = tt.flags

				res, err := a.Compute(method, req)
				if !errors.Is(err, ErrArgumentValidation) {
					t.Fatalf("error = %v, want ErrArgumentValidation", err)
				}
				var ae *ArgumentError
				if !errors.As(err, &ae) || ae.Msg != tt.msg {
					t.Errorf("message = %v, want %q", err, tt.msg)
				}
				if res.Densities != nil || res.Temperatures != nil {
					t.Error("partial result returned on failure")
				}
				if len(m.calls) != 0 {
					t.Error("model was invoked despite validation failure")
				}
			})
		}
	}
}

func TestApArrayPassedThrough(t *testing.T) {
	m := &fakeModel{}
	a := NewAdapter(m, quietLogger())
	req := exampleRequest()
	req.ApA = []float64{4, 5, 6, 7, 8, 9, 10}
	flags := DefaultFlags()
	flags[SwitchDailyAp] = -1
	req.Flags = flags[:]

	if _, err := a.Standard(req); err != nil {
		t.Fatal(err)
	}
	want := ApArray{4, 5, 6, 7, 8, 9, 10}
	if m.calls[0].ap != want {
		t.Errorf("ap = %v, want %v", m.calls[0].ap, want)
	}
	if m.calls[0].flags[SwitchDailyAp] != -1 {
		t.Errorf("switch 9 = %d, want -1", m.calls[0].flags[SwitchDailyAp])
	}
}

func TestRequestNotAliased(t *testing.T) {
	m := &fakeModel{}
	a := NewAdapter(m, quietLogger())
	req := exampleRequest()
	req.ApA = []float64{1, 2, 3, 4, 5, 6, 7}

	res, err := a.Standard(req)
	if err != nil {
		t.Fatal(err)
	}
	req.ApA[0] = 99
	res.Densities[0] = -1

	again, err := a.Standard(exampleRequest())
	if err != nil {
		t.Fatal(err)
	}
	if again.Densities[0] == -1 {
		t.Error("result slices shared between calls")
	}
	if m.calls[0].ap[0] != 1 {
		t.Error("model saw caller's later mutation")
	}
}

func TestUnavailableModel(t *testing.T) {
	a := NewAdapter(Unavailable("test"), quietLogger())

	if _, err := a.Standard(exampleRequest()); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("error = %v, want ErrModelUnavailable", err)
	}

	// Validation still runs first.
	req := exampleRequest()
	req.ApA = []float64{1}
	if _, err := a.Standard(req); !errors.Is(err, ErrArgumentValidation) {
		t.Errorf("error = %v, want ErrArgumentValidation", err)
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"", MethodStandard, false},
		{"gtd7", MethodStandard, false},
		{"GTD7D", MethodEffectiveDrag, false},
		{" gtd7d ", MethodEffectiveDrag, false},
		{"gtd8", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMethod(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMethod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResultFlat(t *testing.T) {
	r := Result{
		Densities:    []float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
		Temperatures: []float64{10, 11},
	}
	flat := r.Flat()
	if len(flat) != 11 {
		t.Fatalf("len = %d, want 11", len(flat))
	}
	for i, v := range flat {
		if v != float64(i+1) {
			t.Errorf("flat[%d] = %v, want %v", i, v, i+1)
		}
	}
}
