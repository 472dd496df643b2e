package msis

import (
	"github.com/sirupsen/logrus"
)

// Request carries one model invocation. ApA and Flags are optional;
// nil means "not supplied".
type Request struct {
	Year  int
	DOY   int
	Sec   float64
	Alt   float64
	GLat  float64
	GLong float64
	LST   float64
	F107A float64
	F107  float64
	Ap    float64
	ApA   []float64
	Flags []int
}

// Result is the model output as a density/temperature pair.
type Result struct {
	Densities    []float64 // 9 values, see Density* indices
	Temperatures []float64 // 2 values, see Temp* indices
}

// Flat returns the 9 densities followed by the 2 temperatures.
func (r Result) Flat() []float64 {
	flat := make([]float64, 0, NumDensities+NumTemperatures)
	flat = append(flat, r.Densities...)
	return append(flat, r.Temperatures...)
}

// Adapter validates requests and invokes the model. It holds no per-call
// state and is safe for concurrent use when the Model is.
type Adapter struct {
	model Model
	log   logrus.FieldLogger
}

// NewAdapter wraps a model. A nil logger uses the logrus standard logger.
func NewAdapter(model Model, log logrus.FieldLogger) *Adapter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Adapter{model: model, log: log}
}

// Model returns the wrapped model.
func (a *Adapter) Model() Model {
	return a.model
}

// Standard invokes gtd7.
func (a *Adapter) Standard(req Request) (Result, error) {
	return a.Compute(MethodStandard, req)
}

// EffectiveDrag invokes gtd7d. Density index 5 is the effective total mass
// density for drag, including anomalous oxygen.
func (a *Adapter) EffectiveDrag(req Request) (Result, error) {
	return a.Compute(MethodEffectiveDrag, req)
}

// Compute validates req and invokes the selected entry point. Nothing is
// passed to the model when validation fails.
func (a *Adapter) Compute(method Method, req Request) (Result, error) {
	in, flags, err := req.records()
	if err != nil {
		return Result{}, err
	}
	if !a.model.IsAvailable() {
		return Result{}, ErrModelUnavailable
	}

	if flags[SwitchDailyAp] == -1 && req.ApA == nil {
		a.log.WithFields(logrus.Fields{
			"method": method.String(),
			"doy":    req.DOY,
		}).Warn("flags select Ap-array mode but no ap_a given, using zero ap history")
	}

	var out Output
	switch method {
	case MethodEffectiveDrag:
		out = a.model.GTD7D(&in, &flags)
	default:
		out = a.model.GTD7(&in, &flags)
	}

	return Result{
		Densities:    append([]float64(nil), out.D[:]...),
		Temperatures: append([]float64(nil), out.T[:]...),
	}, nil
}

// records converts the request into the model's fixed-layout input and
// switch records. The input always points at an ap array, zero-valued
// when the caller supplied none.
func (r Request) records() (Input, Flags, error) {
	ap := new(ApArray)
	if r.ApA != nil {
		if len(r.ApA) != ApArrayLen {
			return Input{}, Flags{}, validationError("ap_a", msgApWrongSize)
		}
		copy(ap[:], r.ApA)
	}

	flags := DefaultFlags()
	if r.Flags != nil {
		if len(r.Flags) != FlagsLen {
			return Input{}, Flags{}, validationError("flags", msgFlagsWrongSize)
		}
		copy(flags[:], r.Flags)
	}

	in := Input{
		Year:  r.Year,
		DOY:   r.DOY,
		Sec:   r.Sec,
		Alt:   r.Alt,
		GLat:  r.GLat,
		GLong: r.GLong,
		LST:   r.LST,
		F107A: r.F107A,
		F107:  r.F107,
		Ap:    r.Ap,
		ApA:   ap,
	}
	return in, flags, nil
}
