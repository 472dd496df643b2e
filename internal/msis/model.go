package msis

import (
	"fmt"
	"strings"
)

// =============================================================================
// Model Interface
// =============================================================================

// Model is the numerical NRLMSISE-00 routine. Implementations receive
// fully populated records and must not retain them after returning.
//
// Two implementations exist:
//   - Native: cgo binding to the C reference library (build tag nrlmsise)
//   - Unavailable: placeholder for builds without the library
type Model interface {
	// GTD7 computes densities and temperatures. The total mass density
	// excludes anomalous oxygen.
	GTD7(in *Input, flags *Flags) Output

	// GTD7D is GTD7 with the total mass density replaced by the effective
	// density for drag, which includes anomalous oxygen.
	GTD7D(in *Input, flags *Flags) Output

	// Name returns the implementation name for logging.
	Name() string

	// IsAvailable reports whether the routine can be called.
	IsAvailable() bool
}

// =============================================================================
// Entry Point Selection
// =============================================================================

// Method selects one of the two model entry points.
type Method int

const (
	MethodStandard      Method = iota // gtd7
	MethodEffectiveDrag               // gtd7d
)

// String returns the entry point name.
func (m Method) String() string {
	switch m {
	case MethodStandard:
		return "gtd7"
	case MethodEffectiveDrag:
		return "gtd7d"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod accepts "gtd7" or "gtd7d" (case-insensitive). An empty
// string selects gtd7.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gtd7":
		return MethodStandard, nil
	case "gtd7d":
		return MethodEffectiveDrag, nil
	default:
		return 0, fmt.Errorf("unknown method %q, must be gtd7 or gtd7d", s)
	}
}

// =============================================================================
// Unavailable Model
// =============================================================================

type unavailableModel struct {
	reason string
}

// Unavailable returns a Model that reports itself unavailable. The adapter
// refuses to call it.
func Unavailable(reason string) Model {
	return unavailableModel{reason: reason}
}

func (m unavailableModel) GTD7(*Input, *Flags) Output  { return Output{} }
func (m unavailableModel) GTD7D(*Input, *Flags) Output { return Output{} }
func (m unavailableModel) Name() string                { return "unavailable (" + m.reason + ")" }
func (m unavailableModel) IsAvailable() bool           { return false }
