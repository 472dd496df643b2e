// Package msis adapts callers to the NRLMSISE-00 neutral atmosphere model.
// It validates and converts arguments into the model's fixed-layout input
// records, invokes one of the two model entry points (gtd7, gtd7d) and
// returns densities and temperatures in the model's field order.
//
// The numerical model itself is an external collaborator reached through
// the Model interface.
package msis

// =============================================================================
// Layout Constants
// =============================================================================

const (
	// ApArrayLen is the number of elements of the magnetic history array.
	ApArrayLen = 7

	// FlagsLen is the number of model switches.
	FlagsLen = 24

	// NumDensities is the number of density outputs.
	NumDensities = 9

	// NumTemperatures is the number of temperature outputs.
	NumTemperatures = 2

	// SwitchUnits selects SI output (m, kg) instead of cm, g when set to 1.
	SwitchUnits = 0

	// SwitchDailyAp selects Ap-array mode when set to -1.
	SwitchDailyAp = 9
)

// Density indices.
const (
	DensityHe    = 0 // He number density [cm^-3]
	DensityO     = 1 // O number density [cm^-3]
	DensityN2    = 2 // N2 number density [cm^-3]
	DensityO2    = 3 // O2 number density [cm^-3]
	DensityAr    = 4 // Ar number density [cm^-3]
	DensityTotal = 5 // total mass density [g cm^-3]
	DensityH     = 6 // H number density [cm^-3]
	DensityN     = 7 // N number density [cm^-3]
	DensityAnomO = 8 // anomalous oxygen number density [cm^-3]
)

// Temperature indices.
const (
	TempExospheric = 0
	TempAltitude   = 1
)

// =============================================================================
// Fixed-Layout Records
// =============================================================================

// ApArray holds the geomagnetic history used in Ap-array mode:
//
//	0: daily Ap
//	1: 3 hr ap index for current time
//	2: 3 hr ap index for 3 hrs before current time
//	3: 3 hr ap index for 6 hrs before current time
//	4: 3 hr ap index for 9 hrs before current time
//	5: average of eight 3 hr ap indices from 12 to 33 hrs prior
//	6: average of eight 3 hr ap indices from 36 to 57 hrs prior
type ApArray [ApArrayLen]float64

// Flags is the model's switch vector. 0 is off, 1 is on and 2 is main
// effects off but cross terms on. Switch 9 set to -1 selects Ap-array mode.
type Flags [FlagsLen]int

// DefaultFlags returns the standard switches: cgs units, all variations on.
func DefaultFlags() Flags {
	var f Flags
	for i := 1; i < FlagsLen; i++ {
		f[i] = 1
	}
	return f
}

// ApModeFlags returns a copy of flags, or the defaults when flags is nil,
// with switch 9 set to -1. Lists of the wrong length are copied unchanged
// and left for validation to reject.
func ApModeFlags(flags []int) []int {
	var out []int
	if flags != nil {
		out = append(out, flags...)
	} else {
		d := DefaultFlags()
		out = d[:]
	}
	if len(out) == FlagsLen {
		out[SwitchDailyAp] = -1
	}
	return out
}

// Input is the model's input record.
type Input struct {
	Year  int     // ignored by the model
	DOY   int     // day of year
	Sec   float64 // seconds into the day (UT)
	Alt   float64 // altitude [km]
	GLat  float64 // geodetic latitude [deg N]
	GLong float64 // geodetic longitude [deg E]
	LST   float64 // local apparent solar time [h]
	F107A float64 // 81 day average of F10.7 flux, centred on DOY
	F107  float64 // daily F10.7 flux for the previous day
	Ap    float64 // daily magnetic index
	ApA   *ApArray
}

// Output is the model's output record.
type Output struct {
	D [NumDensities]float64
	T [NumTemperatures]float64
}

// =============================================================================
// Output Metadata
// =============================================================================

// Field describes one model output.
type Field struct {
	Name     string
	LongName string
	Units    string
}

// OutputFields lists the 9 densities followed by the 2 temperatures.
var OutputFields = [NumDensities + NumTemperatures]Field{
	{"He", "He number density", "cm^-3"},
	{"O", "O number density", "cm^-3"},
	{"N2", "N2 number density", "cm^-3"},
	{"O2", "O2 number density", "cm^-3"},
	{"Ar", "AR number density", "cm^-3"},
	{"rho", "total mass density", "g cm^-3"}, // includes AnomO for gtd7d
	{"H", "H number density", "cm^-3"},
	{"N", "N number density", "cm^-3"},
	{"AnomO", "Anomalous oxygen number density", "cm^-3"},
	{"Texo", "Exospheric temperature", "K"},
	{"Talt", "Temperature at alt", "K"},
}
