package msis

import "math"

const (
	rGas      = 8.31446261815324      // J / K / mol
	degToRad  = 1.7453292519943295e-2 // rad / deg
	avogadro  = 6.02214076e23         // 1 / mol
	gStandard = 9.80665               // m / s2
)

// ScaleHeight returns the atmospheric scale height in metres for altitude
// alt [km], geodetic latitude lat [deg N], molecular mass molw [kg/mol]
// and temperature temp [K]. Gravity follows the model's internal
// latitude-dependent surface gravity and effective Earth radius.
func ScaleHeight(alt, lat, molw, temp float64) float64 {
	c2 := math.Cos(2 * degToRad * lat)
	gsurf := gStandard * (1 - 0.0026373*c2)
	re := 2 * gsurf / (3.085462e-6 + 2.27e-9*c2) * 1e-3 // km
	g := gsurf / math.Pow(1+alt/re, 2)
	return rGas * temp / (g * molw)
}

// MeanMolecularMass returns the mean molecular mass [kg/mol] at the
// evaluated point: total mass density over the summed species number
// densities. si must match switch 0 of the call that produced r.
// Anomalous oxygen counts only for MethodEffectiveDrag, whose total
// includes it.
func MeanMolecularMass(r Result, method Method, si bool) float64 {
	if len(r.Densities) != NumDensities {
		return math.NaN()
	}
	species := []int{DensityHe, DensityO, DensityN2, DensityO2, DensityAr, DensityH, DensityN}
	if method == MethodEffectiveDrag {
		species = append(species, DensityAnomO)
	}
	var n float64
	for _, i := range species {
		n += r.Densities[i]
	}
	if n == 0 {
		return math.NaN()
	}
	m := r.Densities[DensityTotal] / n * avogadro
	if !si {
		m *= 1e-3 // g/mol to kg/mol
	}
	return m
}
