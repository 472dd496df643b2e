//go:build !(cgo && nrlmsise)

package msis

// Native returns the C NRLMSISE-00 routine. This build was compiled
// without it; rebuild with CGO_ENABLED=1 and -tags nrlmsise.
func Native() Model {
	return Unavailable("built without -tags nrlmsise")
}
