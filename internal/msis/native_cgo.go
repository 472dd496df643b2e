//go:build cgo && nrlmsise

package msis

/*
#cgo LDFLAGS: -lnrlmsise00 -lm
#include <stdlib.h>
#include "nrlmsise-00.h"
*/
import "C"

import (
	"sync"
	"unsafe"
)

// nativeModel calls the C reference library. The reference code keeps
// switch state in file-level variables, so calls are serialised.
type nativeModel struct {
	mu sync.Mutex
}

var native = &nativeModel{}

// Native returns the C NRLMSISE-00 routine.
func Native() Model {
	return native
}

func (m *nativeModel) Name() string      { return "nrlmsise-00 (C)" }
func (m *nativeModel) IsAvailable() bool { return true }

func (m *nativeModel) GTD7(in *Input, flags *Flags) Output {
	return m.call(in, flags, false)
}

func (m *nativeModel) GTD7D(in *Input, flags *Flags) Output {
	return m.call(in, flags, true)
}

func (m *nativeModel) call(in *Input, flags *Flags, drag bool) Output {
	// The input record holds a pointer to the ap array, so the array
	// lives in C memory for the duration of the call.
	apa := (*C.struct_ap_array)(C.malloc(C.size_t(unsafe.Sizeof(C.struct_ap_array{}))))
	defer C.free(unsafe.Pointer(apa))

	var ap ApArray
	if in.ApA != nil {
		ap = *in.ApA
	}
	for i := 0; i < ApArrayLen; i++ {
		apa.a[i] = C.double(ap[i])
	}

	cin := C.struct_nrlmsise_input{
		year:   C.int(in.Year),
		doy:    C.int(in.DOY),
		sec:    C.double(in.Sec),
		alt:    C.double(in.Alt),
		g_lat:  C.double(in.GLat),
		g_long: C.double(in.GLong),
		lst:    C.double(in.LST),
		f107A:  C.double(in.F107A),
		f107:   C.double(in.F107),
		ap:     C.double(in.Ap),
		ap_a:   apa,
	}

	var cflags C.struct_nrlmsise_flags
	for i := 0; i < FlagsLen; i++ {
		cflags.switches[i] = C.int(flags[i])
	}

	var cout C.struct_nrlmsise_output

	m.mu.Lock()
	if drag {
		C.gtd7d(&cin, &cflags, &cout)
	} else {
		C.gtd7(&cin, &cflags, &cout)
	}
	m.mu.Unlock()

	var out Output
	for i := 0; i < NumDensities; i++ {
		out.D[i] = float64(cout.d[i])
	}
	for i := 0; i < NumTemperatures; i++ {
		out.T[i] = float64(cout.t[i])
	}
	return out
}
