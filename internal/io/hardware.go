package io

import "errors"

// ErrADSUnavailable is returned by Hardware implementations when the
// 4-channel converter is absent or failed to initialise.
var ErrADSUnavailable = errors.New("io: ads1115 unavailable")

// Hardware abstracts the locally addressable converters.
//
// InitADS is called lazily, at most once per registry load, and only when
// a configured channel needs the multiplexed converter. The registry
// remembers the outcome so repeated reads do not re-attempt bring-up.
type Hardware interface {
	// ReadADC samples the built-in single-channel converter.
	ReadADC(index int) (int32, error)

	// ReadADSChannel samples one single-ended input (0-3) of the ADS1115.
	ReadADSChannel(index int) (int32, error)

	// InitADS brings up the ADS1115. Returns ErrADSUnavailable (or any
	// other error) when the converter cannot be initialised.
	InitADS() error
}
