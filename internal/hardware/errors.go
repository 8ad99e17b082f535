package hardware

import "errors"

// ErrNoADS is returned when the ADS1115 is absent or disabled.
var ErrNoADS = errors.New("hardware: ads1115 not present")
