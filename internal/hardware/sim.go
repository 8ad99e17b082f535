// Package hardware provides io.Hardware implementations. The real
// converters live behind I2C/firmware interfaces on the bench device; the
// simulated adapter here backs development builds and the daemon's
// default configuration.
package hardware

import (
	"math"
	"sync"
	"time"
)

// Sim is a simulated converter pair: a 10-bit built-in ADC and a 16-bit
// 4-channel ADS1115. Readings follow slow sine waves so dashboards show
// movement during development.
type Sim struct {
	// ADSAvailable controls whether InitADS succeeds.
	ADSAvailable bool

	mu    sync.Mutex
	start time.Time
}

// NewSim creates a simulated converter with the ADS1115 present.
func NewSim() *Sim {
	return &Sim{ADSAvailable: true, start: time.Now()}
}

func (s *Sim) elapsed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.start.IsZero() {
		s.start = time.Now()
	}
	return time.Since(s.start).Seconds()
}

// ReadADC returns a 0-1023 sample.
func (s *Sim) ReadADC(index int) (int32, error) {
	t := s.elapsed()
	return int32(512 + 400*math.Sin(t/5)), nil
}

// ReadADSChannel returns a 16-bit sample, phase-shifted per input.
func (s *Sim) ReadADSChannel(index int) (int32, error) {
	if !s.ADSAvailable {
		return 0, ErrNoADS
	}
	t := s.elapsed()
	phase := float64(index) * math.Pi / 2
	return int32(16384 + 8000*math.Sin(t/3+phase)), nil
}

// InitADS reports whether the simulated ADS1115 is present.
func (s *Sim) InitADS() error {
	if !s.ADSAvailable {
		return ErrNoADS
	}
	return nil
}
