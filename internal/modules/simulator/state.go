// Package simulator provides an exact statevector simulator for kernels
// built by the circuit package. State is kept as a dense amplitude vector
// with qubit 0 on the least significant bit, matching the basis convention
// of the spin package so expectation values can be read off directly.
package simulator

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/avramidis/eigenspin/internal/modules/circuit"
)

// State is a statevector over a fixed qubit register.
type State struct {
	amps      []complex128
	numQubits int
}

// NewState returns the |0...0> state over numQubits qubits.
func NewState(numQubits int) (*State, error) {
	if numQubits < 1 {
		return nil, fmt.Errorf("state needs at least one qubit, got %d", numQubits)
	}
	amps := make([]complex128, 1<<numQubits)
	amps[0] = 1
	return &State{amps: amps, numQubits: numQubits}, nil
}

// NumQubits returns the register size.
func (s *State) NumQubits() int { return s.numQubits }

// Amplitudes returns a copy of the amplitude vector.
func (s *State) Amplitudes() []complex128 {
	amps := make([]complex128, len(s.amps))
	copy(amps, s.amps)
	return amps
}

// Probability returns |amp|^2 of the given basis state.
func (s *State) Probability(basis int) float64 {
	if basis < 0 || basis >= len(s.amps) {
		return 0
	}
	amp := s.amps[basis]
	return real(amp * cmplx.Conj(amp))
}

// Run evaluates a measurement-free kernel on the |0...0> state and returns
// the resulting statevector. The parameter vector must match the kernel's
// declared parameter count exactly.
func Run(kernel *circuit.Kernel, params []float64) (*State, error) {
	if kernel == nil {
		return nil, fmt.Errorf("kernel is nil")
	}
	if kernel.HasMeasurement() {
		return nil, circuit.ErrMeasurementNotAllowed
	}
	if got, want := len(params), kernel.NumParams(); got != want {
		return nil, fmt.Errorf("kernel takes %d parameters, got %d", want, got)
	}

	state, err := NewState(kernel.NumQubits())
	if err != nil {
		return nil, err
	}
	for _, g := range kernel.Gates() {
		state.apply(g, params)
	}
	return state, nil
}

func (s *State) apply(g circuit.Gate, params []float64) {
	switch g.Type {
	case circuit.GateX:
		s.applyX(g.Target)
	case circuit.GateY:
		s.applyY(g.Target)
	case circuit.GateZ:
		s.applyZ(g.Target)
	case circuit.GateH:
		s.applyH(g.Target)
	case circuit.GateRX:
		s.applyRX(g.Target, g.Angle.Resolve(params))
	case circuit.GateRY:
		s.applyRY(g.Target, g.Angle.Resolve(params))
	case circuit.GateRZ:
		s.applyRZ(g.Target, g.Angle.Resolve(params))
	case circuit.GateCX:
		s.applyCX(g.Control, g.Target)
	case circuit.GateCZ:
		s.applyCZ(g.Control, g.Target)
	case circuit.GateSwap:
		s.applySwap(g.Control, g.Target)
	}
}

func (s *State) applyX(q int) {
	bit := 1 << q
	for i := range s.amps {
		if i&bit == 0 {
			j := i | bit
			s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
		}
	}
}

func (s *State) applyY(q int) {
	bit := 1 << q
	for i := range s.amps {
		if i&bit == 0 {
			j := i | bit
			s.amps[i], s.amps[j] = -1i*s.amps[j], 1i*s.amps[i]
		}
	}
}

func (s *State) applyZ(q int) {
	bit := 1 << q
	for i := range s.amps {
		if i&bit != 0 {
			s.amps[i] *= -1
		}
	}
}

func (s *State) applyH(q int) {
	factor := complex(1/math.Sqrt2, 0)
	bit := 1 << q
	for i := range s.amps {
		if i&bit == 0 {
			j := i | bit
			a, b := s.amps[i], s.amps[j]
			s.amps[i] = factor * (a + b)
			s.amps[j] = factor * (a - b)
		}
	}
}

func (s *State) applyRX(q int, theta float64) {
	bit := 1 << q
	c := complex(math.Cos(theta/2), 0)
	js := complex(0, -math.Sin(theta/2))
	for i := range s.amps {
		if i&bit == 0 {
			j := i | bit
			a, b := s.amps[i], s.amps[j]
			s.amps[i] = c*a + js*b
			s.amps[j] = js*a + c*b
		}
	}
}

func (s *State) applyRY(q int, theta float64) {
	bit := 1 << q
	c := complex(math.Cos(theta/2), 0)
	sn := complex(math.Sin(theta/2), 0)
	for i := range s.amps {
		if i&bit == 0 {
			j := i | bit
			a, b := s.amps[i], s.amps[j]
			s.amps[i] = c*a - sn*b
			s.amps[j] = sn*a + c*b
		}
	}
}

func (s *State) applyRZ(q int, theta float64) {
	bit := 1 << q
	phase := cmplx.Exp(complex(0, theta/2))
	for i := range s.amps {
		if i&bit != 0 {
			s.amps[i] *= phase
		} else {
			s.amps[i] *= cmplx.Conj(phase)
		}
	}
}

func (s *State) applyCX(control, target int) {
	cBit := 1 << control
	tBit := 1 << target
	for i := range s.amps {
		if i&cBit != 0 && i&tBit == 0 {
			j := i | tBit
			s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
		}
	}
}

func (s *State) applyCZ(control, target int) {
	cBit := 1 << control
	tBit := 1 << target
	for i := range s.amps {
		if i&cBit != 0 && i&tBit != 0 {
			s.amps[i] *= -1
		}
	}
}

func (s *State) applySwap(a, b int) {
	aBit := 1 << a
	bBit := 1 << b
	for i := range s.amps {
		if i&aBit != 0 && i&bBit == 0 {
			j := (i &^ aBit) | bBit
			s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
		}
	}
}
