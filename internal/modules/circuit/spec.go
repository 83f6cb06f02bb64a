package circuit

import (
	"fmt"
	"strings"
)

// GateSpec is the wire representation of a single gate.
type GateSpec struct {
	Type    string   `json:"type"`
	Target  int      `json:"target"`
	Control *int     `json:"control,omitempty"`
	Param   *int     `json:"param,omitempty"`  // parameter index for rotations
	Angle   *float64 `json:"angle,omitempty"`  // literal angle in radians
}

// KernelSpec is the wire representation of a kernel.
type KernelSpec struct {
	NumQubits int        `json:"num_qubits"`
	NumParams int        `json:"num_params"`
	Gates     []GateSpec `json:"gates"`
}

// FromSpec builds a kernel from its wire representation.
func FromSpec(spec KernelSpec) (*Kernel, error) {
	b := NewBuilder(spec.NumQubits, spec.NumParams)

	for i, g := range spec.Gates {
		control := func() (int, error) {
			if g.Control == nil {
				return 0, fmt.Errorf("gate %d (%s): missing control qubit", i, g.Type)
			}
			return *g.Control, nil
		}
		angle := func() (Angle, error) {
			switch {
			case g.Param != nil:
				// Negative indices mark literal angles internally, so they
				// must never come in through the wire form.
				if *g.Param < 0 {
					return Angle{}, fmt.Errorf("gate %d (%s): parameter index %d cannot be negative", i, g.Type, *g.Param)
				}
				return Param(*g.Param), nil
			case g.Angle != nil:
				return Radians(*g.Angle), nil
			default:
				return Angle{}, fmt.Errorf("gate %d (%s): rotation needs a param index or a literal angle", i, g.Type)
			}
		}

		switch GateType(strings.ToLower(g.Type)) {
		case GateX:
			b.X(g.Target)
		case GateY:
			b.Y(g.Target)
		case GateZ:
			b.Z(g.Target)
		case GateH:
			b.H(g.Target)
		case GateRX:
			a, err := angle()
			if err != nil {
				return nil, err
			}
			b.RX(a, g.Target)
		case GateRY:
			a, err := angle()
			if err != nil {
				return nil, err
			}
			b.RY(a, g.Target)
		case GateRZ:
			a, err := angle()
			if err != nil {
				return nil, err
			}
			b.RZ(a, g.Target)
		case GateCX:
			c, err := control()
			if err != nil {
				return nil, err
			}
			b.CX(c, g.Target)
		case GateCZ:
			c, err := control()
			if err != nil {
				return nil, err
			}
			b.CZ(c, g.Target)
		case GateSwap:
			c, err := control()
			if err != nil {
				return nil, err
			}
			b.Swap(c, g.Target)
		case GateMeasure:
			b.Measure(g.Target)
		default:
			return nil, fmt.Errorf("gate %d: unknown gate type %q", i, g.Type)
		}
	}

	return b.Build()
}
