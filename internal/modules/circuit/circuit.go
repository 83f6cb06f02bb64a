// Package circuit describes parameterized quantum kernels: a declared qubit
// register plus an ordered gate sequence. A built kernel is immutable and its
// action is fully determined by the parameter vector supplied at run time.
package circuit

import (
	"errors"
	"fmt"
)

// GateType identifies a gate in the kernel gate set.
type GateType string

const (
	GateX    GateType = "x"
	GateY    GateType = "y"
	GateZ    GateType = "z"
	GateH    GateType = "h"
	GateRX   GateType = "rx"
	GateRY   GateType = "ry"
	GateRZ   GateType = "rz"
	GateCX   GateType = "cx"
	GateCZ   GateType = "cz"
	GateSwap GateType = "swap"
	// GateMeasure is accepted by the builder but rejected wherever a kernel
	// must remain a pure unitary (expectation evaluation).
	GateMeasure GateType = "mz"
)

// ErrMeasurementNotAllowed is returned when a kernel containing measurement
// instructions is used where only unitary kernels are valid.
var ErrMeasurementNotAllowed = errors.New("kernel contains measurement instructions")

// Angle is a rotation angle: either a literal value in radians or a
// reference to an entry of the kernel's parameter vector.
type Angle struct {
	Param int     // parameter index; negative when the angle is a literal
	Value float64 // literal angle, used when Param < 0
}

// Param references the parameter vector entry at the given index.
func Param(index int) Angle {
	return Angle{Param: index}
}

// Radians wraps a literal angle.
func Radians(v float64) Angle {
	return Angle{Param: -1, Value: v}
}

// Resolve returns the concrete angle for the given parameter vector.
func (a Angle) Resolve(params []float64) float64 {
	if a.Param >= 0 {
		return params[a.Param]
	}
	return a.Value
}

// Gate is a single instruction of a kernel.
type Gate struct {
	Type    GateType
	Target  int
	Control int // -1 for single-qubit gates; second qubit for swap
	Angle   Angle
}

// IsRotation reports whether the gate consumes an angle.
func (g Gate) IsRotation() bool {
	switch g.Type {
	case GateRX, GateRY, GateRZ:
		return true
	}
	return false
}

// Kernel is an immutable parameterized circuit.
type Kernel struct {
	numQubits  int
	numParams  int
	gates      []Gate
	hasMeasure bool
}

// NumQubits returns the size of the declared qubit register.
func (k *Kernel) NumQubits() int { return k.numQubits }

// NumParams returns the length of the expected parameter vector.
func (k *Kernel) NumParams() int { return k.numParams }

// HasMeasurement reports whether the kernel contains measurement instructions.
func (k *Kernel) HasMeasurement() bool { return k.hasMeasure }

// Gates returns a copy of the gate sequence.
func (k *Kernel) Gates() []Gate {
	gates := make([]Gate, len(k.gates))
	copy(gates, k.gates)
	return gates
}

// Builder accumulates gates for a kernel. Validation happens in Build so
// call sites can chain gate declarations without error handling noise.
type Builder struct {
	numQubits int
	numParams int
	gates     []Gate
}

// NewBuilder starts a kernel over numQubits qubits taking numParams
// real parameters.
func NewBuilder(numQubits, numParams int) *Builder {
	return &Builder{numQubits: numQubits, numParams: numParams}
}

func (b *Builder) add(g Gate) *Builder {
	b.gates = append(b.gates, g)
	return b
}

// X appends a bit-flip on the target qubit.
func (b *Builder) X(target int) *Builder {
	return b.add(Gate{Type: GateX, Target: target, Control: -1, Angle: Radians(0)})
}

// Y appends a Pauli-Y gate on the target qubit.
func (b *Builder) Y(target int) *Builder {
	return b.add(Gate{Type: GateY, Target: target, Control: -1, Angle: Radians(0)})
}

// Z appends a phase-flip on the target qubit.
func (b *Builder) Z(target int) *Builder {
	return b.add(Gate{Type: GateZ, Target: target, Control: -1, Angle: Radians(0)})
}

// H appends a Hadamard gate on the target qubit.
func (b *Builder) H(target int) *Builder {
	return b.add(Gate{Type: GateH, Target: target, Control: -1, Angle: Radians(0)})
}

// RX appends an X-axis rotation by the given angle on the target qubit.
func (b *Builder) RX(angle Angle, target int) *Builder {
	return b.add(Gate{Type: GateRX, Target: target, Control: -1, Angle: angle})
}

// RY appends a Y-axis rotation by the given angle on the target qubit.
func (b *Builder) RY(angle Angle, target int) *Builder {
	return b.add(Gate{Type: GateRY, Target: target, Control: -1, Angle: angle})
}

// RZ appends a Z-axis rotation by the given angle on the target qubit.
func (b *Builder) RZ(angle Angle, target int) *Builder {
	return b.add(Gate{Type: GateRZ, Target: target, Control: -1, Angle: angle})
}

// CX appends a controlled bit-flip: target is flipped where control is set.
func (b *Builder) CX(control, target int) *Builder {
	return b.add(Gate{Type: GateCX, Target: target, Control: control, Angle: Radians(0)})
}

// CZ appends a controlled phase-flip.
func (b *Builder) CZ(control, target int) *Builder {
	return b.add(Gate{Type: GateCZ, Target: target, Control: control, Angle: Radians(0)})
}

// Swap appends a swap of two qubits.
func (b *Builder) Swap(a, c int) *Builder {
	return b.add(Gate{Type: GateSwap, Target: c, Control: a, Angle: Radians(0)})
}

// Measure appends a computational-basis measurement of the target qubit.
// Kernels with measurements cannot be used for expectation evaluation.
func (b *Builder) Measure(target int) *Builder {
	return b.add(Gate{Type: GateMeasure, Target: target, Control: -1, Angle: Radians(0)})
}

// Build validates the accumulated gate sequence and returns the kernel.
func (b *Builder) Build() (*Kernel, error) {
	if b.numQubits < 1 {
		return nil, fmt.Errorf("kernel needs at least one qubit, got %d", b.numQubits)
	}
	if b.numParams < 0 {
		return nil, fmt.Errorf("kernel parameter count cannot be negative, got %d", b.numParams)
	}

	hasMeasure := false
	for i, g := range b.gates {
		if g.Target < 0 || g.Target >= b.numQubits {
			return nil, fmt.Errorf("gate %d (%s): target qubit %d out of range [0,%d)", i, g.Type, g.Target, b.numQubits)
		}
		switch g.Type {
		case GateCX, GateCZ, GateSwap:
			if g.Control < 0 || g.Control >= b.numQubits {
				return nil, fmt.Errorf("gate %d (%s): control qubit %d out of range [0,%d)", i, g.Type, g.Control, b.numQubits)
			}
			if g.Control == g.Target {
				return nil, fmt.Errorf("gate %d (%s): control and target are both qubit %d", i, g.Type, g.Target)
			}
		case GateMeasure:
			hasMeasure = true
		}
		if g.IsRotation() && g.Angle.Param >= b.numParams {
			return nil, fmt.Errorf("gate %d (%s): parameter index %d out of range [0,%d)", i, g.Type, g.Angle.Param, b.numParams)
		}
	}

	gates := make([]Gate, len(b.gates))
	copy(gates, b.gates)

	return &Kernel{
		numQubits:  b.numQubits,
		numParams:  b.numParams,
		gates:      gates,
		hasMeasure: hasMeasure,
	}, nil
}
