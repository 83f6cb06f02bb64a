package spin

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePauliString parses a product of Paulis written as axis/qubit pairs,
// e.g. "X0 X1" or "Z1". Whitespace between factors is optional. The empty
// string denotes the identity.
func ParsePauliString(s string) (Operator, error) {
	result := Const(1)

	rest := strings.TrimSpace(s)
	for rest != "" {
		axis := rest[0]
		rest = rest[1:]

		end := 0
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		if end == 0 {
			return Zero(), fmt.Errorf("pauli %q is missing a qubit index", string(axis))
		}
		qubit, err := strconv.Atoi(rest[:end])
		if err != nil {
			return Zero(), fmt.Errorf("invalid qubit index in %q: %w", s, err)
		}
		rest = strings.TrimSpace(rest[end:])

		switch axis {
		case 'X', 'x':
			result = result.Mul(X(qubit))
		case 'Y', 'y':
			result = result.Mul(Y(qubit))
		case 'Z', 'z':
			result = result.Mul(Z(qubit))
		case 'I', 'i':
			// identity factor, nothing to do
		default:
			return Zero(), fmt.Errorf("unknown pauli axis %q in %q", string(axis), s)
		}
	}

	return result, nil
}

// TermSpec is the wire representation of a single weighted Pauli string.
type TermSpec struct {
	Coeff  float64 `json:"coeff"`
	Paulis string  `json:"paulis"` // e.g. "X0 X1"; empty for a constant term
}

// FromTermSpecs assembles an operator from its wire representation.
func FromTermSpecs(specs []TermSpec) (Operator, error) {
	result := Zero()
	for i, spec := range specs {
		op, err := ParsePauliString(spec.Paulis)
		if err != nil {
			return Zero(), fmt.Errorf("term %d: %w", i, err)
		}
		result = result.Add(op.Scale(spec.Coeff))
	}
	return result, nil
}
