// Package spin implements the Pauli operator algebra used to express spin
// Hamiltonians as weighted sums of tensor products of Pauli operators.
//
// Operators are immutable values: every algebraic operation returns a new
// operator, like terms are merged and terms with vanishing coefficients are
// dropped. Qubit 0 corresponds to the least significant bit of the basis
// index in the dense matrix form.
package spin

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
	"strings"
)

// Pauli identifies a single-qubit Pauli operator.
type Pauli byte

const (
	PauliI Pauli = iota
	PauliX
	PauliY
	PauliZ
)

// String returns the conventional single-letter name of the Pauli.
func (p Pauli) String() string {
	switch p {
	case PauliX:
		return "X"
	case PauliY:
		return "Y"
	case PauliZ:
		return "Z"
	default:
		return "I"
	}
}

// coefficients below this magnitude are treated as zero after term merging
const coeffEpsilon = 1e-12

// Term is a single weighted Pauli string: a coefficient times a product of
// non-identity Paulis on distinct qubits.
type Term struct {
	Coeff complex128
	ops   map[int]Pauli
}

// Pauli returns the Pauli acting on the given qubit (identity if none).
func (t Term) Pauli(qubit int) Pauli {
	return t.ops[qubit]
}

// Support returns the qubits the term acts on non-trivially, sorted.
func (t Term) Support() []int {
	qubits := make([]int, 0, len(t.ops))
	for q := range t.ops {
		qubits = append(qubits, q)
	}
	sort.Ints(qubits)
	return qubits
}

// key returns the canonical string form of the Pauli string, e.g. "X0X1".
// The empty string is the identity.
func (t Term) key() string {
	var sb strings.Builder
	for _, q := range t.Support() {
		fmt.Fprintf(&sb, "%s%d", t.ops[q], q)
	}
	return sb.String()
}

// apply maps a computational basis state index through the Pauli string,
// returning the image index and the accumulated phase.
func (t Term) apply(i int) (int, complex128) {
	j := i
	phase := complex(1, 0)
	for q, p := range t.ops {
		bit := (i >> q) & 1
		switch p {
		case PauliX:
			j ^= 1 << q
		case PauliY:
			j ^= 1 << q
			if bit == 0 {
				phase *= 1i
			} else {
				phase *= -1i
			}
		case PauliZ:
			if bit == 1 {
				phase *= -1
			}
		}
	}
	return j, phase
}

// Operator is a weighted sum of Pauli strings.
type Operator struct {
	terms map[string]Term
}

// Zero returns the zero operator.
func Zero() Operator {
	return Operator{terms: map[string]Term{}}
}

// Const returns the scalar operator c (c times the identity).
func Const(c float64) Operator {
	return fromTerm(Term{Coeff: complex(c, 0), ops: map[int]Pauli{}})
}

// X returns the Pauli-X operator on the given qubit.
func X(qubit int) Operator {
	return single(qubit, PauliX)
}

// Y returns the Pauli-Y operator on the given qubit.
func Y(qubit int) Operator {
	return single(qubit, PauliY)
}

// Z returns the Pauli-Z operator on the given qubit.
func Z(qubit int) Operator {
	return single(qubit, PauliZ)
}

// I returns the identity operator. The qubit argument only documents intent:
// identity acts trivially everywhere.
func I(qubit int) Operator {
	_ = qubit
	return Const(1)
}

func single(qubit int, p Pauli) Operator {
	return fromTerm(Term{Coeff: 1, ops: map[int]Pauli{qubit: p}})
}

func fromTerm(t Term) Operator {
	o := Operator{terms: make(map[string]Term, 1)}
	o.terms[t.key()] = t
	return o
}

// Terms returns the operator's terms in canonical (sorted key) order.
func (o Operator) Terms() []Term {
	keys := make([]string, 0, len(o.terms))
	for k := range o.terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	terms := make([]Term, 0, len(keys))
	for _, k := range keys {
		terms = append(terms, o.terms[k])
	}
	return terms
}

// NumTerms returns the number of non-zero terms.
func (o Operator) NumTerms() int {
	return len(o.terms)
}

// NumQubits returns the number of qubits the operator acts on. The identity
// operator is reported as acting on a single qubit.
func (o Operator) NumQubits() int {
	max := 0
	for _, t := range o.terms {
		for q := range t.ops {
			if q+1 > max {
				max = q + 1
			}
		}
	}
	if max == 0 {
		max = 1
	}
	return max
}

// Add returns o + p.
func (o Operator) Add(p Operator) Operator {
	result := Operator{terms: make(map[string]Term, len(o.terms)+len(p.terms))}
	for k, t := range o.terms {
		result.terms[k] = cloneTerm(t)
	}
	for k, t := range p.terms {
		if existing, ok := result.terms[k]; ok {
			existing.Coeff += t.Coeff
			if cmplx.Abs(existing.Coeff) < coeffEpsilon {
				delete(result.terms, k)
			} else {
				result.terms[k] = existing
			}
		} else {
			result.terms[k] = cloneTerm(t)
		}
	}
	return result
}

// Sub returns o - p.
func (o Operator) Sub(p Operator) Operator {
	return o.Add(p.Scale(-1))
}

// Scale returns c * o.
func (o Operator) Scale(c float64) Operator {
	return o.scaleComplex(complex(c, 0))
}

func (o Operator) scaleComplex(c complex128) Operator {
	result := Operator{terms: make(map[string]Term, len(o.terms))}
	if cmplx.Abs(c) < coeffEpsilon {
		return result
	}
	for k, t := range o.terms {
		scaled := cloneTerm(t)
		scaled.Coeff *= c
		result.terms[k] = scaled
	}
	return result
}

// Mul returns the operator product o * p. Products of Paulis on the same
// qubit follow the Pauli multiplication table (e.g. X*Y = iZ).
func (o Operator) Mul(p Operator) Operator {
	result := Operator{terms: make(map[string]Term, len(o.terms)*len(p.terms))}
	for _, a := range o.terms {
		for _, b := range p.terms {
			t := mulTerms(a, b)
			if cmplx.Abs(t.Coeff) < coeffEpsilon {
				continue
			}
			k := t.key()
			if existing, ok := result.terms[k]; ok {
				existing.Coeff += t.Coeff
				if cmplx.Abs(existing.Coeff) < coeffEpsilon {
					delete(result.terms, k)
				} else {
					result.terms[k] = existing
				}
			} else {
				result.terms[k] = t
			}
		}
	}
	return result
}

// ExpectationValue computes <psi|O|psi> for a statevector over at least
// NumQubits qubits. The imaginary part is discarded: spin Hamiltonians built
// from real-weighted Pauli strings are Hermitian, so the expectation is real.
func (o Operator) ExpectationValue(amplitudes []complex128) (float64, error) {
	dim := len(amplitudes)
	if dim == 0 || dim&(dim-1) != 0 {
		return 0, fmt.Errorf("statevector length %d is not a power of two", dim)
	}
	if minDim := 1 << o.NumQubits(); dim < minDim {
		return 0, fmt.Errorf("statevector covers %d amplitudes, operator needs at least %d", dim, minDim)
	}

	var total complex128
	for _, t := range o.terms {
		for i, amp := range amplitudes {
			if amp == 0 {
				continue
			}
			j, phase := t.apply(i)
			total += t.Coeff * phase * cmplx.Conj(amplitudes[j]) * amp
		}
	}
	return real(total), nil
}

// String renders the operator in a compact human-readable form, e.g.
// "5.907 - 2.1433 X0X1 + 0.21829 Z0". Terms appear in canonical order.
func (o Operator) String() string {
	terms := o.Terms()
	if len(terms) == 0 {
		return "0"
	}

	var sb strings.Builder
	for i, t := range terms {
		coeff := t.Coeff
		sign := "+"
		// Real-weighted terms get their sign folded into the separator.
		if imag(coeff) == 0 && real(coeff) < 0 {
			sign = "-"
			coeff = -coeff
		}
		if i == 0 {
			if sign == "-" {
				sb.WriteString("-")
			}
		} else {
			sb.WriteString(" " + sign + " ")
		}
		if imag(coeff) == 0 {
			fmt.Fprintf(&sb, "%g", real(coeff))
		} else {
			fmt.Fprintf(&sb, "(%g%+gi)", real(coeff), imag(coeff))
		}
		if k := t.key(); k != "" {
			sb.WriteString(" " + k)
		}
	}
	return sb.String()
}

func cloneTerm(t Term) Term {
	ops := make(map[int]Pauli, len(t.ops))
	for q, p := range t.ops {
		ops[q] = p
	}
	return Term{Coeff: t.Coeff, ops: ops}
}

func mulTerms(a, b Term) Term {
	result := Term{Coeff: a.Coeff * b.Coeff, ops: make(map[int]Pauli, len(a.ops)+len(b.ops))}
	for q, p := range a.ops {
		result.ops[q] = p
	}
	for q, pb := range b.ops {
		pa, ok := result.ops[q]
		if !ok {
			result.ops[q] = pb
			continue
		}
		p, phase := mulPauli(pa, pb)
		result.Coeff *= phase
		if p == PauliI {
			delete(result.ops, q)
		} else {
			result.ops[q] = p
		}
	}
	return result
}

// mulPauli multiplies two single-qubit Paulis, returning the resulting Pauli
// and phase: sigma_a * sigma_b = phase * sigma_c.
func mulPauli(a, b Pauli) (Pauli, complex128) {
	if a == PauliI {
		return b, 1
	}
	if b == PauliI {
		return a, 1
	}
	if a == b {
		return PauliI, 1
	}
	switch [2]Pauli{a, b} {
	case [2]Pauli{PauliX, PauliY}:
		return PauliZ, 1i
	case [2]Pauli{PauliY, PauliX}:
		return PauliZ, -1i
	case [2]Pauli{PauliY, PauliZ}:
		return PauliX, 1i
	case [2]Pauli{PauliZ, PauliY}:
		return PauliX, -1i
	case [2]Pauli{PauliZ, PauliX}:
		return PauliY, 1i
	default: // X*Z
		return PauliY, -1i
	}
}

// almostZero reports whether v is negligible for display purposes.
func almostZero(v float64) bool {
	return math.Abs(v) < coeffEpsilon
}
