package spin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// transverseFieldExample is the two-qubit spin Hamiltonian used throughout
// the documentation: 5.907 - 2.1433 X0X1 - 2.1433 Y0Y1 + 0.21829 Z0 - 6.125 Z1.
func transverseFieldExample() Operator {
	return Const(5.907).
		Sub(X(0).Mul(X(1)).Scale(2.1433)).
		Sub(Y(0).Mul(Y(1)).Scale(2.1433)).
		Add(Z(0).Scale(0.21829)).
		Sub(Z(1).Scale(6.125))
}

func TestOperator_Algebra(t *testing.T) {
	t.Run("like terms merge", func(t *testing.T) {
		op := Z(0).Scale(1.5).Add(Z(0).Scale(2.5))
		require.Equal(t, 1, op.NumTerms())
		assert.InDelta(t, 4.0, real(op.Terms()[0].Coeff), 1e-12)
	})

	t.Run("cancelling terms vanish", func(t *testing.T) {
		op := X(0).Sub(X(0))
		assert.Equal(t, 0, op.NumTerms())
	})

	t.Run("pauli products pick up phases", func(t *testing.T) {
		// X * Y = iZ on the same qubit
		op := X(0).Mul(Y(0))
		require.Equal(t, 1, op.NumTerms())
		term := op.Terms()[0]
		assert.Equal(t, PauliZ, term.Pauli(0))
		assert.InDelta(t, 0.0, real(term.Coeff), 1e-12)
		assert.InDelta(t, 1.0, imag(term.Coeff), 1e-12)
	})

	t.Run("squares collapse to identity", func(t *testing.T) {
		op := Y(2).Mul(Y(2))
		require.Equal(t, 1, op.NumTerms())
		term := op.Terms()[0]
		assert.Empty(t, term.Support())
		assert.InDelta(t, 1.0, real(term.Coeff), 1e-12)
	})

	t.Run("operators on distinct qubits commute", func(t *testing.T) {
		ab := X(0).Mul(Z(1))
		ba := Z(1).Mul(X(0))
		assert.Equal(t, ab.String(), ba.String())
	})
}

func TestOperator_NumQubits(t *testing.T) {
	assert.Equal(t, 1, Const(3.0).NumQubits())
	assert.Equal(t, 1, Z(0).NumQubits())
	assert.Equal(t, 2, transverseFieldExample().NumQubits())
	assert.Equal(t, 4, X(3).NumQubits())
}

func TestOperator_ToDense_DocumentedMatrix(t *testing.T) {
	h := transverseFieldExample()
	m := h.ToDense()

	rows, cols := m.Dims()
	require.Equal(t, 4, rows)
	require.Equal(t, 4, cols)

	// Diagonal: 5.907 + 0.21829*z0 - 6.125*z1 with qubit 0 as the least
	// significant bit of the basis index.
	assert.InDelta(t, 0.00029, real(m.At(0, 0)), 1e-9)
	assert.InDelta(t, -0.43629, real(m.At(1, 1)), 1e-9)
	assert.InDelta(t, 12.25029, real(m.At(2, 2)), 1e-9)
	assert.InDelta(t, 11.81371, real(m.At(3, 3)), 1e-9)

	// The XX and YY couplings add up on |01><10| and cancel on |00><11|.
	assert.InDelta(t, -4.2866, real(m.At(1, 2)), 1e-9)
	assert.InDelta(t, -4.2866, real(m.At(2, 1)), 1e-9)
	assert.InDelta(t, 0.0, real(m.At(0, 3)), 1e-9)
	assert.InDelta(t, 0.0, real(m.At(3, 0)), 1e-9)

	// Everything is real for this Hamiltonian.
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.InDelta(t, 0.0, imag(m.At(r, c)), 1e-12)
		}
	}
}

func TestOperator_FormatDense(t *testing.T) {
	out := transverseFieldExample().FormatDense()

	assert.Contains(t, out, "(0.00029,0)")
	assert.Contains(t, out, "(-0.43629,0)")
	assert.Contains(t, out, "(-4.2866,0)")
	assert.Contains(t, out, "(12.2503,0)")
	assert.Contains(t, out, "(11.8137,0)")
}

func TestOperator_ExpectationValue(t *testing.T) {
	h := transverseFieldExample()

	t.Run("basis states read off the diagonal", func(t *testing.T) {
		for i, want := range []float64{0.00029, -0.43629, 12.25029, 11.81371} {
			state := make([]complex128, 4)
			state[i] = 1
			got, err := h.ExpectationValue(state)
			require.NoError(t, err)
			assert.InDelta(t, want, got, 1e-9)
		}
	})

	t.Run("rejects non power of two lengths", func(t *testing.T) {
		_, err := h.ExpectationValue(make([]complex128, 3))
		assert.Error(t, err)
	})

	t.Run("rejects too small statevectors", func(t *testing.T) {
		_, err := h.ExpectationValue(make([]complex128, 2))
		assert.Error(t, err)
	})
}

func TestOperator_String(t *testing.T) {
	h := transverseFieldExample()
	s := h.String()

	assert.Contains(t, s, "5.907")
	assert.Contains(t, s, "2.1433 X0X1")
	assert.Contains(t, s, "2.1433 Y0Y1")
	assert.Contains(t, s, "0.21829 Z0")
	assert.Contains(t, s, "6.125 Z1")
	assert.Equal(t, "0", Zero().String())
}

func TestParsePauliString(t *testing.T) {
	t.Run("parses products", func(t *testing.T) {
		op, err := ParsePauliString("X0 X1")
		require.NoError(t, err)
		require.Equal(t, 1, op.NumTerms())
		term := op.Terms()[0]
		assert.Equal(t, PauliX, term.Pauli(0))
		assert.Equal(t, PauliX, term.Pauli(1))
	})

	t.Run("whitespace between factors is optional", func(t *testing.T) {
		op, err := ParsePauliString("Y0Z1")
		require.NoError(t, err)
		term := op.Terms()[0]
		assert.Equal(t, PauliY, term.Pauli(0))
		assert.Equal(t, PauliZ, term.Pauli(1))
	})

	t.Run("empty string is the identity", func(t *testing.T) {
		op, err := ParsePauliString("")
		require.NoError(t, err)
		require.Equal(t, 1, op.NumTerms())
		assert.Empty(t, op.Terms()[0].Support())
	})

	t.Run("rejects missing qubit index", func(t *testing.T) {
		_, err := ParsePauliString("X")
		assert.Error(t, err)
	})

	t.Run("rejects unknown axes", func(t *testing.T) {
		_, err := ParsePauliString("Q0")
		assert.Error(t, err)
	})
}

func TestFromTermSpecs(t *testing.T) {
	specs := []TermSpec{
		{Coeff: 5.907, Paulis: ""},
		{Coeff: -2.1433, Paulis: "X0 X1"},
		{Coeff: -2.1433, Paulis: "Y0 Y1"},
		{Coeff: 0.21829, Paulis: "Z0"},
		{Coeff: -6.125, Paulis: "Z1"},
	}

	op, err := FromTermSpecs(specs)
	require.NoError(t, err)

	want := transverseFieldExample()
	assert.Equal(t, want.String(), op.String())
}
