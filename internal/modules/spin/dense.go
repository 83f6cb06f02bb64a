package spin

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ToDense materializes the operator as a dense 2^n x 2^n complex matrix,
// with qubit 0 mapped to the least significant bit of the basis index.
func (o Operator) ToDense() *mat.CDense {
	dim := 1 << o.NumQubits()
	m := mat.NewCDense(dim, dim, nil)
	for _, t := range o.terms {
		for col := 0; col < dim; col++ {
			row, phase := t.apply(col)
			m.Set(row, col, m.At(row, col)+t.Coeff*phase)
		}
	}
	return m
}

// FormatDense renders the dense matrix as an aligned grid of "(re,im)"
// entries, matching the diagnostic layout of the reference output. Values
// are shown with six significant digits.
func (o Operator) FormatDense() string {
	m := o.ToDense()
	rows, cols := m.Dims()

	cells := make([][]string, rows)
	width := 0
	for r := 0; r < rows; r++ {
		cells[r] = make([]string, cols)
		for c := 0; c < cols; c++ {
			cell := formatEntry(m.At(r, c))
			cells[r][c] = cell
			if len(cell) > width {
				width = len(cell)
			}
		}
	}

	var sb strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				sb.WriteString("  ")
			}
			fmt.Fprintf(&sb, "%*s", width, cells[r][c])
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatEntry(v complex128) string {
	re, im := real(v), imag(v)
	if almostZero(re) {
		re = 0
	}
	if almostZero(im) {
		im = 0
	}
	return fmt.Sprintf("(%.6g,%.6g)", re, im)
}
