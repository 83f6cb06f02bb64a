package vqe

import "github.com/avramidis/eigenspin/internal/modules/circuit"

// TwoQubitAnsatz returns the single-parameter trial kernel used by the
// reference pipeline: X on qubit 0, RY(theta) on qubit 1, then CX with
// qubit 1 controlling qubit 0. It prepares
// cos(theta/2)|01> + sin(theta/2)|10>, spanning the singly-excited
// subspace of a two-qubit register.
func TwoQubitAnsatz() *circuit.Kernel {
	kernel, err := circuit.NewBuilder(2, 1).
		X(0).
		RY(circuit.Param(0), 1).
		CX(1, 0).
		Build()
	if err != nil {
		// The gate sequence is fixed and valid; Build cannot fail here.
		panic(err)
	}
	return kernel
}
