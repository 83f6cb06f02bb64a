// Package vqe implements the variational eigenvalue pipeline: evaluate the
// expectation value of a spin Hamiltonian over a parameterized kernel, and
// minimize that expectation over the kernel parameters with a derivative-free
// optimizer.
package vqe

import (
	"fmt"

	"gonum.org/v1/gonum/optimize"

	"github.com/avramidis/eigenspin/internal/modules/circuit"
	"github.com/avramidis/eigenspin/internal/modules/simulator"
	"github.com/avramidis/eigenspin/internal/modules/spin"
)

// Options tunes the minimization loop.
type Options struct {
	MaxIterations int     // hard cap on objective evaluations
	Tolerance     float64 // absolute function convergence threshold
	InitialParams []float64
}

// DefaultOptions returns the settings used when the caller does not
// override them.
func DefaultOptions() Options {
	return Options{
		MaxIterations: 500,
		Tolerance:     1e-8,
	}
}

// Iteration is a single objective evaluation during minimization.
type Iteration struct {
	Index  int       `json:"index"`
	Params []float64 `json:"params"`
	Energy float64   `json:"energy"`
}

// Result is the outcome of a minimization run.
type Result struct {
	Energy     float64     `json:"energy"`
	Params     []float64   `json:"params"`
	Iterations int         `json:"iterations"`
	Converged  bool        `json:"converged"`
	Trace      []Iteration `json:"trace,omitempty"`
}

// Observe evaluates <psi(params)|H|psi(params)> for the state prepared by
// the kernel. Kernels containing measurements are rejected.
func Observe(h spin.Operator, kernel *circuit.Kernel, params []float64) (float64, error) {
	if kernel == nil {
		return 0, fmt.Errorf("kernel is nil")
	}
	if kernel.NumQubits() < h.NumQubits() {
		return 0, fmt.Errorf("kernel has %d qubits, hamiltonian needs %d", kernel.NumQubits(), h.NumQubits())
	}

	state, err := simulator.Run(kernel, params)
	if err != nil {
		return 0, err
	}
	return h.ExpectationValue(state.Amplitudes())
}

// Minimize searches for kernel parameters minimizing the expectation value
// of the Hamiltonian. The search is derivative-free (Nelder-Mead), with a
// quasi-Newton retry on numerical gradients if the simplex stalls. onEval,
// when non-nil, observes every objective evaluation in order.
func Minimize(h spin.Operator, kernel *circuit.Kernel, opts Options, onEval func(Iteration)) (*Result, error) {
	if kernel == nil {
		return nil, fmt.Errorf("kernel is nil")
	}
	if kernel.NumParams() < 1 {
		return nil, fmt.Errorf("kernel takes no parameters, nothing to minimize")
	}
	if kernel.NumQubits() < h.NumQubits() {
		return nil, fmt.Errorf("kernel has %d qubits, hamiltonian needs %d", kernel.NumQubits(), h.NumQubits())
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}

	initial := make([]float64, kernel.NumParams())
	if opts.InitialParams != nil {
		if len(opts.InitialParams) != kernel.NumParams() {
			return nil, fmt.Errorf("kernel takes %d parameters, got %d initial values", kernel.NumParams(), len(opts.InitialParams))
		}
		copy(initial, opts.InitialParams)
	}

	var trace []Iteration
	var evalErr error

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			energy, err := Observe(h, kernel, x)
			if err != nil {
				if evalErr == nil {
					evalErr = err
				}
				return 0
			}
			it := Iteration{
				Index:  len(trace),
				Params: append([]float64(nil), x...),
				Energy: energy,
			}
			trace = append(trace, it)
			if onEval != nil {
				onEval(it)
			}
			return energy
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: opts.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   opts.Tolerance,
			Iterations: 50,
		},
	}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
	if evalErr != nil {
		return nil, evalErr
	}
	if err != nil {
		return nil, fmt.Errorf("minimization failed: %w", err)
	}

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}
	converged := successStatuses[result.Status]
	if !converged {
		retry, retryErr := optimize.Minimize(problem, initial, settings, &optimize.BFGS{})
		if evalErr != nil {
			return nil, evalErr
		}
		if retryErr == nil && successStatuses[retry.Status] {
			result = retry
			converged = true
		}
	}

	return &Result{
		Energy:     result.F,
		Params:     append([]float64(nil), result.X...),
		Iterations: len(trace),
		Converged:  converged,
		Trace:      trace,
	}, nil
}
