package vqe

import (
	"github.com/rs/zerolog"

	"github.com/avramidis/eigenspin/internal/events"
	"github.com/avramidis/eigenspin/internal/modules/circuit"
	"github.com/avramidis/eigenspin/internal/modules/spin"
)

// RunStore persists minimization runs. Implemented by the runs repository.
type RunStore interface {
	Create(hamiltonian string, initialParams []float64) (string, error)
	Complete(id string, result *Result) error
	Fail(id string, reason string) error
}

// Service coordinates minimization runs: it evaluates and minimizes
// Hamiltonians, persists run lifecycles and publishes progress events.
type Service struct {
	store RunStore
	bus   *events.Bus
	opts  Options
	log   zerolog.Logger
}

// NewService creates a new VQE service.
func NewService(store RunStore, bus *events.Bus, opts Options, log zerolog.Logger) *Service {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}
	return &Service{
		store: store,
		bus:   bus,
		opts:  opts,
		log:   log.With().Str("service", "vqe").Logger(),
	}
}

// Observe evaluates the expectation value of the Hamiltonian for the state
// prepared by the kernel at the given parameters.
func (s *Service) Observe(h spin.Operator, kernel *circuit.Kernel, params []float64) (float64, error) {
	energy, err := Observe(h, kernel, params)
	if err != nil {
		s.log.Warn().Err(err).Msg("Observation failed")
		return 0, err
	}

	s.log.Debug().
		Floats64("params", params).
		Float64("energy", energy).
		Msg("Observed expectation value")
	return energy, nil
}

// Minimize runs a full minimization, persisting the run and publishing
// lifecycle events. It returns the run ID together with the result; the ID
// is valid even when the run fails.
func (s *Service) Minimize(h spin.Operator, kernel *circuit.Kernel, initialParams []float64) (string, *Result, error) {
	hamiltonian := h.String()

	runID, err := s.store.Create(hamiltonian, initialParams)
	if err != nil {
		return "", nil, err
	}

	s.log.Info().
		Str("run_id", runID).
		Str("hamiltonian", hamiltonian).
		Msg("Minimization started")
	s.bus.Publish(events.RunStarted, "vqe", map[string]interface{}{
		"run_id":      runID,
		"hamiltonian": hamiltonian,
	})

	opts := s.opts
	opts.InitialParams = initialParams

	result, err := Minimize(h, kernel, opts, func(it Iteration) {
		s.bus.Publish(events.RunIteration, "vqe", map[string]interface{}{
			"run_id": runID,
			"index":  it.Index,
			"params": it.Params,
			"energy": it.Energy,
		})
	})
	if err != nil {
		if failErr := s.store.Fail(runID, err.Error()); failErr != nil {
			s.log.Error().Err(failErr).Str("run_id", runID).Msg("Failed to record run failure")
		}
		s.bus.Publish(events.RunFailed, "vqe", map[string]interface{}{
			"run_id": runID,
			"error":  err.Error(),
		})
		return runID, nil, err
	}

	if err := s.store.Complete(runID, result); err != nil {
		s.log.Error().Err(err).Str("run_id", runID).Msg("Failed to persist run result")
		return runID, result, err
	}

	s.log.Info().
		Str("run_id", runID).
		Float64("energy", result.Energy).
		Int("iterations", result.Iterations).
		Bool("converged", result.Converged).
		Msg("Minimization finished")
	s.bus.Publish(events.RunCompleted, "vqe", map[string]interface{}{
		"run_id":     runID,
		"energy":     result.Energy,
		"params":     result.Params,
		"iterations": result.Iterations,
		"converged":  result.Converged,
	})

	return runID, result, nil
}
