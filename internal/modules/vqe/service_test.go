package vqe

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avramidis/eigenspin/internal/events"
	"github.com/avramidis/eigenspin/internal/modules/circuit"
)

// memoryStore is an in-memory RunStore for service tests.
type memoryStore struct {
	mu        sync.Mutex
	created   []string
	completed map[string]*Result
	failed    map[string]string
	nextID    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		completed: make(map[string]*Result),
		failed:    make(map[string]string),
	}
}

func (m *memoryStore) Create(hamiltonian string, initialParams []float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := "run-" + string(rune('0'+m.nextID))
	m.created = append(m.created, id)
	return id, nil
}

func (m *memoryStore) Complete(id string, result *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[id] = result
	return nil
}

func (m *memoryStore) Fail(id string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[id] = reason
	return nil
}

func TestService_Minimize(t *testing.T) {
	h := testHamiltonian()
	kernel := TwoQubitAnsatz()

	store := newMemoryStore()
	bus := events.NewBus(zerolog.Nop())

	var mu sync.Mutex
	counts := map[events.EventType]int{}
	unsubscribe := bus.Subscribe(func(e *events.Event) {
		mu.Lock()
		counts[e.Type]++
		mu.Unlock()
	})
	defer unsubscribe()

	svc := NewService(store, bus, DefaultOptions(), zerolog.Nop())

	runID, result, err := svc.Minimize(h, kernel, []float64{0})
	require.NoError(t, err)
	require.NotEmpty(t, runID)
	require.NotNil(t, result)

	assert.InDelta(t, -1.74886, result.Energy, 1e-3)
	assert.True(t, result.Converged)

	// Run persisted as completed, never as failed.
	assert.Contains(t, store.completed, runID)
	assert.NotContains(t, store.failed, runID)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, counts[events.RunStarted])
	assert.Equal(t, 1, counts[events.RunCompleted])
	assert.Equal(t, result.Iterations, counts[events.RunIteration])
	assert.Zero(t, counts[events.RunFailed])
}

func TestService_Minimize_Failure(t *testing.T) {
	h := testHamiltonian()

	// A fixed kernel gives the optimizer nothing to vary.
	fixed, err := circuit.NewBuilder(2, 0).X(0).Build()
	require.NoError(t, err)

	store := newMemoryStore()
	bus := events.NewBus(zerolog.Nop())

	var mu sync.Mutex
	var failures int
	unsubscribe := bus.Subscribe(func(e *events.Event) {
		if e.Type == events.RunFailed {
			mu.Lock()
			failures++
			mu.Unlock()
		}
	})
	defer unsubscribe()

	svc := NewService(store, bus, DefaultOptions(), zerolog.Nop())

	runID, _, err := svc.Minimize(h, fixed, nil)
	require.Error(t, err)
	require.NotEmpty(t, runID)

	assert.Contains(t, store.failed, runID)
	assert.NotContains(t, store.completed, runID)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, failures)
}

func TestService_Observe(t *testing.T) {
	svc := NewService(newMemoryStore(), events.NewBus(zerolog.Nop()), DefaultOptions(), zerolog.Nop())

	energy, err := svc.Observe(testHamiltonian(), TwoQubitAnsatz(), []float64{0})
	require.NoError(t, err)
	assert.InDelta(t, -0.43629, energy, 1e-9)
}
