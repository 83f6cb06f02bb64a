package runs

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avramidis/eigenspin/internal/database"
	"github.com/avramidis/eigenspin/internal/modules/vqe"
)

// setupTestDB creates a temporary test database with the runs schema.
func setupTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test_runs_*.db")
	require.NoError(t, err)
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileStandard,
		Name:    "runs",
	})
	require.NoError(t, err)

	cleanup := func() {
		_ = db.Close()
		_ = os.Remove(tmpPath)
	}

	return db, cleanup
}

func setupRepo(t *testing.T) (*Repository, func()) {
	t.Helper()
	db, cleanup := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.InitSchema())
	return repo, cleanup
}

func sampleResult() *vqe.Result {
	return &vqe.Result{
		Energy:     -1.74886,
		Params:     []float64{0.5944},
		Iterations: 3,
		Converged:  true,
		Trace: []vqe.Iteration{
			{Index: 0, Params: []float64{0}, Energy: -0.43629},
			{Index: 1, Params: []float64{0.3}, Energy: -1.42},
			{Index: 2, Params: []float64{0.5944}, Energy: -1.74886},
		},
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()

	id, err := repo.Create("5.907 - 2.1433 X0X1", []float64{0})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := repo.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, StatusRunning, run.Status)
	assert.Equal(t, "5.907 - 2.1433 X0X1", run.Hamiltonian)
	assert.Equal(t, []float64{0}, run.InitialParams)
	assert.Nil(t, run.FinishedAt)
	assert.Nil(t, run.Energy)
	assert.Empty(t, run.Trace)
}

func TestRepository_Complete(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()

	id, err := repo.Create("H", []float64{0})
	require.NoError(t, err)

	require.NoError(t, repo.Complete(id, sampleResult()))

	run, err := repo.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	require.NotNil(t, run.Energy)
	assert.InDelta(t, -1.74886, *run.Energy, 1e-12)
	assert.Equal(t, []float64{0.5944}, run.OptimalParams)
	assert.Equal(t, 3, run.Iterations)
	assert.NotNil(t, run.FinishedAt)

	// The trace round-trips through its binary encoding.
	require.Len(t, run.Trace, 3)
	assert.Equal(t, 0, run.Trace[0].Index)
	assert.InDelta(t, -0.43629, run.Trace[0].Energy, 1e-12)
	assert.Equal(t, []float64{0.5944}, run.Trace[2].Params)
}

func TestRepository_Fail(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()

	id, err := repo.Create("H", []float64{0})
	require.NoError(t, err)

	require.NoError(t, repo.Fail(id, "kernel contains measurement instructions"))

	run, err := repo.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "kernel contains measurement instructions", run.Error)
	assert.NotNil(t, run.FinishedAt)
}

func TestRepository_UnknownRun(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()

	_, err := repo.Get("nonexistent")
	assert.Error(t, err)

	assert.Error(t, repo.Complete("nonexistent", sampleResult()))
	assert.Error(t, repo.Fail("nonexistent", "boom"))
}

func TestRepository_List(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()

	first, err := repo.Create("H1", []float64{0})
	require.NoError(t, err)
	second, err := repo.Create("H2", []float64{0.1})
	require.NoError(t, err)
	require.NoError(t, repo.Complete(second, sampleResult()))

	listed, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	ids := []string{listed[0].ID, listed[1].ID}
	assert.Contains(t, ids, first)
	assert.Contains(t, ids, second)

	// Traces are not loaded for listings.
	for _, run := range listed {
		assert.Empty(t, run.Trace)
	}
}

func TestRepository_PruneOlderThan(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()

	id, err := repo.Create("H", []float64{0})
	require.NoError(t, err)
	require.NoError(t, repo.Complete(id, sampleResult()))

	running, err := repo.Create("H2", []float64{0})
	require.NoError(t, err)

	// A cutoff in the future removes finished runs but spares running ones.
	deleted, err := repo.PruneOlderThan(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.Get(id)
	assert.Error(t, err)

	still, err := repo.Get(running)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, still.Status)
}
