package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/avramidis/eigenspin/internal/database"
	"github.com/avramidis/eigenspin/internal/events"
	"github.com/avramidis/eigenspin/internal/modules/runs"
	"github.com/avramidis/eigenspin/internal/modules/vqe"
)

func setupHandler(t *testing.T) (*Handler, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test_vqe_handlers_*.db")
	require.NoError(t, err)
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileStandard,
		Name:    "runs",
	})
	require.NoError(t, err)

	log := zerolog.Nop()
	repo := runs.NewRepository(db, log)
	require.NoError(t, repo.InitSchema())

	bus := events.NewBus(log)
	service := vqe.NewService(repo, bus, vqe.DefaultOptions(), log)
	handler := NewHandler(service, repo, bus, log)

	cleanup := func() {
		_ = db.Close()
		_ = os.Remove(tmpPath)
	}
	return handler, cleanup
}

func setupRouter(t *testing.T) (*chi.Mux, func()) {
	t.Helper()
	handler, cleanup := setupHandler(t)
	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)
	return router, cleanup
}

var testHamiltonianBody = `[
	{"coeff": 5.907, "paulis": ""},
	{"coeff": -2.1433, "paulis": "X0 X1"},
	{"coeff": -2.1433, "paulis": "Y0 Y1"},
	{"coeff": 0.21829, "paulis": "Z0"},
	{"coeff": -6.125, "paulis": "Z1"}
]`

func TestHandleObserve(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	t.Run("evaluates the default ansatz", func(t *testing.T) {
		body := `{"hamiltonian": ` + testHamiltonianBody + `, "params": [0]}`
		req := httptest.NewRequest(http.MethodPost, "/api/vqe/observe", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data struct {
				Energy float64 `json:"energy"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.InDelta(t, -0.43629, resp.Data.Energy, 1e-9)
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/vqe/observe", bytes.NewBufferString("not json"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects wrong sized parameter vectors", func(t *testing.T) {
		body := `{"hamiltonian": ` + testHamiltonianBody + `, "params": [0, 1]}`
		req := httptest.NewRequest(http.MethodPost, "/api/vqe/observe", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("rejects kernels with measurements", func(t *testing.T) {
		body := `{
			"hamiltonian": ` + testHamiltonianBody + `,
			"params": [0],
			"kernel": {
				"num_qubits": 2,
				"num_params": 1,
				"gates": [
					{"type": "x", "target": 0},
					{"type": "ry", "target": 1, "param": 0},
					{"type": "cx", "target": 0, "control": 1},
					{"type": "mz", "target": 0}
				]
			}
		}`
		req := httptest.NewRequest(http.MethodPost, "/api/vqe/observe", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "measurement")
	})
}

func TestHandleMinimize(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	body := `{"hamiltonian": ` + testHamiltonianBody + `}`
	req := httptest.NewRequest(http.MethodPost, "/api/vqe/minimize", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			RunID      string    `json:"run_id"`
			Energy     float64   `json:"energy"`
			Params     []float64 `json:"params"`
			Iterations int       `json:"iterations"`
			Converged  bool      `json:"converged"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.Data.RunID)
	assert.InDelta(t, -1.74886, resp.Data.Energy, 1e-3)
	assert.True(t, resp.Data.Converged)
	require.Len(t, resp.Data.Params, 1)

	t.Run("the stored run is retrievable", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/vqe/runs/"+resp.Data.RunID, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var getResp struct {
			Data runs.Run `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &getResp))
		assert.Equal(t, runs.StatusCompleted, getResp.Data.Status)
		assert.Equal(t, resp.Data.Iterations, getResp.Data.Iterations)
		assert.Len(t, getResp.Data.Trace, resp.Data.Iterations)
	})

	t.Run("the run shows up in listings", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/vqe/runs", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), resp.Data.RunID)
	})
}

func TestHandleGetRun_NotFound(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/vqe/runs/nonexistent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleWatchRun(t *testing.T) {
	handler, cleanup := setupHandler(t)
	defer cleanup()

	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)
	ts := httptest.NewServer(router)
	defer ts.Close()

	watchURL := func(id string) string {
		return "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/vqe/runs/" + id + "/watch"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("finished runs get a terminal frame and a normal close", func(t *testing.T) {
		id, err := handler.repo.Create("test", []float64{0})
		require.NoError(t, err)
		energy := -1.74886
		require.NoError(t, handler.repo.Complete(id, &vqe.Result{
			Energy:     energy,
			Params:     []float64{0.594},
			Iterations: 3,
			Converged:  true,
			Trace:      []vqe.Iteration{{Index: 0, Params: []float64{0}, Energy: -0.43629}},
		}))

		conn, _, err := websocket.Dial(ctx, watchURL(id), nil)
		require.NoError(t, err)
		defer conn.Close(websocket.StatusNormalClosure, "")

		var frame events.Event
		require.NoError(t, wsjson.Read(ctx, conn, &frame))
		assert.Equal(t, events.RunCompleted, frame.Type)
		assert.Equal(t, id, frame.Data["run_id"])
		assert.InDelta(t, energy, frame.Data["energy"], 1e-9)

		err = wsjson.Read(ctx, conn, &frame)
		require.Error(t, err)
		assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
	})

	t.Run("failed runs get a failure frame and a normal close", func(t *testing.T) {
		id, err := handler.repo.Create("test", []float64{0})
		require.NoError(t, err)
		require.NoError(t, handler.repo.Fail(id, "optimizer diverged"))

		conn, _, err := websocket.Dial(ctx, watchURL(id), nil)
		require.NoError(t, err)
		defer conn.Close(websocket.StatusNormalClosure, "")

		var frame events.Event
		require.NoError(t, wsjson.Read(ctx, conn, &frame))
		assert.Equal(t, events.RunFailed, frame.Type)
		assert.Equal(t, "optimizer diverged", frame.Data["error"])

		err = wsjson.Read(ctx, conn, &frame)
		require.Error(t, err)
		assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
	})

	t.Run("streams live events for the watched run only", func(t *testing.T) {
		id, err := handler.repo.Create("test", []float64{0})
		require.NoError(t, err)

		conn, _, err := websocket.Dial(ctx, watchURL(id), nil)
		require.NoError(t, err)
		defer conn.Close(websocket.StatusNormalClosure, "")

		// The preamble is written after the handler subscribes, so events
		// published from here on are guaranteed to reach it.
		var hello map[string]interface{}
		require.NoError(t, wsjson.Read(ctx, conn, &hello))
		require.Equal(t, "WATCHING", hello["type"])
		assert.Equal(t, runs.StatusRunning, hello["status"])

		handler.bus.Publish(events.RunIteration, "vqe", map[string]interface{}{
			"run_id": id, "index": 0, "energy": -0.43629,
		})
		handler.bus.Publish(events.RunIteration, "vqe", map[string]interface{}{
			"run_id": "some-other-run", "index": 0, "energy": 1.0,
		})
		handler.bus.Publish(events.RunCompleted, "vqe", map[string]interface{}{
			"run_id": id, "energy": -1.74886, "iterations": 1,
		})

		var frame events.Event
		require.NoError(t, wsjson.Read(ctx, conn, &frame))
		assert.Equal(t, events.RunIteration, frame.Type)
		assert.Equal(t, id, frame.Data["run_id"])

		require.NoError(t, wsjson.Read(ctx, conn, &frame))
		assert.Equal(t, events.RunCompleted, frame.Type)
		assert.Equal(t, id, frame.Data["run_id"])

		err = wsjson.Read(ctx, conn, &frame)
		require.Error(t, err)
		assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
	})

	t.Run("unknown runs are rejected before the upgrade", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/vqe/runs/nonexistent/watch")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestHandleListRuns_InvalidLimit(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/vqe/runs?limit=zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
