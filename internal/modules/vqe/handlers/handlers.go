// Package handlers provides HTTP handlers for expectation evaluation and
// minimization runs.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/avramidis/eigenspin/internal/events"
	"github.com/avramidis/eigenspin/internal/modules/circuit"
	"github.com/avramidis/eigenspin/internal/modules/runs"
	"github.com/avramidis/eigenspin/internal/modules/spin"
	"github.com/avramidis/eigenspin/internal/modules/vqe"
)

// Handler handles VQE HTTP requests
type Handler struct {
	service *vqe.Service
	repo    *runs.Repository
	bus     *events.Bus
	log     zerolog.Logger
}

// NewHandler creates a new VQE handler
func NewHandler(service *vqe.Service, repo *runs.Repository, bus *events.Bus, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		repo:    repo,
		bus:     bus,
		log:     log.With().Str("handler", "vqe").Logger(),
	}
}

// ObserveRequest is the body of POST /api/vqe/observe.
type ObserveRequest struct {
	Hamiltonian []spin.TermSpec     `json:"hamiltonian"`
	Params      []float64           `json:"params"`
	Kernel      *circuit.KernelSpec `json:"kernel,omitempty"`
}

// MinimizeRequest is the body of POST /api/vqe/minimize.
type MinimizeRequest struct {
	Hamiltonian   []spin.TermSpec     `json:"hamiltonian"`
	InitialParams []float64           `json:"initial_params,omitempty"`
	Kernel        *circuit.KernelSpec `json:"kernel,omitempty"`
}

// resolveKernel builds the requested kernel, falling back to the reference
// two-qubit ansatz when the request does not carry one.
func resolveKernel(spec *circuit.KernelSpec) (*circuit.Kernel, error) {
	if spec == nil {
		return vqe.TwoQubitAnsatz(), nil
	}
	return circuit.FromSpec(*spec)
}

// HandleObserve handles POST /api/vqe/observe
func (h *Handler) HandleObserve(w http.ResponseWriter, r *http.Request) {
	var req ObserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	op, err := spin.FromTermSpecs(req.Hamiltonian)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	kernel, err := resolveKernel(req.Kernel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	energy, err := h.service.Observe(op, kernel, req.Params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"energy":      energy,
			"params":      req.Params,
			"hamiltonian": op.String(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleMinimize handles POST /api/vqe/minimize
func (h *Handler) HandleMinimize(w http.ResponseWriter, r *http.Request) {
	var req MinimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	op, err := spin.FromTermSpecs(req.Hamiltonian)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	kernel, err := resolveKernel(req.Kernel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	initial := req.InitialParams
	if initial == nil {
		initial = make([]float64, kernel.NumParams())
	}

	runID, result, err := h.service.Minimize(op, kernel, initial)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Minimization failed")
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  err.Error(),
			"run_id": runID,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"run_id":     runID,
			"energy":     result.Energy,
			"params":     result.Params,
			"iterations": result.Iterations,
			"converged":  result.Converged,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleListRuns handles GET /api/vqe/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	listed, err := h.repo.List(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"runs":  listed,
			"count": len(listed),
		},
	})
}

// HandleGetRun handles GET /api/vqe/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request, id string) {
	run, err := h.repo.Get(id)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": run,
	})
}

// HandleWatchRun handles GET /api/vqe/runs/{id}/watch. It upgrades to a
// websocket and forwards the run's lifecycle and iteration events until the
// run finishes or the client goes away. A run that already finished gets a
// single terminal frame built from its stored state, since nothing will be
// published for it again.
func (h *Handler) HandleWatchRun(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.repo.Get(id); err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // same-origin policy is handled by the CORS middleware
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "watch aborted")

	ctx := r.Context()

	// Buffer enough that a burst of iteration events does not stall Publish.
	queue := make(chan *events.Event, 256)
	unsubscribe := h.bus.Subscribe(func(e *events.Event) {
		if e.Data["run_id"] != id {
			return
		}
		select {
		case queue <- e:
		default:
			// Drop rather than block the bus; the stored trace stays complete.
		}
	})
	defer unsubscribe()

	// Re-read after subscribing: the repository is updated before the terminal
	// event is published, so a run seen as running here will still publish to
	// the subscription above, and a finished one is closed out right away.
	run, err := h.repo.Get(id)
	if err != nil {
		return
	}
	if run.Status != runs.StatusRunning {
		if err := wsjson.Write(ctx, conn, terminalEvent(run)); err != nil {
			return
		}
		conn.Close(websocket.StatusNormalClosure, "run finished")
		return
	}

	// Preamble so clients know the subscription is live.
	err = wsjson.Write(ctx, conn, map[string]interface{}{
		"type":   "WATCHING",
		"run_id": id,
		"status": run.Status,
	})
	if err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-queue:
			if err := wsjson.Write(ctx, conn, e); err != nil {
				return
			}
			if e.Type == events.RunCompleted || e.Type == events.RunFailed {
				conn.Close(websocket.StatusNormalClosure, "run finished")
				return
			}
		}
	}
}

// terminalEvent rebuilds the closing frame for a run that finished before
// the watcher connected, mirroring the event the run published when it ended.
func terminalEvent(run *runs.Run) *events.Event {
	timestamp := time.Now()
	if run.FinishedAt != nil {
		timestamp = *run.FinishedAt
	}

	if run.Status == runs.StatusFailed {
		return &events.Event{
			Type:      events.RunFailed,
			Timestamp: timestamp,
			Module:    "vqe",
			Data: map[string]interface{}{
				"run_id": run.ID,
				"error":  run.Error,
			},
		}
	}

	data := map[string]interface{}{
		"run_id":     run.ID,
		"params":     run.OptimalParams,
		"iterations": run.Iterations,
	}
	if run.Energy != nil {
		data["energy"] = *run.Energy
	}
	return &events.Event{
		Type:      events.RunCompleted,
		Timestamp: timestamp,
		Module:    "vqe",
		Data:      data,
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
