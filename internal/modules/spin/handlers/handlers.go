// Package handlers provides HTTP handlers for spin operator inspection.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/avramidis/eigenspin/internal/modules/spin"
)

// Handler handles spin operator HTTP requests
type Handler struct {
	log zerolog.Logger
}

// NewHandler creates a new spin handler
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{
		log: log.With().Str("handler", "spin").Logger(),
	}
}

// MatrixRequest is the body of POST /api/spin/matrix.
type MatrixRequest struct {
	Hamiltonian []spin.TermSpec `json:"hamiltonian"`
}

// HandleMatrix handles POST /api/spin/matrix. It assembles the operator and
// returns its dense matrix rendering alongside basic shape information.
func (h *Handler) HandleMatrix(w http.ResponseWriter, r *http.Request) {
	var req MatrixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	op, err := spin.FromTermSpecs(req.Hamiltonian)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"hamiltonian": op.String(),
			"num_qubits":  op.NumQubits(),
			"num_terms":   op.NumTerms(),
			"dim":         1 << op.NumQubits(),
			"matrix":      op.FormatDense(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
