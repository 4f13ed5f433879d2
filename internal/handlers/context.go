package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/opsledger/bizcontext/internal/models"
	"github.com/opsledger/bizcontext/internal/services/engine"
	"go.uber.org/zap"
)

// QueryProcessor is the engine operation this handler exposes
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, req *models.AIContextRequest) (*models.AIContextResponse, error)
}

// ContextQueryHandler handles business context query requests. It only frames
// requests and classifies errors; all orchestration lives in the engine.
type ContextQueryHandler struct {
	engine QueryProcessor
	logger *zap.Logger
}

// NewContextQueryHandler creates a new context query handler
func NewContextQueryHandler(engine QueryProcessor, logger *zap.Logger) *ContextQueryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextQueryHandler{
		engine: engine,
		logger: logger,
	}
}

// RegisterRoutes registers context routes on the given router
func (h *ContextQueryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/context/query", h.Query).Methods("POST")
}

// Query handles POST /context/query
func (h *ContextQueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.AIContextRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	resp, err := h.engine.ProcessQuery(r.Context(), &req)
	if err != nil {
		h.respondEngineError(w, &req, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// respondEngineError maps the engine's error taxonomy onto HTTP statuses
func (h *ContextQueryHandler) respondEngineError(w http.ResponseWriter, req *models.AIContextRequest, err error) {
	var validationErr *engine.ValidationError
	if errors.As(err, &validationErr) {
		respondJSONError(w, http.StatusBadRequest, "Validation Error", validationErr.Error())
		return
	}

	if errors.Is(err, engine.ErrBusinessNotFound) {
		respondJSONError(w, http.StatusNotFound, "Business Not Found", fmt.Sprintf("No business matches ID %q", req.BusinessID))
		return
	}

	var dataErr *engine.DataSourceError
	if errors.As(err, &dataErr) {
		// Retryable: the caller may try again.
		h.logger.Error("data_source_error",
			zap.String("business_id", req.BusinessID),
			zap.String("source", dataErr.Source),
			zap.Error(dataErr.Err),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "Data Source Unavailable", "A data source failed; please retry")
		return
	}

	h.logger.Error("query_failed",
		zap.String("business_id", req.BusinessID),
		zap.Error(err),
	)
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to process query")
}
