package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ziadkadry99/regqa/internal/answer"
	"github.com/ziadkadry99/regqa/internal/embeddings"
	"github.com/ziadkadry99/regqa/internal/knowledge"
	"github.com/ziadkadry99/regqa/internal/retriever"
)

// Response envelopes carry a "status" discriminant: "success" or "error".
const (
	statusSuccess = "success"
	statusError   = "error"
)

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type documentsResponse struct {
	Status    string   `json:"status"`
	Documents []string `json:"documents"`
}

type initializeResponse struct {
	Status  string                  `json:"status"`
	Message string                  `json:"message"`
	Report  *knowledge.IngestReport `json:"report,omitempty"`
}

type sourceMetadata struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

type sourcePayload struct {
	Content  string         `json:"content"`
	Metadata sourceMetadata `json:"metadata"`
}

type queryResponse struct {
	Status  string          `json:"status"`
	Answer  string          `json:"answer"`
	Sources []sourcePayload `json:"sources"`
}

type statusResponse struct {
	Status        string                  `json:"status"`
	State         knowledge.State         `json:"state"`
	Documents     int                     `json:"documents"`
	Chunks        int                     `json:"chunks"`
	LastIngestion *time.Time              `json:"last_ingestion,omitempty"`
	LastReport    *knowledge.IngestReport `json:"last_report,omitempty"`
	Failures      map[string]string       `json:"failures,omitempty"`
}

func newStatusResponse(st *knowledge.Status) statusResponse {
	return statusResponse{
		Status:        statusSuccess,
		State:         st.State,
		Documents:     st.Documents,
		Chunks:        st.Chunks,
		LastIngestion: st.LastIngestion,
		LastReport:    st.LastReport,
		Failures:      st.Failures,
	}
}

func sourcesPayload(sources []answer.Source) []sourcePayload {
	out := make([]sourcePayload, len(sources))
	for i, src := range sources {
		out[i] = sourcePayload{
			Content:  src.Content,
			Metadata: sourceMetadata{Source: src.Source, Page: src.Page},
		}
	}
	return out
}

// httpStatus maps orchestrator errors to HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, retriever.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, knowledge.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, answer.ErrSynthesisUnavailable), errors.Is(err, embeddings.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: statusError, Message: message})
}
