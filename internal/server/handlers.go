package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "regqa"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.kb.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newStatusResponse(st))
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.kb.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []string{}
	}
	writeJSON(w, http.StatusOK, documentsResponse{Status: statusSuccess, Documents: docs})
}

type initializeRequest struct {
	ForceRefresh bool `json:"force_refresh"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// A client disconnect must not abort an ingestion other callers share.
	report, err := s.kb.Initialize(context.WithoutCancel(r.Context()), req.ForceRefresh)
	if err != nil {
		log.Error().Err(err).Str("component", "server").
			Str("request_id", middleware.GetReqID(r.Context())).Msg("initialize failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, initializeResponse{
		Status:  statusSuccess,
		Message: report.String(),
		Report:  report,
	})
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	ans, err := s.kb.Query(r.Context(), req.Query)
	if err != nil {
		status := httpStatus(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("component", "server").
				Str("request_id", middleware.GetReqID(r.Context())).Msg("query failed")
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Status:  statusSuccess,
		Answer:  ans.Text,
		Sources: sourcesPayload(ans.Sources),
	})
}
