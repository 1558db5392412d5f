// Package server implements the flow store HTTP protocol on top of a
// store.Store:
//
//	POST   /api/flows/save       upsert a flow, returns {id, message, version}
//	GET    /api/flows/get/{id}   fetch a flow, returns {_id, version, nodes, edges}
//	GET    /api/flows            list flow summaries (?business_id=, ?limit=)
//	DELETE /api/flows/{id}       remove a flow
//	GET    /health               liveness
package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/randalmurphal/flowedit/pkg/flowedit/store"
)

// Messages returned in SaveResponse.Message.
const (
	MessageCreated = "Flow created successfully"
	MessageSaved   = "Flow saved successfully"
)

// Server serves the flow store protocol.
type Server struct {
	store          store.Store
	logger         *zap.Logger
	allowedOrigins []string
	maxBodyBytes   int64
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS allow list. Default: all origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithMaxBodyBytes caps request bodies. Default: 4 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// New creates a Server backed by st. A nil logger disables request logging.
func New(st store.Store, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:          st,
		logger:         logger,
		allowedOrigins: []string{"*"},
		maxBodyBytes:   4 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", s.health)
	router.Route("/api/flows", func(r chi.Router) {
		r.Post("/save", s.saveFlow)
		r.Get("/get/{id}", s.getFlow)
		r.Get("/", s.listFlows)
		r.Delete("/{id}", s.deleteFlow)
	})
	return router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) saveFlow(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "too_large", "Request body too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid_body", "Failed to read request body")
		return
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		s.respondError(w, http.StatusBadRequest, "invalid_body", "Request body is empty")
		return
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}
	if err := validateSave(&req); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "validation", "Validation error: "+err.Error())
		return
	}

	doc := storedDoc{Nodes: req.Nodes, Edges: req.Edges}
	if doc.Edges == nil {
		doc.Edges = []json.RawMessage{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "internal", "Failed to encode flow")
		return
	}

	rec := store.Record{BusinessID: req.BusinessID, Version: req.Version, Data: data}
	if req.ID != nil {
		rec.ID = *req.ID
	}
	saved, err := s.store.Save(r.Context(), rec)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.respondError(w, http.StatusConflict, "conflict", "Flow was changed by someone else; reload before saving")
			return
		}
		s.logger.Error("save flow failed", zap.String("flow_id", rec.ID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal", "Failed to save flow")
		return
	}

	status, msg := http.StatusOK, MessageSaved
	if saved.Created() {
		status, msg = http.StatusCreated, MessageCreated
	}
	s.respondJSON(w, status, SaveResponse{ID: saved.ID, Message: msg, Version: saved.Version})
}

func (s *Server) getFlow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "not_found", "Flow not found")
			return
		}
		s.logger.Error("get flow failed", zap.String("flow_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal", "Failed to load flow")
		return
	}

	var doc storedDoc
	if err := json.Unmarshal(rec.Data, &doc); err != nil {
		s.logger.Error("stored flow is corrupt", zap.String("flow_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal", "Stored flow is unreadable")
		return
	}
	if doc.Nodes == nil {
		doc.Nodes = []json.RawMessage{}
	}
	if doc.Edges == nil {
		doc.Edges = []json.RawMessage{}
	}
	s.respondJSON(w, http.StatusOK, Document{
		ID:         rec.ID,
		BusinessID: rec.BusinessID,
		Version:    rec.Version,
		Nodes:      doc.Nodes,
		Edges:      doc.Edges,
	})
}

func (s *Server) listFlows(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{BusinessID: r.URL.Query().Get("business_id")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid_query", "limit must be a non-negative integer")
			return
		}
		opts.Limit = n
	}

	infos, err := s.store.List(r.Context(), opts)
	if err != nil {
		s.logger.Error("list flows failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal", "Failed to list flows")
		return
	}
	out := make([]Summary, len(infos))
	for i, info := range infos {
		out[i] = Summary{
			ID:         info.ID,
			BusinessID: info.BusinessID,
			Version:    info.Version,
			UpdatedAt:  info.UpdatedAt.Format(time.RFC3339Nano),
			Size:       info.Size,
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"flows": out})
}

func (s *Server) deleteFlow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete flow failed", zap.String("flow_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal", "Failed to delete flow")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: code, Message: message})
}
