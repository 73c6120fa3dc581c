// Package api exposes the sync pipeline to the dashboard: sync state per
// entity, manual retry, due-event and audit views, and a change feed so
// screens can refresh without polling.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/otodash/erp-sync/pkg/audit"
	"github.com/otodash/erp-sync/pkg/projection"
	"github.com/otodash/erp-sync/pkg/store"
)

const changeFeedTimeout = 30 * time.Second

type Server struct {
	store            store.EventStore
	auditLog         *audit.Log
	offlineThreshold int
	registry         *prometheus.Registry
}

func NewServer(st store.EventStore, auditLog *audit.Log, offlineThreshold int, registry *prometheus.Registry) *Server {
	return &Server{
		store:            st,
		auditLog:         auditLog,
		offlineThreshold: offlineThreshold,
		registry:         registry,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/tenants/{tenantID}/entities/{entityID}", func(r chi.Router) {
			r.Post("/events", s.handleEnqueue)
			r.Get("/sync", s.handleSyncState)
			r.Post("/retry", s.handleRetry)
		})
		r.Get("/events/due", s.handleListDue)
		r.Get("/audit", s.handleAudit)
		r.Get("/changes", s.handleChanges)
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type enqueueRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	entityID := chi.URLParam(r, "entityID")

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	eventType, err := store.ParseEventType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := s.store.Enqueue(r.Context(), tenantID, entityID, eventType, req.Payload)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Str("entity_id", entityID).Msg("enqueue failed")
		writeError(w, http.StatusInternalServerError, "enqueue failed")
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) handleSyncState(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	entityID := chi.URLParam(r, "entityID")

	events, err := s.store.ListByEntity(r.Context(), tenantID, entityID)
	if err != nil {
		// Fail open to IDLE rather than surfacing a storage blip.
		log.Error().Err(err).Str("tenant_id", tenantID).Str("entity_id", entityID).Msg("listing entity events failed")
		events = nil
	}
	writeJSON(w, http.StatusOK, projection.ProjectWithThreshold(events, s.offlineThreshold))
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	entityID := chi.URLParam(r, "entityID")

	if err := s.store.RetryNow(r.Context(), tenantID, entityID); err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Str("entity_id", entityID).Msg("manual retry failed")
		writeError(w, http.StatusInternalServerError, "retry failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "retry scheduled"})
}

func (s *Server) handleListDue(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.ListDue(r.Context(), time.Now())
	if err != nil {
		log.Error().Err(err).Msg("listing due events failed")
		events = nil
	}
	if events == nil {
		events = []store.OutboxEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.auditLog.Entries())
}

// handleChanges long-polls the store and audit change feeds. It responds
// as soon as either signals a mutation, or with changed=false after the
// feed timeout.
func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	storeCh := s.store.Changes().Subscribe()
	defer s.store.Changes().Unsubscribe(storeCh)
	auditCh := s.auditLog.Changes().Subscribe()
	defer s.auditLog.Changes().Unsubscribe(auditCh)

	timer := time.NewTimer(changeFeedTimeout)
	defer timer.Stop()

	select {
	case <-storeCh:
		writeJSON(w, http.StatusOK, map[string]bool{"changed": true})
	case <-auditCh:
		writeJSON(w, http.StatusOK, map[string]bool{"changed": true})
	case <-timer.C:
		writeJSON(w, http.StatusOK, map[string]bool{"changed": false})
	case <-r.Context().Done():
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encoding response failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
