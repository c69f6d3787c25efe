package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	grantlifecycle "rolewarden/contexts/access-control/grant-lifecycle"
	domainerrors "rolewarden/contexts/access-control/grant-lifecycle/domain/errors"
	httptransport "rolewarden/contexts/access-control/grant-lifecycle/transport/http"
)

const shutdownGrace = 10 * time.Second

// Server exposes the grant-lifecycle admin surface. It is thin glue: body
// decoding, path parsing, and error-to-status mapping around the module
// handler.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	grants grantlifecycle.Module
}

func New(grants grantlifecycle.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		grants: grants,
	}
	s.registerRoutes()
	return s
}

// Start serves until ctx is cancelled, then drains in-flight requests
// before returning. A listener failure is returned as-is.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	s.logger.Info("http server stopped",
		"event", "http_server_stopped",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/grants/v1/grants", s.handleCreateGrant)
	s.mux.HandleFunc("GET /api/grants/v1/principals/{principal_id}/realms/{realm_id}/grants", s.handleListActiveGrants)
	s.mux.HandleFunc("GET /api/grants/v1/grants/count", s.handleCountGrants)
	s.mux.HandleFunc("POST /api/grants/v1/reconcile", s.handleReconcile)
}

func (s *Server) handleCreateGrant(w http.ResponseWriter, r *http.Request) {
	var req httptransport.CreateGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	resp, err := s.grants.Handler.CreateGrantHandler(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListActiveGrants(w http.ResponseWriter, r *http.Request) {
	principalID, ok := parseID(w, r.PathValue("principal_id"), "principal_id")
	if !ok {
		return
	}
	realmID, ok := parseID(w, r.PathValue("realm_id"), "realm_id")
	if !ok {
		return
	}

	resp, err := s.grants.Handler.ListActiveGrantsHandler(r.Context(), principalID, realmID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCountGrants(w http.ResponseWriter, r *http.Request) {
	resp, err := s.grants.Handler.CountGrantsHandler(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	resp, err := s.grants.Handler.ReconcileHandler(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "grant storage is unavailable")
	case errors.Is(err, domainerrors.ErrPassInFlight):
		writeError(w, http.StatusConflict, "reconcile_in_flight", "a reconciliation pass is already running")
	case errors.Is(err, domainerrors.ErrInvalidPrincipalID),
		errors.Is(err, domainerrors.ErrInvalidRealmID),
		errors.Is(err, domainerrors.ErrInvalidRoleID),
		errors.Is(err, domainerrors.ErrInvalidExpiry):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		s.logger.Error("unhandled grant request failure",
			"event", "http_unhandled_error",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "request failed")
	}
}

func parseID(w http.ResponseWriter, raw string, field string) (int64, bool) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+field, field+" must be an integer")
		return 0, false
	}
	return value, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, httptransport.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
