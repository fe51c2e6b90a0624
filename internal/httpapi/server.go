package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/s112213021-sketch/midorSys/internal/midorsys/service"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/types"
)

type Dependencies struct {
	Logger     *log.Logger
	Addr       string
	Router     *service.ScanRouter
	Enrollment *service.EnrollmentService
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	mux        *http.ServeMux
	router     *service.ScanRouter
	enrollment *service.EnrollmentService
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:     d.Logger,
		mux:        mux,
		router:     d.Router,
		enrollment: d.Enrollment,
	}

	mux.HandleFunc("POST /v1/scan", s.handleScan)
	mux.HandleFunc("POST /v1/identities", s.handleRegister)
	mux.HandleFunc("POST /v1/enroll/start", s.handleEnrollStart)
	mux.HandleFunc("POST /v1/enroll/scan", s.handleEnrollScan)
	mux.HandleFunc("POST /v1/enroll/cancel", s.handleEnrollCancel)
	mux.HandleFunc("GET /v1/enroll/status/{identity_id}", s.handleEnrollStatus)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req types.ScanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	outcome, err := s.router.Route(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, "scan", err)
		return
	}

	writeJSON(w, http.StatusOK, types.ScanResponse{
		OK:          true,
		Status:      outcome.Status,
		IdentityID:  outcome.IdentityID,
		DisplayName: outcome.DisplayName,
		ServerTime:  serverTime(),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.enrollment.Register(r.Context(), req.IdentityID, req.DisplayName); err != nil {
		s.writeServiceError(w, "register", err)
		return
	}

	writeJSON(w, http.StatusOK, types.StatusResponse{
		OK:         true,
		Status:     "registered",
		IdentityID: req.IdentityID,
		ServerTime: serverTime(),
	})
}

func (s *Server) handleEnrollStart(w http.ResponseWriter, r *http.Request) {
	var req types.EnrollStartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.enrollment.StartSession(r.Context(), req.IdentityID); err != nil {
		s.writeServiceError(w, "enroll start", err)
		return
	}

	writeJSON(w, http.StatusOK, types.StatusResponse{
		OK:         true,
		Status:     "session_started",
		IdentityID: req.IdentityID,
		ServerTime: serverTime(),
	})
}

func (s *Server) handleEnrollScan(w http.ResponseWriter, r *http.Request) {
	var req types.EnrollScanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	outcome, err := s.enrollment.SubmitScan(r.Context(), req.IdentityID, req.CardID)
	if err != nil {
		s.writeServiceError(w, "enroll scan", err)
		return
	}

	writeJSON(w, http.StatusOK, types.ScanResponse{
		OK:         true,
		Status:     string(outcome),
		IdentityID: req.IdentityID,
		ServerTime: serverTime(),
	})
}

func (s *Server) handleEnrollCancel(w http.ResponseWriter, r *http.Request) {
	var req types.EnrollCancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.enrollment.CancelSession(r.Context(), req.IdentityID); err != nil {
		s.writeServiceError(w, "enroll cancel", err)
		return
	}

	writeJSON(w, http.StatusOK, types.StatusResponse{
		OK:         true,
		Status:     "cancelled",
		IdentityID: req.IdentityID,
		ServerTime: serverTime(),
	})
}

func (s *Server) handleEnrollStatus(w http.ResponseWriter, r *http.Request) {
	identityID := r.PathValue("identity_id")

	status, err := s.enrollment.Status(r.Context(), identityID)
	if err != nil {
		s.writeServiceError(w, "enroll status", err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	return true
}

func serverTime() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
