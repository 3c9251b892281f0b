// internal/callback/server.go
package callback

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/config"
	stderrors "github.com/City-of-Helsinki/yjdh-sub002/internal/common/errors"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/logger"
)

const maxCallbackBody = 1 << 20 // 1 MiB

// Server exposes the two inbound callback endpoints and the metrics path.
type Server struct {
	ahjo   *AhjoReconciler
	talpa  *TalpaReconciler
	cfg    config.CallbackConfig
	creds  config.TalpaConfig
	logger logger.Logger
	srv    *http.Server
}

func NewServer(ahjo *AhjoReconciler, talpa *TalpaReconciler,
	cfg config.CallbackConfig, creds config.TalpaConfig, l logger.Logger) *Server {
	s := &Server{ahjo: ahjo, talpa: talpa, cfg: cfg, creds: creds, logger: l}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ahjo/callback/{uuid}", s.handleAhjo)
	mux.HandleFunc("POST /talpa/callback", s.handleTalpa)
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	mux.Handle("GET "+metricsPath, promhttp.Handler())

	s.srv = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("callback server listening", map[string]interface{}{
		"address": s.srv.Addr,
	})
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight callbacks.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleAhjo(w http.ResponseWriter, r *http.Request) {
	applicationID := r.PathValue("uuid")
	if _, err := uuid.Parse(applicationID); err != nil {
		http.Error(w, "invalid application id", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}
	if err := ValidateAhjoPayload(body); err != nil {
		s.logger.Warn("rejected malformed case system callback", map[string]interface{}{
			"application_id": applicationID,
			"error":          err.Error(),
		})
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var cb AhjoCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		http.Error(w, "undecodable body", http.StatusBadRequest)
		return
	}

	if err := s.ahjo.Handle(r.Context(), applicationID, &cb); err != nil {
		if stderrors.IsCode(err, stderrors.ErrCodeApplicationNotFound) {
			http.Error(w, "unknown application", http.StatusNotFound)
			return
		}
		s.logger.Error("case system callback failed", map[string]interface{}{
			"application_id": applicationID,
			"error":          err.Error(),
		})
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTalpa(w http.ResponseWriter, r *http.Request) {
	if !s.talpaAuthorized(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="talpa-callback"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}
	if err := ValidateTalpaPayload(body); err != nil {
		s.logger.Warn("rejected malformed payment system callback", map[string]interface{}{
			"error": err.Error(),
		})
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var cb TalpaCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		http.Error(w, "undecodable body", http.StatusBadRequest)
		return
	}

	if err := s.talpa.Handle(r.Context(), &cb); err != nil {
		s.logger.Error("payment system callback failed", map[string]interface{}{
			"error": err.Error(),
		})
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) talpaAuthorized(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.creds.CallbackUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.creds.CallbackPassword)) == 1
	return userOK && passOK
}
