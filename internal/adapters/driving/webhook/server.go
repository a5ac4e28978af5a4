package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-events/internal/logger"
)

const (
	// DefaultMaxBodyBytes caps the size of a delivery body.
	DefaultMaxBodyBytes = 1 << 20

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 5 * time.Second

	paramSourceKey = "sourceKey"
)

// Event type headers, in lookup order.
const (
	HeaderGitHubEvent    = "X-GitHub-Event"
	HeaderEventType      = "X-Event-Type"
	HeaderGitHubDelivery = "X-GitHub-Delivery"
)

// SecretFunc returns the signing secret for a source, or "" when
// deliveries for it are not signed.
type SecretFunc func(sourceKey string) string

// Config configures a Server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Runtime receives authenticated deliveries.
	Runtime driving.SourceRuntime

	// Secrets resolves per-source signing secrets. Nil disables verification.
	Secrets SecretFunc

	// Metrics is served at /metrics when set.
	Metrics http.Handler

	// MaxBodyBytes caps delivery bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// MaxSkew bounds timestamped signatures. Zero means DefaultSignatureMaxSkew.
	MaxSkew time.Duration

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Server is the webhook HTTP transport.
type Server struct {
	cfg    Config
	router chi.Router
}

// NewServer creates a server and builds its routes.
func NewServer(cfg Config) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.MaxSkew <= 0 {
		cfg.MaxSkew = DefaultSignatureMaxSkew
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{cfg: cfg}
	s.router = s.routes()
	return s
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Post("/hooks/{"+paramSourceKey+"}", s.handleDelivery)
	r.Get("/healthz", handleHealth)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("webhook listen: %w", err)
	}
	logger.Info("webhook server listening on %s", ln.Addr())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("webhook shutdown: %v", err)
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook serve: %w", err)
	}
	return nil
}

type deliveryResponse struct {
	Delivery string `json:"delivery"`
	Source   string `json:"source"`
	Emitted  bool   `json:"emitted"`
	Status   string `json:"status,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, paramSourceKey)
	deliveryID := r.Header.Get(HeaderGitHubDelivery)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read error")
		return
	}

	if s.cfg.Secrets != nil {
		if secret := s.cfg.Secrets(key); secret != "" {
			if err := verifySignature(r.Header, body, secret, s.cfg.Now(), s.cfg.MaxSkew); err != nil {
				logger.Warn("webhook %s: rejected delivery %s: %v", key, deliveryID, err)
				writeError(w, http.StatusUnauthorized, "invalid signature")
				return
			}
		}
	}

	if r.Header.Get(HeaderGitHubEvent) == "ping" {
		writeJSON(w, http.StatusOK, deliveryResponse{Delivery: deliveryID, Source: key, Status: "pong"})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}

	eventType := resolveEventType(r.Header, payload)
	emitted, err := s.cfg.Runtime.Deliver(r.Context(), key, eventType, payload)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			logger.Error("webhook %s: delivery %s: %v", key, deliveryID, err)
		} else {
			logger.Debug("webhook %s: delivery %s: %v", key, deliveryID, err)
		}
		writeError(w, status, err.Error())
		return
	}

	logger.Debug("webhook %s: delivery %s (%s) emitted=%t", key, deliveryID, eventType, emitted)
	writeJSON(w, http.StatusAccepted, deliveryResponse{Delivery: deliveryID, Source: key, Emitted: emitted})
}

// resolveEventType reads the event type from the provider header or,
// failing that, from the payload's "type" field.
func resolveEventType(h http.Header, payload map[string]any) string {
	for _, name := range []string{HeaderGitHubEvent, HeaderEventType} {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v
		}
	}
	t, _ := payload["type"].(string)
	return t
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotActive), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMalformedPayload), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrModeNotAllowed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDedupStoreUnavailable), errors.Is(err, domain.ErrRuntimeClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("webhook: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("%s %s -> %d (%s) [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start),
			middleware.GetReqID(r.Context()))
	})
}
