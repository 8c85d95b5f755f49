package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"pkt.systems/pslog"

	"github.com/runnerr0/tabtrail/internal/config"
)

const shutdownTimeout = 5 * time.Second

// Status is the body of GET /status.
type Status struct {
	OK            bool   `json:"ok"`
	Version       string `json:"version,omitempty"`
	Records       int    `json:"records"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// Server exposes a Handler over local HTTP.
type Server struct {
	handler  *Handler
	maxBody  int64
	gatherer prometheus.Gatherer
	messages *prometheus.CounterVec
	started  time.Time
	version  string
	host     string
}

// NewServer creates a Server. Metrics are registered with reg and served
// from it.
func NewServer(h *Handler, cfg config.DaemonConfig, reg *prometheus.Registry, version string) *Server {
	maxBody := int64(cfg.MaxRequestSize)
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Server{
		handler:  h,
		maxBody:  maxBody,
		gatherer: reg,
		messages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabtrail",
			Subsystem: "daemon",
			Name:      "messages_total",
			Help:      "Messages handled by the daemon.",
		}, []string{"action", "success"}),
		started: time.Now(),
		version: version,
		host:    cfg.Host,
	}
}

// Handler returns the http.Handler for the daemon.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/message", s.handleMessage)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return withRequestLogging(s.localOnly(mux))
}

// localOnly rejects requests whose Host is neither a loopback address nor
// the configured daemon host. Browsers send the attacker's name as Host
// after a DNS rebind.
func (s *Server) localOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.allowedHost(r.Host) {
			writeJSON(w, http.StatusForbidden, Response{Error: "host not allowed"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "" {
		return false
	}
	if strings.EqualFold(host, "localhost") || (s.host != "" && strings.EqualFold(host, s.host)) {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}
	// Clients are local processes; any Origin means a web page sent it.
	if r.Header.Get("Origin") != "" {
		writeJSON(w, http.StatusForbidden, Response{Error: "cross-origin requests are not allowed"})
		return
	}
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		writeJSON(w, http.StatusUnsupportedMediaType, Response{Error: "content type must be application/json"})
		return
	}

	var req Request
	if err := decodeJSON(http.MaxBytesReader(w, r.Body, s.maxBody), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}

	resp := s.handler.Handle(r.Context(), req)
	s.messages.WithLabelValues(req.Action, strconv.FormatBool(resp.Success)).Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}
	st := Status{
		OK:            true,
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	records, err := s.handler.store.GetAll(r.Context())
	if err != nil {
		st.OK = false
	}
	st.Records = len(records)
	writeJSON(w, http.StatusOK, st)
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		pslog.Ctx(r.Context()).Debug("http request", "method", r.Method, "path", r.URL.Path, "status", status, "duration_ms", time.Since(start).Milliseconds())
	})
}

// ListenAndServe serves handler on addr and shuts down when ctx is done.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	logger := pslog.Ctx(ctx)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          pslog.LogLoggerWithLevel(logger, pslog.ErrorLevel),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logger.Info("daemon listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
