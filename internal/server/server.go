package server

import (
	"context"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/jpalmerr/heartboard/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// maxBodyBytes caps submission bodies at 100kb.
	maxBodyBytes = 100 << 10

	defaultTitle        = "Heartboard"
	defaultHost         = "0.0.0.0"
	defaultHistoryLimit = 50

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Config holds the settings the HTTP layer needs.
type Config struct {
	// Host is the interface to listen on. Defaults to all interfaces.
	Host string

	// Port is the TCP port to listen on. Zero lets the OS pick one.
	Port int

	// Title replaces the placeholder in the landing page.
	Title string

	// DefaultHistoryLimit is used by the history endpoint when no
	// limit parameter is given. Defaults to 50.
	DefaultHistoryLimit int
}

// Server handles HTTP requests for the heart-rate API and landing page.
type Server struct {
	store      store.Store
	cfg        Config
	assets     fs.FS
	logger     *slog.Logger
	now        func() time.Time
	handler    http.Handler
	httpServer *http.Server

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a new HTTP [Server].
//
// assets holds the landing page under "assets/index.html" and may be nil,
// in which case "/" is not served. The server is not started until
// [Server.Start] is called.
func NewServer(st store.Store, cfg Config, assets fs.FS, logger *slog.Logger) *Server {
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	if cfg.DefaultHistoryLimit == 0 {
		cfg.DefaultHistoryLimit = defaultHistoryLimit
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:  st,
		cfg:    cfg,
		assets: assets,
		logger: logger,
		now:    time.Now,
	}
	s.handler = withCORS(s.withRequestLog(withLenientPaths(s.routes())))
	return s
}

// routes builds the API router. Paths are matched in their encoded form so
// a user name containing "/" can still be addressed as %2F.
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter().UseEncodedPath()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/heart-rate", s.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/users/{name}", s.handleLatest).Methods(http.MethodGet)
	api.HandleFunc("/users/{name}/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/stream", s.handleSSE).Methods(http.MethodGet)

	if s.assets != nil {
		r.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)
	}

	// unmatched methods are reported like unknown paths
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleNotFound)
	api.NotFoundHandler = r.NotFoundHandler
	api.MethodNotAllowedHandler = r.MethodNotAllowedHandler
	return r
}

// Handler returns the fully wrapped HTTP handler (CORS, request logging, routes).
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the address the server is listening on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured address.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts end with the server context so SSE streams exit on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDashboard serves the landing page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// escape the title so it cannot inject markup
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(s.cfg.Title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}
