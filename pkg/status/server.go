// Package status serves the operational endpoint of a running bot:
// liveness, login and connection state, the event journal and Prometheus
// metrics.
package status

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ZentaChain/ntlink/pkg/metrics"
	"github.com/ZentaChain/ntlink/pkg/storage"
)

// Snapshot is the state reported by /status
type Snapshot struct {
	Uin       int64  `json:"uin"`
	Uid       string `json:"uid,omitempty"`
	Protocol  string `json:"protocol"`
	State     string `json:"state"`
	Challenge string `json:"challenge,omitempty"`
	URL       string `json:"url,omitempty"`
	Connected bool   `json:"connected"`
	Pending   int    `json:"pending"`
}

// Source reports the current state of a bot
type Source interface {
	Snapshot() Snapshot
}

// Config holds server configuration
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Addr:         "127.0.0.1:9180",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server is the status HTTP server
type Server struct {
	router     *gin.Engine
	config     *Config
	source     Source
	metrics    *metrics.Metrics
	journal    *storage.Journal
	started    time.Time
	httpServer *http.Server
}

// NewServer creates a server. m and journal may be nil, in which case
// /metrics and /journal are not routed.
func NewServer(config *Config, source Source, m *metrics.Metrics, journal *storage.Journal) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		router:  router,
		config:  config,
		source:  source,
		metrics: m,
		journal: journal,
		started: time.Now(),
	}
	s.router.Use(LoggingMiddleware())
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/status", s.handleStatus)
	if s.journal != nil {
		s.router.GET("/journal", s.handleJournal)
	}
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}
}

// Handler exposes the router, for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is done, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🌐 [status] listening on %s", s.config.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("🛑 [status] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(s.started).Truncate(time.Second).String(),
	})
}

// handleStatus answers 200 while connected and 503 otherwise, so the
// endpoint doubles as a readiness probe
func (s *Server) handleStatus(c *gin.Context) {
	snap := s.source.Snapshot()
	code := http.StatusOK
	if !snap.Connected {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, snap)
}

type journalEntry struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	GroupUin   int64           `json:"group_uin,omitempty"`
	PeerUin    int64           `json:"peer_uin,omitempty"`
	Sequence   int64           `json:"sequence,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleJournal(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid limit",
				Message: "limit must be a number between 1 and 1000",
			})
			return
		}
		limit = n
	}

	entries, err := s.journal.List(c.Request.Context(), c.Query("name"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Journal unavailable", Message: err.Error()})
		return
	}

	out := make([]journalEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, journalEntry{
			ID:         e.ID,
			Name:       e.Name,
			GroupUin:   e.GroupUin,
			PeerUin:    e.PeerUin,
			Sequence:   e.Sequence,
			Payload:    json.RawMessage(e.Payload),
			RecordedAt: e.RecordedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out, "count": len(out)})
}
