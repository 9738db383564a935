package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/tree"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/infrastructure/tracing"
)

const (
	shutdownTimeout = 10 * time.Second
	spanBuffer      = 1024
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	manager *tree.Manager
	loop    *tree.Loop
	ws      *ws.Handler
	pending *ws.PendingRegistry
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// DisplayInfo describes one display on the /displays endpoint.
type DisplayInfo struct {
	ID            int64                `json:"id"`
	Root          uint32               `json:"root"`
	Metrics       tree.ViewportMetrics `json:"metrics"`
	WindowManager uint16               `json:"window_manager,omitempty"`
	Focused       uint32               `json:"focused,omitempty"`
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return New(cfg, logger)
}

// New creates a server that logs to logger.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	layout, err := cfg.Display.Layout()
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing window server",
		zap.String("port", cfg.Server.Port),
		zap.Int("displays", len(layout.Displays)),
	)

	metrics := monitoring.NewMetrics()

	manager := tree.NewManager(logger.Tree()).
		WithMetrics(metrics).
		WithEventQueueLimit(cfg.Session.EventQueueLimit)
	for _, spec := range layout.Displays {
		manager.AddDisplay(tree.ViewportMetrics{
			Width:             spec.Width,
			Height:            spec.Height,
			DeviceScaleFactor: spec.Scale,
		})
	}
	loop := tree.NewLoop(manager, cfg.Session.LoopBacklog)

	pending := ws.NewPendingRegistry(metrics)
	wsHandler := ws.NewHandler(loop, pending, logger, metrics, ws.Config{
		SendBuffer:   cfg.Session.SendBuffer,
		MessageRPS:   cfg.Session.MessageRPS,
		MessageBurst: cfg.Session.MessageBurst,
	})

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	tracer := tracing.New(logger.Trace(), spanBuffer)
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	}
	router.Use(middleware.CORS(corsCfg))

	s := &Server{
		router:  router,
		manager: manager,
		loop:    loop,
		ws:      wsHandler,
		pending: pending,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		tracer:  tracer,
	}

	// Register routes
	router.GET("/health", s.health)
	router.GET("/displays", s.displays)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	stream := []gin.HandlerFunc{}
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		stream = append(stream, middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	stream = append(stream, wsHandler.HandleConnection)
	router.GET("/stream", stream...)

	logger.Info("Server initialized successfully")
	return s, nil
}

// Handler returns the HTTP handler, for embedding in tests.
func (s *Server) Handler() http.Handler { return s.router }

// Loop returns the tree loop. It must be running for requests to complete.
func (s *Server) Loop() *tree.Loop { return s.loop }

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go s.loop.Run(loopCtx)

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.ws.Close()
		s.tracer.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked stream connections are not tracked by Shutdown.
	s.ws.Close()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	<-errCh
	s.tracer.Close()
	_ = s.logger.Sync()
	return err
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"clients":         s.ws.Sessions(),
		"pending_clients": s.pending.Len(),
		"metrics":         s.metrics.Snapshot(),
	})
}

func (s *Server) displays(c *gin.Context) {
	// The closure may still run after a cancelled Call returns, so it only
	// hands its result over through the channel.
	result := make(chan []DisplayInfo, 1)
	err := s.loop.Call(c.Request.Context(), func(m *tree.Manager) {
		var out []DisplayInfo
		for _, d := range m.Displays() {
			info := DisplayInfo{
				ID:      d.ID(),
				Root:    d.Root().ID().Transport(),
				Metrics: d.Metrics(),
			}
			if wm := d.WindowManager(); wm != nil {
				info.WindowManager = uint16(wm.ID())
			}
			if f := d.FocusedWindow(); f != nil {
				info.Focused = f.ID().Transport()
			}
			out = append(out, info)
		}
		result <- out
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"displays": <-result})
}
