package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/tree"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/shared/id"
)

// Roles a client may ask for when it connects.
const (
	RoleClient  = "client"
	RoleWM      = "wm"
	RolePending = "pending"
)

var errUnknownDisplay = errors.New("unknown display")

// Config holds per-connection transport limits.
type Config struct {
	SendBuffer   int
	MessageRPS   float64
	MessageBurst int
	ReadLimit    int64
	WriteWait    time.Duration
	PongWait     time.Duration
	PingPeriod   time.Duration
	// DetachTimeout bounds how long a closing client waits for the loop.
	DetachTimeout time.Duration
}

// DefaultConfig returns the transport defaults.
func DefaultConfig() Config {
	return Config{
		SendBuffer:    256,
		MessageRPS:    500,
		MessageBurst:  1000,
		ReadLimit:     1 << 20,
		WriteWait:     10 * time.Second,
		PongWait:      60 * time.Second,
		PingPeriod:    54 * time.Second,
		DetachTimeout: 5 * time.Second,
	}
}

// Handler attaches WebSocket clients to the window tree. Requests are
// decoded on the connection's goroutine and run on the tree loop.
type Handler struct {
	loop     *tree.Loop
	pending  *PendingRegistry
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	cfg      Config
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*session]struct{}
}

// session is one attached client. conn is only touched on the tree loop.
type session struct {
	peer    id.PeerID
	role    string
	proxy   *Proxy
	logger  *zap.Logger
	limiter *rate.Limiter
	token   string
	conn    *tree.Connection
}

// NewHandler creates a new WebSocket handler
func NewHandler(loop *tree.Loop, pending *PendingRegistry, logger *logging.Logger, metrics *monitoring.Metrics, cfg Config) *Handler {
	def := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.MessageRPS <= 0 {
		cfg.MessageRPS = def.MessageRPS
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = def.MessageBurst
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.DetachTimeout <= 0 {
		cfg.DetachTimeout = def.DetachTimeout
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{
		loop:    loop,
		pending: pending,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			// Origins are checked by the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[*session]struct{}),
	}
}

// HandleConnection upgrades the request and serves the client until it
// disconnects. The role query picks how the client enters the tree:
// client (default) gets a fresh connection, wm attaches to the display
// named by the display query, pending waits to be embedded.
func (h *Handler) HandleConnection(c *gin.Context) {
	role := c.DefaultQuery("role", RoleClient)
	var displayID int64
	switch role {
	case RoleClient, RolePending:
	case RoleWM:
		v, err := strconv.ParseInt(c.Query("display"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "display must be a display id"})
			return
		}
		displayID = v
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role " + role})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	peer := id.NewPeerID()
	logger := h.logger.Peer(peer.String())
	if traceID := tracing.GetTraceID(c.Request.Context()); traceID != "" {
		logger = logger.With(zap.String("trace_id", string(traceID)))
	}
	s := &session{
		peer:    peer,
		role:    role,
		proxy:   NewProxy(h.cfg.SendBuffer, logger, h.metrics),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(h.cfg.MessageRPS), h.cfg.MessageBurst),
	}

	h.track(s)
	defer h.untrack(s)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(conn, s.proxy)
	}()
	defer func() {
		s.proxy.Close()
		<-writerDone
	}()

	ctx := c.Request.Context()
	if err := h.attach(ctx, s, displayID); err != nil {
		logger.Info("Attach refused", zap.String("role", role), zap.Error(err))
		s.proxy.emitError(err.Error())
		h.detach(s)
		return
	}
	logger.Info("Client attached", zap.String("role", role))

	h.readPump(ctx, conn, s)
	h.detach(s)
	logger.Info("Client detached", zap.NamedError("reason", s.proxy.Err()))
}

// Close disconnects every client.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		s.proxy.Close()
	}
}

// Sessions returns the number of attached clients.
func (h *Handler) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Handler) track(s *session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
}

func (h *Handler) untrack(s *session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
}

func (h *Handler) attach(ctx context.Context, s *session, displayID int64) error {
	if s.role == RolePending {
		s.token = h.pending.add(s)
		s.proxy.Emit(Frame{"type": "pending", "token": s.token})
		return nil
	}

	var attachErr error
	err := h.loop.Call(ctx, func(m *tree.Manager) {
		switch s.role {
		case RoleWM:
			d := m.Display(displayID)
			if d == nil {
				attachErr = fmt.Errorf("%w %d", errUnknownDisplay, displayID)
				return
			}
			s.conn, attachErr = m.AttachWindowManager(d, s.proxy)
		default:
			s.conn, attachErr = m.NewConnection(s.proxy)
		}
	})
	if err != nil {
		return err
	}
	return attachErr
}

func (h *Handler) detach(s *session) {
	if s.token != "" {
		h.pending.remove(s.token)
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.DetachTimeout)
	defer cancel()
	err := h.loop.Post(ctx, func(m *tree.Manager) {
		// A failed embed may have put the token back in the meantime.
		if s.token != "" {
			h.pending.remove(s.token)
		}
		if s.conn != nil {
			m.DestroyConnection(s.conn)
			s.conn = nil
		}
	})
	if err != nil && !errors.Is(err, tree.ErrLoopStopped) {
		s.logger.Error("Failed to detach connection", zap.Error(err))
	}
}

func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, s *session) {
	conn.SetReadLimit(h.cfg.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		var req Request
		if err := sonic.Unmarshal(data, &req); err != nil {
			s.proxy.emitError("invalid message: " + err.Error())
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", req.Type)
		}

		if req.Type == TypePing {
			s.proxy.Emit(Frame{"type": "pong"})
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		if err := h.loop.Post(ctx, func(m *tree.Manager) {
			timer := monitoring.NewTimer(h.metrics, req.Type)
			defer timer.Stop()
			h.handle(m, s, req)
		}); err != nil {
			s.logger.Debug("Tree loop unavailable", zap.Error(err))
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, p *Proxy) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer ticker.Stop()

	write := func(data []byte) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
		return conn.WriteMessage(websocket.TextMessage, data) == nil
	}

	for {
		select {
		case data := <-p.Outbox():
			if !write(data) {
				p.Close()
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.Close()
				conn.Close()
				return
			}
		case <-p.Done():
			// Flush what was queued before the close, then say goodbye.
			for {
				select {
				case data := <-p.Outbox():
					if !write(data) {
						conn.Close()
						return
					}
				default:
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(h.cfg.WriteWait))
					conn.Close()
					return
				}
			}
		}
	}
}
