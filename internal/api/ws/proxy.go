package ws

import (
	"errors"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/tree"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/infrastructure/monitoring"
)

// ErrSendBufferFull is reported when a client stops reading.
var ErrSendBufferFull = errors.New("send buffer full")

// Proxy is the tree's view of a remote client. Notifications are encoded on
// the calling goroutine and queued for the write pump; they never block.
// A client that lets its buffer fill is disconnected.
type Proxy struct {
	logger  *zap.Logger
	metrics *monitoring.Metrics

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

var (
	_ tree.Client        = (*Proxy)(nil)
	_ tree.WindowManager = (*Proxy)(nil)
)

// NewProxy creates a proxy buffering up to buffer frames.
func NewProxy(buffer int, logger *zap.Logger, metrics *monitoring.Metrics) *Proxy {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Proxy{
		logger:  logger,
		metrics: metrics,
		send:    make(chan []byte, buffer),
		done:    make(chan struct{}),
	}
}

// Outbox yields encoded frames in order.
func (p *Proxy) Outbox() <-chan []byte { return p.send }

// Done is closed once the proxy stops accepting frames.
func (p *Proxy) Done() <-chan struct{} { return p.done }

// Err returns why the proxy closed, if it closed on its own.
func (p *Proxy) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Close stops the proxy. Frames already queued stay readable.
func (p *Proxy) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

func (p *Proxy) fail(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
	p.Close()
}

// Emit encodes and queues a frame. It is safe for concurrent use.
func (p *Proxy) Emit(frame Frame) {
	select {
	case <-p.done:
		return
	default:
	}

	data, err := sonic.Marshal(frame)
	if err != nil {
		p.logger.Error("Failed to encode frame", zap.Any("type", frame["type"]), zap.Error(err))
		return
	}

	select {
	case p.send <- data:
		if p.metrics != nil {
			if msgType, ok := frame["type"].(string); ok {
				p.metrics.RecordWSMessage("out", msgType)
			}
		}
	default:
		p.logger.Warn("Client is not reading, disconnecting", zap.Int("buffered", len(p.send)))
		p.fail(ErrSendBufferFull)
	}
}

func (p *Proxy) emitError(message string) {
	p.Emit(Frame{"type": "error", "message": message})
}

func (p *Proxy) OnConnected(id window.ConnectionID) {
	p.Emit(Frame{"type": "connected", "connection": id})
}

func (p *Proxy) OnEmbed(id window.ConnectionID, windows []tree.WindowData, focused window.ID, accessPolicy uint32) {
	p.Emit(Frame{
		"type":           "embed",
		"connection":     id,
		"windows":        windowData(windows),
		"focused":        focused,
		"policy_bitmask": accessPolicy,
	})
}

func (p *Proxy) OnEmbeddedAppDisconnected(w window.ID) {
	p.Emit(Frame{"type": "embedded_app_disconnected", "window": w})
}

func (p *Proxy) OnUnembed(w window.ID) {
	p.Emit(Frame{"type": "unembed", "window": w})
}

func (p *Proxy) OnTopLevelCreated(changeID uint32, data tree.WindowData, drawn bool) {
	p.Emit(Frame{"type": "top_level_created", "change_id": changeID, "data": data, "drawn": drawn})
}

func (p *Proxy) OnWindowBoundsChanged(w window.ID, oldBounds, newBounds window.Rect) {
	p.Emit(Frame{"type": "bounds_changed", "window": w, "old_bounds": oldBounds, "new_bounds": newBounds})
}

func (p *Proxy) OnClientAreaChanged(w window.ID, insets window.Insets) {
	p.Emit(Frame{"type": "client_area_changed", "window": w, "insets": insets})
}

func (p *Proxy) OnTransientWindowAdded(w, transient window.ID) {
	p.Emit(Frame{"type": "transient_window_added", "window": w, "transient": transient})
}

func (p *Proxy) OnTransientWindowRemoved(w, transient window.ID) {
	p.Emit(Frame{"type": "transient_window_removed", "window": w, "transient": transient})
}

func (p *Proxy) OnWindowHierarchyChanged(w, newParent, oldParent window.ID, windows []tree.WindowData) {
	p.Emit(Frame{
		"type":       "hierarchy_changed",
		"window":     w,
		"new_parent": newParent,
		"old_parent": oldParent,
		"windows":    windowData(windows),
	})
}

func (p *Proxy) OnWindowReordered(w, relative window.ID, direction window.OrderDirection) {
	p.Emit(Frame{"type": "reordered", "window": w, "relative": relative, "direction": direction.String()})
}

func (p *Proxy) OnWindowDeleted(w window.ID) {
	p.Emit(Frame{"type": "window_deleted", "window": w})
}

func (p *Proxy) OnWindowVisibilityChanged(w window.ID, visible bool) {
	p.Emit(Frame{"type": "visibility_changed", "window": w, "visible": visible})
}

func (p *Proxy) OnWindowParentDrawnStateChanged(w window.ID, drawn bool) {
	p.Emit(Frame{"type": "drawn_state_changed", "window": w, "drawn": drawn})
}

func (p *Proxy) OnWindowSharedPropertyChanged(w window.ID, name string, value []byte) {
	p.Emit(Frame{"type": "property_changed", "window": w, "name": name, "value": value})
}

func (p *Proxy) OnWindowInputEvent(ackID uint32, w window.ID, event tree.Event) {
	p.Emit(Frame{"type": "input_event", "ack_id": ackID, "window": w, "event": event})
}

func (p *Proxy) OnWindowFocused(w window.ID) {
	p.Emit(Frame{"type": "focused", "window": w})
}

func (p *Proxy) OnWindowPredefinedCursorChanged(w window.ID, cursor window.Cursor) {
	p.Emit(Frame{"type": "cursor_changed", "window": w, "cursor": cursor})
}

func (p *Proxy) OnViewportMetricsChanged(roots []window.ID, oldMetrics, newMetrics tree.ViewportMetrics) {
	p.Emit(Frame{
		"type":        "viewport_metrics_changed",
		"roots":       windowIDs(roots),
		"old_metrics": oldMetrics,
		"new_metrics": newMetrics,
	})
}

func (p *Proxy) OnChangeCompleted(changeID uint32, success bool) {
	p.Emit(Frame{"type": "change_completed", "change_id": changeID, "success": success})
}

func (p *Proxy) WmSetBounds(wmChangeID uint32, w window.ID, bounds window.Rect) {
	p.Emit(Frame{"type": "wm_set_bounds", "wm_change_id": wmChangeID, "window": w, "bounds": bounds})
}

func (p *Proxy) WmSetProperty(wmChangeID uint32, w window.ID, name string, value []byte) {
	p.Emit(Frame{"type": "wm_set_property", "wm_change_id": wmChangeID, "window": w, "name": name, "value": value})
}

func (p *Proxy) WmCreateTopLevelWindow(wmChangeID uint32, properties map[string][]byte) {
	if properties == nil {
		properties = map[string][]byte{}
	}
	p.Emit(Frame{"type": "wm_create_top_level_window", "wm_change_id": wmChangeID, "properties": properties})
}
