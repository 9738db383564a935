package tree

import "github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"

// ViewportMetrics describe the physical output a display maps to.
type ViewportMetrics struct {
	Width             int     `json:"width" yaml:"width"`
	Height            int     `json:"height" yaml:"height"`
	DeviceScaleFactor float64 `json:"device_scale_factor" yaml:"scale"`
}

// Display is a host: a root window bound to one output. It tracks focus for
// the windows attached to it.
type Display struct {
	manager *Manager
	id      int64
	root    *window.Window
	metrics ViewportMetrics
	focused *window.Ref
}

func (d *Display) ID() int64 { return d.id }
func (d *Display) Root() *window.Window { return d.root }
func (d *Display) Metrics() ViewportMetrics { return d.metrics }

// WindowManager returns the connection embedded at the display root, if any.
func (d *Display) WindowManager() *Connection {
	return d.manager.ConnectionWithRoot(d.root)
}

// FocusedWindow returns the focused window, or nil.
func (d *Display) FocusedWindow() *window.Window {
	return d.focused.Get()
}

// setFocusedWindow changes focus and tells every connection. The caller
// holds the operation that caused the change, if any.
func (d *Display) setFocusedWindow(w *window.Window) {
	old := d.FocusedWindow()
	if old == w {
		return
	}
	d.focused.Release()
	d.focused = nil
	if w != nil {
		d.focused = w.Track()
	}
	d.manager.processFocusChanged(old, w)
}

// SetMetrics changes the viewport metrics and tells the connections with
// roots on this display.
func (d *Display) SetMetrics(metrics ViewportMetrics) {
	if d.metrics == metrics {
		return
	}
	op := d.manager.beginOperation(nil, OpSetViewportMetrics)
	defer op.End()
	old := d.metrics
	d.metrics = metrics
	for _, c := range d.manager.sortedConnections() {
		c.processViewportMetricsChanged(d, old, metrics)
	}
}

// DispatchInputEvent routes an event to the connection responsible for
// target: the one embedded at target, otherwise the one that created it.
func (d *Display) DispatchInputEvent(target *window.Window, event Event) bool {
	c := d.manager.ConnectionWithRoot(target)
	if c == nil {
		c = d.manager.Connection(target.ID().Connection)
	}
	if c == nil {
		return false
	}
	c.DispatchInputEvent(target, event)
	return true
}
