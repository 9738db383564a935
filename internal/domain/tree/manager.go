package tree

import (
	"errors"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/access"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/shared/id"
)

var (
	ErrDisplayHasWindowManager = errors.New("display already has a window manager")
	ErrNoConnectionIDs         = errors.New("connection ids exhausted")
)

// Manager owns the window tree and every connection viewing it. All methods
// must be called from the goroutine running the manager's Loop.
type Manager struct {
	logger  *zap.Logger
	metrics *monitoring.Metrics
	tokens  *id.Generator

	eventQueueLimit int

	nextConnectionID window.ConnectionID
	connections      map[window.ConnectionID]*Connection

	windows       map[window.ID]*window.Window
	displays      []*Display
	displayRoots  map[*window.Window]*Display
	nextDisplayID int64
	nextRootLocal window.LocalID

	operations []*Operation

	inFlight       map[uint32]inFlightChange
	nextWMChangeID uint32
}

// NewManager creates an empty tree with no displays.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:           logger,
		tokens:           id.Default(),
		nextConnectionID: 1,
		connections:      make(map[window.ConnectionID]*Connection),
		windows:          make(map[window.ID]*window.Window),
		displayRoots:     make(map[*window.Window]*Display),
		nextDisplayID:    1,
		nextRootLocal:    1,
		inFlight:         make(map[uint32]inFlightChange),
		nextWMChangeID:   1,
	}
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// WithEventQueueLimit caps the per-connection input backlog. Zero means no
// limit.
func (m *Manager) WithEventQueueLimit(limit int) *Manager {
	m.eventQueueLimit = limit
	return m
}

// WithTokenGenerator replaces the source of event ack tokens.
func (m *Manager) WithTokenGenerator(g *id.Generator) *Manager {
	m.tokens = g
	return m
}

// Logger returns the manager's logger.
func (m *Manager) Logger() *zap.Logger { return m.logger }

// AllocateConnectionID returns an unused connection id, or zero when every
// id is taken.
func (m *Manager) AllocateConnectionID() window.ConnectionID {
	for range 1 << 16 {
		cid := m.nextConnectionID
		m.nextConnectionID++
		if m.nextConnectionID == 0 {
			m.nextConnectionID = 1
		}
		if cid == 0 {
			continue
		}
		if _, used := m.connections[cid]; !used {
			return cid
		}
	}
	return 0
}

// Window looks a window up by its server id.
func (m *Manager) Window(wid window.ID) *window.Window {
	return m.windows[wid]
}

// CreateWindow adds a detached window to the arena. It returns nil if the id
// is taken.
func (m *Manager) CreateWindow(wid window.ID, properties map[string][]byte) *window.Window {
	if wid.IsZero() {
		return nil
	}
	if _, exists := m.windows[wid]; exists {
		return nil
	}
	w := window.New(wid, m, properties)
	m.windows[wid] = w
	m.updateWindowGauge()
	return w
}

// Connection returns the live connection with the id, or nil.
func (m *Manager) Connection(cid window.ConnectionID) *Connection {
	return m.connections[cid]
}

// Connections returns the live connections ordered by id.
func (m *Manager) Connections() []*Connection {
	return m.sortedConnections()
}

func (m *Manager) sortedConnections() []*Connection {
	ids := slices.Sorted(maps.Keys(m.connections))
	out := make([]*Connection, 0, len(ids))
	for _, cid := range ids {
		out = append(out, m.connections[cid])
	}
	return out
}

// ConnectionWithRoot returns the connection that has w as a root, or nil.
func (m *Manager) ConnectionWithRoot(w *window.Window) *Connection {
	if w == nil {
		return nil
	}
	for _, c := range m.connections {
		if c.hasRoot(w.ID()) {
			return c
		}
	}
	return nil
}

// AddDisplay creates a display with a visible root window.
func (m *Manager) AddDisplay(metrics ViewportMetrics) *Display {
	root := m.CreateWindow(window.ID{Connection: 0, Local: m.nextRootLocal}, nil)
	m.nextRootLocal++
	root.SetBounds(window.Rect{Width: metrics.Width, Height: metrics.Height})
	root.SetVisible(true)

	d := &Display{manager: m, id: m.nextDisplayID, root: root, metrics: metrics}
	m.nextDisplayID++
	m.displays = append(m.displays, d)
	m.displayRoots[root] = d
	m.logger.Info("Display added",
		zap.Int64("display", d.id),
		zap.Int("width", metrics.Width),
		zap.Int("height", metrics.Height),
	)
	return d
}

// Displays returns every display in creation order.
func (m *Manager) Displays() []*Display {
	return append([]*Display(nil), m.displays...)
}

// Display returns the display with the id, or nil.
func (m *Manager) Display(did int64) *Display {
	for _, d := range m.displays {
		if d.id == did {
			return d
		}
	}
	return nil
}

// DisplayForWindow returns the display w is attached to, or nil.
func (m *Manager) DisplayForWindow(w *window.Window) *Display {
	if w == nil {
		return nil
	}
	top := w
	for top.Parent() != nil {
		top = top.Parent()
	}
	return m.displayRoots[top]
}

// ViewportMetrics returns the metrics of the display w is attached to.
func (m *Manager) ViewportMetrics(w *window.Window) ViewportMetrics {
	if d := m.DisplayForWindow(w); d != nil {
		return d.metrics
	}
	return ViewportMetrics{}
}

// IsDisplayRoot reports whether w is the root window of a display.
func (m *Manager) IsDisplayRoot(w *window.Window) bool {
	_, ok := m.displayRoots[w]
	return ok
}

// NewConnection attaches a client that owns no roots yet. It may create
// windows and ask the window manager for top level windows.
func (m *Manager) NewConnection(client Client) (*Connection, error) {
	cid := m.AllocateConnectionID()
	if cid == 0 {
		return nil, ErrNoConnectionIDs
	}
	c := newConnection(m, cid, client, nil, 0)
	m.connections[cid] = c
	m.updateConnectionGauge()
	c.logger.Info("Connection attached")
	client.OnConnected(cid)
	return c, nil
}

// EmbedAtWindow creates a connection whose only root is w. The connection
// gets the window manager policy when w is a display root. The caller is
// responsible for revoking any previous root owner.
func (m *Manager) EmbedAtWindow(w *window.Window, client Client, policyBitmask uint32) (*Connection, error) {
	cid := m.AllocateConnectionID()
	if cid == 0 {
		return nil, ErrNoConnectionIDs
	}
	return m.embedWithID(cid, w, client, policyBitmask), nil
}

// embedWithID is EmbedAtWindow with an id the caller already allocated.
func (m *Manager) embedWithID(cid window.ConnectionID, w *window.Window, client Client, policyBitmask uint32) *Connection {
	c := newConnection(m, cid, client, w, policyBitmask)
	m.connections[cid] = c
	m.updateConnectionGauge()
	c.logger.Info("Connection embedded",
		zap.Stringer("root", w.ID()),
		zap.Bool("window_manager", c.policy.IsWindowManager()),
	)
	c.init()
	return c
}

// AttachWindowManager embeds client at the root of d.
func (m *Manager) AttachWindowManager(d *Display, client Client) (*Connection, error) {
	if d.WindowManager() != nil {
		return nil, ErrDisplayHasWindowManager
	}
	return m.EmbedAtWindow(d.root, client, access.EmbedRoot)
}

// windowManagerFor returns the window manager responsible for w, falling
// back to the first display's.
func (m *Manager) windowManagerFor(w *window.Window) *Connection {
	d := m.DisplayForWindow(w)
	if d == nil && len(m.displays) > 0 {
		d = m.displays[0]
	}
	if d == nil {
		return nil
	}
	return d.WindowManager()
}

// DestroyConnection detaches c, deleting every window it created.
func (m *Manager) DestroyConnection(c *Connection) {
	if c.closed {
		return
	}
	c.closed = true
	delete(m.connections, c.id)

	for _, other := range m.sortedConnections() {
		other.onConnectionDestroying(c)
	}

	failed := m.dropInFlightChanges(c)

	c.destroy()

	for _, f := range failed {
		if orig := m.connections[f.change.connection]; orig != nil {
			orig.onWindowManagerChangeFailed(f.wmChangeID, f.change.clientChangeID)
		}
	}

	m.updateConnectionGauge()
	c.logger.Info("Connection destroyed")
}

// window.Delegate

func (m *Manager) RootWindow(w *window.Window) *window.Window {
	if d := m.DisplayForWindow(w); d != nil {
		return d.root
	}
	return nil
}

func (m *Manager) OnWillChangeHierarchy(w, newParent, oldParent *window.Window) {
	for _, c := range m.sortedConnections() {
		c.processWillChangeHierarchy(w, newParent, oldParent, m.IsOperationSource(c.id))
	}
}

func (m *Manager) OnHierarchyChanged(w, newParent, oldParent *window.Window) {
	for _, c := range m.sortedConnections() {
		c.processHierarchyChanged(w, newParent, oldParent, m.IsOperationSource(c.id))
	}
	m.dropUndrawnFocus()
}

func (m *Manager) OnWillChangeVisibility(w *window.Window) {
	for _, c := range m.sortedConnections() {
		c.processWillChangeVisibility(w, m.IsOperationSource(c.id))
	}
}

func (m *Manager) OnVisibilityChanged(_ *window.Window) {
	m.dropUndrawnFocus()
}

func (m *Manager) OnBoundsChanged(w *window.Window, oldBounds, newBounds window.Rect) {
	for _, c := range m.sortedConnections() {
		c.processBoundsChanged(w, oldBounds, newBounds, m.IsOperationSource(c.id))
	}
}

func (m *Manager) OnClientAreaChanged(w *window.Window, _, newInsets window.Insets) {
	for _, c := range m.sortedConnections() {
		c.processClientAreaChanged(w, newInsets, m.IsOperationSource(c.id))
	}
}

func (m *Manager) OnReordered(w, relative *window.Window, direction window.OrderDirection) {
	for _, c := range m.sortedConnections() {
		c.processReorder(w, relative, direction, m.IsOperationSource(c.id))
	}
}

func (m *Manager) OnPropertyChanged(w *window.Window, name string, value []byte) {
	for _, c := range m.sortedConnections() {
		c.processPropertyChanged(w, name, value, m.IsOperationSource(c.id))
	}
}

func (m *Manager) OnTransientWindowAdded(w, transient *window.Window) {
	for _, c := range m.sortedConnections() {
		c.processTransientWindowAdded(w, transient, m.IsOperationSource(c.id))
	}
}

func (m *Manager) OnTransientWindowRemoved(w, transient *window.Window) {
	for _, c := range m.sortedConnections() {
		c.processTransientWindowRemoved(w, transient, m.IsOperationSource(c.id))
	}
}

func (m *Manager) OnCursorChanged(w *window.Window, cursor window.Cursor) {
	for _, c := range m.sortedConnections() {
		c.processCursorChanged(w, cursor, m.IsOperationSource(c.id))
	}
}

func (m *Manager) OnWindowDestroying(w *window.Window) {
	for _, d := range m.displays {
		if f := d.FocusedWindow(); f != nil && w.Contains(f) {
			d.setFocusedWindow(nil)
		}
	}
	for _, c := range m.sortedConnections() {
		c.processWindowDeleted(w, m.IsOperationSource(c.id))
	}
}

func (m *Manager) OnWindowDestroyed(w *window.Window) {
	delete(m.windows, w.ID())
	m.updateWindowGauge()
}

// processFocusChanged tells connections about focus moving. A connection
// that asked for the change itself is not told.
func (m *Manager) processFocusChanged(oldFocused, newFocused *window.Window) {
	op := m.currentOperation()
	for _, c := range m.sortedConnections() {
		originated := op != nil && op.kind == OpSetFocus && op.source == c.id
		c.processFocusChanged(oldFocused, newFocused, originated)
	}
}

func (m *Manager) dropUndrawnFocus() {
	for _, d := range m.displays {
		if f := d.FocusedWindow(); f != nil && !f.IsDrawn() {
			d.setFocusedWindow(nil)
		}
	}
}

func (m *Manager) updateConnectionGauge() {
	if m.metrics != nil {
		m.metrics.SetConnectionsActive(len(m.connections))
	}
}

func (m *Manager) updateWindowGauge() {
	if m.metrics != nil {
		m.metrics.SetWindowsActive(len(m.windows))
	}
}

func zapOperation(op *Operation) zap.Field {
	return zap.Stringer("operation", op.kind)
}
