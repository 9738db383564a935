package tree

import (
	"cmp"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/access"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"
)

// Connection is one client's view of the tree. It translates the client's
// window ids, owns the roots and known set that bound what the client may
// learn, and holds the client's input backlog.
type Connection struct {
	manager       *Manager
	id            window.ConnectionID
	client        Client
	logger        *zap.Logger
	policy        access.Policy
	policyBitmask uint32
	initialRoot   *window.Window

	// Server ids of the windows this connection treats as tree tops.
	roots map[window.ID]struct{}
	// Client ids of every window disclosed to the client.
	known map[window.ID]struct{}
	// Client id to server id for windows the window manager created on this
	// connection's behalf.
	embedToReal map[window.ID]window.ID
	created     map[window.LocalID]struct{}

	eventAckID uint32
	eventQueue []queuedEvent

	waitingForTopLevel *topLevelRequest

	paused  bool
	pending []func(*Connection)
	closed  bool
}

type topLevelRequest struct {
	clientID   window.ID
	wmChangeID uint32
}

func newConnection(m *Manager, cid window.ConnectionID, client Client, root *window.Window, policyBitmask uint32) *Connection {
	c := &Connection{
		manager:       m,
		id:            cid,
		client:        client,
		logger:        m.logger.With(zap.Uint16("connection", uint16(cid))),
		policyBitmask: policyBitmask,
		initialRoot:   root,
		roots:         make(map[window.ID]struct{}),
		known:         make(map[window.ID]struct{}),
		embedToReal:   make(map[window.ID]window.ID),
		created:       make(map[window.LocalID]struct{}),
	}
	if root != nil {
		c.roots[root.ID()] = struct{}{}
	}
	if root != nil && m.IsDisplayRoot(root) {
		c.policy = access.NewWindowManager(cid, c)
	} else {
		c.policy = access.NewDefault(cid, c, policyBitmask)
	}
	return c
}

// init sends the embed notification with the initial snapshot.
func (c *Connection) init() {
	root := c.initialRoot
	windows := c.discoverWindowsFrom(root)

	var focused window.ID
	if d := c.manager.DisplayForWindow(root); d != nil {
		if f := c.policy.WindowForFocusChange(d.FocusedWindow()); f != nil && c.isWindowKnown(f) {
			focused = c.MapServerIDToClient(f)
		}
	}
	c.client.OnEmbed(c.id, c.windowsToData(windows), focused, c.policyBitmask)
}

func (c *Connection) ID() window.ConnectionID { return c.id }
func (c *Connection) Client() Client { return c.client }
func (c *Connection) Policy() access.Policy { return c.policy }
func (c *Connection) Closed() bool { return c.closed }

// Paused reports whether inbound calls are being held back.
func (c *Connection) Paused() bool { return c.paused }

// Roots returns the client ids of the connection's roots, sorted.
func (c *Connection) Roots() []window.ID {
	out := make([]window.ID, 0, len(c.roots))
	for _, w := range c.sortedRoots() {
		out = append(out, c.MapServerIDToClient(w))
	}
	return out
}

// KnowsWindow reports whether the client id has been disclosed.
func (c *Connection) KnowsWindow(clientID window.ID) bool {
	_, ok := c.known[clientID]
	return ok
}

// Dispatch runs call now, or later if the connection is paused waiting for
// the window manager. Calls on a closed connection are dropped.
func (c *Connection) Dispatch(call func(*Connection)) {
	if c.closed {
		return
	}
	if c.paused {
		c.pending = append(c.pending, call)
		return
	}
	call(c)
}

func (c *Connection) pause() {
	c.paused = true
}

func (c *Connection) resume() {
	c.paused = false
	for !c.paused && !c.closed && len(c.pending) > 0 {
		call := c.pending[0]
		c.pending[0] = nil
		c.pending = c.pending[1:]
		call(c)
	}
}

// MapClientIDToServer resolves a client id to the server identity.
func (c *Connection) MapClientIDToServer(clientID window.ID) window.ID {
	if serverID, ok := c.embedToReal[clientID]; ok {
		return serverID
	}
	return clientID
}

// MapServerIDToClient returns the id the client uses for w.
func (c *Connection) MapServerIDToClient(w *window.Window) window.ID {
	serverID := w.ID()
	for clientID, mapped := range c.embedToReal {
		if mapped == serverID {
			return clientID
		}
	}
	return serverID
}

// IsValidIDForNewWindow reports whether the client may create a window
// with the id.
func (c *Connection) IsValidIDForNewWindow(clientID window.ID) bool {
	if clientID.Connection != c.id || clientID.Local == 0 {
		return false
	}
	if _, mapped := c.embedToReal[clientID]; mapped {
		return false
	}
	return c.manager.Window(clientID) == nil
}

// windowByClientID resolves a window the client has been told about. Ids
// of undisclosed windows resolve to nil even when the window exists.
func (c *Connection) windowByClientID(clientID window.ID) *window.Window {
	if clientID.IsZero() {
		return nil
	}
	w := c.manager.Window(c.MapClientIDToServer(clientID))
	if !c.isWindowKnown(w) {
		return nil
	}
	return w
}

func (c *Connection) isWindowKnown(w *window.Window) bool {
	if w == nil {
		return false
	}
	_, ok := c.known[c.MapServerIDToClient(w)]
	return ok
}

func (c *Connection) hasRoot(serverID window.ID) bool {
	_, ok := c.roots[serverID]
	return ok
}

func (c *Connection) sortedRoots() []*window.Window {
	ids := make([]window.ID, 0, len(c.roots))
	for rid := range c.roots {
		ids = append(ids, rid)
	}
	slices.SortFunc(ids, func(a, b window.ID) int {
		return cmp.Compare(a.Transport(), b.Transport())
	})
	out := make([]*window.Window, 0, len(ids))
	for _, rid := range ids {
		if w := c.manager.Window(rid); w != nil {
			out = append(out, w)
		}
	}
	return out
}

// access.Delegate

func (c *Connection) IsRootForAccessPolicy(serverID window.ID) bool {
	return c.hasRoot(serverID)
}

func (c *Connection) IsWindowKnownForAccessPolicy(w *window.Window) bool {
	return c.isWindowKnown(w)
}

func (c *Connection) IsWindowRootOfAnotherConnectionForAccessPolicy(w *window.Window) bool {
	owner := c.manager.ConnectionWithRoot(w)
	return owner != nil && owner != c
}

// discoverWindowsFrom walks the tree below w and records every window the
// policy lets the client see that it did not know yet. Secondary windows
// follow the primary walk.
func (c *Connection) discoverWindowsFrom(w *window.Window) []*window.Window {
	var out []*window.Window
	c.unknownWindowsFrom(w, &out)
	for i := 0; i < len(out); i++ {
		for _, s := range out[i].Secondaries() {
			c.unknownWindowsFrom(s, &out)
		}
	}
	return out
}

func (c *Connection) unknownWindowsFrom(w *window.Window, out *[]*window.Window) {
	if c.isWindowKnown(w) || !c.policy.CanGetWindowTree(w) {
		return
	}
	*out = append(*out, w)
	c.known[c.MapServerIDToClient(w)] = struct{}{}
	if !c.policy.CanDescendIntoWindowForWindowTree(w) {
		return
	}
	for _, child := range w.Children() {
		c.unknownWindowsFrom(child, out)
	}
}

// removeFromKnown forgets w and what is only reachable through it. Windows
// this connection created are kept and collected into local.
func (c *Connection) removeFromKnown(w *window.Window, local *[]*window.Window) {
	if w.ID().Connection == c.id {
		if local != nil {
			*local = append(*local, w)
		}
		return
	}
	delete(c.known, c.MapServerIDToClient(w))
	for _, child := range w.Children() {
		c.removeFromKnown(child, local)
	}
}

func (c *Connection) windowToData(w *window.Window) WindowData {
	m := c.manager
	data := WindowData{
		WindowID:   c.MapServerIDToClient(w),
		Bounds:     w.Bounds(),
		ClientArea: w.ClientArea(),
		Visible:    w.Visible(),
		Drawn:      w.IsDrawn(),
		Properties: w.Properties(),
		Viewport:   m.ViewportMetrics(w),
	}
	if p := w.Parent(); p != nil && c.isWindowKnown(p) {
		data.ParentID = c.MapServerIDToClient(p)
	}
	if tp := w.TransientParent(); tp != nil && c.isWindowKnown(tp) {
		data.TransientParentID = c.MapServerIDToClient(tp)
	}
	if d := m.DisplayForWindow(w); d != nil {
		data.DisplayID = d.id
	}
	return data
}

func (c *Connection) windowsToData(windows []*window.Window) []WindowData {
	out := make([]WindowData, 0, len(windows))
	for _, w := range windows {
		out = append(out, c.windowToData(w))
	}
	return out
}

// destroy deletes every window the connection created. Transient links are
// broken first so no window is torn down through another's destruction.
func (c *Connection) destroy() {
	m := c.manager
	c.closed = true

	locals := slices.Sorted(maps.Keys(c.created))
	c.created = make(map[window.LocalID]struct{})
	windows := make([]*window.Window, 0, len(locals))
	for _, local := range locals {
		if w := m.Window(window.ID{Connection: c.id, Local: local}); w != nil {
			windows = append(windows, w)
		}
	}

	if len(windows) > 0 {
		op := m.beginOperation(c, OpDeleteWindow)
		for _, w := range windows {
			if tp := w.TransientParent(); tp != nil {
				tp.RemoveTransientWindow(w)
			}
			for _, t := range w.TransientChildren() {
				w.RemoveTransientWindow(t)
			}
		}
		for _, w := range windows {
			w.Destroy()
		}
		op.End()
	}

	for _, q := range c.eventQueue {
		q.target.Release()
	}
	c.eventQueue = nil
	c.eventAckID = 0
	c.pending = nil
	c.waitingForTopLevel = nil
	c.roots = make(map[window.ID]struct{})
	c.known = make(map[window.ID]struct{})
	c.embedToReal = make(map[window.ID]window.ID)
}
