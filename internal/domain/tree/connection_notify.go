package tree

import (
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"
)

// The process functions are the manager's fan-out. originated is true when
// this connection caused the change; the client then only gets the change
// completion.

func (c *Connection) processWillChangeHierarchy(w, newParent, _ *window.Window, originated bool) {
	if originated {
		return
	}
	oldDrawn := w.IsDrawn()
	newDrawn := w.Visible() && newParent != nil && newParent.IsDrawn()
	if oldDrawn == newDrawn {
		return
	}
	c.notifyDrawnStateChanged(w, newDrawn)
}

func (c *Connection) processHierarchyChanged(w, newParent, oldParent *window.Window, originated bool) {
	m := c.manager
	if originated || m.isProcessingDeleteWindow() || m.DidConnectionMessageClient(c.id) {
		return
	}
	notify, newParent, oldParent := c.policy.ShouldNotifyOnHierarchyChange(w, newParent, oldParent)
	if !notify {
		return
	}

	var discovered []*window.Window
	if !c.isWindowKnown(w) {
		discovered = c.discoverWindowsFrom(w)
	}
	if !c.isWindowKnown(w) {
		return
	}
	knowsNew := newParent != nil && c.isWindowKnown(newParent)
	knowsOld := oldParent != nil && c.isWindowKnown(oldParent)
	if !knowsNew && !knowsOld {
		return
	}

	var newParentID, oldParentID window.ID
	if knowsNew {
		newParentID = c.MapServerIDToClient(newParent)
	}
	if knowsOld {
		oldParentID = c.MapServerIDToClient(oldParent)
	}
	c.client.OnWindowHierarchyChanged(c.MapServerIDToClient(w), newParentID, oldParentID, c.windowsToData(discovered))
	m.OnConnectionMessagedClient(c.id)
}

func (c *Connection) processWillChangeVisibility(w *window.Window, originated bool) {
	if originated {
		return
	}
	if c.isWindowKnown(w) {
		c.client.OnWindowVisibilityChanged(c.MapServerIDToClient(w), !w.Visible())
		return
	}
	var drawn bool
	if !w.Visible() {
		drawn = w.Parent() != nil && w.Parent().IsDrawn()
	}
	c.notifyDrawnStateChanged(w, drawn)
}

// notifyDrawnStateChanged tells the client about each of its roots at or
// below w whose drawn state flips to drawn.
func (c *Connection) notifyDrawnStateChanged(w *window.Window, drawn bool) {
	for _, root := range c.sortedRoots() {
		if w.Contains(root) && root.IsDrawn() != drawn {
			c.client.OnWindowParentDrawnStateChanged(c.MapServerIDToClient(root), drawn)
		}
	}
}

func (c *Connection) processReorder(w, relative *window.Window, direction window.OrderDirection, originated bool) {
	m := c.manager
	if originated || !c.isWindowKnown(w) || !c.isWindowKnown(relative) || m.DidConnectionMessageClient(c.id) {
		return
	}
	c.client.OnWindowReordered(c.MapServerIDToClient(w), c.MapServerIDToClient(relative), direction)
	m.OnConnectionMessagedClient(c.id)
}

func (c *Connection) processWindowDeleted(w *window.Window, originated bool) {
	if w.ID().Connection == c.id {
		delete(c.created, w.ID().Local)
	}
	clientID := c.MapServerIDToClient(w)
	_, wasKnown := c.known[clientID]

	if c.hasRoot(w.ID()) {
		c.removeRoot(w, RemoveRootDeleted)
	}
	delete(c.known, clientID)
	delete(c.embedToReal, clientID)

	if originated || !wasKnown {
		return
	}
	c.client.OnWindowDeleted(clientID)
	c.manager.OnConnectionMessagedClient(c.id)
}

func (c *Connection) processBoundsChanged(w *window.Window, oldBounds, newBounds window.Rect, originated bool) {
	if originated || !c.isWindowKnown(w) {
		return
	}
	c.client.OnWindowBoundsChanged(c.MapServerIDToClient(w), oldBounds, newBounds)
}

func (c *Connection) processClientAreaChanged(w *window.Window, insets window.Insets, originated bool) {
	if originated || !c.isWindowKnown(w) {
		return
	}
	c.client.OnClientAreaChanged(c.MapServerIDToClient(w), insets)
}

func (c *Connection) processPropertyChanged(w *window.Window, name string, value []byte, originated bool) {
	if originated || !c.isWindowKnown(w) {
		return
	}
	c.client.OnWindowSharedPropertyChanged(c.MapServerIDToClient(w), name, value)
}

func (c *Connection) processTransientWindowAdded(w, transient *window.Window, originated bool) {
	if originated || !c.isWindowKnown(w) || !c.isWindowKnown(transient) {
		return
	}
	c.client.OnTransientWindowAdded(c.MapServerIDToClient(w), c.MapServerIDToClient(transient))
}

func (c *Connection) processTransientWindowRemoved(w, transient *window.Window, originated bool) {
	if originated || !c.isWindowKnown(w) || !c.isWindowKnown(transient) {
		return
	}
	c.client.OnTransientWindowRemoved(c.MapServerIDToClient(w), c.MapServerIDToClient(transient))
}

func (c *Connection) processCursorChanged(w *window.Window, cursor window.Cursor, originated bool) {
	if originated || !c.isWindowKnown(w) {
		return
	}
	c.client.OnWindowPredefinedCursorChanged(c.MapServerIDToClient(w), cursor)
}

// processFocusChanged reports focus in terms of windows the client knows.
// Moves that look the same from this connection are not reported.
func (c *Connection) processFocusChanged(oldFocused, newFocused *window.Window, originated bool) {
	if originated {
		return
	}
	oldTarget := c.focusTarget(oldFocused)
	newTarget := c.focusTarget(newFocused)
	if oldTarget == newTarget {
		return
	}
	var focused window.ID
	if newTarget != nil {
		focused = c.MapServerIDToClient(newTarget)
	}
	c.client.OnWindowFocused(focused)
}

func (c *Connection) focusTarget(focused *window.Window) *window.Window {
	if focused == nil {
		return nil
	}
	t := c.policy.WindowForFocusChange(focused)
	if !c.isWindowKnown(t) {
		return nil
	}
	return t
}

func (c *Connection) processViewportMetricsChanged(d *Display, oldMetrics, newMetrics ViewportMetrics) {
	var roots []window.ID
	for _, root := range c.sortedRoots() {
		if c.manager.DisplayForWindow(root) == d {
			roots = append(roots, c.MapServerIDToClient(root))
		}
	}
	if len(roots) == 0 {
		return
	}
	c.client.OnViewportMetricsChanged(roots, oldMetrics, newMetrics)
}
