package tree

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"
)

// Every request below answers its change id exactly once, either directly
// or, when routed to the window manager, once the manager responds.

func (c *Connection) completeChange(changeID uint32, success bool) {
	if c.manager.metrics != nil {
		c.manager.metrics.RecordChange(success)
	}
	c.client.OnChangeCompleted(changeID, success)
}

// FailChange reports changeID as failed, for requests rejected before they
// reach an operation.
func (c *Connection) FailChange(changeID uint32) {
	c.completeChange(changeID, false)
}

// NewWindow creates a detached window owned by this connection.
func (c *Connection) NewWindow(changeID uint32, clientID window.ID, properties map[string][]byte) {
	c.completeChange(changeID, c.newWindow(clientID, properties))
}

func (c *Connection) newWindow(clientID window.ID, properties map[string][]byte) bool {
	if !c.IsValidIDForNewWindow(clientID) {
		return false
	}
	if c.manager.CreateWindow(clientID, properties) == nil {
		return false
	}
	c.created[clientID.Local] = struct{}{}
	c.known[clientID] = struct{}{}
	return true
}

// NewTopLevelWindow asks the window manager for a top level window that the
// client will know as clientID. Inbound calls are held until the manager
// answers.
func (c *Connection) NewTopLevelWindow(changeID uint32, clientID window.ID, properties map[string][]byte) {
	wm := c.manager.windowManagerFor(nil)
	if wm == nil || wm == c || wm.windowManagerClient() == nil || !c.IsValidIDForNewWindow(clientID) {
		c.completeChange(changeID, false)
		return
	}
	wmChangeID := c.manager.newWindowManagerChange(c, wm, changeID)
	c.waitingForTopLevel = &topLevelRequest{clientID: clientID, wmChangeID: wmChangeID}
	c.pause()
	wm.windowManagerClient().WmCreateTopLevelWindow(wmChangeID, properties)
}

// DeleteWindow destroys a window.
func (c *Connection) DeleteWindow(changeID uint32, clientID window.ID) {
	c.completeChange(changeID, c.deleteWindow(clientID))
}

func (c *Connection) deleteWindow(clientID window.ID) bool {
	w := c.windowByClientID(clientID)
	if w == nil || !c.policy.CanDeleteWindow(w) {
		return false
	}
	op := c.manager.beginOperation(c, OpDeleteWindow)
	defer op.End()
	w.Destroy()
	return true
}

// AddWindow makes child the top-most child of parent.
func (c *Connection) AddWindow(changeID uint32, parentID, childID window.ID) {
	c.completeChange(changeID, c.addWindow(parentID, childID))
}

func (c *Connection) addWindow(parentID, childID window.ID) bool {
	parent := c.windowByClientID(parentID)
	child := c.windowByClientID(childID)
	if parent == nil || child == nil {
		return false
	}
	if child.Parent() == parent || child.Contains(parent) || !c.policy.CanAddWindow(parent, child) {
		return false
	}
	op := c.manager.beginOperation(c, OpAddWindow)
	defer op.End()
	parent.Add(child)
	return true
}

// RemoveWindowFromParent detaches a window from its parent.
func (c *Connection) RemoveWindowFromParent(changeID uint32, clientID window.ID) {
	c.completeChange(changeID, c.removeWindowFromParent(clientID))
}

func (c *Connection) removeWindowFromParent(clientID window.ID) bool {
	w := c.windowByClientID(clientID)
	if w == nil || w.Parent() == nil || !c.policy.CanRemoveWindowFromParent(w) {
		return false
	}
	op := c.manager.beginOperation(c, OpRemoveWindowFromParent)
	defer op.End()
	w.Parent().Remove(w)
	return true
}

// AddTransientWindow attaches transient to parent without reparenting it.
func (c *Connection) AddTransientWindow(changeID uint32, parentID, transientID window.ID) {
	c.completeChange(changeID, c.addTransientWindow(parentID, transientID))
}

func (c *Connection) addTransientWindow(parentID, transientID window.ID) bool {
	parent := c.windowByClientID(parentID)
	transient := c.windowByClientID(transientID)
	if parent == nil || transient == nil || parent == transient {
		return false
	}
	if transient.TransientParent() == parent || transient.Contains(parent) {
		return false
	}
	for tp := parent.TransientParent(); tp != nil; tp = tp.TransientParent() {
		if tp == transient {
			return false
		}
	}
	if !c.policy.CanAddTransientWindow(parent, transient) {
		return false
	}
	op := c.manager.beginOperation(c, OpAddTransientWindow)
	defer op.End()
	parent.AddTransientWindow(transient)
	return true
}

// RemoveTransientWindowFromParent breaks a transient link.
func (c *Connection) RemoveTransientWindowFromParent(changeID uint32, clientID window.ID) {
	c.completeChange(changeID, c.removeTransientWindowFromParent(clientID))
}

func (c *Connection) removeTransientWindowFromParent(clientID window.ID) bool {
	w := c.windowByClientID(clientID)
	if w == nil || w.TransientParent() == nil || !c.policy.CanRemoveTransientWindowFromParent(w) {
		return false
	}
	op := c.manager.beginOperation(c, OpRemoveTransientWindowFromParent)
	defer op.End()
	w.TransientParent().RemoveTransientWindow(w)
	return true
}

// ReorderWindow moves a window directly above or below a sibling.
func (c *Connection) ReorderWindow(changeID uint32, clientID, relativeID window.ID, direction window.OrderDirection) {
	c.completeChange(changeID, c.reorderWindow(clientID, relativeID, direction))
}

func (c *Connection) reorderWindow(clientID, relativeID window.ID, direction window.OrderDirection) bool {
	w := c.windowByClientID(clientID)
	relative := c.windowByClientID(relativeID)
	if !c.canReorderWindow(w, relative, direction) {
		return false
	}
	op := c.manager.beginOperation(c, OpReorderWindow)
	defer op.End()
	w.Parent().Reorder(w, relative, direction)
	return true
}

func (c *Connection) canReorderWindow(w, relative *window.Window, direction window.OrderDirection) bool {
	if w == nil || relative == nil || w == relative {
		return false
	}
	if direction != window.Above && direction != window.Below {
		return false
	}
	parent := w.Parent()
	if parent == nil || parent != relative.Parent() {
		return false
	}
	if !c.policy.CanReorderWindow(w, relative, direction) {
		return false
	}
	i, target := parent.IndexOf(w), parent.IndexOf(relative)
	if (direction == window.Above && i == target+1) || (direction == window.Below && i+1 == target) {
		return false
	}
	return true
}

// SetWindowVisibility shows or hides a window.
func (c *Connection) SetWindowVisibility(changeID uint32, clientID window.ID, visible bool) {
	c.completeChange(changeID, c.setWindowVisibility(clientID, visible))
}

func (c *Connection) setWindowVisibility(clientID window.ID, visible bool) bool {
	w := c.windowByClientID(clientID)
	if w == nil || !c.policy.CanChangeWindowVisibility(w) {
		return false
	}
	if w.Visible() == visible {
		return true
	}
	op := c.manager.beginOperation(c, OpSetWindowVisibility)
	defer op.End()
	w.SetVisible(visible)
	return true
}

// SetWindowBounds moves or resizes a window. Bounds of a top level window
// the window manager created are decided by the window manager.
func (c *Connection) SetWindowBounds(changeID uint32, clientID window.ID, bounds window.Rect) {
	w := c.windowByClientID(clientID)
	if w != nil && c.shouldRouteToWindowManager(w) {
		wm := c.manager.windowManagerFor(w)
		wmChangeID := c.manager.newWindowManagerChange(c, wm, changeID)
		wm.windowManagerClient().WmSetBounds(wmChangeID, wm.MapServerIDToClient(w), bounds)
		return
	}
	c.completeChange(changeID, c.setWindowBounds(w, bounds))
}

func (c *Connection) setWindowBounds(w *window.Window, bounds window.Rect) bool {
	if w == nil || bounds.Width < 0 || bounds.Height < 0 || !c.policy.CanSetWindowBounds(w) {
		return false
	}
	op := c.manager.beginOperation(c, OpSetWindowBounds)
	defer op.End()
	w.SetBounds(bounds)
	return true
}

// SetWindowProperty sets or, with a nil value, clears a shared property.
func (c *Connection) SetWindowProperty(changeID uint32, clientID window.ID, name string, value []byte) {
	w := c.windowByClientID(clientID)
	if w != nil && c.shouldRouteToWindowManager(w) {
		wm := c.manager.windowManagerFor(w)
		wmChangeID := c.manager.newWindowManagerChange(c, wm, changeID)
		wm.windowManagerClient().WmSetProperty(wmChangeID, wm.MapServerIDToClient(w), name, value)
		return
	}
	c.completeChange(changeID, c.setWindowProperty(w, name, value))
}

func (c *Connection) setWindowProperty(w *window.Window, name string, value []byte) bool {
	if w == nil || name == "" || !c.policy.CanSetWindowProperties(w) {
		return false
	}
	op := c.manager.beginOperation(c, OpSetWindowProperty)
	defer op.End()
	w.SetProperty(name, value)
	return true
}

// SetClientArea sets the non-client insets of a window.
func (c *Connection) SetClientArea(changeID uint32, clientID window.ID, insets window.Insets) {
	c.completeChange(changeID, c.setClientArea(clientID, insets))
}

func (c *Connection) setClientArea(clientID window.ID, insets window.Insets) bool {
	w := c.windowByClientID(clientID)
	if w == nil || !c.policy.CanSetClientArea(w) {
		return false
	}
	op := c.manager.beginOperation(c, OpSetClientArea)
	defer op.End()
	w.SetClientArea(insets)
	return true
}

// SetCanFocus marks whether a window accepts focus.
func (c *Connection) SetCanFocus(changeID uint32, clientID window.ID, canFocus bool) {
	w := c.windowByClientID(clientID)
	ok := w != nil && c.policy.CanSetFocus(w)
	if ok {
		w.SetCanFocus(canFocus)
	}
	c.completeChange(changeID, ok)
}

// SetPredefinedCursor sets the cursor shown over a window.
func (c *Connection) SetPredefinedCursor(changeID uint32, clientID window.ID, cursor window.Cursor) {
	c.completeChange(changeID, c.setPredefinedCursor(clientID, cursor))
}

func (c *Connection) setPredefinedCursor(clientID window.ID, cursor window.Cursor) bool {
	w := c.windowByClientID(clientID)
	if w == nil || cursor < window.CursorNull || cursor > window.CursorResize || !c.policy.CanSetCursorProperties(w) {
		return false
	}
	op := c.manager.beginOperation(c, OpSetCursor)
	defer op.End()
	w.SetCursor(cursor)
	return true
}

// SetFocus focuses a drawn, focusable window. A zero id clears focus on
// every display where this connection may change it; that fails when there
// was nothing to clear.
func (c *Connection) SetFocus(changeID uint32, clientID window.ID) {
	c.completeChange(changeID, c.setFocus(clientID))
}

func (c *Connection) setFocus(clientID window.ID) bool {
	m := c.manager
	if clientID.IsZero() {
		cleared := false
		op := m.beginOperation(c, OpSetFocus)
		defer op.End()
		for _, d := range m.displays {
			if f := d.FocusedWindow(); f != nil && c.policy.CanSetFocus(f) {
				d.setFocusedWindow(nil)
				cleared = true
			}
		}
		return cleared
	}
	w := c.windowByClientID(clientID)
	if w == nil || !w.IsDrawn() || !w.CanFocus() || !c.policy.CanSetFocus(w) {
		return false
	}
	d := m.DisplayForWindow(w)
	if d == nil {
		return false
	}
	op := m.beginOperation(c, OpSetFocus)
	defer op.End()
	d.setFocusedWindow(w)
	return true
}

// SetMaskLayer attaches mask as the mask layer of owner. A zero mask id
// detaches the current one.
func (c *Connection) SetMaskLayer(changeID uint32, ownerID, maskID window.ID) {
	c.completeChange(changeID, c.setMaskLayer(ownerID, maskID))
}

func (c *Connection) setMaskLayer(ownerID, maskID window.ID) bool {
	owner := c.windowByClientID(ownerID)
	if owner == nil {
		return false
	}
	var mask *window.Window
	if !maskID.IsZero() {
		mask = c.windowByClientID(maskID)
		if !c.canAttachSecondary(owner, mask) {
			return false
		}
	} else if cur := owner.MaskLayer(); cur == nil || !c.policy.CanAttachSecondary(owner, cur) {
		return false
	}
	op := c.manager.beginOperation(c, OpAttachSecondary)
	defer op.End()
	owner.SetMaskLayer(mask)
	return true
}

// AddDecoration attaches a decoration window to owner.
func (c *Connection) AddDecoration(changeID uint32, ownerID, decorationID window.ID) {
	c.completeChange(changeID, c.addDecoration(ownerID, decorationID))
}

func (c *Connection) addDecoration(ownerID, decorationID window.ID) bool {
	owner := c.windowByClientID(ownerID)
	decoration := c.windowByClientID(decorationID)
	if owner == nil || !c.canAttachSecondary(owner, decoration) {
		return false
	}
	op := c.manager.beginOperation(c, OpAttachSecondary)
	defer op.End()
	owner.AddDecoration(decoration)
	return true
}

func (c *Connection) canAttachSecondary(owner, secondary *window.Window) bool {
	if secondary == nil || secondary == owner || secondary.Parent() != nil || secondary.Contains(owner) {
		return false
	}
	for o := owner.SecondaryOwner(); o != nil; o = o.SecondaryOwner() {
		if o == secondary {
			return false
		}
	}
	return c.policy.CanAttachSecondary(owner, secondary)
}

// GetWindowTree returns the part of the tree below clientID the client may
// see. Everything returned becomes known.
func (c *Connection) GetWindowTree(clientID window.ID) []WindowData {
	w := c.windowByClientID(clientID)
	if w == nil || !c.isWindowKnown(w) {
		return nil
	}
	var windows []*window.Window
	seen := make(map[*window.Window]struct{})
	c.windowTree(w, seen, &windows)
	for i := 0; i < len(windows); i++ {
		for _, s := range windows[i].Secondaries() {
			c.windowTree(s, seen, &windows)
		}
	}
	return c.windowsToData(windows)
}

func (c *Connection) windowTree(w *window.Window, seen map[*window.Window]struct{}, out *[]*window.Window) {
	if _, ok := seen[w]; ok || !c.policy.CanGetWindowTree(w) {
		return
	}
	seen[w] = struct{}{}
	*out = append(*out, w)
	c.known[c.MapServerIDToClient(w)] = struct{}{}
	if !c.policy.CanDescendIntoWindowForWindowTree(w) {
		return
	}
	for _, child := range w.Children() {
		c.windowTree(child, seen, out)
	}
}

// Close disconnects the connection.
func (c *Connection) Close() {
	c.logger.Debug("Connection closing", zap.Int("pending", len(c.pending)))
	c.manager.DestroyConnection(c)
}
