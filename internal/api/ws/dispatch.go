package ws

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/tree"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"
)

// handle runs one request on the tree loop. Replies to the window manager
// and input acks bypass the pause buffer: they are what releases it.
func (h *Handler) handle(m *tree.Manager, s *session, req Request) {
	c := s.conn
	if c == nil || c.Closed() {
		s.proxy.emitError("not attached")
		return
	}

	switch req.Type {
	case TypeWmResponse:
		c.WmResponse(req.WMChangeID, req.Success)
		return
	case TypeWmCreatedTopLevelWindow:
		c.WmCreatedTopLevelWindow(req.WMChangeID, req.Window)
		return
	case TypeInputEventAck:
		c.OnWindowInputEventAck(req.AckID)
		return
	}

	c.Dispatch(func(c *tree.Connection) {
		h.dispatch(m, s, c, req)
	})
}

func (h *Handler) dispatch(m *tree.Manager, s *session, c *tree.Connection, req Request) {
	switch req.Type {
	case TypeNewWindow:
		c.NewWindow(req.ChangeID, req.Window, req.Properties)
	case TypeNewTopLevelWindow:
		c.NewTopLevelWindow(req.ChangeID, req.Window, req.Properties)
	case TypeDeleteWindow:
		c.DeleteWindow(req.ChangeID, req.Window)
	case TypeAddWindow:
		c.AddWindow(req.ChangeID, req.Parent, req.Window)
	case TypeRemoveWindowFromParent:
		c.RemoveWindowFromParent(req.ChangeID, req.Window)
	case TypeAddTransientWindow:
		c.AddTransientWindow(req.ChangeID, req.Parent, req.Window)
	case TypeRemoveTransientWindowFromParent:
		c.RemoveTransientWindowFromParent(req.ChangeID, req.Window)
	case TypeReorderWindow:
		// An unknown direction is passed through as zero and fails the change.
		direction, _ := window.ParseOrderDirection(req.Direction)
		c.ReorderWindow(req.ChangeID, req.Window, req.Relative, direction)
	case TypeSetVisibility:
		c.SetWindowVisibility(req.ChangeID, req.Window, req.Visible)
	case TypeSetBounds:
		if req.Bounds == nil {
			c.FailChange(req.ChangeID)
			return
		}
		c.SetWindowBounds(req.ChangeID, req.Window, *req.Bounds)
	case TypeSetProperty:
		c.SetWindowProperty(req.ChangeID, req.Window, req.Name, req.Value)
	case TypeSetClientArea:
		if req.Insets == nil {
			c.FailChange(req.ChangeID)
			return
		}
		c.SetClientArea(req.ChangeID, req.Window, *req.Insets)
	case TypeSetCanFocus:
		c.SetCanFocus(req.ChangeID, req.Window, req.CanFocus)
	case TypeSetCursor:
		c.SetPredefinedCursor(req.ChangeID, req.Window, req.Cursor)
	case TypeSetFocus:
		c.SetFocus(req.ChangeID, req.Window)
	case TypeSetMaskLayer:
		c.SetMaskLayer(req.ChangeID, req.Window, req.Secondary)
	case TypeAddDecoration:
		c.AddDecoration(req.ChangeID, req.Window, req.Secondary)
	case TypeEmbed:
		h.embed(m, s, c, req)
	case TypeGetWindowTree:
		s.proxy.Emit(Frame{
			"type":      "window_tree",
			"change_id": req.ChangeID,
			"windows":   windowData(c.GetWindowTree(req.Window)),
		})
	case TypeDispatchInputEvent:
		h.dispatchInputEvent(m, s, c, req)
	default:
		s.proxy.emitError("unknown message type")
	}
}

// embed hands a window to a client waiting in the pending registry.
func (h *Handler) embed(m *tree.Manager, s *session, c *tree.Connection, req Request) {
	target := h.pending.take(req.Token)
	var client tree.Client
	if target != nil {
		client = target.proxy
	}
	cid := c.Embed(req.ChangeID, req.Window, client, req.PolicyBitmask)
	if target == nil {
		return
	}
	if cid == 0 {
		// The pending client stays available for another try.
		h.pending.put(req.Token, target)
		return
	}
	target.conn = m.Connection(cid)
	s.logger.Info("Embedded pending client",
		zap.String("embedded_peer", target.peer.String()),
		zap.Uint16("connection", uint16(cid)),
	)
}

// dispatchInputEvent lets a window manager feed an input event to one of
// the windows it can see. The event goes to the connection that owns it.
func (h *Handler) dispatchInputEvent(m *tree.Manager, s *session, c *tree.Connection, req Request) {
	if !c.Policy().IsWindowManager() || req.Event == nil || !c.KnowsWindow(req.Window) {
		s.proxy.emitError("input event refused")
		return
	}
	w := m.Window(c.MapClientIDToServer(req.Window))
	if w == nil {
		s.proxy.emitError("input event has no target")
		return
	}
	if d := m.DisplayForWindow(w); d == nil || !d.DispatchInputEvent(w, *req.Event) {
		s.proxy.emitError("input event has no target")
	}
}
