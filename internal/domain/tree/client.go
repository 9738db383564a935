package tree

import "github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"

// Client is the remote end of a connection. Every call is a one-way
// notification; window ids are always client-visible ids.
type Client interface {
	// OnConnected tells a fresh top-level owner its connection id.
	OnConnected(id window.ConnectionID)
	// OnEmbed tells an embedded client its id and the tree it was given.
	OnEmbed(id window.ConnectionID, tree []WindowData, focused window.ID, accessPolicy uint32)
	OnEmbeddedAppDisconnected(w window.ID)
	OnUnembed(w window.ID)
	OnTopLevelCreated(changeID uint32, data WindowData, drawn bool)

	OnWindowBoundsChanged(w window.ID, oldBounds, newBounds window.Rect)
	OnClientAreaChanged(w window.ID, insets window.Insets)
	OnTransientWindowAdded(w, transient window.ID)
	OnTransientWindowRemoved(w, transient window.ID)
	OnWindowHierarchyChanged(w, newParent, oldParent window.ID, windows []WindowData)
	OnWindowReordered(w, relative window.ID, direction window.OrderDirection)
	OnWindowDeleted(w window.ID)
	OnWindowVisibilityChanged(w window.ID, visible bool)
	OnWindowParentDrawnStateChanged(w window.ID, drawn bool)
	OnWindowSharedPropertyChanged(w window.ID, name string, value []byte)
	OnWindowInputEvent(ackID uint32, w window.ID, event Event)
	OnWindowFocused(w window.ID)
	OnWindowPredefinedCursorChanged(w window.ID, cursor window.Cursor)
	OnViewportMetricsChanged(roots []window.ID, oldMetrics, newMetrics ViewportMetrics)

	OnChangeCompleted(changeID uint32, success bool)
}

// WindowManager is the privileged interface of the connection embedded at a
// display root. A window manager client implements it in addition to Client.
// Each request carries a window manager change id that the manager answers
// with Connection.WmResponse or Connection.WmCreatedTopLevelWindow.
type WindowManager interface {
	WmSetBounds(wmChangeID uint32, w window.ID, bounds window.Rect)
	WmSetProperty(wmChangeID uint32, w window.ID, name string, value []byte)
	WmCreateTopLevelWindow(wmChangeID uint32, properties map[string][]byte)
}

// WindowData is the snapshot of one window sent to a client.
type WindowData struct {
	ParentID          window.ID         `json:"parent_id"`
	WindowID          window.ID         `json:"window_id"`
	TransientParentID window.ID         `json:"transient_parent_id,omitempty"`
	Bounds            window.Rect       `json:"bounds"`
	ClientArea        window.Insets     `json:"client_area"`
	Visible           bool              `json:"visible"`
	Drawn             bool              `json:"drawn"`
	Properties        map[string][]byte `json:"properties,omitempty"`
	DisplayID         int64             `json:"display_id,omitempty"`
	Viewport          ViewportMetrics   `json:"viewport"`
}

// EventAction is the kind of an input event.
type EventAction int

const (
	ActionPointerDown EventAction = iota + 1
	ActionPointerUp
	ActionPointerMove
	ActionWheel
	ActionKeyDown
	ActionKeyUp
)

// Event is an already decoded input event targeted at a window.
type Event struct {
	Action    EventAction  `json:"action"`
	Location  window.Point `json:"location"`
	Flags     uint32       `json:"flags,omitempty"`
	KeyCode   int32        `json:"key_code,omitempty"`
	TimeStamp int64        `json:"time_stamp,omitempty"`
}
