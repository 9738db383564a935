package access

import "github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"

// EmbedRoot lets an embedded connection embed further clients anywhere in
// the subtree it knows about.
const EmbedRoot uint32 = 1

// Delegate answers the questions a policy needs about the connection it
// belongs to.
type Delegate interface {
	IsRootForAccessPolicy(id window.ID) bool
	IsWindowKnownForAccessPolicy(w *window.Window) bool
	IsWindowRootOfAnotherConnectionForAccessPolicy(w *window.Window) bool
}

// Policy decides what one connection may do to, and learn about, the tree.
// Every method is a pure predicate over the current tree.
type Policy interface {
	CanRemoveWindowFromParent(w *window.Window) bool
	CanAddWindow(parent, child *window.Window) bool
	CanAddTransientWindow(parent, child *window.Window) bool
	CanRemoveTransientWindowFromParent(w *window.Window) bool
	CanReorderWindow(w, relative *window.Window, direction window.OrderDirection) bool
	CanDeleteWindow(w *window.Window) bool
	CanGetWindowTree(w *window.Window) bool
	// CanDescendIntoWindowForWindowTree is the disclosure boundary: a tree
	// walk stops below windows for which it returns false.
	CanDescendIntoWindowForWindowTree(w *window.Window) bool
	CanEmbed(w *window.Window, policyBitmask uint32) bool
	CanChangeWindowVisibility(w *window.Window) bool
	CanSetWindowBounds(w *window.Window) bool
	CanSetWindowProperties(w *window.Window) bool
	CanSetFocus(w *window.Window) bool
	CanSetClientArea(w *window.Window) bool
	CanSetCursorProperties(w *window.Window) bool
	CanAttachSecondary(owner, secondary *window.Window) bool

	// ShouldNotifyOnHierarchyChange reports whether the connection hears
	// about w moving, and returns the parents it is allowed to see (nil for
	// those it is not).
	ShouldNotifyOnHierarchyChange(w, newParent, oldParent *window.Window) (notify bool, visibleNewParent, visibleOldParent *window.Window)

	// WindowForFocusChange maps the focused window to the one this
	// connection should be told about, or nil.
	WindowForFocusChange(focused *window.Window) *window.Window

	IsWindowManager() bool
}

// base holds what both policies share.
type base struct {
	connectionID window.ConnectionID
	delegate     Delegate
}

func (b base) wasCreatedByThisConnection(w *window.Window) bool {
	return w.ID().Connection == b.connectionID
}

func (b base) isRoot(w *window.Window) bool {
	return b.delegate.IsRootForAccessPolicy(w.ID())
}

func (b base) createdOrRoot(w *window.Window) bool {
	return b.wasCreatedByThisConnection(w) || b.isRoot(w)
}
