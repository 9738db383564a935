package access

import "github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"

// Default is the policy of ordinary clients. A client edits the windows it
// created and, within limits, the roots it was given.
type Default struct {
	base
	embedRoot bool
}

// NewDefault returns the client policy for connectionID. policyBitmask is
// the bitmask the connection was embedded with.
func NewDefault(connectionID window.ConnectionID, delegate Delegate, policyBitmask uint32) *Default {
	return &Default{
		base:      base{connectionID: connectionID, delegate: delegate},
		embedRoot: policyBitmask&EmbedRoot != 0,
	}
}

func (p *Default) CanRemoveWindowFromParent(w *window.Window) bool {
	if !p.wasCreatedByThisConnection(w) {
		return false
	}
	parent := w.Parent()
	return parent != nil && p.createdOrRoot(parent)
}

func (p *Default) CanAddWindow(parent, child *window.Window) bool {
	if !p.wasCreatedByThisConnection(child) {
		return false
	}
	if p.isRoot(parent) {
		return true
	}
	return p.wasCreatedByThisConnection(parent) &&
		!p.delegate.IsWindowRootOfAnotherConnectionForAccessPolicy(parent)
}

func (p *Default) CanAddTransientWindow(parent, child *window.Window) bool {
	return p.createdOrRoot(parent) && p.createdOrRoot(child)
}

func (p *Default) CanRemoveTransientWindowFromParent(w *window.Window) bool {
	tp := w.TransientParent()
	return tp != nil && p.createdOrRoot(w) && p.createdOrRoot(tp)
}

func (p *Default) CanReorderWindow(w, relative *window.Window, _ window.OrderDirection) bool {
	return p.wasCreatedByThisConnection(w) && p.wasCreatedByThisConnection(relative)
}

func (p *Default) CanDeleteWindow(w *window.Window) bool {
	return p.wasCreatedByThisConnection(w)
}

func (p *Default) CanGetWindowTree(w *window.Window) bool {
	return p.createdOrRoot(w)
}

func (p *Default) CanDescendIntoWindowForWindowTree(w *window.Window) bool {
	if p.isRoot(w) {
		return true
	}
	return p.wasCreatedByThisConnection(w) &&
		!p.delegate.IsWindowRootOfAnotherConnectionForAccessPolicy(w)
}

func (p *Default) CanEmbed(w *window.Window, policyBitmask uint32) bool {
	if policyBitmask&EmbedRoot != 0 && !p.embedRoot {
		return false
	}
	if p.wasCreatedByThisConnection(w) {
		return true
	}
	return p.embedRoot && !p.isRoot(w) && p.delegate.IsWindowKnownForAccessPolicy(w)
}

func (p *Default) CanChangeWindowVisibility(w *window.Window) bool {
	return p.createdOrRoot(w)
}

// Roots the connection did not create are routed to the window manager
// before this check is reached.
func (p *Default) CanSetWindowBounds(w *window.Window) bool {
	return p.wasCreatedByThisConnection(w)
}

func (p *Default) CanSetWindowProperties(w *window.Window) bool {
	return p.wasCreatedByThisConnection(w)
}

func (p *Default) CanSetFocus(w *window.Window) bool {
	return w == nil || p.createdOrRoot(w)
}

func (p *Default) CanSetClientArea(w *window.Window) bool {
	return p.createdOrRoot(w)
}

func (p *Default) CanSetCursorProperties(w *window.Window) bool {
	return p.createdOrRoot(w)
}

func (p *Default) CanAttachSecondary(owner, secondary *window.Window) bool {
	return p.createdOrRoot(owner) && p.wasCreatedByThisConnection(secondary)
}

func (p *Default) ShouldNotifyOnHierarchyChange(w, newParent, oldParent *window.Window) (bool, *window.Window, *window.Window) {
	if !p.wasCreatedByThisConnection(w) {
		return false, nil, nil
	}
	if newParent != nil && !p.createdOrRoot(newParent) {
		newParent = nil
	}
	if oldParent != nil && !p.createdOrRoot(oldParent) {
		oldParent = nil
	}
	return true, newParent, oldParent
}

// WindowForFocusChange reports focus inside an embedded client as focus on
// the window that client was embedded at.
func (p *Default) WindowForFocusChange(focused *window.Window) *window.Window {
	for w := focused; w != nil; w = w.Parent() {
		if p.createdOrRoot(w) {
			return w
		}
	}
	return nil
}

func (p *Default) IsWindowManager() bool { return false }
