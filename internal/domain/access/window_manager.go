package access

import "github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"

// WindowManager is the policy of the connection embedded at a display root.
// It arranges every window on the display but cannot look inside, delete, or
// embed over windows that other connections own.
type WindowManager struct {
	base
}

// NewWindowManager returns the window manager policy for connectionID.
func NewWindowManager(connectionID window.ConnectionID, delegate Delegate) *WindowManager {
	return &WindowManager{base: base{connectionID: connectionID, delegate: delegate}}
}

func (p *WindowManager) CanRemoveWindowFromParent(w *window.Window) bool {
	return w.Parent() != nil
}

func (p *WindowManager) CanAddWindow(_, child *window.Window) bool {
	return !p.delegate.IsWindowRootOfAnotherConnectionForAccessPolicy(child) || p.wasCreatedByThisConnection(child)
}

func (p *WindowManager) CanAddTransientWindow(_, _ *window.Window) bool { return true }

func (p *WindowManager) CanRemoveTransientWindowFromParent(w *window.Window) bool {
	return w.TransientParent() != nil
}

func (p *WindowManager) CanReorderWindow(_, _ *window.Window, _ window.OrderDirection) bool {
	return true
}

func (p *WindowManager) CanDeleteWindow(w *window.Window) bool {
	return p.wasCreatedByThisConnection(w)
}

func (p *WindowManager) CanGetWindowTree(_ *window.Window) bool { return true }

func (p *WindowManager) CanDescendIntoWindowForWindowTree(w *window.Window) bool {
	return p.isRoot(w) || !p.delegate.IsWindowRootOfAnotherConnectionForAccessPolicy(w)
}

func (p *WindowManager) CanEmbed(w *window.Window, _ uint32) bool {
	return p.wasCreatedByThisConnection(w) && !p.isRoot(w)
}

func (p *WindowManager) CanChangeWindowVisibility(_ *window.Window) bool { return true }
func (p *WindowManager) CanSetWindowBounds(_ *window.Window) bool { return true }
func (p *WindowManager) CanSetWindowProperties(_ *window.Window) bool { return true }
func (p *WindowManager) CanSetFocus(_ *window.Window) bool { return true }
func (p *WindowManager) CanSetClientArea(_ *window.Window) bool { return true }
func (p *WindowManager) CanSetCursorProperties(_ *window.Window) bool { return true }

func (p *WindowManager) CanAttachSecondary(_, secondary *window.Window) bool {
	return p.wasCreatedByThisConnection(secondary)
}

// ShouldNotifyOnHierarchyChange also reports windows the manager has not
// seen once they land under a parent it knows.
func (p *WindowManager) ShouldNotifyOnHierarchyChange(w, newParent, oldParent *window.Window) (bool, *window.Window, *window.Window) {
	knowsNew := newParent != nil && p.delegate.IsWindowKnownForAccessPolicy(newParent)
	if !p.delegate.IsWindowKnownForAccessPolicy(w) && !knowsNew {
		return false, nil, nil
	}
	if !knowsNew {
		newParent = nil
	}
	if oldParent != nil && !p.delegate.IsWindowKnownForAccessPolicy(oldParent) {
		oldParent = nil
	}
	return true, newParent, oldParent
}

func (p *WindowManager) WindowForFocusChange(focused *window.Window) *window.Window {
	for w := focused; w != nil; w = w.Parent() {
		if p.delegate.IsWindowKnownForAccessPolicy(w) {
			return w
		}
	}
	return nil
}

func (p *WindowManager) IsWindowManager() bool { return true }
