package window

import "bytes"

// Delegate is told about every primitive mutation so it can fan changes out
// to connections. The Will* calls happen before the mutation is applied.
type Delegate interface {
	// RootWindow returns the display root w is attached to, or nil.
	RootWindow(w *Window) *Window

	OnWillChangeHierarchy(w, newParent, oldParent *Window)
	OnHierarchyChanged(w, newParent, oldParent *Window)
	OnWillChangeVisibility(w *Window)
	OnVisibilityChanged(w *Window)
	OnBoundsChanged(w *Window, oldBounds, newBounds Rect)
	OnClientAreaChanged(w *Window, oldInsets, newInsets Insets)
	OnReordered(w, relative *Window, direction OrderDirection)
	OnPropertyChanged(w *Window, name string, value []byte)
	OnTransientWindowAdded(w, transient *Window)
	OnTransientWindowRemoved(w, transient *Window)
	OnCursorChanged(w *Window, cursor Cursor)
	OnWindowDestroying(w *Window)
	OnWindowDestroyed(w *Window)
}

// NopDelegate ignores every notification. Embed it to implement part of
// Delegate.
type NopDelegate struct{}

func (NopDelegate) RootWindow(*Window) *Window { return nil }
func (NopDelegate) OnWillChangeHierarchy(_, _, _ *Window) {}
func (NopDelegate) OnHierarchyChanged(_, _, _ *Window) {}
func (NopDelegate) OnWillChangeVisibility(*Window) {}
func (NopDelegate) OnVisibilityChanged(*Window) {}
func (NopDelegate) OnBoundsChanged(*Window, Rect, Rect) {}
func (NopDelegate) OnClientAreaChanged(*Window, Insets, Insets) {}
func (NopDelegate) OnReordered(_, _ *Window, _ OrderDirection) {}
func (NopDelegate) OnPropertyChanged(*Window, string, []byte) {}
func (NopDelegate) OnTransientWindowAdded(_, _ *Window) {}
func (NopDelegate) OnTransientWindowRemoved(_, _ *Window) {}
func (NopDelegate) OnCursorChanged(*Window, Cursor) {}
func (NopDelegate) OnWindowDestroying(*Window) {}
func (NopDelegate) OnWindowDestroyed(*Window) {}

// Window is a node of the shared tree. Windows are owned by the tree
// manager; connections only refer to them by ID or through a Ref.
type Window struct {
	id       ID
	delegate Delegate

	parent   *Window
	children []*Window

	transientParent   *Window
	transientChildren []*Window

	// Secondary windows are not children and carry no visibility of their own.
	secondaryOwner *Window
	maskLayer      *Window
	decorations    []*Window

	bounds     Rect
	clientArea Insets
	visible    bool
	canFocus   bool
	cursor     Cursor
	properties map[string][]byte

	refs       map[*Ref]struct{}
	destroying bool
	destroyed  bool
}

// New creates a detached, hidden window.
func New(id ID, delegate Delegate, properties map[string][]byte) *Window {
	if delegate == nil {
		delegate = NopDelegate{}
	}
	w := &Window{
		id:         id,
		delegate:   delegate,
		canFocus:   true,
		properties: make(map[string][]byte, len(properties)),
		refs:       make(map[*Ref]struct{}),
	}
	for k, v := range properties {
		w.properties[k] = bytes.Clone(v)
	}
	return w
}

func (w *Window) ID() ID { return w.id }
func (w *Window) Parent() *Window { return w.parent }
func (w *Window) Bounds() Rect { return w.bounds }
func (w *Window) ClientArea() Insets { return w.clientArea }
func (w *Window) Visible() bool { return w.visible }
func (w *Window) CanFocus() bool { return w.canFocus }
func (w *Window) Cursor() Cursor { return w.cursor }
func (w *Window) Destroyed() bool { return w.destroyed }

// TransientParent returns the window w is transient for, if any.
func (w *Window) TransientParent() *Window { return w.transientParent }

// SecondaryOwner returns the window w is a mask layer or decoration of.
func (w *Window) SecondaryOwner() *Window { return w.secondaryOwner }

// MaskLayer returns the mask layer attached to w, if any.
func (w *Window) MaskLayer() *Window { return w.maskLayer }

// Children returns a copy of the children, bottom-most first.
func (w *Window) Children() []*Window {
	return append([]*Window(nil), w.children...)
}

// TransientChildren returns a copy of the transient children.
func (w *Window) TransientChildren() []*Window {
	return append([]*Window(nil), w.transientChildren...)
}

// Decorations returns a copy of the decoration windows.
func (w *Window) Decorations() []*Window {
	return append([]*Window(nil), w.decorations...)
}

// Secondaries returns the mask layer followed by the decorations.
func (w *Window) Secondaries() []*Window {
	var out []*Window
	if w.maskLayer != nil {
		out = append(out, w.maskLayer)
	}
	return append(out, w.decorations...)
}

// Property returns a copy of the named property.
func (w *Window) Property(name string) ([]byte, bool) {
	v, ok := w.properties[name]
	return bytes.Clone(v), ok
}

// Properties returns a copy of all properties.
func (w *Window) Properties() map[string][]byte {
	out := make(map[string][]byte, len(w.properties))
	for k, v := range w.properties {
		out[k] = bytes.Clone(v)
	}
	return out
}

// Contains reports whether other is w or one of its descendants.
func (w *Window) Contains(other *Window) bool {
	for ; other != nil; other = other.parent {
		if other == w {
			return true
		}
	}
	return false
}

// IndexOf returns the stacking index of child, or -1.
func (w *Window) IndexOf(child *Window) int {
	for i, c := range w.children {
		if c == child {
			return i
		}
	}
	return -1
}

// IsDrawn reports whether w and every ancestor up to its display root are
// visible. Windows not attached to a display are never drawn.
func (w *Window) IsDrawn() bool {
	root := w.delegate.RootWindow(w)
	if root == nil || !root.visible {
		return false
	}
	cur := w
	for cur != nil && cur != root && cur.visible {
		cur = cur.parent
	}
	return cur == root
}

// Add makes child the top-most child of w, detaching it from its old parent.
func (w *Window) Add(child *Window) {
	if child == w || child.Contains(w) {
		return
	}
	if child.parent == w {
		w.Reorder(child, w.children[len(w.children)-1], Above)
		return
	}
	oldParent := child.parent
	w.delegate.OnWillChangeHierarchy(child, w, oldParent)
	if oldParent != nil {
		oldParent.removeChild(child)
	}
	child.parent = w
	w.children = append(w.children, child)
	w.delegate.OnHierarchyChanged(child, w, oldParent)
}

// Remove detaches child from w.
func (w *Window) Remove(child *Window) {
	if child.parent != w {
		return
	}
	w.delegate.OnWillChangeHierarchy(child, nil, w)
	w.removeChild(child)
	child.parent = nil
	w.delegate.OnHierarchyChanged(child, nil, w)
}

func (w *Window) removeChild(child *Window) {
	if i := w.IndexOf(child); i >= 0 {
		w.children = append(w.children[:i], w.children[i+1:]...)
	}
}

// Reorder moves child directly above or below relative. Both must be
// children of w.
func (w *Window) Reorder(child, relative *Window, direction OrderDirection) {
	if child == relative || child.parent != w || relative.parent != w {
		return
	}
	w.removeChild(child)
	target := w.IndexOf(relative)
	if direction == Above {
		target++
	}
	w.children = append(w.children, nil)
	copy(w.children[target+1:], w.children[target:])
	w.children[target] = child
	w.delegate.OnReordered(child, relative, direction)
}

// SetBounds changes the bounds.
func (w *Window) SetBounds(bounds Rect) {
	if w.bounds == bounds {
		return
	}
	old := w.bounds
	w.bounds = bounds
	w.delegate.OnBoundsChanged(w, old, bounds)
}

// SetClientArea changes the client area insets.
func (w *Window) SetClientArea(insets Insets) {
	if w.clientArea == insets {
		return
	}
	old := w.clientArea
	w.clientArea = insets
	w.delegate.OnClientAreaChanged(w, old, insets)
}

// SetVisible shows or hides w.
func (w *Window) SetVisible(visible bool) {
	if w.visible == visible {
		return
	}
	w.delegate.OnWillChangeVisibility(w)
	w.visible = visible
	w.delegate.OnVisibilityChanged(w)
}

// SetCanFocus controls whether w accepts focus.
func (w *Window) SetCanFocus(canFocus bool) {
	w.canFocus = canFocus
}

// SetCursor changes the predefined cursor shown over w.
func (w *Window) SetCursor(cursor Cursor) {
	if w.cursor == cursor {
		return
	}
	w.cursor = cursor
	w.delegate.OnCursorChanged(w, cursor)
}

// SetProperty sets a property; a nil value removes it.
func (w *Window) SetProperty(name string, value []byte) {
	old, ok := w.properties[name]
	if value == nil {
		if !ok {
			return
		}
		delete(w.properties, name)
	} else {
		if ok && bytes.Equal(old, value) {
			return
		}
		w.properties[name] = bytes.Clone(value)
	}
	w.delegate.OnPropertyChanged(w, name, value)
}

// AddTransientWindow makes transient a transient child of w.
func (w *Window) AddTransientWindow(transient *Window) {
	if transient == w || transient.transientParent == w {
		return
	}
	if transient.transientParent != nil {
		transient.transientParent.RemoveTransientWindow(transient)
	}
	transient.transientParent = w
	w.transientChildren = append(w.transientChildren, transient)
	w.delegate.OnTransientWindowAdded(w, transient)
}

// RemoveTransientWindow breaks the transient link between w and transient.
func (w *Window) RemoveTransientWindow(transient *Window) {
	if transient.transientParent != w {
		return
	}
	for i, c := range w.transientChildren {
		if c == transient {
			w.transientChildren = append(w.transientChildren[:i], w.transientChildren[i+1:]...)
			break
		}
	}
	transient.transientParent = nil
	w.delegate.OnTransientWindowRemoved(w, transient)
}

// SetMaskLayer attaches mask as the mask layer of w; nil detaches the
// current one.
func (w *Window) SetMaskLayer(mask *Window) {
	if w.maskLayer != nil {
		w.maskLayer.secondaryOwner = nil
	}
	w.maskLayer = mask
	if mask != nil {
		mask.detachSecondary()
		mask.secondaryOwner = w
	}
}

// AddDecoration attaches d as a decoration window of w.
func (w *Window) AddDecoration(d *Window) {
	if d.secondaryOwner == w {
		return
	}
	d.detachSecondary()
	d.secondaryOwner = w
	w.decorations = append(w.decorations, d)
}

func (w *Window) detachSecondary() {
	owner := w.secondaryOwner
	if owner == nil {
		return
	}
	if owner.maskLayer == w {
		owner.maskLayer = nil
	}
	for i, d := range owner.decorations {
		if d == w {
			owner.decorations = append(owner.decorations[:i], owner.decorations[i+1:]...)
			break
		}
	}
	w.secondaryOwner = nil
}

// Track returns a weak reference that is cleared when w is destroyed.
func (w *Window) Track() *Ref {
	r := &Ref{w: w}
	if w.destroyed {
		r.w = nil
		return r
	}
	w.refs[r] = struct{}{}
	return r
}

// Destroy tears w down. Transient children are destroyed with it; regular
// children and secondary windows are only detached.
func (w *Window) Destroy() {
	if w.destroying || w.destroyed {
		return
	}
	w.destroying = true
	w.delegate.OnWindowDestroying(w)

	if w.transientParent != nil {
		w.transientParent.RemoveTransientWindow(w)
	}
	for _, t := range w.TransientChildren() {
		t.Destroy()
	}
	for len(w.children) > 0 {
		w.Remove(w.children[0])
	}
	if w.parent != nil {
		w.parent.Remove(w)
	}
	w.detachSecondary()
	for _, s := range w.Secondaries() {
		s.secondaryOwner = nil
	}
	w.maskLayer = nil
	w.decorations = nil

	for r := range w.refs {
		r.w = nil
	}
	w.refs = nil
	w.destroyed = true
	w.delegate.OnWindowDestroyed(w)
}

// Ref observes a window without keeping it alive in the tree.
type Ref struct {
	w *Window
}

// Get returns the window, or nil once it has been destroyed.
func (r *Ref) Get() *Window {
	if r == nil {
		return nil
	}
	return r.w
}

// Release stops observing the window.
func (r *Ref) Release() {
	if r == nil || r.w == nil {
		return
	}
	delete(r.w.refs, r)
	r.w = nil
}
