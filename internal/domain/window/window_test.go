package window

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder logs delegate calls and treats root as the only display root.
type recorder struct {
	NopDelegate
	root  *Window
	calls []string
}

func (r *recorder) RootWindow(w *Window) *Window {
	for cur := w; cur != nil; cur = cur.parent {
		if cur == r.root {
			return r.root
		}
	}
	return nil
}

func (r *recorder) OnWillChangeHierarchy(w, newParent, oldParent *Window) {
	r.calls = append(r.calls, fmt.Sprintf("will-hierarchy %v %v %v", w.ID(), idOf(newParent), idOf(oldParent)))
}

func (r *recorder) OnHierarchyChanged(w, newParent, oldParent *Window) {
	r.calls = append(r.calls, fmt.Sprintf("hierarchy %v %v %v", w.ID(), idOf(newParent), idOf(oldParent)))
}

func (r *recorder) OnReordered(w, relative *Window, direction OrderDirection) {
	r.calls = append(r.calls, fmt.Sprintf("reorder %v %v %v", w.ID(), relative.ID(), direction))
}

func (r *recorder) OnPropertyChanged(w *Window, name string, value []byte) {
	r.calls = append(r.calls, fmt.Sprintf("property %v %s=%q", w.ID(), name, value))
}

func (r *recorder) OnTransientWindowRemoved(w, transient *Window) {
	r.calls = append(r.calls, fmt.Sprintf("transient-removed %v %v", w.ID(), transient.ID()))
}

func (r *recorder) OnWindowDestroying(w *Window) {
	r.calls = append(r.calls, fmt.Sprintf("destroying %v", w.ID()))
}

func (r *recorder) OnWindowDestroyed(w *Window) {
	r.calls = append(r.calls, fmt.Sprintf("destroyed %v", w.ID()))
}

func idOf(w *Window) ID {
	if w == nil {
		return ID{}
	}
	return w.ID()
}

func newTree() (*recorder, func(local LocalID) *Window) {
	r := &recorder{}
	r.root = New(ID{Connection: 0, Local: 1}, r, nil)
	r.root.visible = true
	return r, func(local LocalID) *Window {
		return New(ID{Connection: 1, Local: local}, r, nil)
	}
}

func TestTransportRoundTrip(t *testing.T) {
	id := ID{Connection: 3, Local: 7}
	assert.Equal(t, uint32(3<<16|7), id.Transport())
	assert.Equal(t, id, FromTransport(id.Transport()))
	assert.True(t, ID{}.IsZero())
	assert.Equal(t, "3,7", id.String())

	data, err := id.MarshalJSON()
	require.NoError(t, err)
	var back ID
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, id, back)

	require.NoError(t, back.UnmarshalJSON([]byte("null")))
	assert.True(t, back.IsZero())
	assert.Error(t, back.UnmarshalJSON([]byte(`"x"`)))
}

func TestParseOrderDirection(t *testing.T) {
	d, ok := ParseOrderDirection("above")
	assert.True(t, ok)
	assert.Equal(t, Above, d)
	d, ok = ParseOrderDirection("below")
	assert.True(t, ok)
	assert.Equal(t, Below, d)
	_, ok = ParseOrderDirection("sideways")
	assert.False(t, ok)
	assert.Equal(t, "unknown", OrderDirection(0).String())
}

func TestAddReparents(t *testing.T) {
	r, newWindow := newTree()
	a, b, c := newWindow(1), newWindow(2), newWindow(3)

	a.Add(c)
	b.Add(c)

	assert.Same(t, b, c.Parent())
	assert.Empty(t, a.Children())
	assert.Equal(t, []string{
		"will-hierarchy 1,3 1,1 0,0",
		"hierarchy 1,3 1,1 0,0",
		"will-hierarchy 1,3 1,2 1,1",
		"hierarchy 1,3 1,2 1,1",
	}, r.calls)
}

func TestAddRejectsCycles(t *testing.T) {
	r, newWindow := newTree()
	a, b := newWindow(1), newWindow(2)
	a.Add(b)
	r.calls = nil

	b.Add(a)
	a.Add(a)

	assert.Nil(t, a.Parent())
	assert.Empty(t, r.calls)
	assert.True(t, a.Contains(b))
	assert.False(t, b.Contains(a))
}

func TestAddExistingChildMovesToTop(t *testing.T) {
	r, newWindow := newTree()
	p, a, b := newWindow(1), newWindow(2), newWindow(3)
	p.Add(a)
	p.Add(b)
	r.calls = nil

	p.Add(a)

	assert.Equal(t, []*Window{b, a}, p.Children())
	assert.Equal(t, []string{"reorder 1,2 1,3 above"}, r.calls)
}

func TestReorder(t *testing.T) {
	_, newWindow := newTree()
	p := newWindow(1)
	a, b, c := newWindow(2), newWindow(3), newWindow(4)
	p.Add(a)
	p.Add(b)
	p.Add(c)

	p.Reorder(c, a, Below)
	assert.Equal(t, []*Window{c, a, b}, p.Children())

	p.Reorder(c, b, Above)
	assert.Equal(t, []*Window{a, b, c}, p.Children())

	stranger := newWindow(5)
	p.Reorder(stranger, a, Above)
	assert.Equal(t, []*Window{a, b, c}, p.Children())
	assert.Equal(t, -1, p.IndexOf(stranger))
}

func TestIsDrawn(t *testing.T) {
	r, newWindow := newTree()
	a, b := newWindow(1), newWindow(2)
	a.Add(b)
	a.SetVisible(true)
	b.SetVisible(true)

	assert.False(t, b.IsDrawn(), "detached windows are not drawn")

	r.root.Add(a)
	assert.True(t, b.IsDrawn())
	assert.True(t, r.root.IsDrawn())

	a.SetVisible(false)
	assert.False(t, b.IsDrawn())
}

func TestSetPropertyNotifiesOnlyOnChange(t *testing.T) {
	r, newWindow := newTree()
	w := newWindow(1)

	w.SetProperty("title", []byte("a"))
	w.SetProperty("title", []byte("a"))
	w.SetProperty("title", nil)
	w.SetProperty("title", nil)

	assert.Equal(t, []string{
		`property 1,1 title="a"`,
		`property 1,1 title=""`,
	}, r.calls)
	_, ok := w.Property("title")
	assert.False(t, ok)
}

func TestPropertiesAreCopied(t *testing.T) {
	value := []byte("x")
	w := New(ID{Connection: 1, Local: 1}, nil, map[string][]byte{"k": value})
	value[0] = 'y'

	got, _ := w.Property("k")
	assert.Equal(t, []byte("x"), got)
	got[0] = 'z'
	assert.Equal(t, []byte("x"), w.Properties()["k"])
}

func TestTransientWindows(t *testing.T) {
	_, newWindow := newTree()
	a, b, tr := newWindow(1), newWindow(2), newWindow(3)

	a.AddTransientWindow(tr)
	assert.Same(t, a, tr.TransientParent())

	b.AddTransientWindow(tr)
	assert.Same(t, b, tr.TransientParent())
	assert.Empty(t, a.TransientChildren())
	assert.Equal(t, []*Window{tr}, b.TransientChildren())

	b.RemoveTransientWindow(tr)
	assert.Nil(t, tr.TransientParent())
}

func TestSecondaryWindows(t *testing.T) {
	_, newWindow := newTree()
	owner, mask, deco := newWindow(1), newWindow(2), newWindow(3)

	owner.SetMaskLayer(mask)
	owner.AddDecoration(deco)
	assert.Equal(t, []*Window{mask, deco}, owner.Secondaries())
	assert.Same(t, owner, mask.SecondaryOwner())

	// Moving a secondary detaches it from its old owner.
	other := newWindow(4)
	other.AddDecoration(mask)
	assert.Nil(t, owner.MaskLayer())
	assert.Same(t, other, mask.SecondaryOwner())

	owner.SetMaskLayer(nil)
	assert.Equal(t, []*Window{deco}, owner.Secondaries())
}

func TestDestroy(t *testing.T) {
	r, newWindow := newTree()
	parent, w, child, transient := newWindow(1), newWindow(2), newWindow(3), newWindow(4)
	parent.Add(w)
	w.Add(child)
	w.AddTransientWindow(transient)
	ref := w.Track()
	r.calls = nil

	w.Destroy()

	assert.True(t, w.Destroyed())
	assert.True(t, transient.Destroyed(), "transient children die with their parent")
	assert.False(t, child.Destroyed())
	assert.Nil(t, child.Parent())
	assert.Empty(t, parent.Children())
	assert.Nil(t, ref.Get())

	assert.Equal(t, "destroying 1,2", r.calls[0])
	assert.Equal(t, "destroyed 1,2", r.calls[len(r.calls)-1])

	// A second destroy is a no-op.
	r.calls = nil
	w.Destroy()
	assert.Empty(t, r.calls)
	assert.Nil(t, w.Track().Get())
}

func TestRefRelease(t *testing.T) {
	_, newWindow := newTree()
	w := newWindow(1)
	ref := w.Track()
	assert.Same(t, w, ref.Get())

	ref.Release()
	assert.Nil(t, ref.Get())

	var nilRef *Ref
	assert.Nil(t, nilRef.Get())
	nilRef.Release()
}
