package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"
)

func TestDrawnStateReachesOnlyRootOwner(t *testing.T) {
	f := newFixture(t)
	wm, wmr := f.attachWindowManager()
	parent := f.newVisibleWindow(wm, wmr, 1, f.root())
	root := f.newVisibleWindow(wm, wmr, 2, parent)
	_, br := f.embed(wm, wmr, root)
	_, cr := f.connect()

	f.must(wmr, func(id uint32) { wm.SetWindowVisibility(id, parent, false) })
	assert.Equal(t, []string{"drawn 1,2 false"}, br.take())

	f.must(wmr, func(id uint32) { wm.SetWindowVisibility(id, parent, true) })
	assert.Equal(t, []string{"drawn 1,2 true"}, br.take())

	f.must(wmr, func(id uint32) { wm.RemoveWindowFromParent(id, parent) })
	assert.Equal(t, []string{"drawn 1,2 false"}, br.take())

	// The root itself is known, so its own visibility is reported directly.
	f.must(wmr, func(id uint32) { wm.SetWindowVisibility(id, root, false) })
	assert.Equal(t, []string{"visibility 1,2 false"}, br.take())

	assert.Empty(t, cr.take())
	assert.Empty(t, wmr.take())
}

func TestReorderNotifiesKnowingConnections(t *testing.T) {
	f := newFixture(t)
	wm, wmr := f.attachWindowManager()
	a := f.newVisibleWindow(wm, wmr, 1, f.root())
	b := f.newVisibleWindow(wm, wmr, 2, f.root())
	client, cr := f.embed(wm, wmr, a)
	low := f.newVisibleWindow(client, cr, 1, a)
	high := f.newVisibleWindow(client, cr, 2, a)
	wmr.take()

	f.must(wmr, func(id uint32) { wm.ReorderWindow(id, a, b, window.Above) })
	assert.Equal(t, []window.ID{b, a}, childIDs(f.d.Root()))
	assert.Empty(t, cr.take(), "the client does not know its root's siblings")

	f.must(cr, func(id uint32) { client.ReorderWindow(id, low, high, window.Above) })
	assert.Equal(t, []string{"reorder 2,1 2,2 above"}, wmr.take())
	assert.Equal(t, []window.ID{high, low}, childIDs(f.m.Window(a)))
}

func TestViewportMetricsGoToRootOwners(t *testing.T) {
	f := newFixture(t)
	wm, wmr := f.attachWindowManager()
	slot := f.newVisibleWindow(wm, wmr, 1, f.root())
	_, br := f.embed(wm, wmr, slot)
	_, cr := f.connect()

	f.d.SetMetrics(ViewportMetrics{Width: 1024, Height: 768, DeviceScaleFactor: 2})

	assert.Equal(t, []string{"viewport [0,1] 1024x768"}, wmr.take())
	assert.Equal(t, []string{"viewport [1,1] 1024x768"}, br.take())
	assert.Empty(t, cr.take())
	assert.Equal(t, 1024, f.d.Metrics().Width)

	f.d.SetMetrics(f.d.Metrics())
	assert.Empty(t, wmr.take())
}

// focusFixture is a window manager with a focusable window of its own and
// an embedded client with a focusable window inside its root.
type focusFixture struct {
	*fixture
	wm     *Connection
	wmr    *fakeWindowManager
	own    window.ID
	slot   window.ID
	client *Connection
	cr     *recordingClient
	inner  window.ID
}

func newFocusFixture(t *testing.T) *focusFixture {
	f := newFixture(t)
	wm, wmr := f.attachWindowManager()
	own := f.newVisibleWindow(wm, wmr, 1, f.root())
	f.must(wmr, func(id uint32) { wm.SetCanFocus(id, own, true) })
	slot := f.newVisibleWindow(wm, wmr, 2, f.root())
	client, cr := f.embed(wm, wmr, slot)
	inner := f.newVisibleWindow(client, cr, 1, slot)
	f.must(cr, func(id uint32) { client.SetCanFocus(id, inner, true) })
	wmr.take()
	cr.take()
	return &focusFixture{fixture: f, wm: wm, wmr: wmr, own: own, slot: slot, client: client, cr: cr, inner: inner}
}

func TestFocus(t *testing.T) {
	f := newFocusFixture(t)

	f.must(f.wmr, func(id uint32) { f.wm.SetFocus(id, f.own) })
	assert.Equal(t, f.own, f.d.FocusedWindow().ID())
	assert.Empty(t, f.cr.take(), "focus outside the client's roots is invisible to it")
	assert.Empty(t, f.wmr.take())

	f.must(f.cr, func(id uint32) { f.client.SetFocus(id, f.inner) })
	assert.Equal(t, []string{"focused 2,1"}, f.wmr.take())
	assert.Empty(t, f.cr.take())

	f.must(f.wmr, func(id uint32) { f.wm.SetFocus(id, window.ID{}) })
	assert.Equal(t, []string{"focused 0,0"}, f.cr.take())
	assert.Nil(t, f.d.FocusedWindow())

	// Nothing to clear, a foreign window, an undrawn window.
	f.client.SetFocus(60, window.ID{})
	f.client.SetFocus(61, f.own)
	f.must(f.cr, func(id uint32) { f.client.NewWindow(id, wid(2, 2), nil) })
	f.client.SetFocus(62, wid(2, 2))
	assert.Equal(t, []string{"change 60 false", "change 61 false", "change 62 false"}, f.cr.take())
	assert.Empty(t, f.wmr.take())
}

func TestFocusDroppedWhenUndrawn(t *testing.T) {
	f := newFocusFixture(t)
	f.must(f.cr, func(id uint32) { f.client.SetFocus(id, f.inner) })
	f.wmr.take()

	f.must(f.wmr, func(id uint32) { f.wm.SetWindowVisibility(id, f.slot, false) })

	assert.Nil(t, f.d.FocusedWindow())
	assert.Equal(t, []string{"visibility 1,2 false", "focused 0,0"}, f.cr.take())
	assert.Equal(t, []string{"focused 0,0"}, f.wmr.take())
}

func TestFocusDroppedWhenDestroyed(t *testing.T) {
	f := newFocusFixture(t)
	f.must(f.cr, func(id uint32) { f.client.SetFocus(id, f.inner) })
	f.wmr.take()

	f.must(f.cr, func(id uint32) { f.client.DeleteWindow(id, f.inner) })

	assert.Nil(t, f.d.FocusedWindow())
	assert.Equal(t, []string{"focused 0,0", "deleted 2,1"}, f.wmr.take())
	assert.Equal(t, []string{"focused 0,0"}, f.cr.take())
}

func TestEmbedReportsFocus(t *testing.T) {
	f := newFocusFixture(t)
	f.must(f.cr, func(id uint32) { f.client.SetFocus(id, f.inner) })

	nested := &recordingClient{}
	f.must(f.cr, func(id uint32) { f.client.Embed(id, f.inner, nested, 0) })
	assert.Equal(t, []string{"embed 3 [2,1] focused=2,1"}, nested.take())

	// Focus is tracked per display.
	late := &fakeWindowManager{}
	other := f.m.AddDisplay(ViewportMetrics{Width: 10, Height: 10})
	_, err := f.m.AttachWindowManager(other, late)
	assert.NoError(t, err)
	assert.Equal(t, []string{"embed 4 [0,2] focused=0,0"}, late.take())
}
