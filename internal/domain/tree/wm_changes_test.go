package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"
)

func TestTopLevelWindowHandshake(t *testing.T) {
	f := newFixture(t)
	wm, wmr := f.attachWindowManager()
	x, xr := f.connect()

	x.NewTopLevelWindow(5, wid(2, 1), map[string][]byte{"title": []byte("editor"), "app": []byte("e")})
	assert.True(t, x.Paused())
	assert.Equal(t, []string{"create_top_level 1 [app title]"}, wmr.requests)

	// Requests made while waiting are held in order.
	x.Dispatch(func(c *Connection) { c.NewWindow(6, wid(2, 2), nil) })
	x.Dispatch(func(c *Connection) { c.AddWindow(7, wid(2, 1), wid(2, 2)) })
	assert.Empty(t, xr.take())

	server := f.newVisibleWindow(wm, wmr, 1, f.root())
	wm.WmCreatedTopLevelWindow(1, server)

	assert.False(t, x.Paused())
	assert.Equal(t, []string{
		"top_level 5 2,1 drawn=true",
		"change 6 true",
		"change 7 true",
	}, xr.take())
	assert.Equal(t, []window.ID{wid(2, 1)}, x.Roots())
	assert.Empty(t, f.m.inFlight)

	// The client names the window by the id it asked for.
	w := f.m.Window(server)
	assert.Equal(t, server, x.MapClientIDToServer(wid(2, 1)))
	assert.Equal(t, wid(2, 1), x.MapServerIDToClient(w))
	assert.Equal(t, wid(2, 9), x.MapClientIDToServer(wid(2, 9)))
	assert.False(t, x.IsValidIDForNewWindow(wid(2, 1)))
	assert.False(t, x.IsValidIDForNewWindow(wid(3, 1)))
	assert.True(t, x.IsValidIDForNewWindow(wid(2, 3)))
	assert.Equal(t, server, f.m.Window(wid(2, 2)).Parent().ID())

	// The window manager sees the child under its own id for the window.
	assert.Equal(t, []string{"hierarchy 2,2 new=1,1 old=0,0 [2,2]"}, wmr.take())
}

func TestTopLevelWindowFailures(t *testing.T) {
	f := newFixture(t)
	x, xr := f.connect()

	x.NewTopLevelWindow(1, wid(1, 1), nil)
	assert.Equal(t, []string{"change 1 false"}, xr.take(), "no window manager")
	assert.False(t, x.Paused())

	wm, wmr := f.attachWindowManager()

	x.NewTopLevelWindow(2, wid(1, 1), nil)
	wm.WmCreatedTopLevelWindow(wmr.lastChange, window.ID{})
	assert.Equal(t, []string{"change 2 false"}, xr.take())
	assert.False(t, x.Paused())

	x.NewTopLevelWindow(3, wid(1, 1), nil)
	wm.WmResponse(wmr.lastChange, true)
	assert.Equal(t, []string{"change 3 false"}, xr.take(), "a plain response does not create a window")
	assert.False(t, x.Paused())

	// The window manager must answer with a fresh window of its own.
	x.NewTopLevelWindow(4, wid(1, 1), nil)
	wm.WmCreatedTopLevelWindow(wmr.lastChange, f.root())
	assert.Equal(t, []string{"change 4 false"}, xr.take())

	x.NewTopLevelWindow(5, wid(1, 0), nil)
	assert.Equal(t, []string{"change 5 false"}, xr.take())

	wm.NewTopLevelWindow(6, wid(wm.ID(), 1), nil)
	assert.Equal(t, []string{"change 6 false"}, wmr.take())
	assert.Empty(t, f.m.inFlight)
}

func TestWindowManagerDecidesTopLevelBoundsAndProperties(t *testing.T) {
	f := newFixture(t)
	wm, wmr := f.attachWindowManager()
	x, xr := f.connect()
	top := wid(2, 1)
	server := f.topLevel(x, xr, wm, wmr, top, 1)
	bounds := window.Rect{X: 10, Y: 20, Width: 300, Height: 200}

	x.SetWindowBounds(10, top, bounds)
	assert.Equal(t, "set_bounds 2 1,1 10,20 300x200", wmr.requests[len(wmr.requests)-1])
	assert.Empty(t, xr.take(), "nothing completes until the window manager answers")

	f.must(wmr, func(id uint32) { wm.SetWindowBounds(id, server, bounds) })
	assert.Equal(t, []string{"bounds 2,1 0,0 0x0->10,20 300x200"}, xr.take())
	wm.WmResponse(wmr.lastChange, true)
	assert.Equal(t, []string{"change 10 true"}, xr.take())

	x.SetWindowProperty(11, top, "title", []byte("x"))
	assert.Equal(t, "set_property 3 1,1 title=x", wmr.requests[len(wmr.requests)-1])
	wm.WmResponse(wmr.lastChange, false)
	assert.Equal(t, []string{"change 11 false"}, xr.take())

	// Windows the client created itself are not routed.
	own := wid(2, 2)
	f.must(xr, func(id uint32) { x.NewWindow(id, own, nil) })
	f.must(xr, func(id uint32) { x.SetWindowBounds(id, own, bounds) })
	assert.Len(t, wmr.requests, 3)
	assert.Empty(t, f.m.inFlight)
}

func TestWindowManagerResponsesAreChecked(t *testing.T) {
	f := newFixture(t)
	wm, wmr := f.attachWindowManager()
	x, xr := f.connect()
	top := wid(2, 1)
	f.topLevel(x, xr, wm, wmr, top, 1)

	x.SetWindowBounds(20, top, window.Rect{Width: 1, Height: 1})
	pending := wmr.lastChange

	x.WmResponse(pending, true)
	wm.WmResponse(pending+100, true)
	wm.WmCreatedTopLevelWindow(pending+100, wid(1, 1))
	assert.Empty(t, xr.take())
	assert.Equal(t, 3, f.logs.FilterMessage("Window manager answered an unknown change").Len())

	wm.WmResponse(pending, true)
	assert.Equal(t, []string{"change 20 true"}, xr.take())
}

func TestWindowManagerDisconnectFailsPendingChanges(t *testing.T) {
	f := newFixture(t)
	wm, wmr := f.attachWindowManager()
	x, xr := f.connect()
	top := wid(2, 1)
	f.topLevel(x, xr, wm, wmr, top, 1)
	y, yr := f.connect()

	x.SetWindowBounds(10, top, window.Rect{Width: 5, Height: 5})
	y.NewTopLevelWindow(11, wid(3, 1), nil)
	y.Dispatch(func(c *Connection) { c.NewWindow(12, wid(3, 2), nil) })
	require.True(t, y.Paused())

	wm.Close()

	assert.Equal(t, []string{"deleted 2,1", "change 10 false"}, xr.take())
	assert.Empty(t, x.Roots())
	assert.Equal(t, []string{"change 11 false", "change 12 true"}, yr.take())
	assert.False(t, y.Paused())
	assert.Empty(t, f.m.inFlight)
	assert.Nil(t, f.d.WindowManager())

	y.NewTopLevelWindow(13, wid(3, 3), nil)
	assert.Equal(t, []string{"change 13 false"}, yr.take())
}

func TestRoutedChangeOutlivesClient(t *testing.T) {
	f := newFixture(t)
	wm, wmr := f.attachWindowManager()
	x, xr := f.connect()
	top := wid(2, 1)
	f.topLevel(x, xr, wm, wmr, top, 1)

	x.SetWindowBounds(10, top, window.Rect{Width: 5, Height: 5})
	x.Close()
	assert.Equal(t, []string{"app_disconnected 1,1"}, wmr.take())
	assert.Empty(t, f.m.inFlight)

	wm.WmResponse(wmr.lastChange, true)
	assert.Empty(t, xr.take())
}
