package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/access"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"
)

func TestEmbedRevokesPreviousRoot(t *testing.T) {
	f := newFixture(t)
	a, ar := f.connect()
	w, kept := wid(1, 1), wid(1, 2)
	f.must(ar, func(id uint32) { a.NewWindow(id, w, nil) })
	f.must(ar, func(id uint32) { a.NewWindow(id, kept, nil) })
	f.must(ar, func(id uint32) { a.AddWindow(id, w, kept) })

	first := &recordingClient{}
	f.must(ar, func(id uint32) { a.Embed(id, w, first, 0) })
	assert.Equal(t, []string{"embed 2 [1,1] focused=0,0"}, first.take())
	assert.Empty(t, f.m.Window(w).Children(), "the new client starts with an empty window")
	assert.Nil(t, f.m.Window(kept).Parent())

	b := f.m.Connection(2)
	require.NotNil(t, b)
	f.must(first, func(id uint32) { b.NewWindow(id, wid(2, 1), nil) })
	f.must(first, func(id uint32) { b.NewWindow(id, wid(2, 2), nil) })
	f.must(first, func(id uint32) { b.AddWindow(id, w, wid(2, 1)) })
	f.must(first, func(id uint32) { b.AddWindow(id, w, wid(2, 2)) })
	assert.Empty(t, ar.take())

	second := &recordingClient{}
	f.must(ar, func(id uint32) { a.Embed(id, w, second, 0) })

	// Both of the old client's windows are detached in one pass; it hears
	// about the first only.
	assert.Equal(t, []string{
		"hierarchy 2,1 new=0,0 old=1,1 []",
		"unembed 1,1",
		"deleted 1,1",
	}, first.take())
	assert.Empty(t, b.Roots())
	assert.False(t, b.KnowsWindow(w))
	assert.True(t, b.KnowsWindow(wid(2, 1)))

	assert.Equal(t, []string{"embed 3 [1,1] focused=0,0"}, second.take())
	assert.Equal(t, []window.ID{w}, f.m.Connection(3).Roots())
	assert.Empty(t, f.m.Window(w).Children())
	assert.Empty(t, ar.take())
}

func TestEmbedWithoutFreeIDLeavesTreeUntouched(t *testing.T) {
	f := newFixture(t)
	a, ar := f.connect()
	w := wid(1, 1)
	f.must(ar, func(id uint32) { a.NewWindow(id, w, nil) })
	b, br := f.embed(a, ar, w)
	inner := wid(2, 1)
	f.must(br, func(id uint32) { b.NewWindow(id, inner, nil) })
	f.must(br, func(id uint32) { b.AddWindow(id, w, inner) })

	// Occupy every remaining connection id.
	for cid := 1; cid < 1<<16; cid++ {
		if _, used := f.m.connections[window.ConnectionID(cid)]; !used {
			f.m.connections[window.ConnectionID(cid)] = &Connection{}
		}
	}

	next := &recordingClient{}
	assert.Zero(t, a.Embed(9, w, next, 0))

	assert.Equal(t, []string{"change 9 false"}, ar.take())
	assert.Empty(t, br.take())
	assert.Empty(t, next.take())
	assert.Equal(t, []window.ID{inner}, childIDs(f.m.Window(w)))
	assert.Equal(t, []window.ID{w}, b.Roots())
	assert.Equal(t, 1, f.logs.FilterMessage("Embed failed").Len())
}

func TestRemoveRootKeepsOwnWindowQuiet(t *testing.T) {
	f := newFixture(t)
	a, ar := f.connect()
	w := wid(1, 1)
	f.must(ar, func(id uint32) { a.NewWindow(id, w, nil) })
	a.roots[w] = struct{}{}

	a.removeRoot(f.m.Window(w), RemoveRootEmbed)

	assert.Empty(t, ar.take())
	assert.Empty(t, a.Roots())
	assert.True(t, a.KnowsWindow(w))
}

func TestEmbedRequiresPermission(t *testing.T) {
	f := newFixture(t)
	a, ar := f.connect()
	b, br := f.connect()
	w := wid(1, 1)
	f.must(ar, func(id uint32) { a.NewWindow(id, w, nil) })

	assert.Zero(t, b.Embed(1, w, &recordingClient{}, 0))
	assert.Zero(t, a.Embed(2, w, &recordingClient{}, access.EmbedRoot))
	assert.Zero(t, a.Embed(3, w, nil, 0))
	assert.Zero(t, a.Embed(4, wid(1, 7), &recordingClient{}, 0))

	assert.Equal(t, []string{"change 1 false"}, br.take())
	assert.Equal(t, []string{"change 2 false", "change 3 false", "change 4 false"}, ar.take())
	assert.Len(t, f.m.Connections(), 2)
}

func TestEmbeddedAppDisconnected(t *testing.T) {
	f := newFixture(t)
	a, ar := f.connect()
	w := wid(1, 1)
	f.must(ar, func(id uint32) { a.NewWindow(id, w, nil) })
	b, br := f.embed(a, ar, w)
	f.must(br, func(id uint32) { b.NewWindow(id, wid(2, 1), nil) })
	f.must(br, func(id uint32) { b.AddWindow(id, w, wid(2, 1)) })

	b.Close()

	assert.Equal(t, []string{"app_disconnected 1,1"}, ar.take())
	assert.Empty(t, f.m.Window(w).Children())
	assert.Nil(t, f.m.ConnectionWithRoot(f.m.Window(w)))

	// The window can host another client.
	f.embed(a, ar, w)
}

func TestEmbedWithoutEmbedRootIsLimitedToOwnWindows(t *testing.T) {
	f := newFixture(t)
	wm, wmr := f.attachWindowManager()
	slot := f.newVisibleWindow(wm, wmr, 1, f.root())
	b, br := f.embed(wm, wmr, slot)
	inner := f.newVisibleWindow(b, br, 1, slot)

	// A window manager embeds without the embed root bit, so b may only
	// embed in windows it created.
	assert.Zero(t, b.Embed(50, slot, &recordingClient{}, 0))
	assert.Equal(t, []string{"change 50 false"}, br.take())
	c, _ := f.embed(b, br, inner)
	assert.Equal(t, []window.ID{inner}, c.Roots())
	assert.False(t, c.Policy().IsWindowManager())
}
