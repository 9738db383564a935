package tree

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"
)

// RemoveRootReason says why a connection lost a root.
type RemoveRootReason int

const (
	RemoveRootDeleted RemoveRootReason = iota
	RemoveRootEmbed
)

func (r RemoveRootReason) String() string {
	if r == RemoveRootEmbed {
		return "embed"
	}
	return "deleted"
}

// Embed hands the window to a new connection for client. Existing children
// are detached and a previous root owner loses the window. It returns the
// new connection id, or zero on failure.
func (c *Connection) Embed(changeID uint32, clientID window.ID, client Client, policyBitmask uint32) window.ConnectionID {
	embedded, ok := c.embed(clientID, client, policyBitmask)
	c.completeChange(changeID, ok)
	if !ok {
		return 0
	}
	return embedded
}

func (c *Connection) embed(clientID window.ID, client Client, policyBitmask uint32) (window.ConnectionID, bool) {
	w := c.windowByClientID(clientID)
	if w == nil || client == nil || !c.policy.CanEmbed(w, policyBitmask) {
		return 0, false
	}
	// The id is taken before the window is cleared so a failure leaves the
	// tree untouched.
	cid := c.manager.AllocateConnectionID()
	if cid == 0 {
		c.logger.Warn("Embed failed", zap.Stringer("window", w.ID()), zap.Error(ErrNoConnectionIDs))
		return 0, false
	}
	c.prepareForEmbed(w)
	return c.manager.embedWithID(cid, w, client, policyBitmask).id, true
}

func (c *Connection) prepareForEmbed(w *window.Window) {
	m := c.manager
	op := m.beginOperation(c, OpEmbed)
	defer op.End()

	for _, child := range w.Children() {
		w.Remove(child)
	}

	if existing := m.ConnectionWithRoot(w); existing != nil {
		m.OnConnectionMessagedClient(c.id)
		existing.removeRoot(w, RemoveRootEmbed)
	}
}

// removeRoot drops w from the roots. Unless this connection created w, the
// client also forgets w and everything it only knew through it; its own
// windows parented below w are detached.
func (c *Connection) removeRoot(w *window.Window, reason RemoveRootReason) {
	m := c.manager
	delete(c.roots, w.ID())
	if w.ID().Connection == c.id {
		return
	}
	clientID := c.MapServerIDToClient(w)

	c.logger.Debug("Root removed", zap.Stringer("window", clientID), zap.Stringer("reason", reason))
	if reason == RemoveRootEmbed {
		c.client.OnUnembed(clientID)
		c.client.OnWindowDeleted(clientID)
		m.OnConnectionMessagedClient(c.id)
	}

	var local []*window.Window
	c.removeFromKnown(w, &local)
	delete(c.embedToReal, clientID)
	for _, lw := range local {
		if p := lw.Parent(); p != nil {
			p.Remove(lw)
		}
	}
}

// onConnectionDestroying tells the client when an app embedded in one of
// its windows went away.
func (c *Connection) onConnectionDestroying(gone *Connection) {
	for _, root := range gone.sortedRoots() {
		if root.ID().Connection == c.id || c.isWindowKnown(root) {
			c.client.OnEmbeddedAppDisconnected(c.MapServerIDToClient(root))
		}
	}
}
