package tree

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"
)

// inFlightChange is a client request the window manager has not answered.
type inFlightChange struct {
	connection     window.ConnectionID
	windowManager  window.ConnectionID
	clientChangeID uint32
}

type failedChange struct {
	wmChangeID uint32
	change     inFlightChange
}

func (m *Manager) newWindowManagerChange(source, wm *Connection, clientChangeID uint32) uint32 {
	for {
		wmChangeID := m.nextWMChangeID
		m.nextWMChangeID++
		if wmChangeID == 0 {
			continue
		}
		if _, used := m.inFlight[wmChangeID]; used {
			continue
		}
		m.inFlight[wmChangeID] = inFlightChange{
			connection:     source.id,
			windowManager:  wm.id,
			clientChangeID: clientChangeID,
		}
		m.updateInFlightGauge()
		return wmChangeID
	}
}

// takeInFlightChange removes the change if it was routed to wm.
func (m *Manager) takeInFlightChange(wm *Connection, wmChangeID uint32) (inFlightChange, bool) {
	change, ok := m.inFlight[wmChangeID]
	if !ok || change.windowManager != wm.id {
		wm.logger.Warn("Window manager answered an unknown change", zap.Uint32("wm_change_id", wmChangeID))
		return inFlightChange{}, false
	}
	delete(m.inFlight, wmChangeID)
	m.updateInFlightGauge()
	return change, true
}

// dropInFlightChanges forgets the changes c started and returns, ordered by
// id, the ones that were waiting on c as window manager.
func (m *Manager) dropInFlightChanges(c *Connection) []failedChange {
	var failed []failedChange
	for wmChangeID, change := range m.inFlight {
		switch {
		case change.connection == c.id:
			delete(m.inFlight, wmChangeID)
		case change.windowManager == c.id:
			delete(m.inFlight, wmChangeID)
			failed = append(failed, failedChange{wmChangeID: wmChangeID, change: change})
		}
	}
	slices.SortFunc(failed, func(a, b failedChange) int {
		return cmp.Compare(a.wmChangeID, b.wmChangeID)
	})
	m.updateInFlightGauge()
	return failed
}

func (m *Manager) updateInFlightGauge() {
	if m.metrics != nil {
		m.metrics.SetWindowManagerChangesInFlight(len(m.inFlight))
	}
}

func (c *Connection) windowManagerClient() WindowManager {
	if !c.policy.IsWindowManager() {
		return nil
	}
	wm, _ := c.client.(WindowManager)
	return wm
}

// shouldRouteToWindowManager reports whether a change to w is decided by
// the window manager: w is a root of this connection that the window
// manager created.
func (c *Connection) shouldRouteToWindowManager(w *window.Window) bool {
	if w.ID().Connection == c.id || !c.hasRoot(w.ID()) {
		return false
	}
	wm := c.manager.windowManagerFor(w)
	if wm == nil || wm == c || wm.id != w.ID().Connection {
		return false
	}
	return wm.windowManagerClient() != nil
}

// WmResponse answers a bounds or property change routed to this window
// manager.
func (c *Connection) WmResponse(wmChangeID uint32, success bool) {
	change, ok := c.manager.takeInFlightChange(c, wmChangeID)
	if !ok {
		return
	}
	origin := c.manager.Connection(change.connection)
	if origin == nil {
		return
	}
	if wait := origin.waitingForTopLevel; wait != nil && wait.wmChangeID == wmChangeID {
		origin.onWindowManagerChangeFailed(wmChangeID, change.clientChangeID)
		return
	}
	origin.completeChange(change.clientChangeID, success)
}

// WmCreatedTopLevelWindow answers a top level window request with the
// window this window manager created, or a zero id on failure.
func (c *Connection) WmCreatedTopLevelWindow(wmChangeID uint32, clientID window.ID) {
	change, ok := c.manager.takeInFlightChange(c, wmChangeID)
	if !ok {
		return
	}
	origin := c.manager.Connection(change.connection)
	if origin == nil {
		return
	}
	origin.onTopLevelWindowCreated(wmChangeID, change.clientChangeID, c.windowByClientID(clientID))
}

func (c *Connection) onTopLevelWindowCreated(wmChangeID, changeID uint32, w *window.Window) {
	wait := c.waitingForTopLevel
	if wait == nil || wait.wmChangeID != wmChangeID {
		c.logger.Warn("Top level window for a request that is not pending", zap.Uint32("wm_change_id", wmChangeID))
		return
	}
	c.waitingForTopLevel = nil
	defer c.resume()

	wm := c.manager.windowManagerFor(w)
	if w == nil || wm == nil || w.ID().Connection != wm.id || len(w.Children()) > 0 ||
		c.manager.ConnectionWithRoot(w) != nil || !c.IsValidIDForNewWindow(wait.clientID) {
		c.completeChange(changeID, false)
		return
	}

	c.embedToReal[wait.clientID] = w.ID()
	c.roots[w.ID()] = struct{}{}
	c.known[wait.clientID] = struct{}{}
	if c.manager.metrics != nil {
		c.manager.metrics.RecordChange(true)
	}
	c.client.OnTopLevelCreated(changeID, c.windowToData(w), w.IsDrawn())
}

// onWindowManagerChangeFailed completes a routed change with failure,
// releasing the connection if it was waiting for a top level window.
func (c *Connection) onWindowManagerChangeFailed(wmChangeID, changeID uint32) {
	c.completeChange(changeID, false)
	if wait := c.waitingForTopLevel; wait != nil && wait.wmChangeID == wmChangeID {
		c.waitingForTopLevel = nil
		c.resume()
	}
}
