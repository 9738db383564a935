package tree

import "github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"

// OperationType names the mutation an Operation guards.
type OperationType int

const (
	OpNone OperationType = iota
	OpAddTransientWindow
	OpAddWindow
	OpAttachSecondary
	OpDeleteWindow
	OpEmbed
	OpRemoveTransientWindowFromParent
	OpRemoveWindowFromParent
	OpReorderWindow
	OpSetClientArea
	OpSetCursor
	OpSetFocus
	OpSetViewportMetrics
	OpSetWindowBounds
	OpSetWindowProperty
	OpSetWindowVisibility
)

var operationNames = map[OperationType]string{
	OpNone:                            "none",
	OpAddTransientWindow:              "add_transient_window",
	OpAddWindow:                       "add_window",
	OpAttachSecondary:                 "attach_secondary",
	OpDeleteWindow:                    "delete_window",
	OpEmbed:                           "embed",
	OpRemoveTransientWindowFromParent: "remove_transient_window_from_parent",
	OpRemoveWindowFromParent:          "remove_window_from_parent",
	OpReorderWindow:                   "reorder_window",
	OpSetClientArea:                   "set_client_area",
	OpSetCursor:                       "set_cursor",
	OpSetFocus:                        "set_focus",
	OpSetViewportMetrics:              "set_viewport_metrics",
	OpSetWindowBounds:                 "set_window_bounds",
	OpSetWindowProperty:               "set_window_property",
	OpSetWindowVisibility:             "set_window_visibility",
}

func (t OperationType) String() string {
	if s, ok := operationNames[t]; ok {
		return s
	}
	return "unknown"
}

// Operation marks a mutation in progress. It records who caused it so
// notifications triggered while it is open can tell a connection's own echo
// from a third party change. The outermost operation also owns the set of
// connections messaged during this pass.
//
//	op := m.beginOperation(c, OpAddWindow)
//	defer op.End()
type Operation struct {
	manager  *Manager
	source   window.ConnectionID
	kind     OperationType
	messaged map[window.ConnectionID]struct{}
}

// beginOperation pushes a new operation. source may be nil for changes the
// server makes on its own.
func (m *Manager) beginOperation(source *Connection, kind OperationType) *Operation {
	op := &Operation{manager: m, kind: kind}
	if source != nil {
		op.source = source.id
	}
	if len(m.operations) == 0 {
		op.messaged = make(map[window.ConnectionID]struct{})
	}
	m.operations = append(m.operations, op)
	return op
}

// End pops the operation. Operations must end in reverse order.
func (op *Operation) End() {
	m := op.manager
	n := len(m.operations)
	if n == 0 || m.operations[n-1] != op {
		m.logger.DPanic("operation ended out of order", zapOperation(op))
		return
	}
	m.operations[n-1] = nil
	m.operations = m.operations[:n-1]
}

// Kind returns the operation type.
func (op *Operation) Kind() OperationType { return op.kind }

// Source returns the connection that started the operation; zero for the
// server.
func (op *Operation) Source() window.ConnectionID { return op.source }

func (m *Manager) currentOperation() *Operation {
	if len(m.operations) == 0 {
		return nil
	}
	return m.operations[len(m.operations)-1]
}

// IsOperationSource reports whether the innermost operation was started by
// the connection id.
func (m *Manager) IsOperationSource(id window.ConnectionID) bool {
	op := m.currentOperation()
	return op != nil && op.source == id
}

func (m *Manager) isProcessingDeleteWindow() bool {
	op := m.currentOperation()
	return op != nil && op.kind == OpDeleteWindow
}

// DidConnectionMessageClient reports whether connection id already sent a
// hierarchy or reorder notification during the current top level operation.
func (m *Manager) DidConnectionMessageClient(id window.ConnectionID) bool {
	if len(m.operations) == 0 {
		return false
	}
	_, ok := m.operations[0].messaged[id]
	return ok
}

// OnConnectionMessagedClient records that connection id messaged its
// client during the current top level operation.
func (m *Manager) OnConnectionMessagedClient(id window.ConnectionID) {
	if len(m.operations) == 0 {
		return
	}
	m.operations[0].messaged[id] = struct{}{}
}
