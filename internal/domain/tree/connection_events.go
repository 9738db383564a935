package tree

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"
)

// queuedEvent waits for the outstanding ack. The target is observed weakly;
// an event whose target is gone by dispatch time is dropped.
type queuedEvent struct {
	target *window.Ref
	event  Event
}

// DispatchInputEvent sends event to the client, or queues it while another
// event is unacknowledged. Events reach the client in arrival order.
func (c *Connection) DispatchInputEvent(target *window.Window, event Event) {
	m := c.manager
	if c.eventAckID != 0 || len(c.eventQueue) > 0 {
		if m.eventQueueLimit > 0 && len(c.eventQueue) >= m.eventQueueLimit {
			c.logger.Debug("Input event dropped, queue full", zap.Int("queue", len(c.eventQueue)))
			if m.metrics != nil {
				m.metrics.RecordInputEvent("dropped")
			}
			return
		}
		c.eventQueue = append(c.eventQueue, queuedEvent{target: target.Track(), event: event})
		if m.metrics != nil {
			m.metrics.RecordInputEvent("queued")
		}
		return
	}
	c.dispatchInputEventImpl(target, event)
}

func (c *Connection) dispatchInputEventImpl(target *window.Window, event Event) {
	m := c.manager
	if m.DisplayForWindow(target) == nil {
		c.logger.DPanic("Input event target is not attached to a display", zap.Stringer("window", target.ID()))
		return
	}
	c.eventAckID = m.tokens.AckToken()
	c.client.OnWindowInputEvent(c.eventAckID, c.MapServerIDToClient(target), event)
	if m.metrics != nil {
		m.metrics.RecordInputEvent("dispatched")
	}
}

// OnWindowInputEventAck handles the client acknowledging the outstanding
// event and sends the next queued event whose target still exists.
func (c *Connection) OnWindowInputEventAck(ackID uint32) {
	if c.eventAckID == 0 || ackID != c.eventAckID {
		c.logger.Warn("Unexpected input event ack",
			zap.Uint32("ack_id", ackID),
			zap.Bool("outstanding", c.eventAckID != 0),
		)
	}
	c.eventAckID = 0

	for len(c.eventQueue) > 0 {
		next := c.eventQueue[0]
		c.eventQueue[0] = queuedEvent{}
		c.eventQueue = c.eventQueue[1:]

		target := next.target.Get()
		next.target.Release()
		if target == nil || c.manager.DisplayForWindow(target) == nil {
			continue
		}
		c.dispatchInputEventImpl(target, next.event)
		return
	}
}

// QueuedEvents returns the number of events waiting for an ack.
func (c *Connection) QueuedEvents() int { return len(c.eventQueue) }
