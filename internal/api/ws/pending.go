package ws

import (
	"sync"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/infrastructure/monitoring"
)

// PendingRegistry holds clients that connected without a window and wait
// for another client to embed them. Each gets an unguessable token.
type PendingRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	metrics  *monitoring.Metrics
}

// NewPendingRegistry creates an empty registry.
func NewPendingRegistry(metrics *monitoring.Metrics) *PendingRegistry {
	return &PendingRegistry{
		sessions: make(map[string]*session),
		metrics:  metrics,
	}
}

func (r *PendingRegistry) add(s *session) string {
	token := uuid.NewString()
	r.put(token, s)
	return token
}

func (r *PendingRegistry) put(token string, s *session) {
	r.mu.Lock()
	r.sessions[token] = s
	r.updateGauge()
	r.mu.Unlock()
}

// take removes and returns the session waiting under token.
func (r *PendingRegistry) take(token string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok {
		return nil
	}
	delete(r.sessions, token)
	r.updateGauge()
	return s
}

func (r *PendingRegistry) remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[token]; ok {
		delete(r.sessions, token)
		r.updateGauge()
	}
}

// Len returns the number of waiting clients.
func (r *PendingRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *PendingRegistry) updateGauge() {
	if r.metrics != nil {
		r.metrics.SetPendingClients(len(r.sessions))
	}
}
