package notification

import (
	"errors"
	"sync"
)

// ErrNotConnected is returned by Hub.Publish when the user has no live
// session in this process. The DeliveryCoordinator treats it the same as
// "user offline".
var ErrNotConnected = errors.New("user has no live session")

// Hub indexes the live sessions of this process by (tenant, user) and fans
// outbound messages out to them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[*Session]struct{})}
}

func sessionKey(tenantID, userID string) string {
	return tenantID + ":" + userID
}

func (h *Hub) Register(s *Session) {
	key := sessionKey(s.tenantID, s.userID)
	h.mu.Lock()
	if h.sessions[key] == nil {
		h.sessions[key] = make(map[*Session]struct{})
	}
	h.sessions[key][s] = struct{}{}
	h.mu.Unlock()
	ActiveSessions.Inc()
}

func (h *Hub) Unregister(s *Session) {
	key := sessionKey(s.tenantID, s.userID)
	h.mu.Lock()
	if set, ok := h.sessions[key]; ok {
		if _, ok := set[s]; ok {
			delete(set, s)
			ActiveSessions.Dec()
		}
		if len(set) == 0 {
			delete(h.sessions, key)
		}
	}
	h.mu.Unlock()
}

// Publish sends v to every live session of the user. It returns
// ErrNotConnected when there is none, and the last write error when every
// send fails; a partial success counts as delivered.
func (h *Hub) Publish(tenantID, userID string, v any) error {
	h.mu.RLock()
	set := h.sessions[sessionKey(tenantID, userID)]
	targets := make([]*Session, 0, len(set))
	for s := range set {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return ErrNotConnected
	}

	var lastErr error
	sent := false
	for _, s := range targets {
		if err := s.Send(v); err != nil {
			lastErr = err
			continue
		}
		sent = true
	}
	if !sent {
		return lastErr
	}
	return nil
}
