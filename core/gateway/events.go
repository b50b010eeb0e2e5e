package gateway

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmitrymomot/authgate/pkg/broadcast"
)

// EventType identifies a session lifecycle transition.
type EventType string

const (
	EventLogin   EventType = "login"
	EventRefresh EventType = "refresh"
	EventLogout  EventType = "logout"
	EventExpired EventType = "expired"
)

// SessionEvent is published on every session lifecycle transition.
// Subscribers observe auth-state changes through the broadcast stream
// instead of registering callbacks on the gateway.
type SessionEvent struct {
	Type      EventType
	SessionID uuid.UUID
	SubjectID string
	IP        string
	At        time.Time
}

// publish sends an event to subscribers, best-effort. A closed or
// absent broadcaster never affects the request.
func (g *Gateway) publish(c *gin.Context, event SessionEvent) {
	if g.events == nil {
		return
	}
	event.At = time.Now()
	if event.IP == "" {
		event.IP = clientIP(c)
	}
	if err := g.events.Broadcast(c.Request.Context(), broadcast.Message[SessionEvent]{Data: event}); err != nil {
		g.logger.Warn("session event dropped", "type", string(event.Type), "error", err)
	}
}
