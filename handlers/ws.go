package handlers

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
)

// WSHandler pushes lightweight change events to household members, including
// postings created by the billing scheduler.
type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024 * 1024

	// Keep-alive to survive cloud load balancers
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		householdID, _ := s.Get("household_id")
		log.Printf("✅ Client connected to household: %v", householdID)
	})

	m.HandleDisconnect(func(s *melody.Session) {
		householdID, _ := s.Get("household_id")
		log.Printf("🔌 Client disconnected from household: %v", householdID)
	})

	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("❌ WebSocket error: %v", err)
	})

	return &WSHandler{M: m}
}

// HandleWS upgrades the connection. The household is attached as a session
// key at upgrade time so concurrent connects cannot tag each other's session.
func (h *WSHandler) HandleWS(c *gin.Context) {
	err := h.M.HandleRequestWithKeys(c.Writer, c.Request, map[string]interface{}{
		"household_id": c.Param("id"),
	})
	if err != nil {
		log.Printf("❌ Failed to upgrade websocket: %v", err)
	}
}

// BroadcastEvent notifies every session watching this household.
func (h *WSHandler) BroadcastEvent(householdID, eventType string) {
	if h == nil || h.M == nil {
		return
	}

	msg := []byte(`{"type": "` + eventType + `"}`)
	err := h.M.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, exists := s.Get("household_id")
		return exists && id == householdID
	})
	if err != nil {
		log.Printf("⚠️ Error broadcasting to household %s: %v", householdID, err)
	}
}
