package ws

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/playpong/backend/internal/matchmaking"
)

// HandleWebSocket upgrades a player connection into a game room. Identity
// comes from the auth middleware; room id and authorization are settled here,
// before the upgrade, and never renegotiated mid-session.
func HandleWebSocket(hub *Hub, matchSvc *matchmaking.Service, names matchmaking.NameResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64("user_id")
		if userID == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		roomID, err := strconv.ParseInt(c.Param("room"), 10, 64)
		if err != nil || roomID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
			return
		}

		authorized, err := matchSvc.CheckAccess(c.Request.Context(), userID, roomID)
		if err != nil {
			log.Printf("[WS] access check failed for user %d room %d: %v", userID, roomID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "access check failed"})
			return
		}
		if !authorized {
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this room"})
			return
		}

		displayName := names.DisplayName(c.Request.Context(), userID)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] upgrade error: %v", err)
			return
		}

		client := &Client{
			conn:        conn,
			connID:      uuid.NewString(),
			userID:      userID,
			displayName: displayName,
			roomID:      roomID,
			hub:         hub,
			send:        make(chan []byte, 256),
		}

		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}
