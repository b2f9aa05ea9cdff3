package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/matchmaking"
)

// StartMatchmaking admits the caller to the open queue. The response is
// immediate in both outcomes: a waiting ticket means the caller should
// re-poll until someone claims their row.
func StartMatchmaking(svc *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64("user_id")

		ticket, err := svc.Request(c.Request.Context(), userID)
		if err != nil {
			log.Printf("[MATCH] start failed for user %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "matchmaking failed"})
			return
		}

		c.JSON(http.StatusOK, ticket)
	}
}

// InviteMatchmaking opens an invitation room for the listed users.
func InviteMatchmaking(svc *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64("user_id")

		var req struct {
			InviteeIDs []int64 `json:"invitee_ids" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invitee_ids required"})
			return
		}

		roomID, err := svc.Invite(c.Request.Context(), userID, req.InviteeIDs)
		if err != nil {
			if errors.Is(err, matchmaking.ErrNoInvitees) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invite needs at least one other user"})
				return
			}
			log.Printf("[MATCH] invite failed for user %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "invite failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"room_id": roomID})
	}
}

// CheckAccess gates the game page before a room connection is opened.
func CheckAccess(svc *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64("user_id")

		roomID, err := strconv.ParseInt(c.Query("room_id"), 10, 64)
		if err != nil || roomID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room_id"})
			return
		}

		authorized, err := svc.CheckAccess(c.Request.Context(), userID, roomID)
		if err != nil {
			log.Printf("[MATCH] access check failed for user %d room %d: %v", userID, roomID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "access check failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"authorized": authorized})
	}
}
