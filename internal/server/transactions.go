package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/repository"
)

type actionBody struct {
	Action        string `json:"action" binding:"required"`
	ReviewerName  string `json:"reviewerName"`
	ReviewerEmail string `json:"reviewerEmail"`
	Notes         string `json:"notes"`
}

func (s *Server) handleGetTransaction(c *gin.Context) {
	tx, err := s.txs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// handleTransactionAction applies one reviewer action and returns the updated
// transaction together with the recorded audit entry.
func (s *Server) handleTransactionAction(c *gin.Context) {
	var body actionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action is required"})
		return
	}

	tx, action, err := s.txs.ApplyAction(c.Request.Context(), repository.ActionRequest{
		TransactionID: c.Param("id"),
		Action:        constants.ReviewAction(body.Action),
		ReviewerName:  body.ReviewerName,
		ReviewerEmail: body.ReviewerEmail,
		Notes:         body.Notes,
		IPAddress:     c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx, "action": action})
}

func (s *Server) handleTransactionActions(c *gin.Context) {
	actions, err := s.txs.Actions(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}
