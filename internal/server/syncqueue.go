package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/syncq"
)

type addSyncBody struct {
	TransactionID string `json:"transactionId"`
	Action        string `json:"action"`
	Provider      string `json:"provider"`
	AccountCode   string `json:"accountCode"`
	Notes         string `json:"notes"`
	// EnqueueEligible queues every eligible accepted transaction instead of
	// one explicit transaction.
	EnqueueEligible bool `json:"enqueueEligible"`
}

func (s *Server) handleListSyncQueue(c *gin.Context) {
	status := constants.SyncStatus(c.DefaultQuery("status", string(constants.SyncPending)))

	items, err := s.syncs.List(c.Request.Context(), status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleAddSyncQueue(c *gin.Context) {
	var body addSyncBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if body.EnqueueEligible {
		items, err := s.syncs.EnqueueEligible(c.Request.Context(), body.Provider)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "queued": len(items)})
		return
	}

	item, err := s.syncs.Add(c.Request.Context(), syncq.AddRequest{
		TransactionID: body.TransactionID,
		Action:        body.Action,
		Provider:      body.Provider,
		AccountCode:   body.AccountCode,
		Notes:         body.Notes,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item})
}

func (s *Server) handleProcessSyncItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sync item id must be a UUID"})
		return
	}

	item, err := s.syncs.Process(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}
