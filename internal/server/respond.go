package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/prompt"
)

// writeError maps domain errors onto HTTP statuses. Unknown errors are
// reported as internal without leaking detail to the caller.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrUnsupportedFile),
		errors.Is(err, common.ErrMissingSecondary),
		errors.Is(err, prompt.ErrPromptTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrReconnectRequired):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.log.Error("http.internal_error",
			"req_id", common.RequestIDFromContext(c.Request.Context()),
			"path", c.Request.URL.Path,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
