package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	refreshdomain "github.com/nomadlabs/atlas/internal/refresh/domain"
)

func (s *Server) RefreshCountries(c *gin.Context) {
	result, err := s.refreshSvc.Refresh(c.Request.Context(), refreshdomain.TriggerAPI)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"success":   result.Success,
			"processed": result.Processed,
			"failed":    len(result.Errors),
			"errors":    result.Errors,
		},
	})
}

func (s *Server) ListRefreshRuns(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
		limit = parsed
	}

	runs, err := s.refreshSvc.ListRuns(c.Request.Context(), refreshdomain.ListRunsRequest{Limit: limit})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs})
}
