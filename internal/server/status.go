package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetStatus(c *gin.Context) {
	status, err := s.statusSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}
