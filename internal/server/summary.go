package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetSummary(c *gin.Context) {
	data, err := s.summarySvc.Read(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}
