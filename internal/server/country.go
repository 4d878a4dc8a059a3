package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	countrydomain "github.com/nomadlabs/atlas/internal/country/domain"
)

func (s *Server) ListCountries(c *gin.Context) {
	pageSize := 0
	if raw := strings.TrimSpace(c.Query("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid page size"))
			return
		}
		pageSize = parsed
	}

	resp, err := s.countrySvc.List(c.Request.Context(), countrydomain.ListCountriesRequest{
		Region:       strings.TrimSpace(c.Query("region")),
		CurrencyCode: strings.TrimSpace(c.Query("currency")),
		Sort:         strings.TrimSpace(c.Query("sort")),
		PageToken:    strings.TrimSpace(c.Query("page_token")),
		PageSize:     pageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":            resp.Countries,
		"next_page_token": resp.NextPageToken,
		"has_more":        resp.HasMore,
	})
}

func (s *Server) GetCountry(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		AbortWithError(c, newValidationError("name", "invalid_name", "invalid name"))
		return
	}

	country, err := s.countrySvc.GetByName(c.Request.Context(), countrydomain.GetCountryRequest{Name: name})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": country})
}

func (s *Server) DeleteCountry(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		AbortWithError(c, newValidationError("name", "invalid_name", "invalid name"))
		return
	}

	err := s.countrySvc.DeleteByName(c.Request.Context(), countrydomain.DeleteCountryRequest{Name: name})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
