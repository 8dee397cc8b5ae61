package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	quotationdomain "github.com/smallbiznis/panelquote/internal/quotation/domain"
)

func (s *Server) CreateQuotation(c *gin.Context) {
	var req quotationdomain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	q, err := s.quoteSvc.Assemble(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": q})
}

func (s *Server) GetQuotation(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	q, err := s.quoteSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": q})
}

func (s *Server) Requote(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	q, err := s.quoteSvc.Requote(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": q})
}
