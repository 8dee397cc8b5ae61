package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/panelquote/internal/governance/credential"
	governancedomain "github.com/smallbiznis/panelquote/internal/governance/domain"
	"github.com/smallbiznis/panelquote/pkg/db/pagination"
)

func (s *Server) ProposeCorrection(c *gin.Context) {
	var req governancedomain.ProposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	correction, err := s.governanceSvc.Propose(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": correction})
}

func (s *Server) ValidateCorrection(c *gin.Context) {
	correction, err := s.governanceSvc.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": correction})
}

type commitCorrectionRequest struct {
	Actor string `json:"actor"`
}

func (s *Server) CommitCorrection(c *gin.Context) {
	var body commitCorrectionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	correction, err := s.governanceSvc.Commit(c.Request.Context(), governancedomain.CommitRequest{
		ID:         c.Param("id"),
		Credential: strings.TrimSpace(c.GetHeader(credential.Header)),
		Actor:      strings.TrimSpace(body.Actor),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": correction})
}

type rejectCorrectionRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RejectCorrection(c *gin.Context) {
	var body rejectCorrectionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	correction, err := s.governanceSvc.Reject(c.Request.Context(), governancedomain.RejectRequest{
		ID:         c.Param("id"),
		Credential: strings.TrimSpace(c.GetHeader(credential.Header)),
		Reason:     strings.TrimSpace(body.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": correction})
}

func (s *Server) GetCorrection(c *gin.Context) {
	correction, err := s.governanceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": correction})
}

type listCorrectionsQuery struct {
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size"`
	Status     string `form:"status"`
	EntityType string `form:"entity_type"`
	EntityID   string `form:"entity_id"`
	Field      string `form:"field"`
}

func (s *Server) ListCorrections(c *gin.Context) {
	var query listCorrectionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.governanceSvc.List(c.Request.Context(), governancedomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Status:     strings.TrimSpace(query.Status),
		EntityType: strings.TrimSpace(query.EntityType),
		EntityID:   strings.TrimSpace(query.EntityID),
		Field:      strings.TrimSpace(query.Field),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Corrections, "page_info": resp.PageInfo})
}
