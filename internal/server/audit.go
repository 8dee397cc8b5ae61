package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/panelquote/internal/audit/domain"
	"github.com/smallbiznis/panelquote/pkg/db/pagination"
)

type listAuditEntriesQuery struct {
	PageToken    string `form:"page_token"`
	PageSize     int    `form:"page_size"`
	CorrectionID string `form:"correction_id"`
	EntityType   string `form:"entity_type"`
	EntityID     string `form:"entity_id"`
	Field        string `form:"field"`
}

func (s *Server) ListAuditEntries(c *gin.Context) {
	var query listAuditEntriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		CorrectionID: strings.TrimSpace(query.CorrectionID),
		EntityType:   strings.TrimSpace(query.EntityType),
		EntityID:     strings.TrimSpace(query.EntityID),
		Field:        strings.TrimSpace(query.Field),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Entries, "page_info": resp.PageInfo})
}
