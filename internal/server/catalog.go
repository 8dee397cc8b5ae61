package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/panelquote/internal/apperror"
	catalogdomain "github.com/smallbiznis/panelquote/internal/catalog/domain"
)

type listCatalogItemsQuery struct {
	Category string `form:"category"`
	Q        string `form:"q"`
}

func (s *Server) ListCatalogItems(c *gin.Context) {
	var query listCatalogItemsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	category := catalogdomain.Category(strings.ToLower(strings.TrimSpace(query.Category)))
	switch category {
	case "", catalogdomain.CategoryPanel, catalogdomain.CategoryFastener, catalogdomain.CategoryAccessory:
	default:
		AbortWithError(c, newValidationError("category", "invalid_category", "invalid category"))
		return
	}

	items := s.store.Search(catalogdomain.SearchQuery{
		Category: category,
		Text:     query.Q,
	})
	c.JSON(http.StatusOK, gin.H{
		"data":             items,
		"snapshot_version": s.store.Snapshot().Version,
	})
}

func (s *Server) GetCatalogItem(c *gin.Context) {
	item, err := s.store.Lookup(c.Param("sku"))
	if err != nil {
		AbortWithError(c, apperror.New(apperror.CodeNotFound, "%s", apperror.ReasonOf(err)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

type reloadResponse struct {
	Version  int64     `json:"version"`
	Items    int       `json:"items"`
	Rules    int       `json:"rules"`
	Spans    int       `json:"spans"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (s *Server) ReloadCatalog(c *gin.Context) {
	snap, err := s.catalogSvc.Reload(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reloadResponse{
		Version:  snap.Version,
		Items:    len(snap.Items),
		Rules:    len(snap.Rules),
		Spans:    len(snap.Spans),
		LoadedAt: snap.LoadedAt,
	}})
}
