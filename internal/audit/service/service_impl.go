package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/panelquote/internal/apperror"
	auditdomain "github.com/smallbiznis/panelquote/internal/audit/domain"
	"github.com/smallbiznis/panelquote/pkg/db/pagination"
	"github.com/smallbiznis/panelquote/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Append(ctx context.Context, tx *gorm.DB, req auditdomain.AppendRequest) (*auditdomain.AuditEntry, error) {
	correctionID := strings.TrimSpace(req.CorrectionID)
	if correctionID == "" {
		return nil, apperror.InputValidation("audit entry requires a correction id")
	}
	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		return nil, apperror.InputValidation("audit entry requires an actor")
	}
	committedAt := req.CommittedAt
	if committedAt.IsZero() {
		committedAt = time.Now()
	}

	payload := map[string]any{}
	for key, value := range req.Metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := correlation.ExtractCorrelationID(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	entry := &auditdomain.AuditEntry{
		ID:           s.genID.Generate(),
		CorrectionID: correctionID,
		EntityType:   string(req.Target.EntityType),
		EntityID:     req.Target.EntityID,
		Field:        req.Target.Field,
		Before:       req.Before,
		After:        req.After,
		Actor:        actor,
		CommittedAt:  committedAt.UTC(),
	}
	if len(payload) > 0 {
		entry.Metadata = datatypes.JSONMap(payload)
	}

	if tx == nil {
		tx = s.db
	}
	if err := s.repo.Insert(ctx, tx, entry); err != nil {
		s.log.Warn("failed to append audit entry",
			zap.String("correction_id", correctionID),
			zap.String("target", req.Target.Key()),
			zap.Error(err),
		)
		return nil, err
	}
	return entry, nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	var cursor *auditdomain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return auditdomain.ListResponse{}, apperror.InputValidation("invalid page token")
		}
		committedAt, err := decoded.Time()
		if err != nil {
			return auditdomain.ListResponse{}, apperror.InputValidation("invalid page token")
		}
		id, err := strconv.ParseInt(decoded.ID, 10, 64)
		if err != nil || id == 0 {
			return auditdomain.ListResponse{}, apperror.InputValidation("invalid page token")
		}
		cursor = &auditdomain.Cursor{ID: id, CommittedAt: committedAt}
	}

	pageSize := req.Size()
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		CorrectionID: req.CorrectionID,
		EntityType:   req.EntityType,
		EntityID:     req.EntityID,
		Field:        req.Field,
		Cursor:       cursor,
		Limit:        pageSize,
	})
	if err != nil {
		return auditdomain.ListResponse{}, apperror.Persistence(err, "failed to list audit entries")
	}

	items, pageInfo := pagination.Trim(items, pageSize, func(item *auditdomain.AuditEntry) pagination.Cursor {
		return pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CommittedAt.UTC().Format(time.RFC3339Nano),
		}
	})

	entries := make([]auditdomain.AuditEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}
	return auditdomain.ListResponse{PageInfo: pageInfo, Entries: entries}, nil
}
