package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/contractledger/internal/audit/domain"
	"github.com/smallbiznis/contractledger/internal/audit/masking"
	"github.com/smallbiznis/contractledger/internal/clock"
	"github.com/smallbiznis/contractledger/internal/orgcontext"
	"github.com/smallbiznis/contractledger/pkg/apperror"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"github.com/smallbiznis/contractledger/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var sensitiveKeys = []string{"bank_account_id"}

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) AuditLog(ctx context.Context, entry auditdomain.Entry) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return auditdomain.ErrInvalidOrganization
	}
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" || entry.TargetID == 0 {
		return auditdomain.ErrInvalidTarget
	}

	actorType := auditdomain.ActorTypeSystem
	if entry.ActorID != nil && *entry.ActorID != 0 {
		actorType = auditdomain.ActorTypeUser
	} else {
		entry.ActorID = nil
	}

	payload := masking.MaskKeys(entry.Metadata, sensitiveKeys...)
	if correlationID := correlation.ExtractCorrelationID(ctx); correlationID != "" {
		if payload == nil {
			payload = map[string]any{}
		}
		payload["correlation_id"] = correlationID
	}

	record := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		ActorType:  actorType,
		ActorID:    entry.ActorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   entry.TargetID,
		Metadata:   datatypes.JSONMap(payload),
		CreatedAt:  s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, &record); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return apperror.Persistence(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidOrganization
	}

	pageSize := pagination.NormalizeSize(req.PageSize)
	query := auditdomain.ListQuery{
		OrgID:      orgID,
		Action:     strings.TrimSpace(req.Action),
		TargetType: strings.TrimSpace(req.TargetType),
		From:       req.From,
		To:         req.To,
		Page:       pagination.Pagination{PageToken: req.PageToken, PageSize: pageSize},
	}
	var err error
	if query.TargetID, err = optionalID(req.TargetID, auditdomain.ErrInvalidTarget); err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}
	if query.ActorID, err = optionalID(req.ActorID, auditdomain.ErrInvalidActor); err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidRange
	}

	items, err := s.repo.List(ctx, query)
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, apperror.Persistence(err)
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *auditdomain.AuditLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	items = pagination.Trim(items, pageSize)

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	resp := auditdomain.ListAuditLogResponse{AuditLogs: logs}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func optionalID(raw string, invalid error) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return nil, invalid
	}
	return &id, nil
}
