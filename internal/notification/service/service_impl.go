package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/internal/clock"
	"github.com/smallbiznis/contractledger/internal/config"
	notificationdomain "github.com/smallbiznis/contractledger/internal/notification/domain"
	"github.com/smallbiznis/contractledger/internal/orgcontext"
	"github.com/smallbiznis/contractledger/internal/providers/slack"
	"github.com/smallbiznis/contractledger/pkg/apperror"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Cfg   config.Config
	Repo  notificationdomain.Repository
	Slack slack.Provider `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         notificationdomain.Repository
	slack        slack.Provider
	slackChannel string
}

func NewService(p Params) notificationdomain.Service {
	provider := p.Slack
	if provider == nil {
		provider = slack.NewDiscard(p.Log)
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("notification.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		slack:        provider,
		slackChannel: strings.TrimSpace(p.Cfg.SlackChannelID),
	}
}

// Send stores one notification per distinct target user and mirrors the event
// to slack when a channel is configured. Slack failures are logged only.
func (s *Service) Send(ctx context.Context, event notificationdomain.Event) error {
	if event.OrgID == 0 {
		orgID, ok := orgcontext.OrgIDFromContext(ctx)
		if !ok {
			return notificationdomain.ErrInvalidOrganization
		}
		event.OrgID = orgID
	}
	if event.Kind == "" || strings.TrimSpace(event.Title) == "" {
		return notificationdomain.ErrInvalidEvent
	}

	now := s.clock.Now().UTC()
	seen := make(map[snowflake.ID]struct{}, len(event.TargetUserIDs))
	items := make([]*notificationdomain.Notification, 0, len(event.TargetUserIDs))
	for _, userID := range event.TargetUserIDs {
		if userID == 0 {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		items = append(items, &notificationdomain.Notification{
			ID:            s.genID.Generate(),
			OrgID:         event.OrgID,
			TargetUserID:  userID,
			Title:         strings.TrimSpace(event.Title),
			Message:       event.Message,
			Kind:          event.Kind,
			ReferenceType: event.ReferenceType,
			ReferenceID:   event.ReferenceID,
			CreatedAt:     now,
		})
	}

	if err := s.repo.InsertBatch(ctx, s.db, items); err != nil {
		return apperror.Persistence(err)
	}

	if s.slackChannel != "" {
		text := fmt.Sprintf("*%s*\n%s", strings.TrimSpace(event.Title), event.Message)
		if err := s.slack.PostMessage(ctx, s.slackChannel, text); err != nil {
			s.log.Warn("slack mirror failed",
				zap.String("kind", string(event.Kind)),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, req notificationdomain.ListNotificationRequest) (notificationdomain.ListNotificationResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return notificationdomain.ListNotificationResponse{}, notificationdomain.ErrInvalidOrganization
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		return notificationdomain.ListNotificationResponse{}, notificationdomain.ErrInvalidUser
	}

	pageSize := pagination.NormalizeSize(req.PageSize)
	items, err := s.repo.ListByUser(ctx, s.db, orgID, userID, req.UnreadOnly, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return notificationdomain.ListNotificationResponse{}, apperror.Persistence(err)
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *notificationdomain.Notification) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	items = pagination.Trim(items, pageSize)

	out := make([]notificationdomain.Notification, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	resp := notificationdomain.ListNotificationResponse{Notifications: out}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) MarkRead(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return notificationdomain.ErrInvalidOrganization
	}
	notificationID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return notificationdomain.ErrNotificationNotFound
	}

	updated, err := s.repo.MarkRead(ctx, s.db, orgID, notificationID, s.clock.Now().UTC())
	if err != nil {
		return apperror.Persistence(err)
	}
	if updated > 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&notificationdomain.Notification{}).
		Where("org_id = ? AND id = ?", orgID, notificationID).
		Count(&count).Error; err != nil {
		return apperror.Persistence(err)
	}
	if count == 0 {
		return notificationdomain.ErrNotificationNotFound
	}
	return nil
}
