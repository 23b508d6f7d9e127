package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/contractledger/internal/audit/domain"
	"github.com/smallbiznis/contractledger/internal/clock"
	commissiondomain "github.com/smallbiznis/contractledger/internal/commission/domain"
	"github.com/smallbiznis/contractledger/internal/config"
	ledgerdomain "github.com/smallbiznis/contractledger/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/contractledger/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/contractledger/internal/observability/metrics"
	"github.com/smallbiznis/contractledger/internal/orgcontext"
	"github.com/smallbiznis/contractledger/internal/recurrence"
	"github.com/smallbiznis/contractledger/pkg/apperror"
	"github.com/smallbiznis/contractledger/pkg/db"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"github.com/smallbiznis/contractledger/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Engine     *config.EngineConfigHolder
	Repo       commissiondomain.Repository
	Ledger     ledgerdomain.Writer
	Notifier   notificationdomain.Notifier `optional:"true"`
	Audit      auditdomain.Service         `optional:"true"`
	ObsMetrics *obsmetrics.Metrics         `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	engine     *config.EngineConfigHolder
	repo       commissiondomain.Repository
	people     repository.Repository[commissiondomain.Salesperson]
	ledger     ledgerdomain.Writer
	notifier   notificationdomain.Notifier
	audit      auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) commissiondomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("commission.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		engine:     p.Engine,
		repo:       p.Repo,
		people:     repository.ProvideStore[commissiondomain.Salesperson](p.DB),
		ledger:     p.Ledger,
		notifier:   p.Notifier,
		audit:      p.Audit,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req commissiondomain.CreateCommissionRequest) (commissiondomain.CommissionRequest, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return commissiondomain.CommissionRequest{}, commissiondomain.ErrInvalidOrganization
	}
	salespersonID, err := snowflake.ParseString(strings.TrimSpace(req.SalespersonID))
	if err != nil || salespersonID == 0 {
		return commissiondomain.CommissionRequest{}, commissiondomain.ErrInvalidSalesperson
	}
	if req.Month < 1 || req.Month > 12 || req.Year < 1900 || req.Year > 9999 {
		return commissiondomain.CommissionRequest{}, apperror.Detail(commissiondomain.ErrInvalidPeriod, "%04d-%02d", req.Year, req.Month)
	}
	if req.SalesTotal.IsNegative() {
		return commissiondomain.CommissionRequest{}, commissiondomain.ErrInvalidSalesTotal
	}
	if req.CommissionPercent != nil {
		if err := validatePercent(*req.CommissionPercent); err != nil {
			return commissiondomain.CommissionRequest{}, err
		}
	}
	requestedBy, err := parseOptionalID(req.RequestedBy, "requested_by")
	if err != nil {
		return commissiondomain.CommissionRequest{}, err
	}

	now := s.clock.Now().UTC()
	var created commissiondomain.CommissionRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		person, err := s.people.WithTrx(tx).FindOne(ctx, &commissiondomain.Salesperson{ID: salespersonID, OrgID: orgID})
		if err != nil {
			return err
		}
		if person == nil {
			return commissiondomain.ErrSalespersonNotFound
		}

		existing, err := s.repo.FindByPeriod(ctx, tx, orgID, salespersonID, req.Year, req.Month)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Detail(commissiondomain.ErrCommissionExists, "%s already has request %s", existing.Period(), existing.ID)
		}

		pct := person.CommissionPercent
		if req.CommissionPercent != nil {
			pct = *req.CommissionPercent
		}
		created = commissiondomain.CommissionRequest{
			ID:                s.genID.Generate(),
			OrgID:             orgID,
			SalespersonID:     salespersonID,
			PeriodYear:        req.Year,
			PeriodMonth:       req.Month,
			SalesTotal:        req.SalesTotal.Round(2),
			CommissionPercent: pct,
			CommissionAmount:  commissionAmount(req.SalesTotal, pct),
			Status:            commissiondomain.StatusPending,
			RequestedBy:       requestedBy,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.repo.Insert(ctx, tx, &created); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return commissiondomain.ErrCommissionExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return commissiondomain.CommissionRequest{}, apperror.Persistence(err)
	}

	s.afterTransition(ctx, "", created, requestedBy, notificationdomain.Event{
		Kind:          notificationdomain.KindCommissionRequested,
		Title:         "Commission awaiting approval",
		Message:       fmt.Sprintf("Commission of %s for %s awaits approval.", created.CommissionAmount.StringFixed(2), created.Period()),
		TargetUserIDs: config.ParseIDs(s.engine.Get().Commission.ApproverUserIDs),
	})
	return created, nil
}

// Approve posts the payable for a pending request. Competency is the first
// day of the reference month and the due date is the approval day plus the
// configured number of days.
func (s *Service) Approve(ctx context.Context, req commissiondomain.ApproveRequest) (commissiondomain.CommissionRequest, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return commissiondomain.CommissionRequest{}, commissiondomain.ErrInvalidOrganization
	}
	id, err := parseRequestID(req.ID)
	if err != nil {
		return commissiondomain.CommissionRequest{}, err
	}
	approverID, err := parseOptionalID(req.ApproverID, "approver_id")
	if err != nil {
		return commissiondomain.CommissionRequest{}, err
	}

	cfg := s.engine.Get().Commission
	now := s.clock.Now().UTC()
	var approved commissiondomain.CommissionRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.lockPending(ctx, tx, orgID, id, "approve")
		if err != nil {
			return err
		}
		person, err := s.people.WithTrx(tx).FindOne(ctx, &commissiondomain.Salesperson{ID: found.SalespersonID, OrgID: orgID})
		if err != nil {
			return err
		}
		if person == nil {
			return commissiondomain.ErrSalespersonNotFound
		}
		if person.PayeeSupplierID == nil {
			return apperror.Detail(commissiondomain.ErrSalespersonWithoutPayee, "salesperson %s", person.ID)
		}

		approved = *found
		approved.Status = commissiondomain.StatusApproved
		approved.ApprovedBy = approverID
		approved.ApprovedAt = &now
		approved.UpdatedAt = now
		if err := s.decide(ctx, tx, &approved, commissiondomain.StatusPending, now); err != nil {
			return err
		}

		entry := &ledgerdomain.LedgerEntry{
			OrgID:             orgID,
			Direction:         ledgerdomain.DirectionPayable,
			SourceType:        ledgerdomain.SourceTypeCommission,
			SourceID:          approved.ID,
			Amount:            approved.CommissionAmount,
			DueDate:           recurrence.AddDays(now, cfg.DueDays),
			CompetencyDate:    recurrence.FirstOfMonth(approved.PeriodYear, time.Month(approved.PeriodMonth)),
			SupplierID:        person.PayeeSupplierID,
			AccountCategoryID: config.ParseOptionalID(cfg.AccountCategoryID),
			CostCenterID:      config.ParseOptionalID(cfg.CostCenterID),
			BankAccountID:     config.ParseOptionalID(cfg.BankAccountID),
			PaymentMethod:     cfg.PaymentMethod,
			Description:       fmt.Sprintf("Commission %s (%s)", person.Name, approved.Period()),
			Metadata: datatypes.JSONMap{
				"salesperson_id":     person.ID.String(),
				"period":             approved.Period(),
				"commission_percent": approved.CommissionPercent.String(),
			},
		}
		return s.ledger.PostTx(ctx, tx, []*ledgerdomain.LedgerEntry{entry})
	})
	if err != nil {
		return commissiondomain.CommissionRequest{}, apperror.Persistence(err)
	}

	s.afterTransition(ctx, commissiondomain.StatusPending, approved, approverID, notificationdomain.Event{
		Kind:          notificationdomain.KindCommissionApproved,
		Title:         "Commission approved",
		Message:       fmt.Sprintf("Commission of %s for %s was approved.", approved.CommissionAmount.StringFixed(2), approved.Period()),
		TargetUserIDs: requester(approved),
	})
	return approved, nil
}

func (s *Service) Reject(ctx context.Context, req commissiondomain.RejectRequest) (commissiondomain.CommissionRequest, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return commissiondomain.CommissionRequest{}, commissiondomain.ErrInvalidOrganization
	}
	id, err := parseRequestID(req.ID)
	if err != nil {
		return commissiondomain.CommissionRequest{}, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return commissiondomain.CommissionRequest{}, commissiondomain.ErrRejectionReasonRequired
	}
	rejectedBy, err := parseOptionalID(req.RejectedBy, "rejected_by")
	if err != nil {
		return commissiondomain.CommissionRequest{}, err
	}

	now := s.clock.Now().UTC()
	var rejected commissiondomain.CommissionRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.lockPending(ctx, tx, orgID, id, "reject")
		if err != nil {
			return err
		}
		rejected = *found
		rejected.Status = commissiondomain.StatusRejected
		rejected.RejectedBy = rejectedBy
		rejected.RejectedAt = &now
		rejected.RejectionReason = reason
		rejected.UpdatedAt = now
		return s.decide(ctx, tx, &rejected, commissiondomain.StatusPending, now)
	})
	if err != nil {
		return commissiondomain.CommissionRequest{}, apperror.Persistence(err)
	}

	s.afterTransition(ctx, commissiondomain.StatusPending, rejected, rejectedBy, notificationdomain.Event{
		Kind:          notificationdomain.KindCommissionRejected,
		Title:         "Commission rejected",
		Message:       fmt.Sprintf("Commission for %s was rejected: %s", rejected.Period(), reason),
		TargetUserIDs: requester(rejected),
	})
	return rejected, nil
}

// Revert returns an approved request to pending and deletes its payable.
func (s *Service) Revert(ctx context.Context, req commissiondomain.RevertRequest) (commissiondomain.CommissionRequest, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return commissiondomain.CommissionRequest{}, commissiondomain.ErrInvalidOrganization
	}
	id, err := parseRequestID(req.ID)
	if err != nil {
		return commissiondomain.CommissionRequest{}, err
	}
	actorID, err := parseOptionalID(req.ActorID, "actor_id")
	if err != nil {
		return commissiondomain.CommissionRequest{}, err
	}

	now := s.clock.Now().UTC()
	var reverted commissiondomain.CommissionRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if found == nil {
			return commissiondomain.ErrCommissionNotFound
		}
		if found.Status != commissiondomain.StatusApproved {
			return apperror.Detail(commissiondomain.ErrInvalidTransition, "cannot revert a %s request", found.Status)
		}

		source := ledgerdomain.Source{Type: ledgerdomain.SourceTypeCommission, ID: found.ID}
		entry, err := s.ledger.FindBySourceTx(ctx, tx, orgID, source)
		if err != nil {
			return err
		}
		if entry != nil && entry.Status == ledgerdomain.StatusSettled {
			return apperror.Detail(commissiondomain.ErrInvalidTransition, "commission payable already settled")
		}
		if _, err := s.ledger.RemoveBySourceTx(ctx, tx, orgID, source); err != nil {
			return err
		}

		reverted = *found
		reverted.Status = commissiondomain.StatusPending
		reverted.ApprovedBy = nil
		reverted.ApprovedAt = nil
		reverted.UpdatedAt = now
		return s.decide(ctx, tx, &reverted, commissiondomain.StatusApproved, now)
	})
	if err != nil {
		return commissiondomain.CommissionRequest{}, apperror.Persistence(err)
	}

	s.afterTransition(ctx, commissiondomain.StatusApproved, reverted, actorID, notificationdomain.Event{
		Kind:          notificationdomain.KindCommissionReverted,
		Title:         "Commission approval reverted",
		Message:       fmt.Sprintf("Approval of the commission for %s was reverted.", reverted.Period()),
		TargetUserIDs: requester(reverted),
	})
	return reverted, nil
}

func (s *Service) Get(ctx context.Context, id string) (commissiondomain.CommissionRequest, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return commissiondomain.CommissionRequest{}, commissiondomain.ErrInvalidOrganization
	}
	requestID, err := parseRequestID(id)
	if err != nil {
		return commissiondomain.CommissionRequest{}, err
	}
	found, err := s.repo.FindByID(ctx, s.db, orgID, requestID)
	if err != nil {
		return commissiondomain.CommissionRequest{}, apperror.Persistence(err)
	}
	if found == nil {
		return commissiondomain.CommissionRequest{}, commissiondomain.ErrCommissionNotFound
	}
	return *found, nil
}

func (s *Service) List(ctx context.Context, req commissiondomain.ListCommissionRequest) (commissiondomain.ListCommissionResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return commissiondomain.ListCommissionResponse{}, commissiondomain.ErrInvalidOrganization
	}

	filter := commissiondomain.ListFilter{Year: req.Year, Month: req.Month}
	if raw := strings.TrimSpace(req.SalespersonID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return commissiondomain.ListCommissionResponse{}, commissiondomain.ErrInvalidSalesperson
		}
		filter.SalespersonID = &id
	}
	if raw := strings.ToLower(strings.TrimSpace(req.Status)); raw != "" {
		filter.Status = commissiondomain.Status(raw)
		if !filter.Status.Valid() {
			return commissiondomain.ListCommissionResponse{}, commissiondomain.ErrInvalidStatus
		}
	}
	if req.Month < 0 || req.Month > 12 {
		return commissiondomain.ListCommissionResponse{}, commissiondomain.ErrInvalidPeriod
	}

	pageSize := pagination.NormalizeSize(req.PageSize)
	items, err := s.repo.List(ctx, s.db, orgID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return commissiondomain.ListCommissionResponse{}, apperror.Persistence(err)
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(r *commissiondomain.CommissionRequest) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: r.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	items = pagination.Trim(items, pageSize)

	resp := commissiondomain.ListCommissionResponse{Requests: make([]commissiondomain.CommissionRequest, 0, len(items))}
	for _, item := range items {
		resp.Requests = append(resp.Requests, *item)
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) lockPending(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID, action string) (*commissiondomain.CommissionRequest, error) {
	found, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, id)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, commissiondomain.ErrCommissionNotFound
	}
	if found.Status != commissiondomain.StatusPending {
		return nil, apperror.Detail(commissiondomain.ErrInvalidTransition, "cannot %s a %s request", action, found.Status)
	}
	return found, nil
}

func (s *Service) decide(ctx context.Context, tx *gorm.DB, req *commissiondomain.CommissionRequest, from commissiondomain.Status, now time.Time) error {
	updated, err := s.repo.UpdateDecision(ctx, tx, req, from, now)
	if err != nil {
		return err
	}
	if updated == 0 {
		return apperror.Detail(commissiondomain.ErrInvalidTransition, "request %s is no longer %s", req.ID, from)
	}
	return nil
}

// afterTransition runs the post-commit side effects. Failures are logged and
// never change the outcome of the transition.
func (s *Service) afterTransition(ctx context.Context, from commissiondomain.Status, req commissiondomain.CommissionRequest, actorID *snowflake.ID, event notificationdomain.Event) {
	s.obsMetrics.RecordCommissionTransition(ctx, string(from), string(req.Status))

	action := "commission.requested"
	if from != "" {
		action = "commission." + string(req.Status)
		if from == commissiondomain.StatusApproved {
			action = "commission.reverted"
		}
	}

	if s.audit != nil {
		metadata := map[string]any{
			"salesperson_id":    req.SalespersonID.String(),
			"period":            req.Period(),
			"commission_amount": req.CommissionAmount.String(),
		}
		if req.RejectionReason != "" && req.Status == commissiondomain.StatusRejected {
			metadata["reason"] = req.RejectionReason
		}
		if err := s.audit.AuditLog(ctx, auditdomain.Entry{
			ActorID:    actorID,
			Action:     action,
			TargetType: "commission_request",
			TargetID:   req.ID,
			Metadata:   metadata,
		}); err != nil {
			s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
		}
	}

	if s.notifier != nil && len(event.TargetUserIDs) > 0 {
		event.ReferenceType = "commission_request"
		event.ReferenceID = req.ID
		if err := s.notifier.Send(ctx, event); err != nil {
			s.log.Warn("notification failed", zap.String("kind", string(event.Kind)), zap.Error(err))
		}
	}

	s.log.Info("commission transitioned",
		zap.String("action", action),
		zap.String("request_id", req.ID.String()),
		zap.String("status", string(req.Status)),
	)
}

func commissionAmount(salesTotal, pct decimal.Decimal) decimal.Decimal {
	return salesTotal.Mul(pct).Div(hundred).Round(2)
}

func requester(req commissiondomain.CommissionRequest) []snowflake.ID {
	if req.RequestedBy == nil {
		return nil
	}
	return []snowflake.ID{*req.RequestedBy}
}

func parseRequestID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, commissiondomain.ErrCommissionNotFound
	}
	return id, nil
}
