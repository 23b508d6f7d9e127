package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/contractledger/internal/audit/domain"
	"github.com/smallbiznis/contractledger/internal/clock"
	"github.com/smallbiznis/contractledger/internal/config"
	contractdomain "github.com/smallbiznis/contractledger/internal/contract/domain"
	installmentdomain "github.com/smallbiznis/contractledger/internal/installment/domain"
	ledgerdomain "github.com/smallbiznis/contractledger/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/contractledger/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/contractledger/internal/observability/metrics"
	"github.com/smallbiznis/contractledger/internal/orgcontext"
	"github.com/smallbiznis/contractledger/internal/recurrence"
	"github.com/smallbiznis/contractledger/pkg/apperror"
	"github.com/smallbiznis/contractledger/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Engine       *config.EngineConfigHolder
	Repo         installmentdomain.Repository
	ContractRepo contractdomain.Repository
	Ledger       ledgerdomain.Writer
	Notifier     notificationdomain.Notifier `optional:"true"`
	Audit        auditdomain.Service         `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics         `optional:"true"`
	PromMetric   *telemetry.Metrics          `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	engine       *config.EngineConfigHolder
	repo         installmentdomain.Repository
	contractRepo contractdomain.Repository
	ledger       ledgerdomain.Writer
	notifier     notificationdomain.Notifier
	audit        auditdomain.Service
	obsMetrics   *obsmetrics.Metrics
	promMetric   *telemetry.Metrics
}

func NewService(p Params) installmentdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("installment.service"),
		clock:        p.Clock,
		engine:       p.Engine,
		repo:         p.Repo,
		contractRepo: p.ContractRepo,
		ledger:       p.Ledger,
		notifier:     p.Notifier,
		audit:        p.Audit,
		obsMetrics:   p.ObsMetrics,
		promMetric:   p.PromMetric,
	}
}

// Complete moves a go-live installment from awaiting completion to pending.
// The due date becomes completion + offset days and exactly one ledger entry
// is posted with the completion date as competency.
func (s *Service) Complete(ctx context.Context, req installmentdomain.CompleteGoLiveRequest) (installmentdomain.Installment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return installmentdomain.Installment{}, installmentdomain.ErrInvalidOrganization
	}
	id, err := parseInstallmentID(req.InstallmentID)
	if err != nil {
		return installmentdomain.Installment{}, err
	}
	actorID := config.ParseOptionalID(req.ActorID)

	completion, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(req.CompletionDate), time.UTC)
	if err != nil {
		return installmentdomain.Installment{}, installmentdomain.ErrInvalidCompletionDate
	}
	offset := s.engine.Get().GoLive.OffsetDays
	if req.OffsetDays != nil {
		offset = *req.OffsetDays
	}
	if offset < 0 {
		return installmentdomain.Installment{}, installmentdomain.ErrInvalidOffsetDays
	}
	due := recurrence.AddDays(completion, offset)

	now := s.clock.Now().UTC()
	var inst installmentdomain.Installment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, contract, err := s.lockForTransition(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if found.Kind != installmentdomain.KindGoLive {
			return installmentdomain.ErrNotGoLive
		}
		if found.Status != installmentdomain.StatusAwaitingCompletion {
			return apperror.Detail(installmentdomain.ErrNotAwaitingCompletion, "installment is %s", found.Status)
		}
		if contract.Status != contractdomain.StatusActive {
			return installmentdomain.ErrContractInactive
		}

		inst = *found
		completedAt := completion
		inst.DueDate = &due
		inst.Status = installmentdomain.StatusPending
		inst.CompletedAt = &completedAt
		inst.UpdatedAt = now
		if err := s.repo.UpdateState(ctx, tx, &inst); err != nil {
			return err
		}

		entry := contract.LedgerEntry(inst, ledgerdomain.SourceTypeGoLiveCompletion, due, completion)
		return s.ledger.PostTx(ctx, tx, []*ledgerdomain.LedgerEntry{entry})
	})
	if err != nil {
		return installmentdomain.Installment{}, apperror.Persistence(err)
	}

	s.afterTransition(ctx, "complete", inst, actorID, notificationdomain.Event{
		Kind:    notificationdomain.KindGoLiveCompleted,
		Title:   "Go-live installment completed",
		Message: fmt.Sprintf("Installment %d of contract %s is due on %s (%s).", inst.Sequence, inst.ContractID, due.Format(time.DateOnly), inst.Amount.StringFixed(2)),
	})
	return inst, nil
}

// Revert puts a completed go-live installment back to awaiting completion and
// deletes its ledger entry. The due date set at completion is kept.
func (s *Service) Revert(ctx context.Context, req installmentdomain.TransitionRequest) (installmentdomain.Installment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return installmentdomain.Installment{}, installmentdomain.ErrInvalidOrganization
	}
	id, err := parseInstallmentID(req.InstallmentID)
	if err != nil {
		return installmentdomain.Installment{}, err
	}
	actorID := config.ParseOptionalID(req.ActorID)

	now := s.clock.Now().UTC()
	var inst installmentdomain.Installment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, _, err := s.lockForTransition(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if found.Kind != installmentdomain.KindGoLive {
			return installmentdomain.ErrNotGoLive
		}
		switch found.Status {
		case installmentdomain.StatusPending:
		case installmentdomain.StatusSettled:
			return installmentdomain.ErrInstallmentSettled
		default:
			return apperror.Detail(installmentdomain.ErrNotPending, "installment is %s", found.Status)
		}

		source := ledgerdomain.Source{Type: ledgerdomain.SourceTypeGoLiveCompletion, ID: found.ID}
		entry, err := s.ledger.FindBySourceTx(ctx, tx, orgID, source)
		if err != nil {
			return err
		}
		if entry != nil && entry.Status == ledgerdomain.StatusSettled {
			return installmentdomain.ErrInstallmentSettled
		}
		if _, err := s.ledger.RemoveBySourceTx(ctx, tx, orgID, source); err != nil {
			return err
		}

		inst = *found
		inst.Status = installmentdomain.StatusAwaitingCompletion
		inst.CompletedAt = nil
		inst.UpdatedAt = now
		return s.repo.UpdateState(ctx, tx, &inst)
	})
	if err != nil {
		return installmentdomain.Installment{}, apperror.Persistence(err)
	}

	s.afterTransition(ctx, "revert", inst, actorID, notificationdomain.Event{
		Kind:    notificationdomain.KindGoLiveReverted,
		Title:   "Go-live completion reverted",
		Message: fmt.Sprintf("Installment %d of contract %s is awaiting go-live again.", inst.Sequence, inst.ContractID),
	})
	return inst, nil
}

// Settle marks a pending installment and its ledger entry settled.
func (s *Service) Settle(ctx context.Context, req installmentdomain.TransitionRequest) (installmentdomain.Installment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return installmentdomain.Installment{}, installmentdomain.ErrInvalidOrganization
	}
	id, err := parseInstallmentID(req.InstallmentID)
	if err != nil {
		return installmentdomain.Installment{}, err
	}
	actorID := config.ParseOptionalID(req.ActorID)

	now := s.clock.Now().UTC()
	var inst installmentdomain.Installment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, _, err := s.lockForTransition(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if found.Status != installmentdomain.StatusPending {
			return apperror.Detail(installmentdomain.ErrNotPending, "installment is %s", found.Status)
		}

		sourceType := ledgerdomain.SourceTypeInstallment
		if found.Kind == installmentdomain.KindGoLive {
			sourceType = ledgerdomain.SourceTypeGoLiveCompletion
		}
		if err := s.ledger.SettleBySourceTx(ctx, tx, orgID, ledgerdomain.Source{Type: sourceType, ID: found.ID}); err != nil {
			return err
		}

		inst = *found
		inst.Status = installmentdomain.StatusSettled
		inst.UpdatedAt = now
		return s.repo.UpdateState(ctx, tx, &inst)
	})
	if err != nil {
		return installmentdomain.Installment{}, apperror.Persistence(err)
	}

	s.afterTransition(ctx, "settle", inst, actorID, notificationdomain.Event{})
	return inst, nil
}

func (s *Service) Get(ctx context.Context, id string) (installmentdomain.Installment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return installmentdomain.Installment{}, installmentdomain.ErrInvalidOrganization
	}
	installmentID, err := parseInstallmentID(id)
	if err != nil {
		return installmentdomain.Installment{}, err
	}
	inst, err := s.repo.FindByID(ctx, s.db, orgID, installmentID)
	if err != nil {
		return installmentdomain.Installment{}, apperror.Persistence(err)
	}
	if inst == nil {
		return installmentdomain.Installment{}, installmentdomain.ErrInstallmentNotFound
	}
	return *inst, nil
}

func (s *Service) ListByContract(ctx context.Context, contractID string) ([]installmentdomain.Installment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, installmentdomain.ErrInvalidOrganization
	}
	id, err := snowflake.ParseString(strings.TrimSpace(contractID))
	if err != nil {
		return nil, contractdomain.ErrContractNotFound
	}
	contract, err := s.contractRepo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if contract == nil {
		return nil, contractdomain.ErrContractNotFound
	}

	items, err := s.repo.ListByContract(ctx, s.db, orgID, id)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	out := make([]installmentdomain.Installment, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

// afterTransition runs the post-commit side effects. Failures are logged and
// never change the outcome of the transition.
func (s *Service) afterTransition(ctx context.Context, action string, inst installmentdomain.Installment, actorID *snowflake.ID, event notificationdomain.Event) {
	s.obsMetrics.RecordGoLiveTransition(ctx, action)
	if orgID, ok := orgcontext.OrgIDFromContext(ctx); ok && s.promMetric != nil {
		if count, err := s.repo.CountAwaiting(ctx, s.db, orgID); err == nil {
			s.promMetric.SetAwaitingGoLives(float64(count))
		}
	}

	if s.audit != nil {
		metadata := map[string]any{
			"contract_id": inst.ContractID.String(),
			"status":      string(inst.Status),
		}
		if inst.DueDate != nil {
			metadata["due_date"] = inst.DueDate.Format(time.DateOnly)
		}
		if err := s.audit.AuditLog(ctx, auditdomain.Entry{
			ActorID:    actorID,
			Action:     "installment." + action,
			TargetType: "installment",
			TargetID:   inst.ID,
			Metadata:   metadata,
		}); err != nil {
			s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
		}
	}

	if s.notifier != nil && event.Kind != "" {
		event.ReferenceType = "installment"
		event.ReferenceID = inst.ID
		event.TargetUserIDs = config.ParseIDs(s.engine.Get().GoLive.NotifyUserIDs)
		if err := s.notifier.Send(ctx, event); err != nil {
			s.log.Warn("notification failed", zap.String("kind", string(event.Kind)), zap.Error(err))
		}
	}

	s.log.Info("installment transitioned",
		zap.String("action", action),
		zap.String("installment_id", inst.ID.String()),
		zap.String("status", string(inst.Status)),
	)
}

// lockForTransition locks the owning contract row before the installment,
// the same order contract updates use, and re-reads the installment under
// that lock. An installment dropped by a concurrent schedule regeneration
// is reported as not found.
func (s *Service) lockForTransition(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*installmentdomain.Installment, *contractdomain.Contract, error) {
	current, err := s.repo.FindByID(ctx, tx, orgID, id)
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		return nil, nil, installmentdomain.ErrInstallmentNotFound
	}

	contract, err := s.contractRepo.FindByIDForUpdate(ctx, tx, orgID, current.ContractID)
	if err != nil {
		return nil, nil, err
	}
	if contract == nil {
		return nil, nil, installmentdomain.ErrInstallmentNotFound
	}

	found, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, id)
	if err != nil {
		return nil, nil, err
	}
	if found == nil || found.ContractID != contract.ID {
		return nil, nil, installmentdomain.ErrInstallmentNotFound
	}
	return found, contract, nil
}

func parseInstallmentID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, installmentdomain.ErrInstallmentNotFound
	}
	return id, nil
}
