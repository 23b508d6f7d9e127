package service

import (
	"context"
	"errors"
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
	"github.com/smallbiznis/contractledger/internal/lock"
	obsmetrics "github.com/smallbiznis/contractledger/internal/observability/metrics"
	"github.com/smallbiznis/contractledger/internal/orgcontext"
	"github.com/smallbiznis/contractledger/pkg/apperror"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"github.com/smallbiznis/contractledger/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockTTL = 30 * time.Second

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Engine          *config.EngineConfigHolder
	Repo            contractdomain.Repository
	InstallmentRepo installmentdomain.Repository
	Ledger          ledgerdomain.Writer
	Locker          lock.Locker
	Audit           auditdomain.Service `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics `optional:"true"`
	PromMetric      *telemetry.Metrics  `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	engine          *config.EngineConfigHolder
	repo            contractdomain.Repository
	installmentRepo installmentdomain.Repository
	ledger          ledgerdomain.Writer
	locker          lock.Locker
	audit           auditdomain.Service
	obsMetrics      *obsmetrics.Metrics
	promMetric      *telemetry.Metrics
}

func NewService(p Params) contractdomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("contract.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		engine:          p.Engine,
		repo:            p.Repo,
		installmentRepo: p.InstallmentRepo,
		ledger:          p.Ledger,
		locker:          p.Locker,
		audit:           p.Audit,
		obsMetrics:      p.ObsMetrics,
		promMetric:      p.PromMetric,
	}
}

func (s *Service) Create(ctx context.Context, req contractdomain.SaveContractRequest) (contractdomain.ContractAggregate, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return contractdomain.ContractAggregate{}, contractdomain.ErrInvalidOrganization
	}
	actorID, err := parseID(req.ActorID, "actor_id")
	if err != nil {
		return contractdomain.ContractAggregate{}, err
	}

	d, err := buildDraft(orgID, req, s.engine.Get())
	if err != nil {
		return contractdomain.ContractAggregate{}, err
	}

	now := s.clock.Now().UTC()
	contract := d.contract
	contract.ID = s.genID.Generate()
	contract.Status = contractdomain.StatusActive
	contract.Version = 1
	contract.CreatedAt = now
	contract.UpdatedAt = now

	var agg contractdomain.ContractAggregate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &contract); err != nil {
			return err
		}
		agg, err = s.writeChildren(ctx, tx, contract, d, now)
		return err
	})
	if err != nil {
		return contractdomain.ContractAggregate{}, apperror.Persistence(err)
	}

	s.afterWrite(ctx, "create", agg, actorID)
	return agg, nil
}

func (s *Service) Update(ctx context.Context, req contractdomain.UpdateContractRequest) (contractdomain.ContractAggregate, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return contractdomain.ContractAggregate{}, contractdomain.ErrInvalidOrganization
	}
	contractID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || contractID == 0 {
		return contractdomain.ContractAggregate{}, contractdomain.ErrInvalidID
	}
	if req.ExpectedVersion <= 0 {
		return contractdomain.ContractAggregate{}, contractdomain.ErrInvalidVersion
	}
	actorID, err := parseID(req.ActorID, "actor_id")
	if err != nil {
		return contractdomain.ContractAggregate{}, err
	}

	d, err := buildDraft(orgID, req.SaveContractRequest, s.engine.Get())
	if err != nil {
		return contractdomain.ContractAggregate{}, err
	}

	lockKey := contractLockKey(orgID, contractID)
	token, acquired, err := s.locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		return contractdomain.ContractAggregate{}, apperror.Persistence(err)
	}
	if !acquired {
		return contractdomain.ContractAggregate{}, contractdomain.ErrContractLocked
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
			s.log.Warn("failed to release contract lock", zap.String("contract_id", contractID.String()), zap.Error(err))
		}
	}()

	now := s.clock.Now().UTC()
	var agg contractdomain.ContractAggregate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, contractID)
		if err != nil {
			return err
		}
		if existing == nil {
			return contractdomain.ErrContractNotFound
		}
		if existing.Version != req.ExpectedVersion {
			return apperror.Detail(contractdomain.ErrStaleVersion, "expected version %d, current %d", req.ExpectedVersion, existing.Version)
		}

		if _, err := s.ledger.RemoveByContractTx(ctx, tx, orgID, contractID); err != nil {
			return err
		}
		if _, err := s.installmentRepo.DeleteByContract(ctx, tx, orgID, contractID); err != nil {
			return err
		}
		if _, err := s.repo.DeleteItems(ctx, tx, orgID, contractID); err != nil {
			return err
		}

		contract := d.contract
		contract.ID = contractID
		contract.Status = existing.Status
		contract.CreatedAt = existing.CreatedAt
		contract.UpdatedAt = now
		updated, err := s.repo.UpdateTerms(ctx, tx, &contract, req.ExpectedVersion)
		if err != nil {
			return err
		}
		if updated == 0 {
			return contractdomain.ErrStaleVersion
		}

		agg, err = s.writeChildren(ctx, tx, contract, d, now)
		return err
	})
	if err != nil {
		return contractdomain.ContractAggregate{}, apperror.Persistence(err)
	}

	s.afterWrite(ctx, "update", agg, actorID)
	return agg, nil
}

// writeChildren inserts items, installments and one ledger entry per dated
// installment, in that order.
func (s *Service) writeChildren(ctx context.Context, tx *gorm.DB, contract contractdomain.Contract, d draft, now time.Time) (contractdomain.ContractAggregate, error) {
	items := make([]*contractdomain.ContractItem, 0, len(d.items))
	for i := range d.items {
		item := d.items[i]
		item.ID = s.genID.Generate()
		item.OrgID = contract.OrgID
		item.ContractID = contract.ID
		item.CreatedAt = now
		items = append(items, &item)
	}
	if err := s.repo.InsertItems(ctx, tx, items); err != nil {
		return contractdomain.ContractAggregate{}, err
	}

	installments := make([]*installmentdomain.Installment, 0, len(d.installments))
	for i := range d.installments {
		inst := d.installments[i]
		inst.ID = s.genID.Generate()
		inst.OrgID = contract.OrgID
		inst.ContractID = contract.ID
		inst.CreatedAt = now
		inst.UpdatedAt = now
		installments = append(installments, &inst)
	}
	if err := s.installmentRepo.InsertBatch(ctx, tx, installments); err != nil {
		return contractdomain.ContractAggregate{}, err
	}

	entries := make([]*ledgerdomain.LedgerEntry, 0, len(installments))
	for _, inst := range installments {
		if inst.Deferred() || inst.DueDate == nil {
			continue
		}
		entries = append(entries, contract.LedgerEntry(*inst, ledgerdomain.SourceTypeInstallment, *inst.DueDate, *inst.DueDate))
	}
	if err := s.ledger.PostTx(ctx, tx, entries); err != nil {
		return contractdomain.ContractAggregate{}, err
	}

	return contractdomain.ContractAggregate{
		Contract:     contract,
		Items:        derefAll(items),
		Installments: derefAll(installments),
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (contractdomain.ContractAggregate, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return contractdomain.ContractAggregate{}, contractdomain.ErrInvalidOrganization
	}
	contractID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return contractdomain.ContractAggregate{}, contractdomain.ErrContractNotFound
	}

	contract, err := s.repo.FindByID(ctx, s.db, orgID, contractID)
	if err != nil {
		return contractdomain.ContractAggregate{}, apperror.Persistence(err)
	}
	if contract == nil {
		return contractdomain.ContractAggregate{}, contractdomain.ErrContractNotFound
	}
	items, err := s.repo.ListItems(ctx, s.db, orgID, contractID)
	if err != nil {
		return contractdomain.ContractAggregate{}, apperror.Persistence(err)
	}
	installments, err := s.installmentRepo.ListByContract(ctx, s.db, orgID, contractID)
	if err != nil {
		return contractdomain.ContractAggregate{}, apperror.Persistence(err)
	}

	return contractdomain.ContractAggregate{
		Contract:     *contract,
		Items:        derefAll(items),
		Installments: derefAll(installments),
	}, nil
}

func (s *Service) List(ctx context.Context, req contractdomain.ListContractRequest) (contractdomain.ListContractResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return contractdomain.ListContractResponse{}, contractdomain.ErrInvalidOrganization
	}

	filter := contractdomain.ListFilter{}
	if raw := strings.ToLower(strings.TrimSpace(req.Kind)); raw != "" {
		filter.Kind = contractdomain.Kind(raw)
		if !filter.Kind.Valid() {
			return contractdomain.ListContractResponse{}, contractdomain.ErrInvalidKind
		}
	}
	if raw := strings.ToLower(strings.TrimSpace(req.Status)); raw != "" {
		filter.Status = contractdomain.Status(raw)
		if !filter.Status.Valid() {
			return contractdomain.ListContractResponse{}, contractdomain.ErrInvalidStatus
		}
	}
	var err error
	if filter.ClientID, err = parseID(req.ClientID, "client_id"); err != nil {
		return contractdomain.ListContractResponse{}, err
	}
	if filter.SupplierID, err = parseID(req.SupplierID, "supplier_id"); err != nil {
		return contractdomain.ListContractResponse{}, err
	}
	if filter.CostCenterID, err = parseID(req.CostCenterID, "cost_center_id"); err != nil {
		return contractdomain.ListContractResponse{}, err
	}

	pageSize := pagination.NormalizeSize(req.PageSize)
	items, err := s.repo.List(ctx, s.db, orgID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return contractdomain.ListContractResponse{}, apperror.Persistence(err)
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(c *contractdomain.Contract) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: c.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	items = pagination.Trim(items, pageSize)

	resp := contractdomain.ListContractResponse{Contracts: derefAll(items)}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) SetStatus(ctx context.Context, req contractdomain.SetStatusRequest) (contractdomain.Contract, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return contractdomain.Contract{}, contractdomain.ErrInvalidOrganization
	}
	contractID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || contractID == 0 {
		return contractdomain.Contract{}, contractdomain.ErrInvalidID
	}
	status := contractdomain.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		return contractdomain.Contract{}, contractdomain.ErrInvalidStatus
	}
	actorID, err := parseID(req.ActorID, "actor_id")
	if err != nil {
		return contractdomain.Contract{}, err
	}

	now := s.clock.Now().UTC()
	var contract contractdomain.Contract
	var changed bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByIDForUpdate(ctx, tx, orgID, contractID)
		if err != nil {
			return err
		}
		if existing == nil {
			return contractdomain.ErrContractNotFound
		}
		contract = *existing
		if existing.Status == status {
			return nil
		}
		if _, err := s.repo.UpdateStatus(ctx, tx, orgID, contractID, status, now); err != nil {
			return err
		}
		contract.Status = status
		contract.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		return contractdomain.Contract{}, apperror.Persistence(err)
	}

	if changed {
		s.recordAudit(ctx, actorID, "contract.status_changed", contractID, map[string]any{
			"status": string(status),
		})
		s.obsMetrics.RecordContractWrite(ctx, "status", string(contract.Kind))
	}
	return contract, nil
}

func (s *Service) Preview(ctx context.Context, req contractdomain.SaveContractRequest) (contractdomain.Preview, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return contractdomain.Preview{}, contractdomain.ErrInvalidOrganization
	}
	d, err := buildDraft(orgID, req, s.engine.Get())
	if err != nil {
		return contractdomain.Preview{}, err
	}
	return contractdomain.Preview{
		GrossValue:      d.value.Gross,
		DiscountPercent: d.value.DiscountPercent,
		DiscountAmount:  d.value.DiscountAmount,
		TaxAmount:       d.value.TaxAmount,
		NetValue:        d.value.Net,
		Installments:    d.installments,
	}, nil
}

func (s *Service) afterWrite(ctx context.Context, operation string, agg contractdomain.ContractAggregate, actorID *snowflake.ID) {
	kind := string(agg.Contract.Kind)
	s.obsMetrics.RecordContractWrite(ctx, operation, kind)
	s.obsMetrics.RecordInstallmentsPlanned(ctx, kind, len(agg.Installments))
	s.promMetric.ObserveContractValue(kind, agg.Contract.NetValue.InexactFloat64())

	s.recordAudit(ctx, actorID, "contract."+operation+"d", agg.Contract.ID, map[string]any{
		"version":         agg.Contract.Version,
		"net_value":       agg.Contract.NetValue.String(),
		"installments":    len(agg.Installments),
		"bank_account_id": agg.Contract.BankAccountID.String(),
	})
	s.log.Info("contract written",
		zap.String("operation", operation),
		zap.String("contract_id", agg.Contract.ID.String()),
		zap.Int64("version", agg.Contract.Version),
		zap.Int("installments", len(agg.Installments)),
	)
}

func (s *Service) recordAudit(ctx context.Context, actorID *snowflake.ID, action string, contractID snowflake.ID, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.AuditLog(ctx, auditdomain.Entry{
		ActorID:    actorID,
		Action:     action,
		TargetType: "contract",
		TargetID:   contractID,
		Metadata:   metadata,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func contractLockKey(orgID, contractID snowflake.ID) string {
	return fmt.Sprintf("contractledger:contract:%d:%d", orgID, contractID)
}

func derefAll[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}
