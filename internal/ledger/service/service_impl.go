package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/internal/clock"
	ledgerdomain "github.com/smallbiznis/contractledger/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/contractledger/internal/observability/metrics"
	"github.com/smallbiznis/contractledger/internal/orgcontext"
	"github.com/smallbiznis/contractledger/pkg/apperror"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"github.com/smallbiznis/contractledger/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       ledgerdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
	PromMetric *telemetry.Metrics  `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       ledgerdomain.Repository
	obsMetrics *obsmetrics.Metrics
	promMetric *telemetry.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
		promMetric: p.PromMetric,
	}
}

// PostTx validates and writes entries inside tx. IDs, timestamps and the
// pending status are filled in when missing. An entry whose source already
// has one is skipped.
func (s *Service) PostTx(ctx context.Context, tx *gorm.DB, entries []*ledgerdomain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	now := s.clock.Now().UTC()
	for _, entry := range entries {
		if err := s.normalize(entry, now); err != nil {
			return err
		}
	}

	inserted, err := s.repo.Insert(ctx, tx, entries)
	if err != nil {
		return err
	}
	written := entries
	if inserted < int64(len(entries)) {
		s.log.Warn("ledger entries skipped for existing source",
			zap.Int("requested", len(entries)),
			zap.Int64("inserted", inserted),
		)
		if written, err = s.writtenEntries(ctx, tx, entries, inserted); err != nil {
			return err
		}
	}

	for _, entry := range written {
		s.obsMetrics.RecordLedgerEntry(ctx, string(entry.SourceType), string(entry.Direction), 1)
		s.promMetric.AddLedgerAmount(string(entry.Direction), string(entry.SourceType), entry.Amount.InexactFloat64())
	}
	return nil
}

// writtenEntries narrows entries to the ones Insert actually stored. A
// skipped entry keeps the id it was given, which no stored row carries.
func (s *Service) writtenEntries(ctx context.Context, tx *gorm.DB, entries []*ledgerdomain.LedgerEntry, inserted int64) ([]*ledgerdomain.LedgerEntry, error) {
	if inserted <= 0 {
		return nil, nil
	}
	ids := make([]snowflake.ID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	stored, err := s.repo.ExistingIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*ledgerdomain.LedgerEntry, 0, len(stored))
	for _, entry := range entries {
		if _, ok := stored[entry.ID]; ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *Service) RemoveBySourceTx(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, source ledgerdomain.Source) (int64, error) {
	if orgID == 0 {
		return 0, ledgerdomain.ErrInvalidOrganization
	}
	if source.ID == 0 {
		return 0, ledgerdomain.ErrInvalidSourceID
	}
	removed, err := s.repo.DeleteBySource(ctx, tx, orgID, source)
	if err != nil {
		return 0, err
	}
	s.obsMetrics.RecordLedgerRemoval(ctx, string(source.Type), removed)
	return removed, nil
}

func (s *Service) RemoveByContractTx(ctx context.Context, tx *gorm.DB, orgID, contractID snowflake.ID) (int64, error) {
	if orgID == 0 {
		return 0, ledgerdomain.ErrInvalidOrganization
	}
	removed, err := s.repo.DeleteByContract(ctx, tx, orgID, contractID)
	if err != nil {
		return 0, err
	}
	s.obsMetrics.RecordLedgerRemoval(ctx, "contract", removed)
	return removed, nil
}

func (s *Service) SettleBySourceTx(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, source ledgerdomain.Source) error {
	entry, err := s.repo.FindBySource(ctx, tx, orgID, source)
	if err != nil {
		return err
	}
	if entry == nil {
		return ledgerdomain.ErrEntryNotFound
	}
	if entry.Status == ledgerdomain.StatusSettled {
		return nil
	}
	return s.repo.UpdateStatus(ctx, tx, orgID, entry.ID, ledgerdomain.StatusSettled, s.clock.Now().UTC())
}

// FindBySourceTx returns nil when source has no entry.
func (s *Service) FindBySourceTx(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, source ledgerdomain.Source) (*ledgerdomain.LedgerEntry, error) {
	if orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	return s.repo.FindBySource(ctx, tx, orgID, source)
}

func (s *Service) List(ctx context.Context, req ledgerdomain.ListEntriesRequest) (ledgerdomain.ListEntriesResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return ledgerdomain.ListEntriesResponse{}, ledgerdomain.ErrInvalidOrganization
	}

	filter, err := parseFilter(req)
	if err != nil {
		return ledgerdomain.ListEntriesResponse{}, err
	}

	pageSize := pagination.NormalizeSize(req.PageSize)
	items, err := s.repo.List(ctx, s.db, orgID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return ledgerdomain.ListEntriesResponse{}, apperror.Persistence(err)
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(entry *ledgerdomain.LedgerEntry) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        entry.ID.String(),
			CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	items = pagination.Trim(items, pageSize)

	entries := make([]ledgerdomain.LedgerEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}

	resp := ledgerdomain.ListEntriesResponse{Entries: entries}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (ledgerdomain.LedgerEntry, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrInvalidOrganization
	}
	entryID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrEntryNotFound
	}
	entry, err := s.repo.FindByID(ctx, s.db, orgID, entryID)
	if err != nil {
		return ledgerdomain.LedgerEntry{}, apperror.Persistence(err)
	}
	if entry == nil {
		return ledgerdomain.LedgerEntry{}, ledgerdomain.ErrEntryNotFound
	}
	return *entry, nil
}

func (s *Service) normalize(entry *ledgerdomain.LedgerEntry, now time.Time) error {
	if entry.OrgID == 0 {
		return ledgerdomain.ErrInvalidOrganization
	}
	switch entry.SourceType {
	case ledgerdomain.SourceTypeInstallment, ledgerdomain.SourceTypeGoLiveCompletion, ledgerdomain.SourceTypeCommission:
	default:
		return ledgerdomain.ErrInvalidSourceType
	}
	if entry.SourceID == 0 {
		return ledgerdomain.ErrInvalidSourceID
	}
	if !entry.Direction.Valid() {
		return ledgerdomain.ErrInvalidDirection
	}
	if entry.Amount.IsNegative() {
		return ledgerdomain.ErrInvalidAmount
	}
	if entry.DueDate.IsZero() {
		return ledgerdomain.ErrInvalidDueDate
	}

	if entry.ID == 0 {
		entry.ID = s.genID.Generate()
	}
	if entry.CompetencyDate.IsZero() {
		entry.CompetencyDate = entry.DueDate
	}
	entry.DueDate = entry.DueDate.UTC()
	entry.CompetencyDate = entry.CompetencyDate.UTC()
	entry.Amount = entry.Amount.Round(2)
	if entry.Status == "" {
		entry.Status = ledgerdomain.StatusPending
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	return nil
}

func parseFilter(req ledgerdomain.ListEntriesRequest) (ledgerdomain.ListFilter, error) {
	filter := ledgerdomain.ListFilter{}
	if req.From != nil {
		from := req.From.UTC()
		filter.From = &from
	}
	if req.To != nil {
		to := req.To.UTC()
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, ledgerdomain.ErrInvalidDateRange
	}

	if raw := strings.TrimSpace(req.CostCenterID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return filter, apperror.Detail(ledgerdomain.ErrInvalidSourceID, "cost_center_id")
		}
		filter.CostCenterID = &id
	}
	if raw := strings.TrimSpace(req.ContractID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return filter, apperror.Detail(ledgerdomain.ErrInvalidSourceID, "contract_id")
		}
		filter.ContractID = &id
	}
	if raw := strings.ToLower(strings.TrimSpace(req.Direction)); raw != "" {
		direction := ledgerdomain.Direction(raw)
		if !direction.Valid() {
			return filter, ledgerdomain.ErrInvalidDirection
		}
		filter.Direction = direction
	}
	if raw := strings.ToLower(strings.TrimSpace(req.Status)); raw != "" {
		switch status := ledgerdomain.Status(raw); status {
		case ledgerdomain.StatusPending, ledgerdomain.StatusSettled, ledgerdomain.StatusCanceled:
			filter.Status = status
		default:
			return filter, ledgerdomain.ErrInvalidStatus
		}
	}
	if raw := strings.ToLower(strings.TrimSpace(req.SourceType)); raw != "" {
		filter.SourceType = ledgerdomain.SourceType(raw)
	}
	return filter, nil
}
