package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/contractledger/internal/audit/domain"
	auditrepository "github.com/smallbiznis/contractledger/internal/audit/repository"
	auditservice "github.com/smallbiznis/contractledger/internal/audit/service"
	"github.com/smallbiznis/contractledger/internal/clock"
	"github.com/smallbiznis/contractledger/internal/config"
	contractdomain "github.com/smallbiznis/contractledger/internal/contract/domain"
	contractrepository "github.com/smallbiznis/contractledger/internal/contract/repository"
	contractservice "github.com/smallbiznis/contractledger/internal/contract/service"
	installmentdomain "github.com/smallbiznis/contractledger/internal/installment/domain"
	"github.com/smallbiznis/contractledger/internal/installment/repository"
	ledgerdomain "github.com/smallbiznis/contractledger/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/contractledger/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/contractledger/internal/ledger/service"
	"github.com/smallbiznis/contractledger/internal/lock"
	notificationdomain "github.com/smallbiznis/contractledger/internal/notification/domain"
	"github.com/smallbiznis/contractledger/internal/orgcontext"
	"github.com/smallbiznis/contractledger/pkg/apperror"
	"github.com/smallbiznis/contractledger/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOrgID = snowflake.ID(4242)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notificationdomain.Event
}

func (n *recordingNotifier) Send(_ context.Context, event notificationdomain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

type fixture struct {
	svc       installmentdomain.Service
	params    Params
	contracts contractdomain.Service
	db        *gorm.DB
	notifier  *recordingNotifier
	ctx       context.Context
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t,
		&contractdomain.Contract{},
		&contractdomain.ContractItem{},
		&installmentdomain.Installment{},
		&ledgerdomain.LedgerEntry{},
		&auditdomain.AuditLog{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	engineCfg := config.DefaultEngineConfig()
	engineCfg.GoLive.NotifyUserIDs = []string{"11", "12"}
	engine := config.NewStaticEngineConfigHolder(engineCfg)

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  ledgerrepository.Provide(),
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  auditrepository.Provide(db),
	})
	contractRepo := contractrepository.Provide()
	installmentRepo := repository.Provide()

	contracts := contractservice.NewService(contractservice.Params{
		DB:              db,
		Log:             log,
		GenID:           node,
		Clock:           clk,
		Engine:          engine,
		Repo:            contractRepo,
		InstallmentRepo: installmentRepo,
		Ledger:          ledgerSvc,
		Locker:          lock.NewLocalLocker(clk),
	})

	notifier := &recordingNotifier{}
	params := Params{
		DB:           db,
		Log:          log,
		Clock:        clk,
		Engine:       engine,
		Repo:         installmentRepo,
		ContractRepo: contractRepo,
		Ledger:       ledgerSvc,
		Notifier:     notifier,
		Audit:        auditSvc,
	}

	return fixture{
		svc:       NewService(params),
		params:    params,
		contracts: contracts,
		db:        db,
		notifier:  notifier,
		ctx:       orgcontext.WithOrgID(context.Background(), testOrgID),
	}
}

// seedGoLiveContract creates a one-shot sale of 1000 split in two, the first
// half waiting for go-live and the second due on 2024-02-05.
func seedGoLiveContract(t *testing.T, f fixture) contractdomain.ContractAggregate {
	t.Helper()
	agg, err := f.contracts.Create(f.ctx, contractdomain.SaveContractRequest{
		Kind:              "sale",
		ClientID:          "501",
		StartDate:         "2024-01-20",
		BillingDay:        5,
		InstallmentCount:  2,
		AccountCategoryID: "601",
		PaymentMethod:     "pix",
		BankAccountID:     "801",
		Items: []contractdomain.ItemInput{
			{Description: "Implementation", Quantity: decimal.NewFromInt(10), UnitValue: decimal.NewFromInt(100)},
		},
		Split: contractdomain.SplitInput{Policy: installmentdomain.SplitEqual, GoLiveFirst: true},
	})
	require.NoError(t, err)
	require.Len(t, agg.Installments, 2)
	require.True(t, agg.Installments[0].Deferred())
	return agg
}

func entriesFor(t *testing.T, db *gorm.DB, sourceType ledgerdomain.SourceType) []ledgerdomain.LedgerEntry {
	t.Helper()
	var rows []ledgerdomain.LedgerEntry
	require.NoError(t, db.Where("source_type = ?", sourceType).Find(&rows).Error)
	return rows
}

func intPtr(v int) *int { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCompleteGoLive(t *testing.T) {
	f := setup(t)
	agg := seedGoLiveContract(t, f)
	golive := agg.Installments[0]

	inst, err := f.svc.Complete(f.ctx, installmentdomain.CompleteGoLiveRequest{
		InstallmentID:  golive.ID.String(),
		CompletionDate: "2024-06-10",
		OffsetDays:     intPtr(15),
		ActorID:        "77",
	})
	require.NoError(t, err)
	assert.Equal(t, installmentdomain.StatusPending, inst.Status)
	require.NotNil(t, inst.DueDate)
	assert.True(t, inst.DueDate.Equal(day(2024, 6, 25)))
	require.NotNil(t, inst.CompletedAt)
	assert.True(t, inst.CompletedAt.Equal(day(2024, 6, 10)))

	rows := entriesFor(t, f.db, ledgerdomain.SourceTypeGoLiveCompletion)
	require.Len(t, rows, 1)
	assert.Equal(t, golive.ID, rows[0].SourceID)
	assert.True(t, rows[0].DueDate.Equal(day(2024, 6, 25)))
	assert.True(t, rows[0].CompetencyDate.Equal(day(2024, 6, 10)))
	assert.True(t, rows[0].Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, ledgerdomain.DirectionReceivable, rows[0].Direction)
	assert.Equal(t, "pix", rows[0].PaymentMethod)

	stored, err := f.svc.Get(f.ctx, golive.ID.String())
	require.NoError(t, err)
	assert.Equal(t, installmentdomain.StatusPending, stored.Status)
	assert.True(t, stored.DueDate.Equal(day(2024, 6, 25)))

	require.Len(t, f.notifier.events, 1)
	event := f.notifier.events[0]
	assert.Equal(t, notificationdomain.KindGoLiveCompleted, event.Kind)
	assert.Equal(t, golive.ID, event.ReferenceID)
	assert.Equal(t, []snowflake.ID{11, 12}, event.TargetUserIDs)

	var audits []auditdomain.AuditLog
	require.NoError(t, f.db.Where("action = ?", "installment.complete").Find(&audits).Error)
	require.Len(t, audits, 1)
	require.NotNil(t, audits[0].ActorID)
	assert.Equal(t, snowflake.ID(77), *audits[0].ActorID)
}

func TestCompleteUsesConfiguredOffset(t *testing.T) {
	f := setup(t)
	agg := seedGoLiveContract(t, f)

	inst, err := f.svc.Complete(f.ctx, installmentdomain.CompleteGoLiveRequest{
		InstallmentID:  agg.Installments[0].ID.String(),
		CompletionDate: "2024-02-20",
	})
	require.NoError(t, err)
	assert.True(t, inst.DueDate.Equal(day(2024, 3, 6)))
}

func TestCompleteTwiceIsRejected(t *testing.T) {
	f := setup(t)
	agg := seedGoLiveContract(t, f)
	req := installmentdomain.CompleteGoLiveRequest{
		InstallmentID:  agg.Installments[0].ID.String(),
		CompletionDate: "2024-06-10",
		OffsetDays:     intPtr(15),
	}

	_, err := f.svc.Complete(f.ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Complete(f.ctx, req)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.ErrorIs(t, err, installmentdomain.ErrNotAwaitingCompletion)
	assert.Len(t, entriesFor(t, f.db, ledgerdomain.SourceTypeGoLiveCompletion), 1)
}

func TestCompleteRejectsInvalidInput(t *testing.T) {
	f := setup(t)
	agg := seedGoLiveContract(t, f)
	golive := agg.Installments[0].ID.String()

	cases := []struct {
		name string
		req  installmentdomain.CompleteGoLiveRequest
		want error
	}{
		{"bad date", installmentdomain.CompleteGoLiveRequest{InstallmentID: golive, CompletionDate: "10/06/2024"}, installmentdomain.ErrInvalidCompletionDate},
		{"negative offset", installmentdomain.CompleteGoLiveRequest{InstallmentID: golive, CompletionDate: "2024-06-10", OffsetDays: intPtr(-1)}, installmentdomain.ErrInvalidOffsetDays},
		{"normal installment", installmentdomain.CompleteGoLiveRequest{InstallmentID: agg.Installments[1].ID.String(), CompletionDate: "2024-06-10"}, installmentdomain.ErrNotGoLive},
		{"unknown installment", installmentdomain.CompleteGoLiveRequest{InstallmentID: "99", CompletionDate: "2024-06-10"}, installmentdomain.ErrInstallmentNotFound},
		{"malformed id", installmentdomain.CompleteGoLiveRequest{InstallmentID: "abc", CompletionDate: "2024-06-10"}, installmentdomain.ErrInstallmentNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Complete(f.ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, entriesFor(t, f.db, ledgerdomain.SourceTypeGoLiveCompletion))
	assert.Empty(t, f.notifier.events)
}

// regeneratingContractRepo drops the contract's installments right before
// the contract row lock is granted, the way a schedule regeneration that
// commits first would.
type regeneratingContractRepo struct {
	contractdomain.Repository
	installments installmentdomain.Repository
	locks        int
}

func (r *regeneratingContractRepo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*contractdomain.Contract, error) {
	r.locks++
	if _, err := r.installments.DeleteByContract(ctx, db, orgID, id); err != nil {
		return nil, err
	}
	return r.Repository.FindByIDForUpdate(ctx, db, orgID, id)
}

func TestCompleteAfterScheduleRegenerationIsNotFound(t *testing.T) {
	f := setup(t)
	agg := seedGoLiveContract(t, f)

	contracts := &regeneratingContractRepo{Repository: f.params.ContractRepo, installments: f.params.Repo}
	params := f.params
	params.ContractRepo = contracts
	svc := NewService(params)

	_, err := svc.Complete(f.ctx, installmentdomain.CompleteGoLiveRequest{
		InstallmentID:  agg.Installments[0].ID.String(),
		CompletionDate: "2024-06-10",
		OffsetDays:     intPtr(15),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, installmentdomain.ErrInstallmentNotFound)
	assert.Equal(t, 1, contracts.locks)
	assert.Empty(t, entriesFor(t, f.db, ledgerdomain.SourceTypeGoLiveCompletion))
	assert.Empty(t, f.notifier.events)
}

func TestSettleAfterScheduleRegenerationIsNotFound(t *testing.T) {
	f := setup(t)
	agg := seedGoLiveContract(t, f)

	params := f.params
	params.ContractRepo = &regeneratingContractRepo{Repository: f.params.ContractRepo, installments: f.params.Repo}
	svc := NewService(params)

	_, err := svc.Settle(f.ctx, installmentdomain.TransitionRequest{InstallmentID: agg.Installments[1].ID.String()})
	assert.ErrorIs(t, err, installmentdomain.ErrInstallmentNotFound)
}

func TestCompleteRejectsInactiveContract(t *testing.T) {
	f := setup(t)
	agg := seedGoLiveContract(t, f)
	_, err := f.contracts.SetStatus(f.ctx, contractdomain.SetStatusRequest{ID: agg.Contract.ID.String(), Status: "inactive"})
	require.NoError(t, err)

	_, err = f.svc.Complete(f.ctx, installmentdomain.CompleteGoLiveRequest{
		InstallmentID:  agg.Installments[0].ID.String(),
		CompletionDate: "2024-06-10",
	})
	assert.ErrorIs(t, err, installmentdomain.ErrContractInactive)
}

func TestRevertGoLive(t *testing.T) {
	f := setup(t)
	agg := seedGoLiveContract(t, f)
	id := agg.Installments[0].ID.String()

	_, err := f.svc.Complete(f.ctx, installmentdomain.CompleteGoLiveRequest{
		InstallmentID:  id,
		CompletionDate: "2024-06-10",
		OffsetDays:     intPtr(15),
	})
	require.NoError(t, err)

	inst, err := f.svc.Revert(f.ctx, installmentdomain.TransitionRequest{InstallmentID: id})
	require.NoError(t, err)
	assert.Equal(t, installmentdomain.StatusAwaitingCompletion, inst.Status)
	assert.Nil(t, inst.CompletedAt)
	require.NotNil(t, inst.DueDate)
	assert.True(t, inst.DueDate.Equal(day(2024, 6, 25)))

	assert.Empty(t, entriesFor(t, f.db, ledgerdomain.SourceTypeGoLiveCompletion))
	assert.Len(t, entriesFor(t, f.db, ledgerdomain.SourceTypeInstallment), 1)

	stored, err := f.svc.Get(f.ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.Deferred())
	assert.Nil(t, stored.CompletedAt)

	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, notificationdomain.KindGoLiveReverted, f.notifier.events[1].Kind)

	_, err = f.svc.Revert(f.ctx, installmentdomain.TransitionRequest{InstallmentID: id})
	assert.ErrorIs(t, err, installmentdomain.ErrNotPending)

	again, err := f.svc.Complete(f.ctx, installmentdomain.CompleteGoLiveRequest{
		InstallmentID:  id,
		CompletionDate: "2024-07-01",
		OffsetDays:     intPtr(0),
	})
	require.NoError(t, err)
	assert.True(t, again.DueDate.Equal(day(2024, 7, 1)))
	assert.Len(t, entriesFor(t, f.db, ledgerdomain.SourceTypeGoLiveCompletion), 1)
}

func TestRevertNormalInstallment(t *testing.T) {
	f := setup(t)
	agg := seedGoLiveContract(t, f)

	_, err := f.svc.Revert(f.ctx, installmentdomain.TransitionRequest{InstallmentID: agg.Installments[1].ID.String()})
	assert.ErrorIs(t, err, installmentdomain.ErrNotGoLive)
	assert.Len(t, entriesFor(t, f.db, ledgerdomain.SourceTypeInstallment), 1)
}

func TestSettleBlocksRevert(t *testing.T) {
	f := setup(t)
	agg := seedGoLiveContract(t, f)
	id := agg.Installments[0].ID.String()

	_, err := f.svc.Complete(f.ctx, installmentdomain.CompleteGoLiveRequest{
		InstallmentID:  id,
		CompletionDate: "2024-06-10",
	})
	require.NoError(t, err)

	inst, err := f.svc.Settle(f.ctx, installmentdomain.TransitionRequest{InstallmentID: id})
	require.NoError(t, err)
	assert.Equal(t, installmentdomain.StatusSettled, inst.Status)

	rows := entriesFor(t, f.db, ledgerdomain.SourceTypeGoLiveCompletion)
	require.Len(t, rows, 1)
	assert.Equal(t, ledgerdomain.StatusSettled, rows[0].Status)

	_, err = f.svc.Revert(f.ctx, installmentdomain.TransitionRequest{InstallmentID: id})
	assert.ErrorIs(t, err, installmentdomain.ErrInstallmentSettled)
	assert.Len(t, entriesFor(t, f.db, ledgerdomain.SourceTypeGoLiveCompletion), 1)

	_, err = f.svc.Settle(f.ctx, installmentdomain.TransitionRequest{InstallmentID: id})
	assert.ErrorIs(t, err, installmentdomain.ErrNotPending)
}

func TestSettleDatedInstallment(t *testing.T) {
	f := setup(t)
	agg := seedGoLiveContract(t, f)

	inst, err := f.svc.Settle(f.ctx, installmentdomain.TransitionRequest{InstallmentID: agg.Installments[1].ID.String()})
	require.NoError(t, err)
	assert.Equal(t, installmentdomain.StatusSettled, inst.Status)

	rows := entriesFor(t, f.db, ledgerdomain.SourceTypeInstallment)
	require.Len(t, rows, 1)
	assert.Equal(t, ledgerdomain.StatusSettled, rows[0].Status)
	assert.Empty(t, f.notifier.events)
}

func TestListByContract(t *testing.T) {
	f := setup(t)
	agg := seedGoLiveContract(t, f)

	items, err := f.svc.ListByContract(f.ctx, agg.Contract.ID.String())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Sequence)
	assert.Equal(t, 2, items[1].Sequence)

	_, err = f.svc.ListByContract(f.ctx, "12345")
	assert.ErrorIs(t, err, contractdomain.ErrContractNotFound)

	_, err = f.svc.ListByContract(context.Background(), agg.Contract.ID.String())
	assert.ErrorIs(t, err, installmentdomain.ErrInvalidOrganization)
}
