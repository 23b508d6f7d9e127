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
	commissiondomain "github.com/smallbiznis/contractledger/internal/commission/domain"
	commissionrepository "github.com/smallbiznis/contractledger/internal/commission/repository"
	"github.com/smallbiznis/contractledger/internal/config"
	ledgerdomain "github.com/smallbiznis/contractledger/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/contractledger/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/contractledger/internal/ledger/service"
	notificationdomain "github.com/smallbiznis/contractledger/internal/notification/domain"
	"github.com/smallbiznis/contractledger/internal/orgcontext"
	"github.com/smallbiznis/contractledger/pkg/apperror"
	"github.com/smallbiznis/contractledger/pkg/db/dbtest"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
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
	svc      commissiondomain.Service
	people   commissiondomain.SalespersonService
	ledger   ledgerdomain.Service
	db       *gorm.DB
	clock    *clock.FakeClock
	notifier *recordingNotifier
	ctx      context.Context
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t,
		&commissiondomain.Salesperson{},
		&commissiondomain.CommissionRequest{},
		&ledgerdomain.LedgerEntry{},
		&auditdomain.AuditLog{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC))
	log := zap.NewNop()

	engineCfg := config.DefaultEngineConfig()
	engineCfg.Commission.ApproverUserIDs = []string{"21", "22"}
	engineCfg.Commission.AccountCategoryID = "610"
	engineCfg.Commission.BankAccountID = "810"

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
	notifier := &recordingNotifier{}

	svc := NewService(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Engine:   config.NewStaticEngineConfigHolder(engineCfg),
		Repo:     commissionrepository.Provide(),
		Ledger:   ledgerSvc,
		Notifier: notifier,
		Audit:    auditSvc,
	})
	people := NewSalespersonService(SalespersonParams{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
	})

	return fixture{
		svc:      svc,
		people:   people,
		ledger:   ledgerSvc,
		db:       db,
		clock:    clk,
		notifier: notifier,
		ctx:      orgcontext.WithOrgID(context.Background(), testOrgID),
	}
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func seedSalesperson(t *testing.T, f fixture, payee string) commissiondomain.Salesperson {
	t.Helper()
	person, err := f.people.Create(f.ctx, commissiondomain.CreateSalespersonRequest{
		Name:              "Ana Souza",
		UserID:            "31",
		PayeeSupplierID:   payee,
		CommissionPercent: d("5"),
	})
	require.NoError(t, err)
	return person
}

func createRequest(t *testing.T, f fixture, person commissiondomain.Salesperson) commissiondomain.CommissionRequest {
	t.Helper()
	req, err := f.svc.Create(f.ctx, commissiondomain.CreateCommissionRequest{
		SalespersonID: person.ID.String(),
		Month:         3,
		Year:          2024,
		SalesTotal:    d("10000"),
		RequestedBy:   "31",
	})
	require.NoError(t, err)
	return req
}

func commissionEntries(t *testing.T, db *gorm.DB) []ledgerdomain.LedgerEntry {
	t.Helper()
	var rows []ledgerdomain.LedgerEntry
	require.NoError(t, db.Where("source_type = ?", ledgerdomain.SourceTypeCommission).Find(&rows).Error)
	return rows
}

func TestCreateUsesSalespersonPercent(t *testing.T) {
	f := setup(t)
	person := seedSalesperson(t, f, "901")

	req := createRequest(t, f, person)
	assert.Equal(t, commissiondomain.StatusPending, req.Status)
	assert.True(t, req.CommissionPercent.Equal(d("5")))
	assert.True(t, req.CommissionAmount.Equal(d("500")))
	assert.Equal(t, "2024-03", req.Period())
	assert.Empty(t, commissionEntries(t, f.db))

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, notificationdomain.KindCommissionRequested, f.notifier.events[0].Kind)
	assert.Equal(t, []snowflake.ID{21, 22}, f.notifier.events[0].TargetUserIDs)
	assert.Equal(t, req.ID, f.notifier.events[0].ReferenceID)
}

func TestCreateWithExplicitPercentRounds(t *testing.T) {
	f := setup(t)
	person := seedSalesperson(t, f, "901")
	pct := d("2.5")

	req, err := f.svc.Create(f.ctx, commissiondomain.CreateCommissionRequest{
		SalespersonID:     person.ID.String(),
		Month:             1,
		Year:              2024,
		SalesTotal:        d("1234.57"),
		CommissionPercent: &pct,
	})
	require.NoError(t, err)
	assert.True(t, req.CommissionAmount.Equal(d("30.86")), "amount %s", req.CommissionAmount)
}

func TestCreateRejectsDuplicatePeriod(t *testing.T) {
	f := setup(t)
	person := seedSalesperson(t, f, "901")
	createRequest(t, f, person)

	_, err := f.svc.Create(f.ctx, commissiondomain.CreateCommissionRequest{
		SalespersonID: person.ID.String(),
		Month:         3,
		Year:          2024,
		SalesTotal:    d("1"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, commissiondomain.ErrCommissionExists)
	assert.True(t, apperror.IsConflict(err))

	var count int64
	require.NoError(t, f.db.Model(&commissiondomain.CommissionRequest{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	person := seedSalesperson(t, f, "901")
	over := d("100.01")

	cases := []struct {
		name string
		req  commissiondomain.CreateCommissionRequest
		want error
	}{
		{"bad salesperson", commissiondomain.CreateCommissionRequest{SalespersonID: "x", Month: 3, Year: 2024}, commissiondomain.ErrInvalidSalesperson},
		{"unknown salesperson", commissiondomain.CreateCommissionRequest{SalespersonID: "98765", Month: 3, Year: 2024}, commissiondomain.ErrSalespersonNotFound},
		{"month 13", commissiondomain.CreateCommissionRequest{SalespersonID: person.ID.String(), Month: 13, Year: 2024}, commissiondomain.ErrInvalidPeriod},
		{"negative sales", commissiondomain.CreateCommissionRequest{SalespersonID: person.ID.String(), Month: 3, Year: 2024, SalesTotal: d("-1")}, commissiondomain.ErrInvalidSalesTotal},
		{"percent over 100", commissiondomain.CreateCommissionRequest{SalespersonID: person.ID.String(), Month: 3, Year: 2024, CommissionPercent: &over}, commissiondomain.ErrInvalidPercent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestApprovePostsPayable(t *testing.T) {
	f := setup(t)
	person := seedSalesperson(t, f, "901")
	req := createRequest(t, f, person)

	approved, err := f.svc.Approve(f.ctx, commissiondomain.ApproveRequest{ID: req.ID.String(), ApproverID: "21"})
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, snowflake.ID(21), *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	rows := commissionEntries(t, f.db)
	require.Len(t, rows, 1)
	entry := rows[0]
	assert.Equal(t, ledgerdomain.DirectionPayable, entry.Direction)
	assert.Equal(t, req.ID, entry.SourceID)
	assert.True(t, entry.Amount.Equal(d("500")))
	assert.True(t, entry.CompetencyDate.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, entry.DueDate.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, entry.SupplierID)
	assert.Equal(t, snowflake.ID(901), *entry.SupplierID)
	require.NotNil(t, entry.AccountCategoryID)
	assert.Equal(t, snowflake.ID(610), *entry.AccountCategoryID)
	require.NotNil(t, entry.BankAccountID)
	assert.Equal(t, snowflake.ID(810), *entry.BankAccountID)
	assert.Nil(t, entry.CostCenterID)
	assert.Equal(t, "bank_transfer", entry.PaymentMethod)

	stored, err := f.svc.Get(f.ctx, req.ID.String())
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.StatusApproved, stored.Status)

	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, notificationdomain.KindCommissionApproved, f.notifier.events[1].Kind)
	assert.Equal(t, []snowflake.ID{31}, f.notifier.events[1].TargetUserIDs)

	_, err = f.svc.Approve(f.ctx, commissiondomain.ApproveRequest{ID: req.ID.String()})
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidTransition)
	assert.Len(t, commissionEntries(t, f.db), 1)
}

func TestApproveRequiresPayee(t *testing.T) {
	f := setup(t)
	person := seedSalesperson(t, f, "")
	req := createRequest(t, f, person)

	_, err := f.svc.Approve(f.ctx, commissiondomain.ApproveRequest{ID: req.ID.String()})
	require.Error(t, err)
	assert.ErrorIs(t, err, commissiondomain.ErrSalespersonWithoutPayee)
	assert.True(t, apperror.IsDomain(err))
	assert.Empty(t, commissionEntries(t, f.db))

	stored, err := f.svc.Get(f.ctx, req.ID.String())
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.StatusPending, stored.Status)
}

func TestRevertRemovesPayable(t *testing.T) {
	f := setup(t)
	person := seedSalesperson(t, f, "901")
	req := createRequest(t, f, person)

	_, err := f.svc.Approve(f.ctx, commissiondomain.ApproveRequest{ID: req.ID.String(), ApproverID: "21"})
	require.NoError(t, err)
	require.Len(t, commissionEntries(t, f.db), 1)

	reverted, err := f.svc.Revert(f.ctx, commissiondomain.RevertRequest{ID: req.ID.String(), ActorID: "21"})
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.StatusPending, reverted.Status)
	assert.Nil(t, reverted.ApprovedBy)
	assert.Nil(t, reverted.ApprovedAt)
	assert.Empty(t, commissionEntries(t, f.db))

	stored, err := f.svc.Get(f.ctx, req.ID.String())
	require.NoError(t, err)
	assert.Nil(t, stored.ApprovedAt)
	assert.Equal(t, commissiondomain.StatusPending, stored.Status)

	_, err = f.svc.Revert(f.ctx, commissiondomain.RevertRequest{ID: req.ID.String()})
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidTransition)

	f.clock.Advance(24 * time.Hour)
	_, err = f.svc.Approve(f.ctx, commissiondomain.ApproveRequest{ID: req.ID.String()})
	require.NoError(t, err)
	rows := commissionEntries(t, f.db)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].DueDate.Equal(time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)))

	var audits []auditdomain.AuditLog
	require.NoError(t, f.db.Where("target_id = ?", req.ID).Order("id asc").Find(&audits).Error)
	actions := make([]string, 0, len(audits))
	for _, a := range audits {
		actions = append(actions, a.Action)
	}
	assert.Equal(t, []string{"commission.requested", "commission.approved", "commission.reverted", "commission.approved"}, actions)
}

func TestRevertBlockedOnceSettled(t *testing.T) {
	f := setup(t)
	person := seedSalesperson(t, f, "901")
	req := createRequest(t, f, person)
	_, err := f.svc.Approve(f.ctx, commissiondomain.ApproveRequest{ID: req.ID.String()})
	require.NoError(t, err)

	require.NoError(t, f.ledger.SettleBySourceTx(f.ctx, f.db, testOrgID, ledgerdomain.Source{Type: ledgerdomain.SourceTypeCommission, ID: req.ID}))

	_, err = f.svc.Revert(f.ctx, commissiondomain.RevertRequest{ID: req.ID.String()})
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidTransition)
	assert.Len(t, commissionEntries(t, f.db), 1)
}

func TestReject(t *testing.T) {
	f := setup(t)
	person := seedSalesperson(t, f, "901")
	req := createRequest(t, f, person)

	_, err := f.svc.Reject(f.ctx, commissiondomain.RejectRequest{ID: req.ID.String(), Reason: "   "})
	assert.ErrorIs(t, err, commissiondomain.ErrRejectionReasonRequired)

	rejected, err := f.svc.Reject(f.ctx, commissiondomain.RejectRequest{ID: req.ID.String(), RejectedBy: "22", Reason: "sales not reconciled"})
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.StatusRejected, rejected.Status)
	assert.Equal(t, "sales not reconciled", rejected.RejectionReason)
	require.NotNil(t, rejected.RejectedBy)
	assert.Equal(t, snowflake.ID(22), *rejected.RejectedBy)
	assert.Empty(t, commissionEntries(t, f.db))

	_, err = f.svc.Approve(f.ctx, commissiondomain.ApproveRequest{ID: req.ID.String()})
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidTransition)
	_, err = f.svc.Revert(f.ctx, commissiondomain.RevertRequest{ID: req.ID.String()})
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidTransition)

	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, notificationdomain.KindCommissionRejected, f.notifier.events[1].Kind)
}

func TestUnknownRequest(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Approve(f.ctx, commissiondomain.ApproveRequest{ID: "12345"})
	assert.ErrorIs(t, err, commissiondomain.ErrCommissionNotFound)
	_, err = f.svc.Get(f.ctx, "nope")
	assert.ErrorIs(t, err, commissiondomain.ErrCommissionNotFound)
	_, err = f.svc.Get(context.Background(), "12345")
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidOrganization)
}

func TestListCommissions(t *testing.T) {
	f := setup(t)
	ana := seedSalesperson(t, f, "901")
	bruno, err := f.people.Create(f.ctx, commissiondomain.CreateSalespersonRequest{Name: "Bruno Lima", CommissionPercent: d("3")})
	require.NoError(t, err)

	for month := 1; month <= 3; month++ {
		_, err := f.svc.Create(f.ctx, commissiondomain.CreateCommissionRequest{SalespersonID: ana.ID.String(), Month: month, Year: 2024, SalesTotal: d("100")})
		require.NoError(t, err)
	}
	_, err = f.svc.Create(f.ctx, commissiondomain.CreateCommissionRequest{SalespersonID: bruno.ID.String(), Month: 3, Year: 2024, SalesTotal: d("100")})
	require.NoError(t, err)

	march, err := f.svc.List(f.ctx, commissiondomain.ListCommissionRequest{Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Len(t, march.Requests, 2)

	byAna, err := f.svc.List(f.ctx, commissiondomain.ListCommissionRequest{SalespersonID: ana.ID.String(), Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, byAna.Requests, 2)
	assert.True(t, byAna.HasMore)

	next, err := f.svc.List(f.ctx, commissiondomain.ListCommissionRequest{SalespersonID: ana.ID.String(), Pagination: pagination.Pagination{PageSize: 2, PageToken: byAna.NextPageToken}})
	require.NoError(t, err)
	assert.Len(t, next.Requests, 1)

	_, err = f.svc.List(f.ctx, commissiondomain.ListCommissionRequest{Status: "paid"})
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidStatus)
}
