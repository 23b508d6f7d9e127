package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/contractledger/internal/clock"
	commissiondomain "github.com/smallbiznis/contractledger/internal/commission/domain"
	"github.com/smallbiznis/contractledger/internal/orgcontext"
	"github.com/smallbiznis/contractledger/pkg/apperror"
	"github.com/smallbiznis/contractledger/pkg/db/option"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"github.com/smallbiznis/contractledger/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type SalespersonParams struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type SalespersonService struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	store repository.Repository[commissiondomain.Salesperson]
}

func NewSalespersonService(p SalespersonParams) commissiondomain.SalespersonService {
	return &SalespersonService{
		log:   p.Log.Named("salesperson.service"),
		genID: p.GenID,
		clock: p.Clock,
		store: repository.ProvideStore[commissiondomain.Salesperson](p.DB),
	}
}

func (s *SalespersonService) Create(ctx context.Context, req commissiondomain.CreateSalespersonRequest) (commissiondomain.Salesperson, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return commissiondomain.Salesperson{}, commissiondomain.ErrInvalidOrganization
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return commissiondomain.Salesperson{}, commissiondomain.ErrInvalidName
	}
	if err := validatePercent(req.CommissionPercent); err != nil {
		return commissiondomain.Salesperson{}, err
	}
	userID, err := parseOptionalID(req.UserID, "user_id")
	if err != nil {
		return commissiondomain.Salesperson{}, err
	}
	payeeID, err := parseOptionalID(req.PayeeSupplierID, "payee_supplier_id")
	if err != nil {
		return commissiondomain.Salesperson{}, err
	}

	now := s.clock.Now().UTC()
	person := commissiondomain.Salesperson{
		ID:                s.genID.Generate(),
		OrgID:             orgID,
		Name:              name,
		UserID:            userID,
		PayeeSupplierID:   payeeID,
		CommissionPercent: req.CommissionPercent,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Create(ctx, &person); err != nil {
		return commissiondomain.Salesperson{}, apperror.Persistence(err)
	}
	return person, nil
}

// Update applies the fields that are present. An empty id string clears the
// linked user or payee.
func (s *SalespersonService) Update(ctx context.Context, req commissiondomain.UpdateSalespersonRequest) (commissiondomain.Salesperson, error) {
	person, err := s.Get(ctx, req.ID)
	if err != nil {
		return commissiondomain.Salesperson{}, err
	}

	changes := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return commissiondomain.Salesperson{}, commissiondomain.ErrInvalidName
		}
		person.Name = name
		changes["name"] = name
	}
	if req.CommissionPercent != nil {
		if err := validatePercent(*req.CommissionPercent); err != nil {
			return commissiondomain.Salesperson{}, err
		}
		person.CommissionPercent = *req.CommissionPercent
		changes["commission_percent"] = *req.CommissionPercent
	}
	if req.UserID != nil {
		if person.UserID, err = parseOptionalID(*req.UserID, "user_id"); err != nil {
			return commissiondomain.Salesperson{}, err
		}
		changes["user_id"] = person.UserID
	}
	if req.PayeeSupplierID != nil {
		if person.PayeeSupplierID, err = parseOptionalID(*req.PayeeSupplierID, "payee_supplier_id"); err != nil {
			return commissiondomain.Salesperson{}, err
		}
		changes["payee_supplier_id"] = person.PayeeSupplierID
	}
	if len(changes) == 0 {
		return person, nil
	}

	person.UpdatedAt = s.clock.Now().UTC()
	changes["updated_at"] = person.UpdatedAt
	touched, err := s.store.Update(ctx, &commissiondomain.Salesperson{ID: person.ID, OrgID: person.OrgID}, changes)
	if err != nil {
		return commissiondomain.Salesperson{}, apperror.Persistence(err)
	}
	if touched == 0 {
		return commissiondomain.Salesperson{}, commissiondomain.ErrSalespersonNotFound
	}
	return person, nil
}

func (s *SalespersonService) Get(ctx context.Context, id string) (commissiondomain.Salesperson, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return commissiondomain.Salesperson{}, commissiondomain.ErrInvalidOrganization
	}
	personID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || personID == 0 {
		return commissiondomain.Salesperson{}, commissiondomain.ErrSalespersonNotFound
	}

	person, err := s.store.FindOne(ctx, &commissiondomain.Salesperson{ID: personID, OrgID: orgID})
	if err != nil {
		return commissiondomain.Salesperson{}, apperror.Persistence(err)
	}
	if person == nil {
		return commissiondomain.Salesperson{}, commissiondomain.ErrSalespersonNotFound
	}
	return *person, nil
}

func (s *SalespersonService) List(ctx context.Context, req commissiondomain.ListSalespeopleRequest) (commissiondomain.ListSalespeopleResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return commissiondomain.ListSalespeopleResponse{}, commissiondomain.ErrInvalidOrganization
	}

	pageSize := pagination.NormalizeSize(req.PageSize)
	options := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{}),
		option.ApplyPagination(pagination.Pagination{PageToken: req.PageToken, PageSize: pageSize}),
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "name",
			Operator: option.LIKE,
			Value:    "%" + name + "%",
		}))
	}

	items, err := s.store.Find(ctx, &commissiondomain.Salesperson{OrgID: orgID}, options...)
	if err != nil {
		return commissiondomain.ListSalespeopleResponse{}, apperror.Persistence(err)
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(p *commissiondomain.Salesperson) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: p.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	items = pagination.Trim(items, pageSize)

	resp := commissiondomain.ListSalespeopleResponse{Salespeople: make([]commissiondomain.Salesperson, 0, len(items))}
	for _, item := range items {
		resp.Salespeople = append(resp.Salespeople, *item)
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func validatePercent(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return apperror.Detail(commissiondomain.ErrInvalidPercent, "percent %s outside 0..100", pct)
	}
	return nil
}

func parseOptionalID(raw, field string) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return nil, apperror.Detail(commissiondomain.ErrInvalidReference, "%s", field)
	}
	return &id, nil
}
