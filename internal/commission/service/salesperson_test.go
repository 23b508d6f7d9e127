package service

import (
	"testing"

	commissiondomain "github.com/smallbiznis/contractledger/internal/commission/domain"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalespersonLifecycle(t *testing.T) {
	f := setup(t)

	person, err := f.people.Create(f.ctx, commissiondomain.CreateSalespersonRequest{
		Name:              "  Carla Dias ",
		CommissionPercent: d("4"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Carla Dias", person.Name)
	assert.Nil(t, person.PayeeSupplierID)

	payee := "905"
	pct := d("6.5")
	updated, err := f.people.Update(f.ctx, commissiondomain.UpdateSalespersonRequest{
		ID:                person.ID.String(),
		PayeeSupplierID:   &payee,
		CommissionPercent: &pct,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.PayeeSupplierID)
	assert.Equal(t, "905", updated.PayeeSupplierID.String())

	loaded, err := f.people.Get(f.ctx, person.ID.String())
	require.NoError(t, err)
	assert.True(t, loaded.CommissionPercent.Equal(pct))
	require.NotNil(t, loaded.PayeeSupplierID)
	assert.Equal(t, "Carla Dias", loaded.Name)

	empty := ""
	cleared, err := f.people.Update(f.ctx, commissiondomain.UpdateSalespersonRequest{ID: person.ID.String(), PayeeSupplierID: &empty})
	require.NoError(t, err)
	assert.Nil(t, cleared.PayeeSupplierID)

	loaded, err = f.people.Get(f.ctx, person.ID.String())
	require.NoError(t, err)
	assert.Nil(t, loaded.PayeeSupplierID)
}

func TestSalespersonValidation(t *testing.T) {
	f := setup(t)

	_, err := f.people.Create(f.ctx, commissiondomain.CreateSalespersonRequest{Name: " ", CommissionPercent: d("1")})
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidName)

	_, err = f.people.Create(f.ctx, commissiondomain.CreateSalespersonRequest{Name: "Dan", CommissionPercent: d("-1")})
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidPercent)

	_, err = f.people.Create(f.ctx, commissiondomain.CreateSalespersonRequest{Name: "Dan", PayeeSupplierID: "abc"})
	assert.ErrorIs(t, err, commissiondomain.ErrInvalidReference)

	_, err = f.people.Get(f.ctx, "777")
	assert.ErrorIs(t, err, commissiondomain.ErrSalespersonNotFound)
}

func TestListSalespeople(t *testing.T) {
	f := setup(t)
	for _, name := range []string{"Ana Souza", "Ana Paula", "Bruno Lima"} {
		_, err := f.people.Create(f.ctx, commissiondomain.CreateSalespersonRequest{Name: name, CommissionPercent: d("1")})
		require.NoError(t, err)
	}

	anas, err := f.people.List(f.ctx, commissiondomain.ListSalespeopleRequest{Name: "Ana"})
	require.NoError(t, err)
	assert.Len(t, anas.Salespeople, 2)

	first, err := f.people.List(f.ctx, commissiondomain.ListSalespeopleRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Salespeople, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "Bruno Lima", first.Salespeople[0].Name)

	rest, err := f.people.List(f.ctx, commissiondomain.ListSalespeopleRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, rest.Salespeople, 1)
	assert.Equal(t, "Ana Souza", rest.Salespeople[0].Name)
	assert.False(t, rest.HasMore)
}
