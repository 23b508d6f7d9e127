package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/contractledger/pkg/db/option"
	"gorm.io/gorm"
)

// ErrEmptyFilter is returned when a write would run without a where clause.
var ErrEmptyFilter = errors.New("repository: empty filter")

// Repository is a gorm-backed store for simple tenant-owned rows. Filters are
// struct values; zero fields are ignored, so callers always set the owning
// org alongside the id.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	BatchCreate(ctx context.Context, resources []*T) error
	Update(ctx context.Context, filter *T, changes map[string]any) (int64, error)
	Delete(ctx context.Context, filter *T) (int64, error)
	Count(ctx context.Context, filter *T) (int64, error)
}
