package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/contractledger/pkg/db/option"
	"gorm.io/gorm"
)

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return r
	}
	return &store[T]{db: tx}
}

func (r *store[T]) Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error) {
	var rows []*T
	if err := r.scoped(ctx, filter, opts).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindOne returns nil, nil when nothing matches.
func (r *store[T]) FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error) {
	var row T
	err := r.scoped(ctx, filter, opts).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &row, nil
}

func (r *store[T]) Create(ctx context.Context, resource *T) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *store[T]) BatchCreate(ctx context.Context, resources []*T) error {
	if len(resources) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(resources).Error
}

// Update applies changes to the rows matching filter and reports how many
// rows were touched.
func (r *store[T]) Update(ctx context.Context, filter *T, changes map[string]any) (int64, error) {
	if filter == nil {
		return 0, ErrEmptyFilter
	}
	if len(changes) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(new(T)).Where(filter).Updates(changes)
	if errors.Is(res.Error, gorm.ErrMissingWhereClause) {
		return 0, ErrEmptyFilter
	}
	return res.RowsAffected, res.Error
}

func (r *store[T]) Delete(ctx context.Context, filter *T) (int64, error) {
	if filter == nil {
		return 0, ErrEmptyFilter
	}
	res := r.db.WithContext(ctx).Where(filter).Delete(new(T))
	if errors.Is(res.Error, gorm.ErrMissingWhereClause) {
		return 0, ErrEmptyFilter
	}
	return res.RowsAffected, res.Error
}

func (r *store[T]) Count(ctx context.Context, filter *T) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where(filter).Count(&count).Error
	return count, err
}

func (r *store[T]) scoped(ctx context.Context, filter *T, opts []option.QueryOption) *gorm.DB {
	q := r.db.WithContext(ctx).Model(new(T))
	if filter != nil {
		q = q.Where(filter)
	}
	for _, opt := range opts {
		q = opt.Apply(q)
	}
	return q
}
