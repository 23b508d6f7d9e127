package option

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

type Operator string

const (
	EQ   Operator = "="
	NEQ  Operator = "<>"
	GT   Operator = ">"
	GTE  Operator = ">="
	LT   Operator = "<"
	LTE  Operator = "<="
	IN   Operator = "IN"
	LIKE Operator = "LIKE"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds a single where clause. Field names are trusted callers' constants.
func ApplyOperator(cond Condition) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(cond.Field)
		if field == "" {
			return db
		}
		op := cond.Operator
		if op == "" {
			op = EQ
		}
		if op == IN {
			return db.Where(fmt.Sprintf("%s IN ?", field), cond.Value)
		}
		return db.Where(fmt.Sprintf("%s %s ?", field, op), cond.Value)
	})
}

type QuerySortBy struct {
	Field string
	Desc  bool
	Allow map[string]bool
}

// WithSortBy orders by an allowed field, falling back to id descending.
func WithSortBy(sort QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(sort.Field)
		if field == "" || !sort.Allow[field] {
			return db.Order("id desc")
		}
		direction := "asc"
		if sort.Desc {
			direction = "desc"
		}
		return db.Order(fmt.Sprintf("%s %s, id %s", field, direction, direction))
	})
}

// ApplyPagination seeks past the cursor and fetches one extra row so callers
// can tell whether another page exists. Rows must be ordered by id desc.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		size := page.PageSize
		if size <= 0 {
			size = pagination.DefaultPageSize
		}
		if size > pagination.MaxPageSize {
			size = pagination.MaxPageSize
		}
		if token := strings.TrimSpace(page.PageToken); token != "" {
			if cursor, err := pagination.DecodeCursor(token); err == nil && cursor.ID != "" {
				if id, err := snowflake.ParseString(cursor.ID); err == nil {
					db = db.Where("id < ?", int64(id))
				}
			}
		}
		return db.Limit(size + 1)
	})
}
