package option

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate adds a FOR UPDATE row lock. sqlite rejects the clause and already
// serializes writers, so it is skipped there.
func ForUpdate() QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if db.Dialector == nil || strings.EqualFold(db.Dialector.Name(), "sqlite") {
			return db
		}
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	})
}
