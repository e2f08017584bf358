package services

import (
	"context"

	"gorm.io/gorm"
)

// runTx wraps fn in a transaction when a DB is present. A nil DB degrades to
// the repos' own nil-tx fallback, which keeps fake-repo setups working.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}
