package repo

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/pkg/apperr"
)

type GormRepo struct {
	DB *gorm.DB
}

// WithTx binds the repository to an open transaction.
func (r *GormRepo) WithTx(tx *gorm.DB) *GormRepo {
	return &GormRepo{DB: tx}
}

type LockMode int

const (
	NoLock LockMode = iota
	ForShare
	ForUpdate
)

func (m LockMode) apply(q *gorm.DB) *gorm.DB {
	switch m {
	case ForShare:
		return q.Clauses(clause.Locking{Strength: "SHARE"})
	case ForUpdate:
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	default:
		return q
	}
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s %v", what, id)
	}
	return err
}
