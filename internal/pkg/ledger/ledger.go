// Package ledger owns the per-tenant configuration version stored on the
// tenant_plans row. Every effective mutation of a tenant's aggregate goes
// through Mutate so the row changes and the version bump commit together.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Outcome tells the ledger what a mutation did.
type Outcome int

const (
	// Unchanged means nothing was written; no bump, no invalidation.
	Unchanged Outcome = iota
	// Changed means rows were written; the version is bumped by one.
	Changed
	// Created means the mutation inserted the tenant_plans row at version 1.
	Created
)

func (o Outcome) String() string {
	switch o {
	case Changed:
		return "changed"
	case Created:
		return "created"
	default:
		return "unchanged"
	}
}

// MutationFunc applies a change inside the ledger transaction. current is
// the locked tenant_plans row, or nil if the tenant has none yet.
type MutationFunc func(tx *gorm.DB, current *models.TenantPlan) (Outcome, error)

// AfterFunc runs in the same transaction after the bump, with the row as
// committed. Use it to read back the state returned to the caller.
type AfterFunc func(tx *gorm.DB, current *models.TenantPlan) error

// Result describes a finished mutation.
type Result struct {
	Outcome         Outcome
	PreviousVersion int
	Assignment      models.TenantPlan
}

// Changed reports whether the mutation had an effect.
func (r *Result) Changed() bool {
	return r.Outcome != Unchanged
}

// Ledger serializes mutations per tenant through row locks on tenant_plans.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// DB returns the handle the ledger runs its transactions on.
func (l *Ledger) DB() *gorm.DB {
	return l.db
}

// Current returns the tenant's version, or a NotFound error.
func (l *Ledger) Current(ctx context.Context, tenantID string) (int, error) {
	var tp models.TenantPlan
	err := l.db.WithContext(ctx).Select("tenant_id", "version").Where("tenant_id = ?", tenantID).First(&tp).Error
	if err != nil {
		return 0, apperrors.FromDB(err, "tenant plan for "+tenantID)
	}
	return tp.Version, nil
}

// Mutate runs fn inside a transaction holding the tenant's row lock and
// bumps the version by exactly one when fn reports Changed. A create that
// loses a race against a concurrent create is retried once, at which point
// fn sees the winner's row.
func (l *Ledger) Mutate(ctx context.Context, tenantID string, fn MutationFunc, after ...AfterFunc) (*Result, error) {
	res, err := l.mutate(ctx, tenantID, fn, after)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		res, err = l.mutate(ctx, tenantID, fn, after)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (l *Ledger) mutate(ctx context.Context, tenantID string, fn MutationFunc, after []AfterFunc) (*Result, error) {
	res := &Result{}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current *models.TenantPlan
		var locked models.TenantPlan
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("tenant_id = ?", tenantID).First(&locked).Error
		switch {
		case err == nil:
			current = &locked
			res.PreviousVersion = locked.Version
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		outcome, err := fn(tx, current)
		if err != nil {
			return err
		}
		res.Outcome = outcome

		switch outcome {
		case Changed:
			if current == nil {
				return apperrors.NotFound("tenant plan for %s not found", tenantID)
			}
			bump := tx.Model(&models.TenantPlan{}).Where("tenant_id = ? AND version = ?", tenantID, current.Version).
				Updates(map[string]any{
					"version":    gorm.Expr("version + 1"),
					"updated_at": l.now(),
				})
			if bump.Error != nil {
				return bump.Error
			}
			if bump.RowsAffected != 1 {
				return apperrors.Conflict("tenant %s changed concurrently", tenantID)
			}
		case Created:
			if current != nil {
				return apperrors.Conflict("tenant plan for %s already exists", tenantID)
			}
		}

		if err := tx.Where("tenant_id = ?", tenantID).First(&res.Assignment).Error; err != nil {
			return apperrors.FromDB(err, "tenant plan for "+tenantID)
		}
		for _, a := range after {
			if err := a(tx, &res.Assignment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
