// Package rules implements tenant configuration mutations and entitlement
// reads on top of the version ledger and the snapshot cache.
package rules

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/RulesService/app/models"
	"github.com/ManuelReschke/RulesService/app/repository"
	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"github.com/ManuelReschke/RulesService/internal/pkg/entitlements"
	"github.com/ManuelReschke/RulesService/internal/pkg/events"
	"github.com/ManuelReschke/RulesService/internal/pkg/ledger"
	"github.com/ManuelReschke/RulesService/internal/pkg/pricing"
	"github.com/ManuelReschke/RulesService/internal/pkg/snapshotcache"
	"github.com/ManuelReschke/RulesService/internal/pkg/utils"
)

// Service is the entry point for tenant configuration.
type Service struct {
	repos     *repository.Repositories
	ledger    *ledger.Ledger
	layer     *snapshotcache.Layer
	reader    *snapshotcache.Reader
	publisher events.Publisher
	prices    *pricing.Client
}

func NewService(
	repos *repository.Repositories,
	l *ledger.Ledger,
	layer *snapshotcache.Layer,
	reader *snapshotcache.Reader,
	publisher events.Publisher,
	prices *pricing.Client,
) *Service {
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	return &Service{
		repos:     repos,
		ledger:    l,
		layer:     layer,
		reader:    reader,
		publisher: publisher,
		prices:    prices,
	}
}

// Entitlements returns the tenant's current snapshot and its ETag.
func (s *Service) Entitlements(ctx context.Context, tenantID string) (*snapshotcache.Result, error) {
	return s.reader.Read(ctx, tenantID)
}

// Assignments returns the stored configuration of the tenant.
func (s *Service) Assignments(ctx context.Context, tenantID string) (*AssignmentsView, error) {
	var view *AssignmentsView
	err := s.readTx(ctx, func(repo repository.AssignmentRepository) error {
		tp, err := repo.GetTenantPlan(ctx, tenantID)
		if err != nil {
			return err
		}
		view, err = buildView(ctx, repo, tp)
		return err
	})
	return view, err
}

// AssignPlan creates the tenant's plan assignment at version 1 or changes
// it and bumps the version. Reassigning identical values is a no-op.
func (s *Service) AssignPlan(ctx context.Context, tenantID string, req PlanAssignment) (*AssignmentsView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	meta := datatypes.JSONMap(nonNilMeta(req.Meta))
	oldPlan := ""

	var view *AssignmentsView
	res, err := s.ledger.Mutate(ctx, tenantID,
		func(tx *gorm.DB, current *models.TenantPlan) (ledger.Outcome, error) {
			repo := s.repos.Assignment.WithTx(tx)
			if err := planExists(ctx, tx, req.PlanCode); err != nil {
				return ledger.Unchanged, err
			}

			if current == nil {
				oldPlan = ""
				return ledger.Created, repo.CreateTenantPlan(ctx, &models.TenantPlan{
					TenantID:   tenantID,
					PlanCode:   req.PlanCode,
					PricingRef: req.PricingRef,
					Meta:       meta,
					Version:    1,
				})
			}

			oldPlan = current.PlanCode
			if current.PlanCode == req.PlanCode && sameRef(current.PricingRef, req.PricingRef) && sameJSON(current.Meta, meta) {
				return ledger.Unchanged, nil
			}
			return ledger.Changed, repo.UpdateTenantPlan(ctx, tenantID, map[string]any{
				"plan_code":   req.PlanCode,
				"pricing_ref": req.PricingRef,
				"meta":        meta,
			})
		},
		s.viewInto(ctx, &view),
	)
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, tenantID, res, events.PlanChanged(tenantID, res.Assignment.Version, oldPlan, req.PlanCode))
	return view, nil
}

// UpdateAddons applies add, remove and upsert items in that order as one
// mutation. Unknown addon codes are rejected before anything is written.
func (s *Service) UpdateAddons(ctx context.Context, tenantID string, req AddonChanges) (*AssignmentsView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	changes := map[string]any{}

	var view *AssignmentsView
	res, err := s.ledger.Mutate(ctx, tenantID,
		func(tx *gorm.DB, current *models.TenantPlan) (ledger.Outcome, error) {
			if current == nil {
				return ledger.Unchanged, apperrors.NotFound("tenant %s has no plan assigned", tenantID)
			}
			repo := s.repos.Assignment.WithTx(tx)

			wanted := append([]string{}, req.Add...)
			for _, u := range req.Upsert {
				wanted = append(wanted, u.Code)
			}
			if err := addonsExist(ctx, tx, wanted); err != nil {
				return ledger.Unchanged, err
			}

			existing, err := repo.ListAddons(ctx, tenantID)
			if err != nil {
				return ledger.Unchanged, err
			}
			byCode := make(map[string]*models.TenantAddon, len(existing))
			for i := range existing {
				byCode[existing[i].AddonCode] = &existing[i]
			}

			for _, code := range req.Add {
				if _, ok := byCode[code]; ok {
					continue
				}
				ta := &models.TenantAddon{TenantID: tenantID, AddonCode: code, Qty: 1, Meta: datatypes.JSONMap{}}
				if err := repo.SaveAddon(ctx, ta); err != nil {
					return ledger.Unchanged, err
				}
				byCode[code] = ta
				changes["added_"+code] = true
			}

			for _, code := range req.Remove {
				if _, ok := byCode[code]; !ok {
					continue
				}
				if _, err := repo.DeleteAddon(ctx, tenantID, code); err != nil {
					return ledger.Unchanged, err
				}
				delete(byCode, code)
				changes["removed_"+code] = true
			}

			for _, u := range req.Upsert {
				qty := u.Qty
				if qty == 0 {
					qty = 1
				}
				meta := datatypes.JSONMap(nonNilMeta(u.Meta))
				ta, ok := byCode[u.Code]
				if ok {
					if ta.Qty == qty && sameRef(ta.PricingRef, u.PricingRef) && sameJSON(ta.Meta, meta) {
						continue
					}
					ta.Qty, ta.Meta, ta.PricingRef = qty, meta, u.PricingRef
					changes["updated_"+u.Code] = true
				} else {
					ta = &models.TenantAddon{TenantID: tenantID, AddonCode: u.Code, Qty: qty, Meta: meta, PricingRef: u.PricingRef}
					byCode[u.Code] = ta
					changes["added_"+u.Code] = true
				}
				if err := repo.SaveAddon(ctx, ta); err != nil {
					return ledger.Unchanged, err
				}
			}

			if len(changes) == 0 {
				return ledger.Unchanged, nil
			}
			return ledger.Changed, nil
		},
		s.viewInto(ctx, &view),
	)
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, tenantID, res, events.AddonChanged(tenantID, res.Assignment.Version, changes))
	return view, nil
}

// UpdateOverrides upserts then removes overrides as one mutation. Each
// upserted key is classified as limit, feature or opaque at this point.
func (s *Service) UpdateOverrides(ctx context.Context, tenantID string, req OverrideChanges) (*AssignmentsView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	changes := map[string]any{}

	var view *AssignmentsView
	res, err := s.ledger.Mutate(ctx, tenantID,
		func(tx *gorm.DB, current *models.TenantPlan) (ledger.Outcome, error) {
			if current == nil {
				return ledger.Unchanged, apperrors.NotFound("tenant %s has no plan assigned", tenantID)
			}
			repo := s.repos.Assignment.WithTx(tx)

			plan, err := repository.NewPlanRepository(tx).GetByCode(ctx, current.PlanCode)
			if err != nil {
				return ledger.Unchanged, err
			}
			assigned, err := repo.ListAddons(ctx, tenantID)
			if err != nil {
				return ledger.Unchanged, err
			}
			codes := make([]string, 0, len(assigned))
			for _, ta := range assigned {
				codes = append(codes, ta.AddonCode)
			}
			catalog, err := repository.NewAddonRepository(tx).GetByCodes(ctx, codes)
			if err != nil {
				return ledger.Unchanged, err
			}

			// Classify everything first so a bad item rejects the whole request.
			classified := make([]*entitlements.ClassifiedOverride, 0, len(req.Upsert))
			for _, item := range req.Upsert {
				c, err := entitlements.ClassifyOverride(item.Key, item.Value, plan, catalog)
				if err != nil {
					return ledger.Unchanged, err
				}
				classified = append(classified, c)
			}

			existing, err := repo.ListOverrides(ctx, tenantID)
			if err != nil {
				return ledger.Unchanged, err
			}
			byKey := make(map[string]*models.TenantOverride, len(existing))
			for i := range existing {
				byKey[existing[i].Key] = &existing[i]
			}

			for _, c := range classified {
				o, ok := byKey[c.Key]
				if ok {
					if o.Kind == c.Kind && utils.JSONEqual(o.Value, c.Value) {
						continue
					}
					o.Kind, o.Value = c.Kind, c.Value
					changes["updated_"+c.Key] = true
				} else {
					o = &models.TenantOverride{TenantID: tenantID, Key: c.Key, Kind: c.Kind, Value: c.Value}
					byKey[c.Key] = o
					changes["added_"+c.Key] = true
				}
				if err := repo.SaveOverride(ctx, o); err != nil {
					return ledger.Unchanged, err
				}
			}

			for _, key := range req.Remove {
				if _, ok := byKey[key]; !ok {
					continue
				}
				if _, err := repo.DeleteOverride(ctx, tenantID, key); err != nil {
					return ledger.Unchanged, err
				}
				delete(byKey, key)
				changes["removed_"+key] = true
			}

			if len(changes) == 0 {
				return ledger.Unchanged, nil
			}
			return ledger.Changed, nil
		},
		s.viewInto(ctx, &view),
	)
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, tenantID, res, events.OverrideChanged(tenantID, res.Assignment.Version, changes))
	return view, nil
}

// OverageRefs returns the tenant's overage refs, creating the baseline
// record on first use without a version bump.
func (s *Service) OverageRefs(ctx context.Context, tenantID string) (*OverageRefsView, error) {
	if _, err := s.repos.Assignment.GetTenantPlan(ctx, tenantID); err != nil {
		return nil, err
	}
	refs, err := s.repos.Assignment.EnsureOverageRefs(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	view := overageRefsView(tenantID, refs)
	return &view, nil
}

// UpdateOverageRefs changes the overage rate references. A request that
// leaves both effective references as they are is a no-op.
func (s *Service) UpdateOverageRefs(ctx context.Context, tenantID string, req OverageRefsUpdate) (*AssignmentsView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *models.OveragePriceRefs
	var view *AssignmentsView
	res, err := s.ledger.Mutate(ctx, tenantID,
		func(tx *gorm.DB, current *models.TenantPlan) (ledger.Outcome, error) {
			if current == nil {
				return ledger.Unchanged, apperrors.NotFound("tenant %s has no plan assigned", tenantID)
			}
			repo := s.repos.Assignment.WithTx(tx)

			refs, err := repo.GetOverageRefs(ctx, tenantID)
			if apperrors.IsNotFound(err) {
				refs, err = models.NewBaselineOverageRefs(tenantID), nil
			}
			if err != nil {
				return ledger.Unchanged, err
			}
			before := *refs
			if req.PerStylistRef != nil {
				refs.PerStylistRef = req.PerStylistRef
			}
			if req.PerLocationRef != nil {
				refs.PerLocationRef = req.PerLocationRef
			}
			updated = refs
			if before.PerStylist() == refs.PerStylist() && before.PerLocation() == refs.PerLocation() {
				return ledger.Unchanged, nil
			}
			return ledger.Changed, repo.SaveOverageRefs(ctx, refs)
		},
		s.viewInto(ctx, &view),
	)
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, tenantID, res, events.OverageRefsChanged(tenantID, res.Assignment.Version, updated.PerStylist(), updated.PerLocation()))
	return view, nil
}

// PricePreview prices the tenant's current snapshot for a projected usage.
func (s *Service) PricePreview(ctx context.Context, tenantID string, usage pricing.Usage) (*pricing.Preview, error) {
	if usage.Stylists != nil && *usage.Stylists < 0 {
		return nil, apperrors.Invalid("stylists", "must not be negative")
	}
	if usage.Locations != nil && *usage.Locations < 0 {
		return nil, apperrors.Invalid("locations", "must not be negative")
	}
	res, err := s.reader.Read(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	prices := s.prices.ResolveBatch(ctx, pricing.Refs(res.Snapshot))
	return pricing.BuildPreview(res.Snapshot, prices, usage), nil
}

// afterCommit runs once the ledger transaction has committed: the
// previous version's cache entry is dropped before the caller gets its
// response, then the event goes out. No-ops do neither.
func (s *Service) afterCommit(ctx context.Context, tenantID string, res *ledger.Result, event events.Event) {
	if !res.Changed() {
		return
	}
	s.layer.Invalidate(ctx, tenantID, res.PreviousVersion)
	s.publisher.Publish(ctx, event)
}

func (s *Service) viewInto(ctx context.Context, dst **AssignmentsView) ledger.AfterFunc {
	return func(tx *gorm.DB, current *models.TenantPlan) error {
		view, err := buildView(ctx, s.repos.Assignment.WithTx(tx), current)
		if err != nil {
			return err
		}
		*dst = view
		return nil
	}
}

func (s *Service) readTx(ctx context.Context, fn func(repo repository.AssignmentRepository) error) error {
	return s.ledger.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.repos.Assignment.WithTx(tx))
	})
}

func planExists(ctx context.Context, tx *gorm.DB, code string) error {
	_, err := repository.NewPlanRepository(tx).GetByCode(ctx, code)
	return err
}

func addonsExist(ctx context.Context, tx *gorm.DB, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	found, err := repository.NewAddonRepository(tx).GetByCodes(ctx, codes)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(found))
	for _, a := range found {
		known[a.Code] = struct{}{}
	}
	for _, code := range codes {
		if _, ok := known[code]; !ok {
			return apperrors.NotFound("addon %s not found", code)
		}
	}
	return nil
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameJSON(a, b map[string]any) bool {
	ja, err := utils.MarshalCanonical(nonNilMeta(a))
	if err != nil {
		return false
	}
	jb, err := utils.MarshalCanonical(nonNilMeta(b))
	if err != nil {
		return false
	}
	return string(ja) == string(jb)
}
