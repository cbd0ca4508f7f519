package models

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Plan{},
		&Addon{},
		&Tenant{},
		&TenantPlan{},
		&TenantAddon{},
		&TenantOverride{},
		&OveragePriceRefs{},
	}
}
