package models

// All lists every persisted model in dependency order. Used for sqlite
// auto-migration and test databases; postgres uses the goose migrations.
func All() []any {
	return []any{
		&User{},
		&Promotion{},
		&Event{},
		&EventOrganizer{},
		&EventGuest{},
		&Transaction{},
		&TransactionPromotion{},
		&PromotionUsage{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
