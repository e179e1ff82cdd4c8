package postgres

import (
	"orderflow/internal/adapters/out/postgres/catalogrepo"
	"orderflow/internal/adapters/out/postgres/chatrepo"
	"orderflow/internal/adapters/out/postgres/courierrepo"
	"orderflow/internal/adapters/out/postgres/deliveryrepo"
	"orderflow/internal/adapters/out/postgres/eventrepo"
	"orderflow/internal/adapters/out/postgres/failurerepo"
	"orderflow/internal/adapters/out/postgres/kitchenrepo"
	"orderflow/internal/adapters/out/postgres/orderrepo"
	"orderflow/internal/adapters/out/postgres/paymentrepo"

	"gorm.io/gorm"
)

// Models lists every table the service owns: the lifecycle core first, then the
// collaborator stores.
func Models() []any {
	models := orderrepo.Models()
	models = append(models,
		&eventrepo.EventDTO{},
		&deliveryrepo.DeliveryDTO{},
		&failurerepo.FailureDTO{},
		&catalogrepo.ItemDTO{},
		&kitchenrepo.TicketDTO{},
		&chatrepo.ChatDTO{},
	)
	models = append(models, paymentrepo.Models()...)
	return append(models, courierrepo.Models()...)
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
