// Package catalogrepo is the read side of the menu used at placement. Menu management
// lives elsewhere and fills catalog_items.
package catalogrepo

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemDTO struct {
	ProductID    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RestaurantID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Name         string          `gorm:"size:200;not null"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Available    bool            `gorm:"not null"`
}

func (ItemDTO) TableName() string {
	return "catalog_items"
}

type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

func (c *GormCatalog) GetItem(ctx context.Context, productID kernel.UUID) (ports.CatalogItem, error) {
	if err := productID.Validate(); err != nil {
		return ports.CatalogItem{}, err
	}

	var dto ItemDTO
	if err := c.db.WithContext(ctx).First(&dto, "product_id = ?", productID.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.CatalogItem{}, errs.NewObjectNotFoundError("product", productID.String())
		}
		return ports.CatalogItem{}, err
	}

	price, err := kernel.NewMoney(dto.UnitPrice)
	if err != nil {
		return ports.CatalogItem{}, err
	}
	return ports.CatalogItem{
		ProductID: productID,
		Name:      dto.Name,
		UnitPrice: price,
		Available: dto.Available,
	}, nil
}

// Upsert writes menu rows; used by seeding and tests.
func (c *GormCatalog) Upsert(ctx context.Context, restaurantID kernel.UUID, items ...ports.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	dtos := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, ItemDTO{
			ProductID:    item.ProductID.Bytes(),
			RestaurantID: restaurantID.Bytes(),
			Name:         item.Name,
			UnitPrice:    item.UnitPrice.Amount(),
			Available:    item.Available,
		})
	}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&dtos).Error
}

var _ ports.CatalogLookup = (*GormCatalog)(nil)
