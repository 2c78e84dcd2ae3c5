package domain

import (
	"time"

	"gorm.io/gorm"
)

// Product is a catalog item managed through the back office.
// Price is stored in minor currency units (e.g. cents).
type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"size:255;index" json:"name"`
	CategoryID  int64          `gorm:"index" json:"category_id"`
	Category    *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Description string         `json:"description"`
	Price       int64          `json:"price"`
	Stock       int            `json:"stock"`
	IsEnabled   bool           `json:"is_enabled"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "products"
}
