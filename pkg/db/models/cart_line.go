package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one cart position as the checkout reads it. The cart service
// owns these rows; checkout treats them as immutable for the duration of a
// session.
type CartLine struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionID   string          `gorm:"column:session_id;not null;index" json:"-"`
	VariantID   uuid.UUID       `gorm:"column:variant_id;type:uuid;not null" json:"variant_id"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	ProductName string          `gorm:"column:product_name;not null" json:"product_name"`
	Quantity    int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	WarehouseID *string         `gorm:"column:warehouse_id" json:"warehouse_id,omitempty"`
	Oversized   bool            `gorm:"column:oversized;not null;default:false" json:"oversized"`
	ImageURL    string          `gorm:"column:image_url" json:"image_url,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

// TableName pins the table gorm maps CartLine onto.
func (CartLine) TableName() string {
	return "cart_lines"
}
