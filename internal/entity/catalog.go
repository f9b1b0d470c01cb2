package entity

import "time"

// CatalogProduct 本地商品记录（系统源数据，扫描时作为基准）
type CatalogProduct struct {
	ID             string `gorm:"column:id;primaryKey;type:varchar(64)"`
	OrganizationID string `gorm:"column:organization_id;type:varchar(64);not null;index:idx_org"`
	SKU            string `gorm:"column:sku;type:varchar(64);not null"`
	Name           string `gorm:"column:name;type:varchar(255);not null"`

	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (CatalogProduct) TableName() string {
	return "catalog_products"
}

// InventoryLevel 本地库存记录
type InventoryLevel struct {
	ID             string `gorm:"column:id;primaryKey;type:varchar(64)"`
	OrganizationID string `gorm:"column:organization_id;type:varchar(64);not null;index:idx_org"`
	ProductID      string `gorm:"column:product_id;type:varchar(64);not null"`
	Quantity       int64  `gorm:"column:quantity;not null"`
	Reserved       int64  `gorm:"column:reserved;not null;default:0"`

	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (InventoryLevel) TableName() string {
	return "inventory_levels"
}

// PriceRecord 本地价格记录
type PriceRecord struct {
	ID             string  `gorm:"column:id;primaryKey;type:varchar(64)"`
	OrganizationID string  `gorm:"column:organization_id;type:varchar(64);not null;index:idx_org"`
	ProductID      string  `gorm:"column:product_id;type:varchar(64);not null"`
	Price          float64 `gorm:"column:price;not null"`
	Cost           float64 `gorm:"column:cost"`

	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (PriceRecord) TableName() string {
	return "price_records"
}
