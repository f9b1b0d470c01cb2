package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Discrepancy 单条数据差异（源系统 vs 镜像系统，单实体单字段）
// 创建后除 Status/ResolvedAt 外不可变更
type Discrepancy struct {
	ID              string `gorm:"column:id;primaryKey;type:varchar(64)"`
	AccuracyCheckID string `gorm:"column:accuracy_check_id;type:varchar(64);not null;index:idx_check"`
	OrganizationID  string `gorm:"column:organization_id;type:varchar(64);not null;index:idx_org"`
	IntegrationID   string `gorm:"column:integration_id;type:varchar(64)"`

	EntityType string `gorm:"column:entity_type;type:varchar(32);not null"`
	EntityID   string `gorm:"column:entity_id;type:varchar(64);not null"`
	FieldName  string `gorm:"column:field_name;type:varchar(64);not null"`

	SourceValue datatypes.JSON `gorm:"column:source_value;type:json"`
	TargetValue datatypes.JSON `gorm:"column:target_value;type:json"`

	DiscrepancyType string   `gorm:"column:discrepancy_type;type:varchar(16);not null"`
	Severity        Severity `gorm:"column:severity;type:varchar(16);not null"`
	Confidence      float64  `gorm:"column:confidence;not null"` // [0,1]

	Status     string            `gorm:"column:status;type:varchar(16);not null;default:'open'"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata;type:json"`
	DetectedAt time.Time         `gorm:"column:detected_at;not null;index:idx_detected_at"`
	ResolvedAt *time.Time        `gorm:"column:resolved_at"`
}

// TableName 指定表名
func (Discrepancy) TableName() string {
	return "discrepancies"
}

// 差异类型常量
const (
	DiscrepancyMissing   = "missing"
	DiscrepancyMismatch  = "mismatch"
	DiscrepancyStale     = "stale"
	DiscrepancyDuplicate = "duplicate"
)

// 差异状态常量
const (
	DiscrepancyStatusOpen     = "open"
	DiscrepancyStatusResolved = "resolved"
)

// 实体类型常量
const (
	EntityTypeProduct   = "product"
	EntityTypeInventory = "inventory"
	EntityTypePricing   = "pricing"
)
