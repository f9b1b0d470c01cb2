package entity

import (
	"time"

	"gorm.io/datatypes"
)

// AccuracyCheck 准确性检查记录（一次扫描任务）
type AccuracyCheck struct {
	ID             string `gorm:"column:id;primaryKey;type:varchar(64)"`
	OrganizationID string `gorm:"column:organization_id;type:varchar(64);not null;index:idx_org_status"`
	IntegrationID  string `gorm:"column:integration_id;type:varchar(64)"` // 为空表示扫描全部集成

	Scope  string `gorm:"column:scope;type:varchar(16);not null"`
	Status string `gorm:"column:status;type:varchar(16);not null;default:'running';index:idx_org_status"`
	Error  string `gorm:"column:error;type:varchar(512)"`

	// 完成后的汇总数据
	Summary datatypes.JSONMap `gorm:"column:summary;type:json"`

	StartedAt   time.Time  `gorm:"column:started_at;not null;index:idx_started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

// TableName 指定表名
func (AccuracyCheck) TableName() string {
	return "accuracy_checks"
}

// 检查状态常量
const (
	CheckStatusRunning   = "running"
	CheckStatusCompleted = "completed"
	CheckStatusFailed    = "failed"
)

// 检查范围常量
const (
	ScopeProducts  = "products"
	ScopeInventory = "inventory"
	ScopePricing   = "pricing"
	ScopeFull      = "full"
)
