package entity

import (
	"time"

	"gorm.io/datatypes"
)

// RemediationLog 自动修复执行日志
type RemediationLog struct {
	ID             string `gorm:"column:id;primaryKey;type:varchar(64)"`
	DiscrepancyID  string `gorm:"column:discrepancy_id;type:varchar(64);not null;index:idx_discrepancy"`
	OrganizationID string `gorm:"column:organization_id;type:varchar(64);not null"`

	ActionType   string         `gorm:"column:action_type;type:varchar(32);not null"`
	ActionConfig datatypes.JSON `gorm:"column:action_config;type:json"`
	Priority     string         `gorm:"column:priority;type:varchar(16);not null;default:'medium'"`

	Status string         `gorm:"column:status;type:varchar(16);not null;default:'pending'"`
	Result datatypes.JSON `gorm:"column:result;type:json"`
	Error  string         `gorm:"column:error;type:varchar(512)"`

	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

// TableName 指定表名
func (RemediationLog) TableName() string {
	return "remediation_log"
}

// 修复动作类型常量
const (
	ActionSyncRetry   = "sync_retry"
	ActionValueUpdate = "value_update"
	ActionCacheClear  = "cache_clear"
	ActionNone        = "none"
)

// 修复执行状态常量
const (
	RemediationStatusPending   = "pending"
	RemediationStatusExecuting = "executing"
	RemediationStatusSuccess   = "success"
	RemediationStatusFailed    = "failed"
)

// 修复优先级常量
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)
