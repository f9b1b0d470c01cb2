package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Alert 告警记录
type Alert struct {
	ID              string `gorm:"column:id;primaryKey;type:varchar(64)"`
	AlertRuleID     string `gorm:"column:alert_rule_id;type:varchar(64);not null;index:idx_rule_created"`
	OrganizationID  string `gorm:"column:organization_id;type:varchar(64);not null;index:idx_org_status"`
	AccuracyCheckID string `gorm:"column:accuracy_check_id;type:varchar(64)"`

	Title    string   `gorm:"column:title;type:varchar(256);not null"`
	Message  string   `gorm:"column:message;type:text"`
	Severity Severity `gorm:"column:severity;type:varchar(16);not null"`

	TriggeredBy  string  `gorm:"column:triggered_by;type:varchar(64)"` // accuracy_score / discrepancy_count / severity
	TriggerValue float64 `gorm:"column:trigger_value"`

	Status            string            `gorm:"column:status;type:varchar(16);not null;default:'active';index:idx_org_status"`
	NotificationsSent int               `gorm:"column:notifications_sent;not null;default:0"`
	Metadata          datatypes.JSONMap `gorm:"column:metadata;type:json"` // 包含 snoozed_until（snoozed 状态时）

	AcknowledgedBy string     `gorm:"column:acknowledged_by;type:varchar(64)"`
	AcknowledgedAt *time.Time `gorm:"column:acknowledged_at"`
	ResolvedAt     *time.Time `gorm:"column:resolved_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null;index:idx_rule_created"`
}

// TableName 指定表名
func (Alert) TableName() string {
	return "alerts"
}

// 告警状态常量
const (
	AlertStatusActive       = "active"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
	AlertStatusSnoozed      = "snoozed"
)

// MetaSnoozedUntil 休眠截止时间在 Metadata 中的键名
const MetaSnoozedUntil = "snoozed_until"

// 触发来源常量
const (
	TriggeredByAccuracyScore    = "accuracy_score"
	TriggeredByDiscrepancyCount = "discrepancy_count"
	TriggeredBySeverity         = "severity"
)
