package entity

import (
	"time"

	"gorm.io/datatypes"
)

// AlertRule 告警规则
type AlertRule struct {
	ID             string `gorm:"column:id;primaryKey;type:varchar(64)"`
	OrganizationID string `gorm:"column:organization_id;type:varchar(64);not null;index:idx_org_active"`
	Name           string `gorm:"column:name;type:varchar(128);not null"`

	// 触发条件
	EntityTypes               datatypes.JSONSlice[string] `gorm:"column:entity_types;type:json"` // 为空表示不过滤实体类型
	SeverityThreshold         Severity                    `gorm:"column:severity_threshold;type:varchar(16);not null;default:'high'"`
	AccuracyThreshold         float64                     `gorm:"column:accuracy_threshold;not null"` // 百分比
	DiscrepancyCountThreshold int                         `gorm:"column:discrepancy_count_threshold;not null"`

	// 抑制窗口（秒）：同一规则两次告警的最小间隔
	CheckFrequency   int `gorm:"column:check_frequency;not null;default:3600"`
	EvaluationWindow int `gorm:"column:evaluation_window;not null;default:3600"`

	NotificationChannels datatypes.JSONSlice[string] `gorm:"column:notification_channels;type:json"`
	AutoRemediate        bool                        `gorm:"column:auto_remediate;not null;default:false"`
	IsActive             bool                        `gorm:"column:is_active;not null;default:true;index:idx_org_active"`

	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (AlertRule) TableName() string {
	return "alert_rules"
}

// MatchesEntityType 判断实体类型是否命中规则过滤条件（未配置过滤则全部命中）
func (r *AlertRule) MatchesEntityType(entityType string) bool {
	if len(r.EntityTypes) == 0 {
		return true
	}
	for _, t := range r.EntityTypes {
		if t == entityType {
			return true
		}
	}
	return false
}
