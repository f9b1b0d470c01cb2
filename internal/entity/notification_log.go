package entity

import "time"

// NotificationLog 通知投递日志（每个告警每个渠道一条，实际投递由外部系统完成）
type NotificationLog struct {
	ID             string `gorm:"column:id;primaryKey;type:varchar(64)"`
	AlertID        string `gorm:"column:alert_id;type:varchar(64);not null;index:idx_alert"`
	OrganizationID string `gorm:"column:organization_id;type:varchar(64);not null"`

	Channel string `gorm:"column:channel;type:varchar(32);not null"` // email / sms / webhook / in_app
	Status  string `gorm:"column:status;type:varchar(16);not null;default:'queued'"`
	Error   string `gorm:"column:error;type:varchar(512)"`

	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName 指定表名
func (NotificationLog) TableName() string {
	return "notification_log"
}

// 通知状态常量
const (
	NotificationQueued  = "queued"
	NotificationSkipped = "skipped" // 渠道未配置凭证
)
