package entity

import "time"

// SyncJob 集成同步任务（由连接器触发，状态可轮询）
type SyncJob struct {
	ID            string `gorm:"column:id;primaryKey;type:varchar(64)"`
	IntegrationID string `gorm:"column:integration_id;type:varchar(64);not null;index:idx_integration"`
	EntityType    string `gorm:"column:entity_type;type:varchar(32);not null"`
	EntityID      string `gorm:"column:entity_id;type:varchar(64)"`

	Status string `gorm:"column:status;type:varchar(16);not null;default:'pending'"`
	Error  string `gorm:"column:error;type:varchar(512)"`

	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

// TableName 指定表名
func (SyncJob) TableName() string {
	return "sync_jobs"
}

// 同步任务状态常量
const (
	SyncJobPending   = "pending"
	SyncJobRunning   = "running"
	SyncJobCompleted = "completed"
	SyncJobFailed    = "failed"
)
