package mysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"oip/dpaccuracy/internal/entity"
)

// RemediationDAO 自动修复数据访问对象（修复日志、同步任务）
type RemediationDAO struct {
	db *gorm.DB
}

// NewRemediationDAO 创建 RemediationDAO 实例
func NewRemediationDAO(db *gorm.DB) *RemediationDAO {
	return &RemediationDAO{db: db}
}

// CreateLog 创建修复日志（执行动作前先落库）
func (dao *RemediationDAO) CreateLog(ctx context.Context, log *entity.RemediationLog) error {
	if err := dao.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create remediation log: %w", err)
	}
	return nil
}

// UpdateLog 更新修复日志状态与结果
func (dao *RemediationDAO) UpdateLog(ctx context.Context, logID, status string, result map[string]interface{}, errMsg string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"completed_at": &now,
	}
	if result != nil {
		updates["result"] = entity.JSONValue(result)
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}

	dbResult := dao.db.WithContext(ctx).
		Model(&entity.RemediationLog{}).
		Where("id = ?", logID).
		Updates(updates)
	if dbResult.Error != nil {
		return fmt.Errorf("failed to update remediation log: %w", dbResult.Error)
	}
	if dbResult.RowsAffected == 0 {
		return fmt.Errorf("remediation log not found: %s", logID)
	}
	return nil
}

// SyncJobStatus 查询同步任务状态
func (dao *RemediationDAO) SyncJobStatus(ctx context.Context, jobID string) (string, error) {
	var job entity.SyncJob
	result := dao.db.WithContext(ctx).Where("id = ?", jobID).First(&job)
	if result.Error != nil {
		return "", fmt.Errorf("failed to get sync job: %w", result.Error)
	}
	return job.Status, nil
}
