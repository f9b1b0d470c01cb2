package mysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"oip/dpaccuracy/internal/entity"
)

// CheckDAO 准确性检查数据访问对象
type CheckDAO struct {
	db *gorm.DB
}

// NewCheckDAO 创建 CheckDAO 实例
func NewCheckDAO(db *gorm.DB) *CheckDAO {
	return &CheckDAO{db: db}
}

// Create 创建检查记录
func (dao *CheckDAO) Create(ctx context.Context, check *entity.AccuracyCheck) error {
	if err := dao.db.WithContext(ctx).Create(check).Error; err != nil {
		return fmt.Errorf("failed to create accuracy check: %w", err)
	}
	return nil
}

// Get 根据 ID 获取检查记录
func (dao *CheckDAO) Get(ctx context.Context, checkID string) (*entity.AccuracyCheck, error) {
	var check entity.AccuracyCheck
	result := dao.db.WithContext(ctx).Where("id = ?", checkID).First(&check)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get accuracy check: %w", result.Error)
	}
	return &check, nil
}

// MarkCompleted 标记检查完成并写入汇总
func (dao *CheckDAO) MarkCompleted(ctx context.Context, checkID string, summary map[string]interface{}) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       entity.CheckStatusCompleted,
		"summary":      entity.JSONValue(summary),
		"completed_at": &now,
	}

	result := dao.db.WithContext(ctx).
		Model(&entity.AccuracyCheck{}).
		Where("id = ?", checkID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to mark check completed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("accuracy check not found: %s", checkID)
	}
	return nil
}

// MarkFailed 标记检查失败
func (dao *CheckDAO) MarkFailed(ctx context.Context, checkID string, errMsg string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       entity.CheckStatusFailed,
		"error":        errMsg,
		"completed_at": &now,
	}

	result := dao.db.WithContext(ctx).
		Model(&entity.AccuracyCheck{}).
		Where("id = ?", checkID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to mark check failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("accuracy check not found: %s", checkID)
	}
	return nil
}
