package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"oip/dpaccuracy/internal/entity"
)

// AlertDAO 告警数据访问对象（规则、告警、通知日志）
type AlertDAO struct {
	db *gorm.DB
}

// NewAlertDAO 创建 AlertDAO 实例
func NewAlertDAO(db *gorm.DB) *AlertDAO {
	return &AlertDAO{db: db}
}

// GetRule 根据 ID 获取规则（不存在返回 nil，不报错）
func (dao *AlertDAO) GetRule(ctx context.Context, ruleID string) (*entity.AlertRule, error) {
	var rule entity.AlertRule
	result := dao.db.WithContext(ctx).Where("id = ?", ruleID).First(&rule)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get alert rule: %w", result.Error)
	}
	return &rule, nil
}

// ActiveRules 获取组织的全部启用规则
func (dao *AlertDAO) ActiveRules(ctx context.Context, orgID string) ([]entity.AlertRule, error) {
	var rules []entity.AlertRule
	result := dao.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Find(&rules)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list active rules: %w", result.Error)
	}
	return rules, nil
}

// CreateAlert 创建告警
func (dao *AlertDAO) CreateAlert(ctx context.Context, alert *entity.Alert) error {
	if err := dao.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// GetAlert 根据 ID 获取告警
func (dao *AlertDAO) GetAlert(ctx context.Context, alertID string) (*entity.Alert, error) {
	var alert entity.Alert
	result := dao.db.WithContext(ctx).Where("id = ?", alertID).First(&alert)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get alert: %w", result.Error)
	}
	return &alert, nil
}

// LatestAlertForRule 获取规则最近一次告警（抑制窗口判断，无记录返回 nil）
func (dao *AlertDAO) LatestAlertForRule(ctx context.Context, ruleID string) (*entity.Alert, error) {
	var alert entity.Alert
	result := dao.db.WithContext(ctx).
		Where("alert_rule_id = ?", ruleID).
		Order("created_at DESC").
		First(&alert)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest alert: %w", result.Error)
	}
	return &alert, nil
}

// UpdateAlert 更新告警字段
func (dao *AlertDAO) UpdateAlert(ctx context.Context, alertID string, updates map[string]interface{}) error {
	result := dao.db.WithContext(ctx).
		Model(&entity.Alert{}).
		Where("id = ?", alertID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("alert not found: %s", alertID)
	}
	return nil
}

// SnoozedAlerts 获取全部休眠中的告警
func (dao *AlertDAO) SnoozedAlerts(ctx context.Context) ([]entity.Alert, error) {
	var alerts []entity.Alert
	result := dao.db.WithContext(ctx).
		Where("status = ?", entity.AlertStatusSnoozed).
		Find(&alerts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list snoozed alerts: %w", result.Error)
	}
	return alerts, nil
}

// CreateNotificationLogs 批量写入通知日志（每告警每渠道一条）
func (dao *AlertDAO) CreateNotificationLogs(ctx context.Context, logs []entity.NotificationLog) error {
	if len(logs) == 0 {
		return nil
	}
	if err := dao.db.WithContext(ctx).Create(&logs).Error; err != nil {
		return fmt.Errorf("failed to create notification logs: %w", err)
	}
	return nil
}
