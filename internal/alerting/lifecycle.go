package alerting

import (
	"context"
	"time"

	"oip/dpaccuracy/internal/entity"
)

// AcknowledgeAlert 确认告警，返回是否成功（决不抛出）
func (m *Manager) AcknowledgeAlert(ctx context.Context, alertID, userID string) bool {
	now := m.now()
	err := m.alerts.UpdateAlert(ctx, alertID, map[string]interface{}{
		"status":          entity.AlertStatusAcknowledged,
		"acknowledged_by": userID,
		"acknowledged_at": &now,
	})
	if err != nil {
		m.logger.Errorf(ctx, "[AlertManager] Acknowledge alert %s failed: %v", alertID, err)
		return false
	}
	return true
}

// ResolveAlert 解决告警，返回是否成功（决不抛出）
func (m *Manager) ResolveAlert(ctx context.Context, alertID string) bool {
	now := m.now()
	err := m.alerts.UpdateAlert(ctx, alertID, map[string]interface{}{
		"status":      entity.AlertStatusResolved,
		"resolved_at": &now,
	})
	if err != nil {
		m.logger.Errorf(ctx, "[AlertManager] Resolve alert %s failed: %v", alertID, err)
		return false
	}
	return true
}

// SnoozeAlert 休眠告警到指定时间
// snoozed_until 合并进现有 metadata，其余键保持不变
func (m *Manager) SnoozeAlert(ctx context.Context, alertID string, until time.Time) bool {
	alert, err := m.alerts.GetAlert(ctx, alertID)
	if err != nil {
		m.logger.Errorf(ctx, "[AlertManager] Snooze alert %s failed: %v", alertID, err)
		return false
	}

	metadata := map[string]interface{}{}
	for k, v := range alert.Metadata {
		metadata[k] = v
	}
	metadata[entity.MetaSnoozedUntil] = until.UTC().Format(time.RFC3339)

	err = m.alerts.UpdateAlert(ctx, alertID, map[string]interface{}{
		"status":   entity.AlertStatusSnoozed,
		"metadata": entity.JSONValue(metadata),
	})
	if err != nil {
		m.logger.Errorf(ctx, "[AlertManager] Snooze alert %s failed: %v", alertID, err)
		return false
	}
	return true
}

// ProcessSnoozeExpirations 重新激活休眠到期的告警，返回激活数量
// 无休眠告警是正常情况而不是错误；单条失败不影响其余告警
func (m *Manager) ProcessSnoozeExpirations(ctx context.Context) int {
	alerts, err := m.alerts.SnoozedAlerts(ctx)
	if err != nil {
		m.logger.Errorf(ctx, "[AlertManager] List snoozed alerts failed: %v", err)
		return 0
	}
	if len(alerts) == 0 {
		return 0
	}

	now := m.now()
	reactivated := 0
	for _, alert := range alerts {
		until, ok := snoozedUntil(alert.Metadata)
		if !ok || until.After(now) {
			continue
		}

		// 只移除 snoozed_until，其余 metadata 保持不变
		metadata := map[string]interface{}{}
		for k, v := range alert.Metadata {
			if k == entity.MetaSnoozedUntil {
				continue
			}
			metadata[k] = v
		}

		err := m.alerts.UpdateAlert(ctx, alert.ID, map[string]interface{}{
			"status":   entity.AlertStatusActive,
			"metadata": entity.JSONValue(metadata),
		})
		if err != nil {
			m.logger.Errorf(ctx, "[AlertManager] Reactivate alert %s failed: %v", alert.ID, err)
			continue
		}
		reactivated++
	}

	if reactivated > 0 {
		m.logger.Infof(ctx, "[AlertManager] Reactivated %d snoozed alerts", reactivated)
	}
	return reactivated
}

// snoozedUntil 从 metadata 解析休眠截止时间
func snoozedUntil(metadata map[string]interface{}) (time.Time, bool) {
	raw, ok := metadata[entity.MetaSnoozedUntil]
	if !ok {
		return time.Time{}, false
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
