package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"oip/dpaccuracy/internal/entity"
	"oip/dpaccuracy/pkg/logger"
)

// RuleStore 告警规则存储契约
type RuleStore interface {
	// GetRule 规则不存在返回 (nil, nil)
	GetRule(ctx context.Context, ruleID string) (*entity.AlertRule, error)
	ActiveRules(ctx context.Context, orgID string) ([]entity.AlertRule, error)
}

// AlertStore 告警存储契约
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *entity.Alert) error
	GetAlert(ctx context.Context, alertID string) (*entity.Alert, error)
	LatestAlertForRule(ctx context.Context, ruleID string) (*entity.Alert, error)
	UpdateAlert(ctx context.Context, alertID string, updates map[string]interface{}) error
	SnoozedAlerts(ctx context.Context) ([]entity.Alert, error)
	CreateNotificationLogs(ctx context.Context, logs []entity.NotificationLog) error
}

// CheckStore 检查记录读取契约（解析检查所属组织）
type CheckStore interface {
	Get(ctx context.Context, checkID string) (*entity.AccuracyCheck, error)
}

// RemediationQueue 自动修复任务投递契约（lmstfy 客户端实现）
type RemediationQueue interface {
	Publish(queue string, data []byte, ttl, delay uint32) error
}

// Manager 告警管理器（决策层）
// 监控侧信道：所有方法捕获错误并转为类型化失败结果，绝不向调用方抛出
type Manager struct {
	rules     RuleStore
	alerts    AlertStore
	checks    CheckStore
	channels  *ChannelRegistry
	queue     RemediationQueue // 可为 nil（未配置自动修复投递）
	queueName string
	logger    logger.Logger
	now       func() time.Time
}

// NewManager 创建告警管理器实例
func NewManager(
	rules RuleStore,
	alerts AlertStore,
	checks CheckStore,
	channels *ChannelRegistry,
	queue RemediationQueue,
	queueName string,
	log logger.Logger,
) *Manager {
	return &Manager{
		rules:     rules,
		alerts:    alerts,
		checks:    checks,
		channels:  channels,
		queue:     queue,
		queueName: queueName,
		logger:    log,
		now:       time.Now,
	}
}

// CreateAlertConfig 告警创建参数
type CreateAlertConfig struct {
	RuleID           string
	AccuracyCheckID  string
	AccuracyScore    float64
	DiscrepancyCount int
	TriggeredBy      string
	TriggerValue     float64
	Metadata         map[string]interface{}
	// 触发规则时命中的差异（autoRemediate 投递用）
	Discrepancies []entity.Discrepancy
}

// CreateAlert 创建告警并排队通知
// 任何错误都被捕获并记录，返回 nil 表示失败（决不抛出）
func (m *Manager) CreateAlert(ctx context.Context, cfg CreateAlertConfig) *entity.Alert {
	rule, err := m.rules.GetRule(ctx, cfg.RuleID)
	if err != nil {
		m.logger.Errorf(ctx, "[AlertManager] Load rule %s failed: %v", cfg.RuleID, err)
		return nil
	}
	if rule == nil {
		m.logger.Warnf(ctx, "[AlertManager] Rule not found, skipping alert: %s", cfg.RuleID)
		return nil
	}

	severity := entity.MaxSeverity(
		severityForAccuracy(cfg.AccuracyScore),
		severityForCount(cfg.DiscrepancyCount),
	)

	alert := &entity.Alert{
		ID:              uuid.New().String(),
		AlertRuleID:     rule.ID,
		OrganizationID:  rule.OrganizationID,
		AccuracyCheckID: cfg.AccuracyCheckID,
		Title:           fmt.Sprintf("%s: data accuracy alert", rule.Name),
		Message:         buildMessage(cfg),
		Severity:        severity,
		TriggeredBy:     cfg.TriggeredBy,
		TriggerValue:    cfg.TriggerValue,
		Status:          entity.AlertStatusActive,
		Metadata:        datatypes.JSONMap(cfg.Metadata),
		CreatedAt:       m.now(),
	}

	if err := m.alerts.CreateAlert(ctx, alert); err != nil {
		m.logger.Errorf(ctx, "[AlertManager] Create alert failed: %v", err)
		return nil
	}

	m.queueNotifications(ctx, rule, alert)

	if rule.AutoRemediate {
		m.enqueueRemediation(ctx, rule, alert, cfg.Discrepancies)
	}

	return alert
}

// queueNotifications 按规则渠道写通知日志（未配置凭证的渠道标记 skipped）
func (m *Manager) queueNotifications(ctx context.Context, rule *entity.AlertRule, alert *entity.Alert) {
	if len(rule.NotificationChannels) == 0 {
		return
	}

	logs := make([]entity.NotificationLog, 0, len(rule.NotificationChannels))
	queued := 0
	for _, channel := range rule.NotificationChannels {
		status := entity.NotificationQueued
		if m.channels != nil && !m.channels.Available(channel) {
			status = entity.NotificationSkipped
		} else {
			queued++
		}
		logs = append(logs, entity.NotificationLog{
			ID:             uuid.New().String(),
			AlertID:        alert.ID,
			OrganizationID: alert.OrganizationID,
			Channel:        channel,
			Status:         status,
			CreatedAt:      m.now(),
		})
	}

	if err := m.alerts.CreateNotificationLogs(ctx, logs); err != nil {
		m.logger.Errorf(ctx, "[AlertManager] Queue notifications failed: %v", err)
		return
	}

	if err := m.alerts.UpdateAlert(ctx, alert.ID, map[string]interface{}{"notifications_sent": queued}); err != nil {
		m.logger.Warnf(ctx, "[AlertManager] Update notifications_sent failed: %v", err)
	}
	alert.NotificationsSent = queued
}

// remediationJob 自动修复任务消息（标准 Job 信封）
type remediationJob struct {
	Payload struct {
		Data struct {
			RequestID  string      `json:"request_id"`
			OrgID      string      `json:"org_id"`
			ActionType string      `json:"action_type"`
			ID         string      `json:"id"`
			Data       interface{} `json:"data"`
		} `json:"data"`
	} `json:"payload"`
}

// enqueueRemediation 为命中的 open 差异投递批量修复任务
func (m *Manager) enqueueRemediation(ctx context.Context, rule *entity.AlertRule, alert *entity.Alert, discrepancies []entity.Discrepancy) {
	if m.queue == nil || m.queueName == "" {
		m.logger.Warnf(ctx, "[AlertManager] Remediation queue not configured, skipping auto-remediation")
		return
	}

	ids := make([]string, 0, len(discrepancies))
	for _, d := range discrepancies {
		if d.Status == entity.DiscrepancyStatusOpen && rule.MatchesEntityType(d.EntityType) {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) == 0 {
		return
	}

	var job remediationJob
	job.Payload.Data.RequestID = uuid.New().String()
	job.Payload.Data.OrgID = alert.OrganizationID
	job.Payload.Data.ActionType = "batch_remediate"
	job.Payload.Data.ID = alert.ID
	job.Payload.Data.Data = map[string]interface{}{"discrepancy_ids": ids}

	data, err := json.Marshal(job)
	if err != nil {
		m.logger.Errorf(ctx, "[AlertManager] Marshal remediation job failed: %v", err)
		return
	}

	// ttl=0 永不过期，delay=0 立即可用
	if err := m.queue.Publish(m.queueName, data, 0, 0); err != nil {
		m.logger.Errorf(ctx, "[AlertManager] Publish remediation job failed: %v", err)
		return
	}

	m.logger.Infof(ctx, "[AlertManager] Auto-remediation queued: alert=%s, discrepancies=%d", alert.ID, len(ids))
}

// severityForAccuracy 准确率映射告警级别
func severityForAccuracy(score float64) entity.Severity {
	switch {
	case score <= 80:
		return entity.SeverityCritical
	case score <= 90:
		return entity.SeverityHigh
	case score <= 95:
		return entity.SeverityMedium
	default:
		return entity.SeverityLow
	}
}

// severityForCount 差异数量映射告警级别
func severityForCount(count int) entity.Severity {
	switch {
	case count >= 100:
		return entity.SeverityCritical
	case count >= 50:
		return entity.SeverityHigh
	case count >= 20:
		return entity.SeverityMedium
	default:
		return entity.SeverityLow
	}
}

// buildMessage 构造人类可读的告警消息（metadata 键名转 Title Case）
func buildMessage(cfg CreateAlertConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Accuracy score %.1f%% with %d discrepancies detected.", cfg.AccuracyScore, cfg.DiscrepancyCount)

	if len(cfg.Metadata) == 0 {
		return b.String()
	}

	keys := make([]string, 0, len(cfg.Metadata))
	for k := range cfg.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, " %s: %v.", HumanizeKey(k), cfg.Metadata[k])
	}
	return b.String()
}

// HumanizeKey snake_case 键名转 Title Case（affected_products → Affected Products）
func HumanizeKey(key string) string {
	parts := strings.Split(key, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
