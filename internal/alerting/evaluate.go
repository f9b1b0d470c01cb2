package alerting

import (
	"context"
	"fmt"
	"time"

	"oip/dpaccuracy/internal/entity"
)

// triggerDecision 规则评估结果
type triggerDecision struct {
	Triggered    bool
	TriggeredBy  string
	TriggerValue float64
	Reason       string
}

// EvaluateAlertRules 对完成的检查评估全部启用规则，返回创建的告警 ID 列表
// 任何错误都被捕获并记录，返回空列表（决不抛出）
func (m *Manager) EvaluateAlertRules(ctx context.Context, checkID string, accuracyScore float64, discrepancies []entity.Discrepancy) []string {
	check, err := m.checks.Get(ctx, checkID)
	if err != nil {
		m.logger.Errorf(ctx, "[AlertManager] Resolve check %s failed: %v", checkID, err)
		return []string{}
	}

	rules, err := m.rules.ActiveRules(ctx, check.OrganizationID)
	if err != nil {
		m.logger.Errorf(ctx, "[AlertManager] Load active rules failed: %v", err)
		return []string{}
	}

	created := make([]string, 0)
	for i := range rules {
		rule := &rules[i]
		decision := m.shouldTriggerAlert(ctx, rule, accuracyScore, discrepancies)
		if !decision.Triggered {
			m.logger.Debugf(ctx, "[AlertManager] Rule %s not triggered: %s", rule.ID, decision.Reason)
			continue
		}

		m.logger.Infof(ctx, "[AlertManager] Rule %s triggered: %s", rule.ID, decision.Reason)

		filtered := filterByEntityTypes(discrepancies, rule)
		alert := m.CreateAlert(ctx, CreateAlertConfig{
			RuleID:           rule.ID,
			AccuracyCheckID:  checkID,
			AccuracyScore:    accuracyScore,
			DiscrepancyCount: len(filtered),
			TriggeredBy:      decision.TriggeredBy,
			TriggerValue:     decision.TriggerValue,
			Metadata: map[string]interface{}{
				"trigger_reason":    decision.Reason,
				"affected_entities": len(filtered),
			},
			Discrepancies: filtered,
		})
		if alert != nil {
			created = append(created, alert.ID)
		}
	}

	return created
}

// shouldTriggerAlert 判断规则是否触发（含抑制窗口检查）
func (m *Manager) shouldTriggerAlert(ctx context.Context, rule *entity.AlertRule, accuracyScore float64, discrepancies []entity.Discrepancy) triggerDecision {
	// 抑制窗口：checkFrequency 秒内同一规则只告警一次
	latest, err := m.alerts.LatestAlertForRule(ctx, rule.ID)
	if err != nil {
		m.logger.Errorf(ctx, "[AlertManager] Suppression lookup failed for rule %s: %v", rule.ID, err)
		return triggerDecision{Reason: "suppression lookup failed"}
	}
	if latest != nil {
		window := time.Duration(rule.CheckFrequency) * time.Second
		if age := m.now().Sub(latest.CreatedAt); age < window {
			return triggerDecision{
				Reason: fmt.Sprintf("suppressed: alert %s created %.0fs ago, within %.0fs window",
					latest.ID, age.Seconds(), window.Seconds()),
			}
		}
	}

	filtered := filterByEntityTypes(discrepancies, rule)

	if accuracyScore < rule.AccuracyThreshold {
		return triggerDecision{
			Triggered:    true,
			TriggeredBy:  entity.TriggeredByAccuracyScore,
			TriggerValue: accuracyScore,
			Reason: fmt.Sprintf("accuracy score %.1f%% below threshold %.1f%%",
				accuracyScore, rule.AccuracyThreshold),
		}
	}

	if len(filtered) > rule.DiscrepancyCountThreshold {
		return triggerDecision{
			Triggered:    true,
			TriggeredBy:  entity.TriggeredByDiscrepancyCount,
			TriggerValue: float64(len(filtered)),
			Reason: fmt.Sprintf("discrepancy count %d exceeds threshold %d",
				len(filtered), rule.DiscrepancyCountThreshold),
		}
	}

	for _, d := range filtered {
		if d.Severity.AtLeast(rule.SeverityThreshold) {
			return triggerDecision{
				Triggered:    true,
				TriggeredBy:  entity.TriggeredBySeverity,
				TriggerValue: float64(d.Severity.Rank()),
				Reason: fmt.Sprintf("discrepancy %s severity %s meets threshold %s",
					d.ID, d.Severity, rule.SeverityThreshold),
			}
		}
	}

	return triggerDecision{Reason: "no trigger condition met"}
}

// filterByEntityTypes 按规则实体类型过滤差异
func filterByEntityTypes(discrepancies []entity.Discrepancy, rule *entity.AlertRule) []entity.Discrepancy {
	if len(rule.EntityTypes) == 0 {
		return discrepancies
	}
	var filtered []entity.Discrepancy
	for _, d := range discrepancies {
		if rule.MatchesEntityType(d.EntityType) {
			filtered = append(filtered, d)
		}
	}
	return filtered
}
