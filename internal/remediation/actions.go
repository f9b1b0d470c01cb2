package remediation

import (
	"oip/dpaccuracy/internal/entity"
)

// ActionConfig 修复动作配置（按动作类型取定的带标签联合）
type ActionConfig interface {
	actionConfig()
}

// SyncRetryConfig 重新同步配置
type SyncRetryConfig struct {
	ForceRefresh bool   `json:"force_refresh,omitempty"`
	Operation    string `json:"operation,omitempty"` // create / update
}

func (SyncRetryConfig) actionConfig() {}

// ValueUpdateConfig 值覆写配置
type ValueUpdateConfig struct {
	Field    string      `json:"field"`
	NewValue interface{} `json:"new_value"`
}

func (ValueUpdateConfig) actionConfig() {}

// CacheClearConfig 缓存失效配置
type CacheClearConfig struct{}

func (CacheClearConfig) actionConfig() {}

// Action 已决策的修复动作
type Action struct {
	Type     string // sync_retry / value_update / cache_clear
	Priority string
	Config   ActionConfig
}

// DetermineRemediationAction 纯决策函数：差异 → 修复动作
// 无可用动作返回 nil，由调用方报告 action=none
func DetermineRemediationAction(d *entity.Discrepancy) *Action {
	switch {
	case d.DiscrepancyType == entity.DiscrepancyStale && d.EntityType == entity.EntityTypeInventory:
		return &Action{
			Type:     entity.ActionSyncRetry,
			Priority: entity.PriorityHigh,
			Config:   SyncRetryConfig{ForceRefresh: true},
		}

	case d.DiscrepancyType == entity.DiscrepancyMissing:
		return &Action{
			Type:     entity.ActionSyncRetry,
			Priority: entity.PriorityMedium,
			Config:   SyncRetryConfig{Operation: "create"},
		}

	case d.DiscrepancyType == entity.DiscrepancyMismatch &&
		d.EntityType == entity.EntityTypePricing &&
		d.FieldName == "price":
		return &Action{
			Type:     entity.ActionValueUpdate,
			Priority: entity.PriorityHigh,
			Config: ValueUpdateConfig{
				Field:    d.FieldName,
				NewValue: entity.DecodeJSONValue(d.SourceValue),
			},
		}
	}

	return nil
}
