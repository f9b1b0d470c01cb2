package domains

import (
	"context"
	"encoding/json"
	"fmt"

	"oip/dpaccuracy/internal/domains/common/job"
	"oip/dpaccuracy/internal/domains/common/response"
	"oip/dpaccuracy/internal/scanner"
)

// runCheckPayload run_accuracy_check 业务数据
type runCheckPayload struct {
	CallerID      string `json:"caller_id"`
	IntegrationID string `json:"integration_id"`
	Scope         string `json:"scope"`
}

// handleRunAccuracyCheck 启动准确性检查（后台执行，立即返回 check_id）
func handleRunAccuracyCheck(ctx context.Context, services *Services, meta *job.Meta, payload json.RawMessage) (response.ResultI, error) {
	var p runCheckPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return response.NewTaskResult(nil), fmt.Errorf("invalid run_accuracy_check payload: %w", err)
		}
	}

	checkID, err := services.Scanner.RunCheck(ctx, scanner.CheckConfig{
		CallerID:       p.CallerID,
		OrganizationID: meta.OrgID,
		IntegrationID:  p.IntegrationID,
		Scope:          p.Scope,
	})
	if err != nil {
		return response.NewTaskResult(nil), err
	}

	return response.NewTaskResult(map[string]interface{}{"check_id": checkID}), nil
}

// remediatePayload remediate_discrepancy 业务数据
type remediatePayload struct {
	DiscrepancyID string `json:"discrepancy_id"`
}

// handleRemediateDiscrepancy 修复单条差异
func handleRemediateDiscrepancy(ctx context.Context, services *Services, meta *job.Meta, payload json.RawMessage) (response.ResultI, error) {
	var p remediatePayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return response.NewTaskResult(nil), fmt.Errorf("invalid remediate_discrepancy payload: %w", err)
		}
	}
	if p.DiscrepancyID == "" {
		p.DiscrepancyID = meta.ID
	}
	if p.DiscrepancyID == "" {
		return response.NewTaskResult(nil), fmt.Errorf("discrepancy_id is required")
	}

	result := services.Remediation.RemediateByID(ctx, p.DiscrepancyID)
	if !result.Success {
		return response.NewTaskResult(result), fmt.Errorf("remediation failed: %s", result.Error)
	}
	return response.NewTaskResult(result), nil
}

// batchRemediatePayload batch_remediate 业务数据
type batchRemediatePayload struct {
	DiscrepancyIDs []string `json:"discrepancy_ids"`
}

// handleBatchRemediate 批量修复差异（逐条失败不影响整批确认）
func handleBatchRemediate(ctx context.Context, services *Services, meta *job.Meta, payload json.RawMessage) (response.ResultI, error) {
	var p batchRemediatePayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return response.NewTaskResult(nil), fmt.Errorf("invalid batch_remediate payload: %w", err)
		}
	}

	batch := services.Remediation.BatchRemediate(ctx, p.DiscrepancyIDs)
	return response.NewTaskResult(batch), nil
}

// handleProcessSnoozeExpirations 重新激活 snooze 到期的告警
func handleProcessSnoozeExpirations(ctx context.Context, services *Services, meta *job.Meta, payload json.RawMessage) (response.ResultI, error) {
	reactivated := services.Alerts.ProcessSnoozeExpirations(ctx)
	return response.NewTaskResult(map[string]interface{}{"reactivated": reactivated}), nil
}
