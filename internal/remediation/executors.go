package remediation

import (
	"context"
	"fmt"
	"time"

	"oip/dpaccuracy/internal/connector"
	"oip/dpaccuracy/internal/entity"
	"oip/dpaccuracy/internal/model"
)

// resolveConnector 经检查记录做归属校验后解析集成与连接器
func (s *Service) resolveConnector(ctx context.Context, d *entity.Discrepancy) (*entity.Integration, connector.Connector, error) {
	check, err := s.checks.Get(ctx, d.AccuracyCheckID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve check failed: %w", err)
	}
	if check.OrganizationID != d.OrganizationID {
		return nil, nil, fmt.Errorf("organization mismatch: check=%s, discrepancy=%s",
			check.OrganizationID, d.OrganizationID)
	}

	integrationID := d.IntegrationID
	if integrationID == "" {
		integrationID = check.IntegrationID
	}
	if integrationID == "" {
		return nil, nil, fmt.Errorf("integration not resolvable for discrepancy: %s", d.ID)
	}

	integ, err := s.integrations.GetIntegration(ctx, integrationID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve integration failed: %w", err)
	}

	conn, err := s.connectors.Lookup(integ.Provider)
	if err != nil {
		return nil, nil, err
	}
	return integ, conn, nil
}

// executeSyncRetry 触发一次实体同步并轮询任务状态直至完成、失败或超时
func (s *Service) executeSyncRetry(ctx context.Context, d *entity.Discrepancy, cfg SyncRetryConfig) *model.RemediationResult {
	fail := func(errMsg string) *model.RemediationResult {
		return &model.RemediationResult{Success: false, Action: entity.ActionSyncRetry, Error: errMsg}
	}

	integ, conn, err := s.resolveConnector(ctx, d)
	if err != nil {
		return fail(err.Error())
	}

	jobID, err := conn.TriggerSync(ctx, integ.ID, d.EntityType, d.EntityID, connector.SyncOptions{
		ForceRefresh: cfg.ForceRefresh,
		Operation:    cfg.Operation,
	})
	if err != nil {
		return fail(fmt.Sprintf("trigger sync failed: %v", err))
	}

	deadline := time.NewTimer(s.opts.SyncTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fail(fmt.Sprintf("sync job wait cancelled: %v", ctx.Err()))
		case <-deadline.C:
			return fail(fmt.Sprintf("sync job timeout after %s: job=%s", s.opts.SyncTimeout, jobID))
		case <-ticker.C:
		}

		status, err := s.syncJobs.SyncJobStatus(ctx, jobID)
		if err != nil {
			s.logger.Warnf(ctx, "[Remediation] Poll sync job failed: job=%s, err=%v", jobID, err)
			continue
		}

		switch status {
		case entity.SyncJobCompleted:
			return &model.RemediationResult{
				Success: true,
				Action:  entity.ActionSyncRetry,
				Detail:  map[string]interface{}{"sync_job_id": jobID},
			}
		case entity.SyncJobFailed:
			return fail(fmt.Sprintf("sync job failed: job=%s", jobID))
		}
	}
}

// executeValueUpdate 将源系统的值写回镜像系统：安全校验 → 写入 → 回读验证
func (s *Service) executeValueUpdate(ctx context.Context, d *entity.Discrepancy, cfg ValueUpdateConfig) *model.RemediationResult {
	fail := func(errMsg string) *model.RemediationResult {
		return &model.RemediationResult{Success: false, Action: entity.ActionValueUpdate, Error: errMsg}
	}

	integ, conn, err := s.resolveConnector(ctx, d)
	if err != nil {
		return fail(err.Error())
	}

	previous, err := conn.ReadField(ctx, integ.ID, d.EntityType, d.EntityID, cfg.Field)
	if err != nil {
		return fail(fmt.Sprintf("read current value failed: %v", err))
	}

	if !IsUpdateSafe(d.EntityType, cfg.Field, cfg.NewValue) {
		return fail("Update failed safety validation")
	}

	if err := conn.WriteField(ctx, integ.ID, d.EntityType, d.EntityID, cfg.Field, cfg.NewValue); err != nil {
		return fail(fmt.Sprintf("write field failed: %v", err))
	}

	written, err := conn.ReadField(ctx, integ.ID, d.EntityType, d.EntityID, cfg.Field)
	if err != nil {
		return fail(fmt.Sprintf("read back failed: %v", err))
	}
	if !ValuesMatch(written, cfg.NewValue) {
		return fail("Update verification failed")
	}

	return &model.RemediationResult{
		Success: true,
		Action:  entity.ActionValueUpdate,
		Detail: map[string]interface{}{
			"field":          cfg.Field,
			"previous_value": previous,
			"new_value":      cfg.NewValue,
		},
	}
}

// executeCacheClear 按实体失效相关缓存键（含列表与准确性聚合的通配模式）
func (s *Service) executeCacheClear(ctx context.Context, d *entity.Discrepancy) *model.RemediationResult {
	keys := []string{
		fmt.Sprintf("%s:%s", d.EntityType, d.EntityID),
		fmt.Sprintf("%s:list:*", d.EntityType),
		fmt.Sprintf("accuracy:%s:*", d.EntityType),
	}

	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		return &model.RemediationResult{
			Success: false,
			Action:  entity.ActionCacheClear,
			Error:   fmt.Sprintf("cache invalidate failed: %v", err),
		}
	}

	return &model.RemediationResult{
		Success: true,
		Action:  entity.ActionCacheClear,
		Detail:  map[string]interface{}{"cleared_keys": keys},
	}
}
