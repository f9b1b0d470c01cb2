package remediation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"oip/dpaccuracy/internal/connector"
	"oip/dpaccuracy/internal/entity"
	"oip/dpaccuracy/internal/model"
	"oip/dpaccuracy/pkg/logger"
)

// MaxChangesPerRun 单次批量修复处理的差异上限（速率限制）
const MaxChangesPerRun = 100

// DiscrepancyStore 差异记录存储契约
type DiscrepancyStore interface {
	Get(ctx context.Context, id string) (*entity.Discrepancy, error)
	GetByIDs(ctx context.Context, ids []string) ([]entity.Discrepancy, error)
	MarkResolved(ctx context.Context, id string) error
}

// CheckStore 检查记录存储契约（用于归属校验）
type CheckStore interface {
	Get(ctx context.Context, checkID string) (*entity.AccuracyCheck, error)
}

// IntegrationStore 集成配置存储契约
type IntegrationStore interface {
	GetIntegration(ctx context.Context, id string) (*entity.Integration, error)
}

// LogStore 修复日志存储契约
type LogStore interface {
	CreateLog(ctx context.Context, log *entity.RemediationLog) error
	UpdateLog(ctx context.Context, logID, status string, result map[string]interface{}, errMsg string) error
}

// SyncJobStore 同步任务状态查询契约
type SyncJobStore interface {
	SyncJobStatus(ctx context.Context, jobID string) (string, error)
}

// Cache 缓存失效契约
type Cache interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Options 修复服务参数
type Options struct {
	PollInterval time.Duration // 同步任务状态轮询间隔
	SyncTimeout  time.Duration // 同步任务等待上限
}

// Service 自动修复服务（对外永不抛出异常，失败以结果形式返回）
type Service struct {
	discs        DiscrepancyStore
	checks       CheckStore
	integrations IntegrationStore
	logs         LogStore
	syncJobs     SyncJobStore
	connectors   *connector.Registry
	cache        Cache
	logger       logger.Logger
	opts         Options
}

// NewService 创建修复服务实例
func NewService(
	discs DiscrepancyStore,
	checks CheckStore,
	integrations IntegrationStore,
	logs LogStore,
	syncJobs SyncJobStore,
	connectors *connector.Registry,
	cache Cache,
	log logger.Logger,
	opts Options,
) *Service {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = 30 * time.Second
	}

	return &Service{
		discs:        discs,
		checks:       checks,
		integrations: integrations,
		logs:         logs,
		syncJobs:     syncJobs,
		connectors:   connectors,
		cache:        cache,
		logger:       log,
		opts:         opts,
	}
}

// AttemptRemediation 尝试修复单条差异
// 先落修复日志再执行动作；任何失败（含 panic）都转化为失败结果返回
func (s *Service) AttemptRemediation(ctx context.Context, d *entity.Discrepancy) (result *model.RemediationResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf(ctx, "[Remediation] Panic recovered: discrepancy=%s, err=%v", d.ID, r)
			result = &model.RemediationResult{
				Success: false,
				Action:  entity.ActionNone,
				Error:   fmt.Sprintf("remediation panic: %v", r),
			}
		}
	}()

	action := DetermineRemediationAction(d)

	log := &entity.RemediationLog{
		ID:             uuid.New().String(),
		DiscrepancyID:  d.ID,
		OrganizationID: d.OrganizationID,
		ActionType:     entity.ActionNone,
		Priority:       entity.PriorityLow,
		Status:         entity.RemediationStatusPending,
		CreatedAt:      time.Now(),
	}
	if action != nil {
		log.ActionType = action.Type
		log.Priority = action.Priority
		log.ActionConfig = entity.JSONValue(action.Config)
	}

	if err := s.logs.CreateLog(ctx, log); err != nil {
		s.logger.Errorf(ctx, "[Remediation] Create log failed: discrepancy=%s, err=%v", d.ID, err)
		return &model.RemediationResult{
			Success: false,
			Action:  log.ActionType,
			Error:   "Failed to create remediation log",
		}
	}

	if action == nil {
		s.finishLog(ctx, log.ID, nil, "No remediation action available")
		return &model.RemediationResult{
			Success: false,
			Action:  entity.ActionNone,
			Error:   "No remediation action available",
		}
	}

	s.logger.Infof(ctx, "[Remediation] Executing: discrepancy=%s, action=%s, priority=%s",
		d.ID, action.Type, action.Priority)

	var res *model.RemediationResult
	switch cfg := action.Config.(type) {
	case SyncRetryConfig:
		res = s.executeSyncRetry(ctx, d, cfg)
	case ValueUpdateConfig:
		res = s.executeValueUpdate(ctx, d, cfg)
	case CacheClearConfig:
		res = s.executeCacheClear(ctx, d)
	default:
		res = &model.RemediationResult{
			Success: false,
			Action:  action.Type,
			Error:   fmt.Sprintf("unsupported action config: %T", action.Config),
		}
	}

	s.finishLog(ctx, log.ID, res.Detail, res.Error)

	if res.Success {
		if err := s.discs.MarkResolved(ctx, d.ID); err != nil {
			s.logger.Warnf(ctx, "[Remediation] Mark discrepancy resolved failed: %s, err=%v", d.ID, err)
		}
	}

	return res
}

// RemediateByID 按差异 ID 加载并尝试修复（队列 Handler 入口）
func (s *Service) RemediateByID(ctx context.Context, discrepancyID string) *model.RemediationResult {
	d, err := s.discs.Get(ctx, discrepancyID)
	if err != nil {
		s.logger.Errorf(ctx, "[Remediation] Load discrepancy failed: %s, err=%v", discrepancyID, err)
		return &model.RemediationResult{
			Success: false,
			Action:  entity.ActionNone,
			Error:   fmt.Sprintf("load discrepancy failed: %v", err),
		}
	}
	return s.AttemptRemediation(ctx, d)
}

// BatchRemediate 批量修复：按 ID 解析差异并逐条尝试，受单次上限约束
// 未找到的 ID 计入失败，保证 success + failed == total
func (s *Service) BatchRemediate(ctx context.Context, discrepancyIDs []string) *model.BatchRemediationResult {
	ids := discrepancyIDs
	if len(ids) > MaxChangesPerRun {
		s.logger.Warnf(ctx, "[Remediation] Batch truncated: requested=%d, limit=%d", len(ids), MaxChangesPerRun)
		ids = ids[:MaxChangesPerRun]
	}

	batch := &model.BatchRemediationResult{Total: len(ids)}
	if len(ids) == 0 {
		return batch
	}

	found, err := s.discs.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Errorf(ctx, "[Remediation] Load discrepancies failed: %v", err)
		batch.Failed = len(ids)
		return batch
	}

	byID := make(map[string]*entity.Discrepancy, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			s.logger.Warnf(ctx, "[Remediation] Discrepancy not found, counted as failed: %s", id)
			batch.Failed++
			continue
		}
		if s.AttemptRemediation(ctx, d).Success {
			batch.Success++
		} else {
			batch.Failed++
		}
	}

	s.logger.Infof(ctx, "[Remediation] Batch finished: total=%d, success=%d, failed=%d",
		batch.Total, batch.Success, batch.Failed)
	return batch
}

// finishLog 落修复日志终态（失败仅记日志，不影响结果返回）
func (s *Service) finishLog(ctx context.Context, logID string, detail map[string]interface{}, errMsg string) {
	status := entity.RemediationStatusSuccess
	if errMsg != "" {
		status = entity.RemediationStatusFailed
	}
	if err := s.logs.UpdateLog(ctx, logID, status, detail, errMsg); err != nil {
		s.logger.Warnf(ctx, "[Remediation] Update log failed: %s, err=%v", logID, err)
	}
}
