package pipeline

import (
	"context"
	"sync"
	"time"

	"oip/dpaccuracy/internal/alerting"
	"oip/dpaccuracy/internal/anomaly"
	"oip/dpaccuracy/internal/entity"
	"oip/dpaccuracy/internal/events"
	"oip/dpaccuracy/internal/model"
	"oip/dpaccuracy/pkg/logger"
)

// historyWindow 异常检测使用的历史差异时间窗
const historyWindow = 90 * 24 * time.Hour

// DiscrepancyStore 差异读取契约
type DiscrepancyStore interface {
	ListByCheck(ctx context.Context, checkID string) ([]entity.Discrepancy, error)
	HistoricalCounts(ctx context.Context, orgID string, since time.Time) ([]model.HistoricalPoint, error)
}

// CheckStore 检查记录读取契约
type CheckStore interface {
	Get(ctx context.Context, checkID string) (*entity.AccuracyCheck, error)
}

// Followup 检查完成后的后续处理：异常检测 → 告警规则评估
// 订阅事件总线的 check:completed，模仿检查协程独立运行
type Followup struct {
	discs    DiscrepancyStore
	checks   CheckStore
	detector *anomaly.Detector
	alerts   *alerting.Manager
	bus      *events.Bus
	logger   logger.Logger
	now      func() time.Time

	wg sync.WaitGroup
}

// NewFollowup 创建后续处理器
func NewFollowup(
	discs DiscrepancyStore,
	checks CheckStore,
	detector *anomaly.Detector,
	alerts *alerting.Manager,
	bus *events.Bus,
	log logger.Logger,
) *Followup {
	return &Followup{
		discs:    discs,
		checks:   checks,
		detector: detector,
		alerts:   alerts,
		bus:      bus,
		logger:   log,
		now:      time.Now,
	}
}

// Start 启动事件订阅循环（ctx 取消后退出）
func (f *Followup) Start(ctx context.Context) {
	ch := f.bus.Subscribe(events.KindCheckCompleted, 16)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			select {
			case <-ctx.Done():
				f.logger.Infof(ctx, "[Followup] Stopped")
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				completed, isCompleted := ev.(events.CheckCompleted)
				if !isCompleted {
					continue
				}
				f.handleCompleted(ctx, completed)
			}
		}
	}()
}

// Wait 等待订阅循环退出
func (f *Followup) Wait() {
	f.wg.Wait()
}

// handleCompleted 对完成的检查执行异常检测与告警评估
func (f *Followup) handleCompleted(ctx context.Context, ev events.CheckCompleted) {
	ctx = context.WithValue(ctx, logger.CtxKeyCheckID, ev.CheckID)

	check, err := f.checks.Get(ctx, ev.CheckID)
	if err != nil {
		f.logger.Errorf(ctx, "[Followup] Load check failed: %v", err)
		return
	}

	discrepancies, err := f.discs.ListByCheck(ctx, ev.CheckID)
	if err != nil {
		f.logger.Errorf(ctx, "[Followup] Load discrepancies failed: %v", err)
		return
	}

	history, err := f.discs.HistoricalCounts(ctx, check.OrganizationID, f.now().Add(-historyWindow))
	if err != nil {
		// 历史缺失只影响统计/周期分析，阈值分析照常进行
		f.logger.Warnf(ctx, "[Followup] Load historical counts failed: %v", err)
	}

	anomalies := f.detector.DetectAnomalies(ctx, anomaly.Input{
		Discrepancies: discrepancies,
		Historical:    history,
	})
	for _, a := range anomalies {
		f.logger.Warnf(ctx, "[Followup] Anomaly detected: entity=%s, type=%s, confidence=%.2f, %s",
			a.EntityID, a.AnomalyType, a.Confidence, a.Explanation)
	}

	created := f.alerts.EvaluateAlertRules(ctx, ev.CheckID, ev.AccuracyScore, discrepancies)
	f.logger.Infof(ctx, "[Followup] Check postprocessing done: anomalies=%d, alerts=%d",
		len(anomalies), len(created))
}
