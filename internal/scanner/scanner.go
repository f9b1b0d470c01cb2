package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"oip/dpaccuracy/internal/connector"
	"oip/dpaccuracy/internal/entity"
	"oip/dpaccuracy/internal/events"
	"oip/dpaccuracy/pkg/errorutil"
	"oip/dpaccuracy/pkg/logger"
)

// CheckStore 检查记录存储契约
type CheckStore interface {
	Create(ctx context.Context, check *entity.AccuracyCheck) error
	Get(ctx context.Context, checkID string) (*entity.AccuracyCheck, error)
	MarkCompleted(ctx context.Context, checkID string, summary map[string]interface{}) error
	MarkFailed(ctx context.Context, checkID string, errMsg string) error
}

// DiscrepancyStore 差异记录存储契约
type DiscrepancyStore interface {
	BulkInsert(ctx context.Context, discrepancies []entity.Discrepancy) error
}

// CatalogStore 本地源数据存储契约
type CatalogStore interface {
	GetIntegration(ctx context.Context, id string) (*entity.Integration, error)
	ActiveIntegrations(ctx context.Context, orgID string) ([]entity.Integration, error)
	SampleProducts(ctx context.Context, orgID string, limit int) ([]entity.CatalogProduct, error)
	InventoryLevels(ctx context.Context, orgID string) (map[string]entity.InventoryLevel, error)
	PriceRecords(ctx context.Context, orgID string) (map[string]entity.PriceRecord, error)
}

// Options 扫描器参数
type Options struct {
	SampleSize       int           // 每个集成抽样的商品数
	StalenessWindow  time.Duration // 同步过期窗口
	ProgressInterval int           // 每处理多少个集成发一次进度事件
}

// Scanner 差异扫描器
type Scanner struct {
	checks     CheckStore
	discs      DiscrepancyStore
	catalog    CatalogStore
	connectors *connector.Registry
	bus        *events.Bus
	logger     logger.Logger
	opts       Options
	now        func() time.Time

	mu      sync.Mutex
	running map[string]*scanHandle
}

// scanHandle 检查的后台扫描句柄（协作式取消 + Join）
type scanHandle struct {
	cancel  context.CancelFunc
	done    chan struct{}
	aborted *atomic.Bool
}

// NewScanner 创建扫描器实例
func NewScanner(
	checks CheckStore,
	discs DiscrepancyStore,
	catalog CatalogStore,
	connectors *connector.Registry,
	bus *events.Bus,
	log logger.Logger,
	opts Options,
) *Scanner {
	if opts.SampleSize <= 0 {
		opts.SampleSize = 100
	}
	if opts.StalenessWindow <= 0 {
		opts.StalenessWindow = 72 * time.Hour
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 1
	}

	return &Scanner{
		checks:     checks,
		discs:      discs,
		catalog:    catalog,
		connectors: connectors,
		bus:        bus,
		logger:     log,
		opts:       opts,
		now:        time.Now,
		running:    make(map[string]*scanHandle),
	}
}

// CheckConfig 检查配置
type CheckConfig struct {
	CallerID       string // 调用方身份（为空则拒绝）
	OrganizationID string
	IntegrationID  string // 为空表示扫描全部启用集成
	Scope          string // products/inventory/pricing/full（默认 full）
}

// RunCheck 启动一次准确性检查
// 创建检查记录后立即返回 ID，扫描在后台独立协程执行，调用方通过事件观测进度
func (s *Scanner) RunCheck(ctx context.Context, cfg CheckConfig) (string, error) {
	if cfg.CallerID == "" {
		return "", errorutil.ErrNotAuthenticated
	}
	if cfg.OrganizationID == "" {
		return "", errorutil.ErrOrganizationNotSet
	}

	scope := cfg.Scope
	if scope == "" {
		scope = entity.ScopeFull
	}

	check := &entity.AccuracyCheck{
		ID:             uuid.New().String(),
		OrganizationID: cfg.OrganizationID,
		IntegrationID:  cfg.IntegrationID,
		Scope:          scope,
		Status:         entity.CheckStatusRunning,
		StartedAt:      s.now(),
	}

	if err := s.checks.Create(ctx, check); err != nil {
		return "", fmt.Errorf("create accuracy check failed: %w", err)
	}

	// 扫描使用独立 Context：调用方返回后扫描继续，取消只经由 AbortCheck
	scanCtx, cancel := context.WithCancel(context.Background())
	scanCtx = context.WithValue(scanCtx, logger.CtxKeyCheckID, check.ID)

	handle := &scanHandle{
		cancel:  cancel,
		done:    make(chan struct{}),
		aborted: atomic.NewBool(false),
	}

	s.mu.Lock()
	s.running[check.ID] = handle
	s.mu.Unlock()

	s.bus.Publish(ctx, events.CheckStarted{
		CheckID:        check.ID,
		OrganizationID: check.OrganizationID,
		Scope:          check.Scope,
	})

	go s.runScan(scanCtx, check, handle)

	return check.ID, nil
}

// AbortCheck 中止进行中的检查（协作式：扫描循环在步骤间感知取消）
func (s *Scanner) AbortCheck(checkID string) error {
	s.mu.Lock()
	handle, ok := s.running[checkID]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", errorutil.ErrCheckNotFound, checkID)
	}

	handle.aborted.Store(true)
	handle.cancel()
	return nil
}

// Wait 等待指定检查的后台扫描结束（测试与优雅退出用）
func (s *Scanner) Wait(checkID string) {
	s.mu.Lock()
	handle, ok := s.running[checkID]
	s.mu.Unlock()

	if ok {
		<-handle.done
	}
}

// WaitAll 等待全部进行中的扫描结束
func (s *Scanner) WaitAll() {
	s.mu.Lock()
	handles := make([]*scanHandle, 0, len(s.running))
	for _, h := range s.running {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		<-h.done
	}
}

// runScan 后台扫描主循环
func (s *Scanner) runScan(ctx context.Context, check *entity.AccuracyCheck, handle *scanHandle) {
	defer func() {
		s.mu.Lock()
		delete(s.running, check.ID)
		s.mu.Unlock()
		close(handle.done)
	}()

	s.logger.Infof(ctx, "[Scanner] Scan started: check=%s, scope=%s", check.ID, check.Scope)

	integrations, err := s.resolveIntegrations(ctx, check)
	if err != nil {
		s.fail(ctx, check.ID, err.Error())
		return
	}

	var discrepancies []entity.Discrepancy
	totalCompared := 0

	for i, integ := range integrations {
		// 集成之间感知取消
		if s.cancelled(ctx, check.ID, handle) {
			return
		}

		found, compared, scanErr := s.scanIntegration(ctx, check, &integ)
		if scanErr != nil {
			// 单个集成失败不终止整体检查
			s.logger.Warnf(ctx, "[Scanner] Integration %s scan failed, skipping: %v", integ.ID, scanErr)
		} else {
			discrepancies = append(discrepancies, found...)
			totalCompared += compared
		}

		if (i+1)%s.opts.ProgressInterval == 0 || i+1 == len(integrations) {
			s.bus.Publish(ctx, events.CheckProgress{
				CheckID:   check.ID,
				Processed: i + 1,
				Total:     len(integrations),
			})
		}
	}

	if s.cancelled(ctx, check.ID, handle) {
		return
	}

	if err := s.discs.BulkInsert(ctx, discrepancies); err != nil {
		s.fail(ctx, check.ID, fmt.Sprintf("persist discrepancies failed: %v", err))
		return
	}

	score := AccuracyScore(totalCompared, len(discrepancies))
	summary := map[string]interface{}{
		"total_compared":      totalCompared,
		"discrepancies_found": len(discrepancies),
		"accuracy_score":      score,
	}
	if err := s.checks.MarkCompleted(ctx, check.ID, summary); err != nil {
		s.fail(ctx, check.ID, fmt.Sprintf("mark check completed failed: %v", err))
		return
	}

	s.bus.Publish(ctx, events.CheckCompleted{
		CheckID:            check.ID,
		DiscrepanciesFound: len(discrepancies),
		AccuracyScore:      score,
	})

	s.logger.Infof(ctx, "[Scanner] Scan completed: check=%s, compared=%d, found=%d, score=%.1f",
		check.ID, totalCompared, len(discrepancies), score)
}

// cancelled 检查取消状态，中止时落终态并发事件
func (s *Scanner) cancelled(ctx context.Context, checkID string, handle *scanHandle) bool {
	select {
	case <-ctx.Done():
	default:
		return false
	}

	msg := ctx.Err().Error()
	if handle.aborted.Load() {
		msg = errorutil.ErrCheckAborted.Error()
	}
	s.fail(ctx, checkID, msg)
	return true
}

// fail 将检查标记为失败并发布失败事件
// 落库使用独立 Context：检查被取消后仍需写入终态
func (s *Scanner) fail(ctx context.Context, checkID, errMsg string) {
	storeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.checks.MarkFailed(storeCtx, checkID, errMsg); err != nil {
		s.logger.Errorf(ctx, "[Scanner] Mark check failed error: %v", err)
	}
	s.bus.Publish(ctx, events.CheckFailed{CheckID: checkID, Error: errMsg})
	s.logger.Warnf(ctx, "[Scanner] Scan failed: check=%s, error=%s", checkID, errMsg)
}

// resolveIntegrations 解析本次检查要扫描的集成列表
func (s *Scanner) resolveIntegrations(ctx context.Context, check *entity.AccuracyCheck) ([]entity.Integration, error) {
	if check.IntegrationID != "" {
		integ, err := s.catalog.GetIntegration(ctx, check.IntegrationID)
		if err != nil {
			return nil, fmt.Errorf("resolve integration failed: %w", err)
		}
		return []entity.Integration{*integ}, nil
	}

	integrations, err := s.catalog.ActiveIntegrations(ctx, check.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("list integrations failed: %w", err)
	}
	return integrations, nil
}

// scanIntegration 扫描单个集成，返回发现的差异与比对条数
func (s *Scanner) scanIntegration(ctx context.Context, check *entity.AccuracyCheck, integ *entity.Integration) ([]entity.Discrepancy, int, error) {
	conn, err := s.connectors.Lookup(integ.Provider)
	if err != nil {
		return nil, 0, err
	}

	var found []entity.Discrepancy
	compared := 0

	scopes := []string{check.Scope}
	if check.Scope == entity.ScopeFull {
		scopes = []string{entity.ScopeProducts, entity.ScopeInventory, entity.ScopePricing}
	}

	for _, scope := range scopes {
		if err := ctx.Err(); err != nil {
			return found, compared, err
		}

		var ds []entity.Discrepancy
		var n int
		var scanErr error

		switch scope {
		case entity.ScopeProducts:
			ds, n, scanErr = s.scanProducts(ctx, check, integ, conn)
		case entity.ScopeInventory:
			ds, n, scanErr = s.scanInventory(ctx, check, integ, conn)
		case entity.ScopePricing:
			ds, n, scanErr = s.scanPricing(ctx, check, integ, conn)
		default:
			scanErr = fmt.Errorf("unknown scope: %s", scope)
		}

		if scanErr != nil {
			return found, compared, scanErr
		}
		found = append(found, ds...)
		compared += n
	}

	return found, compared, nil
}
