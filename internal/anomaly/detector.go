package anomaly

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"oip/dpaccuracy/internal/entity"
	"oip/dpaccuracy/internal/model"
	"oip/dpaccuracy/pkg/logger"
)

// 检测阈值
const (
	// minStatisticalPoints 统计分析所需的最少历史数据点
	minStatisticalPoints = 10
	// zScoreThreshold 判定统计异常的 z-score 绝对值下限
	zScoreThreshold = 2.5
	// suddenChangeMultiple 近期短窗均值超过基线的倍数，超过判定为突变
	suddenChangeMultiple = 5.0
	// phaseDepartureMultiple 当前值超过相位基线的倍数，超过判定为偏离周期
	phaseDepartureMultiple = 3.0
	// suddenWindow 突变检测的短窗数据点数
	suddenWindow = 3
	// highConfidenceMismatchFraction 高置信 mismatch 占比阈值
	highConfidenceMismatchFraction = 0.5
	// staleFraction stale 差异占比阈值
	staleFraction = 0.3
)

// Detector 异常检测器（诊断层：统计 / 周期 / 阈值三类分析）
type Detector struct {
	logger logger.Logger
	now    func() time.Time
}

// NewDetector 创建异常检测器实例
func NewDetector(log logger.Logger) *Detector {
	return &Detector{
		logger: log,
		now:    time.Now,
	}
}

// Input 检测输入：本次检查的差异批次 + 历史差异时间序列
type Input struct {
	Discrepancies []entity.Discrepancy
	Historical    []model.HistoricalPoint
}

// DetectAnomalies 执行异常检测，返回按置信度排序的去重结果
func (d *Detector) DetectAnomalies(ctx context.Context, input Input) []model.AnomalyResult {
	groups := groupDiscrepancies(input.Discrepancies)
	results := make([]model.AnomalyResult, 0)

	for key, group := range groups {
		history := filterHistory(input.Historical, group[0].EntityType, group[0].FieldName)

		results = append(results, d.statisticalAnalysis(ctx, key, group, history)...)
		results = append(results, d.patternAnalysis(ctx, key, group, history)...)
		results = append(results, d.thresholdAnalysis(ctx, key, group)...)
	}

	ranked := DeduplicateAndRank(results)
	d.logger.Infof(ctx, "[Detector] Analyzed %d discrepancies in %d groups, found %d anomalies",
		len(input.Discrepancies), len(groups), len(ranked))

	return ranked
}

// statisticalAnalysis 统计分析：当前批次规模/严重度相对历史分布的 z-score
func (d *Detector) statisticalAnalysis(ctx context.Context, key string, group []entity.Discrepancy, history []model.HistoricalPoint) []model.AnomalyResult {
	if len(history) < minStatisticalPoints {
		return nil
	}

	var results []model.AnomalyResult

	// 1. 差异数量偏离
	counts := countsOf(history)
	mean := Mean(counts)
	std := StdDev(counts)
	current := float64(len(group))

	if std > 0 {
		z := (current - mean) / std
		if math.Abs(z) > zScoreThreshold {
			results = append(results, model.AnomalyResult{
				EntityID:       key,
				AnomalyType:    model.AnomalyTypeStatistical,
				DeviationScore: math.Abs(z),
				Confidence:     ZScoreToConfidence(z),
				CurrentValue:   current,
				Explanation: fmt.Sprintf("Discrepancy count %.0f is %.1f standard deviations from the historical mean %.1f",
					current, math.Abs(z), mean),
			})
		}
	}

	// 2. 平均严重度评分偏离
	histScores := make([]float64, 0, len(history))
	for _, p := range history {
		histScores = append(histScores, p.SeverityScore)
	}
	scoreMean := Mean(histScores)
	scoreStd := StdDev(histScores)
	currentScore := SeverityScore(group)

	if scoreStd > 0 {
		z := (currentScore - scoreMean) / scoreStd
		if math.Abs(z) > zScoreThreshold {
			results = append(results, model.AnomalyResult{
				EntityID:       key,
				AnomalyType:    model.AnomalyTypeStatistical,
				DeviationScore: math.Abs(z),
				Confidence:     ZScoreToConfidence(z),
				CurrentValue:   currentScore,
				Explanation: fmt.Sprintf("Average severity score %.2f deviates %.1f standard deviations from the historical mean %.2f",
					currentScore, math.Abs(z), scoreMean),
			})
		}
	}

	return results
}

// patternAnalysis 周期分析：偏离周/日周期基线 + 短窗突变
func (d *Detector) patternAnalysis(ctx context.Context, key string, group []entity.Discrepancy, history []model.HistoricalPoint) []model.AnomalyResult {
	var results []model.AnomalyResult
	current := float64(len(group))

	// 1. 周期偏离
	if pattern := DetectTimePattern(history); pattern != nil {
		baseline := PhaseBaseline(history, pattern, d.now())
		if baseline > 0 && current > baseline*phaseDepartureMultiple {
			results = append(results, model.AnomalyResult{
				EntityID:       key,
				AnomalyType:    model.AnomalyTypePattern,
				DeviationScore: current / baseline,
				Confidence:     clampConfidence(pattern.Confidence * 0.95),
				CurrentValue:   current,
				Explanation: fmt.Sprintf("Current count %.0f departs from the expected %s cycle baseline %.1f",
					current, pattern.Type, baseline),
			})
		}
	}

	// 2. 短窗突变
	if len(history) > suddenWindow {
		baseline := Mean(countsOf(history[:len(history)-suddenWindow]))
		recent := Mean(countsOf(history[len(history)-suddenWindow:]))
		if baseline > 0 && recent > baseline*suddenChangeMultiple {
			results = append(results, model.AnomalyResult{
				EntityID:       key,
				AnomalyType:    model.AnomalyTypePattern,
				DeviationScore: recent / baseline,
				Confidence:     0.85,
				CurrentValue:   recent,
				Explanation: fmt.Sprintf("Sudden increase in discrepancies: recent average %.1f is %.1fx the baseline %.1f",
					recent, recent/baseline, baseline),
			})
		}
	}

	return results
}

// thresholdAnalysis 阈值分析：critical 差异 / 高置信 mismatch 占比 / stale 占比
func (d *Detector) thresholdAnalysis(ctx context.Context, key string, group []entity.Discrepancy) []model.AnomalyResult {
	var results []model.AnomalyResult
	total := float64(len(group))
	if total == 0 {
		return nil
	}

	criticalCount := 0
	highConfMismatch := 0
	staleCount := 0
	for _, disc := range group {
		if disc.Severity == entity.SeverityCritical {
			criticalCount++
		}
		if disc.DiscrepancyType == entity.DiscrepancyMismatch && disc.Confidence >= 0.9 {
			highConfMismatch++
		}
		if disc.DiscrepancyType == entity.DiscrepancyStale {
			staleCount++
		}
	}

	if criticalCount > 0 {
		results = append(results, model.AnomalyResult{
			EntityID:       key,
			AnomalyType:    model.AnomalyTypeThreshold,
			DeviationScore: float64(criticalCount),
			Confidence:     1.0,
			CurrentValue:   float64(criticalCount),
			Explanation:    fmt.Sprintf("%d discrepancies with critical severity detected", criticalCount),
		})
	}

	if frac := float64(highConfMismatch) / total; frac >= highConfidenceMismatchFraction {
		results = append(results, model.AnomalyResult{
			EntityID:       key,
			AnomalyType:    model.AnomalyTypeThreshold,
			DeviationScore: frac,
			Confidence:     0.9,
			CurrentValue:   frac * 100,
			Explanation:    fmt.Sprintf("%.0f%% of discrepancies are high-confidence data mismatches", frac*100),
		})
	}

	if frac := float64(staleCount) / total; frac > staleFraction {
		results = append(results, model.AnomalyResult{
			EntityID:       key,
			AnomalyType:    model.AnomalyTypeThreshold,
			DeviationScore: frac,
			Confidence:     0.85,
			CurrentValue:   frac * 100,
			Explanation:    fmt.Sprintf("%.0f%% of sampled data is stale", frac*100),
		})
	}

	return results
}

// DeduplicateAndRank 按 (entityId, anomalyType) 去重保留最高置信度，再按置信度降序排列
func DeduplicateAndRank(results []model.AnomalyResult) []model.AnomalyResult {
	type dedupeKey struct {
		entityID    string
		anomalyType string
	}

	best := make(map[dedupeKey]model.AnomalyResult)
	order := make([]dedupeKey, 0, len(results))
	for _, r := range results {
		k := dedupeKey{r.EntityID, r.AnomalyType}
		existing, ok := best[k]
		if !ok {
			order = append(order, k)
			best[k] = r
			continue
		}
		if r.Confidence > existing.Confidence {
			best[k] = r
		}
	}

	deduped := make([]model.AnomalyResult, 0, len(best))
	for _, k := range order {
		deduped = append(deduped, best[k])
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Confidence > deduped[j].Confidence
	})

	return deduped
}

// groupDiscrepancies 按 (entityType, fieldName) 分组
func groupDiscrepancies(discrepancies []entity.Discrepancy) map[string][]entity.Discrepancy {
	groups := make(map[string][]entity.Discrepancy)
	for _, d := range discrepancies {
		key := GroupKey(d.EntityType, d.FieldName)
		groups[key] = append(groups[key], d)
	}
	return groups
}

// GroupKey 分组键（实体类型标签）
func GroupKey(entityType, fieldName string) string {
	return entityType + ":" + fieldName
}

// filterHistory 过滤出同组历史数据点
func filterHistory(points []model.HistoricalPoint, entityType, fieldName string) []model.HistoricalPoint {
	var matched []model.HistoricalPoint
	for _, p := range points {
		if p.EntityType == entityType && p.FieldName == fieldName {
			matched = append(matched, p)
		}
	}
	return matched
}
