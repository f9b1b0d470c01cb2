package anomaly

import (
	"sort"
	"time"

	"oip/dpaccuracy/internal/model"
)

// 周期检测参数
const (
	// minPatternPoints 周期检测所需的最少历史数据点
	minPatternPoints = 14
	// patternRatioThreshold 相位间方差占比阈值，低于该值不认为存在周期
	patternRatioThreshold = 0.6
)

// DetectTimePattern 检测历史序列中的周/日周期基线
//
// 方差占比启发式：把数据点按相位分桶（小时粒度数据按一天内小时分桶，
// 天粒度数据按星期几分桶），计算"相位均值方差 / 总方差"。干净的周期
// 序列大部分方差由相位解释，占比接近 1；无周期的噪声序列占比接近 0。
// 占比即为返回的置信度，不足阈值返回 nil。
func DetectTimePattern(points []model.HistoricalPoint) *model.TimePattern {
	if len(points) < minPatternPoints {
		return nil
	}

	sorted := make([]model.HistoricalPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	patternType := model.PatternWeekly
	phases := 7
	phaseOf := func(t time.Time) int { return int(t.Weekday()) }

	// 中位间隔不超过 2 小时视为小时粒度序列，改测日内周期
	if medianInterval(sorted) <= 2*time.Hour {
		patternType = model.PatternDaily
		phases = 24
		phaseOf = func(t time.Time) int { return t.Hour() }
	}

	counts := make([]float64, len(sorted))
	phaseSums := make([]float64, phases)
	phaseSizes := make([]int, phases)
	for i, p := range sorted {
		counts[i] = float64(p.Count)
		ph := phaseOf(p.Date)
		phaseSums[ph] += float64(p.Count)
		phaseSizes[ph]++
	}

	total := Variance(counts)
	if total <= 0 {
		// 常数序列没有可区分的周期
		return nil
	}

	// 相位均值方差（按相位样本量加权）
	grand := Mean(counts)
	between := 0.0
	for ph := 0; ph < phases; ph++ {
		if phaseSizes[ph] == 0 {
			continue
		}
		phaseMean := phaseSums[ph] / float64(phaseSizes[ph])
		d := phaseMean - grand
		between += float64(phaseSizes[ph]) * d * d
	}
	between /= float64(len(counts))

	ratio := between / total
	if ratio < patternRatioThreshold {
		return nil
	}

	return &model.TimePattern{
		Type:       patternType,
		Confidence: clampConfidence(ratio),
	}
}

// PhaseBaseline 返回指定时间点所在相位的历史均值
func PhaseBaseline(points []model.HistoricalPoint, pattern *model.TimePattern, at time.Time) float64 {
	if pattern == nil {
		return Mean(countsOf(points))
	}

	var want int
	var phaseOf func(time.Time) int
	if pattern.Type == model.PatternDaily {
		want = at.Hour()
		phaseOf = func(t time.Time) int { return t.Hour() }
	} else {
		want = int(at.Weekday())
		phaseOf = func(t time.Time) int { return int(t.Weekday()) }
	}

	var matched []float64
	for _, p := range points {
		if phaseOf(p.Date) == want {
			matched = append(matched, float64(p.Count))
		}
	}
	return Mean(matched)
}

// medianInterval 计算相邻数据点的时间间隔中位数
func medianInterval(sorted []model.HistoricalPoint) time.Duration {
	if len(sorted) < 2 {
		return 0
	}
	intervals := make([]time.Duration, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, sorted[i].Date.Sub(sorted[i-1].Date))
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i] < intervals[j] })
	return intervals[len(intervals)/2]
}

// countsOf 提取数量序列
func countsOf(points []model.HistoricalPoint) []float64 {
	xs := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.Count)
	}
	return xs
}
