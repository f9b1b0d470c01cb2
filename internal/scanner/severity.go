package scanner

import "oip/dpaccuracy/internal/entity"

// AccuracyScore 准确率评分：一致记录占抽样总数的百分比
// total<=0 时视为全部一致，返回 100
func AccuracyScore(total, badCount int) float64 {
	if total <= 0 {
		return 100
	}
	return float64(total-badCount) / float64(total) * 100
}

// InventorySeverity 按数量偏差百分比映射库存差异级别
func InventorySeverity(percentDelta float64) entity.Severity {
	switch {
	case percentDelta >= 50:
		return entity.SeverityCritical
	case percentDelta >= 20:
		return entity.SeverityHigh
	case percentDelta >= 5:
		return entity.SeverityMedium
	default:
		return entity.SeverityLow
	}
}

// PricingSeverity 按价格偏差百分比映射价格差异级别
func PricingSeverity(percentDelta float64) entity.Severity {
	switch {
	case percentDelta >= 10:
		return entity.SeverityCritical
	case percentDelta >= 5:
		return entity.SeverityHigh
	case percentDelta >= 1:
		return entity.SeverityMedium
	default:
		return entity.SeverityLow
	}
}

// percentDelta 计算相对偏差百分比（基准为 0 时返回 100）
func percentDelta(current, expected float64) float64 {
	diff := current - expected
	if diff < 0 {
		diff = -diff
	}
	base := expected
	if base < 0 {
		base = -base
	}
	if base == 0 {
		if diff == 0 {
			return 0
		}
		return 100
	}
	return diff / base * 100
}
