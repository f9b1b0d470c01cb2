package anomaly

import (
	"math"

	"oip/dpaccuracy/internal/entity"
)

// Mean 算术平均（空输入返回 0）
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Variance 方差（平方偏差均值，空输入返回 0）
func Variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}

// StdDev 标准差（空或单元素输入返回 0）
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return math.Sqrt(Variance(xs))
}

// ZScoreToConfidence 将 z-score 绝对值映射为置信度（符号无关）
func ZScoreToConfidence(z float64) float64 {
	abs := math.Abs(z)
	switch {
	case abs >= 3:
		return 0.99
	case abs >= 2.5:
		return 0.95
	case abs >= 2:
		return 0.90
	case abs >= 1.5:
		return 0.80
	default:
		return 0.70
	}
}

// severityWeights 严重级别权重
var severityWeights = map[entity.Severity]float64{
	entity.SeverityCritical: 1.0,
	entity.SeverityHigh:     0.7,
	entity.SeverityMedium:   0.4,
	entity.SeverityLow:      0.1,
}

// SeverityScore 加权平均严重度评分（空输入返回 0）
func SeverityScore(discrepancies []entity.Discrepancy) float64 {
	if len(discrepancies) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range discrepancies {
		sum += severityWeights[d.Severity]
	}
	return sum / float64(len(discrepancies))
}

// clampConfidence 将置信度收敛到 [0,1]
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
