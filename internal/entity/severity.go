package entity

// Severity 差异严重级别（全序：low < medium < high < critical）
type Severity string

// 严重级别常量
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRanks 级别排序表
var severityRanks = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank 返回级别序号（用于过滤与评分，未知级别视为 low）
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return 0
}

// AtLeast 判断当前级别是否不低于 other
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// MaxSeverity 返回两个级别中较高者
func MaxSeverity(a, b Severity) Severity {
	if a.Rank() >= b.Rank() {
		return a
	}
	return b
}
