package model

import "time"

// 异常类型常量
const (
	AnomalyTypeStatistical = "statistical"
	AnomalyTypePattern     = "pattern"
	AnomalyTypeThreshold   = "threshold"
)

// AnomalyResult 单条异常检测结果
type AnomalyResult struct {
	EntityID       string  `json:"entity_id"`     // 实体类型标签（entityType:fieldName）
	AnomalyType    string  `json:"anomaly_type"`  // statistical / pattern / threshold
	DeviationScore float64 `json:"deviation_score"`
	Confidence     float64 `json:"confidence"` // [0,1]
	CurrentValue   float64 `json:"current_value"`
	Explanation    string  `json:"explanation"`
}

// HistoricalPoint 历史差异时间序列数据点（按天聚合）
type HistoricalPoint struct {
	Date          time.Time `json:"date"`
	EntityType    string    `json:"entity_type"`
	FieldName     string    `json:"field_name"`
	Count         int       `json:"count"`
	SeverityScore float64   `json:"severity_score"`
}

// TimePattern 周期模式检测结果
type TimePattern struct {
	Type       string  `json:"type"` // weekly / daily
	Confidence float64 `json:"confidence"`
}

// 周期类型常量
const (
	PatternWeekly = "weekly"
	PatternDaily  = "daily"
)
