package mysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"oip/dpaccuracy/internal/entity"
	"oip/dpaccuracy/internal/model"
)

// DiscrepancyDAO 差异记录数据访问对象
type DiscrepancyDAO struct {
	db *gorm.DB
}

// NewDiscrepancyDAO 创建 DiscrepancyDAO 实例
func NewDiscrepancyDAO(db *gorm.DB) *DiscrepancyDAO {
	return &DiscrepancyDAO{db: db}
}

// BulkInsert 批量写入差异记录（扫描完成时一次性落库）
func (dao *DiscrepancyDAO) BulkInsert(ctx context.Context, discrepancies []entity.Discrepancy) error {
	if len(discrepancies) == 0 {
		return nil
	}
	if err := dao.db.WithContext(ctx).CreateInBatches(discrepancies, 100).Error; err != nil {
		return fmt.Errorf("failed to bulk insert discrepancies: %w", err)
	}
	return nil
}

// Get 根据 ID 获取差异记录
func (dao *DiscrepancyDAO) Get(ctx context.Context, id string) (*entity.Discrepancy, error) {
	var d entity.Discrepancy
	result := dao.db.WithContext(ctx).Where("id = ?", id).First(&d)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get discrepancy: %w", result.Error)
	}
	return &d, nil
}

// GetByIDs 批量获取差异记录（缺失 ID 不报错，由调用方对账）
func (dao *DiscrepancyDAO) GetByIDs(ctx context.Context, ids []string) ([]entity.Discrepancy, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []entity.Discrepancy
	result := dao.db.WithContext(ctx).Where("id IN ?", ids).Find(&list)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get discrepancies: %w", result.Error)
	}
	return list, nil
}

// ListByCheck 获取某次检查的全部差异
func (dao *DiscrepancyDAO) ListByCheck(ctx context.Context, checkID string) ([]entity.Discrepancy, error) {
	var list []entity.Discrepancy
	result := dao.db.WithContext(ctx).Where("accuracy_check_id = ?", checkID).Find(&list)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list discrepancies: %w", result.Error)
	}
	return list, nil
}

// MarkResolved 标记差异已解决
func (dao *DiscrepancyDAO) MarkResolved(ctx context.Context, id string) error {
	now := time.Now()
	result := dao.db.WithContext(ctx).
		Model(&entity.Discrepancy{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      entity.DiscrepancyStatusResolved,
			"resolved_at": &now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark discrepancy resolved: %w", result.Error)
	}
	return nil
}

// HistoricalCounts 聚合历史差异时间序列（异常检测输入）
// 按天、实体类型、字段聚合窗口内的差异数量和平均严重度
func (dao *DiscrepancyDAO) HistoricalCounts(ctx context.Context, orgID string, since time.Time) ([]model.HistoricalPoint, error) {
	var rows []historicalCountRow
	result := dao.db.WithContext(ctx).
		Model(&entity.Discrepancy{}).
		Select("DATE(detected_at) AS day, entity_type, field_name, COUNT(*) AS count, " +
			"AVG(CASE severity WHEN 'critical' THEN 1.0 WHEN 'high' THEN 0.7 WHEN 'medium' THEN 0.4 ELSE 0.1 END) AS severity_score").
		Where("organization_id = ? AND detected_at >= ?", orgID, since).
		Group("DATE(detected_at), entity_type, field_name").
		Order("day").
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to aggregate historical counts: %w", result.Error)
	}

	points := make([]model.HistoricalPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, model.HistoricalPoint{
			Date:          r.Day,
			EntityType:    r.EntityType,
			FieldName:     r.FieldName,
			Count:         r.Count,
			SeverityScore: r.SeverityScore,
		})
	}
	return points, nil
}

// historicalCountRow 单日单分组的聚合扫描行
type historicalCountRow struct {
	Day           time.Time `gorm:"column:day"`
	EntityType    string    `gorm:"column:entity_type"`
	FieldName     string    `gorm:"column:field_name"`
	Count         int       `gorm:"column:count"`
	SeverityScore float64   `gorm:"column:severity_score"`
}
