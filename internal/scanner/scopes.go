package scanner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"oip/dpaccuracy/internal/connector"
	"oip/dpaccuracy/internal/entity"
)

// scanProducts 商品范围扫描：本地商品抽样 vs 镜像商品映射
func (s *Scanner) scanProducts(ctx context.Context, check *entity.AccuracyCheck, integ *entity.Integration, conn connector.Connector) ([]entity.Discrepancy, int, error) {
	products, err := s.catalog.SampleProducts(ctx, check.OrganizationID, s.opts.SampleSize)
	if err != nil {
		return nil, 0, fmt.Errorf("sample products failed: %w", err)
	}

	mappings, err := conn.ProductMappings(ctx, integ.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch product mappings failed: %w", err)
	}

	var found []entity.Discrepancy
	for _, p := range products {
		mapping, ok := mappings[p.ID]
		if !ok {
			found = append(found, s.newDiscrepancy(check, integ, entity.EntityTypeProduct, p.ID, "mapping",
				p.SKU, nil, entity.DiscrepancyMissing, entity.SeverityHigh, 1.0, nil))
			continue
		}

		// SKU 是标识字段，不一致按 critical 处理
		if mapping.SKU != p.SKU {
			found = append(found, s.newDiscrepancy(check, integ, entity.EntityTypeProduct, p.ID, "sku",
				p.SKU, mapping.SKU, entity.DiscrepancyMismatch, entity.SeverityCritical, 1.0, nil))
		}

		if mapping.Name != p.Name {
			sim := StringSimilarity(p.Name, mapping.Name)
			found = append(found, s.newDiscrepancy(check, integ, entity.EntityTypeProduct, p.ID, "name",
				p.Name, mapping.Name, entity.DiscrepancyMismatch, entity.SeverityMedium, 1.0-sim,
				map[string]interface{}{"similarity": sim}))
		}
	}

	return found, len(products), nil
}

// scanInventory 库存范围扫描：同步历史数量 + 未同步增减 vs 本地当前数量
func (s *Scanner) scanInventory(ctx context.Context, check *entity.AccuracyCheck, integ *entity.Integration, conn connector.Connector) ([]entity.Discrepancy, int, error) {
	states, err := conn.InventoryStates(ctx, integ.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch inventory states failed: %w", err)
	}

	levels, err := s.catalog.InventoryLevels(ctx, check.OrganizationID)
	if err != nil {
		return nil, 0, fmt.Errorf("list inventory levels failed: %w", err)
	}

	var found []entity.Discrepancy
	compared := 0
	for _, state := range states {
		local, ok := levels[state.ProductID]
		if !ok {
			continue
		}
		compared++

		// 同步过期检查
		syncAge := s.now().Sub(state.LastSyncedAt)
		if syncAge > s.opts.StalenessWindow {
			found = append(found, s.newDiscrepancy(check, integ, entity.EntityTypeInventory, state.ProductID, "quantity",
				local.Quantity, state.LastSyncedQuantity, entity.DiscrepancyStale, entity.SeverityHigh, 1.0,
				map[string]interface{}{"sync_age_hours": syncAge.Hours()}))
		}

		// 数量一致性检查（同步值 + 未同步事务增减）
		expected := state.LastSyncedQuantity + state.PendingDelta
		if expected != local.Quantity {
			pct := percentDelta(float64(local.Quantity), float64(expected))
			found = append(found, s.newDiscrepancy(check, integ, entity.EntityTypeInventory, state.ProductID, "quantity",
				local.Quantity, expected, entity.DiscrepancyMismatch, InventorySeverity(pct), 0.9,
				map[string]interface{}{"percent_delta": pct, "pending_delta": state.PendingDelta}))
		}
	}

	return found, compared, nil
}

// scanPricing 价格范围扫描：最近价格同步值 vs 本地当前价格
func (s *Scanner) scanPricing(ctx context.Context, check *entity.AccuracyCheck, integ *entity.Integration, conn connector.Connector) ([]entity.Discrepancy, int, error) {
	states, err := conn.PricingStates(ctx, integ.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch pricing states failed: %w", err)
	}

	records, err := s.catalog.PriceRecords(ctx, check.OrganizationID)
	if err != nil {
		return nil, 0, fmt.Errorf("list price records failed: %w", err)
	}

	var found []entity.Discrepancy
	compared := 0
	for _, state := range states {
		local, ok := records[state.ProductID]
		if !ok {
			continue
		}
		compared++

		syncAge := s.now().Sub(state.LastSyncedAt)
		if syncAge > s.opts.StalenessWindow {
			found = append(found, s.newDiscrepancy(check, integ, entity.EntityTypePricing, state.ProductID, "price",
				local.Price, state.LastSyncedPrice, entity.DiscrepancyStale, entity.SeverityHigh, 1.0,
				map[string]interface{}{"sync_age_hours": syncAge.Hours()}))
		}

		if state.LastSyncedPrice != local.Price {
			pct := percentDelta(local.Price, state.LastSyncedPrice)
			found = append(found, s.newDiscrepancy(check, integ, entity.EntityTypePricing, state.ProductID, "price",
				local.Price, state.LastSyncedPrice, entity.DiscrepancyMismatch, PricingSeverity(pct), 0.9,
				map[string]interface{}{"percent_delta": pct}))
		}
	}

	return found, compared, nil
}

// newDiscrepancy 构造差异记录
func (s *Scanner) newDiscrepancy(
	check *entity.AccuracyCheck,
	integ *entity.Integration,
	entityType, entityID, fieldName string,
	sourceValue, targetValue interface{},
	discrepancyType string,
	severity entity.Severity,
	confidence float64,
	metadata map[string]interface{},
) entity.Discrepancy {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return entity.Discrepancy{
		ID:              uuid.New().String(),
		AccuracyCheckID: check.ID,
		OrganizationID:  check.OrganizationID,
		IntegrationID:   integ.ID,
		EntityType:      entityType,
		EntityID:        entityID,
		FieldName:       fieldName,
		SourceValue:     entity.JSONValue(sourceValue),
		TargetValue:     entity.JSONValue(targetValue),
		DiscrepancyType: discrepancyType,
		Severity:        severity,
		Confidence:      confidence,
		Status:          entity.DiscrepancyStatusOpen,
		Metadata:        datatypes.JSONMap(metadata),
		DetectedAt:      s.now(),
	}
}
