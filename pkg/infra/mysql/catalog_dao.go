package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"oip/dpaccuracy/internal/entity"
)

// CatalogDAO 本地源数据访问对象（集成、商品、库存、价格）
type CatalogDAO struct {
	db *gorm.DB
}

// NewCatalogDAO 创建 CatalogDAO 实例
func NewCatalogDAO(db *gorm.DB) *CatalogDAO {
	return &CatalogDAO{db: db}
}

// GetIntegration 根据 ID 获取集成
func (dao *CatalogDAO) GetIntegration(ctx context.Context, id string) (*entity.Integration, error) {
	var integration entity.Integration
	result := dao.db.WithContext(ctx).Where("id = ?", id).First(&integration)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get integration: %w", result.Error)
	}
	return &integration, nil
}

// ActiveIntegrations 获取组织的全部启用集成
func (dao *CatalogDAO) ActiveIntegrations(ctx context.Context, orgID string) ([]entity.Integration, error) {
	var list []entity.Integration
	result := dao.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Find(&list)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", result.Error)
	}
	return list, nil
}

// SampleProducts 抽样本地商品（扫描基准）
func (dao *CatalogDAO) SampleProducts(ctx context.Context, orgID string, limit int) ([]entity.CatalogProduct, error) {
	var list []entity.CatalogProduct
	result := dao.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&list)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to sample products: %w", result.Error)
	}
	return list, nil
}

// InventoryLevels 获取组织的本地库存，按商品 ID 索引
func (dao *CatalogDAO) InventoryLevels(ctx context.Context, orgID string) (map[string]entity.InventoryLevel, error) {
	var list []entity.InventoryLevel
	result := dao.db.WithContext(ctx).Where("organization_id = ?", orgID).Find(&list)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list inventory levels: %w", result.Error)
	}

	byProduct := make(map[string]entity.InventoryLevel, len(list))
	for _, lvl := range list {
		byProduct[lvl.ProductID] = lvl
	}
	return byProduct, nil
}

// PriceRecords 获取组织的本地价格，按商品 ID 索引
func (dao *CatalogDAO) PriceRecords(ctx context.Context, orgID string) (map[string]entity.PriceRecord, error) {
	var list []entity.PriceRecord
	result := dao.db.WithContext(ctx).Where("organization_id = ?", orgID).Find(&list)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list price records: %w", result.Error)
	}

	byProduct := make(map[string]entity.PriceRecord, len(list))
	for _, rec := range list {
		byProduct[rec.ProductID] = rec
	}
	return byProduct, nil
}
