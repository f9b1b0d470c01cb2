package connector

import (
	"context"
	"time"
)

// ProductMapping 镜像系统中的商品映射
type ProductMapping struct {
	ProductID string `json:"product_id"` // 本地商品 ID
	SKU       string `json:"sku"`        // 镜像系统侧 SKU
	Name      string `json:"name"`       // 镜像系统侧名称
}

// InventoryState 镜像系统库存状态（含最近同步元信息）
type InventoryState struct {
	ProductID          string    `json:"product_id"`
	LastSyncedQuantity int64     `json:"last_synced_quantity"` // 最近一次成功同步的数量
	PendingDelta       int64     `json:"pending_delta"`        // 未同步事务的数量增减
	LastSyncedAt       time.Time `json:"last_synced_at"`
}

// PricingState 镜像系统价格状态（含最近同步元信息）
type PricingState struct {
	ProductID       string    `json:"product_id"`
	LastSyncedPrice float64   `json:"last_synced_price"` // 最近一次价格同步的值
	LastSyncedAt    time.Time `json:"last_synced_at"`
}

// SyncOptions 同步触发选项
type SyncOptions struct {
	ForceRefresh bool   `json:"force_refresh,omitempty"`
	Operation    string `json:"operation,omitempty"` // create / update
}

// Connector 外部平台连接器契约（各平台适配器在宿主应用中实现）
type Connector interface {
	// ProductMappings 拉取商品映射，以本地商品 ID 为键
	ProductMappings(ctx context.Context, integrationID string) (map[string]ProductMapping, error)

	// InventoryStates 拉取库存状态与同步元信息
	InventoryStates(ctx context.Context, integrationID string) ([]InventoryState, error)

	// PricingStates 拉取价格状态与同步元信息
	PricingStates(ctx context.Context, integrationID string) ([]PricingState, error)

	// ReadField 读取镜像系统单字段当前值
	ReadField(ctx context.Context, integrationID, entityType, entityID, field string) (interface{}, error)

	// WriteField 写入镜像系统单字段值
	WriteField(ctx context.Context, integrationID, entityType, entityID, field string, value interface{}) error

	// TriggerSync 触发一次实体同步，返回可轮询状态的任务 ID
	TriggerSync(ctx context.Context, integrationID, entityType, entityID string, opts SyncOptions) (jobID string, err error)
}
