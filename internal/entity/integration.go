package entity

import "time"

// Integration 外部系统集成配置
type Integration struct {
	ID             string `gorm:"column:id;primaryKey;type:varchar(64)"`
	OrganizationID string `gorm:"column:organization_id;type:varchar(64);not null;index:idx_org_active"`
	Name           string `gorm:"column:name;type:varchar(128);not null"`
	Provider       string `gorm:"column:provider;type:varchar(32);not null"` // 连接器注册表的路由键
	IsActive       bool   `gorm:"column:is_active;not null;default:true;index:idx_org_active"`

	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (Integration) TableName() string {
	return "integrations"
}
