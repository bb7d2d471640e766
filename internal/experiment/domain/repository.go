package domain

import (
	"context"
	"time"
)

// ExperimentRepository 实验数据访问接口
type ExperimentRepository interface {
	// FindActiveByProduct 返回租户下与商品关联、可参与价格解析的实验，
	// 按创建时间降序排列（最新在前）。
	FindActiveByProduct(ctx context.Context, tenantID, productID string) ([]*Experiment, error)
	// FindRotatableByTenant 返回租户下参与轮换的实验（含变体与商品关联）
	FindRotatableByTenant(ctx context.Context, tenantID string) ([]*Experiment, error)
	// GetByID 按 ID 获取实验
	GetByID(ctx context.Context, id uint) (*Experiment, error)
	// Save 保存实验及其关联记录
	Save(ctx context.Context, exp *Experiment) error
}

// RotationSettingsRepository 租户轮换配置访问接口
type RotationSettingsRepository interface {
	// ListRotationEnabled 返回所有启用了轮换的租户配置
	ListRotationEnabled(ctx context.Context) ([]*TenantRotationSettings, error)
	// GetByTenant 按租户获取配置
	GetByTenant(ctx context.Context, tenantID string) (*TenantRotationSettings, error)
	// UpdateLastRotatedAt 写入租户的最近轮换时间，仅调度器调用
	UpdateLastRotatedAt(ctx context.Context, tenantID string, t time.Time) error
	// Upsert 创建或更新租户配置
	Upsert(ctx context.Context, settings *TenantRotationSettings) error
}
