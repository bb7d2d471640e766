package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResolvePriceQuery 价格解析查询
type ResolvePriceQuery struct {
	TenantID      string
	ProductID     string
	OriginalPrice decimal.Decimal
	SessionID     string
	CustomerID    string
}

// PriceResult 价格解析结果。
// 命中实验时 IsTestPrice 恒为 true，即使访客落在原价桶位。
type PriceResult struct {
	Price        decimal.Decimal `json:"price"`
	IsTestPrice  bool            `json:"is_test_price"`
	ExperimentID uint            `json:"experiment_id,omitempty"`
	VariantName  string          `json:"variant_name,omitempty"`
}

// SyncResult 单次价格同步的结果，所有失败形态都收敛到 Success=false
type SyncResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SyncFailure 轮换过程中一次失败的价格同步
type SyncFailure struct {
	ExperimentID uint   `json:"experiment_id"`
	ProductID    string `json:"product_id"`
	Message      string `json:"message"`
}

// TenantRotationResult 单个租户一次轮换的结果
type TenantRotationResult struct {
	TenantID    string        `json:"tenant_id"`
	Skipped     bool          `json:"skipped"`
	SkipReason  string        `json:"skip_reason,omitempty"`
	Experiments int           `json:"experiments"`
	Updates     int           `json:"updates"`
	Failures    []SyncFailure `json:"failures,omitempty"`
}

// RotationSummary 一次调度扫描的汇总
type RotationSummary struct {
	TenantsProcessed int                    `json:"tenants_processed"`
	TenantsSkipped   int                    `json:"tenants_skipped"`
	Results          []TenantRotationResult `json:"results"`
	StartedAt        time.Time              `json:"started_at"`
	FinishedAt       time.Time              `json:"finished_at"`
}

// SchedulerStatus 调度器运行状态
type SchedulerStatus struct {
	Running      bool          `json:"running"`
	TickInterval time.Duration `json:"tick_interval"`
}
