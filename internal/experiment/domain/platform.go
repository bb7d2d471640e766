package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// FieldError 平台返回的字段级校验错误，与传输层错误区分
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PriceUpdateResult 平台价格更新调用的结果。
// 传输成功但平台拒绝时，FieldErrors 非空。
type PriceUpdateResult struct {
	OK          bool
	FieldErrors []FieldError
}

// PlatformClient 电商平台客户端接口
type PlatformClient interface {
	// ResolvePriceableID 将商品 ID 解析为平台侧可计价实体
	//（通常是商品的主变体）的 ID。
	ResolvePriceableID(ctx context.Context, tenantID, productID string) (string, error)
	// UpdatePrice 更新可计价实体的价格
	UpdatePrice(ctx context.Context, tenantID, priceableID string, price decimal.Decimal) (*PriceUpdateResult, error)
}

// PriceableIDCache 可计价实体 ID 的缓存接口
type PriceableIDCache interface {
	Get(ctx context.Context, tenantID, productID string) (string, error)
	Set(ctx context.Context, tenantID, productID, priceableID string) error
}
