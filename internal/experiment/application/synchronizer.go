package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pricelab/internal/experiment/domain"
)

// productGIDPrefix 平台侧商品全局 ID 前缀。
// 调用方可能传裸数字 ID，也可能已经是 GID 形式。
const productGIDPrefix = "gid://shop/Product/"

// PriceSyncService 为单个商品把选中变体的价格写入电商平台。
// 解析失败、传输失败、平台校验失败统一收敛为 SyncResult，不向上抛错，
// 以便调度器按实验聚合失败并继续处理其余实验。
type PriceSyncService struct {
	platform domain.PlatformClient
	cache    domain.PriceableIDCache
	logger   *slog.Logger
}

func NewPriceSyncService(
	platform domain.PlatformClient,
	cache domain.PriceableIDCache,
	logger *slog.Logger,
) *PriceSyncService {
	return &PriceSyncService{
		platform: platform,
		cache:    cache,
		logger:   logger,
	}
}

// SyncPrice 将价格写入平台。每个调度周期内对同一更新只尝试一次，
// 失败由下一个周期重试。
func (s *PriceSyncService) SyncPrice(ctx context.Context, tenantID, productID string, price decimal.Decimal) SyncResult {
	gid := NormalizeProductID(productID)

	priceableID, err := s.resolvePriceableID(ctx, tenantID, gid)
	if err != nil {
		return SyncResult{Success: false, Message: fmt.Sprintf("resolve priceable id: %v", err)}
	}

	result, err := s.platform.UpdatePrice(ctx, tenantID, priceableID, price)
	if err != nil {
		// 超时与传输错误同等对待
		return SyncResult{Success: false, Message: fmt.Sprintf("update price: %v", err)}
	}
	if !result.OK {
		return SyncResult{Success: false, Message: formatFieldErrors(result.FieldErrors)}
	}

	s.logger.Debug("price synced",
		"tenant_id", tenantID,
		"product_id", productID,
		"priceable_id", priceableID,
		"price", price.String(),
	)
	return SyncResult{Success: true}
}

// resolvePriceableID 先查缓存，未命中再调用平台解析并回填
func (s *PriceSyncService) resolvePriceableID(ctx context.Context, tenantID, gid string) (string, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, tenantID, gid)
		if err != nil {
			s.logger.Warn("priceable id cache read failed", "tenant_id", tenantID, "error", err)
		} else if cached != "" {
			return cached, nil
		}
	}

	priceableID, err := s.platform.ResolvePriceableID(ctx, tenantID, gid)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, tenantID, gid, priceableID); err != nil {
			s.logger.Warn("priceable id cache write failed", "tenant_id", tenantID, "error", err)
		}
	}
	return priceableID, nil
}

// NormalizeProductID 将商品 ID 规范化为平台 GID 形式
func NormalizeProductID(productID string) string {
	if strings.HasPrefix(productID, "gid://") {
		return productID
	}
	return productGIDPrefix + productID
}

func formatFieldErrors(fieldErrors []domain.FieldError) string {
	if len(fieldErrors) == 0 {
		return "platform rejected price update"
	}
	parts := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "platform rejected price update: " + strings.Join(parts, "; ")
}
