package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pricelab/internal/experiment/domain"
)

// Config 电商平台客户端配置
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// shopClient 电商平台 Admin API 的 REST 客户端实现
type shopClient struct {
	http *resty.Client
}

// NewShopClient 创建平台客户端实例
func NewShopClient(cfg Config) domain.PlatformClient {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("X-Access-Token", cfg.AccessToken).
		SetHeader("Content-Type", "application/json")

	return &shopClient{http: httpClient}
}

type productVariantsResponse struct {
	Variants []struct {
		ID string `json:"id"`
	} `json:"variants"`
}

type priceUpdateRequest struct {
	Price string `json:"price"`
}

type priceUpdateResponse struct {
	UserErrors []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"user_errors"`
}

// ResolvePriceableID 取商品的第一个（主）变体作为可计价实体
func (c *shopClient) ResolvePriceableID(ctx context.Context, tenantID, productID string) (string, error) {
	var body productVariantsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Tenant-ID", tenantID).
		SetResult(&body).
		SetPathParam("product_id", productID).
		Get("/admin/products/{product_id}/variants")
	if err != nil {
		return "", fmt.Errorf("fetch product variants: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch product variants: platform returned %s", resp.Status())
	}
	if len(body.Variants) == 0 {
		return "", fmt.Errorf("product %s has no priceable variant", productID)
	}
	return body.Variants[0].ID, nil
}

// UpdatePrice 更新可计价实体的价格。
// 平台的字段级校验错误通过 PriceUpdateResult 返回，与传输错误区分。
func (c *shopClient) UpdatePrice(ctx context.Context, tenantID, priceableID string, price decimal.Decimal) (*domain.PriceUpdateResult, error) {
	var body priceUpdateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Tenant-ID", tenantID).
		SetBody(priceUpdateRequest{Price: price.StringFixed(2)}).
		SetResult(&body).
		SetError(&body).
		SetPathParam("variant_id", priceableID).
		Put("/admin/variants/{variant_id}/price")
	if err != nil {
		return nil, fmt.Errorf("update price: %w", err)
	}

	if len(body.UserErrors) > 0 {
		fieldErrors := make([]domain.FieldError, 0, len(body.UserErrors))
		for _, ue := range body.UserErrors {
			fieldErrors = append(fieldErrors, domain.FieldError{Field: ue.Field, Message: ue.Message})
		}
		return &domain.PriceUpdateResult{OK: false, FieldErrors: fieldErrors}, nil
	}

	if resp.IsError() {
		return nil, fmt.Errorf("update price: platform returned %s", resp.Status())
	}

	return &domain.PriceUpdateResult{OK: true}, nil
}
