package application

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/wyfcoding/pricelab/internal/experiment/domain"
)

// PriceResolverService 回答"这位访客此刻应该看到什么价格"。
// 作为店面展示的读路径，任何内部错误都回落到原价，绝不向调用方抛错。
type PriceResolverService struct {
	repo      domain.ExperimentRepository
	publisher domain.EventPublisher
	logger    *slog.Logger
}

func NewPriceResolverService(
	repo domain.ExperimentRepository,
	publisher domain.EventPublisher,
	logger *slog.Logger,
) *PriceResolverService {
	return &PriceResolverService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// ResolvePrice 解析访客看到的价格。
// 查询与商品关联的活跃实验，取最新创建的一个；
// 多商品实验先按商品过滤变体，再用访客桶值选择变体。
func (s *PriceResolverService) ResolvePrice(ctx context.Context, q ResolvePriceQuery) PriceResult {
	fallback := PriceResult{Price: q.OriginalPrice, IsTestPrice: false}

	experiments, err := s.repo.FindActiveByProduct(ctx, q.TenantID, q.ProductID)
	if err != nil {
		s.logger.Warn("experiment lookup failed, falling back to original price",
			"tenant_id", q.TenantID,
			"product_id", q.ProductID,
			"error", err,
		)
		return fallback
	}
	if len(experiments) == 0 {
		return fallback
	}

	// 仓储按创建时间降序返回，正常情况下一个商品只属于一个在线实验；
	// CRUD 层约束被破坏时取最新的一个，不报错。
	exp := experiments[0]
	if len(experiments) > 1 {
		s.logger.Warn("product matched by multiple live experiments, using newest",
			"tenant_id", q.TenantID,
			"product_id", q.ProductID,
			"matched", len(experiments),
			"chosen_experiment_id", exp.ID,
		)
	}

	if !exp.TrafficSumValid() {
		s.logger.Warn("experiment traffic percents do not sum to 100",
			"experiment_id", exp.ID,
			"tenant_id", q.TenantID,
		)
	}

	variants := exp.VariantsForProduct(q.ProductID)
	bucket := domain.BucketForExperiment(q.TenantID, q.SessionID, q.CustomerID, exp.ID)
	chosen := domain.SelectVariant(bucket, exp.BaseTrafficPercent, q.OriginalPrice, variants)

	s.publishAssignment(ctx, q, exp.ID, chosen, bucket)

	// 命中实验即视为进入实验，落在原价桶位也不例外
	return PriceResult{
		Price:        chosen.Price,
		IsTestPrice:  true,
		ExperimentID: exp.ID,
		VariantName:  chosen.Name,
	}
}

// publishAssignment 发布分配事件，失败只记日志，不影响读路径
func (s *PriceResolverService) publishAssignment(ctx context.Context, q ResolvePriceQuery, experimentID uint, chosen domain.Variant, bucket int) {
	if s.publisher == nil {
		return
	}
	event := domain.PriceAssignedEvent{
		TenantID:     q.TenantID,
		ProductID:    q.ProductID,
		ExperimentID: experimentID,
		VariantName:  chosen.Name,
		Price:        chosen.Price.String(),
		Bucket:       bucket,
		SessionID:    q.SessionID,
		OccurredOn:   time.Now(),
	}
	key := q.TenantID + ":" + strconv.FormatUint(uint64(experimentID), 10)
	if err := s.publisher.Publish(ctx, domain.TopicAssignments, key, event); err != nil {
		s.logger.Warn("failed to publish assignment event",
			"experiment_id", experimentID,
			"error", err,
		)
	}
}
