package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/wyfcoding/pricelab/internal/experiment/domain"
	"github.com/wyfcoding/pricelab/pkg/metrics"
)

// ExperimentService 实验服务门面，整合价格解析与轮换调度
type ExperimentService struct {
	resolver  *PriceResolverService
	scheduler *RotationScheduler
	metrics   *metrics.Metrics
}

// NewExperimentService 创建实验服务门面实例
func NewExperimentService(
	expRepo domain.ExperimentRepository,
	settingsRepo domain.RotationSettingsRepository,
	synchronizer PriceSynchronizer,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	schedulerCfg SchedulerConfig,
) *ExperimentService {
	return &ExperimentService{
		resolver:  NewPriceResolverService(expRepo, publisher, logger),
		scheduler: NewRotationScheduler(settingsRepo, expRepo, synchronizer, publisher, m, logger, schedulerCfg),
		metrics:   m,
	}
}

// ResolvePrice 解析访客应看到的价格
func (s *ExperimentService) ResolvePrice(ctx context.Context, q ResolvePriceQuery) PriceResult {
	result := s.resolver.ResolvePrice(ctx, q)
	if s.metrics != nil {
		label := "false"
		if result.IsTestPrice {
			label = "true"
		}
		s.metrics.AssignmentsTotal.WithLabelValues(label).Inc()
	}
	return result
}

// RunRotationNow 立即执行一次轮换扫描（手动触发入口）
func (s *ExperimentService) RunRotationNow(ctx context.Context) *RotationSummary {
	return s.scheduler.RunScheduledRotation(ctx, time.Now())
}

// StartScheduler 启动定时轮换
func (s *ExperimentService) StartScheduler(ctx context.Context) {
	s.scheduler.Start(ctx)
}

// StopScheduler 停止定时轮换
func (s *ExperimentService) StopScheduler() {
	s.scheduler.Stop()
}

// SchedulerStatus 返回调度器状态
func (s *ExperimentService) SchedulerStatus() SchedulerStatus {
	return s.scheduler.Status()
}
