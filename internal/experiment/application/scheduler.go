package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pricelab/internal/experiment/domain"
	"github.com/wyfcoding/pricelab/pkg/metrics"
)

// PriceSynchronizer 调度器依赖的价格同步能力
type PriceSynchronizer interface {
	SyncPrice(ctx context.Context, tenantID, productID string, price decimal.Decimal) SyncResult
}

// SchedulerConfig 轮换调度器配置
type SchedulerConfig struct {
	// TickInterval 扫描周期
	TickInterval time.Duration
	// SyncTimeout 单次平台调用超时
	SyncTimeout time.Duration
	// RotationWindow 轮换窗口长度
	RotationWindow time.Duration
}

// RotationScheduler 多租户轮换调度器。
// 每个扫描周期遍历启用轮换且间隔已到期的租户，为其每个活跃实验
// 计算当前窗口的在线变体并写入平台；单个实验或租户的失败不会
// 阻断其余处理。lastRotatedAt 是跨周期唯一的共享状态，只由这里写入。
type RotationScheduler struct {
	settingsRepo domain.RotationSettingsRepository
	expRepo      domain.ExperimentRepository
	synchronizer PriceSynchronizer
	publisher    domain.EventPublisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	config       SchedulerConfig

	mu       sync.Mutex
	inflight map[string]struct{}
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewRotationScheduler(
	settingsRepo domain.RotationSettingsRepository,
	expRepo domain.ExperimentRepository,
	synchronizer PriceSynchronizer,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg SchedulerConfig,
) *RotationScheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = 10 * time.Second
	}
	if cfg.RotationWindow <= 0 {
		cfg.RotationWindow = domain.DefaultRotationWindowMinutes * time.Minute
	}
	return &RotationScheduler{
		settingsRepo: settingsRepo,
		expRepo:      expRepo,
		synchronizer: synchronizer,
		publisher:    publisher,
		metrics:      m,
		logger:       logger,
		config:       cfg,
		inflight:     make(map[string]struct{}),
	}
}

// Start 启动定时扫描循环。重复调用无效果。
func (s *RotationScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(runCtx)
	s.logger.Info("rotation scheduler started", "tick_interval", s.config.TickInterval)
}

// Stop 停止扫描循环并等待当前扫描结束
func (s *RotationScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.logger.Info("rotation scheduler stopped")
}

// Status 返回调度器状态
func (s *RotationScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerStatus{
		Running:      s.running,
		TickInterval: s.config.TickInterval,
	}
}

func (s *RotationScheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary := s.RunScheduledRotation(ctx, time.Now())
			s.logger.Debug("rotation tick finished",
				"tenants_processed", summary.TenantsProcessed,
				"tenants_skipped", summary.TenantsSkipped,
			)
		}
	}
}

// RunScheduledRotation 执行一次调度扫描。
// 间隔门控只做速率限制：无论租户内是否有失败，扫描结束后都会写入
// lastRotatedAt，失败的更新由下一个到期的周期重试。
func (s *RotationScheduler) RunScheduledRotation(ctx context.Context, now time.Time) *RotationSummary {
	summary := &RotationSummary{StartedAt: now}
	defer func() { summary.FinishedAt = time.Now() }()

	tenants, err := s.settingsRepo.ListRotationEnabled(ctx)
	if err != nil {
		s.logger.Error("failed to list rotation-enabled tenants", "error", err)
		return summary
	}
	if s.metrics != nil {
		s.metrics.RotationTenantsActive.Set(float64(len(tenants)))
	}

	for _, settings := range tenants {
		result := s.rotateTenant(ctx, settings, now)
		if result.Skipped {
			summary.TenantsSkipped++
		} else {
			summary.TenantsProcessed++
		}
		summary.Results = append(summary.Results, result)
	}

	return summary
}

// rotateTenant 处理单个租户。同一租户的上一次轮换仍在进行时跳过，
// 避免重叠执行导致乱序的平台写入。
func (s *RotationScheduler) rotateTenant(ctx context.Context, settings *domain.TenantRotationSettings, now time.Time) TenantRotationResult {
	result := TenantRotationResult{TenantID: settings.TenantID}

	if !settings.Due(now) {
		result.Skipped = true
		result.SkipReason = "interval not elapsed"
		return result
	}

	s.mu.Lock()
	if _, busy := s.inflight[settings.TenantID]; busy {
		s.mu.Unlock()
		result.Skipped = true
		result.SkipReason = "previous rotation still running"
		s.logger.Warn("skipping tenant, previous rotation still running", "tenant_id", settings.TenantID)
		return result
	}
	s.inflight[settings.TenantID] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, settings.TenantID)
		s.mu.Unlock()
	}()

	if s.metrics != nil {
		s.metrics.RotationsTotal.WithLabelValues(settings.TenantID).Inc()
	}

	experiments, err := s.expRepo.FindRotatableByTenant(ctx, settings.TenantID)
	if err != nil {
		s.logger.Error("failed to load experiments for rotation",
			"tenant_id", settings.TenantID,
			"error", err,
		)
		result.Failures = append(result.Failures, SyncFailure{Message: "load experiments: " + err.Error()})
		return result
	}

	windowMinutes := int(s.config.RotationWindow.Minutes())
	for _, exp := range experiments {
		result.Experiments++
		s.rotateExperiment(ctx, exp, now, windowMinutes, &result)
	}

	// 间隔门控针对轮换尝试而非轮换成功，失败也推进时间戳
	if err := s.settingsRepo.UpdateLastRotatedAt(ctx, settings.TenantID, now); err != nil {
		s.logger.Error("failed to record rotation timestamp",
			"tenant_id", settings.TenantID,
			"error", err,
		)
	}

	s.publishCompleted(ctx, settings.TenantID, result, now)
	return result
}

// rotateExperiment 为实验的每个关联商品选出在线变体并同步价格
func (s *RotationScheduler) rotateExperiment(ctx context.Context, exp *domain.Experiment, now time.Time, windowMinutes int, result *TenantRotationResult) {
	if len(exp.Associations) == 0 {
		s.logger.Warn("rotatable experiment has no product associations", "experiment_id", exp.ID)
		return
	}

	for _, assoc := range exp.Associations {
		live := domain.ChooseLiveVariant(exp, assoc, now, windowMinutes)

		syncCtx, cancel := context.WithTimeout(ctx, s.config.SyncTimeout)
		start := time.Now()
		outcome := s.synchronizer.SyncPrice(syncCtx, exp.TenantID, assoc.ProductID, live.Price)
		cancel()

		if s.metrics != nil {
			s.metrics.PriceUpdateDuration.Observe(time.Since(start).Seconds())
		}

		if !outcome.Success {
			if s.metrics != nil {
				s.metrics.RotationFailuresTotal.WithLabelValues(exp.TenantID).Inc()
			}
			s.logger.Warn("price sync failed",
				"tenant_id", exp.TenantID,
				"experiment_id", exp.ID,
				"product_id", assoc.ProductID,
				"message", outcome.Message,
			)
			result.Failures = append(result.Failures, SyncFailure{
				ExperimentID: exp.ID,
				ProductID:    assoc.ProductID,
				Message:      outcome.Message,
			})
			continue
		}

		result.Updates++
		s.logger.Info("live price rotated",
			"tenant_id", exp.TenantID,
			"experiment_id", exp.ID,
			"product_id", assoc.ProductID,
			"variant", live.Label,
			"price", live.Price.String(),
		)
	}
}

func (s *RotationScheduler) publishCompleted(ctx context.Context, tenantID string, result TenantRotationResult, now time.Time) {
	if s.publisher == nil {
		return
	}
	event := domain.RotationCompletedEvent{
		TenantID:    tenantID,
		Experiments: result.Experiments,
		Updates:     result.Updates,
		Failures:    len(result.Failures),
		RotatedAt:   now,
		OccurredOn:  time.Now(),
	}
	if err := s.publisher.Publish(ctx, domain.TopicRotations, tenantID, event); err != nil {
		s.logger.Warn("failed to publish rotation event", "tenant_id", tenantID, "error", err)
	}
}
