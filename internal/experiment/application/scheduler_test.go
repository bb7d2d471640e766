package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/pricelab/internal/experiment/domain"
	"gorm.io/gorm"
)

// MockSettingsRepository is a mock implementation of domain.RotationSettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) ListRotationEnabled(ctx context.Context) ([]*domain.TenantRotationSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TenantRotationSettings), args.Error(1)
}

func (m *MockSettingsRepository) GetByTenant(ctx context.Context, tenantID string) (*domain.TenantRotationSettings, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TenantRotationSettings), args.Error(1)
}

func (m *MockSettingsRepository) UpdateLastRotatedAt(ctx context.Context, tenantID string, t time.Time) error {
	args := m.Called(ctx, tenantID, t)
	return args.Error(0)
}

func (m *MockSettingsRepository) Upsert(ctx context.Context, settings *domain.TenantRotationSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// fakeSynchronizer 可编程的价格同步桩：按商品返回失败，可选阻塞
type fakeSynchronizer struct {
	mu           sync.Mutex
	calls        []string
	failProducts map[string]bool
	block        chan struct{}
}

func (f *fakeSynchronizer) SyncPrice(ctx context.Context, tenantID, productID string, price decimal.Decimal) SyncResult {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.calls = append(f.calls, productID)
	f.mu.Unlock()
	if f.failProducts[productID] {
		return SyncResult{Success: false, Message: "platform rejected price update"}
	}
	return SyncResult{Success: true}
}

func (f *fakeSynchronizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func rotatableExperiment(id uint, productID string) *domain.Experiment {
	return &domain.Experiment{
		Model:              gorm.Model{ID: id},
		TenantID:           "tenant-a",
		Status:             domain.StatusActive,
		Mode:               domain.ModeSingleProduct,
		BaseTrafficPercent: 34,
		Variants: []domain.Variant{
			{Name: "Variant A", Price: dec("20"), TrafficPercent: 33},
			{Name: "Variant B", Price: dec("15"), TrafficPercent: 33},
		},
		Associations: []domain.ProductAssociation{
			{ExperimentID: id, ProductID: productID, BasePrice: dec("25")},
		},
	}
}

func newTestScheduler(settings *MockSettingsRepository, repo *MockExperimentRepository, synchronizer PriceSynchronizer) *RotationScheduler {
	return NewRotationScheduler(settings, repo, synchronizer, nil, nil, testLogger(), SchedulerConfig{
		TickInterval:   time.Minute,
		SyncTimeout:    time.Second,
		RotationWindow: 5 * time.Minute,
	})
}

func TestRunScheduledRotationPartialFailureIsolation(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	settings := new(MockSettingsRepository)
	settings.On("ListRotationEnabled", mock.Anything).Return([]*domain.TenantRotationSettings{
		{TenantID: "tenant-a", Enabled: true, IntervalMinutes: 5},
	}, nil)
	settings.On("UpdateLastRotatedAt", mock.Anything, "tenant-a", now).Return(nil)

	repo := new(MockExperimentRepository)
	repo.On("FindRotatableByTenant", mock.Anything, "tenant-a").Return([]*domain.Experiment{
		rotatableExperiment(1, "p-1"),
		rotatableExperiment(2, "p-2"),
		rotatableExperiment(3, "p-3"),
	}, nil)

	// 第二个实验的同步失败，不得影响第三个实验的处理
	synchronizer := &fakeSynchronizer{failProducts: map[string]bool{"p-2": true}}

	scheduler := newTestScheduler(settings, repo, synchronizer)
	summary := scheduler.RunScheduledRotation(context.Background(), now)

	assert.Equal(t, 1, summary.TenantsProcessed)
	require.Len(t, summary.Results, 1)

	result := summary.Results[0]
	assert.Equal(t, 3, result.Experiments)
	assert.Equal(t, 2, result.Updates)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, uint(2), result.Failures[0].ExperimentID)
	assert.Equal(t, "p-2", result.Failures[0].ProductID)

	// 三个实验都被尝试过
	assert.Equal(t, 3, synchronizer.callCount())
	// 有失败也要推进轮换时间戳
	settings.AssertCalled(t, "UpdateLastRotatedAt", mock.Anything, "tenant-a", now)
}

func TestRunScheduledRotationIntervalGating(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	lastRotated := now.Add(-30 * time.Second)

	settings := new(MockSettingsRepository)
	settings.On("ListRotationEnabled", mock.Anything).Return([]*domain.TenantRotationSettings{
		{TenantID: "tenant-a", Enabled: true, IntervalMinutes: 5, LastRotatedAt: &lastRotated},
	}, nil)

	repo := new(MockExperimentRepository)
	synchronizer := &fakeSynchronizer{}

	scheduler := newTestScheduler(settings, repo, synchronizer)
	summary := scheduler.RunScheduledRotation(context.Background(), now)

	assert.Equal(t, 0, summary.TenantsProcessed)
	assert.Equal(t, 1, summary.TenantsSkipped)
	require.Len(t, summary.Results, 1)
	assert.True(t, summary.Results[0].Skipped)

	// 未到期的租户不触发任何实验加载和平台调用
	repo.AssertNotCalled(t, "FindRotatableByTenant", mock.Anything, "tenant-a")
	assert.Zero(t, synchronizer.callCount())
	settings.AssertNotCalled(t, "UpdateLastRotatedAt", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunScheduledRotationNeverRotatedTenantIsDue(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	settings := new(MockSettingsRepository)
	settings.On("ListRotationEnabled", mock.Anything).Return([]*domain.TenantRotationSettings{
		{TenantID: "tenant-a", Enabled: true, IntervalMinutes: 60},
	}, nil)
	settings.On("UpdateLastRotatedAt", mock.Anything, "tenant-a", now).Return(nil)

	repo := new(MockExperimentRepository)
	repo.On("FindRotatableByTenant", mock.Anything, "tenant-a").
		Return([]*domain.Experiment{rotatableExperiment(1, "p-1")}, nil)

	synchronizer := &fakeSynchronizer{}
	scheduler := newTestScheduler(settings, repo, synchronizer)
	summary := scheduler.RunScheduledRotation(context.Background(), now)

	assert.Equal(t, 1, summary.TenantsProcessed)
	assert.Equal(t, 1, synchronizer.callCount())
}

func TestRunScheduledRotationTenantsRotateOnOwnCadence(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tenMinutesAgo := now.Add(-10 * time.Minute)

	settings := new(MockSettingsRepository)
	settings.On("ListRotationEnabled", mock.Anything).Return([]*domain.TenantRotationSettings{
		{TenantID: "tenant-fast", Enabled: true, IntervalMinutes: 5, LastRotatedAt: &tenMinutesAgo},
		{TenantID: "tenant-slow", Enabled: true, IntervalMinutes: 60, LastRotatedAt: &tenMinutesAgo},
	}, nil)
	settings.On("UpdateLastRotatedAt", mock.Anything, "tenant-fast", now).Return(nil)

	repo := new(MockExperimentRepository)
	repo.On("FindRotatableByTenant", mock.Anything, "tenant-fast").
		Return([]*domain.Experiment{}, nil)

	synchronizer := &fakeSynchronizer{}
	scheduler := newTestScheduler(settings, repo, synchronizer)
	summary := scheduler.RunScheduledRotation(context.Background(), now)

	assert.Equal(t, 1, summary.TenantsProcessed)
	assert.Equal(t, 1, summary.TenantsSkipped)
	repo.AssertNotCalled(t, "FindRotatableByTenant", mock.Anything, "tenant-slow")
}

func TestRunScheduledRotationListErrorReturnsEmptySummary(t *testing.T) {
	settings := new(MockSettingsRepository)
	settings.On("ListRotationEnabled", mock.Anything).Return(nil, errors.New("database unreachable"))

	scheduler := newTestScheduler(settings, new(MockExperimentRepository), &fakeSynchronizer{})
	summary := scheduler.RunScheduledRotation(context.Background(), time.Now())

	assert.Equal(t, 0, summary.TenantsProcessed)
	assert.Empty(t, summary.Results)
}

func TestRunScheduledRotationOverlapGuard(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	settings := new(MockSettingsRepository)
	settings.On("ListRotationEnabled", mock.Anything).Return([]*domain.TenantRotationSettings{
		{TenantID: "tenant-a", Enabled: true, IntervalMinutes: 5},
	}, nil)
	settings.On("UpdateLastRotatedAt", mock.Anything, "tenant-a", mock.Anything).Return(nil)

	repo := new(MockExperimentRepository)
	repo.On("FindRotatableByTenant", mock.Anything, "tenant-a").
		Return([]*domain.Experiment{rotatableExperiment(1, "p-1")}, nil)

	release := make(chan struct{})
	synchronizer := &fakeSynchronizer{block: release}
	scheduler := newTestScheduler(settings, repo, synchronizer)

	firstDone := make(chan *RotationSummary, 1)
	go func() {
		firstDone <- scheduler.RunScheduledRotation(context.Background(), now)
	}()

	// 等第一次扫描进入同步调用后再触发第二次扫描
	require.Eventually(t, func() bool {
		scheduler.mu.Lock()
		defer scheduler.mu.Unlock()
		_, busy := scheduler.inflight["tenant-a"]
		return busy
	}, time.Second, 5*time.Millisecond)

	second := scheduler.RunScheduledRotation(context.Background(), now.Add(6*time.Minute))
	require.Len(t, second.Results, 1)
	assert.True(t, second.Results[0].Skipped)
	assert.Equal(t, "previous rotation still running", second.Results[0].SkipReason)

	close(release)
	first := <-firstDone
	assert.Equal(t, 1, first.TenantsProcessed)

	// 重叠保护下只发生一次平台调用
	assert.Equal(t, 1, synchronizer.callCount())
}

func TestSchedulerLifecycle(t *testing.T) {
	settings := new(MockSettingsRepository)
	settings.On("ListRotationEnabled", mock.Anything).Return([]*domain.TenantRotationSettings{}, nil)

	scheduler := newTestScheduler(settings, new(MockExperimentRepository), &fakeSynchronizer{})

	assert.False(t, scheduler.Status().Running)

	scheduler.Start(context.Background())
	assert.True(t, scheduler.Status().Running)
	assert.Equal(t, time.Minute, scheduler.Status().TickInterval)

	// 重复启动无副作用
	scheduler.Start(context.Background())

	scheduler.Stop()
	assert.False(t, scheduler.Status().Running)

	// 重复停止无副作用
	scheduler.Stop()
}
