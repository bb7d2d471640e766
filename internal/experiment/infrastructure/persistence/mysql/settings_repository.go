package mysql

import (
	"context"
	"time"

	"github.com/wyfcoding/pricelab/internal/experiment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type settingsRepository struct{ db *gorm.DB }

// NewSettingsRepository 创建租户轮换配置仓储实例
func NewSettingsRepository(db *gorm.DB) domain.RotationSettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) ListRotationEnabled(ctx context.Context) ([]*domain.TenantRotationSettings, error) {
	var settings []*domain.TenantRotationSettings
	err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Find(&settings).Error
	return settings, err
}

func (r *settingsRepository) GetByTenant(ctx context.Context, tenantID string) (*domain.TenantRotationSettings, error) {
	var s domain.TenantRotationSettings
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepository) UpdateLastRotatedAt(ctx context.Context, tenantID string, t time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.TenantRotationSettings{}).
		Where("tenant_id = ?", tenantID).
		Update("last_rotated_at", t).Error
}

func (r *settingsRepository) Upsert(ctx context.Context, settings *domain.TenantRotationSettings) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "interval_minutes"}),
	}).Create(settings).Error
}
