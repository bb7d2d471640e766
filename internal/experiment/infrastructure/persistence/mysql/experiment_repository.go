package mysql

import (
	"context"

	"github.com/wyfcoding/pricelab/internal/experiment/domain"
	"github.com/wyfcoding/pricelab/pkg/logger"
	"gorm.io/gorm"
)

type experimentRepository struct{ db *gorm.DB }

// NewExperimentRepository 创建实验仓储实例
func NewExperimentRepository(db *gorm.DB) domain.ExperimentRepository {
	return &experimentRepository{db: db}
}

func (r *experimentRepository) FindActiveByProduct(ctx context.Context, tenantID, productID string) ([]*domain.Experiment, error) {
	var experiments []*domain.Experiment
	subQuery := r.db.Model(&domain.ProductAssociation{}).
		Select("experiment_id").
		Where("product_id = ?", productID)

	err := r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Associations").
		Where("tenant_id = ?", tenantID).
		Where("status IN ?", []domain.ExperimentStatus{domain.StatusActive, domain.StatusPaused}).
		Where("id IN (?)", subQuery).
		Order("created_at DESC").
		Find(&experiments).Error
	if err != nil {
		return nil, err
	}

	return sanitizeExperiments(ctx, experiments), nil
}

func (r *experimentRepository) FindRotatableByTenant(ctx context.Context, tenantID string) ([]*domain.Experiment, error) {
	var experiments []*domain.Experiment
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Associations").
		Where("tenant_id = ?", tenantID).
		Where("status = ?", domain.StatusActive).
		Order("created_at DESC").
		Find(&experiments).Error
	if err != nil {
		return nil, err
	}

	return sanitizeExperiments(ctx, experiments), nil
}

func (r *experimentRepository) GetByID(ctx context.Context, id uint) (*domain.Experiment, error) {
	var exp domain.Experiment
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Associations").
		First(&exp, id).Error
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

func (r *experimentRepository) Save(ctx context.Context, exp *domain.Experiment) error {
	return r.db.WithContext(ctx).Save(exp).Error
}

// sanitizeExperiments 在仓储边界剔除畸形记录：
// 价格非正或流量占比越界的变体不进入核心逻辑，记日志后跳过。
func sanitizeExperiments(ctx context.Context, experiments []*domain.Experiment) []*domain.Experiment {
	for _, exp := range experiments {
		valid := exp.Variants[:0]
		for _, v := range exp.Variants {
			if !v.Price.IsPositive() || v.TrafficPercent < 0 || v.TrafficPercent > 100 {
				logger.Warn(ctx, "dropping malformed variant record",
					"experiment_id", exp.ID,
					"variant_id", v.ID,
					"price", v.Price.String(),
					"traffic_percent", v.TrafficPercent,
				)
				continue
			}
			valid = append(valid, v)
		}
		exp.Variants = valid
	}
	return experiments
}
