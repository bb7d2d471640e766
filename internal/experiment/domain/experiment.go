package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExperimentStatus 实验生命周期状态
type ExperimentStatus string

const (
	StatusDraft     ExperimentStatus = "DRAFT"
	StatusActive    ExperimentStatus = "ACTIVE"
	StatusPaused    ExperimentStatus = "PAUSED"
	StatusCompleted ExperimentStatus = "COMPLETED"
)

// ExperimentMode 实验模式
type ExperimentMode string

const (
	// ModeSingleProduct 单商品实验，所有变体作用于同一商品
	ModeSingleProduct ExperimentMode = "SINGLE_PRODUCT"
	// ModeMultiProduct 多商品实验，变体按商品划分
	ModeMultiProduct ExperimentMode = "MULTI_PRODUCT"
)

// Experiment 价格实验聚合根
type Experiment struct {
	gorm.Model
	TenantID string           `gorm:"column:tenant_id;type:varchar(64);index;not null"`
	Name     string           `gorm:"column:name;type:varchar(255);not null"`
	Status   ExperimentStatus `gorm:"column:status;type:varchar(16);index;not null"`
	Mode     ExperimentMode   `gorm:"column:mode;type:varchar(16);not null"`
	// BaseTrafficPercent 看到原价的流量占比，与变体流量之和应为 100
	BaseTrafficPercent int                  `gorm:"column:base_traffic_percent;not null"`
	StartAt            *time.Time           `gorm:"column:start_at"`
	EndAt              *time.Time           `gorm:"column:end_at"`
	Variants           []Variant            `gorm:"foreignKey:ExperimentID"`
	Associations       []ProductAssociation `gorm:"foreignKey:ExperimentID"`
}

func (Experiment) TableName() string { return "experiments" }

// Variant 实验中的一个价格变体
type Variant struct {
	gorm.Model
	ExperimentID uint            `gorm:"column:experiment_id;index;not null"`
	Name         string          `gorm:"column:name;type:varchar(255);not null"`
	Price        decimal.Decimal `gorm:"column:price;type:decimal(20,8);not null"`
	// TrafficPercent 该变体的流量占比，0-100
	TrafficPercent int `gorm:"column:traffic_percent;not null"`
	// ProductID 多商品实验中变体所属商品，空表示对所有商品生效
	ProductID string `gorm:"column:product_id;type:varchar(64);index"`
	// IsBase 标记显式的原价条目
	IsBase bool `gorm:"column:is_base;not null;default:false"`
}

func (Variant) TableName() string { return "experiment_variants" }

// ProductAssociation 实验与商品的关联，记录商品的有效原价。
// 轮换选择必须从这里读原价，而不是假设它等于某个变体的价格。
type ProductAssociation struct {
	gorm.Model
	ExperimentID uint            `gorm:"column:experiment_id;index;not null"`
	ProductID    string          `gorm:"column:product_id;type:varchar(64);index;not null"`
	BasePrice    decimal.Decimal `gorm:"column:base_price;type:decimal(20,8);not null"`
}

func (ProductAssociation) TableName() string { return "experiment_products" }

// TenantRotationSettings 租户的轮换配置。
// LastRotatedAt 仅由轮换调度器写入，enabled/interval 由外部设置界面维护。
type TenantRotationSettings struct {
	gorm.Model
	TenantID        string     `gorm:"column:tenant_id;type:varchar(64);uniqueIndex;not null"`
	Enabled         bool       `gorm:"column:enabled;not null;default:false"`
	IntervalMinutes int        `gorm:"column:interval_minutes;not null;default:60"`
	LastRotatedAt   *time.Time `gorm:"column:last_rotated_at"`
}

func (TenantRotationSettings) TableName() string { return "tenant_rotation_settings" }

// Due 判断当前时刻是否已超过轮换间隔。从未轮换过的租户视为到期。
func (s *TenantRotationSettings) Due(now time.Time) bool {
	if s.LastRotatedAt == nil {
		return true
	}
	return now.Sub(*s.LastRotatedAt) >= time.Duration(s.IntervalMinutes)*time.Minute
}

// VisitorSession 访客会话标识，仅作为哈希输入，不做持久化
type VisitorSession struct {
	TenantID   string
	SessionID  string
	CustomerID string
}

// IsResolvable 实验是否参与读路径的价格分配。
// 已暂停的实验继续为已分桶的访客解析价格，但不再参与轮换。
func (e *Experiment) IsResolvable() bool {
	return e.Status == StatusActive || e.Status == StatusPaused
}

// IsRotatable 实验是否参与定时轮换
func (e *Experiment) IsRotatable() bool {
	return e.Status == StatusActive
}

// VariantsForProduct 返回对指定商品生效的变体。
// 单商品实验返回全部变体；多商品实验过滤出无商品关联或关联匹配的变体。
func (e *Experiment) VariantsForProduct(productID string) []Variant {
	if e.Mode != ModeMultiProduct {
		return e.Variants
	}
	filtered := make([]Variant, 0, len(e.Variants))
	for _, v := range e.Variants {
		if v.ProductID == "" || v.ProductID == productID {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// AssociationFor 返回指定商品的关联记录
func (e *Experiment) AssociationFor(productID string) (ProductAssociation, bool) {
	for _, a := range e.Associations {
		if a.ProductID == productID {
			return a, true
		}
	}
	return ProductAssociation{}, false
}

// TrafficSumValid 校验流量占比之和是否为 100。
// CRUD 层在创建时保证这一点，核心仍按配置异常防御处理。
func (e *Experiment) TrafficSumValid() bool {
	sum := e.BaseTrafficPercent
	for _, v := range e.Variants {
		if v.IsBase {
			continue
		}
		sum += v.TrafficPercent
	}
	return sum == 100
}
