package domain

import (
	"context"
	"time"
)

const (
	PriceAssignedEventType     = "PriceAssigned"
	RotationCompletedEventType = "RotationCompleted"
	PriceSyncFailedEventType   = "PriceSyncFailed"
)

// Kafka topic 约定
const (
	TopicAssignments = "pricelab.assignments"
	TopicRotations   = "pricelab.rotations"
)

// PriceAssignedEvent 访客被分配到价格变体事件
type PriceAssignedEvent struct {
	TenantID     string    `json:"tenant_id"`
	ProductID    string    `json:"product_id"`
	ExperimentID uint      `json:"experiment_id"`
	VariantName  string    `json:"variant_name"`
	Price        string    `json:"price"`
	Bucket       int       `json:"bucket"`
	SessionID    string    `json:"session_id"`
	OccurredOn   time.Time `json:"occurred_on"`
}

// RotationCompletedEvent 租户一次轮换完成事件
type RotationCompletedEvent struct {
	TenantID     string    `json:"tenant_id"`
	Experiments  int       `json:"experiments"`
	Updates      int       `json:"updates"`
	Failures     int       `json:"failures"`
	RotatedAt    time.Time `json:"rotated_at"`
	OccurredOn   time.Time `json:"occurred_on"`
}

// PriceSyncFailedEvent 单次价格同步失败事件
type PriceSyncFailedEvent struct {
	TenantID     string    `json:"tenant_id"`
	ExperimentID uint      `json:"experiment_id"`
	ProductID    string    `json:"product_id"`
	Message      string    `json:"message"`
	OccurredOn   time.Time `json:"occurred_on"`
}

// EventPublisher 事件发布者接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
