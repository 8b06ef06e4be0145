package domain

import (
	"context"
	"time"
)

const (
	ActionOrderStatusUpdated = "ORDER_STATUS_UPDATED"
	EntityOrder              = "Order"
)

type AdminLog struct {
	ID         int       `json:"id"`
	AdminID    int       `json:"adminId"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   int       `json:"entityId"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"createdAt"`
}

type AdminLogRepository interface {
	Record(ctx context.Context, entry *AdminLog) error
	List(ctx context.Context, limit int) ([]AdminLog, error)
}
