package memory

import (
	"context"
	"sync"
	"time"

	"marketplace/internal/domain"
)

type AdminLogRepository struct {
	mu      sync.Mutex
	entries []domain.AdminLog
}

func NewAdminLogRepository() *AdminLogRepository {
	return &AdminLogRepository{}
}

func (r *AdminLogRepository) Record(_ context.Context, entry *domain.AdminLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = len(r.entries) + 1
	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *AdminLogRepository) List(_ context.Context, limit int) ([]domain.AdminLog, error) {
	limit, _ = domain.NormalizePage(limit, 0)

	r.mu.Lock()
	defer r.mu.Unlock()

	logs := make([]domain.AdminLog, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && len(logs) < limit; i-- {
		logs = append(logs, r.entries[i])
	}
	return logs, nil
}
