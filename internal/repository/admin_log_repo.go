package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
)

type postgresAdminLogRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresAdminLogRepository(db *sql.DB, logger *logrus.Logger) domain.AdminLogRepository {
	return &postgresAdminLogRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresAdminLogRepository) Record(ctx context.Context, entry *domain.AdminLog) error {
	query := `
        INSERT INTO admin_logs (admin_id, action, entity_type, entity_id, details)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, entry.AdminID, entry.Action, entry.EntityType, entry.EntityID, entry.Details).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		r.log.Errorf("Failed to record admin action %s by admin %d: %v", entry.Action, entry.AdminID, err)
		return fmt.Errorf("could not record admin action: %w", err)
	}
	return nil
}

func (r *postgresAdminLogRepository) List(ctx context.Context, limit int) ([]domain.AdminLog, error) {
	limit, _ = domain.NormalizePage(limit, 0)
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, admin_id, action, entity_type, entity_id, details, created_at
        FROM admin_logs
        ORDER BY created_at DESC, id DESC
        LIMIT $1`, limit)
	if err != nil {
		r.log.Errorf("Failed to list admin logs: %v", err)
		return nil, fmt.Errorf("could not retrieve admin logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.AdminLog{}
	for rows.Next() {
		var entry domain.AdminLog
		if err := rows.Scan(&entry.ID, &entry.AdminID, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning admin log: %w", err)
		}
		logs = append(logs, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin logs: %w", err)
	}
	return logs, nil
}
