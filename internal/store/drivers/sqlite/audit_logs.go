package sqlite

import (
	"context"
	"database/sql"

	"github.com/tabwave/payvault/internal/domain"
)

type auditLogsRepo struct {
	db dbtx
}

func (r *auditLogsRepo) CreateAuditLog(ctx context.Context, e domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, user_id, action, resource, details, ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Action, e.Resource, e.Details, e.IP, e.CreatedAt.UTC(),
	)
	return err
}

func (r *auditLogsRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, resource, details, ip, created_at
		FROM audit_logs WHERE user_id = ?
		ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditLogs(rows)
}

func (r *auditLogsRepo) ListRecent(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, resource, details, ip, created_at
		FROM audit_logs
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditLogs(rows)
}

func scanAuditLogs(rows *sql.Rows) ([]domain.AuditLog, error) {
	var logs []domain.AuditLog
	for rows.Next() {
		var e domain.AuditLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Resource, &e.Details, &e.IP, &e.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}
