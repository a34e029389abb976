package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dtroode/credvault/internal/model"
)

var _ model.AuditStore = (*AuditRepository)(nil)

type AuditRepository struct {
	db *Connection
}

func NewAuditRepository(db *Connection) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry model.AuditEntry) (int64, error) {
	var credentialID sql.NullString
	if entry.CredentialID != "" {
		credentialID = sql.NullString{String: entry.CredentialID, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (credential_id, actor_id, action, outcome, source_address, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		credentialID, entry.ActorID, string(entry.Action), string(entry.Outcome),
		entry.SourceAddress, entry.UserAgent, entry.Timestamp.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append audit entry: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read audit sequence: %w", err)
	}
	return seq, nil
}

func (r *AuditRepository) Query(ctx context.Context, q model.AuditQuery) ([]model.AuditEntry, error) {
	var (
		conds []string
		args  []any
	)
	if q.Action != "" {
		conds = append(conds, "a.action = ?")
		args = append(args, string(q.Action))
	}
	if q.Outcome != "" {
		conds = append(conds, "a.outcome = ?")
		args = append(args, string(q.Outcome))
	}
	if q.CredentialID != "" {
		conds = append(conds, "a.credential_id = ?")
		args = append(args, q.CredentialID)
	}
	if q.Search != "" {
		p := "%" + strings.ToLower(q.Search) + "%"
		conds = append(conds, "(LOWER(a.actor_id) LIKE ? OR LOWER(a.action) LIKE ? OR LOWER(COALESCE(c.name, '')) LIKE ?)")
		args = append(args, p, p, p)
	}

	query := `SELECT a.seq, COALESCE(a.credential_id, ''), COALESCE(c.name, ''), a.actor_id, a.action, a.outcome,
		a.source_address, a.user_agent, a.created_at
		FROM audit_log a
		LEFT JOIN credentials c ON c.id = a.credential_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY a.seq DESC LIMIT ?"
	args = append(args, q.EffectiveLimit())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var (
			e               model.AuditEntry
			action, outcome string
		)
		if err := rows.Scan(&e.Seq, &e.CredentialID, &e.CredentialName, &e.ActorID, &action, &outcome,
			&e.SourceAddress, &e.UserAgent, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Action = model.AuditAction(action)
		e.Outcome = model.AuditOutcome(outcome)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	return out, nil
}
