package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/dtroode/credvault/internal/model"
)

var _ model.AuditStore = (*AuditRepository)(nil)

type AuditRepository struct {
	db *Connection
}

func NewAuditRepository(db *Connection) *AuditRepository {
	return &AuditRepository{
		db: db,
	}
}

func (r *AuditRepository) Append(ctx context.Context, entry model.AuditEntry) (int64, error) {
	query := `INSERT INTO audit_log (credential_id, actor_id, action, outcome, source_address, user_agent, created_at)
			  VALUES (NULLIF($1::text, ''), $2, $3, $4, $5, $6, $7)
			  RETURNING seq`

	var seq int64
	err := r.db.QueryRow(ctx, query,
		entry.CredentialID, entry.ActorID, string(entry.Action), string(entry.Outcome),
		entry.SourceAddress, entry.UserAgent, entry.Timestamp,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to append audit entry: %w", err)
	}

	return seq, nil
}

func (r *AuditRepository) Query(ctx context.Context, q model.AuditQuery) ([]model.AuditEntry, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Action != "" {
		conds = append(conds, "a.action = "+arg(string(q.Action)))
	}
	if q.Outcome != "" {
		conds = append(conds, "a.outcome = "+arg(string(q.Outcome)))
	}
	if q.CredentialID != "" {
		conds = append(conds, "a.credential_id = "+arg(q.CredentialID))
	}
	if q.Search != "" {
		p := arg("%" + strings.ToLower(q.Search) + "%")
		conds = append(conds, fmt.Sprintf("(LOWER(a.actor_id) LIKE %s OR LOWER(a.action) LIKE %s OR LOWER(COALESCE(c.name, '')) LIKE %s)", p, p, p))
	}

	query := `
		SELECT a.seq, COALESCE(a.credential_id, ''), COALESCE(c.name, ''), a.actor_id, a.action, a.outcome,
		       a.source_address, a.user_agent, a.created_at
		FROM audit_log a
		LEFT JOIN credentials c ON c.id = a.credential_id`
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\t\tORDER BY a.seq DESC\n\t\tLIMIT " + arg(q.EffectiveLimit())

	rows, err := r.db.Query(ctx, query, args...)
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
		err := rows.Scan(
			&e.Seq, &e.CredentialID, &e.CredentialName, &e.ActorID, &action, &outcome,
			&e.SourceAddress, &e.UserAgent, &e.Timestamp,
		)
		if err != nil {
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
