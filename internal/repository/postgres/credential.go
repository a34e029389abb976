package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtroode/credvault/internal/model"
)

const uniqueViolation = "23505"

var _ model.CredentialStore = (*CredentialRepository)(nil)

type CredentialRepository struct {
	db *Connection
}

func NewCredentialRepository(db *Connection) *CredentialRepository {
	return &CredentialRepository{
		db: db,
	}
}

func (r *CredentialRepository) Insert(ctx context.Context, credential model.Credential) error {
	query := `INSERT INTO credentials (id, name, kind, description, ciphertext, owner_id, tags, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	tags := credential.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.db.Exec(ctx, query,
		credential.ID, credential.Name, credential.Kind, credential.Description,
		credential.Ciphertext, credential.OwnerID, tags, credential.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrDuplicateID
		}
		return fmt.Errorf("failed to insert credential: %w", err)
	}

	return nil
}

func (r *CredentialRepository) Get(ctx context.Context, id string) (model.Credential, error) {
	query := `SELECT id, name, kind, description, ciphertext, owner_id, tags, created_at, last_accessed_at, access_count
			  FROM credentials WHERE id = $1`

	var c model.Credential
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Kind, &c.Description, &c.Ciphertext, &c.OwnerID, &c.Tags,
		&c.CreatedAt, &c.LastAccessedAt, &c.AccessCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Credential{}, model.ErrNotFound
		}
		return model.Credential{}, fmt.Errorf("failed to get credential: %w", err)
	}

	return c, nil
}

// UpdateAccessStats bumps the counter and timestamp in one statement, so
// concurrent readers of the same id cannot lose an increment.
func (r *CredentialRepository) UpdateAccessStats(ctx context.Context, id string, accessedAt time.Time) (int64, error) {
	query := `UPDATE credentials SET access_count = access_count + 1, last_accessed_at = $2
			  WHERE id = $1
			  RETURNING access_count`

	var count int64
	err := r.db.QueryRow(ctx, query, id, accessedAt).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrNotFound
		}
		return 0, fmt.Errorf("failed to update access stats: %w", err)
	}

	return count, nil
}

func (r *CredentialRepository) Remove(ctx context.Context, id string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to remove credential: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *CredentialRepository) ListByOwner(ctx context.Context, ownerID string, kind string) ([]model.CredentialSummary, error) {
	query := `
		SELECT c.id, c.name, c.kind, c.description, c.owner_id, c.tags, c.created_at, c.last_accessed_at, c.access_count
		FROM credentials c
		WHERE (c.owner_id = $1 OR c.owner_id = $2) AND ($3::text = '' OR c.kind = $3::text)
		ORDER BY c.created_at DESC, c.id`

	rows, err := r.db.Query(ctx, query, ownerID, model.SystemOwner, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var out []model.CredentialSummary
	for rows.Next() {
		var s model.CredentialSummary
		err := rows.Scan(
			&s.ID, &s.Name, &s.Kind, &s.Description, &s.OwnerID, &s.Tags,
			&s.CreatedAt, &s.LastAccessedAt, &s.AccessCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	return out, nil
}
