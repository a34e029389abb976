package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/dtroode/credvault/internal/model"
)

var _ model.CredentialStore = (*CredentialRepository)(nil)

type CredentialRepository struct {
	db *Connection
}

func NewCredentialRepository(db *Connection) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Insert(ctx context.Context, credential model.Credential) error {
	tags, err := encodeTags(credential.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO credentials (id, name, kind, description, ciphertext, owner_id, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		credential.ID, credential.Name, credential.Kind, credential.Description,
		credential.Ciphertext, credential.OwnerID, tags, credential.CreatedAt.UTC(),
	)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return model.ErrDuplicateID
		}
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Get(ctx context.Context, id string) (model.Credential, error) {
	var (
		c          model.Credential
		tags       string
		lastAccess sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, kind, description, ciphertext, owner_id, tags, created_at, last_accessed_at, access_count
		 FROM credentials WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Kind, &c.Description, &c.Ciphertext, &c.OwnerID, &tags,
		&c.CreatedAt, &lastAccess, &c.AccessCount)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, model.ErrNotFound
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("failed to get credential: %w", err)
	}

	if c.Tags, err = decodeTags(tags); err != nil {
		return model.Credential{}, err
	}
	if lastAccess.Valid {
		c.LastAccessedAt = &lastAccess.Time
	}
	return c, nil
}

func (r *CredentialRepository) UpdateAccessStats(ctx context.Context, id string, accessedAt time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE credentials SET access_count = access_count + 1, last_accessed_at = ?
		 WHERE id = ?
		 RETURNING access_count`,
		accessedAt.UTC(), id,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to update access stats: %w", err)
	}
	return count, nil
}

func (r *CredentialRepository) Remove(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to remove credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to remove credential: %w", err)
	}
	return n > 0, nil
}

func (r *CredentialRepository) ListByOwner(ctx context.Context, ownerID string, kind string) ([]model.CredentialSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, kind, description, owner_id, tags, created_at, last_accessed_at, access_count
		 FROM credentials
		 WHERE (owner_id = ? OR owner_id = ?) AND (? = '' OR kind = ?)
		 ORDER BY created_at DESC, rowid DESC`,
		ownerID, model.SystemOwner, kind, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var out []model.CredentialSummary
	for rows.Next() {
		var (
			s          model.CredentialSummary
			tags       string
			lastAccess sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Kind, &s.Description, &s.OwnerID, &tags,
			&s.CreatedAt, &lastAccess, &s.AccessCount); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		if s.Tags, err = decodeTags(tags); err != nil {
			return nil, err
		}
		if lastAccess.Valid {
			t := lastAccess.Time
			s.LastAccessedAt = &t
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return out, nil
}

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
