package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/credvault/internal/model"
)

var _ model.InstallationStore = (*InstallationRepository)(nil)

type InstallationRepository struct {
	db *Connection
}

func NewInstallationRepository(db *Connection) *InstallationRepository {
	return &InstallationRepository{
		db: db,
	}
}

func (r *InstallationRepository) Get(ctx context.Context) (model.Installation, error) {
	var inst model.Installation
	query := `SELECT salt, kdf, verifier, created_at FROM installation WHERE id = 1`

	err := r.db.QueryRow(ctx, query).Scan(&inst.Salt, &inst.KDF, &inst.Verifier, &inst.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Installation{}, model.ErrNotFound
		}
		return model.Installation{}, fmt.Errorf("failed to get installation: %w", err)
	}

	return inst, nil
}

// Init never replaces an existing row; the salt of a live store is fixed.
func (r *InstallationRepository) Init(ctx context.Context, inst model.Installation) (model.Installation, error) {
	query := `INSERT INTO installation (id, salt, kdf, verifier, created_at)
			  VALUES (1, $1, $2, $3, $4)
			  ON CONFLICT (id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, inst.Salt, inst.KDF, inst.Verifier, inst.CreatedAt); err != nil {
		return model.Installation{}, fmt.Errorf("failed to init installation: %w", err)
	}

	return r.Get(ctx)
}
