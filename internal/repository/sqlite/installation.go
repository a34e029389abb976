package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dtroode/credvault/internal/model"
)

var _ model.InstallationStore = (*InstallationRepository)(nil)

type InstallationRepository struct {
	db *Connection
}

func NewInstallationRepository(db *Connection) *InstallationRepository {
	return &InstallationRepository{db: db}
}

func (r *InstallationRepository) Get(ctx context.Context) (model.Installation, error) {
	var (
		inst model.Installation
		kdf  string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT salt, kdf, verifier, created_at FROM installation WHERE id = 1`,
	).Scan(&inst.Salt, &kdf, &inst.Verifier, &inst.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Installation{}, model.ErrNotFound
	}
	if err != nil {
		return model.Installation{}, fmt.Errorf("failed to get installation: %w", err)
	}
	inst.KDF = []byte(kdf)
	return inst, nil
}

func (r *InstallationRepository) Init(ctx context.Context, inst model.Installation) (model.Installation, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO installation (id, salt, kdf, verifier, created_at) VALUES (1, ?, ?, ?, ?)`,
		inst.Salt, string(inst.KDF), inst.Verifier, inst.CreatedAt.UTC(),
	)
	if err != nil {
		return model.Installation{}, fmt.Errorf("failed to init installation: %w", err)
	}
	return r.Get(ctx)
}
