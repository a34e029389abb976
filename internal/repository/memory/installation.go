package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/dtroode/credvault/internal/model"
)

var _ model.InstallationStore = (*InstallationRepository)(nil)

type InstallationRepository struct {
	mu   sync.Mutex
	inst *model.Installation
}

func NewInstallationRepository() *InstallationRepository {
	return &InstallationRepository{}
}

func (r *InstallationRepository) Get(ctx context.Context) (model.Installation, error) {
	if err := ctx.Err(); err != nil {
		return model.Installation{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inst == nil {
		return model.Installation{}, model.ErrNotFound
	}
	return copyInstallation(*r.inst), nil
}

func (r *InstallationRepository) Init(ctx context.Context, inst model.Installation) (model.Installation, error) {
	if err := ctx.Err(); err != nil {
		return model.Installation{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inst == nil {
		stored := copyInstallation(inst)
		r.inst = &stored
	}
	return copyInstallation(*r.inst), nil
}

func copyInstallation(inst model.Installation) model.Installation {
	inst.Salt = slices.Clone(inst.Salt)
	inst.KDF = slices.Clone(inst.KDF)
	inst.Verifier = slices.Clone(inst.Verifier)
	return inst
}
