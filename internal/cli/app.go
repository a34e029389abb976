// Package cli implements the credvault command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dtroode/credvault/internal/audit"
	"github.com/dtroode/credvault/internal/config"
	"github.com/dtroode/credvault/internal/kdf"
	"github.com/dtroode/credvault/internal/logger"
	"github.com/dtroode/credvault/internal/metrics"
	"github.com/dtroode/credvault/internal/model"
	"github.com/dtroode/credvault/internal/repository/memory"
	"github.com/dtroode/credvault/internal/repository/postgres"
	"github.com/dtroode/credvault/internal/repository/sqlite"
	"github.com/dtroode/credvault/internal/service"
	storage "github.com/dtroode/credvault/internal/storage/minio"
)

// BuildInfo is reported by the version command.
type BuildInfo struct {
	Version string
	Date    string
	Commit  string
}

// App carries the dependencies shared by all commands. Stores and the vault
// are opened on first use and released by Close.
type App struct {
	cfg     *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics
	build   BuildInfo

	in  io.Reader
	out io.Writer
	err io.Writer

	// passphrase supplies the vault passphrase when VAULT_PASSPHRASE is unset.
	passphrase func() ([]byte, error)
	// archiveStorage opens the audit archive destination.
	archiveStorage func(ctx context.Context) (model.Storage, error)

	backend  *backend
	auditLog *audit.Log
	vault    *service.Vault
}

type backend struct {
	credentials   model.CredentialStore
	audit         model.AuditStore
	installations model.InstallationStore
	close         func() error
}

func NewApp(cfg *config.Config, logger *logger.Logger, m *metrics.Metrics, build BuildInfo) *App {
	a := &App{
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		build:      build,
		in:         os.Stdin,
		out:        os.Stdout,
		err:        os.Stderr,
		passphrase: promptPassphrase,
	}
	a.archiveStorage = a.openArchiveStorage
	return a
}

// Close zeroes the master key, closes the stores and flushes metrics.
func (a *App) Close() error {
	var errs []error
	if a.vault != nil {
		a.vault.Close()
		a.vault = nil
	}
	if a.backend != nil && a.backend.close != nil {
		errs = append(errs, a.backend.close())
	}
	a.backend = nil
	errs = append(errs, a.metrics.WriteTextfile(a.cfg.MetricsTextfile))
	return errors.Join(errs...)
}

func (a *App) openBackend(ctx context.Context) (*backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}

	var b *backend
	switch a.cfg.Database.Driver {
	case config.DriverPostgres:
		conn, err := postgres.NewConection(ctx, a.cfg.Database.DSN)
		if err != nil {
			return nil, model.NewError(model.KindPersistence, "open", "", err)
		}
		b = &backend{
			credentials:   postgres.NewCredentialRepository(conn),
			audit:         postgres.NewAuditRepository(conn),
			installations: postgres.NewInstallationRepository(conn),
			close:         conn.Close,
		}
	case config.DriverSQLite:
		conn, err := sqlite.Open(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, model.NewError(model.KindPersistence, "open", "", err)
		}
		b = &backend{
			credentials:   sqlite.NewCredentialRepository(conn),
			audit:         sqlite.NewAuditRepository(conn),
			installations: sqlite.NewInstallationRepository(conn),
			close:         conn.Close,
		}
	case config.DriverMemory:
		creds := memory.NewCredentialRepository()
		b = &backend{
			credentials:   creds,
			audit:         memory.NewAuditRepository(creds),
			installations: memory.NewInstallationRepository(),
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", a.cfg.Database.Driver)
	}

	a.logger.Debug("storage opened", "driver", a.cfg.Database.Driver)
	a.backend = b
	return b, nil
}

// openAudit gives read access to the audit log without unlocking the vault.
func (a *App) openAudit(ctx context.Context) (*audit.Log, error) {
	if a.auditLog != nil {
		return a.auditLog, nil
	}
	b, err := a.openBackend(ctx)
	if err != nil {
		return nil, err
	}
	a.auditLog = audit.New(b.audit, a.logger, a.metrics, a.cfg.Audit.AppendTimeout)
	return a.auditLog, nil
}

func (a *App) openVault(ctx context.Context) (*service.Vault, error) {
	if a.vault != nil {
		return a.vault, nil
	}
	b, err := a.openBackend(ctx)
	if err != nil {
		return nil, err
	}
	auditLog, err := a.openAudit(ctx)
	if err != nil {
		return nil, err
	}

	pass, err := a.readPassphrase()
	if err != nil {
		return nil, err
	}
	params := kdf.NewParams(kdf.Algorithm(a.cfg.KDF.Algorithm), a.cfg.KDF.Iterations, a.cfg.KDF.Time, a.cfg.KDF.MemKiB, a.cfg.KDF.Par)

	key, err := service.Unlock(ctx, b.installations, pass, params)
	if err != nil {
		return nil, err
	}

	v, err := service.NewVault(key, b.credentials, auditLog, a.logger, a.metrics)
	if err != nil {
		key.Destroy()
		return nil, err
	}
	a.vault = v
	return v, nil
}

func (a *App) readPassphrase() ([]byte, error) {
	if a.cfg.Passphrase != "" {
		return []byte(a.cfg.Passphrase), nil
	}
	pass, err := a.passphrase()
	if err != nil {
		return nil, err
	}
	return pass, nil
}

func (a *App) openArchiveStorage(ctx context.Context) (model.Storage, error) {
	s := a.cfg.Storage
	return storage.NewClient(ctx, storage.Options{
		Endpoint:  s.Endpoint,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		Bucket:    s.Bucket,
		UseSSL:    s.UseSSL,
	})
}
