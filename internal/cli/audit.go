package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/dtroode/credvault/internal/model"
	"github.com/dtroode/credvault/internal/service"
)

type auditFlags struct {
	limit      int
	outcome    string
	action     string
	credential string
	search     string
}

func (f *auditFlags) query() model.AuditQuery {
	return model.AuditQuery{
		Limit:        f.limit,
		Outcome:      model.AuditOutcome(strings.ToUpper(f.outcome)),
		Action:       model.AuditAction(strings.ToUpper(f.action)),
		CredentialID: f.credential,
		Search:       f.search,
	}
}

func newAuditCmd(app *App, format func() string) *cobra.Command {
	var filter auditFlags

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit log, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.openAudit(cmd.Context())
			if err != nil {
				return err
			}

			entries, err := log.Query(cmd.Context(), filter.query())
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []model.AuditEntry{}
			}
			return render(cmd.OutOrStdout(), format(), entries)
		},
	}

	flags := cmd.PersistentFlags()
	flags.IntVar(&filter.limit, "limit", model.DefaultAuditLimit, "Maximum number of entries")
	flags.StringVar(&filter.outcome, "outcome", "", "Only entries with this outcome (success or failure)")
	flags.StringVar(&filter.action, "action", "", "Only entries with this action (create, access, access_failed, access_error, delete)")
	flags.StringVar(&filter.credential, "credential", "", "Only entries for this credential id")
	flags.StringVar(&filter.search, "search", "", "Match actor, action or credential name")

	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Archive audit entries to object storage as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.openAudit(cmd.Context())
			if err != nil {
				return err
			}
			storage, err := app.archiveStorage(cmd.Context())
			if err != nil {
				return err
			}

			key, err := service.NewAuditArchive(log, storage, app.logger).Export(cmd.Context(), filter.query())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format(), map[string]string{"key": key, "bucket": app.cfg.Storage.Bucket})
		},
	})
	return cmd
}
