package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dtroode/credvault/internal/model"
)

const storeCmdExample = `# Store an API key read from stdin
printf '%s' "$OPENAI_KEY" | credvault store --name "OpenAI API Key" --kind api_key --tag ai

# Store a connection string for one owner
credvault store --name "Production DB" --kind database_url --owner alice --value 'postgres://...'`

type accessFlags struct {
	actor     string
	source    string
	userAgent string
}

func (f *accessFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.actor, "actor", "", "Actor recorded in the audit log (default \"system\")")
	cmd.Flags().StringVar(&f.source, "source", "", "Source address recorded in the audit log (default \"127.0.0.1\")")
	cmd.Flags().StringVar(&f.userAgent, "user-agent", CliName, "User agent recorded in the audit log")
}

func (f *accessFlags) access() model.Access {
	return model.Access{ActorID: f.actor, SourceAddress: f.source, UserAgent: f.userAgent}
}

func newStoreCmd(app *App, format func() string) *cobra.Command {
	var (
		params model.StoreParams
		value  string
		access accessFlags
	)

	cmd := &cobra.Command{
		Use:     "store",
		Short:   "Encrypt and store a credential",
		Long:    "Encrypts a credential value under the vault key and stores it. The value is read from --value or, when omitted, from stdin.",
		Example: storeCmdExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := []byte(value)
			if !cmd.Flags().Changed("value") {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read value from stdin: %w", err)
				}
				raw = []byte(strings.TrimRight(string(b), "\r\n"))
				clear(b)
			}
			if len(raw) == 0 {
				return fmt.Errorf("credential value is empty")
			}
			defer clear(raw)

			v, err := app.openVault(cmd.Context())
			if err != nil {
				return err
			}

			params.Value = raw
			params.Access = access.access()
			id, err := v.Store(cmd.Context(), params)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format(), map[string]string{"id": id})
		},
	}

	cmd.Flags().StringVar(&params.Name, "name", "", "Credential name")
	cmd.Flags().StringVar(&params.Kind, "kind", "", "Credential kind, e.g. api_key or database_url")
	cmd.Flags().StringVar(&params.Description, "description", "", "Free-text description")
	cmd.Flags().StringVar(&params.OwnerID, "owner", "", "Owner of the credential (default \"system\", visible to everyone)")
	cmd.Flags().StringSliceVar(&params.Tags, "tag", nil, "Tag, may be repeated")
	cmd.Flags().StringVar(&value, "value", "", "Secret value (read from stdin when omitted)")
	access.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

type secretView struct {
	ID             string    `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Kind           string    `json:"kind" yaml:"kind"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty"`
	Value          string    `json:"value" yaml:"value"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at" yaml:"last_accessed_at"`
	AccessCount    int64     `json:"access_count" yaml:"access_count"`
}

func newGetCmd(app *App, format func() string) *cobra.Command {
	var (
		access    accessFlags
		valueOnly bool
	)

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Decrypt and print a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.openVault(cmd.Context())
			if err != nil {
				return err
			}

			secret, err := v.Retrieve(cmd.Context(), args[0], access.access())
			if err != nil {
				return err
			}
			defer clear(secret.Value)

			if valueOnly {
				_, err = cmd.OutOrStdout().Write(append(secret.Value, '\n'))
				return err
			}
			return render(cmd.OutOrStdout(), format(), secretView{
				ID:             secret.ID,
				Name:           secret.Name,
				Kind:           secret.Kind,
				Description:    secret.Description,
				Value:          string(secret.Value),
				CreatedAt:      secret.CreatedAt,
				LastAccessedAt: secret.LastAccessedAt,
				AccessCount:    secret.AccessCount,
			})
		},
	}
	access.register(cmd)
	cmd.Flags().BoolVar(&valueOnly, "value-only", false, "Print only the secret value")
	return cmd
}

func newListCmd(app *App, format func() string) *cobra.Command {
	var owner, kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List credential metadata",
		Long:  "Lists credentials owned by --owner plus shared system credentials, newest first. Secret values are never shown.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.openVault(cmd.Context())
			if err != nil {
				return err
			}

			list, err := v.List(cmd.Context(), owner, kind)
			if err != nil {
				return err
			}
			if list == nil {
				list = []model.CredentialSummary{}
			}
			return render(cmd.OutOrStdout(), format(), list)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner whose credentials to list (default \"system\")")
	cmd.Flags().StringVar(&kind, "kind", "", "Only list credentials of this kind")
	return cmd
}

func newDeleteCmd(app *App, format func() string) *cobra.Command {
	var access accessFlags

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.openVault(cmd.Context())
			if err != nil {
				return err
			}

			removed, err := v.Delete(cmd.Context(), args[0], access.access())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format(), map[string]any{"id": args[0], "removed": removed})
		},
	}
	access.register(cmd)
	return cmd
}
