package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dtroode/credvault/internal/model"
)

const CliName = "credvault"

// Process exit codes.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitNotFound      = 3
	ExitDecryption    = 4
	ExitKeyDerivation = 5
	ExitPersistence   = 6
)

// NewRootCommand builds the command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	var format string

	root := &cobra.Command{
		Use:           CliName,
		Short:         "credvault stores encrypted credentials and audits every access",
		Long:          "credvault keeps credentials encrypted under a passphrase-derived master key and records every store, access and delete in an append-only audit log.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			f, err := validateFormat(format)
			if err != nil {
				return err
			}
			format = f
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	root.SetIn(app.in)
	root.SetOut(app.out)
	root.SetErr(app.err)
	root.PersistentFlags().StringVarP(&format, "output", "o", formatYAML, "Output format (json or yaml)")

	outputFormat := func() string { return format }
	root.AddCommand(
		newStoreCmd(app, outputFormat),
		newGetCmd(app, outputFormat),
		newListCmd(app, outputFormat),
		newDeleteCmd(app, outputFormat),
		newAuditCmd(app, outputFormat),
		newVersionCmd(app),
	)
	return root
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch model.KindOf(err) {
	case model.KindNotFound:
		return ExitNotFound
	case model.KindDecryption:
		return ExitDecryption
	case model.KindKeyDerivation:
		return ExitKeyDerivation
	case model.KindPersistence:
		return ExitPersistence
	default:
		return ExitFailure
	}
}

// Describe renders err for the terminal.
func Describe(err error) string {
	var vErr *model.Error
	if errors.As(err, &vErr) {
		switch vErr.Kind {
		case model.KindNotFound:
			return fmt.Sprintf("credential %s not found", vErr.ID)
		case model.KindDecryption:
			return fmt.Sprintf("credential %s could not be decrypted: it was tampered with or sealed under another key", vErr.ID)
		case model.KindKeyDerivation:
			return fmt.Sprintf("cannot unlock vault: %v", vErr.Err)
		}
	}
	return err.Error()
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Build version: %s\nBuild date: %s\nBuild commit: %s\n",
				app.build.Version, app.build.Date, app.build.Commit)
			return err
		},
	}
}
