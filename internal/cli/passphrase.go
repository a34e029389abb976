package cli

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

var errNoPassphrase = errors.New("VAULT_PASSPHRASE is not set and stdin is not a terminal")

// promptPassphrase reads the passphrase from the terminal without echo.
func promptPassphrase() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errNoPassphrase
	}

	fmt.Fprint(os.Stderr, "Vault passphrase: ")
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return pass, nil
}
