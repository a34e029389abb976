package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func validateFormat(format string) (string, error) {
	format = strings.ToLower(format)
	if format != formatJSON && format != formatYAML {
		return "", fmt.Errorf("invalid format: %s (must be 'json' or 'yaml')", format)
	}
	return format, nil
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format output as JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to format output as YAML: %w", err)
		}
		return enc.Close()
	}
}
