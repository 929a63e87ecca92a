// Package secrets resolves backend credentials from a file, an inline value
// or the environment.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source describes where a secret may come from, in precedence order:
// File, then Value, then the Env variable.
type Source struct {
	// Name is used in error messages.
	Name  string
	Value string
	File  string
	Env   string
}

// Load returns the trimmed secret. It is an error when no source yields a
// non-empty value or when a configured file cannot be read.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		path, err := expandHome(file)
		if err != nil {
			return "", fmt.Errorf("resolving %s file %q: %w", name, file, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
		return "", fmt.Errorf("%s is not configured (set it in the config or %s)", name, env)
	}

	return "", fmt.Errorf("%s is not configured", name)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
