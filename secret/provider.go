package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves one secret backend's references.
//
// Implementations must be safe for concurrent use and must never log
// resolved values.
type Provider interface {
	// Name is the provider's reference scheme ("env" in secretref:env:KEY).
	Name() string

	// Resolve returns the secret for ref, or an error if it does not exist.
	Resolve(ctx context.Context, ref string) (string, error)

	// Close releases backend resources.
	Close() error
}

// EnvProvider resolves references against the process environment.
// Reference form: secretref:env:DB_PASSWORD.
type EnvProvider struct{}

// NewEnvProvider builds the environment provider.
func NewEnvProvider() *EnvProvider { return &EnvProvider{} }

func (p *EnvProvider) Name() string { return "env" }

// Resolve looks the ref up as an environment variable. A set-but-empty
// variable resolves to the empty string; only an unset one errors.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	value, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("environment variable %q is not set", ref)
	}
	return value, nil
}

func (p *EnvProvider) Close() error { return nil }

// FileProvider resolves references as file contents, the shape container
// orchestrators use for mounted secrets. Reference form:
// secretref:file:/run/secrets/db_dsn, or a path relative to Root.
type FileProvider struct {
	root string
}

// NewFileProvider builds a file provider. A non-empty root confines
// references to paths under it; an empty root accepts any path.
func NewFileProvider(root string) *FileProvider {
	return &FileProvider{root: root}
}

func (p *FileProvider) Name() string { return "file" }

// Resolve reads the referenced file. Trailing line endings are stripped,
// since secret files conventionally end with a newline.
func (p *FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path := ref
	if p.root != "" {
		path = filepath.Join(p.root, ref)
		rel, err := filepath.Rel(p.root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("secret path %q escapes root", ref)
		}
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config, not request input.
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (p *FileProvider) Close() error { return nil }
