// Package credentials resolves the SQL login password from the places an
// operator may keep it: the config file, an environment variable, or a
// Kubernetes secret.
package credentials

import (
	"context"
	"fmt"
	"strings"

	"github.com/steveyegge/sqlhealth/internal/config"
)

// SecretReader fetches one key of a secret.
type SecretReader interface {
	ReadSecret(ctx context.Context, namespace, name, key string) ([]byte, error)
}

// Resolver resolves passwords. Secrets is called only when a secret
// reference is configured, so no cluster access happens otherwise.
type Resolver struct {
	Getenv  func(string) string
	Secrets func() (SecretReader, error)
}

// SecretRef is a parsed "namespace/name/key" reference.
type SecretRef struct {
	Namespace string
	Name      string
	Key       string
}

// ParseSecretRef parses "namespace/name/key".
func ParseSecretRef(s string) (SecretRef, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return SecretRef{}, fmt.Errorf("secret reference %q: want namespace/name/key", s)
	}
	for _, p := range parts {
		if p == "" {
			return SecretRef{}, fmt.Errorf("secret reference %q: empty component", s)
		}
	}
	return SecretRef{Namespace: parts[0], Name: parts[1], Key: parts[2]}, nil
}

func (r SecretRef) String() string {
	return r.Namespace + "/" + r.Name + "/" + r.Key
}

// Password returns the password for s. Sources are consulted in order:
// literal password, password_env, password_secret. Integrated
// authentication needs no password and always resolves to "".
func (r *Resolver) Password(ctx context.Context, s config.Server) (string, error) {
	if s.Auth == config.AuthIntegrated {
		return "", nil
	}
	if s.Password != "" {
		return s.Password, nil
	}
	if s.PasswordEnv != "" {
		v := r.Getenv(s.PasswordEnv)
		if v == "" {
			return "", fmt.Errorf("password_env: %s is not set", s.PasswordEnv)
		}
		return v, nil
	}
	if s.PasswordSecret != "" {
		ref, err := ParseSecretRef(s.PasswordSecret)
		if err != nil {
			return "", err
		}
		if r.Secrets == nil {
			return "", fmt.Errorf("password_secret %s: no secret reader configured", ref)
		}
		sr, err := r.Secrets()
		if err != nil {
			return "", fmt.Errorf("password_secret %s: %w", ref, err)
		}
		data, err := sr.ReadSecret(ctx, ref.Namespace, ref.Name, ref.Key)
		if err != nil {
			return "", fmt.Errorf("password_secret %s: %w", ref, err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	// SQL auth with an empty password is legal, if unwise.
	return "", nil
}
