package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrInvalidConnectionString = errors.New("invalid connection string")
	// ErrEmbeddedCredentials keeps passwords out of flags, env files and the
	// keyring entry; lib/pq reads PGPASSWORD or ~/.pgpass instead.
	ErrEmbeddedCredentials = errors.New("connection string must not contain a password; use PGPASSWORD or ~/.pgpass")
)

// ValidateConnString checks that connStr is a postgres URI or key/value DSN
// lib/pq accepts, and that it carries no password.
func ValidateConnString(connStr string) error {
	if strings.TrimSpace(connStr) == "" {
		return fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}
	if _, err := pq.NewConnector(connStr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
		}
		if _, ok := u.User.Password(); ok {
			return ErrEmbeddedCredentials
		}
		if u.Host == "" && u.User == nil && (u.Path == "" || u.Path == "/") {
			return fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
		return nil
	}

	for _, pair := range strings.Fields(connStr) {
		k, _, ok := strings.Cut(pair, "=")
		if ok && strings.EqualFold(strings.TrimSpace(k), "password") {
			return ErrEmbeddedCredentials
		}
	}
	return nil
}

// IsPostgresConnString reports whether s looks like a postgres URI or DSN
// rather than a file path.
func IsPostgresConnString(s string) bool {
	if strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://") {
		return true
	}
	return strings.Contains(s, "host=") || strings.Contains(s, "dbname=")
}
