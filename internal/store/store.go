// Package store persists admission records. Every backend enforces the
// source URL uniqueness invariant: appending a record whose key is already
// stored is a no-op that reports false.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jimezsa/admitscrape/internal/models"
)

var (
	ErrUnsupportedTarget = errors.New("unsupported output target")
	ErrMissingKey        = errors.New("record has no usable source url")
)

type Store interface {
	// Append persists rec and reports whether it was new.
	Append(ctx context.Context, rec models.AdmissionRecord) (bool, error)
	Records(ctx context.Context) ([]models.AdmissionRecord, error)
	Close() error
}

// Open returns the backend addressed by target:
//
//	sqlite:<path>        embedded SQLite database (sqlite::memory: for tests)
//	mysql://<dsn>        MySQL server, DSN in go-sql-driver format
//	<path>               append-only JSON Lines file
func Open(ctx context.Context, target string) (Store, error) {
	target = strings.TrimSpace(target)
	switch {
	case target == "":
		return nil, fmt.Errorf("%w: empty target", ErrUnsupportedTarget)
	case strings.HasPrefix(target, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(target, "sqlite:"), "//")
		return OpenSQLite(ctx, path)
	case strings.HasPrefix(target, "mysql://"):
		return OpenMySQL(ctx, strings.TrimPrefix(target, "mysql://"))
	case strings.Contains(target, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTarget, target)
	default:
		return OpenJSONL(target)
	}
}

// Load reads every record from target. Plain paths may hold a JSON array or
// JSON Lines; database targets are opened read-only in practice.
func Load(ctx context.Context, target string) ([]models.AdmissionRecord, error) {
	target = strings.TrimSpace(target)
	if target != "" && !strings.HasPrefix(target, "sqlite:") && !strings.Contains(target, "://") {
		return ReadFile(target)
	}

	s, err := Open(ctx, target)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Records(ctx)
}

// withKey replaces the record's source URL with its normalized key.
func withKey(rec models.AdmissionRecord) (models.AdmissionRecord, string, error) {
	key, ok := Key(rec)
	if !ok {
		return rec, "", fmt.Errorf("%w: %q", ErrMissingKey, rec.SourceURL)
	}
	rec.SourceURL = key
	return rec, key, nil
}
