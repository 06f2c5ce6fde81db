// Package repository persists path assets.
package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/okian/animpath/internal/domain/path"
	"github.com/okian/animpath/pkg/metrics"
)

// Store provides read/write access to named path assets.
type Store interface {
	// Save writes st under name, replacing any previous asset.
	Save(ctx context.Context, name string, st path.State) error

	// Load returns the asset stored under name.
	// Returns ErrNotFound if there is none.
	Load(ctx context.Context, name string) (path.State, error)

	// Exists reports whether an asset is stored under name.
	Exists(ctx context.Context, name string) (bool, error)

	// List returns the stored asset names in lexical order.
	List(ctx context.Context) ([]string, error)
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateName checks that name can be used as an asset key.
func ValidateName(name string) error {
	if len(name) > 128 || !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// observe records the outcome of a store operation.
func observe(backend, op string, start time.Time, err error) {
	result := "ok"
	switch {
	case err == nil:
	case isNotFound(err):
		result = "not_found"
	default:
		result = "error"
	}
	metrics.RecordStoreOperation(backend, op, result, float64(time.Since(start).Microseconds())/1000)
}
