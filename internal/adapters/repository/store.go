// Package repository holds the live connection registry.
package repository

import (
	"context"

	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
)

// Store provides read/write access to the connection registry.
type Store interface {
	// Register inserts or overwrites the record for id under role. The id is
	// moved out of any other role partition in the same critical section.
	Register(ctx context.Context, id string, role model.Role, meta model.Meta) error

	// Get returns a copy of the record for id.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (model.Connection, error)

	// Remove deletes the record for id and returns the role it held.
	// Returns ErrNotFound, with no other effect, if the id is unknown.
	Remove(ctx context.Context, id string) (model.Role, error)

	// Count returns the number of records currently holding role.
	Count(ctx context.Context, role model.Role) int

	// Snapshot returns copies of the records holding role, ordered by
	// ConnectedAt then ID.
	Snapshot(ctx context.Context, role model.Role) []model.Connection

	// SetLastShake replaces the last accepted shake of a controller.
	SetLastShake(ctx context.Context, id string, shake model.ShakeEvent) error
}
