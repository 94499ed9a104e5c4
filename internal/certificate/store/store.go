// Package store persists certificate records. Implementations return
// sentinel errors for infrastructure facts; services translate them into
// domain error codes.
package store

import (
	"context"

	"github.com/google/uuid"

	"landcert/internal/certificate/models"
)

// Store is the authoritative certificate registry. The uniqueness guarantees
// (number uniqueness, one live certificate per parcel) are enforced here at
// the persistence layer, not by application-level locking: a second
// concurrent Create for the same parcel must fail, never overwrite.
type Store interface {
	// Create inserts a new record. Returns sentinel.ErrDuplicateNumber when a
	// certificate or registration number is already taken and
	// sentinel.ErrDuplicateParcel when a live certificate already occupies
	// the parcel.
	Create(ctx context.Context, record models.Record) (models.Record, error)

	GetByID(ctx context.Context, id uuid.UUID) (models.Record, error)
	GetByNumber(ctx context.Context, number string) (models.Record, error)

	// Update replaces the mutable fields of an existing record. Numbers,
	// status, and parcel linkage are not touched by Update.
	Update(ctx context.Context, record models.Record) (models.Record, error)

	// UpdateStatus applies a lifecycle transition. Returns
	// sentinel.ErrInvalidState when the stored status does not allow it.
	UpdateStatus(ctx context.Context, number string, to models.Status) (models.Record, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// SaveAssets stores the resolved asset map for a certificate so artifact
	// re-export never re-runs asset resolution.
	SaveAssets(ctx context.Context, certificateID uuid.UUID, assets models.AssetMap) error
	GetAssets(ctx context.Context, certificateID uuid.UUID) (models.AssetMap, error)
}
