// Package records implements the append-only ledger of signed records.
// Stores assign the record ID and creation time on insertion and expose no
// way to change or remove a stored record.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sealvault/internal/server/models"
	"github.com/google/uuid"
)

// Repository is the append-only record ledger.
type Repository interface {
	// Insert assigns ID and CreatedAt to rec, appends it and returns the ID.
	Insert(ctx context.Context, rec *models.Record) (string, error)
	// List returns all records in insertion order.
	List(ctx context.Context) ([]*models.Record, error)
	// Get returns the record with the given ID or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Record, error)
}

// seams for deterministic tests
var (
	newID = uuid.NewString
	now   = func() time.Time { return time.Now().UTC() }
)
