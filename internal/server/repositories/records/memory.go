package records

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/sealvault/internal/common"
	"github.com/dmitrijs2005/sealvault/internal/server/models"
)

// MemoryRepository keeps the ledger in process memory.
//
// Inserts are serialised by mu and publish a new slice header through
// snapshot. Elements below a published length are never written again, so
// List and Get read without locking.
type MemoryRepository struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[[]*models.Record]
	byID     sync.Map
	nonces   map[string]struct{}
}

// NewMemoryRepository returns an empty in-memory ledger.
func NewMemoryRepository() *MemoryRepository {
	r := &MemoryRepository{nonces: make(map[string]struct{})}
	r.snapshot.Store(&[]*models.Record{})
	return r
}

func (r *MemoryRepository) Insert(ctx context.Context, rec *models.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stored := rec.Clone()
	stored.ID = newID()
	stored.CreatedAt = now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.nonces[string(stored.Nonce)]; dup {
		return "", fmt.Errorf("%w: nonce already used by another record", common.ErrCrypto)
	}

	next := append(*r.snapshot.Load(), stored)
	r.nonces[string(stored.Nonce)] = struct{}{}
	r.byID.Store(stored.ID, stored)
	r.snapshot.Store(&next)

	rec.ID = stored.ID
	rec.CreatedAt = stored.CreatedAt
	return stored.ID, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := *r.snapshot.Load()
	out := make([]*models.Record, len(snap))
	for i, rec := range snap {
		out[i] = rec.Clone()
	}
	return out, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, ok := r.byID.Load(id)
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, common.ErrorNotFound)
	}
	return v.(*models.Record).Clone(), nil
}
