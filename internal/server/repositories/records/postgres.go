package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sealvault/internal/common"
	"github.com/dmitrijs2005/sealvault/internal/dbx"
	"github.com/dmitrijs2005/sealvault/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE unique_violation; only the nonce column can collide
const pgUniqueViolation = "23505"

// PostgresRepository implements the ledger over a dbx.DBTX (*sql.DB or *sql.Tx).
// Insertion order is the bigserial seq column; the schema rejects UPDATE and
// DELETE on the records table.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, rec *models.Record) (string, error) {
	id := newID()
	createdAt := now()

	query := `
		INSERT INTO records (id, ciphertext, nonce, signature, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, id, rec.Ciphertext, rec.Nonce, rec.Signature, createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return "", fmt.Errorf("%w: nonce reuse", common.ErrCrypto)
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	rec.ID = id
	rec.CreatedAt = createdAt
	return id, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Record, error) {
	query := `SELECT id, ciphertext, nonce, signature, created_at FROM records ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		var item models.Record
		if err := rows.Scan(&item.ID, &item.Ciphertext, &item.Nonce, &item.Signature, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	// the id column is uuid; anything else can not exist and would make
	// postgres fail the cast instead of returning no rows
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("record %s: %w", id, common.ErrorNotFound)
	}

	query := `SELECT id, ciphertext, nonce, signature, created_at FROM records WHERE id = $1`

	var item models.Record
	err := r.db.QueryRowContext(ctx, query, id).Scan(&item.ID, &item.Ciphertext, &item.Nonce, &item.Signature, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", id, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("failed to select record: %w", err)
	}
	return &item, nil
}
