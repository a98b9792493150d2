package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"sitestats/api/models"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// OperatorStore manages dashboard operators.
type OperatorStore struct {
	db *sql.DB
}

func NewOperatorStore(db *sql.DB) *OperatorStore {
	return &OperatorStore{db: db}
}

// CreateOperator inserts a new operator. A taken email yields ErrDuplicate.
func (s *OperatorStore) CreateOperator(ctx context.Context, email string, hashedPassword []byte) (*models.Operator, error) {
	op := &models.Operator{}
	query := `
		INSERT INTO operators (email, hashed_password)
		VALUES ($1, $2)
		RETURNING id, email, created_at, updated_at;
	`
	err := s.db.QueryRowContext(ctx, query, email, hashedPassword).Scan(
		&op.ID,
		&op.Email,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("operator with email '%s': %w", email, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}

	return op, nil
}

// GetOperatorByEmail looks an operator up by email. A missing one yields ErrNotFound.
func (s *OperatorStore) GetOperatorByEmail(ctx context.Context, email string) (*models.Operator, error) {
	op := &models.Operator{}
	query := `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM operators
		WHERE email = $1;
	`
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&op.ID,
		&op.Email,
		&op.HashedPassword,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("operator with email '%s': %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get operator by email: %w", err)
	}

	return op, nil
}
