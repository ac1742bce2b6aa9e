package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Anabol1ks/hotel-booking/internal/domain"
)

// UserRepository backs the authorization gate and the guest directory
// used by offline bookings.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// RoleOf looks up the stored role for the user, the authoritative check
// behind privileged operations.
func (r *UserRepository) RoleOf(ctx context.Context, userID string) (domain.Role, error) {
	const query = `SELECT role FROM users WHERE id = $1`

	var role string
	err := r.queryRow(ctx, query, userID).Scan(&role)
	if err != nil {
		if isInvalidUUID(err) {
			return "", domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return "", domain.ErrUnauthenticated
		}
		return "", classify(fmt.Errorf("role of: %w", err))
	}
	return domain.Role(role), nil
}

// EnsureGuest finds or creates the client account an offline booking is
// attributed to, keyed by phone number.
func (r *UserRepository) EnsureGuest(ctx context.Context, phone, name string) (string, error) {
	const query = `SELECT id FROM users WHERE phone = $1`

	var id string
	err := r.queryRow(ctx, query, phone).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return "", classify(fmt.Errorf("find guest: %w", err))
	}

	const stmt = `INSERT INTO users (name, phone, role) VALUES ($1, $2, 'client') RETURNING id`
	if err := r.queryRow(ctx, stmt, name, phone).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			// Lost a race to a concurrent upsert for the same phone.
			if lookupErr := r.queryRow(ctx, query, phone).Scan(&id); lookupErr == nil {
				return id, nil
			}
		}
		return "", classify(fmt.Errorf("create guest: %w", err))
	}
	return id, nil
}

func (r *UserRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
