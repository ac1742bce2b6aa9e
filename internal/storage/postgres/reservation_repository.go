package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Anabol1ks/hotel-booking/internal/availability"
	"github.com/Anabol1ks/hotel-booking/internal/domain"
)

const reservationColumns = `id, room_id, requester_id, start_date, end_date, total_cost_cents, payment_status, is_offline_booking, created_at, expires_at`

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ReservationRepository) Create(ctx context.Context, res domain.Reservation) error {
	if res.Range.Nights() <= 0 || res.TotalCostCents <= 0 {
		return fmt.Errorf("%w: degenerate range or cost", domain.ErrValidation)
	}

	const stmt = `
INSERT INTO reservations (id, room_id, requester_id, start_date, end_date, total_cost_cents, payment_status, is_offline_booking, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.exec(ctx, stmt,
		res.ID,
		res.RoomID,
		res.RequesterID,
		res.Range.Start,
		res.Range.End,
		res.TotalCostCents,
		res.PaymentStatus,
		res.Offline,
		res.CreatedAt,
		res.ExpiresAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		return classify(fmt.Errorf("create reservation: %w", err))
	}
	return nil
}

func (r *ReservationRepository) Get(ctx context.Context, id string) (domain.Reservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE id = $1`, reservationColumns)

	res, err := scanReservation(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, classify(fmt.Errorf("get reservation: %w", err))
	}
	return res, nil
}

func (r *ReservationRepository) ListByRequester(ctx context.Context, requesterID string) ([]domain.Reservation, error) {
	query := fmt.Sprintf(`
SELECT %s FROM reservations
WHERE requester_id = $1
ORDER BY created_at DESC`, reservationColumns)

	rows, err := r.query(ctx, query, requesterID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, classify(fmt.Errorf("list reservations by requester: %w", err))
	}
	return collectReservations(rows, "list reservations by requester")
}

// ListByOwner returns reservations for every room in the owner's hotels,
// newest first.
func (r *ReservationRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Reservation, error) {
	query := fmt.Sprintf(`
SELECT %s FROM reservations res
JOIN rooms rm ON res.room_id = rm.id
JOIN hotels h ON rm.hotel_id = h.id
WHERE h.owner_id = $1
ORDER BY res.created_at DESC`, prefixColumns("res"))

	rows, err := r.query(ctx, query, ownerID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, classify(fmt.Errorf("list reservations by owner: %w", err))
	}
	return collectReservations(rows, "list reservations by owner")
}

// ListActiveByRoom returns the reservations still claiming intervals on
// the room (pending, failed-but-unexpired, succeeded).
func (r *ReservationRepository) ListActiveByRoom(ctx context.Context, roomID string) ([]domain.Reservation, error) {
	query := fmt.Sprintf(`
SELECT %s FROM reservations
WHERE room_id = $1 AND payment_status IN ('pending', 'failed', 'succeeded')
ORDER BY start_date`, reservationColumns)

	rows, err := r.query(ctx, query, roomID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, classify(fmt.Errorf("list active reservations: %w", err))
	}
	return collectReservations(rows, "list active reservations")
}

// ListExpiredPending feeds the expiry sweep: holds past their deadline
// that are still awaiting (or retried after) payment.
func (r *ReservationRepository) ListExpiredPending(ctx context.Context, asOf time.Time) ([]domain.Reservation, error) {
	query := fmt.Sprintf(`
SELECT %s FROM reservations
WHERE payment_status IN ('pending', 'failed') AND expires_at <= $1
ORDER BY expires_at`, reservationColumns)

	rows, err := r.query(ctx, query, asOf)
	if err != nil {
		return nil, classify(fmt.Errorf("list expired pending: %w", err))
	}
	return collectReservations(rows, "list expired pending")
}

// Transition performs the optimistic state change: it succeeds only when
// the stored status still equals from. Exactly one of two racing
// terminalizing calls can win.
func (r *ReservationRepository) Transition(ctx context.Context, id string, from, to domain.PaymentStatus) error {
	const stmt = `UPDATE reservations SET payment_status = $3 WHERE id = $1 AND payment_status = $2`

	tag, err := r.exec(ctx, stmt, id, from, to)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return classify(fmt.Errorf("transition reservation: %w", err))
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)`, id).Scan(&exists); err != nil {
			return classify(fmt.Errorf("transition reservation: %w", err))
		}
		if !exists {
			return domain.ErrReservationNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

// ActiveEntries hydrates the availability index at startup.
func (r *ReservationRepository) ActiveEntries(ctx context.Context) ([]availability.Entry, error) {
	const query = `
SELECT id, room_id, start_date, end_date
FROM reservations
WHERE payment_status IN ('pending', 'failed', 'succeeded')`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, classify(fmt.Errorf("active entries: %w", err))
	}
	defer rows.Close()

	var entries []availability.Entry
	for rows.Next() {
		var e availability.Entry
		if err := rows.Scan(&e.ReservationID, &e.RoomID, &e.Range.Start, &e.Range.End); err != nil {
			return nil, fmt.Errorf("active entries: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("active entries: %w", err))
	}
	return entries, nil
}

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var res domain.Reservation
	var status string
	err := row.Scan(
		&res.ID,
		&res.RoomID,
		&res.RequesterID,
		&res.Range.Start,
		&res.Range.End,
		&res.TotalCostCents,
		&status,
		&res.Offline,
		&res.CreatedAt,
		&res.ExpiresAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.PaymentStatus = domain.PaymentStatus(status)
	return res, nil
}

func collectReservations(rows pgx.Rows, op string) ([]domain.Reservation, error) {
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("%s: %w", op, err))
	}
	return out, nil
}

func prefixColumns(alias string) string {
	return fmt.Sprintf(
		"%[1]s.id, %[1]s.room_id, %[1]s.requester_id, %[1]s.start_date, %[1]s.end_date, %[1]s.total_cost_cents, %[1]s.payment_status, %[1]s.is_offline_booking, %[1]s.created_at, %[1]s.expires_at",
		alias,
	)
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *ReservationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
