package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Anabol1ks/hotel-booking/internal/domain"
)

// RoomRepository is the pricing source: the nightly rate is read here at
// hold creation and frozen into the reservation.
type RoomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

func (r *RoomRepository) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	const query = `SELECT id, hotel_id, name, capacity, price_cents FROM rooms WHERE id = $1`

	var room domain.Room
	err := r.queryRow(ctx, query, id).
		Scan(&room.ID, &room.HotelID, &room.Name, &room.Capacity, &room.PriceCents)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Room{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Room{}, domain.ErrRoomNotFound
		}
		return domain.Room{}, classify(fmt.Errorf("get room: %w", err))
	}
	return room, nil
}

func (r *RoomRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
