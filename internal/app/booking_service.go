package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Anabol1ks/hotel-booking/internal/availability"
	"github.com/Anabol1ks/hotel-booking/internal/clock"
	"github.com/Anabol1ks/hotel-booking/internal/domain"
)

// ReservationStore is the durable source of truth for bookings.
type ReservationStore interface {
	Create(ctx context.Context, res domain.Reservation) error
	Get(ctx context.Context, id string) (domain.Reservation, error)
	ListByRequester(ctx context.Context, requesterID string) ([]domain.Reservation, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Reservation, error)
	ListActiveByRoom(ctx context.Context, roomID string) ([]domain.Reservation, error)
	ListExpiredPending(ctx context.Context, asOf time.Time) ([]domain.Reservation, error)
	Transition(ctx context.Context, id string, from, to domain.PaymentStatus) error
}

// PricingSource supplies the nightly rate, read at hold creation only.
type PricingSource interface {
	GetRoom(ctx context.Context, id string) (domain.Room, error)
}

// AuthorizationGate resolves the authoritative role of an identity.
// Consulted only for privileged operations.
type AuthorizationGate interface {
	RoleOf(ctx context.Context, userID string) (domain.Role, error)
}

// GuestDirectory resolves walk-in guests for offline bookings.
type GuestDirectory interface {
	EnsureGuest(ctx context.Context, phone, name string) (string, error)
}

const (
	defaultHoldWindow = 30 * time.Minute
	defaultOpTimeout  = 5 * time.Second
)

// BookingService orchestrates the hold lifecycle. It is the only writer
// of the availability index and of reservation state transitions.
type BookingService struct {
	store      ReservationStore
	rooms      PricingSource
	gate       AuthorizationGate
	guests     GuestDirectory
	index      *availability.Index
	clock      clock.Clock
	logger     *zap.Logger
	holdWindow time.Duration
	opTimeout  time.Duration
}

func NewBookingService(
	store ReservationStore,
	rooms PricingSource,
	gate AuthorizationGate,
	guests GuestDirectory,
	index *availability.Index,
	clk clock.Clock,
	logger *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	svc := &BookingService{
		store:      store,
		rooms:      rooms,
		gate:       gate,
		guests:     guests,
		index:      index,
		clock:      clk,
		logger:     logger,
		holdWindow: defaultHoldWindow,
		opTimeout:  defaultOpTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BookingServiceOption func(*BookingService)

// WithHoldWindow overrides the default payment window for new holds.
func WithHoldWindow(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.holdWindow = d
		}
	}
}

// WithOpTimeout overrides the bounded timeout applied to storage and
// authorization calls.
func WithOpTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

type CreateHoldInput struct {
	RequesterID string
	RoomID      string
	Range       domain.DateRange
}

// CreateHold validates the request, freezes the cost and atomically
// claims the interval. On any failure after the claim the interval is
// released again, so no partial state is left behind.
func (s *BookingService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Reservation, error) {
	if in.RequesterID == "" {
		return domain.Reservation{}, domain.ErrUnauthenticated
	}
	return s.createHold(ctx, in.RequesterID, in.RoomID, in.Range, false)
}

type OfflineHoldInput struct {
	RoomID    string
	Range     domain.DateRange
	Phone     string
	GuestName string
}

// CreateOfflineHold is the staff-initiated variant for walk-in guests.
// It follows the identical hold path; the reservation is only flagged
// as offline and attributed to a guest account looked up by phone.
func (s *BookingService) CreateOfflineHold(ctx context.Context, id domain.Identity, in OfflineHoldInput) (domain.Reservation, error) {
	if err := s.requireStaff(ctx, id); err != nil {
		return domain.Reservation{}, err
	}
	if in.Phone == "" || in.GuestName == "" {
		return domain.Reservation{}, fmt.Errorf("%w: guest phone and name are required", domain.ErrValidation)
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	guestID, err := s.guests.EnsureGuest(opCtx, in.Phone, in.GuestName)
	if err != nil {
		return domain.Reservation{}, err
	}
	return s.createHold(ctx, guestID, in.RoomID, in.Range, true)
}

func (s *BookingService) createHold(ctx context.Context, requesterID, roomID string, rng domain.DateRange, offline bool) (domain.Reservation, error) {
	now := s.clock.Now()
	if err := rng.Validate(now); err != nil {
		return domain.Reservation{}, err
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	room, err := s.rooms.GetRoom(opCtx, roomID)
	if err != nil {
		return domain.Reservation{}, err
	}

	cost, err := totalCost(room.PriceCents, rng.Nights())
	if err != nil {
		return domain.Reservation{}, err
	}

	res := domain.Reservation{
		ID:             uuid.NewString(),
		RoomID:         room.ID,
		RequesterID:    requesterID,
		Range:          rng,
		TotalCostCents: cost,
		PaymentStatus:  domain.PaymentStatusPending,
		Offline:        offline,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.holdWindow),
	}

	if err := s.index.Reserve(room.ID, rng, res.ID); err != nil {
		return domain.Reservation{}, err
	}

	createCtx, cancelCreate := s.opCtx(ctx)
	defer cancelCreate()
	if err := s.store.Create(createCtx, res); err != nil {
		s.index.Release(room.ID, res.ID)
		return domain.Reservation{}, err
	}

	s.logger.Info("hold created",
		zap.String("reservation_id", res.ID),
		zap.String("room_id", room.ID),
		zap.Bool("offline", offline),
		zap.Time("expires_at", res.ExpiresAt),
	)
	return res, nil
}

// PaymentOutcome is the result reported by the payment flow; gateway
// integration itself lives outside this service.
type PaymentOutcome string

const (
	PaymentOutcomeSucceeded PaymentOutcome = "succeeded"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
)

// ConfirmPayment applies a payment result to a pending hold. A lost race
// against the expiry sweep surfaces as ErrExpired, never as a silent
// success.
func (s *BookingService) ConfirmPayment(ctx context.Context, reservationID string, outcome PaymentOutcome) (domain.Reservation, error) {
	if outcome != PaymentOutcomeSucceeded && outcome != PaymentOutcomeFailed {
		return domain.Reservation{}, fmt.Errorf("%w: unknown payment outcome %q", domain.ErrValidation, outcome)
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.store.Get(opCtx, reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if res.PaymentStatus.Terminal() {
		return domain.Reservation{}, domain.ErrAlreadyFinalized
	}
	now := s.clock.Now()
	if now.After(res.ExpiresAt) {
		return domain.Reservation{}, domain.ErrExpired
	}
	if res.PaymentStatus == domain.PaymentStatusFailed {
		// A failed attempt must be retried back to pending first.
		return domain.Reservation{}, domain.ErrConflict
	}

	target := domain.PaymentStatusSucceeded
	if outcome == PaymentOutcomeFailed {
		target = domain.PaymentStatusFailed
	}

	if err := s.store.Transition(opCtx, reservationID, domain.PaymentStatusPending, target); err != nil {
		return domain.Reservation{}, s.resolveLostRace(opCtx, reservationID, err)
	}

	res.PaymentStatus = target
	s.logger.Info("payment recorded",
		zap.String("reservation_id", res.ID),
		zap.String("status", string(target)),
	)
	return res, nil
}

// RetryPayment moves a failed, still unexpired hold back to pending so
// payment can be attempted again.
func (s *BookingService) RetryPayment(ctx context.Context, reservationID string) (domain.Reservation, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.store.Get(opCtx, reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if res.PaymentStatus.Terminal() {
		return domain.Reservation{}, domain.ErrAlreadyFinalized
	}
	if s.clock.Now().After(res.ExpiresAt) {
		return domain.Reservation{}, domain.ErrExpired
	}
	if res.PaymentStatus == domain.PaymentStatusPending {
		return res, nil
	}

	if err := s.store.Transition(opCtx, reservationID, domain.PaymentStatusFailed, domain.PaymentStatusPending); err != nil {
		return domain.Reservation{}, s.resolveLostRace(opCtx, reservationID, err)
	}
	res.PaymentStatus = domain.PaymentStatusPending
	return res, nil
}

// Cancel finalizes a hold on behalf of its requester or staff and
// releases the claimed interval.
func (s *BookingService) Cancel(ctx context.Context, reservationID string, id domain.Identity) (domain.Reservation, error) {
	if id.UserID == "" {
		return domain.Reservation{}, domain.ErrUnauthenticated
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.store.Get(opCtx, reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if res.RequesterID != id.UserID {
		if err := s.requireStaff(ctx, id); err != nil {
			return domain.Reservation{}, err
		}
	}
	if res.PaymentStatus.Terminal() {
		return domain.Reservation{}, domain.ErrAlreadyFinalized
	}

	if err := s.store.Transition(opCtx, reservationID, res.PaymentStatus, domain.PaymentStatusCancelled); err != nil {
		return domain.Reservation{}, s.resolveLostRace(opCtx, reservationID, err)
	}
	s.index.Release(res.RoomID, res.ID)

	res.PaymentStatus = domain.PaymentStatusCancelled
	s.logger.Info("reservation cancelled",
		zap.String("reservation_id", res.ID),
		zap.String("cancelled_by", id.UserID),
	)
	return res, nil
}

// Availability answers whether the room is free for the whole range.
func (s *BookingService) Availability(_ context.Context, roomID string, rng domain.DateRange) (bool, error) {
	if !rng.Start.Before(rng.End) {
		return false, fmt.Errorf("%w: start date must be before end date", domain.ErrValidation)
	}
	return !s.index.Query(roomID, rng), nil
}

// ReservationsOf returns the requester's reservations, newest first.
func (s *BookingService) ReservationsOf(ctx context.Context, requesterID string) ([]domain.Reservation, error) {
	if requesterID == "" {
		return nil, domain.ErrUnauthenticated
	}
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.store.ListByRequester(opCtx, requesterID)
}

// OwnerReservations lists bookings across every room in the owner's
// hotels.
func (s *BookingService) OwnerReservations(ctx context.Context, id domain.Identity) ([]domain.Reservation, error) {
	role, err := s.roleOf(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleOwner && role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.store.ListByOwner(opCtx, id.UserID)
}

// RoomReservations lists the active claims on a room.
func (s *BookingService) RoomReservations(ctx context.Context, roomID string) ([]domain.Reservation, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.store.ListActiveByRoom(opCtx, roomID)
}

// resolveLostRace re-reads after a failed conditional transition and
// reports what actually happened to the caller.
func (s *BookingService) resolveLostRace(ctx context.Context, reservationID string, cause error) error {
	if cause != domain.ErrConflict {
		return cause
	}
	res, err := s.store.Get(ctx, reservationID)
	if err != nil {
		return cause
	}
	switch res.PaymentStatus {
	case domain.PaymentStatusExpired:
		return domain.ErrExpired
	case domain.PaymentStatusSucceeded, domain.PaymentStatusCancelled:
		return domain.ErrAlreadyFinalized
	}
	return cause
}

func (s *BookingService) requireStaff(ctx context.Context, id domain.Identity) error {
	role, err := s.roleOf(ctx, id)
	if err != nil {
		return err
	}
	if !role.Staff() {
		return domain.ErrForbidden
	}
	return nil
}

func (s *BookingService) roleOf(ctx context.Context, id domain.Identity) (domain.Role, error) {
	if id.UserID == "" {
		return "", domain.ErrUnauthenticated
	}
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.gate.RoleOf(opCtx, id.UserID)
}

func (s *BookingService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func totalCost(priceCents int64, nights int) (int64, error) {
	if nights <= 0 {
		return 0, fmt.Errorf("%w: stay must cover at least one night", domain.ErrValidation)
	}
	if priceCents <= 0 {
		return 0, fmt.Errorf("%w: room has no usable nightly rate", domain.ErrValidation)
	}
	cost := priceCents * int64(nights)
	if cost/int64(nights) != priceCents {
		return 0, fmt.Errorf("%w: cost overflows", domain.ErrValidation)
	}
	return cost, nil
}
