package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Anabol1ks/hotel-booking/internal/availability"
	"github.com/Anabol1ks/hotel-booking/internal/clock"
	"github.com/Anabol1ks/hotel-booking/internal/domain"
)

func day(n int) time.Time {
	return time.Date(2025, 8, n, 0, 0, 0, 0, time.UTC)
}

func rng(start, end int) domain.DateRange {
	return domain.DateRange{Start: day(start), End: day(end)}
}

type fixture struct {
	svc   *BookingService
	store *fakeStore
	rooms *fakeRooms
	gate  *fakeGate
	index *availability.Index
	clock *clock.Stepped
}

func newFixture(t *testing.T, rooms ...domain.Room) *fixture {
	t.Helper()

	f := &fixture{
		store: newFakeStore(),
		rooms: newFakeRooms(rooms...),
		gate: &fakeGate{roles: map[string]domain.Role{
			"client-1":  domain.RoleClient,
			"client-2":  domain.RoleClient,
			"manager-1": domain.RoleManager,
			"owner-1":   domain.RoleOwner,
			"admin-1":   domain.RoleAdmin,
		}},
		index: availability.NewIndex(),
		clock: clock.NewStepped(day(1)),
	}
	f.svc = NewBookingService(
		f.store, f.rooms, f.gate, f.store, f.index, f.clock, zap.NewNop(),
	)
	return f
}

func standardRoom() domain.Room {
	return domain.Room{ID: "r101", HotelID: "h1", Name: "R101", Capacity: 2, PriceCents: 100000}
}

func TestBookingServiceCreateHold(t *testing.T) {
	t.Parallel()

	t.Run("creates a pending hold with frozen cost and deadline", func(t *testing.T) {
		f := newFixture(t, standardRoom())

		res, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-1",
			RoomID:      "r101",
			Range:       rng(1, 3),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.ID == "" {
			t.Fatalf("expected reservation ID to be set")
		}
		if res.PaymentStatus != domain.PaymentStatusPending {
			t.Fatalf("expected pending, got %s", res.PaymentStatus)
		}
		if res.TotalCostCents != 200000 {
			t.Fatalf("expected cost 200000 for two nights, got %d", res.TotalCostCents)
		}
		if got, want := res.ExpiresAt, f.clock.Now().Add(30*time.Minute); !got.Equal(want) {
			t.Fatalf("expected expires_at %v, got %v", want, got)
		}
		stored, err := f.store.Get(context.Background(), res.ID)
		if err != nil {
			t.Fatalf("expected reservation persisted, got %v", err)
		}
		if stored.TotalCostCents != 200000 {
			t.Fatalf("unexpected stored reservation: %+v", stored)
		}
	})

	t.Run("overlapping hold on the same room is rejected", func(t *testing.T) {
		f := newFixture(t, standardRoom())

		if _, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-1", RoomID: "r101", Range: rng(1, 3),
		}); err != nil {
			t.Fatalf("first hold: %v", err)
		}
		_, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-2", RoomID: "r101", Range: rng(2, 4),
		})
		if !errors.Is(err, domain.ErrRoomUnavailable) {
			t.Fatalf("expected ErrRoomUnavailable, got %v", err)
		}
		if n := len(f.store.all()); n != 1 {
			t.Fatalf("expected no partial state, got %d reservations", n)
		}
	})

	t.Run("touching ranges on the same room both succeed", func(t *testing.T) {
		f := newFixture(t, standardRoom())

		if _, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-1", RoomID: "r101", Range: rng(1, 3),
		}); err != nil {
			t.Fatalf("first hold: %v", err)
		}
		if _, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-2", RoomID: "r101", Range: rng(3, 5),
		}); err != nil {
			t.Fatalf("expected adjacent hold to succeed, got %v", err)
		}
	})

	t.Run("price change after hold does not change its cost", func(t *testing.T) {
		f := newFixture(t, standardRoom())

		res, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-1", RoomID: "r101", Range: rng(1, 3),
		})
		if err != nil {
			t.Fatalf("hold: %v", err)
		}

		f.rooms.setPrice("r101", 999999)

		stored, err := f.store.Get(context.Background(), res.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.TotalCostCents != 200000 {
			t.Fatalf("cost changed after price update: %d", stored.TotalCostCents)
		}
	})

	t.Run("validation failures", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		ctx := context.Background()

		tests := []struct {
			name string
			in   CreateHoldInput
			want error
		}{
			{"missing requester", CreateHoldInput{RoomID: "r101", Range: rng(1, 3)}, domain.ErrUnauthenticated},
			{"inverted range", CreateHoldInput{RequesterID: "client-1", RoomID: "r101", Range: rng(3, 1)}, domain.ErrValidation},
			{"start in the past", CreateHoldInput{RequesterID: "client-1", RoomID: "r101", Range: domain.DateRange{Start: day(1).AddDate(0, -1, 0), End: day(3)}}, domain.ErrValidation},
			{"unknown room", CreateHoldInput{RequesterID: "client-1", RoomID: "missing", Range: rng(1, 3)}, domain.ErrRoomNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := f.svc.CreateHold(ctx, tt.in); !errors.Is(err, tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("store failure rolls the interval claim back", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		f.store.failCreate = errors.New("boom")

		if _, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-1", RoomID: "r101", Range: rng(1, 3),
		}); err == nil {
			t.Fatalf("expected error")
		}
		f.store.failCreate = nil

		if _, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-1", RoomID: "r101", Range: rng(1, 3),
		}); err != nil {
			t.Fatalf("interval should have been released, got %v", err)
		}
	})

	t.Run("concurrent overlapping holds admit exactly one winner", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		const workers = 16

		var wg sync.WaitGroup
		var mu sync.Mutex
		var won, unavailable int

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
					RequesterID: "client-1", RoomID: "r101", Range: rng(1, 4),
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					won++
				case errors.Is(err, domain.ErrRoomUnavailable):
					unavailable++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		if won != 1 || unavailable != workers-1 {
			t.Fatalf("expected 1 winner and %d rejections, got %d/%d", workers-1, won, unavailable)
		}
	})
}

func TestBookingServiceOfflineHold(t *testing.T) {
	t.Parallel()

	t.Run("staff can create offline holds for walk-in guests", func(t *testing.T) {
		f := newFixture(t, standardRoom())

		res, err := f.svc.CreateOfflineHold(context.Background(), domain.Identity{UserID: "manager-1", Role: domain.RoleManager}, OfflineHoldInput{
			RoomID: "r101", Range: rng(1, 3), Phone: "+70001112233", GuestName: "Walk In",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.Offline {
			t.Fatalf("expected offline flag")
		}
		if res.RequesterID == "" || res.RequesterID == "manager-1" {
			t.Fatalf("expected hold attributed to the guest, got %q", res.RequesterID)
		}

		// Same phone resolves to the same guest.
		res2, err := f.svc.CreateOfflineHold(context.Background(), domain.Identity{UserID: "manager-1", Role: domain.RoleManager}, OfflineHoldInput{
			RoomID: "r101", Range: rng(5, 6), Phone: "+70001112233", GuestName: "Walk In",
		})
		if err != nil {
			t.Fatalf("second offline hold: %v", err)
		}
		if res2.RequesterID != res.RequesterID {
			t.Fatalf("expected same guest, got %q vs %q", res2.RequesterID, res.RequesterID)
		}
	})

	t.Run("clients may not create offline holds", func(t *testing.T) {
		f := newFixture(t, standardRoom())

		_, err := f.svc.CreateOfflineHold(context.Background(), domain.Identity{UserID: "client-1", Role: domain.RoleClient}, OfflineHoldInput{
			RoomID: "r101", Range: rng(1, 3), Phone: "+70001112233", GuestName: "Walk In",
		})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("gate is authoritative over the token role", func(t *testing.T) {
		f := newFixture(t, standardRoom())

		// Token claims manager, the gate says client.
		_, err := f.svc.CreateOfflineHold(context.Background(), domain.Identity{UserID: "client-1", Role: domain.RoleManager}, OfflineHoldInput{
			RoomID: "r101", Range: rng(1, 3), Phone: "+70001112233", GuestName: "Walk In",
		})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestBookingServiceConfirmPayment(t *testing.T) {
	t.Parallel()

	hold := func(t *testing.T, f *fixture) domain.Reservation {
		t.Helper()
		res, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-1", RoomID: "r101", Range: rng(1, 3),
		})
		if err != nil {
			t.Fatalf("hold: %v", err)
		}
		return res
	}

	t.Run("success finalizes the hold and keeps the interval", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		res := hold(t, f)

		confirmed, err := f.svc.ConfirmPayment(context.Background(), res.ID, PaymentOutcomeSucceeded)
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if confirmed.PaymentStatus != domain.PaymentStatusSucceeded {
			t.Fatalf("expected succeeded, got %s", confirmed.PaymentStatus)
		}

		// Interval stays permanently occupied.
		if _, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-2", RoomID: "r101", Range: rng(2, 4),
		}); !errors.Is(err, domain.ErrRoomUnavailable) {
			t.Fatalf("expected ErrRoomUnavailable, got %v", err)
		}
		if _, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-2", RoomID: "r101", Range: rng(3, 5),
		}); err != nil {
			t.Fatalf("expected adjacent range free, got %v", err)
		}
	})

	t.Run("unknown reservation", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		if _, err := f.svc.ConfirmPayment(context.Background(), "missing", PaymentOutcomeSucceeded); !errors.Is(err, domain.ErrReservationNotFound) {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
	})

	t.Run("confirming past the deadline reports expired", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		res := hold(t, f)

		f.clock.Advance(31 * time.Minute)
		if _, err := f.svc.ConfirmPayment(context.Background(), res.ID, PaymentOutcomeSucceeded); !errors.Is(err, domain.ErrExpired) {
			t.Fatalf("expected ErrExpired, got %v", err)
		}
	})

	t.Run("confirming a finalized hold reports already finalized", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		res := hold(t, f)

		if _, err := f.svc.ConfirmPayment(context.Background(), res.ID, PaymentOutcomeSucceeded); err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if _, err := f.svc.ConfirmPayment(context.Background(), res.ID, PaymentOutcomeSucceeded); !errors.Is(err, domain.ErrAlreadyFinalized) {
			t.Fatalf("expected ErrAlreadyFinalized, got %v", err)
		}
	})

	t.Run("failed payment can be retried until the deadline", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		res := hold(t, f)

		failed, err := f.svc.ConfirmPayment(context.Background(), res.ID, PaymentOutcomeFailed)
		if err != nil {
			t.Fatalf("record failure: %v", err)
		}
		if failed.PaymentStatus != domain.PaymentStatusFailed {
			t.Fatalf("expected failed, got %s", failed.PaymentStatus)
		}

		// A failed hold still claims its interval.
		if _, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-2", RoomID: "r101", Range: rng(1, 3),
		}); !errors.Is(err, domain.ErrRoomUnavailable) {
			t.Fatalf("expected interval still claimed, got %v", err)
		}

		// Direct confirm on a failed hold is refused until retried.
		if _, err := f.svc.ConfirmPayment(context.Background(), res.ID, PaymentOutcomeSucceeded); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}

		retried, err := f.svc.RetryPayment(context.Background(), res.ID)
		if err != nil {
			t.Fatalf("retry: %v", err)
		}
		if retried.PaymentStatus != domain.PaymentStatusPending {
			t.Fatalf("expected pending after retry, got %s", retried.PaymentStatus)
		}
		if _, err := f.svc.ConfirmPayment(context.Background(), res.ID, PaymentOutcomeSucceeded); err != nil {
			t.Fatalf("confirm after retry: %v", err)
		}
	})

	t.Run("retry past the deadline reports expired", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		res := hold(t, f)

		if _, err := f.svc.ConfirmPayment(context.Background(), res.ID, PaymentOutcomeFailed); err != nil {
			t.Fatalf("record failure: %v", err)
		}
		f.clock.Advance(31 * time.Minute)
		if _, err := f.svc.RetryPayment(context.Background(), res.ID); !errors.Is(err, domain.ErrExpired) {
			t.Fatalf("expected ErrExpired, got %v", err)
		}
	})
}

func TestBookingServiceCancel(t *testing.T) {
	t.Parallel()

	t.Run("requester cancels and the interval is released", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		res, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-1", RoomID: "r101", Range: rng(1, 3),
		})
		if err != nil {
			t.Fatalf("hold: %v", err)
		}

		cancelled, err := f.svc.Cancel(context.Background(), res.ID, domain.Identity{UserID: "client-1", Role: domain.RoleClient})
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if cancelled.PaymentStatus != domain.PaymentStatusCancelled {
			t.Fatalf("expected cancelled, got %s", cancelled.PaymentStatus)
		}

		if _, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-2", RoomID: "r101", Range: rng(1, 3),
		}); err != nil {
			t.Fatalf("expected range free after cancel, got %v", err)
		}
	})

	t.Run("strangers may not cancel, staff may", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		res, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-1", RoomID: "r101", Range: rng(1, 3),
		})
		if err != nil {
			t.Fatalf("hold: %v", err)
		}

		if _, err := f.svc.Cancel(context.Background(), res.ID, domain.Identity{UserID: "client-2", Role: domain.RoleClient}); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if _, err := f.svc.Cancel(context.Background(), res.ID, domain.Identity{UserID: "manager-1", Role: domain.RoleManager}); err != nil {
			t.Fatalf("staff cancel: %v", err)
		}
	})

	t.Run("cancelling a paid reservation is refused", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		res, err := f.svc.CreateHold(context.Background(), CreateHoldInput{
			RequesterID: "client-1", RoomID: "r101", Range: rng(1, 3),
		})
		if err != nil {
			t.Fatalf("hold: %v", err)
		}
		if _, err := f.svc.ConfirmPayment(context.Background(), res.ID, PaymentOutcomeSucceeded); err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if _, err := f.svc.Cancel(context.Background(), res.ID, domain.Identity{UserID: "client-1", Role: domain.RoleClient}); !errors.Is(err, domain.ErrAlreadyFinalized) {
			t.Fatalf("expected ErrAlreadyFinalized, got %v", err)
		}
	})
}

func TestBookingServiceQueries(t *testing.T) {
	t.Parallel()

	t.Run("availability reflects the index", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		ctx := context.Background()

		free, err := f.svc.Availability(ctx, "r101", rng(1, 3))
		if err != nil || !free {
			t.Fatalf("expected available, got %v/%v", free, err)
		}
		if _, err := f.svc.CreateHold(ctx, CreateHoldInput{RequesterID: "client-1", RoomID: "r101", Range: rng(1, 3)}); err != nil {
			t.Fatalf("hold: %v", err)
		}
		free, err = f.svc.Availability(ctx, "r101", rng(2, 4))
		if err != nil || free {
			t.Fatalf("expected unavailable, got %v/%v", free, err)
		}
		if _, err := f.svc.Availability(ctx, "r101", rng(3, 1)); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("reservations of a requester come back newest first", func(t *testing.T) {
		f := newFixture(t, standardRoom())
		ctx := context.Background()

		first, err := f.svc.CreateHold(ctx, CreateHoldInput{RequesterID: "client-1", RoomID: "r101", Range: rng(1, 3)})
		if err != nil {
			t.Fatalf("hold: %v", err)
		}
		f.clock.Advance(time.Minute)
		second, err := f.svc.CreateHold(ctx, CreateHoldInput{RequesterID: "client-1", RoomID: "r101", Range: rng(5, 7)})
		if err != nil {
			t.Fatalf("hold: %v", err)
		}

		list, err := f.svc.ReservationsOf(ctx, "client-1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
			t.Fatalf("unexpected order: %+v", list)
		}
	})
}

// --- fakes, in the style of in-package fake repositories ---

type fakeStore struct {
	mu           sync.Mutex
	reservations map[string]domain.Reservation
	guests       map[string]string // phone -> user id
	failCreate   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reservations: make(map[string]domain.Reservation),
		guests:       make(map[string]string),
	}
}

func (f *fakeStore) Create(_ context.Context, res domain.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	f.reservations[res.ID] = res
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return res, nil
}

func (f *fakeStore) ListByRequester(_ context.Context, requesterID string) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, res := range f.reservations {
		if res.RequesterID == requesterID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ListByOwner(_ context.Context, _ string) ([]domain.Reservation, error) {
	return nil, nil
}

func (f *fakeStore) ListActiveByRoom(_ context.Context, roomID string) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, res := range f.reservations {
		if res.RoomID == roomID && res.PaymentStatus.Active() {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start.Before(out[j].Range.Start) })
	return out, nil
}

func (f *fakeStore) ListExpiredPending(_ context.Context, asOf time.Time) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, res := range f.reservations {
		if res.PaymentStatus.Terminal() {
			continue
		}
		if !res.ExpiresAt.After(asOf) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (f *fakeStore) Transition(_ context.Context, id string, from, to domain.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[id]
	if !ok {
		return domain.ErrReservationNotFound
	}
	if res.PaymentStatus != from {
		return domain.ErrConflict
	}
	res.PaymentStatus = to
	f.reservations[id] = res
	return nil
}

func (f *fakeStore) EnsureGuest(_ context.Context, phone, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.guests[phone]; ok {
		return id, nil
	}
	id := "guest-" + phone
	f.guests[phone] = id
	return id, nil
}

func (f *fakeStore) all() []domain.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Reservation, 0, len(f.reservations))
	for _, res := range f.reservations {
		out = append(out, res)
	}
	return out
}

type fakeRooms struct {
	mu    sync.Mutex
	rooms map[string]domain.Room
}

func newFakeRooms(rooms ...domain.Room) *fakeRooms {
	m := make(map[string]domain.Room, len(rooms))
	for _, room := range rooms {
		m[room.ID] = room
	}
	return &fakeRooms{rooms: m}
}

func (f *fakeRooms) GetRoom(_ context.Context, id string) (domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return room, nil
}

func (f *fakeRooms) setPrice(id string, priceCents int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := f.rooms[id]
	room.PriceCents = priceCents
	f.rooms[id] = room
}

type fakeGate struct {
	roles map[string]domain.Role
}

func (f *fakeGate) RoleOf(_ context.Context, userID string) (domain.Role, error) {
	role, ok := f.roles[userID]
	if !ok {
		return "", domain.ErrUnauthenticated
	}
	return role, nil
}
