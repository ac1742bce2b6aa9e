package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Anabol1ks/hotel-booking/internal/availability"
	"github.com/Anabol1ks/hotel-booking/internal/clock"
	"github.com/Anabol1ks/hotel-booking/internal/domain"
)

const defaultSweepInterval = 15 * time.Second

// ExpirySweeper periodically transitions stale holds to expired and
// releases their intervals. It goes through the same conditional
// transition the booking service uses, so losing a race to a concurrent
// payment confirmation is an expected outcome, not an error.
type ExpirySweeper struct {
	store    ReservationStore
	index    *availability.Index
	clock    clock.Clock
	logger   *zap.Logger
	interval time.Duration
}

func NewExpirySweeper(store ReservationStore, index *availability.Index, clk clock.Clock, logger *zap.Logger, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ExpirySweeper{
		store:    store,
		index:    index,
		clock:    clk,
		logger:   logger,
		interval: interval,
	}
}

// Run ticks until the context is cancelled. Cancellation is observed at
// tick boundaries for clean shutdown.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			expired, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error("sweep failed", zap.Error(err))
				continue
			}
			if expired > 0 {
				s.logger.Info("swept expired holds", zap.Int("count", expired))
			}
		}
	}
}

// SweepOnce expires every stale hold found at this instant and returns
// how many it terminalized.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	stale, err := s.store.ListExpiredPending(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, res := range stale {
		err := s.store.Transition(ctx, res.ID, res.PaymentStatus, domain.PaymentStatusExpired)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrReservationNotFound) {
				// Lost to a concurrent confirm or cancel.
				s.logger.Debug("skipping hold that changed state mid-sweep",
					zap.String("reservation_id", res.ID))
				continue
			}
			return expired, err
		}
		s.index.Release(res.RoomID, res.ID)
		expired++
	}
	return expired, nil
}
