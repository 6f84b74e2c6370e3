package usecase

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/repository"
	"accountmarket/internal/domain/service"
	"accountmarket/pkg/logger"
)

const (
	sweepOffersLock      = "sweep:offers"
	sweepAutoReleaseLock = "sweep:auto-release"
	autoReleaseBatch     = 100
	autoReleaseParallel  = 4
)

// EscrowJobs runs the periodic sweeps: offer expiry and auto-release of
// transfers the buyer never confirmed.
type EscrowJobs struct {
	offers          *OfferUseCase
	payments        *PaymentUseCase
	transactionRepo repository.TransactionRepository
	locks           service.LockManager
	observer        Observer
	now             func() time.Time
}

func NewEscrowJobs(
	offers *OfferUseCase,
	payments *PaymentUseCase,
	transactionRepo repository.TransactionRepository,
	locks service.LockManager,
	observer Observer,
) *EscrowJobs {
	if observer == nil {
		observer = noopObserver{}
	}
	return &EscrowJobs{
		offers:          offers,
		payments:        payments,
		transactionRepo: transactionRepo,
		locks:           locks,
		observer:        observer,
		now:             time.Now,
	}
}

// exclusive runs fn when this replica wins the sweep lock. A held lock means
// another replica is already sweeping.
func (j *EscrowJobs) exclusive(ctx context.Context, key string, ttl time.Duration, fn func() (int, error)) (int, error) {
	if j.locks != nil {
		unlock, err := j.locks.Acquire(ctx, key, ttl)
		if stderrors.Is(err, service.ErrLockHeld) {
			logger.Debug("Sweep %s skipped, held by another replica", key)
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		defer unlock()
	}
	return fn()
}

func (j *EscrowJobs) ExpireOffers(ctx context.Context) (int, error) {
	n, err := j.exclusive(ctx, sweepOffersLock, time.Minute, func() (int, error) {
		return j.offers.ExpireStale(ctx)
	})
	if err != nil {
		return n, err
	}
	j.observer.ObserveSweep("offer_expiry", n)
	if n > 0 {
		logger.Info("Offer expiry sweep: %d offers expired", n)
	}
	return n, nil
}

// AutoRelease releases escrow for transfers completed longer than the
// auto-release window ago. Each release goes through ReleaseEscrow, so a
// buyer confirming at the same moment is harmless.
func (j *EscrowJobs) AutoRelease(ctx context.Context) (int, error) {
	n, err := j.exclusive(ctx, sweepAutoReleaseLock, 5*time.Minute, func() (int, error) {
		due, err := j.transactionRepo.ListDueForAutoRelease(ctx, j.now(), autoReleaseBatch)
		if err != nil {
			return 0, err
		}

		var released int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(autoReleaseParallel)
		for _, transaction := range due {
			transaction := transaction
			g.Go(func() error {
				updated, err := j.payments.ReleaseEscrow(gctx, transaction.ID, SystemActor)
				if err != nil {
					logger.LogTransactionError(transaction.ID, "auto_release", err)
					return nil
				}
				if updated.Status == entity.TransactionStatusCompleted && updated.ReleasedBy == SystemActor.ID {
					atomic.AddInt64(&released, 1)
				}
				return nil
			})
		}
		err = g.Wait()
		return int(atomic.LoadInt64(&released)), err
	})
	if err != nil {
		return n, err
	}
	j.observer.ObserveSweep("auto_release", n)
	if n > 0 {
		logger.Info("Auto-release sweep: %d transactions released", n)
	}
	return n, nil
}

// Start runs both sweeps on their own tickers until ctx is cancelled.
func (j *EscrowJobs) Start(ctx context.Context, offerInterval, releaseInterval time.Duration) {
	go j.loop(ctx, "offer expiry", offerInterval, j.ExpireOffers)
	go j.loop(ctx, "auto-release", releaseInterval, j.AutoRelease)
	logger.Info("Escrow jobs started (offers every %s, auto-release every %s)", offerInterval, releaseInterval)
}

func (j *EscrowJobs) loop(ctx context.Context, name string, interval time.Duration, sweep func(context.Context) (int, error)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := sweep(ctx); err != nil {
				logger.Error("%s job error: %v", name, err)
			}
		case <-ctx.Done():
			return
		}
	}
}
