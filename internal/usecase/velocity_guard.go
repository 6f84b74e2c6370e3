package usecase

import (
	"context"
	"fmt"
	"time"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/repository"
	"accountmarket/pkg/errors"
)

const velocityWindow = 24 * time.Hour

// velocityExcluded statuses never count against a buyer's daily limit.
var velocityExcluded = []string{
	entity.TransactionStatusCancelled,
	entity.TransactionStatusPaymentFailed,
}

// VelocityGuard caps how many transactions a buyer may open per day.
type VelocityGuard struct {
	transactionRepo repository.TransactionRepository
	limit           int
	now             func() time.Time
}

func NewVelocityGuard(transactionRepo repository.TransactionRepository, limit int) *VelocityGuard {
	return &VelocityGuard{
		transactionRepo: transactionRepo,
		limit:           limit,
		now:             time.Now,
	}
}

// Check fails with BadRequest once the buyer reached the limit in the
// trailing 24 hours. A non-positive limit disables the guard.
func (g *VelocityGuard) Check(ctx context.Context, buyerID string) error {
	if g.limit <= 0 {
		return nil
	}

	count, err := g.transactionRepo.CountCreatedByBuyerSince(ctx, buyerID, g.now().Add(-velocityWindow), velocityExcluded)
	if err != nil {
		return err
	}
	if count >= g.limit {
		return errors.BadRequest(fmt.Sprintf("Daily transaction limit of %d reached, try again later", g.limit), nil)
	}
	return nil
}
