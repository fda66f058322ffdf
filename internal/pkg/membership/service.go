package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/app/repository"
	"github.com/harborlist/harborlist/internal/pkg/audit"
	"github.com/harborlist/harborlist/internal/pkg/billing"
)

const (
	monthlyTerm = 30 * 24 * time.Hour
	yearlyTerm  = 365 * 24 * time.Hour

	// maxWriteAttempts bounds the optimistic-concurrency retry loop. A loser
	// re-reads the winner's state and recomputes, so one retry usually wins.
	maxWriteAttempts = 3
)

// errNoChange signals that a mutation turned out to be a no-op and the
// conditional write should be skipped.
var errNoChange = errors.New("no change")

// Service owns the premium membership state machine. Transitions are only
// ever Inactive -> Active (Activate) and Active -> Inactive (Deactivate or
// ExpireIfDue); there is no grace-period state in between.
type Service struct {
	accounts    repository.AccountRepository
	tiers       repository.TierRepository
	subAccounts repository.SubAccountRepository
	processor   billing.Processor
	sink        audit.Sink
	nowFn       func() time.Time
}

// NewService creates a membership lifecycle service.
func NewService(
	accounts repository.AccountRepository,
	tiers repository.TierRepository,
	subAccounts repository.SubAccountRepository,
	processor billing.Processor,
	sink audit.Sink,
) *Service {
	return &Service{
		accounts:    accounts,
		tiers:       tiers,
		subAccounts: subAccounts,
		processor:   processor,
		sink:        sink,
		nowFn:       time.Now,
	}
}

// Activate upgrades an account onto a premium tier. Re-activating while
// already active extends the expiry from now, never from the old expiry, so
// leftover time is not stacked. autoRenew records the renewal intent for the
// billing processor; it does not keep a lapsed membership alive.
func (s *Service) Activate(ctx context.Context, accountID uint, tierID, billingCycle string, autoRenew bool) (*models.Account, error) {
	tier, err := s.tiers.GetByTierID(tierID)
	if err != nil {
		return nil, err
	}
	if !tier.IsPremium {
		return nil, models.ErrInvalidTierTransition
	}

	var term time.Duration
	var amount int
	switch billingCycle {
	case models.BillingCycleYearly:
		term = yearlyTerm
		amount = tier.PriceYearly
	case models.BillingCycleMonthly:
		term = monthlyTerm
		amount = tier.PriceMonthly
	default:
		return nil, fmt.Errorf("unknown billing cycle %q", billingCycle)
	}

	current, err := s.accounts.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if current.AccountClass != tier.AccountClass {
		return nil, models.ErrInvalidTierTransition
	}

	charge := billing.Charge{
		AccountID:    accountID,
		TierID:       tier.TierID,
		BillingCycle: billingCycle,
		AmountCents:  amount,
		Currency:     tier.Currency,
	}
	if err := s.processor.RecordActivation(ctx, charge); err != nil {
		return nil, fmt.Errorf("billing activation failed: %w", err)
	}

	var expires time.Time
	account, err := s.withAccount(accountID, func(a *models.Account) error {
		if a.AccountClass != tier.AccountClass {
			return models.ErrInvalidTierTransition
		}
		expires = s.nowFn().Add(term)
		a.CurrentTierID = tier.TierID
		a.Membership = models.MembershipDetails{
			PremiumActive:    true,
			PlanTierID:       tier.TierID,
			FeaturesSnapshot: tier.Features,
			LimitsSnapshot:   tier.Limits,
			ExpiresAt:        &expires,
			AutoRenew:        autoRenew,
			BillingCycle:     billingCycle,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sink.Emit(audit.Event{
		Action:          audit.ActionMembershipActivated,
		ActorID:         accountID,
		TargetAccountID: accountID,
		Metadata: map[string]interface{}{
			"tier_id":       tier.TierID,
			"billing_cycle": billingCycle,
			"auto_renew":    autoRenew,
			"expires_at":    expires.UTC().Format(time.RFC3339),
		},
	})
	return account, nil
}

// Deactivate explicitly ends a premium membership and rewrites the account to
// its class baseline tier. Safe to call on an already non-premium account.
func (s *Service) Deactivate(ctx context.Context, accountID uint) (*models.Account, error) {
	current, err := s.accounts.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if current.Membership.PremiumActive {
		if err := s.processor.RecordCancellation(ctx, accountID, current.Membership.PlanTierID); err != nil {
			return nil, fmt.Errorf("billing cancellation failed: %w", err)
		}
	}

	account, err := s.withAccount(accountID, func(a *models.Account) error {
		return s.applyBaseline(a)
	})
	if err != nil {
		return nil, err
	}

	s.sink.Emit(audit.Event{
		Action:          audit.ActionMembershipDeactivated,
		ActorID:         accountID,
		TargetAccountID: accountID,
		Metadata:        map[string]interface{}{"tier_id": account.CurrentTierID},
	})
	return account, nil
}

// ExpireIfDue downgrades the account if its premium membership has lapsed at
// the given instant, and is a safe no-op otherwise. Idempotency is keyed on
// the PremiumActive flag, not on timestamp comparison, so clock skew can never
// produce a second downgrade event.
func (s *Service) ExpireIfDue(ctx context.Context, accountID uint, now time.Time) (bool, error) {
	_ = ctx
	account, err := s.withAccount(accountID, func(a *models.Account) error {
		if !a.Membership.PremiumActive {
			return errNoChange
		}
		if a.Membership.ExpiresAt == nil || a.Membership.ExpiresAt.After(now) {
			return errNoChange
		}
		return s.applyBaseline(a)
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.sink.Emit(audit.Event{
		Action:          audit.ActionMembershipExpired,
		ActorID:         accountID,
		TargetAccountID: accountID,
		Metadata:        map[string]interface{}{"tier_id": account.CurrentTierID},
	})
	return true, nil
}

// ChangeTier moves an account between non-premium tiers. Premium tiers go
// through Activate; an active premium membership must be deactivated first.
// A dealer downgrade that would strand more active sub-accounts than the
// target tier allows is rejected until the operator reduces the count.
func (s *Service) ChangeTier(ctx context.Context, accountID uint, tierID string) (*models.Account, error) {
	_ = ctx
	tier, err := s.tiers.GetByTierID(tierID)
	if err != nil {
		return nil, err
	}
	if tier.IsPremium {
		return nil, models.ErrInvalidTierTransition
	}

	account, err := s.withAccount(accountID, func(a *models.Account) error {
		if a.AccountClass != tier.AccountClass {
			return models.ErrInvalidTierTransition
		}
		if a.Membership.PremiumActive {
			return models.ErrInvalidTierTransition
		}
		count, err := s.subAccounts.CountActiveByParent(a.ID)
		if err != nil {
			return err
		}
		if count > int64(tier.Limits.MaxSubAccounts) {
			return models.ErrInvalidTierTransition
		}
		a.CurrentTierID = tier.TierID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sink.Emit(audit.Event{
		Action:          audit.ActionTierChanged,
		ActorID:         accountID,
		TargetAccountID: accountID,
		Metadata:        map[string]interface{}{"tier_id": tier.TierID},
	})
	return account, nil
}

// BulkResult is the per-item outcome of a bulk tier update.
type BulkResult struct {
	AccountID uint   `json:"account_id"`
	Error     string `json:"error,omitempty"`
}

// BulkChangeTier applies ChangeTier to up to MaxBulkBatchSize accounts.
// Failures are reported per item and never abort the rest of the batch.
func (s *Service) BulkChangeTier(ctx context.Context, accountIDs []uint, tierID string) ([]BulkResult, error) {
	if len(accountIDs) > models.MaxBulkBatchSize {
		return nil, models.ErrBatchTooLarge
	}

	results := make([]BulkResult, 0, len(accountIDs))
	for _, id := range accountIDs {
		res := BulkResult{AccountID: id}
		if _, err := s.ChangeTier(ctx, id, tierID); err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results, nil
}

// applyBaseline rewrites the account onto its class baseline tier and clears
// the premium membership state.
func (s *Service) applyBaseline(a *models.Account) error {
	baseline, err := s.tiers.GetByTierID(models.BaselineTierID(a.AccountClass))
	if err != nil {
		return err
	}
	a.CurrentTierID = baseline.TierID
	a.ClearMembership()
	return nil
}

// withAccount runs the read-compute-write cycle with optimistic concurrency:
// on a version conflict the whole mutation is retried against the winner's
// state rather than merging partial writes.
func (s *Service) withAccount(accountID uint, mutate func(*models.Account) error) (*models.Account, error) {
	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		account, err := s.accounts.GetByID(accountID)
		if err != nil {
			return nil, err
		}
		if err := mutate(account); err != nil {
			return nil, err
		}
		err = s.accounts.UpdateWithVersion(account)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, models.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", models.ErrTransientFailure, lastErr)
}
