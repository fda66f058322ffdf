package delegation

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/app/repository"
	"github.com/harborlist/harborlist/internal/pkg/audit"
	"github.com/harborlist/harborlist/internal/pkg/entitlements"
	"github.com/harborlist/harborlist/internal/pkg/metrics/counter"
)

// ActorType distinguishes primary accounts from delegated sub-accounts.
type ActorType string

const (
	ActorTypeAccount    ActorType = "account"
	ActorTypeSubAccount ActorType = "sub_account"
)

// DenyReason is the machine-readable reason attached to every denial, so UI
// layers can render "your plan doesn't include this feature" apart from
// "this boat isn't in your assigned list".
type DenyReason string

const (
	DenySuspended               DenyReason = "SUSPENDED"
	DenyPermissionNotDelegated  DenyReason = "PERMISSION_NOT_DELEGATED"
	DenyOutOfScope              DenyReason = "OUT_OF_SCOPE"
	DenyNotOwnedByParent        DenyReason = "NOT_OWNED_BY_PARENT"
	DenyParentEntitlementLapsed DenyReason = "PARENT_ENTITLEMENT_LAPSED"
	DenyFeatureNotInPlan        DenyReason = "FEATURE_NOT_IN_PLAN"
	DenyUnknownAction           DenyReason = "UNKNOWN_ACTION"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(r DenyReason) Decision { return Decision{Reason: r} }

// Resolver yields effective entitlements; satisfied by both the plain and the
// cached resolver.
type Resolver interface {
	Resolve(account *models.Account, now time.Time) (entitlements.EffectiveEntitlement, error)
}

// Ownership resolves a listing to its owning account. The listing repository
// satisfies it locally; deployments with a separate listing service plug in a
// client instead.
type Ownership interface {
	OwnerOf(listingID uint) (uint, error)
}

const readRetryBackoff = 50 * time.Millisecond

// Engine evaluates authorization for primary accounts and sub-accounts. The
// check order for sub-accounts is fixed and auditable: status, delegated
// permission, access scope, parent ownership, then the parent entitlement
// ceiling last so scope violations are never masked by an unrelated
// entitlement failure.
type Engine struct {
	accounts    repository.AccountRepository
	subAccounts repository.SubAccountRepository
	resolver    Resolver
	ownership   Ownership
	sink        audit.Sink
	nowFn       func() time.Time
}

// NewEngine creates a delegation authorization engine.
func NewEngine(
	accounts repository.AccountRepository,
	subAccounts repository.SubAccountRepository,
	resolver Resolver,
	ownership Ownership,
	sink audit.Sink,
) *Engine {
	return &Engine{
		accounts:    accounts,
		subAccounts: subAccounts,
		resolver:    resolver,
		ownership:   ownership,
		sink:        sink,
		nowFn:       time.Now,
	}
}

// Authorize decides whether the actor may perform the action, optionally on a
// specific listing (resourceID 0 means no target resource). The error return
// is reserved for infrastructure failures; policy outcomes are always a
// Decision.
func (e *Engine) Authorize(ctx context.Context, actorType ActorType, actorID uint, action Action, resourceID uint) (Decision, error) {
	_ = ctx
	spec, ok := actions[action]
	if !ok {
		return e.record(action, deny(DenyUnknownAction)), nil
	}

	if actorType == ActorTypeSubAccount {
		return e.authorizeSubAccount(actorID, action, spec, resourceID)
	}
	return e.authorizeAccount(actorID, action, spec)
}

// authorizeAccount is the primary-account path: delegation rules do not
// apply, the decision reduces to the feature check.
func (e *Engine) authorizeAccount(accountID uint, action Action, spec actionSpec) (Decision, error) {
	account, err := e.getAccount(accountID)
	if err != nil {
		return Decision{}, err
	}
	ent, err := e.resolver.Resolve(account, e.nowFn())
	if err != nil {
		return Decision{}, err
	}
	if !ent.HasFeature(spec.feature) {
		return e.record(action, deny(DenyFeatureNotInPlan)), nil
	}
	return e.record(action, allow()), nil
}

func (e *Engine) authorizeSubAccount(subID uint, action Action, spec actionSpec, resourceID uint) (Decision, error) {
	sub, err := e.getSubAccount(subID)
	if err != nil {
		return Decision{}, err
	}
	parentID := sub.ParentAccountID

	if !sub.IsActive() {
		return e.recordDenialOfNote(action, subID, parentID, DenySuspended), nil
	}
	if !sub.HasPermission(spec.permission) {
		return e.record(action, deny(DenyPermissionNotDelegated)), nil
	}
	if resourceID != 0 && !sub.AccessScope.CoversListing(resourceID) {
		return e.record(action, deny(DenyOutOfScope)), nil
	}
	if resourceID != 0 {
		owner, err := e.ownerOf(resourceID)
		if err != nil {
			return Decision{}, err
		}
		if owner != parentID {
			return e.recordDenialOfNote(action, subID, parentID, DenyNotOwnedByParent), nil
		}
	}

	// The parent ceiling always runs last: a lapsed parent membership must
	// not hide a scope or ownership violation.
	parent, err := e.getAccount(parentID)
	if err != nil {
		return Decision{}, err
	}
	ent, err := e.resolver.Resolve(parent, e.nowFn())
	if err != nil {
		return Decision{}, err
	}
	if !ent.HasFeature(spec.feature) {
		return e.recordDenialOfNote(action, subID, parentID, DenyParentEntitlementLapsed), nil
	}

	return e.record(action, allow()), nil
}

// getAccount fetches an account, retrying once with backoff on transient
// failures. Authorization sits on every request's hot path; one retry keeps
// blips invisible without stalling the caller.
func (e *Engine) getAccount(id uint) (*models.Account, error) {
	account, err := e.accounts.GetByID(id)
	if err == nil || errors.Is(err, models.ErrAccountNotFound) {
		return account, err
	}
	time.Sleep(readRetryBackoff)
	account, err = e.accounts.GetByID(id)
	if err != nil && !errors.Is(err, models.ErrAccountNotFound) {
		return nil, models.ErrTransientFailure
	}
	return account, err
}

func (e *Engine) getSubAccount(id uint) (*models.SubAccount, error) {
	sub, err := e.subAccounts.GetByID(id)
	if err == nil || errors.Is(err, models.ErrSubAccountNotFound) {
		return sub, err
	}
	time.Sleep(readRetryBackoff)
	sub, err = e.subAccounts.GetByID(id)
	if err != nil && !errors.Is(err, models.ErrSubAccountNotFound) {
		return nil, models.ErrTransientFailure
	}
	return sub, err
}

// ownerOf resolves listing ownership with a single retry. An unknown listing
// cannot establish ownership and is reported as such by the caller.
func (e *Engine) ownerOf(listingID uint) (uint, error) {
	owner, err := e.ownership.OwnerOf(listingID)
	if err == nil {
		return owner, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	time.Sleep(readRetryBackoff)
	owner, err = e.ownership.OwnerOf(listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, models.ErrTransientFailure
	}
	return owner, nil
}

// record finalizes a decision and feeds the decision counters. Counter
// failures are ignored: metrics never gate an authorization result.
func (e *Engine) record(action Action, d Decision) Decision {
	if d.Allowed {
		_ = counter.AddAllow(string(action))
	} else {
		_ = counter.AddDeny(string(action), string(d.Reason))
	}
	return d
}

// recordDenialOfNote additionally emits an audit event for denials operators
// care about: suspended actors, cross-dealer resource access, and lapsed
// parent entitlements.
func (e *Engine) recordDenialOfNote(action Action, actorID, parentID uint, reason DenyReason) Decision {
	d := e.record(action, deny(reason))
	e.sink.Emit(audit.Event{
		Action:          audit.ActionDelegationDenied,
		ActorID:         actorID,
		TargetAccountID: parentID,
		Reason:          string(reason),
		Metadata:        map[string]interface{}{"action": string(action)},
	})
	return d
}
