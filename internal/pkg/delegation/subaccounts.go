package delegation

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/app/repository"
	"github.com/harborlist/harborlist/internal/pkg/audit"
)

// CreateSubAccountInput describes a new delegated identity under a parent
// account.
type CreateSubAccountInput struct {
	ParentAccountID      uint               `json:"parent_account_id" validate:"required"`
	Name                 string             `json:"name" validate:"required,min=3,max=150"`
	Email                string             `json:"email" validate:"required,email,max=200"`
	Password             string             `json:"password" validate:"required,min=8,max=72"`
	Role                 string             `json:"role" validate:"oneof=admin manager staff"`
	AccessScope          models.AccessScope `json:"access_scope"`
	DelegatedPermissions []string           `json:"delegated_permissions"`
}

// UpdateSubAccountInput carries the mutable fields of a sub-account. Nil
// pointers leave the current value untouched; a non-nil empty permission
// slice revokes all delegations.
type UpdateSubAccountInput struct {
	Name                 *string             `json:"name,omitempty" validate:"omitempty,min=3,max=150"`
	Role                 *string             `json:"role,omitempty" validate:"omitempty,oneof=admin manager staff"`
	AccessScope          *models.AccessScope `json:"access_scope,omitempty"`
	DelegatedPermissions *[]string           `json:"delegated_permissions,omitempty"`
}

// Manager owns the sub-account lifecycle. Every write re-validates the two
// delegation invariants: a parent can only delegate permissions its own plan
// backs, and a scoped allow list may only name listings the parent owns.
type Manager struct {
	accounts    repository.AccountRepository
	subAccounts repository.SubAccountRepository
	listings    repository.ListingRepository
	resolver    Resolver
	sink        audit.Sink
	validate    *validator.Validate
	nowFn       func() time.Time
}

// NewManager creates a sub-account lifecycle manager.
func NewManager(
	accounts repository.AccountRepository,
	subAccounts repository.SubAccountRepository,
	listings repository.ListingRepository,
	resolver Resolver,
	sink audit.Sink,
) *Manager {
	return &Manager{
		accounts:    accounts,
		subAccounts: subAccounts,
		listings:    listings,
		resolver:    resolver,
		sink:        sink,
		validate:    validator.New(),
		nowFn:       time.Now,
	}
}

// Create provisions a sub-account under the parent, enforcing the parent's
// sub-account quota atomically at insert time. The returned record carries
// the invite token for the onboarding mail.
func (m *Manager) Create(ctx context.Context, in CreateSubAccountInput) (*models.SubAccount, error) {
	_ = ctx
	if err := m.validate.Struct(in); err != nil {
		return nil, err
	}

	parent, err := m.accounts.GetByID(in.ParentAccountID)
	if err != nil {
		return nil, err
	}
	ent, err := m.resolver.Resolve(parent, m.nowFn())
	if err != nil {
		return nil, err
	}
	if err := m.checkDelegatable(ent.Features, in.DelegatedPermissions); err != nil {
		return nil, err
	}
	if err := m.checkScope(parent.ID, in.AccessScope); err != nil {
		return nil, err
	}

	sub := &models.SubAccount{
		ParentAccountID:      in.ParentAccountID,
		Name:                 in.Name,
		Email:                in.Email,
		Role:                 in.Role,
		AccessScope:          in.AccessScope,
		DelegatedPermissions: in.DelegatedPermissions,
		Status:               models.SubAccountStatusActive,
	}
	if err := sub.SetPassword(in.Password); err != nil {
		return nil, err
	}
	sub.GenerateInviteToken()

	if err := m.subAccounts.CreateWithinQuota(sub, ent.Limits.MaxSubAccounts); err != nil {
		return nil, err
	}

	m.sink.Emit(audit.Event{
		Action:          audit.ActionSubAccountCreated,
		ActorID:         sub.ID,
		TargetAccountID: parent.ID,
		Metadata:        map[string]interface{}{"role": sub.Role, "email": sub.Email},
	})
	return sub, nil
}

// Update applies partial changes to a sub-account. Permission and scope
// changes go through the same delegation checks as creation, against the
// parent's current entitlement rather than the one at creation time.
func (m *Manager) Update(ctx context.Context, subID uint, in UpdateSubAccountInput) (*models.SubAccount, error) {
	_ = ctx
	if err := m.validate.Struct(in); err != nil {
		return nil, err
	}

	sub, err := m.subAccounts.GetByID(subID)
	if err != nil {
		return nil, err
	}
	parent, err := m.accounts.GetByID(sub.ParentAccountID)
	if err != nil {
		return nil, err
	}

	if in.DelegatedPermissions != nil {
		ent, err := m.resolver.Resolve(parent, m.nowFn())
		if err != nil {
			return nil, err
		}
		if err := m.checkDelegatable(ent.Features, *in.DelegatedPermissions); err != nil {
			return nil, err
		}
		sub.DelegatedPermissions = *in.DelegatedPermissions
	}
	if in.AccessScope != nil {
		if err := m.checkScope(parent.ID, *in.AccessScope); err != nil {
			return nil, err
		}
		sub.AccessScope = *in.AccessScope
	}
	if in.Name != nil {
		sub.Name = *in.Name
	}
	if in.Role != nil {
		sub.Role = *in.Role
	}

	if err := m.subAccounts.Update(sub); err != nil {
		return nil, err
	}

	m.sink.Emit(audit.Event{
		Action:          audit.ActionSubAccountUpdated,
		ActorID:         sub.ID,
		TargetAccountID: parent.ID,
	})
	return sub, nil
}

// Suspend blocks a sub-account from acting without deleting its history.
// Suspension is idempotent.
func (m *Manager) Suspend(ctx context.Context, subID uint, reason string) error {
	_ = ctx
	sub, err := m.subAccounts.GetByID(subID)
	if err != nil {
		return err
	}
	if err := m.subAccounts.Suspend(subID); err != nil {
		return err
	}

	m.sink.Emit(audit.Event{
		Action:          audit.ActionSubAccountSuspended,
		ActorID:         subID,
		TargetAccountID: sub.ParentAccountID,
		Reason:          reason,
	})
	return nil
}

// ListByParent returns all sub-accounts under a parent, suspended ones
// included.
func (m *Manager) ListByParent(ctx context.Context, parentAccountID uint) ([]models.SubAccount, error) {
	_ = ctx
	if _, err := m.accounts.GetByID(parentAccountID); err != nil {
		return nil, err
	}
	return m.subAccounts.ListByParent(parentAccountID)
}

// checkDelegatable rejects any permission the parent's own plan does not
// back. Unknown permission names are rejected too: a typo must not create a
// silently inert delegation.
func (m *Manager) checkDelegatable(parentFeatures map[string]bool, permissions []string) error {
	for _, p := range permissions {
		feature, ok := FeatureForPermission(p)
		if !ok || !parentFeatures[feature] {
			return models.ErrPermissionNotDelegatable
		}
	}
	return nil
}

// checkScope verifies every listing in an explicit allow list is owned by
// the parent.
func (m *Manager) checkScope(parentID uint, scope models.AccessScope) error {
	if scope.AllListings || len(scope.ListingIDs) == 0 {
		return nil
	}
	owned, err := m.listings.ListIDsByAccount(parentID)
	if err != nil {
		return err
	}
	ownedSet := make(map[uint]struct{}, len(owned))
	for _, id := range owned {
		ownedSet[id] = struct{}{}
	}
	for _, id := range scope.ListingIDs {
		if _, ok := ownedSet[id]; !ok {
			return models.ErrInvalidAccessScope
		}
	}
	return nil
}
