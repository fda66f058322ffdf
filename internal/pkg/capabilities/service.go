package capabilities

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/app/repository"
	"github.com/harborlist/harborlist/internal/pkg/audit"
)

// GrantInput describes a new capability grant.
type GrantInput struct {
	AccountID      uint           `json:"account_id" validate:"required"`
	FeatureID      string         `json:"feature_id" validate:"required,min=2,max=50"`
	GrantedBy      string         `json:"granted_by" validate:"required,max=100"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	LimitsOverride *models.Limits `json:"limits_override,omitempty"`
}

// Service is the write path of the capability store. Grant and revoke both
// append rows; history is never rewritten, so every entitlement change stays
// attributable.
type Service struct {
	accounts repository.AccountRepository
	grants   repository.CapabilityRepository
	sink     audit.Sink
	validate *validator.Validate
	nowFn    func() time.Time
}

// NewService creates a capability store service.
func NewService(accounts repository.AccountRepository, grants repository.CapabilityRepository, sink audit.Sink) *Service {
	return &Service{
		accounts: accounts,
		grants:   grants,
		sink:     sink,
		validate: validator.New(),
		nowFn:    time.Now,
	}
}

// Grant appends an enabled grant row for the feature and invalidates the
// account's cached entitlements.
func (s *Service) Grant(ctx context.Context, in GrantInput) (*models.CapabilityGrant, error) {
	_ = ctx
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetByID(in.AccountID); err != nil {
		return nil, err
	}

	grant := &models.CapabilityGrant{
		AccountID:      in.AccountID,
		FeatureID:      in.FeatureID,
		Enabled:        true,
		ExpiresAt:      in.ExpiresAt,
		LimitsOverride: in.LimitsOverride,
		GrantedBy:      in.GrantedBy,
		GrantedAt:      s.nowFn(),
	}
	if err := s.grants.Append(grant); err != nil {
		return nil, err
	}
	if err := s.accounts.BumpVersion(in.AccountID); err != nil {
		return nil, err
	}

	s.sink.Emit(audit.Event{
		Action:          audit.ActionCapabilityGranted,
		TargetAccountID: in.AccountID,
		Metadata:        map[string]interface{}{"feature_id": in.FeatureID, "granted_by": in.GrantedBy},
	})
	return grant, nil
}

// Revoke appends a disabled grant row superseding any live grant for the
// feature. The tier baseline is untouched: a revoked capability never reduces
// an account below what its tier already grants.
func (s *Service) Revoke(ctx context.Context, accountID uint, featureID, revokedBy string) error {
	_ = ctx
	if _, err := s.accounts.GetByID(accountID); err != nil {
		return err
	}

	grant := &models.CapabilityGrant{
		AccountID: accountID,
		FeatureID: featureID,
		Enabled:   false,
		GrantedBy: revokedBy,
		GrantedAt: s.nowFn(),
	}
	if err := s.grants.Append(grant); err != nil {
		return err
	}
	if err := s.accounts.BumpVersion(accountID); err != nil {
		return err
	}

	s.sink.Emit(audit.Event{
		Action:          audit.ActionCapabilityRevoked,
		TargetAccountID: accountID,
		Metadata:        map[string]interface{}{"feature_id": featureID, "revoked_by": revokedBy},
	})
	return nil
}

// History returns the full grant history for an account, newest first.
func (s *Service) History(ctx context.Context, accountID uint) ([]models.CapabilityGrant, error) {
	_ = ctx
	return s.grants.ListByAccount(accountID)
}
