package delegation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/internal/pkg/audit"
	"github.com/harborlist/harborlist/internal/pkg/entitlements"
)

type fakeAccountRepo struct {
	accounts map[uint]*models.Account
	failGets int
}

func (f *fakeAccountRepo) Create(account *models.Account) error { return nil }

func (f *fakeAccountRepo) GetByID(id uint) (*models.Account, error) {
	if f.failGets > 0 {
		f.failGets--
		return nil, errors.New("connection reset")
	}
	account, ok := f.accounts[id]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (f *fakeAccountRepo) UpdateWithVersion(account *models.Account) error { return nil }
func (f *fakeAccountRepo) BumpVersion(id uint) error                       { return nil }

func (f *fakeAccountRepo) FindExpired(now time.Time, limit, offset int) ([]models.Account, error) {
	return nil, nil
}

func (f *fakeAccountRepo) Count() (int64, error) { return int64(len(f.accounts)), nil }

type fakeSubAccountRepo struct {
	subs     map[uint]*models.SubAccount
	failGets int
	nextID   uint
}

func (f *fakeSubAccountRepo) GetByID(id uint) (*models.SubAccount, error) {
	if f.failGets > 0 {
		f.failGets--
		return nil, errors.New("connection reset")
	}
	sub, ok := f.subs[id]
	if !ok {
		return nil, models.ErrSubAccountNotFound
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeSubAccountRepo) ListByParent(parentAccountID uint) ([]models.SubAccount, error) {
	var out []models.SubAccount
	for _, sub := range f.subs {
		if sub.ParentAccountID == parentAccountID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeSubAccountRepo) CountActiveByParent(parentAccountID uint) (int64, error) {
	var n int64
	for _, sub := range f.subs {
		if sub.ParentAccountID == parentAccountID && sub.IsActive() {
			n++
		}
	}
	return n, nil
}

func (f *fakeSubAccountRepo) CreateWithinQuota(sub *models.SubAccount, maxSubAccounts int) error {
	n, _ := f.CountActiveByParent(sub.ParentAccountID)
	if n >= int64(maxSubAccounts) {
		return models.ErrSubAccountLimitReached
	}
	f.nextID++
	sub.ID = f.nextID
	if f.subs == nil {
		f.subs = make(map[uint]*models.SubAccount)
	}
	cp := *sub
	f.subs[sub.ID] = &cp
	return nil
}

func (f *fakeSubAccountRepo) Update(sub *models.SubAccount) error {
	if _, ok := f.subs[sub.ID]; !ok {
		return models.ErrSubAccountNotFound
	}
	cp := *sub
	f.subs[sub.ID] = &cp
	return nil
}

func (f *fakeSubAccountRepo) Suspend(id uint) error {
	sub, ok := f.subs[id]
	if !ok {
		return models.ErrSubAccountNotFound
	}
	sub.Status = models.SubAccountStatusSuspended
	return nil
}

type fakeListingRepo struct {
	owners map[uint]uint // listing id -> owning account id
}

func (f *fakeListingRepo) Create(listing *models.Listing) error {
	f.owners[listing.ID] = listing.AccountID
	return nil
}

func (f *fakeListingRepo) OwnerOf(listingID uint) (uint, error) {
	owner, ok := f.owners[listingID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return owner, nil
}

func (f *fakeListingRepo) ListIDsByAccount(accountID uint) ([]uint, error) {
	var out []uint
	for id, owner := range f.owners {
		if owner == accountID {
			out = append(out, id)
		}
	}
	return out, nil
}

// stubResolver returns a canned entitlement per account, standing in for the
// tier catalog and grant store.
type stubResolver struct {
	ents map[uint]entitlements.EffectiveEntitlement
}

func (r *stubResolver) Resolve(account *models.Account, now time.Time) (entitlements.EffectiveEntitlement, error) {
	ent, ok := r.ents[account.ID]
	if !ok {
		return entitlements.EffectiveEntitlement{}, models.ErrTierNotFound
	}
	return ent, nil
}

type recordingSink struct {
	events []audit.Event
}

func (s *recordingSink) Emit(event audit.Event) { s.events = append(s.events, event) }

func (s *recordingSink) byAction(action string) []audit.Event {
	var out []audit.Event
	for _, e := range s.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func fullEntitlement() entitlements.EffectiveEntitlement {
	return entitlements.EffectiveEntitlement{
		Features: map[string]bool{
			entitlements.FeatureListingManagement:  true,
			entitlements.FeatureLeadManagement:     true,
			entitlements.FeatureAnalyticsDashboard: true,
			entitlements.FeaturePricingTools:       true,
			entitlements.FeatureInventoryTools:     true,
			entitlements.FeatureCommunications:     true,
			entitlements.FeatureBulkOperations:     true,
		},
		Limits: models.Limits{MaxListings: 50, MaxSubAccounts: 5},
	}
}

func basicEntitlement() entitlements.EffectiveEntitlement {
	return entitlements.EffectiveEntitlement{
		Features: map[string]bool{entitlements.FeatureListingManagement: true},
		Limits:   models.Limits{MaxListings: 3, MaxSubAccounts: 0},
	}
}

type engineFixture struct {
	accounts *fakeAccountRepo
	subs     *fakeSubAccountRepo
	listings *fakeListingRepo
	resolver *stubResolver
	sink     *recordingSink
	engine   *Engine
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		accounts: &fakeAccountRepo{accounts: map[uint]*models.Account{
			10: {ID: 10, AccountClass: models.AccountClassDealer},
			11: {ID: 11, AccountClass: models.AccountClassIndividual},
		}},
		subs: &fakeSubAccountRepo{subs: map[uint]*models.SubAccount{
			1: {
				ID:              1,
				ParentAccountID: 10,
				Status:          models.SubAccountStatusActive,
				AccessScope:     models.AccessScope{ListingIDs: []uint{100, 101}},
				DelegatedPermissions: []string{
					PermissionEditListings,
					PermissionViewAnalytics,
				},
			},
			2: {
				ID:                   2,
				ParentAccountID:      10,
				Status:               models.SubAccountStatusSuspended,
				AccessScope:          models.AccessScope{AllListings: true},
				DelegatedPermissions: []string{PermissionEditListings},
			},
		}, nextID: 2},
		listings: &fakeListingRepo{owners: map[uint]uint{
			100: 10,
			101: 10,
			200: 99, // another dealer's boat
		}},
		resolver: &stubResolver{ents: map[uint]entitlements.EffectiveEntitlement{
			10: fullEntitlement(),
			11: basicEntitlement(),
		}},
		sink: &recordingSink{},
	}
	f.engine = NewEngine(f.accounts, f.subs, f.resolver, f.listings, f.sink)
	return f
}

func TestAuthorizeAccountFeatureCheck(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	d, err := f.engine.Authorize(ctx, ActorTypeAccount, 10, ActionViewAnalytics, 0)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = f.engine.Authorize(ctx, ActorTypeAccount, 11, ActionViewAnalytics, 0)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyFeatureNotInPlan, d.Reason)
}

func TestAuthorizeUnknownAction(t *testing.T) {
	f := newEngineFixture()

	d, err := f.engine.Authorize(context.Background(), ActorTypeAccount, 10, Action("listing.teleport"), 0)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyUnknownAction, d.Reason)
}

func TestAuthorizeSubAccountAllowed(t *testing.T) {
	f := newEngineFixture()

	d, err := f.engine.Authorize(context.Background(), ActorTypeSubAccount, 1, ActionEditListing, 100)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reason)
}

func TestAuthorizeSuspendedWinsOverEverything(t *testing.T) {
	f := newEngineFixture()
	// Sub 2 is suspended; it also holds the permission and a full scope, so
	// the only correct denial is SUSPENDED.
	d, err := f.engine.Authorize(context.Background(), ActorTypeSubAccount, 2, ActionEditListing, 100)
	require.NoError(t, err)
	assert.Equal(t, DenySuspended, d.Reason)

	denied := f.sink.byAction(audit.ActionDelegationDenied)
	require.Len(t, denied, 1)
	assert.Equal(t, string(DenySuspended), denied[0].Reason)
}

func TestAuthorizePermissionBeforeScope(t *testing.T) {
	f := newEngineFixture()
	// Sub 1 was never delegated lead handling; the target listing is also
	// outside its scope, but the permission check runs first.
	d, err := f.engine.Authorize(context.Background(), ActorTypeSubAccount, 1, ActionRespondLead, 200)
	require.NoError(t, err)
	assert.Equal(t, DenyPermissionNotDelegated, d.Reason)
}

func TestAuthorizeScopeBeforeOwnership(t *testing.T) {
	f := newEngineFixture()
	// Listing 200 belongs to another dealer AND is outside sub 1's scope;
	// the scope violation is reported, not the ownership one.
	d, err := f.engine.Authorize(context.Background(), ActorTypeSubAccount, 1, ActionEditListing, 200)
	require.NoError(t, err)
	assert.Equal(t, DenyOutOfScope, d.Reason)
}

func TestAuthorizeNotOwnedByParent(t *testing.T) {
	f := newEngineFixture()
	// Widen the scope so only the ownership check can fail.
	f.subs.subs[1].AccessScope = models.AccessScope{AllListings: true}

	d, err := f.engine.Authorize(context.Background(), ActorTypeSubAccount, 1, ActionEditListing, 200)
	require.NoError(t, err)
	assert.Equal(t, DenyNotOwnedByParent, d.Reason)
	require.Len(t, f.sink.byAction(audit.ActionDelegationDenied), 1)
}

func TestAuthorizeUnknownListingDeniedAsNotOwned(t *testing.T) {
	f := newEngineFixture()
	f.subs.subs[1].AccessScope = models.AccessScope{AllListings: true}

	d, err := f.engine.Authorize(context.Background(), ActorTypeSubAccount, 1, ActionEditListing, 9999)
	require.NoError(t, err)
	assert.Equal(t, DenyNotOwnedByParent, d.Reason)
}

func TestAuthorizeParentLapsedCheckedLast(t *testing.T) {
	f := newEngineFixture()
	// Parent downgraded to a plan without listing management: every
	// delegation check still passes, so the ceiling is the reported reason.
	f.resolver.ents[10] = entitlements.EffectiveEntitlement{Features: map[string]bool{}}

	d, err := f.engine.Authorize(context.Background(), ActorTypeSubAccount, 1, ActionEditListing, 100)
	require.NoError(t, err)
	assert.Equal(t, DenyParentEntitlementLapsed, d.Reason)

	denied := f.sink.byAction(audit.ActionDelegationDenied)
	require.Len(t, denied, 1)
	assert.Equal(t, string(DenyParentEntitlementLapsed), denied[0].Reason)
}

func TestAuthorizeParentLapsedDoesNotMaskScope(t *testing.T) {
	f := newEngineFixture()
	f.resolver.ents[10] = entitlements.EffectiveEntitlement{Features: map[string]bool{}}

	d, err := f.engine.Authorize(context.Background(), ActorTypeSubAccount, 1, ActionEditListing, 200)
	require.NoError(t, err)
	assert.Equal(t, DenyOutOfScope, d.Reason)
}

func TestAuthorizeActionWithoutResource(t *testing.T) {
	f := newEngineFixture()
	// Analytics has no target listing; scope and ownership are skipped.
	d, err := f.engine.Authorize(context.Background(), ActorTypeSubAccount, 1, ActionViewAnalytics, 0)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAuthorizeRetriesTransientReads(t *testing.T) {
	f := newEngineFixture()
	f.subs.failGets = 1 // first read fails, retry succeeds

	d, err := f.engine.Authorize(context.Background(), ActorTypeSubAccount, 1, ActionViewAnalytics, 0)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAuthorizeReportsTransientFailure(t *testing.T) {
	f := newEngineFixture()
	f.subs.failGets = 2 // both attempts fail

	_, err := f.engine.Authorize(context.Background(), ActorTypeSubAccount, 1, ActionViewAnalytics, 0)
	assert.ErrorIs(t, err, models.ErrTransientFailure)
}

func TestAuthorizeUnknownActor(t *testing.T) {
	f := newEngineFixture()

	_, err := f.engine.Authorize(context.Background(), ActorTypeSubAccount, 999, ActionViewAnalytics, 0)
	assert.ErrorIs(t, err, models.ErrSubAccountNotFound)

	_, err = f.engine.Authorize(context.Background(), ActorTypeAccount, 999, ActionViewAnalytics, 0)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

type stubTierRepo struct {
	tiers map[string]*models.Tier
}

func (s *stubTierRepo) GetByTierID(tierID string) (*models.Tier, error) {
	t, ok := s.tiers[tierID]
	if !ok {
		return nil, models.ErrTierNotFound
	}
	return t, nil
}

func (s *stubTierRepo) ListActive(accountClass string) ([]models.Tier, error) { return nil, nil }
func (s *stubTierRepo) Create(tier *models.Tier) error                        { return nil }
func (s *stubTierRepo) Deactivate(tierID string) error                        { return nil }

// The row of a lapsed parent still says premium until the sweeper rewrites
// it. The ceiling must nevertheless be the class baseline from the instant
// the expiry passes.
func TestAuthorizeParentLapsedBeforeSweep(t *testing.T) {
	f := newEngineFixture()

	catalog := &stubTierRepo{tiers: map[string]*models.Tier{
		models.TierDealerBasic: {
			TierID:       models.TierDealerBasic,
			AccountClass: models.AccountClassDealer,
			Active:       true,
			Features: []models.Feature{
				{FeatureID: entitlements.FeatureListingManagement, Enabled: true},
				{FeatureID: entitlements.FeatureLeadManagement, Enabled: true},
			},
		},
		models.TierDealerPro: {
			TierID:       models.TierDealerPro,
			AccountClass: models.AccountClassDealer,
			IsPremium:    true,
			Active:       true,
			Features: []models.Feature{
				{FeatureID: entitlements.FeatureListingManagement, Enabled: true},
				{FeatureID: entitlements.FeatureAnalyticsDashboard, Enabled: true},
			},
		},
	}}

	expired := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	f.accounts.accounts[10] = &models.Account{
		ID:            10,
		AccountClass:  models.AccountClassDealer,
		CurrentTierID: models.TierDealerPro,
		Membership: models.MembershipDetails{
			PremiumActive: true,
			PlanTierID:    models.TierDealerPro,
			ExpiresAt:     &expired,
			FeaturesSnapshot: []models.Feature{
				{FeatureID: entitlements.FeatureListingManagement, Enabled: true},
				{FeatureID: entitlements.FeatureAnalyticsDashboard, Enabled: true},
			},
		},
	}
	f.subs.subs[1].DelegatedPermissions = []string{
		PermissionEditListings,
		PermissionViewAnalytics,
	}

	engine := NewEngine(f.accounts, f.subs, entitlements.NewResolver(catalog), f.listings, f.sink)

	d, err := engine.Authorize(context.Background(), ActorTypeSubAccount, 1, ActionViewAnalytics, 0)
	require.NoError(t, err)
	assert.Equal(t, DenyParentEntitlementLapsed, d.Reason)

	// Baseline features stay usable; the lapse only strips premium ones.
	d, err = engine.Authorize(context.Background(), ActorTypeSubAccount, 1, ActionEditListing, 100)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
