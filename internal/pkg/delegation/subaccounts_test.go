package delegation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/internal/pkg/audit"
)

func managerFromFixture(f *engineFixture) *Manager {
	return NewManager(f.accounts, f.subs, f.listings, f.resolver, f.sink)
}

func validCreateInput() CreateSubAccountInput {
	return CreateSubAccountInput{
		ParentAccountID:      10,
		Name:                 "Deck Crew",
		Email:                "crew@marina.example",
		Password:             "anchors-aweigh",
		Role:                 models.SubAccountRoleStaff,
		AccessScope:          models.AccessScope{ListingIDs: []uint{100}},
		DelegatedPermissions: []string{PermissionEditListings},
	}
}

func TestCreateSubAccount(t *testing.T) {
	f := newEngineFixture()
	m := managerFromFixture(f)

	sub, err := m.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	assert.NotZero(t, sub.ID)
	assert.Equal(t, models.SubAccountStatusActive, sub.Status)
	assert.NotEmpty(t, sub.InviteToken)
	assert.NotEmpty(t, sub.PasswordHash)
	assert.True(t, sub.CheckPassword("anchors-aweigh"))

	events := f.sink.byAction(audit.ActionSubAccountCreated)
	require.Len(t, events, 1)
	assert.Equal(t, uint(10), events[0].TargetAccountID)
}

func TestCreateSubAccountRejectsInvalidInput(t *testing.T) {
	f := newEngineFixture()
	m := managerFromFixture(f)

	in := validCreateInput()
	in.Password = "short"
	_, err := m.Create(context.Background(), in)
	assert.Error(t, err)

	in = validCreateInput()
	in.Role = "captain"
	_, err = m.Create(context.Background(), in)
	assert.Error(t, err)
}

func TestCreateSubAccountPermissionCeiling(t *testing.T) {
	f := newEngineFixture()
	m := managerFromFixture(f)

	// Parent 11 is on a basic plan without analytics.
	in := validCreateInput()
	in.ParentAccountID = 11
	in.AccessScope = models.AccessScope{AllListings: true}
	in.DelegatedPermissions = []string{PermissionViewAnalytics}

	_, err := m.Create(context.Background(), in)
	assert.ErrorIs(t, err, models.ErrPermissionNotDelegatable)
}

func TestCreateSubAccountRejectsUnknownPermission(t *testing.T) {
	f := newEngineFixture()
	m := managerFromFixture(f)

	in := validCreateInput()
	in.DelegatedPermissions = []string{"fly_the_boat"}

	_, err := m.Create(context.Background(), in)
	assert.ErrorIs(t, err, models.ErrPermissionNotDelegatable)
}

func TestCreateSubAccountScopeMustBeOwned(t *testing.T) {
	f := newEngineFixture()
	m := managerFromFixture(f)

	// Listing 200 belongs to another dealer.
	in := validCreateInput()
	in.AccessScope = models.AccessScope{ListingIDs: []uint{100, 200}}

	_, err := m.Create(context.Background(), in)
	assert.ErrorIs(t, err, models.ErrInvalidAccessScope)
}

func TestCreateSubAccountQuota(t *testing.T) {
	f := newEngineFixture()
	// Parent 10 already has 1 active sub-account; sub 2 is suspended and
	// does not count against the cap of 2.
	capped := fullEntitlement()
	capped.Limits.MaxSubAccounts = 2
	f.resolver.ents[10] = capped
	m := managerFromFixture(f)

	in := validCreateInput()
	in.Email = "second@marina.example"
	_, err := m.Create(context.Background(), in)
	require.NoError(t, err)

	in.Email = "third@marina.example"
	_, err = m.Create(context.Background(), in)
	assert.ErrorIs(t, err, models.ErrSubAccountLimitReached)
}

func TestUpdateSubAccountRechecksPermissions(t *testing.T) {
	f := newEngineFixture()
	m := managerFromFixture(f)

	// Parent dropped to a plan without analytics since the sub was created.
	f.resolver.ents[10] = basicEntitlement()

	perms := []string{PermissionViewAnalytics}
	_, err := m.Update(context.Background(), 1, UpdateSubAccountInput{DelegatedPermissions: &perms})
	assert.ErrorIs(t, err, models.ErrPermissionNotDelegatable)

	// Name changes do not touch the delegation checks.
	name := "Harbor Office"
	sub, err := m.Update(context.Background(), 1, UpdateSubAccountInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Harbor Office", sub.Name)
}

func TestUpdateSubAccountScope(t *testing.T) {
	f := newEngineFixture()
	m := managerFromFixture(f)

	bad := models.AccessScope{ListingIDs: []uint{200}}
	_, err := m.Update(context.Background(), 1, UpdateSubAccountInput{AccessScope: &bad})
	assert.ErrorIs(t, err, models.ErrInvalidAccessScope)

	good := models.AccessScope{ListingIDs: []uint{101}}
	sub, err := m.Update(context.Background(), 1, UpdateSubAccountInput{AccessScope: &good})
	require.NoError(t, err)
	assert.Equal(t, []uint{101}, sub.AccessScope.ListingIDs)
}

func TestUpdateUnknownSubAccount(t *testing.T) {
	f := newEngineFixture()
	m := managerFromFixture(f)

	name := "Nobody"
	_, err := m.Update(context.Background(), 999, UpdateSubAccountInput{Name: &name})
	assert.ErrorIs(t, err, models.ErrSubAccountNotFound)
}

func TestSuspendSubAccount(t *testing.T) {
	f := newEngineFixture()
	m := managerFromFixture(f)

	require.NoError(t, m.Suspend(context.Background(), 1, "credentials shared"))
	sub, err := f.subs.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.SubAccountStatusSuspended, sub.Status)

	// Suspending again stays a no-op.
	require.NoError(t, m.Suspend(context.Background(), 1, "again"))

	events := f.sink.byAction(audit.ActionSubAccountSuspended)
	require.Len(t, events, 2)
	assert.Equal(t, "credentials shared", events[0].Reason)
}

func TestListByParent(t *testing.T) {
	f := newEngineFixture()
	m := managerFromFixture(f)

	subs, err := m.ListByParent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	_, err = m.ListByParent(context.Background(), 404)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}
