package models

import "testing"

func TestCoversListing(t *testing.T) {
	tests := []struct {
		name    string
		scope   AccessScope
		listing uint
		want    bool
	}{
		{name: "all listings", scope: AccessScope{AllListings: true}, listing: 42, want: true},
		{name: "in explicit set", scope: AccessScope{ListingIDs: []uint{7, 42}}, listing: 42, want: true},
		{name: "not in explicit set", scope: AccessScope{ListingIDs: []uint{7}}, listing: 42, want: false},
		{name: "empty set", scope: AccessScope{}, listing: 42, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.CoversListing(tt.listing); got != tt.want {
				t.Fatalf("CoversListing(%d) = %v, want %v", tt.listing, got, tt.want)
			}
		})
	}
}

func TestHasPermission(t *testing.T) {
	sub := SubAccount{DelegatedPermissions: []string{"edit_listings", "respond_leads"}}

	if !sub.HasPermission("edit_listings") {
		t.Fatalf("expected delegated permission to be present")
	}
	if sub.HasPermission("view_analytics") {
		t.Fatalf("expected non-delegated permission to be absent")
	}
}

func TestSubAccountPassword(t *testing.T) {
	sub := SubAccount{}
	if err := sub.SetPassword("deckhand-secret"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if sub.PasswordHash == "" || sub.PasswordHash == "deckhand-secret" {
		t.Fatalf("password must be stored hashed")
	}
	if !sub.CheckPassword("deckhand-secret") {
		t.Fatalf("expected matching password to verify")
	}
	if sub.CheckPassword("wrong") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestGenerateInviteToken(t *testing.T) {
	sub := SubAccount{}
	sub.GenerateInviteToken()
	if sub.InviteToken == "" || sub.InvitedAt == nil {
		t.Fatalf("expected invite token and timestamp to be set")
	}
}

func TestSubAccountValidate(t *testing.T) {
	sub := SubAccount{
		ParentAccountID: 1,
		Name:            "Dock Staff",
		Email:           "staff@example.com",
		Role:            SubAccountRoleStaff,
		Status:          SubAccountStatusActive,
	}
	if err := sub.Validate(); err != nil {
		t.Fatalf("expected valid sub-account, got %v", err)
	}

	sub.Role = "captain"
	if err := sub.Validate(); err == nil {
		t.Fatalf("expected invalid role to fail validation")
	}
}
