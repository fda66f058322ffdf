package delegation

import "github.com/harborlist/harborlist/internal/pkg/entitlements"

// Action identifies an operation a resource service asks the engine about.
type Action string

const (
	ActionEditListing        Action = "listing.edit"
	ActionPublishListing     Action = "listing.publish"
	ActionBulkUpdateListings Action = "listing.bulk_update"
	ActionRespondLead        Action = "lead.respond"
	ActionViewAnalytics      Action = "analytics.view"
	ActionUpdatePricing      Action = "pricing.update"
	ActionManageInventory    Action = "inventory.manage"
	ActionSendMessage        Action = "message.send"
)

// Delegatable permission ids. A sub-account may only carry permissions whose
// backing feature the parent account itself holds.
const (
	PermissionEditListings       = "edit_listings"
	PermissionRespondLeads       = "respond_leads"
	PermissionViewAnalytics      = "view_analytics"
	PermissionManageInventory    = "manage_inventory"
	PermissionUpdatePricing      = "update_pricing"
	PermissionSendCommunications = "send_communications"
)

// actionSpec ties an action to the permission a sub-account needs and the
// feature the acting (or parent) account must hold. Scoped actions target a
// specific listing and are subject to the access-scope and ownership checks.
type actionSpec struct {
	permission string
	feature    string
	scoped     bool
}

var actions = map[Action]actionSpec{
	ActionEditListing:        {permission: PermissionEditListings, feature: entitlements.FeatureListingManagement, scoped: true},
	ActionPublishListing:     {permission: PermissionEditListings, feature: entitlements.FeatureListingManagement, scoped: true},
	ActionBulkUpdateListings: {permission: PermissionManageInventory, feature: entitlements.FeatureBulkOperations, scoped: false},
	ActionRespondLead:        {permission: PermissionRespondLeads, feature: entitlements.FeatureLeadManagement, scoped: false},
	ActionViewAnalytics:      {permission: PermissionViewAnalytics, feature: entitlements.FeatureAnalyticsDashboard, scoped: false},
	ActionUpdatePricing:      {permission: PermissionUpdatePricing, feature: entitlements.FeaturePricingTools, scoped: true},
	ActionManageInventory:    {permission: PermissionManageInventory, feature: entitlements.FeatureInventoryTools, scoped: false},
	ActionSendMessage:        {permission: PermissionSendCommunications, feature: entitlements.FeatureCommunications, scoped: false},
}

var permissionFeatures = map[string]string{
	PermissionEditListings:       entitlements.FeatureListingManagement,
	PermissionRespondLeads:       entitlements.FeatureLeadManagement,
	PermissionViewAnalytics:      entitlements.FeatureAnalyticsDashboard,
	PermissionManageInventory:    entitlements.FeatureInventoryTools,
	PermissionUpdatePricing:      entitlements.FeaturePricingTools,
	PermissionSendCommunications: entitlements.FeatureCommunications,
}

// FeatureForPermission returns the feature backing a delegatable permission.
func FeatureForPermission(permission string) (string, bool) {
	f, ok := permissionFeatures[permission]
	return f, ok
}

// ActionRequiresResource reports whether an action operates on a single listing
// and therefore needs a resource id on the request.
func ActionRequiresResource(a Action) bool {
	spec, ok := actions[a]
	return ok && spec.scoped
}
