package model

// Organization is the identity registry's representation of a tenant's
// company, as seen over its HTTP API. The Attributes bag is the only
// persistent store for organization metadata; values are string arrays.
type Organization struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Alias      string              `json:"alias"`
	Enabled    bool                `json:"enabled"`
	Domains    []string            `json:"domains,omitempty"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// User is a registry account. The system user's attribute bag doubles as
// storage for per-tenant secrets and the invitation log.
type User struct {
	ID         string              `json:"id"`
	Email      string              `json:"email"`
	Name       string              `json:"name,omitempty"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// ClientApp is a registry client-application registration.
type ClientApp struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Well-known attribute bag keys.
const (
	AttrSiteURL          = "site_url"
	AttrOwnerEmail       = "owner_email"
	AttrTenantExternalID = "tenant_external_id"
	AttrCreatedAt        = "created_at"
	AttrStorageKind      = "storage_kind"
	AttrCurrency         = "currency"
	AttrCountry          = "country"
	AttrInvitations      = "invitations"

	// AttrPermissionPrefix prefixes per-member permission keys; the full key
	// is the prefix plus the member's email, the value a single
	// comma-joined permission list.
	AttrPermissionPrefix = "perm_"

	// AttrSecretPrefix prefixes per-tenant API secrets stored on the system
	// user; the full key is the prefix plus the tenant host.
	AttrSecretPrefix = "tenant_secret_"
)

// Permissions granted to the owner of a freshly provisioned tenant.
var OwnerPermissions = []string{"admin", "read", "write", "invite", "billing"}
