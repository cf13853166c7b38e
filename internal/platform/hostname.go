package platform

import "strings"

// TenantHost derives the fully-qualified host for a tenant from its short
// name and the platform domain.
// Example: TenantHost("Acme Widgets", "sites.example.com") -> "acme-widgets.sites.example.com"
func TenantHost(shortName, domain string) string {
	name := strings.ToLower(strings.TrimSpace(shortName))
	name = strings.Join(strings.Fields(name), "-")
	return name + "." + domain
}

// SiteURL returns the public URL for a tenant host.
func SiteURL(tenantHost string) string {
	return "https://" + tenantHost
}

// OrgName builds the registry organization name for a tenant. The host
// prefix lets DeleteSite find every organization belonging to the tenant.
func OrgName(tenantHost, companyName string) string {
	return tenantHost + "__" + companyName
}
