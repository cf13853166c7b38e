package provision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marit/provisioner/internal/model"
	"github.com/marit/provisioner/internal/platform"
	"github.com/marit/provisioner/internal/tenantapp"
)

// OnSiteCreated finalizes a tenant once the external build has succeeded:
// it creates the organization, attaches the owner, creates the default
// application user, and provisions the storage container. Steps after the
// organization exists are best effort; failures are logged and the tenant
// is left partially set up rather than rolled back.
func (s *Service) OnSiteCreated(ctx context.Context, job *model.ProvisioningJob) (string, error) {
	log := s.logger.With().Str("tenant_host", job.TenantHost).Logger()

	owner, err := s.reg.GetUser(ctx, job.OwnerUserID)
	if err != nil {
		return "", fmt.Errorf("resolve owner %s: %w", job.OwnerUserID, err)
	}

	alias := job.RequestedAlias
	if alias == "" {
		existing, err := s.knownAliases(ctx)
		if err != nil {
			return "", fmt.Errorf("list organization aliases: %w", err)
		}
		alias, err = s.aliases.Generate(job.CompanyName, existing)
		if err != nil {
			return "", fmt.Errorf("generate alias: %w", err)
		}
	}

	org := &model.Organization{
		Name:    platform.OrgName(job.TenantHost, job.CompanyName),
		Alias:   alias,
		Enabled: true,
		Domains: []string{job.TenantHost},
		Attributes: map[string][]string{
			model.AttrSiteURL:          {platform.SiteURL(job.TenantHost)},
			model.AttrOwnerEmail:       {job.OwnerEmail},
			model.AttrCreatedAt:        {s.now().UTC().Format(time.RFC3339)},
			model.AttrStorageKind:      {job.StorageKind},
			model.AttrPermissionPrefix + job.OwnerEmail: {strings.Join(model.OwnerPermissions, ",")},
		},
	}
	if job.Domain != "" {
		org.Domains = append(org.Domains, job.Domain)
	}
	if job.TenantExternalID != "" {
		org.Attributes[model.AttrTenantExternalID] = []string{job.TenantExternalID}
	}
	if job.Currency != "" {
		org.Attributes[model.AttrCurrency] = []string{job.Currency}
	}
	if job.Country != "" {
		org.Attributes[model.AttrCountry] = []string{job.Country}
	}

	created, err := s.reg.CreateOrganization(ctx, org)
	if err != nil {
		return "", fmt.Errorf("create organization %s: %w", org.Name, err)
	}
	log.Info().Str("org_id", created.ID).Str("alias", alias).Msg("organization created")

	if err := s.reg.AddMember(ctx, created.ID, job.OwnerUserID); err != nil {
		log.Error().Err(err).Str("org_id", created.ID).Msg("failed to add owner to organization")
	}

	// No external site exists when provisioning is disabled, so there is
	// no tenant API to create the default user against.
	if job.ExternalJobID != "" {
		req := tenantapp.CreateUserRequest{
			Email:     owner.Email,
			FullName:  owner.Name,
			Roles:     s.cfg.OwnerRoles,
			SendEmail: true,
		}
		if err := s.tenants.CreateDefaultUser(ctx, job.TenantHost, req); err != nil {
			log.Error().Err(err).Msg("failed to create default tenant user")
		}
	}

	if job.StorageKind == model.StorageInternal {
		if err := s.storage.CreateContainer(ctx, alias); err != nil {
			log.Error().Err(err).Msg("failed to create storage container")
		}
	}

	return alias, nil
}
