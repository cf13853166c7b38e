package provision

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/marit/provisioner/internal/config"
	"github.com/marit/provisioner/internal/model"
	"github.com/marit/provisioner/internal/platform"
	"github.com/marit/provisioner/internal/registry"
	"github.com/marit/provisioner/internal/storage"
	"github.com/marit/provisioner/internal/tenantapp"
)

// ErrInvalidName rejects a site short name that is empty, too long, or
// carries characters outside letters, digits, spaces, and hyphens.
var ErrInvalidName = errors.New("invalid site name")

const maxShortNameLength = 32

var shortNamePattern = regexp.MustCompile(`^[A-Za-z0-9 \-]+$`)

// SiteBuilder is the external service that builds tenant sites.
type SiteBuilder interface {
	CreateSite(ctx context.Context, tenantHost, companyName string) (string, error)
	JobStatus(ctx context.Context, jobID string) (model.ExternalStatus, error)
	DeleteSite(ctx context.Context, tenantHost string) error
}

// Registry is the subset of the organization/identity registry the
// orchestrator uses.
type Registry interface {
	CreateOrganization(ctx context.Context, org *model.Organization) (*model.Organization, error)
	ListOrganizations(ctx context.Context) ([]model.Organization, error)
	ListOrganizationsByPrefix(ctx context.Context, prefix string) ([]model.Organization, error)
	DeleteOrganization(ctx context.Context, id string) error
	AddMember(ctx context.Context, orgID, userID string) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	SetUserAttribute(ctx context.Context, userID, key string, values []string) error
	DeleteUserAttribute(ctx context.Context, userID, key string) error
	FindClientApp(ctx context.Context, name string) (*model.ClientApp, error)
	DeleteClientApp(ctx context.Context, id string) error
}

// AppUserCreator creates the default application user inside a new tenant.
type AppUserCreator interface {
	CreateDefaultUser(ctx context.Context, tenantHost string, req tenantapp.CreateUserRequest) error
}

// CreateSiteRequest is the orchestrator-level input for a new tenant.
type CreateSiteRequest struct {
	CompanyName      string
	RequestedAlias   string
	OwnerUserID      string
	OwnerEmail       string
	Currency         string
	Domain           string
	Country          string
	TenantExternalID string
	StorageKind      string
}

// SiteStatus is the caller-visible state of a tenant's provisioning.
type SiteStatus struct {
	Status string `json:"status"`
	Alias  string `json:"alias,omitempty"`
}

// Service orchestrates tenant provisioning across the site builder, the
// organization registry, tenant application APIs, and object storage.
type Service struct {
	cfg     *config.Config
	store   JobStore
	builder SiteBuilder
	reg     Registry
	tenants AppUserCreator
	storage storage.ContainerCreator
	aliases *platform.AliasGenerator
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(
	cfg *config.Config,
	store JobStore,
	builder SiteBuilder,
	reg Registry,
	tenants AppUserCreator,
	containers storage.ContainerCreator,
	aliases *platform.AliasGenerator,
	logger zerolog.Logger,
) *Service {
	return &Service{
		cfg:     cfg,
		store:   store,
		builder: builder,
		reg:     reg,
		tenants: tenants,
		storage: containers,
		aliases: aliases,
		logger:  logger.With().Str("component", "provision").Logger(),
		now:     time.Now,
	}
}

// CreateSite validates the request, performs the idempotency check, submits
// the build to the external provisioner, and registers the job. It returns
// the tenant host immediately; completion happens asynchronously via the
// poller.
func (s *Service) CreateSite(ctx context.Context, req CreateSiteRequest) (string, error) {
	shortName := req.RequestedAlias
	if shortName == "" {
		existing, err := s.knownAliases(ctx)
		if err != nil {
			return "", fmt.Errorf("list organization aliases: %w", err)
		}
		shortName, err = s.aliases.Generate(req.CompanyName, existing)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrInvalidName, err)
		}
	}

	if err := validateShortName(shortName); err != nil {
		return "", err
	}

	tenantHost := platform.TenantHost(shortName, s.cfg.TenantDomain)

	// Idempotency: an existing organization for this (host, company) pair
	// means the tenant is already provisioned.
	orgs, err := s.reg.ListOrganizationsByPrefix(ctx, tenantHost)
	if err != nil {
		return "", fmt.Errorf("check existing organizations: %w", err)
	}
	orgName := platform.OrgName(tenantHost, req.CompanyName)
	for _, org := range orgs {
		if org.Name == orgName {
			s.logger.Info().Str("tenant_host", tenantHost).Msg("organization already exists, returning existing host")
			return tenantHost, nil
		}
	}

	// An active job for this host means provisioning is already underway.
	if _, err := s.store.GetActive(ctx, tenantHost); err == nil {
		return tenantHost, nil
	}

	// Mint the per-tenant secret before submitting so later pipeline steps
	// can authenticate against the tenant's own API.
	secret := platform.NewSecret()
	secretKey := model.AttrSecretPrefix + tenantHost
	if err := s.reg.SetUserAttribute(ctx, s.cfg.SystemUserID, secretKey, []string{secret}); err != nil {
		return "", fmt.Errorf("store tenant secret: %w", err)
	}

	job := &model.ProvisioningJob{
		TenantHost:       tenantHost,
		StartedAt:        s.now(),
		Status:           model.JobInProgress,
		OwnerUserID:      req.OwnerUserID,
		OwnerEmail:       req.OwnerEmail,
		CompanyName:      req.CompanyName,
		RequestedAlias:   req.RequestedAlias,
		Currency:         req.Currency,
		Domain:           req.Domain,
		Country:          req.Country,
		TenantExternalID: req.TenantExternalID,
		StorageKind:      req.StorageKind,
		Request:          req,
	}
	if job.StorageKind == "" {
		job.StorageKind = s.cfg.DefaultStorageKind
	}

	if s.cfg.ProvisioningEnabled {
		jobID, err := s.builder.CreateSite(ctx, tenantHost, req.CompanyName)
		if err != nil {
			return "", fmt.Errorf("submit site build: %w", err)
		}
		job.ExternalJobID = jobID
	} else {
		// Provisioning disabled: no external call, the poller treats the
		// job as already succeeded.
		s.logger.Info().Str("tenant_host", tenantHost).Msg("provisioning disabled, skipping external build")
	}

	if err := s.store.Add(ctx, job); err != nil {
		if errors.Is(err, ErrJobExists) {
			return tenantHost, nil
		}
		return "", fmt.Errorf("register job: %w", err)
	}

	s.logger.Info().
		Str("tenant_host", tenantHost).
		Str("external_job_id", job.ExternalJobID).
		Msg("provisioning job registered")

	return tenantHost, nil
}

// DeleteSite reverses a tenant's side effects across the external systems.
// The external teardown must succeed; the remaining steps are attempted in
// order and their failures are collected, not rolled back.
func (s *Service) DeleteSite(ctx context.Context, shortName string) error {
	tenantHost := platform.TenantHost(shortName, s.cfg.TenantDomain)

	if err := s.builder.DeleteSite(ctx, tenantHost); err != nil {
		return fmt.Errorf("delete site %s: %w", tenantHost, err)
	}

	var errs []error

	secretKey := model.AttrSecretPrefix + tenantHost
	if err := s.reg.DeleteUserAttribute(ctx, s.cfg.SystemUserID, secretKey); err != nil {
		s.logger.Error().Err(err).Str("tenant_host", tenantHost).Msg("failed to remove tenant secret")
		errs = append(errs, err)
	}

	orgs, err := s.reg.ListOrganizationsByPrefix(ctx, tenantHost)
	if err != nil {
		s.logger.Error().Err(err).Str("tenant_host", tenantHost).Msg("failed to list tenant organizations")
		errs = append(errs, err)
	}
	for _, org := range orgs {
		if !strings.HasPrefix(org.Name, tenantHost) {
			continue
		}
		if err := s.reg.DeleteOrganization(ctx, org.ID); err != nil {
			s.logger.Error().Err(err).Str("org_id", org.ID).Msg("failed to delete organization")
			errs = append(errs, err)
		}
	}

	app, err := s.reg.FindClientApp(ctx, tenantHost)
	switch {
	case err == nil:
		if err := s.reg.DeleteClientApp(ctx, app.ID); err != nil {
			s.logger.Error().Err(err).Str("client_app_id", app.ID).Msg("failed to delete client app")
			errs = append(errs, err)
		}
	case errors.Is(err, registry.ErrNotFound):
	default:
		s.logger.Error().Err(err).Str("tenant_host", tenantHost).Msg("failed to look up client app")
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// GetStatus reports a tenant's provisioning state. Hosts with neither an
// active nor a finished job report an unknown status.
func (s *Service) GetStatus(ctx context.Context, tenantHost string) (SiteStatus, error) {
	if _, err := s.store.GetActive(ctx, tenantHost); err == nil {
		return SiteStatus{Status: model.JobInProgress}, nil
	}
	if job, err := s.store.GetFinished(ctx, tenantHost); err == nil {
		return SiteStatus{Status: job.Status, Alias: job.CompanyAlias}, nil
	}
	return SiteStatus{Status: "unknown"}, nil
}

// knownAliases collects the aliases of every known organization.
func (s *Service) knownAliases(ctx context.Context) (map[string]struct{}, error) {
	orgs, err := s.reg.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	aliases := make(map[string]struct{}, len(orgs))
	for _, org := range orgs {
		aliases[org.Alias] = struct{}{}
	}
	return aliases, nil
}

func validateShortName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(name) > maxShortNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidName, maxShortNameLength)
	}
	if !shortNamePattern.MatchString(name) {
		return fmt.Errorf("%w: only letters, digits, spaces, and hyphens are allowed", ErrInvalidName)
	}
	return nil
}
