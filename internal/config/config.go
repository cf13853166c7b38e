package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceName string
	LogLevel    string

	HTTPListenAddr string

	// Site-builder service (the external provisioner).
	ProvisioningEnabled bool
	ProvisionerBaseURL  string
	ProvisionerAPIKey   string
	ProvisionerTimeout  time.Duration

	// Organization / identity registry.
	RegistryBaseURL string
	RegistryAPIKey  string
	// SystemUserID is the registry account whose attribute bag stores
	// per-tenant secrets and the invitation log.
	SystemUserID string

	// Poller behavior.
	PollInterval   time.Duration
	FailureBackoff time.Duration
	JobTimeout     time.Duration

	// Tenant addressing.
	TenantDomain string
	// TenantAppURLTemplate builds a tenant's own API base URL; %s is
	// replaced with the tenant host.
	TenantAppURLTemplate string

	// Defaults applied to new tenants.
	OwnerRoles         []string
	DefaultStorageKind string

	// Object storage (used when a tenant selects the internal kind).
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	// Job store backend: "memory" (default) or "postgres".
	JobStore    string
	DatabaseURL string

	// ExtraLegalSuffixes extends the alias generator's suffix drop list.
	ExtraLegalSuffixes []string
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:          getEnv("SERVICE_NAME", "provisioner"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		HTTPListenAddr:       getEnv("HTTP_LISTEN_ADDR", ":8080"),
		ProvisioningEnabled:  getEnv("PROVISIONING_ENABLED", "true") == "true",
		ProvisionerBaseURL:   getEnv("PROVISIONER_BASE_URL", ""),
		ProvisionerAPIKey:    getEnv("PROVISIONER_API_KEY", ""),
		RegistryBaseURL:      getEnv("REGISTRY_BASE_URL", ""),
		RegistryAPIKey:       getEnv("REGISTRY_API_KEY", ""),
		SystemUserID:         getEnv("SYSTEM_USER_ID", ""),
		TenantDomain:         getEnv("TENANT_DOMAIN", ""),
		TenantAppURLTemplate: getEnv("TENANT_APP_URL_TEMPLATE", "https://%s/api"),
		DefaultStorageKind:   getEnv("STORAGE_KIND", "internal"),
		S3Endpoint:           getEnv("S3_ENDPOINT", ""),
		S3AccessKey:          getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:          getEnv("S3_SECRET_KEY", ""),
		JobStore:             getEnv("JOB_STORE", "memory"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
	}

	var err error
	if cfg.ProvisionerTimeout, err = getDuration("PROVISIONER_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", 16*time.Second); err != nil {
		return nil, err
	}
	if cfg.FailureBackoff, err = getDuration("FAILURE_BACKOFF", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.JobTimeout, err = getDuration("JOB_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}

	cfg.OwnerRoles = splitList(getEnv("OWNER_ROLES", "System Manager,Accounts Manager"))

	if path := os.Getenv("PROVISIONER_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.RegistryBaseURL == "" {
		missing = append(missing, "REGISTRY_BASE_URL")
	}
	if c.SystemUserID == "" {
		missing = append(missing, "SYSTEM_USER_ID")
	}
	if c.TenantDomain == "" {
		missing = append(missing, "TENANT_DOMAIN")
	}
	if c.ProvisioningEnabled && c.ProvisionerBaseURL == "" {
		missing = append(missing, "PROVISIONER_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if c.JobStore != "memory" && c.JobStore != "postgres" {
		return fmt.Errorf("invalid JOB_STORE %q (want memory or postgres)", c.JobStore)
	}
	if c.JobStore == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("JOB_STORE=postgres requires DATABASE_URL")
	}

	return nil
}

// fileOverlay is the optional YAML config file. Only list-valued settings
// live here; everything else is env-driven.
type fileOverlay struct {
	OwnerRoles    []string `yaml:"owner_roles"`
	LegalSuffixes []string `yaml:"legal_suffixes"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if len(overlay.OwnerRoles) > 0 {
		c.OwnerRoles = overlay.OwnerRoles
	}
	c.ExtraLegalSuffixes = overlay.LegalSuffixes
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
