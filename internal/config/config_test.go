package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("HTTP_LISTEN_ADDR")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("POLL_INTERVAL")
	os.Unsetenv("JOB_TIMEOUT")
	os.Unsetenv("PROVISIONING_ENABLED")
	os.Unsetenv("JOB_STORE")
	os.Unsetenv("OWNER_ROLES")
	os.Unsetenv("PROVISIONER_CONFIG_FILE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.ProvisioningEnabled)
	assert.Equal(t, 16*time.Second, cfg.PollInterval)
	assert.Equal(t, 60*time.Second, cfg.FailureBackoff)
	assert.Equal(t, 30*time.Minute, cfg.JobTimeout)
	assert.Equal(t, "memory", cfg.JobStore)
	assert.Equal(t, []string{"System Manager", "Accounts Manager"}, cfg.OwnerRoles)
}

func TestLoad_AllEnvVars(t *testing.T) {
	t.Setenv("PROVISIONING_ENABLED", "false")
	t.Setenv("PROVISIONER_BASE_URL", "https://builder.example.com")
	t.Setenv("REGISTRY_BASE_URL", "https://registry.example.com")
	t.Setenv("TENANT_DOMAIN", "sites.example.com")
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("JOB_TIMEOUT", "10m")
	t.Setenv("OWNER_ROLES", "Admin, Billing ")
	t.Setenv("JOB_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/provisioner")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.ProvisioningEnabled)
	assert.Equal(t, "https://builder.example.com", cfg.ProvisionerBaseURL)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.JobTimeout)
	assert.Equal(t, []string{"Admin", "Billing"}, cfg.OwnerRoles)
	assert.Equal(t, "postgres", cfg.JobStore)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "sixteen")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POLL_INTERVAL")
}

func TestLoad_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "provisioner.yaml")
	data := []byte("owner_roles:\n  - Owner\nlegal_suffixes:\n  - holdings\n  - group\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("PROVISIONER_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"Owner"}, cfg.OwnerRoles)
	assert.Equal(t, []string{"holdings", "group"}, cfg.ExtraLegalSuffixes)
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := &Config{ProvisioningEnabled: true, JobStore: "memory"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REGISTRY_BASE_URL")
	assert.Contains(t, err.Error(), "SYSTEM_USER_ID")
	assert.Contains(t, err.Error(), "TENANT_DOMAIN")
	assert.Contains(t, err.Error(), "PROVISIONER_BASE_URL")
}

func TestValidate_ProvisioningDisabledSkipsProvisionerURL(t *testing.T) {
	cfg := &Config{
		RegistryBaseURL: "https://registry.example.com",
		SystemUserID:    "system",
		TenantDomain:    "sites.example.com",
		JobStore:        "memory",
	}

	require.NoError(t, cfg.Validate())
}

func TestValidate_PostgresStoreNeedsDatabaseURL(t *testing.T) {
	cfg := &Config{
		RegistryBaseURL: "https://registry.example.com",
		SystemUserID:    "system",
		TenantDomain:    "sites.example.com",
		JobStore:        "postgres",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
