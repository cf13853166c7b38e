package model

import "time"

// Job status constants. These describe the orchestrator's local view of a
// provisioning job, which is distinct from the status vocabulary of the
// external site builder (see ExternalStatus).
const (
	JobInProgress = "in_progress"
	JobFinished   = "finished"
	JobFailed     = "failed"
	JobExpired    = "expired"
)

// Storage backend kinds for a tenant's document storage.
const (
	StorageInternal    = "internal"
	StorageSharePoint  = "sharepoint"
	StorageAzureBlob   = "azure_blob"
	StorageFrappeDrive = "frappe_drive"
)

// ProvisioningJob tracks one in-flight tenant creation. Jobs are keyed by
// TenantHost; at most one job per host exists at a time.
type ProvisioningJob struct {
	TenantHost       string    `json:"tenant_host"`
	ExternalJobID    string    `json:"external_job_id,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	Status           string    `json:"status"`
	OwnerUserID      string    `json:"owner_user_id"`
	OwnerEmail       string    `json:"owner_email"`
	CompanyName      string    `json:"company_name"`
	CompanyAlias     string    `json:"company_alias,omitempty"`
	RequestedAlias   string    `json:"requested_alias,omitempty"`
	Currency         string    `json:"currency"`
	Domain           string    `json:"domain"`
	Country          string    `json:"country"`
	TenantExternalID string    `json:"tenant_external_id,omitempty"`
	StorageKind      string    `json:"storage_kind"`
	// Request carries the original creation payload through to the
	// completion pipeline without the store needing to know its shape.
	Request any `json:"-"`
}
