package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/marit/provisioner/internal/model"
)

// DB is the subset of pgxpool.Pool the Postgres store needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the durable JobStore. Selecting it keeps in-flight jobs
// across restarts; the poller and service code are unaware of the backend.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const jobColumns = `tenant_host, external_job_id, started_at, status, owner_user_id, owner_email,
	company_name, company_alias, requested_alias, currency, domain, country, tenant_external_id, storage_kind`

func (s *PostgresStore) Add(ctx context.Context, job *model.ProvisioningJob) error {
	// A terminal row for the same host is replaced; an in-progress row keeps
	// the single-active-job-per-host invariant.
	tag, err := s.db.Exec(ctx,
		`INSERT INTO provisioning_jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (tenant_host) DO UPDATE SET
		   external_job_id = EXCLUDED.external_job_id,
		   started_at = EXCLUDED.started_at,
		   status = EXCLUDED.status,
		   owner_user_id = EXCLUDED.owner_user_id,
		   owner_email = EXCLUDED.owner_email,
		   company_name = EXCLUDED.company_name,
		   company_alias = EXCLUDED.company_alias,
		   requested_alias = EXCLUDED.requested_alias,
		   currency = EXCLUDED.currency,
		   domain = EXCLUDED.domain,
		   country = EXCLUDED.country,
		   tenant_external_id = EXCLUDED.tenant_external_id,
		   storage_kind = EXCLUDED.storage_kind,
		   finished_at = NULL
		 WHERE provisioning_jobs.status != $4`,
		job.TenantHost, job.ExternalJobID, job.StartedAt, job.Status, job.OwnerUserID, job.OwnerEmail,
		job.CompanyName, job.CompanyAlias, job.RequestedAlias, job.Currency, job.Domain, job.Country,
		job.TenantExternalID, job.StorageKind,
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.TenantHost, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobExists
	}
	return nil
}

func (s *PostgresStore) GetActive(ctx context.Context, tenantHost string) (*model.ProvisioningJob, error) {
	return s.getByStatus(ctx, tenantHost, true)
}

func (s *PostgresStore) GetFinished(ctx context.Context, tenantHost string) (*model.ProvisioningJob, error) {
	return s.getByStatus(ctx, tenantHost, false)
}

func (s *PostgresStore) getByStatus(ctx context.Context, tenantHost string, active bool) (*model.ProvisioningJob, error) {
	op := "="
	if !active {
		op = "!="
	}
	var job model.ProvisioningJob
	err := s.db.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM provisioning_jobs WHERE tenant_host = $1 AND status `+op+` $2`,
		tenantHost, model.JobInProgress,
	).Scan(&job.TenantHost, &job.ExternalJobID, &job.StartedAt, &job.Status, &job.OwnerUserID, &job.OwnerEmail,
		&job.CompanyName, &job.CompanyAlias, &job.RequestedAlias, &job.Currency, &job.Domain, &job.Country,
		&job.TenantExternalID, &job.StorageKind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", tenantHost, err)
	}
	return &job, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*model.ProvisioningJob, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+jobColumns+` FROM provisioning_jobs WHERE status = $1 ORDER BY started_at`,
		model.JobInProgress,
	)
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.ProvisioningJob
	for rows.Next() {
		var job model.ProvisioningJob
		if err := rows.Scan(&job.TenantHost, &job.ExternalJobID, &job.StartedAt, &job.Status, &job.OwnerUserID,
			&job.OwnerEmail, &job.CompanyName, &job.CompanyAlias, &job.RequestedAlias, &job.Currency,
			&job.Domain, &job.Country, &job.TenantExternalID, &job.StorageKind); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func (s *PostgresStore) Finish(ctx context.Context, tenantHost, status, alias string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE provisioning_jobs
		 SET status = $1, company_alias = CASE WHEN $2 = '' THEN company_alias ELSE $2 END, finished_at = now()
		 WHERE tenant_host = $3 AND status = $4`,
		status, alias, tenantHost, model.JobInProgress,
	)
	if err != nil {
		return fmt.Errorf("finish job %s: %w", tenantHost, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}
