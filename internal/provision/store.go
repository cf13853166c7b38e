package provision

import (
	"context"
	"errors"
	"sync"

	"github.com/marit/provisioner/internal/model"
)

var (
	// ErrJobExists is returned by Add when an active job already tracks the
	// tenant host.
	ErrJobExists = errors.New("provisioning job already exists")
	// ErrJobNotFound is returned by lookups that match no job.
	ErrJobNotFound = errors.New("provisioning job not found")
)

// JobStore tracks in-flight and recently finished provisioning jobs, keyed by
// tenant host. Implementations are safe for concurrent use by request
// handlers and the poller. The default MemoryStore loses all state on
// restart; PostgresStore is the durable alternative.
type JobStore interface {
	Add(ctx context.Context, job *model.ProvisioningJob) error
	GetActive(ctx context.Context, tenantHost string) (*model.ProvisioningJob, error)
	ListActive(ctx context.Context) ([]*model.ProvisioningJob, error)
	// Finish moves an active job to the finished view with the given
	// terminal status and final alias.
	Finish(ctx context.Context, tenantHost, status, alias string) error
	GetFinished(ctx context.Context, tenantHost string) (*model.ProvisioningJob, error)
}

// finishedCap bounds the finished view so completed jobs stay queryable for
// a while without growing without limit.
const finishedCap = 256

// MemoryStore is the in-process JobStore.
type MemoryStore struct {
	mu            sync.Mutex
	active        map[string]*model.ProvisioningJob
	finished      map[string]*model.ProvisioningJob
	finishedOrder []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		active:   make(map[string]*model.ProvisioningJob),
		finished: make(map[string]*model.ProvisioningJob),
	}
}

func (s *MemoryStore) Add(_ context.Context, job *model.ProvisioningJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[job.TenantHost]; ok {
		return ErrJobExists
	}
	j := *job
	s.active[job.TenantHost] = &j
	return nil
}

func (s *MemoryStore) GetActive(_ context.Context, tenantHost string) (*model.ProvisioningJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.active[tenantHost]
	if !ok {
		return nil, ErrJobNotFound
	}
	j := *job
	return &j, nil
}

func (s *MemoryStore) ListActive(_ context.Context) ([]*model.ProvisioningJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]*model.ProvisioningJob, 0, len(s.active))
	for _, job := range s.active {
		j := *job
		jobs = append(jobs, &j)
	}
	return jobs, nil
}

func (s *MemoryStore) Finish(_ context.Context, tenantHost, status, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.active[tenantHost]
	if !ok {
		return ErrJobNotFound
	}
	delete(s.active, tenantHost)

	job.Status = status
	if alias != "" {
		job.CompanyAlias = alias
	}

	if _, ok := s.finished[tenantHost]; !ok {
		s.finishedOrder = append(s.finishedOrder, tenantHost)
	}
	s.finished[tenantHost] = job

	for len(s.finishedOrder) > finishedCap {
		oldest := s.finishedOrder[0]
		s.finishedOrder = s.finishedOrder[1:]
		delete(s.finished, oldest)
	}
	return nil
}

func (s *MemoryStore) GetFinished(_ context.Context, tenantHost string) (*model.ProvisioningJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.finished[tenantHost]
	if !ok {
		return nil, ErrJobNotFound
	}
	j := *job
	return &j, nil
}
