package provision

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/marit/provisioner/internal/model"
)

var (
	pollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "provisioner_poll_cycles_total",
		Help: "Number of provisioning poll cycles run.",
	})
	jobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provisioner_jobs_finished_total",
		Help: "Number of provisioning jobs moved to a terminal status.",
	}, []string{"status"})
	pollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "provisioner_poll_errors_total",
		Help: "Number of errors while polling external job status.",
	})
	activeJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "provisioner_active_jobs",
		Help: "Number of provisioning jobs currently in progress.",
	})
)

// Poller drives active provisioning jobs to completion by periodically
// querying the external builder and running the completion pipeline.
type Poller struct {
	svc      *Service
	store    JobStore
	builder  SiteBuilder
	interval time.Duration
	backoff  time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	// lastFailure holds, per tenant host, when the most recent status
	// poll failed. backoffUntil suspends whole ticks after a panic or a
	// store failure. Only the poller goroutine touches either.
	lastFailure  map[string]time.Time
	backoffUntil time.Time
}

func NewPoller(svc *Service, store JobStore, builder SiteBuilder, interval, backoff, timeout time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		svc:         svc,
		store:       store,
		builder:     builder,
		interval:    interval,
		backoff:     backoff,
		timeout:     timeout,
		logger:      logger.With().Str("component", "poller").Logger(),
		now:         time.Now,
		lastFailure: make(map[string]time.Time),
	}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().Dur("interval", p.interval).Msg("poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if p.now().Before(p.backoffUntil) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			pollErrors.Inc()
			p.backoffUntil = p.now().Add(p.backoff)
			p.logger.Error().Interface("panic", r).Msg("recovered from panic in poll cycle, backing off")
		}
	}()

	pollCycles.Inc()

	jobs, err := p.store.ListActive(ctx)
	if err != nil {
		pollErrors.Inc()
		p.backoffUntil = p.now().Add(p.backoff)
		p.logger.Error().Err(err).Msg("failed to list active jobs")
		return
	}
	activeJobs.Set(float64(len(jobs)))

	for _, job := range jobs {
		p.process(ctx, job)
	}
}

func (p *Poller) process(ctx context.Context, job *model.ProvisioningJob) {
	log := p.logger.With().Str("tenant_host", job.TenantHost).Logger()

	if last, ok := p.lastFailure[job.TenantHost]; ok && p.now().Sub(last) < p.backoff {
		return
	}

	status := model.ExternalSucceeded
	if job.ExternalJobID != "" {
		var err error
		status, err = p.builder.JobStatus(ctx, job.ExternalJobID)
		if err != nil {
			// A failed query counts as Unknown so the job timeout still
			// applies while the builder is unreachable.
			pollErrors.Inc()
			p.lastFailure[job.TenantHost] = p.now()
			log.Warn().Err(err).Str("external_job_id", job.ExternalJobID).Msg("status poll failed, backing off")
			status = model.ExternalUnknown
		} else {
			delete(p.lastFailure, job.TenantHost)
		}
	}

	switch status {
	case model.ExternalSucceeded:
		alias, err := p.svc.OnSiteCreated(ctx, job)
		if err != nil {
			pollErrors.Inc()
			p.lastFailure[job.TenantHost] = p.now()
			log.Error().Err(err).Msg("completion pipeline failed, will retry")
			return
		}
		p.finish(ctx, job.TenantHost, model.JobFinished, alias, log)
	case model.ExternalFailed:
		log.Warn().Str("external_job_id", job.ExternalJobID).Msg("external build failed")
		p.finish(ctx, job.TenantHost, model.JobFailed, "", log)
	default:
		if p.now().Sub(job.StartedAt) > p.timeout {
			log.Warn().Time("started_at", job.StartedAt).Msg("job exceeded timeout, marking expired")
			p.finish(ctx, job.TenantHost, model.JobExpired, "", log)
		}
	}
}

func (p *Poller) finish(ctx context.Context, tenantHost, status, alias string, log zerolog.Logger) {
	delete(p.lastFailure, tenantHost)
	if err := p.store.Finish(ctx, tenantHost, status, alias); err != nil {
		pollErrors.Inc()
		log.Error().Err(err).Str("status", status).Msg("failed to finish job")
		return
	}
	jobsFinished.WithLabelValues(status).Inc()
	log.Info().Str("status", status).Str("alias", alias).Msg("provisioning job finished")
}
