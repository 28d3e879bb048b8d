// Package health maintains a process-wide component health cache refreshed in
// the background, so status reads never add provider latency to requests.
package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lexforge/lexrag/internal/models"
)

// Pinger is the probe surface every monitored component exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check binds a component name to its probe.
type Check struct {
	Name   string
	Pinger Pinger
}

// Component names used in health reports. The aggregation rules key off these.
const (
	CompEmbedder      = "embedder"
	CompVectorIndex   = "vector_index"
	CompDocumentStore = "document_store"
	CompGenerator     = "generator"
)

// Aggregator probes components on a fixed interval and serves the last-known
// report from an atomic snapshot. Writes happen only from the refresh loop.
type Aggregator struct {
	checks       []Check
	interval     time.Duration
	probeTimeout time.Duration
	log          *zap.Logger

	snapshot atomic.Pointer[models.HealthReport]

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates an Aggregator over the given checks. interval is how often the
// refresh loop runs; probeTimeout bounds each individual probe.
func New(checks []Check, interval, probeTimeout time.Duration, log *zap.Logger) *Aggregator {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	a := &Aggregator{
		checks:       checks,
		interval:     interval,
		probeTimeout: probeTimeout,
		log:          log,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	// Seed with an unknown-degraded report so readers before the first probe
	// cycle see something honest rather than a zero value.
	seed := &models.HealthReport{Overall: models.HealthDegraded}
	for _, c := range checks {
		seed.Components = append(seed.Components, models.HealthStatus{
			Component: c.Name,
			State:     models.HealthDegraded,
			Detail:    "not probed yet",
		})
	}
	a.snapshot.Store(seed)
	return a
}

// Start runs an immediate probe cycle and then refreshes on the interval
// until Stop is called.
func (a *Aggregator) Start(ctx context.Context) {
	a.refresh(ctx)
	go func() {
		defer close(a.done)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.refresh(ctx)
			case <-a.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop terminates the refresh loop and waits for it to exit.
func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
	<-a.done
}

// Report returns the last-known health report without blocking on probes.
func (a *Aggregator) Report() *models.HealthReport {
	return a.snapshot.Load()
}

// Alive reports process liveness: true unless the aggregate is down.
func (a *Aggregator) Alive() bool {
	return a.Report().Overall != models.HealthDown
}

func (a *Aggregator) refresh(ctx context.Context) {
	report := &models.HealthReport{
		Components: make([]models.HealthStatus, 0, len(a.checks)),
	}
	states := make(map[string]models.HealthState, len(a.checks))
	for _, c := range a.checks {
		status := a.probe(ctx, c)
		states[c.Name] = status.State
		report.Components = append(report.Components, status)
	}
	report.Overall = overall(states)

	prev := a.snapshot.Load()
	if prev != nil && prev.Overall != report.Overall {
		a.log.Info("overall health changed",
			zap.String("from", string(prev.Overall)),
			zap.String("to", string(report.Overall)))
	}
	a.snapshot.Store(report)
}

func (a *Aggregator) probe(ctx context.Context, c Check) models.HealthStatus {
	pctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
	defer cancel()

	status := models.HealthStatus{
		Component:   c.Name,
		State:       models.HealthUp,
		LastChecked: time.Now(),
	}
	if err := c.Pinger.Ping(pctx); err != nil {
		status.State = models.HealthDown
		status.Detail = err.Error()
		a.log.Warn("component probe failed", zap.String("component", c.Name), zap.Error(err))
	}
	return status
}

// overall folds component states into the aggregate:
//   - document store down means no statute text can be served at all: down.
//   - vector index down kills retrieval, but with a live generator the system
//     can still answer from model knowledge in degraded mode; only when the
//     generator is down too is nothing answerable: down.
//   - any other impaired component: degraded.
func overall(states map[string]models.HealthState) models.HealthState {
	down := func(name string) bool { return states[name] == models.HealthDown }

	if down(CompDocumentStore) {
		return models.HealthDown
	}
	if down(CompVectorIndex) && down(CompGenerator) {
		return models.HealthDown
	}
	for _, s := range states {
		if s != models.HealthUp {
			return models.HealthDegraded
		}
	}
	return models.HealthUp
}
