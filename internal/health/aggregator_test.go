package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lexforge/lexrag/internal/models"
)

// stubPinger fails when err is set; set swaps the outcome between probes.
type stubPinger struct {
	mu  sync.Mutex
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stubPinger) set(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func checksWith(down ...string) []Check {
	isDown := make(map[string]bool)
	for _, name := range down {
		isDown[name] = true
	}
	names := []string{CompEmbedder, CompVectorIndex, CompDocumentStore, CompGenerator}
	checks := make([]Check, 0, len(names))
	for _, name := range names {
		p := &stubPinger{}
		if isDown[name] {
			p.err = errors.New("unreachable")
		}
		checks = append(checks, Check{Name: name, Pinger: p})
	}
	return checks
}

func reportFor(t *testing.T, down ...string) *models.HealthReport {
	t.Helper()
	a := New(checksWith(down...), time.Hour, time.Second, zap.NewNop())
	a.refresh(context.Background())
	return a.Report()
}

func TestOverall_allUp(t *testing.T) {
	r := reportFor(t)
	if r.Overall != models.HealthUp {
		t.Errorf("expected up, got %s", r.Overall)
	}
	if len(r.Components) != 4 {
		t.Errorf("expected 4 components, got %d", len(r.Components))
	}
}

func TestOverall_vectorIndexDownGeneratorUpIsDegraded(t *testing.T) {
	r := reportFor(t, CompVectorIndex)
	if r.Overall != models.HealthDegraded {
		t.Errorf("retrieval loss with a live generator should degrade, got %s", r.Overall)
	}
}

func TestOverall_vectorIndexAndGeneratorDownIsDown(t *testing.T) {
	r := reportFor(t, CompVectorIndex, CompGenerator)
	if r.Overall != models.HealthDown {
		t.Errorf("nothing answerable should be down, got %s", r.Overall)
	}
}

func TestOverall_documentStoreDownIsDown(t *testing.T) {
	r := reportFor(t, CompDocumentStore)
	if r.Overall != models.HealthDown {
		t.Errorf("document store loss should be down, got %s", r.Overall)
	}
}

func TestOverall_generatorDownIsDegraded(t *testing.T) {
	r := reportFor(t, CompGenerator)
	if r.Overall != models.HealthDegraded {
		t.Errorf("generator loss alone should degrade, got %s", r.Overall)
	}
}

func TestReport_recordsDetailAndTimestamps(t *testing.T) {
	r := reportFor(t, CompEmbedder)
	for _, c := range r.Components {
		if c.LastChecked.IsZero() {
			t.Errorf("component %s missing probe timestamp", c.Component)
		}
		if c.Component == CompEmbedder {
			if c.State != models.HealthDown || c.Detail == "" {
				t.Errorf("failed probe should record state and detail, got %+v", c)
			}
		}
	}
}

func TestReport_beforeFirstProbeIsDegraded(t *testing.T) {
	a := New(checksWith(), time.Hour, time.Second, zap.NewNop())
	r := a.Report()
	if r.Overall != models.HealthDegraded {
		t.Errorf("unprobed aggregator should report degraded, got %s", r.Overall)
	}
}

func TestStartStop_refreshLoopRecovers(t *testing.T) {
	flaky := &stubPinger{err: errors.New("cold start")}
	checks := []Check{
		{Name: CompVectorIndex, Pinger: flaky},
		{Name: CompDocumentStore, Pinger: &stubPinger{}},
		{Name: CompGenerator, Pinger: &stubPinger{}},
	}
	a := New(checks, 10*time.Millisecond, time.Second, zap.NewNop())
	a.Start(context.Background())
	defer a.Stop()

	if got := a.Report().Overall; got != models.HealthDegraded {
		t.Fatalf("expected degraded while index is down, got %s", got)
	}

	flaky.set(nil)
	deadline := time.After(time.Second)
	for a.Report().Overall != models.HealthUp {
		select {
		case <-deadline:
			t.Fatal("aggregator never recovered to up")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestAlive(t *testing.T) {
	a := New(checksWith(CompDocumentStore), time.Hour, time.Second, zap.NewNop())
	a.refresh(context.Background())
	if a.Alive() {
		t.Error("document store down should fail liveness")
	}
}
