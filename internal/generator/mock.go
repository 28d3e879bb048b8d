package generator

import (
	"context"
	"sync"

	"github.com/lexforge/lexrag/internal/models"
)

// MockGenerator returns scripted answers and errors, in order. Once the script
// is exhausted the last entry repeats. Used in tests and offline mode.
type MockGenerator struct {
	mu      sync.Mutex
	answers []string
	errs    []error
	calls   int
}

// NewMockGenerator scripts one outcome per call; answers[i] is returned when
// errs[i] is nil. Slices may differ in length; missing entries mean "" / nil.
func NewMockGenerator(answers []string, errs []error) *MockGenerator {
	return &MockGenerator{answers: answers, errs: errs}
}

func (m *MockGenerator) Generate(ctx context.Context, query string, pc *models.PromptContext) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if err := m.scripted(m.errs, i); err != nil {
		return "", err
	}
	if i >= len(m.answers) {
		if len(m.answers) == 0 {
			return "", nil
		}
		return m.answers[len(m.answers)-1], nil
	}
	return m.answers[i], nil
}

func (m *MockGenerator) scripted(errs []error, i int) error {
	if i < len(errs) {
		return errs[i]
	}
	return nil
}

// Calls returns how many times Generate has been invoked.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockGenerator) Model() string { return "mock" }

func (m *MockGenerator) Ping(ctx context.Context) error { return nil }

func (m *MockGenerator) Close() error { return nil }
