package faults

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrap_attribution(t *testing.T) {
	err := Wrap("vector_index", ErrIndexUnavailable)
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Error("wrapped error should match sentinel")
	}
	if Component(err) != "vector_index" {
		t.Errorf("expected component vector_index, got %q", Component(err))
	}
}

func TestWrap_nil(t *testing.T) {
	if Wrap("retriever", nil) != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapf_preservesSentinelThroughFurtherWrapping(t *testing.T) {
	inner := Wrapf("embedder", ErrProviderUnavailable, "embed batch of %d", 3)
	outer := fmt.Errorf("retrieve: %w", inner)
	if !errors.Is(outer, ErrProviderUnavailable) {
		t.Error("sentinel should survive nested wrapping")
	}
	if Component(outer) != "embedder" {
		t.Errorf("expected component embedder, got %q", Component(outer))
	}
}

func TestWrapAs_matchesBothBranches(t *testing.T) {
	cause := Wrapf("vector_index", ErrPoolExhausted, "no free slot after %s", "2s")
	err := WrapAs("retriever", ErrRetrievalFailed, cause)
	if !errors.Is(err, ErrRetrievalFailed) {
		t.Error("classification sentinel should match")
	}
	if !errors.Is(err, ErrPoolExhausted) {
		t.Error("causal chain should survive classification")
	}
	if Component(err) != "retriever" {
		t.Errorf("expected outermost component, got %q", Component(err))
	}
}

func TestWrapAs_nil(t *testing.T) {
	if WrapAs("retriever", ErrRetrievalFailed, nil) != nil {
		t.Error("classifying nil should return nil")
	}
}

func TestTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{ErrProviderUnavailable, true},
		{ErrIndexUnavailable, true},
		{ErrInvalidInput, false},
		{ErrRetrievalFailed, false},
		{ErrGenerationTimeout, false},
		{Wrap("embedder", ErrProviderUnavailable), true},
	}
	for _, c := range cases {
		if got := Transient(c.err); got != c.want {
			t.Errorf("Transient(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestComponent_unattributed(t *testing.T) {
	if Component(errors.New("plain")) != "" {
		t.Error("plain errors should have no component")
	}
}
