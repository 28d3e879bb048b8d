package models

import "testing"

func TestAskQueryValidate(t *testing.T) {
	q := &AskQuery{Query: "limitation period for contract disputes"}
	if err := q.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestAskQueryValidate_empty(t *testing.T) {
	q := &AskQuery{}
	if err := q.Validate(); err == nil {
		t.Error("empty query should be invalid")
	}
}

func TestAskQueryValidate_clampsNegativeOverrides(t *testing.T) {
	q := &AskQuery{
		Query:   "anticipatory bail",
		Options: AskOptions{TopK: -3, MaxContextTokens: -100},
	}
	if err := q.Validate(); err != nil {
		t.Fatal(err)
	}
	if q.Options.TopK != 0 || q.Options.MaxContextTokens != 0 {
		t.Errorf("negative overrides should reset to 0, got %+v", q.Options)
	}
}

func TestPromptContextEmpty(t *testing.T) {
	pc := &PromptContext{TokenBudget: 100}
	if !pc.Empty() {
		t.Error("context without passages should be empty")
	}
	pc.Passages = append(pc.Passages, RetrievedPassage{ChunkID: "c1"})
	if pc.Empty() {
		t.Error("context with a passage should not be empty")
	}
}
