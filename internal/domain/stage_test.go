package domain

import (
	"testing"
	"time"
)

// --- Stage Lifecycle Tests ---

func TestStage_MarkRunning(t *testing.T) {
	st := &Stage{ID: "a", Kind: KindCompute, Status: StagePending}

	st.MarkRunning()
	if st.Status != StageRunning {
		t.Errorf("status = %s", st.Status)
	}
	if st.Attempt != 1 {
		t.Errorf("attempt = %d", st.Attempt)
	}
	if st.StartedAt == nil {
		t.Error("StartedAt should be set")
	}

	first := *st.StartedAt
	st.MarkRunning() // retry
	if st.Attempt != 2 {
		t.Errorf("attempt = %d", st.Attempt)
	}
	if !st.StartedAt.Equal(first) {
		t.Error("StartedAt should be set once, on the first attempt")
	}
}

func TestStage_MarkSucceeded(t *testing.T) {
	st := &Stage{ID: "a", Kind: KindDecide}
	st.MarkRunning()
	st.MarkSucceeded("left")

	if st.Status != StageSucceeded {
		t.Errorf("status = %s", st.Status)
	}
	if st.Outcome != "left" {
		t.Errorf("outcome = %q", st.Outcome)
	}
	if st.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}
	if !st.IsFinished() {
		t.Error("should be terminal")
	}
}

func TestStage_MarkFailed(t *testing.T) {
	st := &Stage{ID: "a", Kind: KindCompute}
	st.MarkRunning()
	st.MarkFailed("boom")

	if st.Status != StageFailed {
		t.Errorf("status = %s", st.Status)
	}
	if st.Error != "boom" {
		t.Errorf("error = %q", st.Error)
	}
	if !st.Status.IsFailure() {
		t.Error("FAILED should count as failure")
	}
}

func TestStage_SkippedIsNotFailure(t *testing.T) {
	st := &Stage{ID: "a", Kind: KindCompute}
	st.MarkSkipped("dependency failed")

	if !st.IsFinished() {
		t.Error("SKIPPED should be terminal")
	}
	if st.Status.IsFailure() {
		t.Error("SKIPPED should not count as failure")
	}
}

func TestStage_CanRetry(t *testing.T) {
	st := &Stage{ID: "a", Kind: KindCompute}
	st.MarkRunning()
	if !st.CanRetry(3) {
		t.Error("attempt 1 of 3 should allow retry")
	}
	st.MarkRunning()
	st.MarkRunning()
	if st.CanRetry(3) {
		t.Error("attempt 3 of 3 should not allow retry")
	}
}

func TestStage_Clone(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
	st := &Stage{
		ID:     "a",
		Kind:   KindCompute,
		Params: map[string]string{"k": "v"},
		Retry:  policy,
	}

	c := st.Clone()
	c.Params["k"] = "mutated"
	c.Retry.MaxAttempts = 99

	if st.Params["k"] != "v" {
		t.Error("clone shares Params map")
	}
	if st.Retry.MaxAttempts != 3 {
		t.Error("clone shares RetryPolicy")
	}
}

// --- Run Tests ---

func TestRun_StageIDsSorted(t *testing.T) {
	run := NewRun(map[string]*Stage{
		"z": {ID: "z"},
		"a": {ID: "a"},
		"m": {ID: "m"},
	})
	ids := run.StageIDs()
	if ids[0] != "a" || ids[1] != "m" || ids[2] != "z" {
		t.Errorf("ids = %v", ids)
	}
}

func TestRun_Value(t *testing.T) {
	run := NewRun(nil)
	run.Values = map[string]map[string]string{
		"producer": {"key": "value"},
	}

	if v, ok := run.Value("producer", "key"); !ok || v != "value" {
		t.Errorf("Value = %q, %v", v, ok)
	}
	if _, ok := run.Value("producer", "missing"); ok {
		t.Error("missing key should not resolve")
	}
	if _, ok := run.Value("ghost", "key"); ok {
		t.Error("missing stage should not resolve")
	}
}

func TestRunConfig_RetryPolicy(t *testing.T) {
	cfg := RunConfig{
		Retries:                 3,
		RetryDelay:              5 * time.Minute,
		RetryBackoffExponential: true,
		MaxRetryDelay:           30 * time.Minute,
		ExecutionTimeout:        2 * time.Hour,
	}
	p := cfg.RetryPolicy()

	if p.MaxAttempts != 3 || p.BaseDelay != 5*time.Minute || p.Multiplier != 2.0 {
		t.Errorf("policy = %+v", p)
	}

	cfg.RetryBackoffExponential = false
	if cfg.RetryPolicy().Multiplier != 1.0 {
		t.Error("linear backoff should have multiplier 1.0")
	}
}
