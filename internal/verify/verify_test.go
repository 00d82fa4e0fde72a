package verify

import (
	"context"
	"testing"
	"time"
)

func TestShellRunnerAllPass(t *testing.T) {
	r := NewShellRunner(t.TempDir(), 10*time.Second)

	results, err := r.Run(context.Background(), []string{"true", "echo hello"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if !AllPassed(results) {
		t.Errorf("Expected all steps to pass: %+v", results)
	}
	if FirstFailure(results) != nil {
		t.Error("Expected no failure")
	}
	if results[1].Output != "hello\n" {
		t.Errorf("Expected captured output, got %q", results[1].Output)
	}
}

func TestShellRunnerFailureContinues(t *testing.T) {
	r := NewShellRunner("", 10*time.Second)

	results, err := r.Run(context.Background(), []string{"true", "exit 3", "echo after"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("A failing step must not stop the rest, got %d results", len(results))
	}
	if AllPassed(results) {
		t.Error("Expected a failure")
	}

	failure := FirstFailure(results)
	if failure == nil {
		t.Fatal("Expected a first failure")
	}
	if failure.Step != "exit 3" {
		t.Errorf("Expected failing step 'exit 3', got %q", failure.Step)
	}
	if failure.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", failure.ExitCode)
	}
	if !results[2].Passed {
		t.Error("Step after the failure should still run and pass")
	}
}

func TestShellRunnerCapturesStderr(t *testing.T) {
	r := NewShellRunner("", 10*time.Second)

	results, err := r.Run(context.Background(), []string{"echo oops >&2; exit 1"})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Passed {
		t.Error("Expected failure")
	}
	if results[0].Output != "oops\n" {
		t.Errorf("Expected stderr in output, got %q", results[0].Output)
	}
}

func TestShellRunnerNoSteps(t *testing.T) {
	r := NewShellRunner("", time.Second)

	results, err := r.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
	if !AllPassed(results) {
		t.Error("No steps means vacuously passed")
	}
}

func TestShellRunnerTimeout(t *testing.T) {
	r := NewShellRunner("", 100*time.Millisecond)

	results, err := r.Run(context.Background(), []string{"sleep 5"})
	if err != nil {
		t.Fatalf("A timed-out step should report failure, not error: %v", err)
	}
	if len(results) != 1 || results[0].Passed {
		t.Errorf("Expected the timed-out step to fail: %+v", results)
	}
}
