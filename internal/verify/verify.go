// Package verify runs a milestone's verification commands and reports
// pass/fail per step.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// StepResult holds the outcome of one verification command.
type StepResult struct {
	Step     string `json:"step"`
	Passed   bool   `json:"passed"`
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
}

// Runner executes verification steps.
type Runner interface {
	Run(ctx context.Context, steps []string) ([]StepResult, error)
}

// AllPassed returns true if every step passed.
func AllPassed(results []StepResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// FirstFailure returns the first failed step, or nil.
func FirstFailure(results []StepResult) *StepResult {
	for i := range results {
		if !results[i].Passed {
			return &results[i]
		}
	}
	return nil
}

// ShellRunner runs each step through the shell with a per-step timeout.
type ShellRunner struct {
	workDir string
	timeout time.Duration
}

// NewShellRunner creates a shell-backed runner. A zero timeout means
// 5 minutes per step.
func NewShellRunner(workDir string, timeout time.Duration) *ShellRunner {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &ShellRunner{workDir: workDir, timeout: timeout}
}

// Run executes every step in order. A failing step does not stop the
// remaining steps; callers get the full picture.
func (r *ShellRunner) Run(ctx context.Context, steps []string) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))
	for _, step := range steps {
		stepCtx, cancel := context.WithTimeout(ctx, r.timeout)
		result, err := r.runStep(stepCtx, step)
		cancel()
		if err != nil {
			return nil, err
		}
		results = append(results, result)

		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	return results, nil
}

func (r *ShellRunner) runStep(ctx context.Context, step string) (StepResult, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", step)
	if r.workDir != "" {
		cmd.Dir = r.workDir
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			exitCode = exitError.ExitCode()
		} else {
			return StepResult{}, fmt.Errorf("exec verification step: %w", err)
		}
	}

	return StepResult{
		Step:     step,
		Passed:   exitCode == 0,
		ExitCode: exitCode,
		Output:   out.String(),
	}, nil
}
