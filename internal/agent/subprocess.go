package agent

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"marathon/internal/models"
)

// approvalMarker is the line prefix an agent prints when it needs a
// human decision before it can continue.
const approvalMarker = "NEED_APPROVAL:"

// Subprocess runs milestones by shelling out to a coding-agent CLI in
// non-interactive mode.
type Subprocess struct {
	binary  string
	workDir string
}

// NewSubprocess creates an agent backed by the given CLI binary.
func NewSubprocess(binary, workDir string) *Subprocess {
	return &Subprocess{binary: binary, workDir: workDir}
}

// Name returns the agent identifier.
func (a *Subprocess) Name() string {
	return "subprocess:" + a.binary
}

// ExecuteMilestone runs one attempt via the CLI and captures its output.
func (a *Subprocess) ExecuteMilestone(ctx context.Context, m models.Milestone, goal, guidance string, level models.ThinkingLevel) (*Result, error) {
	prompt := buildMilestonePrompt(m, goal, guidance, level)

	cmd := exec.CommandContext(ctx, a.binary, "-p", prompt)
	if a.workDir != "" {
		cmd.Dir = a.workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return nil, fmt.Errorf("run agent: %w", err)
		}
		return nil, fmt.Errorf("agent exited with error: %s", strings.TrimSpace(stderr.String()))
	}

	output := stdout.String()
	result := &Result{Output: output}

	for _, line := range strings.Split(output, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), approvalMarker); ok {
			result.NeedsApproval = true
			result.Question = strings.TrimSpace(rest)
			break
		}
	}

	for _, path := range m.Artifacts {
		full := path
		if a.workDir != "" {
			full = filepath.Join(a.workDir, path)
		}
		if _, err := os.Stat(full); err == nil {
			result.Artifacts = append(result.Artifacts, path)
		}
	}
	return result, nil
}

func buildMilestonePrompt(m models.Milestone, goal, guidance string, level models.ThinkingLevel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are executing one milestone of a larger goal.\n\n")
	fmt.Fprintf(&b, "Overall goal: %s\n\n", goal)
	fmt.Fprintf(&b, "Milestone: %s\n%s\n", m.Title, m.Description)
	if len(m.Artifacts) > 0 {
		fmt.Fprintf(&b, "\nExpected artifacts:\n")
		for _, a := range m.Artifacts {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}
	if len(m.VerificationSteps) > 0 {
		fmt.Fprintf(&b, "\nYour work will be verified with:\n")
		for _, v := range m.VerificationSteps {
			fmt.Fprintf(&b, "- %s\n", v)
		}
	}
	if guidance != "" {
		fmt.Fprintf(&b, "\nIMPORTANT - previous attempts repeated the same action without progress. %s\n", guidance)
	}
	fmt.Fprintf(&b, "\nReasoning effort: %s.\n", level)
	fmt.Fprintf(&b, "If you cannot proceed without a human decision, print a single line starting with %q followed by your question.\n", approvalMarker)
	return b.String()
}
