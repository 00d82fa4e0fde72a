package planner

import "fmt"

// buildPlanPrompt asks the model to decompose the goal into milestones
// and emit a single JSON object the parser understands.
func buildPlanPrompt(goal, contextInfo string) string {
	prompt := fmt.Sprintf(`You are planning a long-running autonomous work session.

Decompose the following goal into ordered, independently verifiable milestones.
Each milestone must be completable in one sitting and verifiable by shell commands.

Goal: %s
`, goal)

	if contextInfo != "" {
		prompt += fmt.Sprintf("\nContext:\n%s\n", contextInfo)
	}

	prompt += `
Respond with a single JSON object of this exact shape:

{
  "milestones": [
    {
      "id": "m1",
      "title": "short name",
      "description": "detailed instructions for independent execution",
      "dependencies": [],
      "estimated_minutes": 30,
      "artifacts": ["paths/this/milestone/produces"],
      "verification_steps": ["shell commands that must exit 0"],
      "max_retries": 3
    }
  ],
  "estimated_total_minutes": 120,
  "critical_path": ["m1"],
  "parallelizable": [["m2", "m3"]],
  "risk_assessment": "one paragraph"
}

Rules:
- dependencies reference milestone ids only, and must form a DAG
- every milestone needs at least one verification step
- order milestones so that dependencies come first`

	return prompt
}
