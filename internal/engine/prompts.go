package engine

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/praxisworks/conductor/pkg/models"
)

const plannerSystemPrompt = `You are a software delivery planner. Read the specification and produce an implementation plan as JSON with this shape:
{"summary": "...", "milestones": ["..."], "tasks": [{"id": "t1", "milestone": "...", "title": "...", "description": "...", "acceptance_criteria": ["..."], "files_to_create": ["..."], "files_to_modify": ["..."], "depends_on": ["..."]}]}
Task IDs must be unique. depends_on must reference earlier task IDs and contain no cycles. Declare every file a task will touch. If the specification is too ambiguous to plan, respond with {"needs_clarification": true, "question": "...", "options": ["..."]} instead.`

const implementerSystemPrompt = `You are implementing one task of an approved plan inside an isolated working copy. Only touch the files the task declares. Satisfy every acceptance criterion. Leave the working copy in a committable state.`

const reviewerPlanSystemPrompt = `You are an independent plan reviewer. Assess the plan for completeness, correct dependency ordering, and right-sized tasks. Respond with JSON: {"overall_assessment": "approve"|"needs_changes"|"reject", "score": 0-10, "concerns": [{"severity": "high"|"medium"|"low", "description": "...", "suggestion": "..."}], "summary": "..."}. Use high severity only for problems that make the plan unsafe to execute.`

const reviewerCodeSystemPrompt = `You are an independent code reviewer verifying a completed implementation against its plan. Respond with JSON: {"overall_assessment": "approve"|"needs_changes"|"reject", "score": 0-10, "concerns": [{"severity": "high"|"medium"|"low", "description": "...", "suggestion": "..."}], "summary": "..."}. Use high severity only for defects that must block delivery.`

// plannerPrompt wraps the spec text for the planner.
func plannerPrompt(spec string) string {
	return fmt.Sprintf("Produce an implementation plan for the following specification.\n\n---\n%s", spec)
}

// implementerPrompt renders one task as the implementer's instruction.
func implementerPrompt(t *models.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Implement this task.\n\nTitle: %s\n", t.Title)
	if t.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", t.Description)
	}
	if len(t.AcceptanceCriteria) > 0 {
		sb.WriteString("Acceptance criteria:\n")
		for _, c := range t.AcceptanceCriteria {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}
	if files := t.Files(); len(files) > 0 {
		fmt.Fprintf(&sb, "Declared files: %s\n", strings.Join(files, ", "))
	}
	if t.Error != "" {
		fmt.Fprintf(&sb, "\nA previous attempt failed with: %s\nFix the cause this time.\n", t.Error)
	}
	return sb.String()
}

// planReviewPrompt renders the active task set as YAML for the plan
// reviewers.
func planReviewPrompt(tasks []*models.Task) (string, error) {
	doc, err := renderTasks(tasks)
	if err != nil {
		return "", err
	}
	return "Review this implementation plan.\n\n" + doc, nil
}

// codeReviewPrompt renders the completed task set for the code
// reviewers.
func codeReviewPrompt(tasks []*models.Task) (string, error) {
	doc, err := renderTasks(tasks)
	if err != nil {
		return "", err
	}
	return "Verify the implementation of these completed tasks against their acceptance criteria.\n\n" + doc, nil
}

// renderTasks marshals the active tasks to YAML, the document format
// used for plan review.
func renderTasks(tasks []*models.Task) (string, error) {
	active := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Active() {
			active = append(active, t)
		}
	}
	out, err := yaml.Marshal(active)
	if err != nil {
		return "", fmt.Errorf("render tasks: %w", err)
	}
	return string(out), nil
}
