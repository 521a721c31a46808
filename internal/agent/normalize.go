package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/praxisworks/conductor/internal/escalate"
	"github.com/praxisworks/conductor/pkg/models"
)

// ExtractJSON pulls the first JSON object or array out of agent
// output. Models wrap payloads in markdown fences or prose; the
// decoder wants neither.
func ExtractJSON(output string) ([]byte, error) {
	s := strings.TrimSpace(output)

	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil, fmt.Errorf("no JSON payload in agent output")
	}
	opener := s[start]
	closer := byte('}')
	if opener == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return nil, fmt.Errorf("unterminated JSON payload in agent output")
	}
	return []byte(s[start : end+1]), nil
}

// clarification is the envelope an agent emits when it cannot proceed
// without a human answer.
type clarification struct {
	NeedsClarification bool     `json:"needs_clarification"`
	Question           string   `json:"question"`
	Options            []string `json:"options"`
}

// Decode extracts and unmarshals the JSON payload of a result into v.
// If the agent instead asked for clarification, an AmbiguityError is
// returned so the failure classifies correctly.
func Decode(res *Result, v any) error {
	raw, err := ExtractJSON(res.Output)
	if err != nil {
		return fmt.Errorf("%s output: %w", res.Role, err)
	}

	var ask clarification
	if err := json.Unmarshal(raw, &ask); err == nil && ask.NeedsClarification {
		return &escalate.AmbiguityError{Question: ask.Question, Options: ask.Options}
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s output: %w", res.Role, err)
	}
	return nil
}

// DecodePlan decodes a planner result into a plan document. Planner
// output may be YAML-embedded JSON or plain JSON; both decode here.
func DecodePlan(res *Result) (*models.Plan, error) {
	var plan models.Plan
	if err := Decode(res, &plan); err != nil {
		return nil, err
	}
	if len(plan.Tasks) == 0 {
		return nil, escalate.Structural(fmt.Errorf("planner produced no tasks"))
	}
	return &plan, nil
}

// DecodeVerdict decodes a reviewer result into a verdict, stamping the
// reviewer identity from the role.
func DecodeVerdict(res *Result) (*models.ReviewVerdict, error) {
	var verdict models.ReviewVerdict
	if err := Decode(res, &verdict); err != nil {
		return nil, err
	}
	if !verdict.OverallAssessment.Valid() {
		return nil, escalate.Structural(fmt.Errorf(
			"reviewer returned unknown assessment %q", verdict.OverallAssessment))
	}
	switch res.Role {
	case RoleReviewerA:
		verdict.Reviewer = "a"
	case RoleReviewerB:
		verdict.Reviewer = "b"
	}
	return &verdict, nil
}
