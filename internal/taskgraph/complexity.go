package taskgraph

import (
	"path"
	"strings"

	"github.com/praxisworks/conductor/pkg/models"
)

// ComplexityLevel buckets a composite score into an operational category.
type ComplexityLevel string

const (
	// LevelLow (0-4) is safe for autonomous execution.
	LevelLow ComplexityLevel = "low"
	// LevelMedium (5-7) should be monitored.
	LevelMedium ComplexityLevel = "medium"
	// LevelHigh (8-10) should preferably be split.
	LevelHigh ComplexityLevel = "high"
	// LevelCritical (11-13) must be split.
	LevelCritical ComplexityLevel = "critical"
)

// ComplexityComponent names one of the five weighted scoring components.
type ComplexityComponent string

const (
	// ComponentFileScope scores how many files the task touches (0-5).
	ComponentFileScope ComplexityComponent = "file_scope"
	// ComponentCoupling scores cross-directory and cross-layer reach (0-2).
	ComponentCoupling ComplexityComponent = "coupling"
	// ComponentSemantic scores algorithmic difficulty from keywords (0-3).
	ComponentSemantic ComplexityComponent = "semantic"
	// ComponentAmbiguity scores how underspecified the task is (0-2).
	ComponentAmbiguity ComplexityComponent = "ambiguity"
	// ComponentContextBudget penalizes tasks too large for one sitting (0-1).
	ComponentContextBudget ComplexityComponent = "context_budget"
)

// ComplexityScore is the composite score for one task, with its
// per-component breakdown.
type ComplexityScore struct {
	// Total is the 0-13 composite value.
	Total float64 `json:"total"`
	// Components maps each component name to its contribution.
	Components map[ComplexityComponent]float64 `json:"components"`
}

// Level returns the operational bucket for the total score.
func (c ComplexityScore) Level() ComplexityLevel {
	switch {
	case c.Total <= 4:
		return LevelLow
	case c.Total <= 7:
		return LevelMedium
	case c.Total <= 10:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// Dominant returns the component contributing the most to the total.
// Ties resolve in a fixed precedence order so scoring stays deterministic.
func (c ComplexityScore) Dominant() ComplexityComponent {
	precedence := []ComplexityComponent{
		ComponentFileScope, ComponentCoupling, ComponentSemantic,
		ComponentAmbiguity, ComponentContextBudget,
	}
	dominant := ComponentFileScope
	best := -1.0
	for _, comp := range precedence {
		if c.Components[comp] > best {
			best = c.Components[comp]
			dominant = comp
		}
	}
	return dominant
}

// semanticKeywords mark descriptions that imply algorithmic difficulty.
// Each hit adds one point, capped at 3.
var semanticKeywords = []string{
	"concurren", "race", "lock", "atomic", "transaction",
	"migrat", "refactor", "protocol", "parser", "grammar",
	"crypto", "algorithm", "recursi", "cache", "consisten",
	"distributed", "schema", "state machine",
}

// ambiguityMarkers flag vague requirement language.
var ambiguityMarkers = []string{
	"etc", "various", "some ", "improve", "clean up", "as needed",
	"appropriately", "properly", "tbd", "maybe", "and so on",
}

// contextBudgetCriteria is the criteria count beyond which a task is
// unlikely to fit a single agent context.
const contextBudgetCriteria = 5

// contextBudgetDescription is the description length (runes) beyond
// which the context penalty applies.
const contextBudgetDescription = 2000

// Score computes the composite complexity score for a task from its
// declared file sets, title and description text, and acceptance criteria.
func Score(task *models.Task) ComplexityScore {
	files := task.Files()
	text := task.Title + " " + task.Description
	criteria := task.AcceptanceCriteria

	components := map[ComplexityComponent]float64{
		ComponentFileScope:     scoreFileScope(files),
		ComponentCoupling:      scoreCoupling(files),
		ComponentSemantic:      scoreSemantic(text),
		ComponentAmbiguity:     scoreAmbiguity(text, criteria),
		ComponentContextBudget: scoreContextBudget(text, criteria),
	}

	total := 0.0
	for _, v := range components {
		total += v
	}
	return ComplexityScore{Total: total, Components: components}
}

// scoreFileScope maps touched-file count onto 0-5.
func scoreFileScope(files []string) float64 {
	n := len(files)
	switch {
	case n == 0:
		return 0
	case n <= 3:
		return float64(n)
	case n <= 5:
		return 4
	default:
		return 5
	}
}

// scoreCoupling maps the number of distinct top-level directories onto 0-2.
func scoreCoupling(files []string) float64 {
	dirs := make(map[string]bool)
	for _, f := range files {
		dirs[topLevelDir(f)] = true
	}
	switch {
	case len(dirs) <= 1:
		return 0
	case len(dirs) == 2:
		return 1
	default:
		return 2
	}
}

// scoreSemantic counts difficulty keywords, capped at 3.
func scoreSemantic(text string) float64 {
	lower := strings.ToLower(text)
	hits := 0.0
	for _, kw := range semanticKeywords {
		if strings.Contains(lower, kw) {
			hits++
			if hits == 3 {
				break
			}
		}
	}
	return hits
}

// scoreAmbiguity scores vague language and missing acceptance criteria, 0-2.
func scoreAmbiguity(text string, criteria []string) float64 {
	score := 0.0
	if len(criteria) == 0 {
		score++
	}
	lower := strings.ToLower(text)
	for _, marker := range ambiguityMarkers {
		if strings.Contains(lower, marker) {
			score++
			break
		}
	}
	return score
}

// scoreContextBudget applies the 0-1 penalty for oversized tasks.
func scoreContextBudget(text string, criteria []string) float64 {
	if len(criteria) > contextBudgetCriteria || len([]rune(text)) > contextBudgetDescription {
		return 1
	}
	return 0
}

// topLevelDir extracts the first path segment of a file path.
func topLevelDir(file string) string {
	clean := path.Clean(strings.TrimPrefix(file, "./"))
	if idx := strings.IndexByte(clean, '/'); idx > 0 {
		return clean[:idx]
	}
	return "."
}
