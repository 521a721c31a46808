package taskgraph

import (
	"testing"

	"github.com/praxisworks/conductor/pkg/models"
)

func TestScoreFileScope(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  float64
	}{
		{"no files", nil, 0},
		{"one file", []string{"a.go"}, 1},
		{"three files", []string{"a.go", "b.go", "c.go"}, 3},
		{"five files", []string{"a", "b", "c", "d", "e"}, 4},
		{"many files", []string{"a", "b", "c", "d", "e", "f", "g"}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreFileScope(tt.files); got != tt.want {
				t.Errorf("scoreFileScope() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreCoupling(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  float64
	}{
		{"single dir", []string{"internal/a.go", "internal/b.go"}, 0},
		{"two dirs", []string{"internal/a.go", "cmd/main.go"}, 1},
		{"three dirs", []string{"internal/a.go", "cmd/main.go", "pkg/x.go"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreCoupling(tt.files); got != tt.want {
				t.Errorf("scoreCoupling() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreSemanticCapped(t *testing.T) {
	text := "refactor the parser to use a concurrent cache with crypto and migrations"
	if got := scoreSemantic(text); got != 3 {
		t.Errorf("expected semantic score capped at 3, got %v", got)
	}
}

func TestScoreAmbiguity(t *testing.T) {
	if got := scoreAmbiguity("add login handler", []string{"handler returns 200"}); got != 0 {
		t.Errorf("precise task scored ambiguous: %v", got)
	}
	if got := scoreAmbiguity("improve error handling etc", nil); got != 2 {
		t.Errorf("vague task without criteria should score 2, got %v", got)
	}
}

func TestScoreLevels(t *testing.T) {
	tests := []struct {
		total float64
		want  ComplexityLevel
	}{
		{0, LevelLow},
		{4, LevelLow},
		{5, LevelMedium},
		{7, LevelMedium},
		{8, LevelHigh},
		{10, LevelHigh},
		{11, LevelCritical},
		{13, LevelCritical},
	}

	for _, tt := range tests {
		score := ComplexityScore{Total: tt.total}
		if got := score.Level(); got != tt.want {
			t.Errorf("Level(%v) = %v, want %v", tt.total, got, tt.want)
		}
	}
}

func TestScoreDominantDeterministic(t *testing.T) {
	score := ComplexityScore{
		Total: 4,
		Components: map[ComplexityComponent]float64{
			ComponentFileScope: 2,
			ComponentCoupling:  2,
			ComponentSemantic:  0,
		},
	}
	// Ties resolve by fixed precedence: file scope wins.
	for i := 0; i < 10; i++ {
		if got := score.Dominant(); got != ComponentFileScope {
			t.Fatalf("Dominant() = %v, want %v", got, ComponentFileScope)
		}
	}
}

func TestScoreComposite(t *testing.T) {
	task := &models.Task{
		ID:    "t1",
		Title: "Wire storage layer",
		Description: "Create the storage layer with schema migrations and a " +
			"transaction wrapper for atomic commits",
		AcceptanceCriteria: []string{"migrations apply", "rollback works"},
		FilesToCreate: []string{
			"internal/storage/db.go",
			"internal/storage/migrate.go",
			"cmd/main.go",
		},
	}

	score := Score(task)
	// 3 files -> 3, two dirs -> 1, keywords (migrat/transaction/atomic) -> 3,
	// precise criteria -> 0, small -> 0.
	if score.Total != 7 {
		t.Errorf("expected total 7, got %v (%v)", score.Total, score.Components)
	}
	if score.Level() != LevelMedium {
		t.Errorf("expected medium level, got %v", score.Level())
	}
}
