package taskgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/praxisworks/conductor/pkg/models"
)

// DefaultSplitThreshold is the complexity score at or above which a
// task is automatically decomposed.
const DefaultSplitThreshold = 5.0

// layerRank orders architectural layers for coupling splits. Lower
// layers must land before the layers that build on them.
var layerRank = map[string]int{
	"migrations": 0,
	"db":         1,
	"storage":    1,
	"internal":   2,
	"pkg":        2,
	"api":        3,
	"service":    3,
	"web":        4,
	"ui":         4,
	"cmd":        5,
}

// rankOf returns the layer rank for a top-level directory. Unknown
// directories sort between library code and entrypoints.
func rankOf(dir string) int {
	if r, ok := layerRank[dir]; ok {
		return r
	}
	return 3
}

// Split decomposes an oversized task into child tasks using the
// strategy selected by the dominant complexity component:
//
//   - file scope dominates: group declared files by top-level directory
//   - coupling dominates: split by architectural layer, chaining each
//     layer onto the one below it
//   - semantic difficulty dominates: split by acceptance-criterion groups
//
// Children inherit the parent's inbound dependency edges; the layer
// strategy adds ordering edges between consecutive layers. The parent
// is marked superseded, never deleted. The combined declared file sets
// of the children always equal the parent's.
func Split(parent *models.Task, score ComplexityScore) ([]*models.Task, error) {
	if len(parent.Files()) == 0 && len(parent.AcceptanceCriteria) == 0 {
		return nil, fmt.Errorf("task %s: nothing to split on", parent.ID)
	}

	var children []*models.Task
	switch score.Dominant() {
	case ComponentCoupling:
		children = splitByLayer(parent)
	case ComponentSemantic, ComponentAmbiguity, ComponentContextBudget:
		children = splitByCriteria(parent)
	default:
		children = splitByDirectory(parent)
	}

	// A strategy that cannot produce at least two children falls back to
	// criteria grouping, then to directory grouping.
	if len(children) < 2 {
		children = splitByCriteria(parent)
	}
	if len(children) < 2 {
		children = splitByDirectory(parent)
	}
	if len(children) < 2 {
		return nil, fmt.Errorf("task %s: no split strategy produced multiple children", parent.ID)
	}

	for _, child := range children {
		child.ComplexityScore = Score(child).Total
	}

	parent.Superseded = true
	parent.SupersededBy = make([]string, 0, len(children))
	for _, child := range children {
		parent.SupersededBy = append(parent.SupersededBy, child.ID)
	}
	return children, nil
}

// splitByDirectory groups the parent's declared files by top-level
// directory, one child per group.
func splitByDirectory(parent *models.Task) []*models.Task {
	createGroups := groupByDir(parent.FilesToCreate)
	modifyGroups := groupByDir(parent.FilesToModify)

	dirs := make(map[string]bool)
	for d := range createGroups {
		dirs[d] = true
	}
	for d := range modifyGroups {
		dirs[d] = true
	}
	ordered := sortedKeys(dirs)
	if len(ordered) < 2 {
		return nil
	}

	children := make([]*models.Task, 0, len(ordered))
	for i, dir := range ordered {
		child := childOf(parent, i+1)
		child.Title = fmt.Sprintf("%s (%s)", parent.Title, dir)
		child.FilesToCreate = createGroups[dir]
		child.FilesToModify = modifyGroups[dir]
		children = append(children, child)
	}
	return children
}

// splitByLayer groups files by architectural layer and chains each
// child onto the previous layer's child.
func splitByLayer(parent *models.Task) []*models.Task {
	createGroups := groupByDir(parent.FilesToCreate)
	modifyGroups := groupByDir(parent.FilesToModify)

	dirs := make(map[string]bool)
	for d := range createGroups {
		dirs[d] = true
	}
	for d := range modifyGroups {
		dirs[d] = true
	}
	ordered := sortedKeys(dirs)
	if len(ordered) < 2 {
		return nil
	}

	// Stable order: by layer rank, then name.
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := rankOf(ordered[i]), rankOf(ordered[j])
		if ri != rj {
			return ri < rj
		}
		return ordered[i] < ordered[j]
	})

	children := make([]*models.Task, 0, len(ordered))
	for i, dir := range ordered {
		child := childOf(parent, i+1)
		child.Title = fmt.Sprintf("%s (layer %s)", parent.Title, dir)
		child.FilesToCreate = createGroups[dir]
		child.FilesToModify = modifyGroups[dir]
		if i > 0 {
			// Layer N+1 waits for layer N.
			child.DependsOn = append(child.DependsOn, children[i-1].ID)
		}
		children = append(children, child)
	}
	return children
}

// splitByCriteria chunks acceptance criteria into contiguous groups.
// Declared files stay with the first child so the combined file sets
// still equal the parent's.
func splitByCriteria(parent *models.Task) []*models.Task {
	criteria := parent.AcceptanceCriteria
	if len(criteria) < 2 {
		return nil
	}

	groups := chunkCriteria(criteria)
	children := make([]*models.Task, 0, len(groups))
	for i, group := range groups {
		child := childOf(parent, i+1)
		child.Title = fmt.Sprintf("%s (part %d)", parent.Title, i+1)
		child.AcceptanceCriteria = group
		if i == 0 {
			child.FilesToCreate = append([]string(nil), parent.FilesToCreate...)
		} else {
			// Later parts revise what earlier parts produced.
			child.FilesToModify = append([]string(nil), parent.FilesToCreate...)
			child.DependsOn = append(child.DependsOn, children[i-1].ID)
		}
		child.FilesToModify = append(child.FilesToModify, parent.FilesToModify...)
		children = append(children, child)
	}
	return children
}

// chunkCriteria splits criteria into two or three contiguous groups.
func chunkCriteria(criteria []string) [][]string {
	n := len(criteria)
	parts := 2
	if n >= 6 {
		parts = 3
	}
	size := (n + parts - 1) / parts

	var groups [][]string
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		groups = append(groups, append([]string(nil), criteria[start:end]...))
	}
	return groups
}

// childOf creates a child task inheriting the parent's inbound edges,
// milestone, and description.
func childOf(parent *models.Task, ordinal int) *models.Task {
	return &models.Task{
		ID:                 fmt.Sprintf("%s.%d", parent.ID, ordinal),
		Milestone:          parent.Milestone,
		Description:        parent.Description,
		AcceptanceCriteria: append([]string(nil), parent.AcceptanceCriteria...),
		DependsOn:          append([]string(nil), parent.DependsOn...),
		Status:             models.TaskStatusPending,
		CreatedAt:          parent.CreatedAt,
	}
}

// groupByDir buckets file paths by their top-level directory.
func groupByDir(files []string) map[string][]string {
	groups := make(map[string][]string)
	for _, f := range files {
		dir := topLevelDir(f)
		groups[dir] = append(groups[dir], f)
	}
	return groups
}

// sortedKeys returns map keys in lexical order.
func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String formats the score breakdown for logs.
func (c ComplexityScore) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%.1f (%s)", c.Total, c.Level())
	return b.String()
}
