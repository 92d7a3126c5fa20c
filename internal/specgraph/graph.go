// Package specgraph holds the in-memory Spec Graph: the set of all loaded
// specs plus the derived indices and edges the rest of the engine queries.
// It never mutates a Spec; it only indexes what the Spec Store hands it.
package specgraph

import (
	"github.com/mark3labs/specflow/internal/specmodel"
)

// ParseError records a file that failed to parse, kept alongside the graph
// so the Integrity Validator can report it without aborting the load.
type ParseError struct {
	Path    string
	Message string
}

// Graph is the read-through index over all loaded specs: by id, by status,
// by tag, plus the dependency/blocking/related edge sets.
type Graph struct {
	all      []*specmodel.Spec
	byID     map[string]*specmodel.Spec
	byStatus map[specmodel.Status][]*specmodel.Spec
	byTag    map[string][]*specmodel.Spec

	errs []ParseError
}

// New builds a Graph from a flat slice of successfully parsed specs plus any
// parse errors collected alongside them.
func New(specs []*specmodel.Spec, errs []ParseError) *Graph {
	g := &Graph{
		all:      specs,
		byID:     make(map[string]*specmodel.Spec, len(specs)),
		byStatus: make(map[specmodel.Status][]*specmodel.Spec),
		byTag:    make(map[string][]*specmodel.Spec),
		errs:     errs,
	}
	for _, s := range specs {
		g.byID[s.ID] = s
		g.byStatus[s.Status] = append(g.byStatus[s.Status], s)
		for _, tag := range s.TagList() {
			g.byTag[tag] = append(g.byTag[tag], s)
		}
	}
	return g
}

// Errors returns the parse errors collected while building this graph.
func (g *Graph) Errors() []ParseError { return g.errs }

// Spec looks up a spec by id.
func (g *Graph) Spec(id string) (*specmodel.Spec, bool) {
	s, ok := g.byID[id]
	return s, ok
}

// PathForSpec returns the filesystem path a spec id was loaded from,
// implementing workflow.SpecPathResolver.
func (g *Graph) PathForSpec(id string) (string, bool) {
	s, ok := g.byID[id]
	if !ok {
		return "", false
	}
	return s.Path, true
}

// All returns every spec in the graph, in no particular order.
func (g *Graph) All() []*specmodel.Spec {
	out := make([]*specmodel.Spec, len(g.all))
	copy(out, g.all)
	return out
}

// ByStatus returns every spec with the given status.
func (g *Graph) ByStatus(status specmodel.Status) []*specmodel.Spec {
	return g.byStatus[status]
}

// ByTag returns every spec carrying the given tag.
func (g *Graph) ByTag(tag string) []*specmodel.Spec {
	return g.byTag[tag]
}

// Task resolves a task id against a spec, either within specID or, if
// taskID carries a "SPEC-nnn:TASK-nnn"-shaped cross-spec prefix, against the
// referenced spec. Plain task ids are resolved within specID only.
func (g *Graph) Task(specID, taskID string) (*specmodel.Task, bool) {
	owner, task := splitCrossSpecRef(taskID)
	if owner == "" {
		owner = specID
	}
	spec, ok := g.byID[owner]
	if !ok {
		return nil, false
	}
	return spec.TaskByID(task)
}

// splitCrossSpecRef splits a depends_on entry of the shape "SPEC-001:TASK-002"
// into (spec, task); entries with no spec prefix return ("", taskID).
func splitCrossSpecRef(ref string) (spec, task string) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == ':' {
			return ref[:i], ref[i+1:]
		}
	}
	return "", ref
}

// DependencyChain returns the transitive set of spec ids that id depends on,
// in breadth-first discovery order, deduplicated.
func (g *Graph) DependencyChain(id string) []string {
	seen := map[string]bool{id: true}
	var chain []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		spec, ok := g.byID[cur]
		if !ok {
			continue
		}
		for _, dep := range spec.Dependencies {
			if !seen[dep] {
				seen[dep] = true
				chain = append(chain, dep)
				queue = append(queue, dep)
			}
		}
	}
	return chain
}

// HasCycle reports whether the dependency edges form a cycle reachable from
// any spec, and if so returns one offending cycle as a slice of spec ids.
func (g *Graph) HasCycle() (bool, []string) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.byID))
	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		path = append(path, id)
		if spec, ok := g.byID[id]; ok {
			for _, dep := range spec.Dependencies {
				switch color[dep] {
				case white:
					if cyc := visit(dep); cyc != nil {
						return cyc
					}
				case gray:
					// found the back-edge; slice path from dep's first occurrence
					for i, p := range path {
						if p == dep {
							return append(append([]string{}, path[i:]...), dep)
						}
					}
					return []string{dep}
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for id := range g.byID {
		if color[id] == white {
			if cyc := visit(id); cyc != nil {
				return true, cyc
			}
		}
	}
	return false, nil
}

// TaskDependenciesSatisfied reports whether every entry in t.DependsOn
// resolves to a task (within specID unless cross-spec prefixed) with
// status complete. An unresolved reference counts as unsatisfied.
func (g *Graph) TaskDependenciesSatisfied(specID string, t *specmodel.Task) bool {
	for _, dep := range t.DependsOn {
		task, ok := g.Task(specID, dep)
		if !ok || task.Status != specmodel.TaskComplete {
			return false
		}
	}
	return true
}
