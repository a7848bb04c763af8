package knowledge

import (
	"context"
	"time"
)

// ImpactOptions controls AnalyzeImpact. The zero value walks nothing:
// start from DefaultImpactOptions.
type ImpactOptions struct {
	// VersionID is echoed into the report to pin which version was analyzed.
	VersionID string

	// Depth is the number of hops to walk. Zero or negative yields empty
	// trees.
	Depth int

	// Direction defaults to DirectionBoth when empty.
	Direction Direction

	// Dedupe drops repeated (artifact, type, strength) entries from the
	// flat lists, keeping the first one reached. The trees are unaffected.
	Dedupe bool

	// SkipVisited stops the walk from expanding an artifact more than once
	// per direction. A revisited artifact still appears as a leaf. Without
	// it a cycle is bounded only by Depth.
	SkipVisited bool
}

// DefaultImpactOptions returns a one-hop walk in both directions.
func DefaultImpactOptions() ImpactOptions {
	return ImpactOptions{Depth: 1, Direction: DirectionBoth}
}

// ImpactEntry is one edge reached by the walk, seen from the far side.
type ImpactEntry struct {
	ArtifactRef    ArtifactRef `json:"artifactRef"`
	DependencyType string      `json:"dependencyType"`
	Strength       Strength    `json:"strength"`
}

// ImpactNode is an ImpactEntry plus the nodes reached through it.
type ImpactNode struct {
	ImpactEntry
	Dependencies []ImpactNode `json:"dependencies"`
}

// ImpactSubject names the artifact an ImpactReport is about.
type ImpactSubject struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
}

// Ref returns the subject as an ArtifactRef.
func (s ImpactSubject) Ref() ArtifactRef { return ArtifactRef{Type: s.Type, ID: s.ID} }

// ImpactReport is the result of AnalyzeImpact. Upstream follows incoming
// edges (artifacts that rely on the subject, flattened into AffectedBy);
// Downstream follows outgoing edges (flattened into Affects). The flat
// lists hold entries from every level in depth-first order.
type ImpactReport struct {
	Artifact   ImpactSubject `json:"artifact"`
	Upstream   []ImpactNode  `json:"upstream"`
	Downstream []ImpactNode  `json:"downstream"`
	AffectedBy []ImpactEntry `json:"affectedBy"`
	Affects    []ImpactEntry `json:"affects"`
}

// AnalyzeImpact walks the dependency graph around ref up to opts.Depth
// hops. The walk checks ctx between hops.
func (e *Engine) AnalyzeImpact(ctx context.Context, ref ArtifactRef, opts ImpactOptions) (_ *ImpactReport, err error) {
	defer e.observe("analyze_impact", time.Now(), &err)

	if err := validateRef("artifactRef", ref); err != nil {
		return nil, err
	}
	dir := opts.Direction
	if dir == "" {
		dir = DirectionBoth
	}
	switch dir {
	case DirectionUpstream, DirectionDownstream, DirectionBoth:
	default:
		return nil, &ValidationError{Field: "direction", Reason: "must be upstream, downstream or both, got " + string(dir)}
	}

	report := &ImpactReport{
		Artifact:   ImpactSubject{Type: ref.Type, ID: ref.ID, Version: opts.VersionID},
		Upstream:   []ImpactNode{},
		Downstream: []ImpactNode{},
		AffectedBy: []ImpactEntry{},
		Affects:    []ImpactEntry{},
	}
	nodes := 0

	if dir == DirectionUpstream || dir == DirectionBoth {
		w := newWalker(ref, adjacencyIncoming, opts.SkipVisited)
		if report.Upstream, err = e.walk(ctx, w, ref, opts.Depth); err != nil {
			return nil, err
		}
		report.AffectedBy = w.flat
		nodes += w.nodes
	}
	if dir == DirectionDownstream || dir == DirectionBoth {
		w := newWalker(ref, adjacencyOutgoing, opts.SkipVisited)
		if report.Downstream, err = e.walk(ctx, w, ref, opts.Depth); err != nil {
			return nil, err
		}
		report.Affects = w.flat
		nodes += w.nodes
	}

	if opts.Dedupe {
		report.AffectedBy = dedupeEntries(report.AffectedBy)
		report.Affects = dedupeEntries(report.Affects)
	}
	e.metrics.ObserveImpact(nodes)
	return report, nil
}

// walker carries the state of one direction of an impact walk.
type walker struct {
	dir     adjacency
	flat    []ImpactEntry
	visited map[ArtifactRef]bool // nil unless SkipVisited
	nodes   int
}

func newWalker(root ArtifactRef, dir adjacency, skipVisited bool) *walker {
	w := &walker{dir: dir, flat: []ImpactEntry{}}
	if skipVisited {
		w.visited = map[ArtifactRef]bool{root: true}
	}
	return w
}

func (e *Engine) walk(ctx context.Context, w *walker, ref ArtifactRef, depth int) ([]ImpactNode, error) {
	out := []ImpactNode{}
	if depth <= 0 {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deps, err := e.edges(ctx, ref, w.dir)
	if err != nil {
		return nil, err
	}
	for _, dep := range deps {
		next := dep.Target
		if w.dir == adjacencyIncoming {
			next = dep.Source
		}
		entry := ImpactEntry{ArtifactRef: next, DependencyType: dep.Type, Strength: dep.Strength}
		w.flat = append(w.flat, entry)
		w.nodes++
		node := ImpactNode{ImpactEntry: entry, Dependencies: []ImpactNode{}}

		if depth > 1 && !w.visited[next] {
			if w.visited != nil {
				w.visited[next] = true
			}
			if node.Dependencies, err = e.walk(ctx, w, next, depth-1); err != nil {
				return nil, err
			}
		}
		out = append(out, node)
	}
	return out, nil
}

func dedupeEntries(in []ImpactEntry) []ImpactEntry {
	seen := make(map[ImpactEntry]bool, len(in))
	out := make([]ImpactEntry, 0, len(in))
	for _, entry := range in {
		if seen[entry] {
			continue
		}
		seen[entry] = true
		out = append(out, entry)
	}
	return out
}
