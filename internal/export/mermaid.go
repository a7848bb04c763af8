package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/lineage/internal/knowledge"
)

// GenerateImpactMermaid produces a Mermaid graph TD diagram from an impact
// report. Artifacts are grouped by type; every arrow points from the
// artifact that relies to the artifact relied on, labelled with the
// dependency type. Strong edges are thick, weak edges dotted.
func GenerateImpactMermaid(report *knowledge.ImpactReport) string {
	root := report.Artifact.Ref()

	// Build artifact → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[knowledge.ArtifactRef]string)
	var order []knowledge.ArtifactRef
	getID := func(ref knowledge.ArtifactRef) string {
		if id, ok := nodeIDs[ref]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", len(nodeIDs))
		nodeIDs[ref] = id
		order = append(order, ref)
		return id
	}
	getID(root)

	type edge struct {
		from, to knowledge.ArtifactRef
		typ      string
		strength knowledge.Strength
	}
	var edges []edge
	seen := make(map[edge]bool)
	addEdge := func(e edge) {
		if seen[e] {
			return
		}
		seen[e] = true
		edges = append(edges, e)
	}

	// Upstream children rely on their parent; downstream parents rely on
	// their children.
	var walk func(parent knowledge.ArtifactRef, nodes []knowledge.ImpactNode, upstream bool)
	walk = func(parent knowledge.ArtifactRef, nodes []knowledge.ImpactNode, upstream bool) {
		for _, n := range nodes {
			getID(n.ArtifactRef)
			e := edge{from: parent, to: n.ArtifactRef, typ: n.DependencyType, strength: n.Strength}
			if upstream {
				e.from, e.to = n.ArtifactRef, parent
			}
			addEdge(e)
			walk(n.ArtifactRef, n.Dependencies, upstream)
		}
	}
	walk(root, report.Upstream, true)
	walk(root, report.Downstream, false)

	// Group artifacts by type.
	byType := make(map[string][]knowledge.ArtifactRef)
	for _, ref := range order {
		byType[ref.Type] = append(byType[ref.Type], ref)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, t := range types {
		members := byType[t]
		sort.Slice(members, func(a, b int) bool { return members[a].ID < members[b].ID })

		sb.WriteString(fmt.Sprintf("  subgraph T%d[\"%.40s\"]\n", i, escapeLabel(t)))
		for _, ref := range members {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", nodeIDs[ref], escapeLabel(ref.String())))
		}
		sb.WriteString("  end\n")
	}

	for _, e := range edges {
		sb.WriteString(fmt.Sprintf("  %s %s|%s| %s\n", nodeIDs[e.from], arrow(e.strength), escapeLabel(e.typ), nodeIDs[e.to]))
	}

	sb.WriteString(fmt.Sprintf("  style %s stroke-width:3px\n", nodeIDs[root]))
	return sb.String()
}

func arrow(s knowledge.Strength) string {
	switch s {
	case knowledge.StrengthStrong:
		return "==>"
	case knowledge.StrengthWeak:
		return "-.->"
	default:
		return "-->"
	}
}

// escapeLabel makes s safe inside a quoted Mermaid label.
func escapeLabel(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "|", "#124;", "\n", " ").Replace(s)
}
