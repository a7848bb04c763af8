package export

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/lineage/internal/knowledge"
	"github.com/dusk-indust/lineage/internal/storage"
)

// chainReport builds decision:1 -> pattern:2 -> code:3 and analyzes pattern:2.
func chainReport(t *testing.T) (*knowledge.Engine, *knowledge.ImpactReport) {
	t.Helper()
	ctx := context.Background()
	e := knowledge.New(storage.NewMemStore())

	decision := knowledge.ArtifactRef{Type: "decision", ID: "1"}
	pattern := knowledge.ArtifactRef{Type: "pattern", ID: "2"}
	code := knowledge.ArtifactRef{Type: "code", ID: "3"}
	_, err := e.RegisterDependency(ctx, decision, pattern, knowledge.DependencyOptions{Type: "implements", Strength: knowledge.StrengthStrong})
	require.NoError(t, err)
	_, err = e.RegisterDependency(ctx, pattern, code, knowledge.DependencyOptions{Type: "uses", Strength: knowledge.StrengthWeak})
	require.NoError(t, err)

	report, err := e.AnalyzeImpact(ctx, pattern, knowledge.DefaultImpactOptions())
	require.NoError(t, err)
	return e, report
}

func TestGenerateImpactMermaid(t *testing.T) {
	_, report := chainReport(t)

	got := GenerateImpactMermaid(report)
	lines := strings.Split(strings.TrimSpace(got), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "graph TD", lines[0])

	// Root is N0; upstream decision:1 is N1; downstream code:3 is N2.
	assert.Contains(t, got, `subgraph T0["code"]`)
	assert.Contains(t, got, `N2["code:3"]`)
	assert.Contains(t, got, `N1["decision:1"]`)
	assert.Contains(t, got, `N0["pattern:2"]`)
	assert.Contains(t, got, "  N1 ==>|implements| N0\n", "strong upstream edge points at the root")
	assert.Contains(t, got, "  N0 -.->|uses| N2\n", "weak downstream edge leaves the root")
	assert.Contains(t, got, "style N0 stroke-width:3px")
}

func TestGenerateImpactMermaid_CollapsesRepeatedEdges(t *testing.T) {
	a := knowledge.ArtifactRef{Type: "x", ID: "a"}
	leaf := knowledge.ImpactNode{ImpactEntry: knowledge.ImpactEntry{ArtifactRef: a, DependencyType: "uses", Strength: knowledge.StrengthMedium}}
	report := &knowledge.ImpactReport{
		Artifact:   knowledge.ImpactSubject{Type: "x", ID: "root"},
		Downstream: []knowledge.ImpactNode{leaf, leaf},
	}

	got := GenerateImpactMermaid(report)
	assert.Equal(t, 1, strings.Count(got, "N0 -->|uses| N1"))
}

func TestEscapeLabel(t *testing.T) {
	assert.Equal(t, "say #quot;hi#quot; #124; bye", escapeLabel("say \"hi\" | bye"))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yml": FormatYAML, "mermaid": FormatMermaid} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("dot")
	assert.Error(t, err)
}

func TestWriteReport(t *testing.T) {
	_, report := chainReport(t)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, report, FormatJSON))
		var back knowledge.ImpactReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, *report, back)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, report, FormatYAML))
		out := buf.String()
		assert.NotContains(t, out, "{", "block style only")
		assert.Contains(t, out, "affectedBy:")
		assert.Contains(t, out, "dependencyType: implements")

		var back map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
		artifact := back["artifact"].(map[string]any)
		assert.Equal(t, "pattern", artifact["type"])
		assert.Equal(t, "2", artifact["id"], "numeric-looking strings stay strings")
	})

	t.Run("mermaid", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, report, FormatMermaid))
		assert.True(t, strings.HasPrefix(buf.String(), "graph TD\n"))
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, WriteReport(&bytes.Buffer{}, report, "dot"))
	})
}

func TestExportArtifact(t *testing.T) {
	ctx := context.Background()
	e, _ := chainReport(t)
	pattern := knowledge.ArtifactRef{Type: "pattern", ID: "2"}

	_, err := ExportArtifact(ctx, e, pattern, 0)
	assert.ErrorIs(t, err, knowledge.ErrNotFound, "edges alone do not make an artifact")

	for i := range 3 {
		_, err := e.CreateVersion(ctx, pattern, map[string]any{"rev": i}, knowledge.CreateOptions{})
		require.NoError(t, err)
	}
	_, err = e.UpdateLifecycleState(ctx, pattern, knowledge.StateDeprecated, knowledge.LifecycleOptions{Reason: "replaced"})
	require.NoError(t, err)

	exp, err := ExportArtifact(ctx, e, pattern, 0)
	require.NoError(t, err)
	assert.Equal(t, pattern, exp.Artifact)
	assert.Len(t, exp.Versions, 3)
	assert.Len(t, exp.Outgoing, 1)
	assert.Len(t, exp.Incoming, 1)
	require.Len(t, exp.StateHistory, 1)
	assert.Equal(t, knowledge.StateDeprecated, exp.Index.LifecycleState)

	limited, err := ExportArtifact(ctx, e, pattern, 2)
	require.NoError(t, err)
	assert.Len(t, limited.Versions, 2)
}
