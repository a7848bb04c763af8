package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/lineage/internal/knowledge"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMermaid Format = "mermaid"
)

// ParseFormat accepts json, yaml (or yml) and mermaid, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "mermaid":
		return FormatMermaid, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, yaml or mermaid)", s)
}

// ArtifactExport is a self-contained snapshot of one artifact: its index,
// its stored versions, its edges and its lifecycle history.
type ArtifactExport struct {
	Artifact     knowledge.ArtifactRef    `json:"artifact"`
	ExportedAt   string                   `json:"exportedAt"`
	Index        *knowledge.ArtifactIndex `json:"index"`
	Versions     []*knowledge.Version     `json:"versions"`
	Outgoing     []knowledge.Dependency   `json:"outgoing"`
	Incoming     []knowledge.Dependency   `json:"incoming"`
	StateHistory []knowledge.StateChange  `json:"stateHistory"`
}

// ExportArtifact collects everything the engine knows about ref. Versions
// are listed newest first; limit caps how many (zero or less means all).
func ExportArtifact(ctx context.Context, engine *knowledge.Engine, ref knowledge.ArtifactRef, limit int) (*ArtifactExport, error) {
	idx, err := engine.GetArtifact(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	if limit <= 0 {
		limit = len(idx.Versions)
	}

	out := &ArtifactExport{
		Artifact:   ref,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Index:      idx,
	}
	if out.Versions, err = engine.ListVersions(ctx, ref, knowledge.ListOptions{Limit: limit}); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	if out.Outgoing, err = engine.GetOutgoing(ctx, ref); err != nil {
		return nil, fmt.Errorf("outgoing dependencies: %w", err)
	}
	if out.Incoming, err = engine.GetIncoming(ctx, ref); err != nil {
		return nil, fmt.Errorf("incoming dependencies: %w", err)
	}
	if out.StateHistory, err = engine.GetStateHistory(ctx, ref, knowledge.HistoryOptions{}); err != nil {
		return nil, fmt.Errorf("state history: %w", err)
	}
	return out, nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML writes v as block-style YAML. v goes through its JSON form
// first, so field names and omissions follow the json tags.
func WriteYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	clearStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// clearStyle drops the flow and quoting styles a JSON document decodes
// with. The encoder re-quotes strings that would otherwise change type.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

// WriteReport renders an impact report in the given format.
func WriteReport(w io.Writer, report *knowledge.ImpactReport, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatYAML:
		return WriteYAML(w, report)
	case FormatMermaid:
		_, err := io.WriteString(w, GenerateImpactMermaid(report))
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}
