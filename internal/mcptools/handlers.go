package mcptools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/lineage/internal/export"
	"github.com/dusk-indust/lineage/internal/knowledge"
)

// Defaults fill in request fields a caller leaves unset.
type Defaults struct {
	ImpactDepth int
	Dedupe      bool
	SkipVisited bool
	ListLimit   int
}

// DefaultDefaults mirrors the engine's own fallbacks.
func DefaultDefaults() Defaults {
	return Defaults{ImpactDepth: 1, ListLimit: knowledge.DefaultListLimit}
}

// KnowledgeService holds the engine used by MCP tool handlers.
type KnowledgeService struct {
	engine   *knowledge.Engine
	defaults Defaults
	logger   *slog.Logger
}

// NewKnowledgeService creates a KnowledgeService over engine.
func NewKnowledgeService(engine *knowledge.Engine, defaults Defaults, logger *slog.Logger) *KnowledgeService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &KnowledgeService{engine: engine, defaults: defaults, logger: logger}
}

// CreateVersion stores a new version of an artifact.
func (s *KnowledgeService) CreateVersion(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CreateVersionInput,
) (*mcp.CallToolResult, CreateVersionOutput, error) {
	ref, err := parseRef(input.ArtifactType, input.ArtifactID)
	if err != nil {
		return nil, CreateVersionOutput{}, err
	}

	v, err := s.engine.CreateVersion(ctx, ref, input.Content, knowledge.CreateOptions{
		Metadata:        input.Metadata,
		ParentVersionID: input.ParentVersionID,
		Tags:            input.Tags,
	})
	if err != nil {
		return nil, CreateVersionOutput{}, fmt.Errorf("create version: %w", err)
	}
	s.logger.Info("version created", "artifact", ref.String(), "version", v.VersionID)
	return nil, CreateVersionOutput{Version: v}, nil
}

// GetVersion resolves one version by id, by timestamp, or the latest.
func (s *KnowledgeService) GetVersion(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetVersionInput,
) (*mcp.CallToolResult, GetVersionOutput, error) {
	ref, err := parseRef(input.ArtifactType, input.ArtifactID)
	if err != nil {
		return nil, GetVersionOutput{}, err
	}
	sel, err := parseSelector("", input.VersionID, input.Timestamp)
	if err != nil {
		return nil, GetVersionOutput{}, err
	}

	v, err := s.engine.GetVersion(ctx, ref, sel)
	if err != nil {
		return nil, GetVersionOutput{}, fmt.Errorf("get version: %w", err)
	}
	return nil, GetVersionOutput{Version: v}, nil
}

// ListVersions lists an artifact's versions newest first.
func (s *KnowledgeService) ListVersions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListVersionsInput,
) (*mcp.CallToolResult, ListVersionsOutput, error) {
	ref, err := parseRef(input.ArtifactType, input.ArtifactID)
	if err != nil {
		return nil, ListVersionsOutput{}, err
	}
	opts := knowledge.ListOptions{Limit: input.Limit, Tags: input.Tags}
	if opts.Limit <= 0 {
		opts.Limit = s.defaults.ListLimit
	}
	if opts.Start, err = parseTime("start", input.Start); err != nil {
		return nil, ListVersionsOutput{}, err
	}
	if opts.End, err = parseTime("end", input.End); err != nil {
		return nil, ListVersionsOutput{}, err
	}

	versions, err := s.engine.ListVersions(ctx, ref, opts)
	if err != nil {
		return nil, ListVersionsOutput{}, fmt.Errorf("list versions: %w", err)
	}
	return nil, ListVersionsOutput{Versions: versions, Total: len(versions)}, nil
}

// ListArtifacts lists every versioned artifact, optionally of one type.
func (s *KnowledgeService) ListArtifacts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListArtifactsInput,
) (*mcp.CallToolResult, ListArtifactsOutput, error) {
	artifacts, err := s.engine.ListArtifacts(ctx)
	if err != nil {
		return nil, ListArtifactsOutput{}, fmt.Errorf("list artifacts: %w", err)
	}

	// Filter by type if specified.
	if input.ArtifactType != "" {
		filtered := artifacts[:0]
		for _, a := range artifacts {
			if a.ArtifactRef.Type == input.ArtifactType {
				filtered = append(filtered, a)
			}
		}
		artifacts = filtered
	}

	return nil, ListArtifactsOutput{Artifacts: artifacts, Total: len(artifacts)}, nil
}

// RegisterDependency records that the source artifact relies on the target.
func (s *KnowledgeService) RegisterDependency(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RegisterDependencyInput,
) (*mcp.CallToolResult, RegisterDependencyOutput, error) {
	source, err := parseRef(input.SourceType, input.SourceID)
	if err != nil {
		return nil, RegisterDependencyOutput{}, fmt.Errorf("source: %w", err)
	}
	target, err := parseRef(input.TargetType, input.TargetID)
	if err != nil {
		return nil, RegisterDependencyOutput{}, fmt.Errorf("target: %w", err)
	}

	dep, err := s.engine.RegisterDependency(ctx, source, target, knowledge.DependencyOptions{
		Type:     input.DependencyType,
		Strength: knowledge.Strength(strings.ToLower(input.Strength)),
		Metadata: input.Metadata,
	})
	if err != nil {
		return nil, RegisterDependencyOutput{}, fmt.Errorf("register dependency: %w", err)
	}
	return nil, RegisterDependencyOutput{Dependency: dep}, nil
}

// GetDependencies returns the direct edges of an artifact.
func (s *KnowledgeService) GetDependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDependenciesInput,
) (*mcp.CallToolResult, GetDependenciesOutput, error) {
	ref, err := parseRef(input.ArtifactType, input.ArtifactID)
	if err != nil {
		return nil, GetDependenciesOutput{}, err
	}

	var wantOut, wantIn bool
	switch strings.ToLower(input.Direction) {
	case "", "both":
		wantOut, wantIn = true, true
	case "outgoing":
		wantOut = true
	case "incoming":
		wantIn = true
	default:
		return nil, GetDependenciesOutput{}, fmt.Errorf("direction must be outgoing, incoming or both, got %q", input.Direction)
	}

	out := GetDependenciesOutput{Outgoing: []knowledge.Dependency{}, Incoming: []knowledge.Dependency{}}
	if wantOut {
		if out.Outgoing, err = s.engine.GetOutgoing(ctx, ref); err != nil {
			return nil, GetDependenciesOutput{}, fmt.Errorf("get outgoing: %w", err)
		}
	}
	if wantIn {
		if out.Incoming, err = s.engine.GetIncoming(ctx, ref); err != nil {
			return nil, GetDependenciesOutput{}, fmt.Errorf("get incoming: %w", err)
		}
	}
	return nil, out, nil
}

// AnalyzeImpact walks the dependency graph around an artifact.
func (s *KnowledgeService) AnalyzeImpact(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeImpactInput,
) (*mcp.CallToolResult, AnalyzeImpactOutput, error) {
	ref, err := parseRef(input.ArtifactType, input.ArtifactID)
	if err != nil {
		return nil, AnalyzeImpactOutput{}, err
	}

	opts := knowledge.ImpactOptions{
		VersionID:   input.VersionID,
		Depth:       s.defaults.ImpactDepth,
		Direction:   knowledge.Direction(strings.ToLower(input.Direction)),
		Dedupe:      s.defaults.Dedupe,
		SkipVisited: s.defaults.SkipVisited,
	}
	if input.Depth != nil {
		opts.Depth = *input.Depth
	}
	if input.Dedupe != nil {
		opts.Dedupe = *input.Dedupe
	}
	if input.SkipVisited != nil {
		opts.SkipVisited = *input.SkipVisited
	}

	report, err := s.engine.AnalyzeImpact(ctx, ref, opts)
	if err != nil {
		return nil, AnalyzeImpactOutput{}, fmt.Errorf("analyze impact: %w", err)
	}

	out := AnalyzeImpactOutput{Report: report}
	if input.Diagram {
		out.Mermaid = export.GenerateImpactMermaid(report)
	}
	return nil, out, nil
}

// CompareVersions diffs two versions of an artifact.
func (s *KnowledgeService) CompareVersions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CompareVersionsInput,
) (*mcp.CallToolResult, CompareVersionsOutput, error) {
	ref, err := parseRef(input.ArtifactType, input.ArtifactID)
	if err != nil {
		return nil, CompareVersionsOutput{}, err
	}
	base, err := parseSelector("base", input.BaseVersionID, input.BaseTimestamp)
	if err != nil {
		return nil, CompareVersionsOutput{}, err
	}
	target, err := parseSelector("target", input.TargetVersionID, input.TargetTimestamp)
	if err != nil {
		return nil, CompareVersionsOutput{}, err
	}

	cmp, err := s.engine.CompareVersions(ctx, ref, base, target)
	if err != nil {
		return nil, CompareVersionsOutput{}, fmt.Errorf("compare versions: %w", err)
	}
	return nil, CompareVersionsOutput{Comparison: cmp}, nil
}

// UpdateLifecycleState moves an artifact, and optionally one version, to a
// new state.
func (s *KnowledgeService) UpdateLifecycleState(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateLifecycleStateInput,
) (*mcp.CallToolResult, UpdateLifecycleStateOutput, error) {
	ref, err := parseRef(input.ArtifactType, input.ArtifactID)
	if err != nil {
		return nil, UpdateLifecycleStateOutput{}, err
	}

	change, err := s.engine.UpdateLifecycleState(ctx, ref, knowledge.LifecycleState(input.State), knowledge.LifecycleOptions{
		Reason:    input.Reason,
		VersionID: input.VersionID,
		Metadata:  input.Metadata,
	})
	if err != nil {
		return nil, UpdateLifecycleStateOutput{}, fmt.Errorf("update lifecycle state: %w", err)
	}
	return nil, UpdateLifecycleStateOutput{Change: change}, nil
}

// GetStateHistory returns an artifact's lifecycle transitions, oldest first.
func (s *KnowledgeService) GetStateHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetStateHistoryInput,
) (*mcp.CallToolResult, GetStateHistoryOutput, error) {
	ref, err := parseRef(input.ArtifactType, input.ArtifactID)
	if err != nil {
		return nil, GetStateHistoryOutput{}, err
	}

	changes, err := s.engine.GetStateHistory(ctx, ref, knowledge.HistoryOptions{VersionID: input.VersionID})
	if err != nil {
		return nil, GetStateHistoryOutput{}, fmt.Errorf("get state history: %w", err)
	}
	return nil, GetStateHistoryOutput{Changes: changes, Total: len(changes)}, nil
}

func parseRef(typ, id string) (knowledge.ArtifactRef, error) {
	if typ == "" || id == "" {
		return knowledge.ArtifactRef{}, errors.New("artifactType and artifactId are required")
	}
	return knowledge.ArtifactRef{Type: typ, ID: id}, nil
}

// parseSelector builds a Selector from optional id and RFC 3339 timestamp
// fields. side prefixes error messages.
func parseSelector(side, versionID, timestamp string) (knowledge.Selector, error) {
	field := "timestamp"
	if side != "" {
		field = side + "Timestamp"
	}
	ts, err := parseTime(field, timestamp)
	if err != nil {
		return knowledge.Selector{}, err
	}
	return knowledge.Selector{VersionID: versionID, Timestamp: ts}, nil
}

func parseTime(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp: %w", field, err)
	}
	return &t, nil
}
