package mcptools

import "github.com/dusk-indust/lineage/internal/knowledge"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.
// Timestamps travel as RFC 3339 strings.

// CreateVersionInput is the input for the create_version MCP tool.
type CreateVersionInput struct {
	ArtifactType    string         `json:"artifactType" jsonschema:"artifact type, e.g. decision, pattern, doc"`
	ArtifactID      string         `json:"artifactId" jsonschema:"artifact identifier within its type"`
	Content         any            `json:"content" jsonschema:"version payload: an object, a string or any JSON value"`
	Metadata        map[string]any `json:"metadata,omitempty" jsonschema:"free-form metadata; createdAt is stamped by the server"`
	ParentVersionID string         `json:"parentVersionId,omitempty" jsonschema:"existing version this one supersedes"`
	Tags            []string       `json:"tags,omitempty" jsonschema:"tags; duplicates are collapsed"`
}

// CreateVersionOutput is the result of the create_version MCP tool.
type CreateVersionOutput struct {
	Version *knowledge.Version `json:"version"`
}

// GetVersionInput is the input for the get_version MCP tool.
type GetVersionInput struct {
	ArtifactType string `json:"artifactType" jsonschema:"artifact type"`
	ArtifactID   string `json:"artifactId" jsonschema:"artifact identifier"`
	VersionID    string `json:"versionId,omitempty" jsonschema:"exact version to fetch; wins over timestamp"`
	Timestamp    string `json:"timestamp,omitempty" jsonschema:"RFC 3339 instant; returns the version current at that time"`
}

// GetVersionOutput is the result of the get_version MCP tool.
type GetVersionOutput struct {
	Version *knowledge.Version `json:"version"`
}

// ListVersionsInput is the input for the list_versions MCP tool.
type ListVersionsInput struct {
	ArtifactType string   `json:"artifactType" jsonschema:"artifact type"`
	ArtifactID   string   `json:"artifactId" jsonschema:"artifact identifier"`
	Limit        int      `json:"limit,omitempty" jsonschema:"maximum number of versions (default: 10)"`
	Start        string   `json:"start,omitempty" jsonschema:"inclusive RFC 3339 lower bound on creation time"`
	End          string   `json:"end,omitempty" jsonschema:"inclusive RFC 3339 upper bound on creation time"`
	Tags         []string `json:"tags,omitempty" jsonschema:"keep versions carrying at least one of these tags"`
}

// ListVersionsOutput is the result of the list_versions MCP tool.
type ListVersionsOutput struct {
	Versions []*knowledge.Version `json:"versions"`
	Total    int                  `json:"total"`
}

// ListArtifactsInput is the input for the list_artifacts MCP tool.
type ListArtifactsInput struct {
	ArtifactType string `json:"artifactType,omitempty" jsonschema:"only list artifacts of this type"`
}

// ListArtifactsOutput is the result of the list_artifacts MCP tool.
type ListArtifactsOutput struct {
	Artifacts []knowledge.ArtifactSummary `json:"artifacts"`
	Total     int                         `json:"total"`
}

// RegisterDependencyInput is the input for the register_dependency MCP tool.
type RegisterDependencyInput struct {
	SourceType     string         `json:"sourceType" jsonschema:"type of the artifact that relies on the target"`
	SourceID       string         `json:"sourceId" jsonschema:"id of the source artifact"`
	TargetType     string         `json:"targetType" jsonschema:"type of the artifact being relied on"`
	TargetID       string         `json:"targetId" jsonschema:"id of the target artifact"`
	DependencyType string         `json:"dependencyType,omitempty" jsonschema:"edge type, e.g. implements (default: references)"`
	Strength       string         `json:"strength,omitempty" jsonschema:"weak, medium or strong (default: medium)"`
	Metadata       map[string]any `json:"metadata,omitempty" jsonschema:"free-form edge metadata"`
}

// RegisterDependencyOutput is the result of the register_dependency MCP tool.
type RegisterDependencyOutput struct {
	Dependency *knowledge.Dependency `json:"dependency"`
}

// GetDependenciesInput is the input for the get_dependencies MCP tool.
type GetDependenciesInput struct {
	ArtifactType string `json:"artifactType" jsonschema:"artifact type"`
	ArtifactID   string `json:"artifactId" jsonschema:"artifact identifier"`
	Direction    string `json:"direction,omitempty" jsonschema:"outgoing (what it relies on), incoming (what relies on it) or both. Default: both"`
}

// GetDependenciesOutput is the result of the get_dependencies MCP tool.
type GetDependenciesOutput struct {
	Outgoing []knowledge.Dependency `json:"outgoing"`
	Incoming []knowledge.Dependency `json:"incoming"`
}

// AnalyzeImpactInput is the input for the analyze_impact MCP tool.
type AnalyzeImpactInput struct {
	ArtifactType string `json:"artifactType" jsonschema:"artifact type"`
	ArtifactID   string `json:"artifactId" jsonschema:"artifact identifier"`
	VersionID    string `json:"versionId,omitempty" jsonschema:"version the analysis is about; echoed in the report"`
	Depth        *int   `json:"depth,omitempty" jsonschema:"hops to traverse (default from server config, normally 1)"`
	Direction    string `json:"direction,omitempty" jsonschema:"upstream, downstream or both. Default: both"`
	Dedupe       *bool  `json:"dedupe,omitempty" jsonschema:"drop repeated entries from the flat affectedBy/affects lists"`
	SkipVisited  *bool  `json:"skipVisited,omitempty" jsonschema:"expand each artifact at most once per direction"`
	Diagram      bool   `json:"diagram,omitempty" jsonschema:"also render the report as a Mermaid flowchart"`
}

// AnalyzeImpactOutput is the result of the analyze_impact MCP tool.
type AnalyzeImpactOutput struct {
	Report  *knowledge.ImpactReport `json:"report"`
	Mermaid string                  `json:"mermaid,omitempty"`
}

// CompareVersionsInput is the input for the compare_versions MCP tool.
// Each side is selected by version id, by timestamp, or defaults to the
// latest version.
type CompareVersionsInput struct {
	ArtifactType    string `json:"artifactType" jsonschema:"artifact type"`
	ArtifactID      string `json:"artifactId" jsonschema:"artifact identifier"`
	BaseVersionID   string `json:"baseVersionId,omitempty" jsonschema:"base version id"`
	BaseTimestamp   string `json:"baseTimestamp,omitempty" jsonschema:"RFC 3339 instant selecting the base version"`
	TargetVersionID string `json:"targetVersionId,omitempty" jsonschema:"target version id"`
	TargetTimestamp string `json:"targetTimestamp,omitempty" jsonschema:"RFC 3339 instant selecting the target version"`
}

// CompareVersionsOutput is the result of the compare_versions MCP tool.
type CompareVersionsOutput struct {
	Comparison *knowledge.Comparison `json:"comparison"`
}

// UpdateLifecycleStateInput is the input for the update_lifecycle_state MCP tool.
type UpdateLifecycleStateInput struct {
	ArtifactType string         `json:"artifactType" jsonschema:"artifact type"`
	ArtifactID   string         `json:"artifactId" jsonschema:"artifact identifier"`
	State        string         `json:"state" jsonschema:"new state: active, deprecated, archived or any custom name"`
	Reason       string         `json:"reason,omitempty" jsonschema:"why the state changed"`
	VersionID    string         `json:"versionId,omitempty" jsonschema:"also move this version to the new state"`
	Metadata     map[string]any `json:"metadata,omitempty" jsonschema:"free-form metadata recorded with the change"`
}

// UpdateLifecycleStateOutput is the result of the update_lifecycle_state MCP tool.
type UpdateLifecycleStateOutput struct {
	Change *knowledge.StateChange `json:"change"`
}

// GetStateHistoryInput is the input for the get_state_history MCP tool.
type GetStateHistoryInput struct {
	ArtifactType string `json:"artifactType" jsonschema:"artifact type"`
	ArtifactID   string `json:"artifactId" jsonschema:"artifact identifier"`
	VersionID    string `json:"versionId,omitempty" jsonschema:"only transitions that named this version"`
}

// GetStateHistoryOutput is the result of the get_state_history MCP tool.
type GetStateHistoryOutput struct {
	Changes []knowledge.StateChange `json:"changes"`
	Total   int                     `json:"total"`
}
