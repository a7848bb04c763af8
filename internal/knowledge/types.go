package knowledge

import (
	"fmt"
	"strings"
	"time"
)

// --- Enums ---

// LifecycleState is the status of an artifact or of one of its versions.
// The well-known states are listed below; any other non-empty value is a
// caller-defined state created with CustomState.
type LifecycleState string

const (
	StateActive     LifecycleState = "active"
	StateDeprecated LifecycleState = "deprecated"
	StateArchived   LifecycleState = "archived"

	// StateUnknown is reported as the "from" side of a transition when the
	// artifact never had a state recorded.
	StateUnknown LifecycleState = "unknown"
)

// CustomState returns a caller-defined lifecycle state.
func CustomState(name string) LifecycleState {
	return LifecycleState(name)
}

// IsWellKnown reports whether s is one of the built-in states.
func (s LifecycleState) IsWellKnown() bool {
	switch s {
	case StateActive, StateDeprecated, StateArchived:
		return true
	}
	return false
}

// Strength grades how tightly a dependency binds its source to its target.
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// Valid reports whether s is one of the three strengths.
func (s Strength) Valid() bool {
	switch s {
	case StrengthWeak, StrengthMedium, StrengthStrong:
		return true
	}
	return false
}

// Direction selects which side of the dependency graph impact analysis walks.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // incoming edges, reported as affectedBy
	DirectionDownstream Direction = "downstream" // outgoing edges, reported as affects
	DirectionBoth       Direction = "both"
)

// adjacency names one of the two per-artifact dependency indexes.
type adjacency string

const (
	adjacencyIncoming adjacency = "incoming"
	adjacencyOutgoing adjacency = "outgoing"
)

// DefaultDependencyType is used when RegisterDependency gets no type.
const DefaultDependencyType = "references"

// --- Models ---

// ArtifactRef identifies a logical knowledge object independent of version.
type ArtifactRef struct {
	Type string `json:"type" validate:"required"`
	ID   string `json:"id" validate:"required"`
}

// String renders the reference as "type:id".
func (r ArtifactRef) String() string {
	return r.Type + ":" + r.ID
}

// ParseArtifactRef parses "type:id". The id may itself contain colons.
func ParseArtifactRef(s string) (ArtifactRef, error) {
	typ, id, ok := strings.Cut(s, ":")
	if !ok || typ == "" || id == "" {
		return ArtifactRef{}, &ValidationError{Field: "artifactRef", Reason: fmt.Sprintf("%q is not of the form type:id", s)}
	}
	return ArtifactRef{Type: typ, ID: id}, nil
}

// Version is one immutable snapshot of an artifact.
type Version struct {
	VersionID       string         `json:"versionId"`
	ArtifactRef     ArtifactRef    `json:"artifactRef"`
	Content         any            `json:"content"`
	Metadata        map[string]any `json:"metadata"`
	ParentVersionID string         `json:"parentVersionId,omitempty"`
	Tags            []string       `json:"tags"`
	LifecycleState  LifecycleState `json:"lifecycleState"`
}

// CreatedAt returns the creation instant stamped into the metadata, or the
// zero time if it is missing or malformed.
func (v *Version) CreatedAt() time.Time {
	s, _ := v.Metadata[MetadataCreatedAt].(string)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Metadata keys maintained by the engine.
const (
	MetadataCreatedAt = "createdAt"
	MetadataUpdatedAt = "updatedAt"
)

// VersionEntry is one row of an artifact's time-ordered version list.
type VersionEntry struct {
	VersionID string    `json:"versionId"`
	Timestamp time.Time `json:"timestamp"`
}

// ArtifactIndex tracks every version of one artifact plus its lifecycle.
type ArtifactIndex struct {
	ArtifactRef     ArtifactRef    `json:"artifactRef"`
	Versions        []VersionEntry `json:"versions"`
	LatestVersionID string         `json:"latestVersionId"`
	LifecycleState  LifecycleState `json:"lifecycleState"`
	StateHistory    []StateChange  `json:"stateHistory"`
}

// ArtifactSummary is the listing view of an ArtifactIndex.
type ArtifactSummary struct {
	ArtifactRef     ArtifactRef    `json:"artifactRef"`
	LatestVersionID string         `json:"latestVersionId"`
	VersionCount    int            `json:"versionCount"`
	LifecycleState  LifecycleState `json:"lifecycleState"`
}

// Dependency is a directed, typed edge: Source relies on Target.
type Dependency struct {
	DependencyID string         `json:"dependencyId"`
	Source       ArtifactRef    `json:"sourceRef"`
	Target       ArtifactRef    `json:"targetRef"`
	Type         string         `json:"dependencyType"`
	Strength     Strength       `json:"strength"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// dependencyIndexEntry is one row of an adjacency list.
type dependencyIndexEntry struct {
	DependencyID string    `json:"dependencyId"`
	AddedAt      time.Time `json:"addedAt"`
}

// dependencyIndex is the incoming or outgoing adjacency list of an artifact.
type dependencyIndex struct {
	ArtifactRef ArtifactRef            `json:"artifactRef"`
	Direction   adjacency              `json:"direction"`
	Entries     []dependencyIndexEntry `json:"entries"`
}

// StateChange is one append-only lifecycle transition.
type StateChange struct {
	ChangeID    string         `json:"changeId"`
	ArtifactRef ArtifactRef    `json:"artifactRef"`
	From        LifecycleState `json:"from"`
	To          LifecycleState `json:"to"`
	Timestamp   time.Time      `json:"timestamp"`
	Reason      string         `json:"reason,omitempty"`
	VersionID   string         `json:"versionId,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
