package knowledge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// dependencyNamespace scopes the name-based UUIDs minted by DependencyID.
var dependencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:lineage:dependency"))

// DependencyOptions carries the optional parts of an edge.
type DependencyOptions struct {
	Type     string // defaults to DefaultDependencyType
	Strength Strength
	Metadata map[string]any
}

// DependencyID derives the identity of the edge source --typ--> target.
// The same triple always yields the same id.
func DependencyID(source ArtifactRef, typ string, target ArtifactRef) string {
	name, _ := json.Marshal([]string{source.Type, source.ID, typ, target.Type, target.ID})
	return uuid.NewSHA1(dependencyNamespace, name).String()
}

// RegisterDependency records that source relies on target. The edge is
// upserted under its derived id, then into the source's outgoing and the
// target's incoming adjacency lists. The writes are not atomic, but each is
// idempotent: registering the same edge again refreshes strength and
// metadata, keeps the original CreatedAt and never duplicates adjacency
// entries.
func (e *Engine) RegisterDependency(ctx context.Context, source, target ArtifactRef, opts DependencyOptions) (_ *Dependency, err error) {
	defer e.observe("register_dependency", time.Now(), &err)

	if err := validateRef("sourceRef", source); err != nil {
		return nil, err
	}
	if err := validateRef("targetRef", target); err != nil {
		return nil, err
	}
	typ := opts.Type
	if typ == "" {
		typ = DefaultDependencyType
	}
	strength := opts.Strength
	if strength == "" {
		strength = StrengthMedium
	}
	if !strength.Valid() {
		return nil, &ValidationError{Field: "strength", Reason: "must be weak, medium or strong, got " + string(strength)}
	}

	id := DependencyID(source, typ, target)
	now := e.now().UTC()

	var existing Dependency
	found, err := e.load(ctx, categoryDependencies, id, &existing)
	if err != nil {
		return nil, err
	}
	createdAt := now
	if found {
		createdAt = existing.CreatedAt
	}

	dep, raw, err := normalize(&Dependency{
		DependencyID: id,
		Source:       source,
		Target:       target,
		Type:         typ,
		Strength:     strength,
		Metadata:     opts.Metadata,
		CreatedAt:    createdAt,
	})
	if err != nil {
		return nil, &ValidationError{Field: "metadata", Reason: err.Error()}
	}
	if err := e.put(ctx, categoryDependencies, id, raw); err != nil {
		return nil, err
	}
	if err := e.upsertIndexEntry(ctx, source, adjacencyOutgoing, id, now); err != nil {
		return nil, err
	}
	if err := e.upsertIndexEntry(ctx, target, adjacencyIncoming, id, now); err != nil {
		return nil, err
	}

	e.logger.Debug("dependency registered",
		"source", source.String(), "target", target.String(), "type", typ, "strength", strength, "existing", found)
	return dep, nil
}

// upsertIndexEntry adds id to the adjacency list of ref unless it is
// already there.
func (e *Engine) upsertIndexEntry(ctx context.Context, ref ArtifactRef, dir adjacency, id string, at time.Time) error {
	key := dependencyIndexKey(ref, dir)
	var idx dependencyIndex
	found, err := e.load(ctx, categoryDependencyIndex, key, &idx)
	if err != nil {
		return err
	}
	if !found {
		idx = dependencyIndex{ArtifactRef: ref, Direction: dir}
	}
	for _, entry := range idx.Entries {
		if entry.DependencyID == id {
			return nil
		}
	}
	idx.Entries = append(idx.Entries, dependencyIndexEntry{DependencyID: id, AddedAt: at})
	return e.save(ctx, categoryDependencyIndex, key, &idx)
}

// GetOutgoing returns the edges whose source is ref, in registration order.
func (e *Engine) GetOutgoing(ctx context.Context, ref ArtifactRef) (_ []Dependency, err error) {
	defer e.observe("get_outgoing", time.Now(), &err)

	if err := validateRef("artifactRef", ref); err != nil {
		return nil, err
	}
	return e.edges(ctx, ref, adjacencyOutgoing)
}

// GetIncoming returns the edges whose target is ref, in registration order.
func (e *Engine) GetIncoming(ctx context.Context, ref ArtifactRef) (_ []Dependency, err error) {
	defer e.observe("get_incoming", time.Now(), &err)

	if err := validateRef("artifactRef", ref); err != nil {
		return nil, err
	}
	return e.edges(ctx, ref, adjacencyIncoming)
}

// edges resolves one adjacency list. An artifact with no list has no edges,
// and entries whose record is gone are skipped.
func (e *Engine) edges(ctx context.Context, ref ArtifactRef, dir adjacency) ([]Dependency, error) {
	var idx dependencyIndex
	if _, err := e.load(ctx, categoryDependencyIndex, dependencyIndexKey(ref, dir), &idx); err != nil {
		return nil, err
	}
	out := make([]Dependency, 0, len(idx.Entries))
	for _, entry := range idx.Entries {
		var dep Dependency
		found, err := e.load(ctx, categoryDependencies, entry.DependencyID, &dep)
		if err != nil {
			return nil, err
		}
		if !found {
			e.logger.Debug("dangling adjacency entry", "artifact", ref.String(), "direction", dir, "dependency", entry.DependencyID)
			continue
		}
		out = append(out, dep)
	}
	return out, nil
}
