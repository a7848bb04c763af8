package knowledge

import (
	"context"
	"encoding/json"
	"maps"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultListLimit caps ListVersions when ListOptions.Limit is unset.
const DefaultListLimit = 10

// listConcurrency bounds parallel record fetches in ListVersions.
const listConcurrency = 8

// CreateOptions carries the optional parts of a new version.
type CreateOptions struct {
	Metadata        map[string]any
	ParentVersionID string
	Tags            []string
}

// Selector picks one version of an artifact. VersionID takes precedence
// over Timestamp; with neither set the latest version is selected.
type Selector struct {
	VersionID string     `json:"versionId,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// At selects the version that was current at t.
func At(t time.Time) Selector { return Selector{Timestamp: &t} }

// ByID selects a version by identifier.
func ByID(versionID string) Selector { return Selector{VersionID: versionID} }

// Latest selects the most recently created version.
func Latest() Selector { return Selector{} }

// ListOptions filters ListVersions. Start and End are inclusive.
type ListOptions struct {
	Limit int
	Start *time.Time
	End   *time.Time
	Tags  []string
}

// CreateVersion stores a new immutable version of ref and makes it the
// artifact's latest. The returned Version has content and metadata in
// their stored form, so it compares equal to a later GetVersion.
func (e *Engine) CreateVersion(ctx context.Context, ref ArtifactRef, content any, opts CreateOptions) (_ *Version, err error) {
	defer e.observe("create_version", time.Now(), &err)

	if err := validateRef("artifactRef", ref); err != nil {
		return nil, err
	}

	now := e.now().UTC()
	metadata := make(map[string]any, len(opts.Metadata)+1)
	maps.Copy(metadata, opts.Metadata)
	metadata[MetadataCreatedAt] = now.Format(time.RFC3339Nano)

	v, raw, err := normalize(&Version{
		VersionID:       e.newID(),
		ArtifactRef:     ref,
		Content:         content,
		Metadata:        metadata,
		ParentVersionID: opts.ParentVersionID,
		Tags:            uniqueStrings(opts.Tags),
		LifecycleState:  StateActive,
	})
	if err != nil {
		return nil, &ValidationError{Field: "content", Reason: err.Error()}
	}

	if v.ParentVersionID != "" {
		var parent Version
		found, err := e.load(ctx, categoryVersions, versionKey(ref, v.ParentVersionID), &parent)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, &ValidationError{Field: "parentVersionId", Reason: "no version " + v.ParentVersionID + " for " + ref.String()}
		}
	}

	if err := e.put(ctx, categoryVersions, versionKey(ref, v.VersionID), raw); err != nil {
		return nil, err
	}

	idx, _, err := e.loadIndex(ctx, ref)
	if err != nil {
		return nil, err
	}
	idx.Versions = append(idx.Versions, VersionEntry{VersionID: v.VersionID, Timestamp: now})
	idx.LatestVersionID = v.VersionID
	if err := e.save(ctx, categoryVersionIndex, refKey(ref), idx); err != nil {
		return nil, err
	}

	e.logger.Debug("version created", "artifact", ref.String(), "version", v.VersionID, "parent", v.ParentVersionID)
	return v, nil
}

// GetVersion resolves one version of ref:
//   - by VersionID: direct lookup;
//   - by Timestamp: the version with the latest creation time at or before
//     the timestamp, later-appended versions winning ties;
//   - otherwise: the latest version.
//
// A missing artifact or version yields a NotFoundError.
func (e *Engine) GetVersion(ctx context.Context, ref ArtifactRef, sel Selector) (_ *Version, err error) {
	defer e.observe("get_version", time.Now(), &err)

	if err := validateRef("artifactRef", ref); err != nil {
		return nil, err
	}
	return e.resolve(ctx, ref, sel)
}

func (e *Engine) resolve(ctx context.Context, ref ArtifactRef, sel Selector) (*Version, error) {
	versionID := sel.VersionID
	if versionID == "" {
		idx, found, err := e.loadIndex(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !found || len(idx.Versions) == 0 {
			return nil, &NotFoundError{Kind: "artifact", Key: ref.String()}
		}
		if sel.Timestamp != nil {
			entry, ok := entryAt(idx.Versions, *sel.Timestamp)
			if !ok {
				return nil, &NotFoundError{Kind: "version", Key: ref.String() + "@" + sel.Timestamp.UTC().Format(time.RFC3339Nano)}
			}
			versionID = entry.VersionID
		} else {
			versionID = idx.LatestVersionID
		}
	}

	v, found, err := e.loadVersion(ctx, ref, versionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &NotFoundError{Kind: "version", Key: ref.String() + "/" + versionID}
	}
	return v, nil
}

// entryAt returns the entry current at t: the maximum timestamp not after
// t, with the later-appended entry winning ties.
func entryAt(entries []VersionEntry, t time.Time) (VersionEntry, bool) {
	var best VersionEntry
	found := false
	for _, entry := range entries {
		if entry.Timestamp.After(t) {
			continue
		}
		if !found || !entry.Timestamp.Before(best.Timestamp) {
			best = entry
			found = true
		}
	}
	return best, found
}

// ListVersions returns versions of ref newest first. The time window is
// applied to the index, the result is cut to the limit, and only then are
// records resolved and filtered by tag: a version passes when it carries at
// least one of opts.Tags. Nothing matching is an empty slice, not an error.
func (e *Engine) ListVersions(ctx context.Context, ref ArtifactRef, opts ListOptions) (_ []*Version, err error) {
	defer e.observe("list_versions", time.Now(), &err)

	if err := validateRef("artifactRef", ref); err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	idx, _, err := e.loadIndex(ctx, ref)
	if err != nil {
		return nil, err
	}

	type positioned struct {
		VersionEntry
		pos int
	}
	var window []positioned
	for i, entry := range idx.Versions {
		if opts.Start != nil && entry.Timestamp.Before(*opts.Start) {
			continue
		}
		if opts.End != nil && entry.Timestamp.After(*opts.End) {
			continue
		}
		window = append(window, positioned{VersionEntry: entry, pos: i})
	}
	sort.Slice(window, func(i, j int) bool {
		if !window[i].Timestamp.Equal(window[j].Timestamp) {
			return window[i].Timestamp.After(window[j].Timestamp)
		}
		return window[i].pos > window[j].pos
	})
	if len(window) > limit {
		window = window[:limit]
	}

	resolved := make([]*Version, len(window))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, entry := range window {
		g.Go(func() error {
			v, found, err := e.loadVersion(gctx, ref, entry.VersionID)
			if err != nil {
				return err
			}
			if !found {
				e.logger.Warn("indexed version missing from storage", "artifact", ref.String(), "version", entry.VersionID)
				return nil
			}
			resolved[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(opts.Tags))
	for _, tag := range opts.Tags {
		wanted[tag] = true
	}
	out := make([]*Version, 0, len(resolved))
	for _, v := range resolved {
		if v == nil {
			continue
		}
		if len(wanted) > 0 && !hasAnyTag(v.Tags, wanted) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// GetArtifact returns the index of ref, including its state history.
func (e *Engine) GetArtifact(ctx context.Context, ref ArtifactRef) (_ *ArtifactIndex, err error) {
	defer e.observe("get_artifact", time.Now(), &err)

	if err := validateRef("artifactRef", ref); err != nil {
		return nil, err
	}
	idx, found, err := e.loadIndex(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &NotFoundError{Kind: "artifact", Key: ref.String()}
	}
	return idx, nil
}

// ListArtifacts summarizes every artifact with at least one version,
// ordered by type then id.
func (e *Engine) ListArtifacts(ctx context.Context) (_ []ArtifactSummary, err error) {
	defer e.observe("list_artifacts", time.Now(), &err)

	out := []ArtifactSummary{}
	err = e.scan(ctx, categoryVersionIndex, func(_ string, raw []byte) error {
		var idx ArtifactIndex
		if err := json.Unmarshal(raw, &idx); err != nil {
			return err
		}
		out = append(out, ArtifactSummary{
			ArtifactRef:     idx.ArtifactRef,
			LatestVersionID: idx.LatestVersionID,
			VersionCount:    len(idx.Versions),
			LifecycleState:  idx.LifecycleState,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ArtifactRef, out[j].ArtifactRef
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.ID < b.ID
	})
	return out, nil
}

// loadIndex returns the index of ref, or a fresh active index and false if
// none has been written yet.
func (e *Engine) loadIndex(ctx context.Context, ref ArtifactRef) (*ArtifactIndex, bool, error) {
	var idx ArtifactIndex
	found, err := e.load(ctx, categoryVersionIndex, refKey(ref), &idx)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return &ArtifactIndex{
			ArtifactRef:    ref,
			Versions:       []VersionEntry{},
			LifecycleState: StateActive,
			StateHistory:   []StateChange{},
		}, false, nil
	}
	return &idx, true, nil
}

func (e *Engine) loadVersion(ctx context.Context, ref ArtifactRef, versionID string) (*Version, bool, error) {
	var v Version
	found, err := e.load(ctx, categoryVersions, versionKey(ref, versionID), &v)
	if err != nil || !found {
		return nil, found, err
	}
	return &v, true, nil
}

func hasAnyTag(tags []string, wanted map[string]bool) bool {
	for _, t := range tags {
		if wanted[t] {
			return true
		}
	}
	return false
}

// uniqueStrings drops duplicates, keeping first occurrences, and never
// returns nil.
func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
