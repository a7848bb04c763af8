package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"
)

// ContentKind says which diff was applied to two contents.
type ContentKind string

const (
	ContentObject ContentKind = "object" // both contents are JSON objects
	ContentText   ContentKind = "text"   // both contents are strings
	ContentOpaque ContentKind = "opaque" // anything else, including mixed kinds
)

// KeyChanges lists keys added in the target, removed from the base, and
// present in both with different values. Every list is sorted.
type KeyChanges struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
}

// Empty reports whether nothing changed.
func (k KeyChanges) Empty() bool {
	return len(k.Added) == 0 && len(k.Removed) == 0 && len(k.Changed) == 0
}

// TagChanges holds the two set differences between tag sets.
type TagChanges struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// TextChanges is the line-oriented comparison of two string contents.
type TextChanges struct {
	LinesAdded           int     `json:"linesAdded"`
	LinesRemoved         int     `json:"linesRemoved"`
	SimilarityPercentage float64 `json:"similarityPercentage"`
	LengthChange         int     `json:"lengthChange"`
	UnifiedDiff          string  `json:"unifiedDiff,omitempty"`
}

// ContentChanges holds exactly one of Fields (object contents) or Text
// (string contents). For opaque contents only ContentChanged is meaningful.
type ContentChanges struct {
	Kind           ContentKind  `json:"kind"`
	Fields         *KeyChanges  `json:"fields,omitempty"`
	Text           *TextChanges `json:"text,omitempty"`
	ContentChanged bool         `json:"contentChanged"`
}

// Comparison is the structural difference between two versions of one
// artifact.
type Comparison struct {
	ArtifactRef           ArtifactRef    `json:"artifactRef"`
	BaseVersionID         string         `json:"baseVersionId"`
	TargetVersionID       string         `json:"targetVersionId"`
	MetadataChanges       KeyChanges     `json:"metadataChanges"`
	TagsChanges           TagChanges     `json:"tagsChanges"`
	LifecycleStateChanged bool           `json:"lifecycleStateChanged"`
	ContentChanges        ContentChanges `json:"contentChanges"`
}

// CompareVersions resolves base and target (concurrently) and diffs them.
// Either side failing to resolve is a NotFoundError.
func (e *Engine) CompareVersions(ctx context.Context, ref ArtifactRef, base, target Selector) (_ *Comparison, err error) {
	defer e.observe("compare_versions", time.Now(), &err)

	if err := validateRef("artifactRef", ref); err != nil {
		return nil, err
	}

	var a, b *Version
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = e.resolve(gctx, ref, base)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = e.resolve(gctx, ref, target)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Comparison{
		ArtifactRef:           ref,
		BaseVersionID:         a.VersionID,
		TargetVersionID:       b.VersionID,
		MetadataChanges:       diffKeys(a.Metadata, b.Metadata),
		TagsChanges:           diffTags(a.Tags, b.Tags),
		LifecycleStateChanged: a.LifecycleState != b.LifecycleState,
		ContentChanges:        diffContent(a, b),
	}, nil
}

func diffKeys(base, target map[string]any) KeyChanges {
	out := KeyChanges{Added: []string{}, Removed: []string{}, Changed: []string{}}
	for k, bv := range base {
		tv, ok := target[k]
		if !ok {
			out.Removed = append(out.Removed, k)
			continue
		}
		if !jsonEqual(bv, tv) {
			out.Changed = append(out.Changed, k)
		}
	}
	for k := range target {
		if _, ok := base[k]; !ok {
			out.Added = append(out.Added, k)
		}
	}
	sort.Strings(out.Added)
	sort.Strings(out.Removed)
	sort.Strings(out.Changed)
	return out
}

func diffTags(base, target []string) TagChanges {
	return TagChanges{Added: minus(target, base), Removed: minus(base, target)}
}

// minus returns the sorted distinct elements of a that are not in b.
func minus(a, b []string) []string {
	drop := make(map[string]bool, len(b))
	for _, s := range b {
		drop[s] = true
	}
	out := []string{}
	for _, s := range a {
		if !drop[s] {
			drop[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func diffContent(base, target *Version) ContentChanges {
	switch a := base.Content.(type) {
	case map[string]any:
		if b, ok := target.Content.(map[string]any); ok {
			fields := diffKeys(a, b)
			return ContentChanges{Kind: ContentObject, Fields: &fields, ContentChanged: !fields.Empty()}
		}
	case string:
		if b, ok := target.Content.(string); ok {
			text := diffText(a, b, base.VersionID, target.VersionID)
			return ContentChanges{Kind: ContentText, Text: text, ContentChanged: a != b}
		}
	}
	return ContentChanges{Kind: ContentOpaque, ContentChanged: !jsonEqual(base.Content, target.Content)}
}

// diffText counts changed lines from the matching blocks of a line diff.
// Similarity is 1 - (added+removed) / (2 * longer line count), as a
// percentage floored at zero.
func diffText(base, target, baseID, targetID string) *TextChanges {
	a := strings.Split(base, "\n")
	b := strings.Split(target, "\n")

	var added, removed int
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'r':
			removed += op.I2 - op.I1
			added += op.J2 - op.J1
		case 'd':
			removed += op.I2 - op.I1
		case 'i':
			added += op.J2 - op.J1
		}
	}

	longest := max(len(a), len(b))
	similarity := 100.0
	if longest > 0 {
		similarity = math.Max(0, (1-float64(added+removed)/float64(2*longest))*100)
	}

	unified, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(base),
		B:        difflib.SplitLines(target),
		FromFile: "base@" + baseID,
		ToFile:   "target@" + targetID,
		Context:  3,
	})

	return &TextChanges{
		LinesAdded:           added,
		LinesRemoved:         removed,
		SimilarityPercentage: similarity,
		LengthChange:         utf8.RuneCountInString(target) - utf8.RuneCountInString(base),
		UnifiedDiff:          unified,
	}
}

// jsonEqual compares values by their serialized form. Map keys marshal in
// sorted order, so equal structures give equal bytes.
func jsonEqual(a, b any) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}
