package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestGetVersion_TimestampProperty checks point-in-time lookup against a
// linear scan: the answer is the last-appended version created at or before
// the query instant, or NotFound when every version is newer.
func TestGetVersion_TimestampProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store := newTestStore()
		clock := newFakeClock()
		e := New(store, WithClock(clock.Now))
		ctx := context.Background()
		doc := ref("doc", "prop")

		// Small gaps so equal timestamps show up often.
		gaps := rapid.SliceOfN(rapid.IntRange(0, 3), 1, 12).Draw(rt, "gaps")
		type made struct {
			id string
			at time.Time
		}
		var versions []made
		at := epoch
		for _, gap := range gaps {
			at = at.Add(time.Duration(gap) * time.Second)
			clock.Set(at)
			v, err := e.CreateVersion(ctx, doc, gap, CreateOptions{})
			require.NoError(rt, err)
			versions = append(versions, made{id: v.VersionID, at: at})
		}

		span := int(at.Sub(epoch) / time.Second)
		query := epoch.Add(time.Duration(rapid.IntRange(-2, span+2).Draw(rt, "query")) * time.Second)

		want := ""
		for _, v := range versions {
			if !v.at.After(query) {
				want = v.id
			}
		}

		got, err := e.GetVersion(ctx, doc, At(query))
		if want == "" {
			assert.ErrorIs(rt, err, ErrNotFound)
			return
		}
		require.NoError(rt, err)
		assert.Equal(rt, want, got.VersionID)

		latest, err := e.GetVersion(ctx, doc, Latest())
		require.NoError(rt, err)
		assert.Equal(rt, versions[len(versions)-1].id, latest.VersionID)
	})
}

// TestListVersions_OrderProperty checks that listing is newest first with
// later appends ahead on ties, and never longer than the limit.
func TestListVersions_OrderProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		clock := newFakeClock()
		e := New(newTestStore(), WithClock(clock.Now))
		ctx := context.Background()
		doc := ref("doc", "prop")

		gaps := rapid.SliceOfN(rapid.IntRange(0, 2), 0, 15).Draw(rt, "gaps")
		limit := rapid.IntRange(1, 20).Draw(rt, "limit")

		var ids []string
		at := epoch
		for _, gap := range gaps {
			at = at.Add(time.Duration(gap) * time.Second)
			clock.Set(at)
			v, err := e.CreateVersion(ctx, doc, gap, CreateOptions{})
			require.NoError(rt, err)
			ids = append(ids, v.VersionID)
		}

		got, err := e.ListVersions(ctx, doc, ListOptions{Limit: limit})
		require.NoError(rt, err)
		require.Len(rt, got, min(limit, len(ids)))
		// Timestamps never decrease in append order, so newest first is
		// exactly reverse append order.
		for i, v := range got {
			assert.Equal(rt, ids[len(ids)-1-i], v.VersionID)
		}
	})
}
