package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDependency_Symmetry(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	a, b := ref("decision", "A"), ref("pattern", "B")

	dep, err := e.RegisterDependency(ctx, a, b, DependencyOptions{Type: "implements"})
	require.NoError(t, err)
	assert.Equal(t, "implements", dep.Type)
	assert.Equal(t, StrengthMedium, dep.Strength)
	assert.Equal(t, epoch, dep.CreatedAt)

	out, err := e.GetOutgoing(ctx, a)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, b, out[0].Target)
	assert.Equal(t, *dep, out[0])

	in, err := e.GetIncoming(ctx, b)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, a, in[0].Source)

	none, err := e.GetIncoming(ctx, a)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestRegisterDependency_Defaults(t *testing.T) {
	e, _, _ := newTestEngine(t)

	dep, err := e.RegisterDependency(context.Background(), ref("a", "1"), ref("b", "2"), DependencyOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDependencyType, dep.Type)
	assert.Equal(t, StrengthMedium, dep.Strength)
	assert.Equal(t, DependencyID(ref("a", "1"), DefaultDependencyType, ref("b", "2")), dep.DependencyID)
}

func TestRegisterDependency_Idempotent(t *testing.T) {
	e, clock, store := newTestEngine(t)
	ctx := context.Background()
	a, b := ref("a", "1"), ref("b", "2")

	first, err := e.RegisterDependency(ctx, a, b, DependencyOptions{Type: "uses", Strength: StrengthWeak})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	second, err := e.RegisterDependency(ctx, a, b, DependencyOptions{
		Type:     "uses",
		Strength: StrengthStrong,
		Metadata: map[string]any{"note": "tightened"},
	})
	require.NoError(t, err)

	assert.Equal(t, first.DependencyID, second.DependencyID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt, "re-registration keeps the original creation time")
	assert.Equal(t, StrengthStrong, second.Strength)
	assert.Equal(t, 1, store.Len(categoryDependencies))

	out, err := e.GetOutgoing(ctx, a)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, StrengthStrong, out[0].Strength)
	assert.Equal(t, "tightened", out[0].Metadata["note"])

	in, err := e.GetIncoming(ctx, b)
	require.NoError(t, err)
	assert.Len(t, in, 1)
}

func TestRegisterDependency_DistinctTypesAreDistinctEdges(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	a, b := ref("a", "1"), ref("b", "2")

	_, err := e.RegisterDependency(ctx, a, b, DependencyOptions{Type: "uses"})
	require.NoError(t, err)
	_, err = e.RegisterDependency(ctx, a, b, DependencyOptions{Type: "tests"})
	require.NoError(t, err)

	out, err := e.GetOutgoing(ctx, a)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "uses", out[0].Type)
	assert.Equal(t, "tests", out[1].Type)
}

func TestRegisterDependency_SelfEdge(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	a := ref("a", "1")

	_, err := e.RegisterDependency(ctx, a, a, DependencyOptions{})
	require.NoError(t, err)

	out, err := e.GetOutgoing(ctx, a)
	require.NoError(t, err)
	in, err := e.GetIncoming(ctx, a)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Len(t, in, 1)
}

func TestRegisterDependency_Validation(t *testing.T) {
	e, _, store := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		source ArtifactRef
		target ArtifactRef
		opts   DependencyOptions
		field  string
	}{
		{"empty source", ref("", ""), ref("b", "2"), DependencyOptions{}, "sourceRef.type"},
		{"empty target id", ref("a", "1"), ref("b", ""), DependencyOptions{}, "targetRef.id"},
		{"bad strength", ref("a", "1"), ref("b", "2"), DependencyOptions{Strength: "huge"}, "strength"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.RegisterDependency(ctx, tt.source, tt.target, tt.opts)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Zero(t, store.Len(categoryDependencies))
}

func TestRegisterDependency_RetryAfterPartialFailure(t *testing.T) {
	store := &flakyStore{MemStore: newTestStore(), failPut: categoryDependencyIndex}
	e := New(store)
	ctx := context.Background()
	a, b := ref("a", "1"), ref("b", "2")

	_, err := e.RegisterDependency(ctx, a, b, DependencyOptions{})
	require.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, 1, store.Len(categoryDependencies), "the edge record was written before the index failed")

	store.failPut = ""
	_, err = e.RegisterDependency(ctx, a, b, DependencyOptions{})
	require.NoError(t, err)

	out, err := e.GetOutgoing(ctx, a)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	in, err := e.GetIncoming(ctx, b)
	require.NoError(t, err)
	assert.Len(t, in, 1)
}

func TestGetOutgoing_SkipsDanglingEntries(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	a := ref("a", "1")

	_, err := e.RegisterDependency(ctx, a, ref("b", "2"), DependencyOptions{})
	require.NoError(t, err)
	require.NoError(t, e.upsertIndexEntry(ctx, a, adjacencyOutgoing, "vanished", epoch))

	out, err := e.GetOutgoing(ctx, a)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, ref("b", "2"), out[0].Target)
}

func TestGetIncoming_StorageFailure(t *testing.T) {
	store := &flakyStore{MemStore: newTestStore(), failGet: categoryDependencyIndex}
	e := New(store)

	_, err := e.GetIncoming(context.Background(), ref("a", "1"))
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, errInjected)
}

func TestDependencyID(t *testing.T) {
	a, b := ref("a", "1"), ref("b", "2")

	assert.Equal(t, DependencyID(a, "uses", b), DependencyID(a, "uses", b))
	assert.NotEqual(t, DependencyID(a, "uses", b), DependencyID(b, "uses", a))
	assert.NotEqual(t, DependencyID(a, "uses", b), DependencyID(a, "tests", b))
	// Field boundaries are part of the identity.
	assert.NotEqual(t,
		DependencyID(ref("a:b", "c"), "t", b),
		DependencyID(ref("a", "b:c"), "t", b))
}
