package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQdrantFilterNil(t *testing.T) {
	assert.Nil(t, buildQdrantFilter(nil))
}

func TestBuildQdrantFilterTypedConditions(t *testing.T) {
	// Match conditions must carry the same type Upsert wrote to the
	// payload, or numeric and boolean predicates never match.
	f := buildQdrantFilter(And(
		Eq("tenant_id", "T1"),
		Eq("chunk_index", 3),
		Eq("truncated", true),
	))
	require.NotNil(t, f)
	require.Len(t, f.Must, 3)

	keyword := f.Must[0].GetField()
	require.NotNil(t, keyword)
	assert.Equal(t, "tenant_id", keyword.GetKey())
	assert.Equal(t, "T1", keyword.GetMatch().GetKeyword())

	integer := f.Must[1].GetField()
	require.NotNil(t, integer)
	assert.Equal(t, "chunk_index", integer.GetKey())
	assert.Equal(t, int64(3), integer.GetMatch().GetInteger())

	boolean := f.Must[2].GetField()
	require.NotNil(t, boolean)
	assert.True(t, boolean.GetMatch().GetBoolean())
}

func TestBuildQdrantFilterBarePredicate(t *testing.T) {
	f := buildQdrantFilter(Eq("tenant_id", "T1"))
	require.NotNil(t, f)
	require.Len(t, f.Must, 1)
	assert.Equal(t, "T1", f.Must[0].GetField().GetMatch().GetKeyword())
}
