package safename

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForProject_Names(t *testing.T) {
	sn, err := ForProject(42)
	require.NoError(t, err)
	assert.Equal(t, "parcels_agbs_project_42", sn.View)
	assert.Equal(t, "idx_parcels_agbs_project_42", sn.Index)
	assert.Equal(t, int64(42), sn.ProjectID)
}

// Zero and negative ids are rejected, never formatted.
func TestForProject_RejectsNonPositive(t *testing.T) {
	for _, id := range []int64{0, -1, -42} {
		_, err := ForProject(id)
		require.Error(t, err)
		var invalid *InvalidIdentifierError
		assert.True(t, errors.As(err, &invalid))
	}
}

// name(p1) != name(p2) for p1 != p2, and the id round-trips.
func TestForProject_InjectiveAndReversible(t *testing.T) {
	seen := map[string]int64{}
	for _, id := range []int64{1, 2, 12, 21, 100, 1000, 9999999} {
		sn, err := ForProject(id)
		require.NoError(t, err)
		prev, dup := seen[sn.View]
		require.False(t, dup, "view name collision between %d and %d", prev, id)
		seen[sn.View] = id

		back, err := ProjectID(sn.View)
		require.NoError(t, err)
		assert.Equal(t, id, back)
	}
}

func TestProjectID_RejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"parcels_agbs_project_",
		"parcels_agbs_project_0",
		"parcels_agbs_project_007",
		"parcels_agbs_project_-5",
		"parcels_agbs_project_42; DROP TABLE parcels",
		"idx_parcels_agbs_project_42",
		"some_other_view",
	}
	for _, name := range cases {
		_, err := ProjectID(name)
		assert.Error(t, err, "expected rejection for %q", name)
	}
}
