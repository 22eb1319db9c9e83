package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
)

func TestLandUse(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedBaseLayers(t, st)

	saveSquareLayer(t, st, "residential_induction", 0, 0, 40, nil)

	meshes := model.NewCollection("landuse_mesh", 3857)
	for i := 0; i < 4; i++ {
		m := squareFeature(float64(i*10), 60, 8)
		m.Set("is_residential", 1)
		meshes.Append(m)
	}
	nonRes := squareFeature(50, 60, 8)
	nonRes.Set("is_residential", 0)
	meshes.Append(nonRes)
	require.NoError(t, st.SaveLayer(ctx, meshes, "landuse_mesh"))

	changes := model.NewCollection("change_maps", 3857)
	changes.Append(
		squareFeature(10, 10, 4), // inside the induction area
		squareFeature(70, 70, 4), // outside it, inside the zone
		squareFeature(80, 80, 4),
	)
	require.NoError(t, st.SaveLayer(ctx, changes, "change_maps"))

	rows, err := NewCalculator(st).LandUse(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 4, row.ResidentialLandMeshCount)
	assert.Equal(t, "0.25", row.NewConstructionInsideRPA)
	assert.Equal(t, "0.5", row.NewConstructionOutsideRPA)
	assert.Equal(t, "0.75", row.CumulativeChangeIndex)
	assert.Equal(t, "-0.25", row.InsideOutsideDeltaGap)
}

func TestLandUse_MissingChangeMaps(t *testing.T) {
	st := newTestStore(t)
	seedBaseLayers(t, st)

	_, err := NewCalculator(st).LandUse(context.Background())
	require.Error(t, err)
}
