package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/censusops/acsgrid/internal/census"
)

func TestBuildDeltaQueryText(t *testing.T) {
	sqlText, err := BuildDeltaQuery(2018, 2023, census.CountyGeo("06", "059"),
		[]string{"DP03_0001E", "DP02_0001E", "NAME", "state"})
	require.NoError(t, err)

	assert.Contains(t, sqlText,
		`try_cast(b."DP02_0001E" AS DOUBLE) - try_cast(a."DP02_0001E" AS DOUBLE) AS "DP02_0001E__delta"`)
	assert.Contains(t, sqlText,
		`try_cast(b."DP03_0001E" AS DOUBLE) - try_cast(a."DP03_0001E" AS DOUBLE) AS "DP03_0001E__delta"`)
	assert.NotContains(t, sqlText, `"NAME__delta"`, "only DP variables are diffed")

	assert.Contains(t, sqlText, "FROM acs5_county_profile a")
	assert.Contains(t, sqlText, "JOIN acs5_county_profile b")
	assert.Contains(t, sqlText, "coalesce(a.county, '') = coalesce(b.county, '')")
	assert.Contains(t, sqlText, "a.year = 2018")
	assert.Contains(t, sqlText, "b.year = 2023")
	assert.Contains(t, sqlText, "a.county = '059'")
	assert.Contains(t, sqlText, "a.year AS year_a")
	assert.Contains(t, sqlText, "b.NAME AS NAME_b")
}

func TestBuildDeltaQueryRejectsBadInput(t *testing.T) {
	_, err := BuildDeltaQuery(2023, 2023, census.StateGeo("06"), []string{"DP02_0001E"})
	assert.Error(t, err, "identical vintages")

	_, err = BuildDeltaQuery(2018, 2023, census.StateGeo("06"), []string{"NAME", "state"})
	assert.Error(t, err, "nothing to diff")

	_, err = BuildDeltaQuery(2018, 2023, census.Geography{Kind: census.GeoState}, []string{"DP02_0001E"})
	assert.ErrorIs(t, err, census.ErrInvalidGeography)
}

func TestDeltaQueryExecution(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	geo := census.StateGeo("06")

	// DP03_0001E is absent in 2018 and non-numeric in 2023: both sides of
	// the subtraction come out NULL rather than erroring.
	_, err := s.WriteRowAndQuery(ctx, census.WideRow{"NAME": "California", "DP02_0001E": "10"}, 2018, geo)
	require.NoError(t, err)
	_, err = s.WriteRowAndQuery(ctx, census.WideRow{"NAME": "California", "DP02_0001E": "12.5", "DP03_0001E": "(X)"}, 2023, geo)
	require.NoError(t, err)

	sqlText, err := BuildDeltaQuery(2018, 2023, geo, []string{"DP02_0001E", "DP03_0001E", "NAME"})
	require.NoError(t, err)

	got, err := s.QueryRowMap(ctx, geo, sqlText)
	require.NoError(t, err)

	assert.Equal(t, "state", got["geo_level"])
	assert.EqualValues(t, 2018, got["year_a"])
	assert.EqualValues(t, 2023, got["year_b"])
	assert.Equal(t, "California", got["NAME_a"])
	assert.InDelta(t, 2.5, got["DP02_0001E__delta"], 1e-9)
	assert.Nil(t, got["DP03_0001E__delta"], "non-numeric values become NULL deltas")
}
