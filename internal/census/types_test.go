package census

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeographyConstructorsPadFIPS(t *testing.T) {
	assert.Equal(t, "06", StateGeo("6").State)
	assert.Equal(t, "06", StateGeo("06").State)

	geo := CountyGeo("6", "59")
	assert.Equal(t, "06", geo.State)
	assert.Equal(t, "059", geo.County)
}

func TestGeographyValidate(t *testing.T) {
	tests := []struct {
		name    string
		geo     Geography
		wantErr bool
	}{
		{"state ok", StateGeo("06"), false},
		{"county ok", CountyGeo("06", "059"), false},
		{"state missing fips", Geography{Kind: GeoState}, true},
		{"county missing county fips", Geography{Kind: GeoCounty, State: "06"}, true},
		{"unknown kind", Geography{Kind: GeoKind("tract"), State: "06"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.geo.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidGeography)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestWideRowKeysSortedAndCloneIsolated(t *testing.T) {
	row := WideRow{"b": "2", "a": "1", "c": "3"}
	assert.Equal(t, []string{"a", "b", "c"}, row.Keys())

	dup := row.Clone()
	dup["a"] = "mutated"
	assert.Equal(t, "1", row["a"])
}
