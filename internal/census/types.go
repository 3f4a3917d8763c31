// Package census acquires wide tabular rows from the Census Bureau's
// ACS 5-year profile API and caches every discovery result durably.
package census

import (
	"fmt"
	"sort"
	"strings"
)

// GeoKind identifies the spatial granularity of a geography.
type GeoKind string

const (
	// GeoState is a state-level geography, identified by a 2-digit FIPS code.
	GeoState GeoKind = "state"
	// GeoCounty is a county-level geography, identified by a 2-digit state
	// FIPS code plus a 3-digit county FIPS code.
	GeoCounty GeoKind = "county"
)

// Geography is the spatial unit a wide row describes. FIPS codes are
// fixed-width strings, never integers, so leading zeros survive.
type Geography struct {
	Kind   GeoKind
	State  string
	County string
}

// StateGeo returns a state-level geography for the given FIPS code.
func StateGeo(stateFIPS string) Geography {
	return Geography{Kind: GeoState, State: padFIPS(stateFIPS, 2)}
}

// CountyGeo returns a county-level geography. The county code is only
// meaningful within its state.
func CountyGeo(stateFIPS, countyFIPS string) Geography {
	return Geography{Kind: GeoCounty, State: padFIPS(stateFIPS, 2), County: padFIPS(countyFIPS, 3)}
}

// Validate rejects unsupported kinds and missing codes.
func (g Geography) Validate() error {
	switch g.Kind {
	case GeoState:
		if g.State == "" {
			return fmt.Errorf("%w: state FIPS is required", ErrInvalidGeography)
		}
	case GeoCounty:
		if g.State == "" {
			return fmt.Errorf("%w: state FIPS is required for county geographies", ErrInvalidGeography)
		}
		if g.County == "" {
			return fmt.Errorf("%w: county FIPS is required", ErrInvalidGeography)
		}
	default:
		return fmt.Errorf("%w: unsupported kind %q", ErrInvalidGeography, g.Kind)
	}
	return nil
}

// String renders the geography as its cache-key fragment.
func (g Geography) String() string {
	if g.Kind == GeoCounty {
		return fmt.Sprintf("county:%s:%s", g.State, g.County)
	}
	return fmt.Sprintf("state:%s", g.State)
}

// padFIPS left-pads a numeric code to the fixed width used by the API.
func padFIPS(code string, width int) string {
	if len(code) >= width {
		return code
	}
	return strings.Repeat("0", width-len(code)) + code
}

// WideRow maps variable codes (plus the reserved identifier keys NAME,
// geo_level, year, state, county) to text values. No value is assumed
// numeric at fetch time.
type WideRow map[string]string

// Keys returns the row's key set in sorted order.
func (r WideRow) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the row.
func (r WideRow) Clone() WideRow {
	out := make(WideRow, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
