package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/censusops/acsgrid/internal/census"
)

// deltaPrefix is the variable family the delta computation tracks: ACS
// profile variables all carry DP-prefixed codes.
const deltaPrefix = "DP"

// BuildDeltaQuery constructs a single SELECT computing vintageB − vintageA
// for every tracked variable among allColumns, for one geography. Each side
// is cast through try_cast(... AS DOUBLE), so non-numeric or absent values
// yield NULL instead of failing the whole computation. Both snapshots must
// already be persisted; the builder performs no fetching itself.
func BuildDeltaQuery(vintageA, vintageB int, geo census.Geography, allColumns []string) (string, error) {
	if err := geo.Validate(); err != nil {
		return "", err
	}
	if vintageA == vintageB {
		return "", fmt.Errorf("delta requires two distinct vintages, got %d", vintageA)
	}

	cols := make([]string, 0, len(allColumns))
	for _, c := range allColumns {
		if strings.HasPrefix(c, deltaPrefix) {
			cols = append(cols, c)
		}
	}
	sort.Strings(cols)
	if len(cols) == 0 {
		return "", fmt.Errorf("no %s-prefixed columns to diff", deltaPrefix)
	}

	deltaExprs := make([]string, len(cols))
	for i, c := range cols {
		q := quoteIdent(c)
		deltaExprs[i] = fmt.Sprintf(
			`try_cast(b.%s AS DOUBLE) - try_cast(a.%s AS DOUBLE) AS %s`,
			q, q, quoteIdent(c+"__delta"))
	}

	selectID := []string{
		"a.geo_level AS geo_level",
		"a.state AS state",
		"a.county AS county",
		"a.year AS year_a",
		"b.year AS year_b",
		"a.NAME AS NAME_a",
		"b.NAME AS NAME_b",
	}

	joinOn := "a.geo_level = b.geo_level AND a.state = b.state AND coalesce(a.county, '') = coalesce(b.county, '')"

	where := []string{
		fmt.Sprintf("a.geo_level = '%s'", geo.Kind),
		fmt.Sprintf("a.state = '%s'", geo.State),
	}
	if geo.Kind == census.GeoCounty {
		where = append(where, fmt.Sprintf("a.county = '%s'", geo.County))
	}
	where = append(where,
		fmt.Sprintf("a.year = %d", vintageA),
		fmt.Sprintf("b.year = %d", vintageB),
	)

	table := TableFor(geo.Kind)

	sql := fmt.Sprintf(`SELECT
  %s
  , %s
FROM %s a
JOIN %s b
  ON %s
WHERE %s`,
		strings.Join(selectID, ", "),
		strings.Join(deltaExprs, ", "),
		table, table, joinOn, strings.Join(where, " AND "))

	return sql, nil
}
