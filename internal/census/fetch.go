package census

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// RowCacheKey derives the deterministic cache key for a wide row:
// row:{vintage}:{kind}:{state}[:{county}]:{group1-group2-...}.
// The group tag is sorted, so permuted group lists share one entry.
func RowCacheKey(vintage string, geo Geography, groups []string) string {
	sorted := append([]string(nil), groups...)
	sort.Strings(sorted)
	gtag := strings.Join(sorted, "-")
	if geo.Kind == GeoCounty {
		return fmt.Sprintf("row:%s:county:%s:%s:%s", vintage, geo.State, geo.County, gtag)
	}
	return fmt.Sprintf("row:%s:state:%s:%s", vintage, geo.State, gtag)
}

// FetchOrCache returns the wide row for (vintage, geography, groups). The
// bool reports a cache hit; on a hit the cached row comes back unchanged
// with zero network calls. On a miss the full variable list is resolved,
// fetched in batches, assembled, cached, and returned.
func (s *Service) FetchOrCache(ctx context.Context, vintage string, geo Geography, groups []string) (WideRow, bool, error) {
	if err := geo.Validate(); err != nil {
		return nil, false, err
	}

	key := RowCacheKey(vintage, geo, groups)
	var cached WideRow
	if ok, err := s.kvLoadJSON(key, &cached); err != nil {
		return nil, false, err
	} else if ok {
		s.logger.Debug("row cache hit", "key", key)
		return cached, true, nil
	}

	started := time.Now()
	vars, err := s.DiscoverAllVariables(ctx, vintage, groups)
	if err != nil {
		return nil, false, err
	}

	row, err := s.fetchVariables(ctx, vintage, geo, vars)
	if err != nil {
		return nil, false, err
	}

	if err := s.kvSaveJSON(key, row); err != nil {
		return nil, false, err
	}
	s.logger.Info("row cached", "key", key, "columns", len(row), "elapsed", time.Since(started))
	return row, false, nil
}

// fetchVariables pulls values for varNames in fixed-size batches, always
// including NAME, and merges the header/value zips into one row. The
// orchestrator does not retry at the batch level beyond the client's own
// retry policy.
func (s *Service) fetchVariables(ctx context.Context, vintage string, geo Geography, varNames []string) (WideRow, error) {
	row := make(WideRow, len(varNames)+8)

	for i := 0; i < len(varNames); i += s.batchSize {
		chunk := varNames[i:min(i+s.batchSize, len(varNames))]

		params := url.Values{}
		params.Set("get", "NAME,"+strings.Join(chunk, ","))
		if geo.Kind == GeoCounty {
			params.Set("for", "county:"+geo.County)
			params.Set("in", "state:"+geo.State)
		} else {
			params.Set("for", "state:"+geo.State)
		}

		var data dataTable
		if err := s.client.Query(ctx, vintage, params, &data); err != nil {
			return nil, fmt.Errorf("fetch variables for %s: %w", geo, err)
		}
		if len(data) < 2 {
			return nil, fmt.Errorf("no data rows for %s at vintage %s", geo, vintage)
		}

		headers, values := data[0], data[1]
		for j, h := range headers {
			if h == nil {
				continue
			}
			row[*h] = cell(values, j)
		}
	}

	return row, nil
}
