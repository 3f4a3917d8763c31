package census

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// dataTable is the API's 2-D answer shape: row 0 is column headers,
// subsequent rows are values. Values may be JSON null.
type dataTable [][]*string

// headerIndex locates a column by name in the header row. Consumers locate
// columns by name, not position, so column order changes are harmless.
func (t dataTable) headerIndex(name string) int {
	if len(t) == 0 {
		return -1
	}
	for i, h := range t[0] {
		if h != nil && *h == name {
			return i
		}
	}
	return -1
}

func cell(row []*string, idx int) string {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return ""
	}
	return *row[idx]
}

func countiesKey(vintage, stateFIPS string) string {
	return fmt.Sprintf("counties:%s:%s", vintage, stateFIPS)
}

func yearsKey(geo Geography, start, end int) string {
	if geo.Kind == GeoCounty {
		return fmt.Sprintf("years:county:%s:%s:%d:%d", geo.State, geo.County, start, end)
	}
	return fmt.Sprintf("years:state:%s:%d:%d", geo.State, start, end)
}

// CountiesForState returns {county FIPS -> NAME} for every county within the
// state, from a single NAME-only query. A response with fewer than two rows
// yields an empty mapping, not an error. Cached per (vintage, state).
func (s *Service) CountiesForState(ctx context.Context, vintage, stateFIPS string) (map[string]string, error) {
	stateFIPS = padFIPS(stateFIPS, 2)
	key := countiesKey(vintage, stateFIPS)

	var cached map[string]string
	if ok, err := s.kvLoadJSON(key, &cached); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("get", "NAME")
	params.Set("for", "county:*")
	params.Set("in", "state:"+stateFIPS)

	var data dataTable
	if err := s.client.Query(ctx, vintage, params, &data); err != nil {
		return nil, fmt.Errorf("list counties for state %s: %w", stateFIPS, err)
	}
	if len(data) < 2 {
		return map[string]string{}, nil
	}

	nameIdx := data.headerIndex("NAME")
	countyIdx := data.headerIndex("county")
	if nameIdx < 0 || countyIdx < 0 {
		return nil, fmt.Errorf("county listing for state %s is missing NAME or county column", stateFIPS)
	}

	counties := make(map[string]string, len(data)-1)
	for _, row := range data[1:] {
		counties[cell(row, countyIdx)] = cell(row, nameIdx)
	}

	if err := s.kvSaveJSON(key, counties); err != nil {
		return nil, err
	}
	return counties, nil
}

// ProbeYear asks whether the API answers a minimal NAME query for the
// geography at the given vintage. Three outcomes: (true, nil) available;
// (false, nil) unavailable, meaning the remote answered with a fatal status
// or an empty body; (false, err) when the probe itself failed in transit.
// Probe failures are never conflated with unavailability.
func (s *Service) ProbeYear(ctx context.Context, year int, geo Geography) (bool, error) {
	if err := geo.Validate(); err != nil {
		return false, err
	}

	params := url.Values{}
	params.Set("get", "NAME")
	if geo.Kind == GeoCounty {
		params.Set("for", "county:"+geo.County)
		params.Set("in", "state:"+geo.State)
	} else {
		params.Set("for", "state:"+geo.State)
	}

	var data dataTable
	err := s.client.Query(ctx, strconv.Itoa(year), params, &data)
	switch {
	case err == nil:
		return len(data) >= 2, nil
	case IsFatalStatus(err):
		// The remote answered: this vintage is not published for the dataset.
		return false, nil
	default:
		return false, fmt.Errorf("probe year %d for %s: %w", year, geo, err)
	}
}

// AvailableYears probes every candidate year in [start, end] and returns the
// available ones ascending. The window is part of the cache key, and only
// fully probed windows are cached: a failed probe aborts the scan so a
// transient blip never pins a false negative.
func (s *Service) AvailableYears(ctx context.Context, geo Geography, start, end int) ([]int, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	key := yearsKey(geo, start, end)

	var cached []int
	if ok, err := s.kvLoadJSON(key, &cached); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	years := make([]int, 0, end-start+1)
	for y := start; y <= end; y++ {
		ok, err := s.ProbeYear(ctx, y, geo)
		if err != nil {
			return nil, err
		}
		if ok {
			years = append(years, y)
		}
	}

	s.logger.Debug("probed year availability", "geo", geo.String(), "start", start, "end", end, "available", len(years))

	if err := s.kvSaveJSON(key, years); err != nil {
		return nil, err
	}
	return years, nil
}
