package server

import (
	"context"
	"fmt"
	"strconv"

	"github.com/censusops/acsgrid/internal/census"
)

// validStateFIPS is every state-level FIPS code the facade accepts,
// including DC and Puerto Rico.
var validStateFIPS = map[string]bool{
	"01": true, "02": true, "04": true, "05": true, "06": true, "08": true,
	"09": true, "10": true, "11": true, "12": true, "13": true, "15": true,
	"16": true, "17": true, "18": true, "19": true, "20": true, "21": true,
	"22": true, "23": true, "24": true, "25": true, "26": true, "27": true,
	"28": true, "29": true, "30": true, "31": true, "32": true, "33": true,
	"34": true, "35": true, "36": true, "37": true, "38": true, "39": true,
	"40": true, "41": true, "42": true, "44": true, "45": true, "46": true,
	"47": true, "48": true, "49": true, "50": true, "51": true, "53": true,
	"54": true, "55": true, "56": true, "72": true,
}

func validateStateCode(code string) error {
	if !validStateFIPS[code] {
		return fmt.Errorf("invalid state FIPS %q", code)
	}
	return nil
}

// countiesFor returns the county map for (year, state), memoized.
func (s *Server) countiesFor(ctx context.Context, year int, state string) (map[string]string, error) {
	key := fmt.Sprintf("counties:%d:%s", year, state)
	if v, ok := s.memo.Get(key); ok {
		return v.(map[string]string), nil
	}
	counties, err := s.svc.CountiesForState(ctx, strconv.Itoa(year), state)
	if err != nil {
		return nil, err
	}
	s.memo.Set(key, counties)
	return counties, nil
}

// validateCountyCode checks the county against the state's county listing.
func (s *Server) validateCountyCode(ctx context.Context, state, county string, year int) error {
	if err := validateStateCode(state); err != nil {
		return err
	}
	counties, err := s.countiesFor(ctx, year, state)
	if err != nil {
		return err
	}
	if _, ok := counties[county]; !ok {
		return fmt.Errorf("invalid county FIPS %q for state %q", county, state)
	}
	return nil
}

// yearsFor returns the available-year window for geo, memoized.
func (s *Server) yearsFor(ctx context.Context, geo census.Geography, start, end int) ([]int, error) {
	key := fmt.Sprintf("years:%s:%d:%d", geo, start, end)
	if v, ok := s.memo.Get(key); ok {
		return v.([]int), nil
	}
	years, err := s.svc.AvailableYears(ctx, geo, start, end)
	if err != nil {
		return nil, err
	}
	s.memo.Set(key, years)
	return years, nil
}

// validateYear checks that the vintage is published for geo.
func (s *Server) validateYear(ctx context.Context, geo census.Geography, year int) error {
	years, err := s.yearsFor(ctx, geo, s.startYear, s.vintage)
	if err != nil {
		return err
	}
	for _, y := range years {
		if y == year {
			return nil
		}
	}
	return fmt.Errorf("year %d not available for %s (available: %v)", year, geo, tail(years, 10))
}

func tail(years []int, n int) []int {
	if len(years) <= n {
		return years
	}
	return years[len(years)-n:]
}
