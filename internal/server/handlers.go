package server

import (
	"database/sql"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/censusops/acsgrid/internal/census"
	"github.com/censusops/acsgrid/internal/store"
)

// handleStates lists all accepted state FIPS codes, numerically sorted.
func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	codes := make([]string, 0, len(validStateFIPS))
	for code := range validStateFIPS {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	items := make([]map[string]string, len(codes))
	for i, c := range codes {
		items[i] = map[string]string{"state": c}
	}
	writeJSON(w, http.StatusOK, items)
}

// handleCounties lists counties for a state as [{county, NAME}].
func (s *Server) handleCounties(w http.ResponseWriter, r *http.Request) {
	state := chi.URLParam(r, "state")
	if err := validateStateCode(state); err != nil {
		httpError(w, http.StatusBadRequest, "%v", err)
		return
	}
	year := s.intQuery(r, "year", s.vintage)

	counties, err := s.countiesFor(r.Context(), year, state)
	if err != nil {
		httpError(w, http.StatusBadGateway, "county discovery failed: %v", err)
		return
	}

	codes := make([]string, 0, len(counties))
	for c := range counties {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	items := make([]map[string]string, len(codes))
	for i, c := range codes {
		items[i] = map[string]string{"county": c, "NAME": counties[c]}
	}
	writeJSON(w, http.StatusOK, items)
}

// handleYearsState lists available vintages for a state, ascending.
func (s *Server) handleYearsState(w http.ResponseWriter, r *http.Request) {
	state := chi.URLParam(r, "state")
	if err := validateStateCode(state); err != nil {
		httpError(w, http.StatusBadRequest, "%v", err)
		return
	}
	s.respondYears(w, r, census.StateGeo(state))
}

// handleYearsCounty lists available vintages for a county, ascending.
func (s *Server) handleYearsCounty(w http.ResponseWriter, r *http.Request) {
	state := chi.URLParam(r, "state")
	county := chi.URLParam(r, "county")
	if err := s.validateCountyCode(r.Context(), state, county, s.vintage); err != nil {
		httpError(w, http.StatusBadRequest, "%v", err)
		return
	}
	s.respondYears(w, r, census.CountyGeo(state, county))
}

func (s *Server) respondYears(w http.ResponseWriter, r *http.Request, geo census.Geography) {
	start := s.intQuery(r, "start", s.startYear)
	end := s.intQuery(r, "end", s.vintage)

	years, err := s.yearsFor(r.Context(), geo, start, end)
	if err != nil {
		httpError(w, http.StatusBadGateway, "year discovery failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, years)
}

// handleDataState serves the wide row for a state at one vintage.
func (s *Server) handleDataState(w http.ResponseWriter, r *http.Request) {
	state := chi.URLParam(r, "state")
	if err := validateStateCode(state); err != nil {
		httpError(w, http.StatusBadRequest, "%v", err)
		return
	}
	s.respondData(w, r, census.StateGeo(state))
}

// handleDataCounty serves the wide row for a county at one vintage.
func (s *Server) handleDataCounty(w http.ResponseWriter, r *http.Request) {
	state := chi.URLParam(r, "state")
	county := chi.URLParam(r, "county")
	if err := s.validateCountyCode(r.Context(), state, county, s.vintage); err != nil {
		httpError(w, http.StatusBadRequest, "%v", err)
		return
	}
	s.respondData(w, r, census.CountyGeo(state, county))
}

// respondData ensures the row exists (cache or fetch), persists it, and
// either returns the exact retrieval SQL or executes it and returns the row.
func (s *Server) respondData(w http.ResponseWriter, r *http.Request, geo census.Geography) {
	ctx := r.Context()
	year := s.intQuery(r, "year", s.vintage)
	if err := s.validateYear(ctx, geo, year); err != nil {
		httpError(w, http.StatusBadRequest, "%v", err)
		return
	}

	row, hit, err := s.svc.FetchOrCache(ctx, strconv.Itoa(year), geo, s.groups)
	if err != nil {
		httpError(w, http.StatusBadGateway, "fetch failed: %v", err)
		return
	}
	s.logger.Debug("data request served", "geo", geo.String(), "year", year, "cache_hit", hit)

	sqlText, err := s.store.WriteRowAndQuery(ctx, row, year, geo)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "persist failed: %v", err)
		return
	}

	if s.boolQuery(r, "query_only") {
		writeJSON(w, http.StatusOK, map[string]string{"sql": sqlText})
		return
	}

	result, err := s.store.QueryRowMap(ctx, geo, sqlText)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "query failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDeltaState serves year-over-year deltas for a state.
func (s *Server) handleDeltaState(w http.ResponseWriter, r *http.Request) {
	state := chi.URLParam(r, "state")
	if err := validateStateCode(state); err != nil {
		httpError(w, http.StatusBadRequest, "%v", err)
		return
	}
	s.respondDelta(w, r, census.StateGeo(state))
}

// handleDeltaCounty serves year-over-year deltas for a county.
func (s *Server) handleDeltaCounty(w http.ResponseWriter, r *http.Request) {
	state := chi.URLParam(r, "state")
	county := chi.URLParam(r, "county")
	if err := s.validateCountyCode(r.Context(), state, county, s.vintage); err != nil {
		httpError(w, http.StatusBadRequest, "%v", err)
		return
	}
	s.respondDelta(w, r, census.CountyGeo(state, county))
}

// respondDelta ensures both snapshots are cached and persisted, then builds
// (and optionally executes) the delta query.
func (s *Server) respondDelta(w http.ResponseWriter, r *http.Request, geo census.Geography) {
	ctx := r.Context()

	yearA := s.intQuery(r, "year_a", 0)
	yearB := s.intQuery(r, "year_b", 0)
	if yearA == 0 || yearB == 0 {
		httpError(w, http.StatusBadRequest, "year_a and year_b are required")
		return
	}
	if yearA == yearB {
		httpError(w, http.StatusBadRequest, "year_a and year_b must be different")
		return
	}
	for _, y := range []int{yearA, yearB} {
		if err := s.validateYear(ctx, geo, y); err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}
	}

	allCols := map[string]bool{}
	for _, year := range []int{yearA, yearB} {
		row, _, err := s.svc.FetchOrCache(ctx, strconv.Itoa(year), geo, s.groups)
		if err != nil {
			httpError(w, http.StatusBadGateway, "fetch failed for %d: %v", year, err)
			return
		}
		if _, err := s.store.WriteRowAndQuery(ctx, row, year, geo); err != nil {
			httpError(w, http.StatusInternalServerError, "persist failed for %d: %v", year, err)
			return
		}
		for k := range row {
			allCols[k] = true
		}
	}

	cols := make([]string, 0, len(allCols))
	for c := range allCols {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	sqlText, err := store.BuildDeltaQuery(yearA, yearB, geo, cols)
	if err != nil {
		httpError(w, http.StatusBadRequest, "%v", err)
		return
	}

	if s.boolQuery(r, "query_only") {
		writeJSON(w, http.StatusOK, map[string]string{"sql": sqlText})
		return
	}

	result, err := s.store.QueryRowMap(ctx, geo, sqlText)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No rows found for delta"})
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "delta query failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRegions lists every persisted snapshot.
func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.store.Regions(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, "region listing failed: %v", err)
		return
	}
	if regions == nil {
		regions = []store.Region{}
	}
	writeJSON(w, http.StatusOK, regions)
}

// handleColumns lists the wide table's column set: the state table by
// default, or a state's county table via ?state=.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	kind := census.GeoState
	state := r.URL.Query().Get("state")
	if state != "" {
		if err := validateStateCode(state); err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}
		kind = census.GeoCounty
	}

	cols, err := s.store.Columns(r.Context(), kind, state)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "column listing failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, cols)
}

func (s *Server) intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Server) boolQuery(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "true" || v == "1"
}
