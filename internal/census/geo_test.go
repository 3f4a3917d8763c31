package census

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serviceOver(t *testing.T, handler http.Handler) (*Service, *memKV) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(
		WithBaseURL(srv.URL),
		WithBackoffBase(time.Millisecond),
		WithMaxAttempts(2),
	)
	kv := newMemKV()
	return NewService(client, kv), kv
}

func TestCountiesForStateParsesByHeaderName(t *testing.T) {
	// County column deliberately precedes NAME; consumers must not rely
	// on positional layout.
	svc, _ := serviceOver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "county:*", r.URL.Query().Get("for"))
		require.Equal(t, "state:06", r.URL.Query().Get("in"))
		_, _ = w.Write([]byte(`[
			["county","NAME","state"],
			["001","Alameda County, California","06"],
			["059","Orange County, California","06"]
		]`))
	}))

	counties, err := svc.CountiesForState(context.Background(), "2023", "6")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"001": "Alameda County, California",
		"059": "Orange County, California",
	}, counties)
}

func TestCountiesForStateEmptyListingIsNotAnError(t *testing.T) {
	svc, _ := serviceOver(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[["county","NAME","state"]]`))
	}))

	counties, err := svc.CountiesForState(context.Background(), "2023", "06")
	require.NoError(t, err)
	assert.Empty(t, counties)
}

func TestCountiesForStateServesSecondCallFromCache(t *testing.T) {
	var calls atomic.Int64
	svc, _ := serviceOver(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[["county","NAME","state"],["059","Orange County, California","06"]]`))
	}))

	first, err := svc.CountiesForState(context.Background(), "2023", "06")
	require.NoError(t, err)
	second, err := svc.CountiesForState(context.Background(), "2023", "06")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), calls.Load())
}

func TestProbeYearOutcomes(t *testing.T) {
	t.Run("available", func(t *testing.T) {
		svc, _ := serviceOver(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[["NAME","state"],["California","06"]]`))
		}))
		ok, err := svc.ProbeYear(context.Background(), 2023, StateGeo("06"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unavailable on fatal status", func(t *testing.T) {
		svc, _ := serviceOver(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		ok, err := svc.ProbeYear(context.Background(), 2005, StateGeo("06"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unavailable on empty body", func(t *testing.T) {
		svc, _ := serviceOver(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[["NAME","state"]]`))
		}))
		ok, err := svc.ProbeYear(context.Background(), 2023, StateGeo("06"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("probe failure is an error, not unavailability", func(t *testing.T) {
		svc, _ := serviceOver(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		ok, err := svc.ProbeYear(context.Background(), 2023, StateGeo("06"))
		require.Error(t, err)
		assert.False(t, ok)
	})
}

func TestAvailableYearsOnlyCachesCompleteWindows(t *testing.T) {
	var failProbes atomic.Bool
	svc, kv := serviceOver(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failProbes.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		// 2021 is not published; everything else is.
		if r.URL.Path == "/2021/acs/acs5/profile" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`[["NAME","state"],["California","06"]]`))
	}))

	geo := StateGeo("06")
	years, err := svc.AvailableYears(context.Background(), geo, 2020, 2022)
	require.NoError(t, err)
	assert.Equal(t, []int{2020, 2022}, years)

	// The complete window was cached: further calls bypass the network.
	failProbes.Store(true)
	again, err := svc.AvailableYears(context.Background(), geo, 2020, 2022)
	require.NoError(t, err)
	assert.Equal(t, years, again)

	// A failing probe aborts a fresh window and caches nothing.
	_, err = svc.AvailableYears(context.Background(), geo, 2019, 2022)
	require.Error(t, err)
	_, ok, kvErr := kv.Get(yearsKey(geo, 2019, 2022))
	require.NoError(t, kvErr)
	assert.False(t, ok, "aborted scan must not pin a partial window")
}
