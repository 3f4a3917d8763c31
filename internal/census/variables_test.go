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

const dp02Metadata = `{
  "variables": {
    "DP02_0002E": {"label": "Estimate B"},
    "DP02_0001E": {"label": "Estimate A"},
    "DP02_0001M": {"label": "Margin A"},
    "DP03_0001E": {"label": "Wrong group"},
    "NAME": {"label": "Geography name"}
  }
}`

func TestGroupVariablesFiltersSortsAndCaches(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/2023/acs/acs5/profile/groups/DP02.json", r.URL.Path)
		_, _ = w.Write([]byte(dp02Metadata))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithBackoffBase(time.Millisecond))
	svc := NewService(client, newMemKV())

	vars, err := svc.GroupVariables(context.Background(), "2023", "DP02")
	require.NoError(t, err)
	assert.Equal(t, []string{"DP02_0001E", "DP02_0001M", "DP02_0002E"}, vars,
		"only DP02_ codes, sorted, NAME and other groups excluded")

	again, err := svc.GroupVariables(context.Background(), "2023", "DP02")
	require.NoError(t, err)
	assert.Equal(t, vars, again)
	assert.Equal(t, int64(1), calls.Load(), "second call is served from the cache")
}

func TestDiscoverAllVariablesPreservesGroupOrder(t *testing.T) {
	kv := newMemKV()
	require.NoError(t, kv.Set(groupVarsKey("2023", "DP03"), `["DP03_0001E"]`))
	require.NoError(t, kv.Set(groupVarsKey("2023", "DP02"), `["DP02_0001E","DP02_0002E"]`))

	svc := NewService(NewClient(), kv)
	vars, err := svc.DiscoverAllVariables(context.Background(), "2023", []string{"DP03", "DP02"})
	require.NoError(t, err)
	assert.Equal(t, []string{"DP03_0001E", "DP02_0001E", "DP02_0002E"}, vars)
}

func TestDedupeSorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, dedupeSorted([]string{"a", "a", "b", "c", "c"}))
	assert.Empty(t, dedupeSorted(nil))
}
