package census

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// groupMetadata is the shape of {base}/groups/{group}.json.
type groupMetadata struct {
	Variables map[string]json.RawMessage `json:"variables"`
}

func groupVarsKey(vintage, group string) string {
	return fmt.Sprintf("groupvars:%s:%s", vintage, group)
}

// GroupVariables returns the variable codes belonging to group for the given
// vintage, lexicographically sorted with duplicates removed. Results are
// cached indefinitely under groupvars:{vintage}:{group}; discovery order is
// never preserved.
func (s *Service) GroupVariables(ctx context.Context, vintage, group string) ([]string, error) {
	key := groupVarsKey(vintage, group)

	var cached []string
	if ok, err := s.kvLoadJSON(key, &cached); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	var meta groupMetadata
	if err := s.client.ReadJSON(ctx, s.client.GroupMetadataURL(vintage, group), &meta); err != nil {
		return nil, fmt.Errorf("discover group %s variables: %w", group, err)
	}

	prefix := group + "_"
	vars := make([]string, 0, len(meta.Variables))
	for code := range meta.Variables {
		if strings.HasPrefix(code, prefix) {
			vars = append(vars, code)
		}
	}
	sort.Strings(vars)
	vars = dedupeSorted(vars)

	s.logger.Debug("discovered group variables", "vintage", vintage, "group", group, "count", len(vars))

	if err := s.kvSaveJSON(key, vars); err != nil {
		return nil, err
	}
	return vars, nil
}

// DiscoverAllVariables concatenates per-group variable lists in the order
// the groups were requested. Intra-group order is sorted.
func (s *Service) DiscoverAllVariables(ctx context.Context, vintage string, groups []string) ([]string, error) {
	var all []string
	for _, g := range groups {
		vars, err := s.GroupVariables(ctx, vintage, g)
		if err != nil {
			return nil, err
		}
		all = append(all, vars...)
	}
	return all, nil
}

func dedupeSorted(in []string) []string {
	out := in[:0]
	for i, v := range in {
		if i == 0 || v != in[i-1] {
			out = append(out, v)
		}
	}
	return out
}
