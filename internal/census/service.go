package census

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// DefaultBatchSize is how many variables ride in one data query. Larger
// batches reduce round-trips but risk the API's URL-length limits.
const DefaultBatchSize = 45

// DefaultStartYear is the earliest practical ACS 5-year profile vintage.
const DefaultStartYear = 2009

// KV is the durable key/value cache the discovery components write through.
// Values are JSON-encoded by the caller; the cache is type-agnostic.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Service bundles variable discovery, geography discovery, and the
// fetch-or-cache orchestrator over a shared Client and KV cache.
type Service struct {
	client    *Client
	kv        KV
	batchSize int
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithBatchSize overrides the per-request variable batch size.
func WithBatchSize(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithServiceLogger attaches a structured logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService builds a Service over the given client and cache.
func NewService(client *Client, kv KV, opts ...ServiceOption) *Service {
	s := &Service{
		client:    client,
		kv:        kv,
		batchSize: DefaultBatchSize,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// kvLoadJSON reads a cached JSON payload into v. The bool reports a hit.
func (s *Service) kvLoadJSON(key string, v any) (bool, error) {
	raw, ok, err := s.kv.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode cached value for %q: %w", key, err)
	}
	return true, nil
}

// kvSaveJSON stores v under key as JSON.
func (s *Service) kvSaveJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value for %q: %w", key, err)
	}
	return s.kv.Set(key, string(raw))
}
