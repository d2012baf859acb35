package datastores

import (
	"context"
	"errors"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// KVMetered decorates a [KV] with per-operation counters and histograms.
type KVMetered struct {
	KV
	set     *metrics.Set
	backend string
}

var _ Pinger = (*KVMetered)(nil)

var buckets = metrics.ExponentialBuckets(1e-3, 5, 6) //nolint: gochecknoglobals,mnd // arbitrary

func NewKVMetered(kv KV, set *metrics.Set, backend string) *KVMetered {
	return &KVMetered{KV: kv, set: set, backend: backend}
}

func (s *KVMetered) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrObjectNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	labels := `{backend="` + s.backend + `",op="` + op + `",result="` + result + `"}`
	s.set.GetOrCreateCounter("store_operations_total" + labels).Inc()
	s.set.GetOrCreatePrometheusHistogramExt(`store_operation_duration_seconds{backend="`+s.backend+`",op="`+op+`"}`, buckets).
		UpdateDuration(start)
}

func (s *KVMetered) Put(ctx context.Context, key string, item Item) (err error) {
	defer func(start time.Time) { s.observe("put", start, err) }(time.Now())
	return s.KV.Put(ctx, key, item)
}

func (s *KVMetered) Get(ctx context.Context, key string) (_ Item, err error) {
	defer func(start time.Time) { s.observe("get", start, err) }(time.Now())
	return s.KV.Get(ctx, key)
}

func (s *KVMetered) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.KV.Delete(ctx, key)
}

func (s *KVMetered) Scan(ctx context.Context, skip string) (_ []Item, err error) {
	defer func(start time.Time) { s.observe("scan", start, err) }(time.Now())
	return s.KV.Scan(ctx, skip)
}

func (s *KVMetered) Add(ctx context.Context, key, attr string, delta int64) (_ int64, err error) {
	defer func(start time.Time) { s.observe("add", start, err) }(time.Now())
	return s.KV.Add(ctx, key, attr, delta)
}

// Ping forwards to the decorated store when it implements [Pinger].
func (s *KVMetered) Ping(ctx context.Context) error {
	if p, ok := s.KV.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
