package store

import (
	"context"
	"errors"
	"time"

	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type storeMetrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.CounterVec
}

func newStoreMetrics(reg prometheus.Registerer, backend string) *storeMetrics {
	constLabels := prometheus.Labels{"backend": backend}
	return &storeMetrics{
		ops: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace:   "nafstore",
			Name:        "store_operations_total",
			Help:        "Layer store operations by collection and outcome",
			ConstLabels: constLabels,
		}, []string{"op", "collection", "outcome"}),
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "nafstore",
			Name:        "store_operation_duration_seconds",
			Help:        "Duration of layer store operations",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"op"}),
		bytes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace:   "nafstore",
			Name:        "store_payload_bytes_total",
			Help:        "Payload bytes written and read",
			ConstLabels: constLabels,
		}, []string{"direction"}),
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, layer.ErrStoreUnavailable):
		return "unavailable"
	case errors.Is(err, layer.ErrWriteFailed):
		return "write_failed"
	default:
		return "error"
	}
}

func (m *storeMetrics) observe(op, collection string, start time.Time, err error) {
	m.ops.WithLabelValues(op, collection, outcome(err)).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

type instrumented struct {
	inner   LayerStore
	metrics *storeMetrics
}

// Instrument wraps s so every call is counted and timed on reg. A nil reg
// returns s unchanged.
func Instrument(s LayerStore, reg prometheus.Registerer, backend string) LayerStore {
	if reg == nil {
		return s
	}
	return &instrumented{inner: s, metrics: newStoreMetrics(reg, backend)}
}

func (s *instrumented) EnsureIndexes(ctx context.Context) error {
	start := time.Now()
	err := s.inner.EnsureIndexes(ctx)
	s.metrics.observe("ensure_indexes", "", start, err)
	return err
}

func (s *instrumented) Upsert(ctx context.Context, collection string, scope layer.Scope, payload []byte) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, collection, scope, payload)
	s.metrics.observe("upsert", collection, start, err)
	if err == nil {
		s.metrics.bytes.WithLabelValues("write").Add(float64(len(payload)))
	}
	return err
}

func (s *instrumented) Insert(ctx context.Context, collection string, scope layer.Scope, payload []byte) error {
	start := time.Now()
	err := s.inner.Insert(ctx, collection, scope, payload)
	s.metrics.observe("insert", collection, start, err)
	if err == nil {
		s.metrics.bytes.WithLabelValues("write").Add(float64(len(payload)))
	}
	return err
}

func (s *instrumented) Get(ctx context.Context, collection string, scope layer.Scope) ([]byte, bool, error) {
	start := time.Now()
	payload, found, err := s.inner.Get(ctx, collection, scope)
	s.metrics.observe("get", collection, start, err)
	s.metrics.bytes.WithLabelValues("read").Add(float64(len(payload)))
	return payload, found, err
}

func (s *instrumented) Find(ctx context.Context, collection string, f Filter, fn func(Entry) error) error {
	start := time.Now()
	err := s.inner.Find(ctx, collection, f, func(e Entry) error {
		s.metrics.bytes.WithLabelValues("read").Add(float64(len(e.Payload)))
		return fn(e)
	})
	s.metrics.observe("find", collection, start, err)
	return err
}

func (s *instrumented) Remove(ctx context.Context, collection string, f Filter) (int64, error) {
	start := time.Now()
	n, err := s.inner.Remove(ctx, collection, f)
	s.metrics.observe("remove", collection, start, err)
	return n, err
}

func (s *instrumented) Drop(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Drop(ctx)
	s.metrics.observe("drop", "", start, err)
	return err
}

func (s *instrumented) Close() error {
	return s.inner.Close()
}
