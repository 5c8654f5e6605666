package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/store"
	"github.com/OFFIS-RIT/nafstore/pkg/store/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentCountsOutcomes(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewPedanticRegistry()
	s := store.Instrument(memory.New(), reg, "memory")
	scope := layer.DocumentScope(1, "d")

	if err := s.Upsert(ctx, "terms", scope, []byte(`{"annotations":[]}`)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Insert(ctx, "terms", scope, []byte(`{}`)); !errors.Is(err, layer.ErrWriteFailed) {
		t.Fatalf("expected write failure, got %v", err)
	}
	if _, _, err := s.Get(ctx, "terms", scope); err != nil {
		t.Fatalf("Get: %v", err)
	}

	expected := `
# HELP nafstore_store_operations_total Layer store operations by collection and outcome
# TYPE nafstore_store_operations_total counter
nafstore_store_operations_total{backend="memory",collection="terms",op="get",outcome="ok"} 1
nafstore_store_operations_total{backend="memory",collection="terms",op="insert",outcome="write_failed"} 1
nafstore_store_operations_total{backend="memory",collection="terms",op="upsert",outcome="ok"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "nafstore_store_operations_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}

	if n, err := testutil.GatherAndCount(reg, "nafstore_store_payload_bytes_total"); err != nil || n != 2 {
		t.Fatalf("expected read and write byte series, got %d (%v)", n, err)
	}
}

func TestInstrumentWithoutRegistry(t *testing.T) {
	inner := memory.New()
	if got := store.Instrument(inner, nil, "memory"); got != store.LayerStore(inner) {
		t.Fatal("expected the store to be returned unchanged")
	}
}
