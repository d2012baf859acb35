package datastores

import (
	"bytes"
	"context"
	"testing"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVMetered(t *testing.T) {
	ctx := context.Background()
	set := metrics.NewSet()
	kv := NewKVMetered(NewKVInmem(), set, "memory")

	_, err := kv.Add(ctx, CounterKey, "value", 1)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, "1", Item{"id": "1"}))
	_, err = kv.Get(ctx, "1")
	require.NoError(t, err)
	_, err = kv.Get(ctx, "2")
	require.ErrorIs(t, err, ErrObjectNotFound)
	_, err = kv.Scan(ctx, CounterKey)
	require.NoError(t, err)
	require.NoError(t, kv.Delete(ctx, "1"))
	require.NoError(t, kv.Ping(ctx))

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	out := buf.String()
	for _, line := range []string{
		`store_operations_total{backend="memory",op="add",result="ok"} 1`,
		`store_operations_total{backend="memory",op="put",result="ok"} 1`,
		`store_operations_total{backend="memory",op="get",result="ok"} 1`,
		`store_operations_total{backend="memory",op="get",result="not_found"} 1`,
		`store_operations_total{backend="memory",op="scan",result="ok"} 1`,
		`store_operations_total{backend="memory",op="delete",result="ok"} 1`,
		`store_operation_duration_seconds_count{backend="memory",op="get"} 2`,
	} {
		assert.Contains(t, out, line)
	}
}

func TestKVMetered_Errors(t *testing.T) {
	set := metrics.NewSet()
	kv := NewKVMetered(&flakyKV{KV: NewKVInmem(), fail: map[string]bool{"put": true}}, set, "flaky")

	err := kv.Put(context.Background(), "1", Item{})
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	assert.Contains(t, buf.String(), `store_operations_total{backend="flaky",op="put",result="error"} 1`)
}
