package metrics

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("boom")

func TestMetrics_RecordOperation(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordOperation("unlock", nil)
	m.RecordOperation("unlock", nil)
	m.RecordOperation("unlock", errTest)
	m.RecordOperation("create", nil)

	snap, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, OpCounts{OK: 2, Error: 1}, snap.Operations["unlock"])
	assert.Equal(t, OpCounts{OK: 1}, snap.Operations["create"])
	assert.NotContains(t, snap.Operations, "delete")
}

func TestMetrics_RecordRejection(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordOperation("unlock", nil)
	m.RecordRejection("unlock")
	m.RecordRejection("unlock")

	snap, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, OpCounts{OK: 1, Rejected: 2}, snap.Operations["unlock"])

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	assert.Contains(t, buf.String(), `satvault_operations_total{op="unlock",result="rejected"} 2`)
}

func TestMetrics_UnlockFailuresAndKDF(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordUnlockFailure()
	m.RecordUnlockFailure()
	m.ObserveKDF(250 * time.Millisecond)
	m.ObserveKDF(750 * time.Millisecond)

	snap, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.UnlockFailures)
	assert.Equal(t, uint64(2), snap.KDFCount)
	assert.InDelta(t, 1.0, snap.KDFSeconds, 0.0001)
}

func TestMetrics_SetUnlocked(t *testing.T) {
	t.Parallel()
	m := New()

	m.SetUnlocked(true)
	snap, err := m.Snapshot()
	require.NoError(t, err)
	assert.True(t, snap.Unlocked)

	m.SetUnlocked(false)
	snap, err = m.Snapshot()
	require.NoError(t, err)
	assert.False(t, snap.Unlocked)
}

func TestMetrics_WriteText(t *testing.T) {
	t.Parallel()
	m := New()
	m.RecordOperation("lock", nil)
	m.RecordUnlockFailure()

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, "# TYPE satvault_operations_total counter")
	assert.Contains(t, out, `satvault_operations_total{op="lock",result="ok"} 1`)
	assert.Contains(t, out, "satvault_unlock_failures_total 1")
	assert.Contains(t, out, "# TYPE satvault_kdf_seconds histogram")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()
	var m *Metrics

	m.RecordOperation("unlock", nil)
	m.RecordRejection("unlock")
	m.RecordUnlockFailure()
	m.ObserveKDF(time.Second)
	m.SetUnlocked(true)
	assert.Nil(t, m.Registry())

	snap, err := m.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap.Operations)

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	assert.Empty(t, buf.String())
}

func TestMetrics_ConcurrentRecording(t *testing.T) {
	t.Parallel()
	m := New()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordOperation("sign", nil)
		}()
	}
	wg.Wait()

	snap, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, int64(50), snap.Operations["sign"].OK)
}

func TestNew_IndependentRegistries(t *testing.T) {
	t.Parallel()
	a, b := New(), New()
	a.RecordOperation("create", nil)

	snap, err := b.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap.Operations)
}
