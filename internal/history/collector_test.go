package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T, retention RetentionConfig) *Collector {
	tempDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	collector, err := NewCollector(filepath.Join(tempDir, "history.db"), retention)
	require.NoError(t, err)
	t.Cleanup(func() { collector.Close() })
	return collector
}

func TestCollectorRecordAndQuery(t *testing.T) {
	collector := newTestCollector(t, DefaultRetentionConfig())

	outcomes := []ServiceOutcome{
		{Service: "web", Succeeded: true, HealthVerified: true, State: "HEALTHY"},
		{Service: "api", Succeeded: false, HealthVerified: false, State: "UNHEALTHY", Reason: "start failed"},
	}
	require.NoError(t, collector.RecordExecution("rb-abc123def456", "bad deploy", false, false, 42*time.Second, outcomes))

	executions, err := collector.RecentExecutions(10)
	require.NoError(t, err)
	require.Len(t, executions, 1)

	e := executions[0]
	assert.Equal(t, "rb-abc123def456", e.PointID)
	assert.Equal(t, "bad deploy", e.Description)
	assert.False(t, e.DryRun)
	assert.False(t, e.Success)
	assert.Equal(t, 42*time.Second, e.Duration)

	got, err := collector.ExecutionOutcomes(e.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "web", got[0].Service)
	assert.True(t, got[0].Succeeded)
	assert.Equal(t, "api", got[1].Service)
	assert.Equal(t, "start failed", got[1].Reason)
}

func TestCollectorRecentExecutionsNewestFirst(t *testing.T) {
	collector := newTestCollector(t, DefaultRetentionConfig())

	require.NoError(t, collector.RecordExecution("rb-111111111111", "first", false, true, time.Second, nil))
	require.NoError(t, collector.RecordExecution("rb-222222222222", "second", false, true, time.Second, nil))

	executions, err := collector.RecentExecutions(10)
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "rb-222222222222", executions[0].PointID)
	assert.Equal(t, "rb-111111111111", executions[1].PointID)
}

func TestCollectorRetentionByRecordCount(t *testing.T) {
	collector := newTestCollector(t, RetentionConfig{Enabled: true, MaxRecords: 2})

	require.NoError(t, collector.RecordExecution("rb-aaaaaaaaaaaa", "a", false, true, time.Second, nil))
	require.NoError(t, collector.RecordExecution("rb-bbbbbbbbbbbb", "b", false, true, time.Second, nil))
	require.NoError(t, collector.RecordExecution("rb-cccccccccccc", "c", false, true, time.Second, nil))

	executions, err := collector.RecentExecutions(10)
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "rb-cccccccccccc", executions[0].PointID)
	assert.Equal(t, "rb-bbbbbbbbbbbb", executions[1].PointID)
}

func TestCollectorRetentionDisabled(t *testing.T) {
	collector := newTestCollector(t, RetentionConfig{Enabled: false, MaxRecords: 1})

	require.NoError(t, collector.RecordExecution("rb-aaaaaaaaaaaa", "a", false, true, time.Second, nil))
	require.NoError(t, collector.RecordExecution("rb-bbbbbbbbbbbb", "b", false, true, time.Second, nil))

	executions, err := collector.RecentExecutions(10)
	require.NoError(t, err)
	assert.Len(t, executions, 2)
}

func TestCollectorDryRunRecorded(t *testing.T) {
	collector := newTestCollector(t, DefaultRetentionConfig())

	require.NoError(t, collector.RecordExecution("rb-dddddddddddd", "plan only", true, true, 0, nil))

	executions, err := collector.RecentExecutions(1)
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.True(t, executions[0].DryRun)
}
