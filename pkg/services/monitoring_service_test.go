package services

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitoringServiceRecordRun(t *testing.T) {
	svc := NewMonitoringService()

	entry := svc.RecordRun(RunEntry{Source: "api", ModelFile: "model_store1.txt", Days: 3})
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
	assert.Equal(t, "success", entry.Outcome)
}

func TestMonitoringServiceDashboardData(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 30, 0, 0, time.UTC)
	svc := NewMonitoringService()
	svc.now = func() time.Time { return now }

	svc.RecordRun(RunEntry{ModelFile: "model_a.txt", Days: 4, Duration: 20 * time.Millisecond})
	svc.RecordRun(RunEntry{ModelFile: "model_a.txt", Days: 2, Duration: 40 * time.Millisecond})
	svc.RecordRun(RunEntry{ModelFile: "model_b.bin", Outcome: "validation", Message: "Error: End date must be after start date."})
	// 集計期間外
	svc.RecordRun(RunEntry{ModelFile: "model_old.txt", Timestamp: now.Add(-48 * time.Hour)})

	data := svc.GetDashboardData(24)

	assert.Len(t, data.RunsOverTime, 24)
	assert.Equal(t, 3, data.RunsOverTime[23]["runs"])
	assert.Equal(t, map[string]int{"success": 2, "validation": 1}, data.Outcomes)
	assert.Equal(t, map[string]int{"model_a.txt": 2, "model_b.bin": 1}, data.Models)
	assert.Equal(t, int64(20), data.AvgDurationMs)
	assert.Equal(t, 2.0, data.AvgHorizonDays)
	require.Len(t, data.RecentErrors, 1)
	assert.Equal(t, "validation", data.RecentErrors[0].Outcome)
}

func TestMonitoringServiceCap(t *testing.T) {
	svc := NewMonitoringService()
	for i := 0; i < maxRunEntries+5; i++ {
		svc.RecordRun(RunEntry{})
	}
	assert.Len(t, svc.runs, maxRunEntries)
}

func TestMonitoringServiceRecent(t *testing.T) {
	svc := NewMonitoringService()
	svc.RecordRun(RunEntry{ModelFile: "model_a.txt", Days: 1})
	svc.RecordRun(RunEntry{ModelFile: "model_b.bin", Days: 2})
	svc.RecordRun(RunEntry{ModelFile: "model_a.txt", Days: 3})

	recent := svc.Recent(2, "")
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].Days)
	assert.Equal(t, 2, recent[1].Days)

	onlyA := svc.Recent(10, "model_a.txt")
	require.Len(t, onlyA, 2)
	assert.Equal(t, 3, onlyA[0].Days)
	assert.Equal(t, 1, onlyA[1].Days)
}

func TestMonitoringServiceRecentHugeLimit(t *testing.T) {
	svc := NewMonitoringService()
	svc.RecordRun(RunEntry{ModelFile: "model_a.txt"})

	var recent []RunEntry
	assert.NotPanics(t, func() { recent = svc.Recent(math.MaxInt, "") })
	assert.Len(t, recent, 1)
	assert.Empty(t, NewMonitoringService().Recent(math.MaxInt, ""))
}
