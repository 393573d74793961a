package services

import (
	"sort"
	"sync"
	"time"

	"sales-forecaster/pkg/metrics"

	"github.com/google/uuid"
)

// maxRunEntries は保持する実行ログの上限です。
const maxRunEntries = 10000

// RunEntry は1回のパイプライン実行の記録です。
type RunEntry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Source    string        `json:"source"` // "dashboard", "api", "export"
	ModelFile string        `json:"model_file"`
	StoreNbr  int64         `json:"store_nbr"`
	ItemNbr   int64         `json:"item_nbr"`
	Days      int           `json:"days"`
	Outcome   string        `json:"outcome"` // "success" またはエラー種別
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// MonitoringService は予測パイプラインの実行履歴を保持します。
type MonitoringService struct {
	runs []RunEntry
	mu   sync.RWMutex
	now  func() time.Time
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
func NewMonitoringService() *MonitoringService {
	return &MonitoringService{
		runs: make([]RunEntry, 0),
		now:  time.Now,
	}
}

// RecordRun は実行結果を記録し、Prometheusのカウンタも更新します。
func (s *MonitoringService) RecordRun(entry RunEntry) RunEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	if entry.Outcome == "" {
		entry.Outcome = "success"
	}
	metrics.ForecastRunsTotal.WithLabelValues(entry.Outcome).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, entry)
	if len(s.runs) > maxRunEntries {
		s.runs = s.runs[len(s.runs)-maxRunEntries:]
	}
	return entry
}

// Recent returns up to limit entries, newest first, optionally filtered by model file.
func (s *MonitoringService) Recent(limit int, modelFile string) []RunEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > len(s.runs) {
		limit = len(s.runs)
	}
	out := make([]RunEntry, 0, limit)
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if modelFile != "" && s.runs[i].ModelFile != modelFile {
			continue
		}
		out = append(out, s.runs[i])
	}
	return out
}

// DashboardData はモニタリング画面に表示するための集計済みデータです。
type DashboardData struct {
	RunsOverTime   []map[string]interface{} `json:"runsOverTime"`
	Outcomes       map[string]int           `json:"outcomes"`
	Models         map[string]int           `json:"models"`
	AvgDurationMs  int64                    `json:"avgDurationMs"`
	AvgHorizonDays float64                  `json:"avgHorizonDays"`
	RecentErrors   []RunEntry               `json:"recentErrors"`
}

// GetDashboardData は指定された期間の実行ログを集計して返します。
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	if periodHours <= 0 {
		periodHours = 24
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().UTC()
	since := now.Add(-time.Duration(periodHours) * time.Hour)

	filtered := make([]RunEntry, 0)
	for _, r := range s.runs {
		if r.Timestamp.After(since) {
			filtered = append(filtered, r)
		}
	}

	// 時間のバケットを初期化し、過去から現在の順に並べる
	buckets := make(map[string]int, periodHours)
	keys := make([]string, periodHours)
	for i := 0; i < periodHours; i++ {
		key := now.Add(-time.Duration(periodHours-1-i) * time.Hour).Truncate(time.Hour).Format(time.RFC3339)
		keys[i] = key
		buckets[key] = 0
	}

	outcomes := make(map[string]int)
	modelUsage := make(map[string]int)
	var totalDuration time.Duration
	totalDays := 0
	for _, r := range filtered {
		key := r.Timestamp.UTC().Truncate(time.Hour).Format(time.RFC3339)
		if _, ok := buckets[key]; ok {
			buckets[key]++
		}
		outcomes[r.Outcome]++
		if r.ModelFile != "" {
			modelUsage[r.ModelFile]++
		}
		totalDuration += r.Duration
		totalDays += r.Days
	}

	runsOverTime := make([]map[string]interface{}, periodHours)
	for i, key := range keys {
		runsOverTime[i] = map[string]interface{}{"time": key, "runs": buckets[key]}
	}

	var avgMs int64
	var avgDays float64
	if len(filtered) > 0 {
		avgMs = totalDuration.Milliseconds() / int64(len(filtered))
		avgDays = float64(totalDays) / float64(len(filtered))
	}

	recentErrors := make([]RunEntry, 0)
	for i := len(filtered) - 1; i >= 0; i-- {
		if filtered[i].Outcome != "success" {
			recentErrors = append(recentErrors, filtered[i])
			if len(recentErrors) >= 10 {
				break
			}
		}
	}
	sort.SliceStable(recentErrors, func(i, j int) bool {
		return recentErrors[i].Timestamp.After(recentErrors[j].Timestamp)
	})

	return DashboardData{
		RunsOverTime:   runsOverTime,
		Outcomes:       outcomes,
		Models:         modelUsage,
		AvgDurationMs:  avgMs,
		AvgHorizonDays: avgDays,
		RecentErrors:   recentErrors,
	}
}
