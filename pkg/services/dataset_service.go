package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"sales-forecaster/pkg/metrics"
	"sales-forecaster/pkg/models"
)

// DatasetService は予測データCSVから店舗・商品の一覧を読み込み、ファイル名ごとにキャッシュします。
type DatasetService struct {
	mu    sync.RWMutex
	cache map[string]*models.DatasetSummary
}

// NewDatasetService 新しいDatasetServiceを作成
func NewDatasetService() *DatasetService {
	return &DatasetService{
		cache: make(map[string]*models.DatasetSummary),
	}
}

// LoadSummary returns the cached summary for filename or reads the CSV on first use.
func (s *DatasetService) LoadSummary(filename string) (*models.DatasetSummary, error) {
	s.mu.RLock()
	if summary, ok := s.cache[filename]; ok {
		s.mu.RUnlock()
		metrics.ObserveCache("dataset", true)
		return summary, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if summary, ok := s.cache[filename]; ok { // double-check
		metrics.ObserveCache("dataset", true)
		return summary, nil
	}
	metrics.ObserveCache("dataset", false)

	start := time.Now()
	summary, err := loadSummaryFile(filename)
	if err != nil {
		return nil, &DataLoadError{Filename: filename, Err: err}
	}
	metrics.LoadDuration.WithLabelValues("dataset").Observe(time.Since(start).Seconds())

	s.cache[filename] = summary
	metrics.CacheEntries.WithLabelValues("dataset").Set(float64(len(s.cache)))
	log.Printf("📊 [データ] %s: %d行, 店舗%d件, 商品%d件 (%v)", filename, summary.Rows, len(summary.Stores), len(summary.Items), time.Since(start))
	return summary, nil
}

// Invalidate drops the cached entry for filename and reports whether one existed.
func (s *DatasetService) Invalidate(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cache[filename]
	delete(s.cache, filename)
	metrics.CacheEntries.WithLabelValues("dataset").Set(float64(len(s.cache)))
	return ok
}

// CachedFiles returns the sorted cache keys.
func (s *DatasetService) CachedFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.cache))
	for f := range s.cache {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func loadSummaryFile(filename string) (*models.DatasetSummary, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	summary, err := ParseDatasetSummary(f)
	if err != nil {
		return nil, err
	}
	summary.Filename = filename
	return summary, nil
}

// ParseDatasetSummary reads CSV rows and collects the distinct store_nbr and item_nbr values,
// each sorted ascending.
func ParseDatasetSummary(r io.Reader) (*models.DatasetSummary, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: no data")
		}
		return nil, err
	}
	header = normalizeHeader(header)

	storeIdx := findColumn(header, "store_nbr")
	itemIdx := findColumn(header, "item_nbr")
	var missing []string
	if storeIdx == -1 {
		missing = append(missing, "store_nbr")
	}
	if itemIdx == -1 {
		missing = append(missing, "item_nbr")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv: required columns not found: %s", strings.Join(missing, ", "))
	}

	stores := make(map[int64]struct{})
	items := make(map[int64]struct{})
	rows := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows++

		store, err := parseIdentifier(record[storeIdx])
		if err != nil {
			return nil, fmt.Errorf("csv: row %d: store_nbr: %w", rows+1, err)
		}
		item, err := parseIdentifier(record[itemIdx])
		if err != nil {
			return nil, fmt.Errorf("csv: row %d: item_nbr: %w", rows+1, err)
		}
		stores[store] = struct{}{}
		items[item] = struct{}{}
	}

	if rows == 0 {
		return nil, errors.New("csv: no data rows")
	}

	return &models.DatasetSummary{
		Stores: sortedKeys(stores),
		Items:  sortedKeys(items),
		Rows:   rows,
	}, nil
}

// parseIdentifier accepts integer identifiers, including float renderings such as "12.0".
func parseIdentifier(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid identifier %q", s)
	}
	return int64(f), nil
}

func sortedKeys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func normalizeHeader(hdr []string) []string {
	out := make([]string, len(hdr))
	for i, v := range hdr {
		// Remove UTF-8 BOM if present, then trim and lowercase
		v = strings.TrimPrefix(v, "\ufeff")
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func findColumn(hdr []string, name string) int {
	for i, v := range hdr {
		if v == name {
			return i
		}
	}
	return -1
}
