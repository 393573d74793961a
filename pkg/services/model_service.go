package services

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"sales-forecaster/pkg/metrics"

	"github.com/dmitryikh/leaves"
)

// Predictor is the inference contract of a trained model.
// Each input row holds the columns of models.FeatureColumns.
type Predictor interface {
	Predict(rows [][]float64) ([]float64, error)
}

// ModelDecoder deserializes a model file into a Predictor.
type ModelDecoder func(path string) (Predictor, error)

// LoadedModel はデシリアライズ済みのモデルと、その不確実性計算に使うRMSEの組です。
type LoadedModel struct {
	Path      string
	Predictor Predictor
	RMSE      float64
	LoadedAt  time.Time
}

// ModelService はモデルをパスごとにキャッシュして読み込みます。
// キャッシュはプロセス終了まで保持され、Invalidateが呼ばれない限り破棄されません。
type ModelService struct {
	mu     sync.RWMutex
	cache  map[string]*LoadedModel
	rmse   float64
	decode ModelDecoder
}

// NewModelService creates a ModelService backed by leaves.
func NewModelService(rmse float64) *ModelService {
	return NewModelServiceWithDecoder(rmse, DecodeEnsemble)
}

// NewModelServiceWithDecoder creates a ModelService with a custom decoder.
func NewModelServiceWithDecoder(rmse float64, decode ModelDecoder) *ModelService {
	return &ModelService{
		cache:  make(map[string]*LoadedModel),
		rmse:   rmse,
		decode: decode,
	}
}

// Load returns the cached model for path or deserializes it on first use.
func (s *ModelService) Load(path string) (*LoadedModel, error) {
	s.mu.RLock()
	if m, ok := s.cache[path]; ok {
		s.mu.RUnlock()
		metrics.ObserveCache("model", true)
		return m, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.cache[path]; ok { // double-check
		metrics.ObserveCache("model", true)
		return m, nil
	}
	metrics.ObserveCache("model", false)

	log.Printf("📦 [モデル] 読み込み開始: %s", path)
	start := time.Now()
	predictor, err := s.decode(path)
	if err != nil {
		return nil, &DeserializationError{Path: path, Err: err}
	}
	metrics.LoadDuration.WithLabelValues("model").Observe(time.Since(start).Seconds())

	m := &LoadedModel{
		Path:      path,
		Predictor: predictor,
		RMSE:      s.rmse,
		LoadedAt:  time.Now(),
	}
	s.cache[path] = m
	metrics.CacheEntries.WithLabelValues("model").Set(float64(len(s.cache)))
	log.Printf("✅ [モデル] 読み込み完了: %s (%v)", path, time.Since(start))
	return m, nil
}

// Invalidate drops the cached entry for path and reports whether one existed.
func (s *ModelService) Invalidate(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cache[path]
	delete(s.cache, path)
	metrics.CacheEntries.WithLabelValues("model").Set(float64(len(s.cache)))
	return ok
}

// CachedPaths returns the sorted cache keys.
func (s *ModelService) CachedPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.cache))
	for p := range s.cache {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// xgbHeaderParamSize は XGBoost バイナリ先頭の LearnerModelParam のバイト数です。
const xgbHeaderParamSize = 136

// maxHeaderString は XGBoost ヘッダ内の文字列長の上限です。これを超えるファイルは壊れているとみなします。
const maxHeaderString = 256

// rawOutputObjectives は出力変換を必要としない目的関数です。
// これらに限り、leaves が変換を読めない場合に生スコアで読み直します。
var rawOutputObjectives = map[string]bool{
	"regression":           true,
	"regression_l1":        true,
	"regression_l2":        true,
	"l1":                   true,
	"l2":                   true,
	"mse":                  true,
	"mae":                  true,
	"rmse":                 true,
	"huber":                true,
	"fair":                 true,
	"quantile":             true,
	"mape":                 true,
	"reg:squarederror":     true,
	"reg:linear":           true,
	"reg:absoluteerror":    true,
	"reg:pseudohubererror": true,
	"reg:quantileerror":    true,
}

type ensembleLoader func(string, bool) (*leaves.Ensemble, error)

// DecodeEnsemble reads a boosted-tree model. .txt is a LightGBM text model; .bin is read as
// LightGBM text when it carries the text header and as an XGBoost binary model otherwise.
func DecodeEnsemble(path string) (Predictor, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	var (
		load      ensembleLoader
		objective func(string) (string, error)
	)
	switch filepath.Ext(path) {
	case ".txt":
		load, objective = leaves.LGEnsembleFromFile, lightGBMObjective
	case ".bin":
		isText, err := hasLightGBMTextHeader(path)
		if err != nil {
			return nil, err
		}
		if isText {
			load, objective = leaves.LGEnsembleFromFile, lightGBMObjective
		} else {
			// ヘッダを先に検証し、壊れた長さフィールドによる巨大な確保を防ぐ
			if _, err := xgboostObjective(path); err != nil {
				return nil, err
			}
			load, objective = leaves.XGEnsembleFromFile, xgboostObjective
		}
	default:
		return nil, fmt.Errorf("unsupported model extension: %s", filepath.Ext(path))
	}

	ensemble, err := safeLoad(load, path, true)
	if err != nil {
		obj, objErr := objective(path)
		if objErr != nil {
			return nil, fmt.Errorf("%w (objective unreadable: %v)", err, objErr)
		}
		if !rawOutputObjectives[obj] {
			return nil, fmt.Errorf("objective %q needs an output transformation that cannot be applied: %w", obj, err)
		}
		log.Printf("⚠️ [モデル] 目的関数 %s は変換不要のため生スコアで読み込みます: %s", obj, path)
		ensemble, err = safeLoad(load, path, false)
		if err != nil {
			return nil, err
		}
	}
	if ensemble.NOutputGroups() != 1 {
		return nil, fmt.Errorf("regression model expected, got %d output groups", ensemble.NOutputGroups())
	}
	return &ensemblePredictor{ensemble: ensemble}, nil
}

// safeLoad converts a panic inside the leaves readers into an error.
func safeLoad(load ensembleLoader, path string, transform bool) (ensemble *leaves.Ensemble, err error) {
	defer func() {
		if r := recover(); r != nil {
			ensemble = nil
			err = fmt.Errorf("malformed model file: %v", r)
		}
	}()
	return load(path, transform)
}

// hasLightGBMTextHeader reports whether the file starts with the LightGBM text header line.
func hasLightGBMTextHeader(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 6)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	head = head[:n]
	return bytes.HasPrefix(head, []byte("tree\n")) || bytes.HasPrefix(head, []byte("tree\r\n")), nil
}

// lightGBMObjective returns the objective name from the header of a LightGBM text model.
func lightGBMObjective(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break // ヘッダの終わり
		}
		if v, ok := strings.CutPrefix(line, "objective="); ok {
			if fields := strings.Fields(v); len(fields) > 0 {
				return fields[0], nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", errors.New("no objective in model header")
}

// xgboostObjective reads the objective name from an XGBoost binary model header.
func xgboostObjective(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	if _, err := r.Discard(xgbHeaderParamSize); err != nil {
		return "", fmt.Errorf("xgboost header: %w", err)
	}
	var size uint64
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return "", fmt.Errorf("xgboost header: %w", err)
	}
	if size == 0 || size > maxHeaderString {
		return "", fmt.Errorf("xgboost header: invalid objective length %d", size)
	}
	name := make([]byte, size)
	if _, err := io.ReadFull(r, name); err != nil {
		return "", fmt.Errorf("xgboost header: %w", err)
	}
	return string(name), nil
}

// ensemblePredictor adapts a leaves ensemble to Predictor.
type ensemblePredictor struct {
	ensemble *leaves.Ensemble
}

func (p *ensemblePredictor) Predict(rows [][]float64) ([]float64, error) {
	nrows := len(rows)
	if nrows == 0 {
		return []float64{}, nil
	}
	ncols := len(rows[0])
	if ncols < p.ensemble.NFeatures() {
		return nil, fmt.Errorf("feature matrix has %d columns, model expects %d", ncols, p.ensemble.NFeatures())
	}

	flat := make([]float64, 0, nrows*ncols)
	for i, row := range rows {
		if len(row) != ncols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), ncols)
		}
		flat = append(flat, row...)
	}

	predictions := make([]float64, nrows)
	// nEstimators=0 uses every tree in the ensemble
	if err := p.ensemble.PredictDense(flat, nrows, ncols, predictions, 0, 1); err != nil {
		return nil, err
	}
	return predictions, nil
}
