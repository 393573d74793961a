package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sales-forecaster/pkg/models"
)

const (
	modelPrefix   = "model_"
	datasetPrefix = "detailed_predictions_"
	datasetExt    = ".csv"
)

// ModelExtensions are the two accepted serializations of a boosted-tree model.
var ModelExtensions = []string{".txt", ".bin"}

// ArtifactService はモデルファイルの探索と、対応するデータセットの解決を行います。
type ArtifactService struct {
	modelsDir  string
	datasetDir string
}

// NewArtifactService 新しいArtifactServiceを作成
func NewArtifactService(modelsDir, datasetDir string) *ArtifactService {
	if datasetDir == "" {
		datasetDir = "."
	}
	return &ArtifactService{
		modelsDir:  modelsDir,
		datasetDir: datasetDir,
	}
}

// ModelsDir returns the scanned directory.
func (s *ArtifactService) ModelsDir() string { return s.modelsDir }

// DatasetDir returns the directory companion CSVs are read from.
func (s *ArtifactService) DatasetDir() string { return s.datasetDir }

// ListModelFiles は dir 直下のモデルファイル名を返します。
// ディレクトリが存在しない場合はエラーではなく空のスライスを返します。
func ListModelFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("モデルディレクトリの読み込みに失敗: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isModelFile(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// DeriveDatasetPath maps model_<NAME>.<ext> to detailed_predictions_<NAME>.csv.
func DeriveDatasetPath(modelFile string) string {
	name := strings.ReplaceAll(modelFile, modelPrefix, datasetPrefix)
	ext := filepath.Ext(name)
	if isModelExt(ext) {
		name = strings.TrimSuffix(name, ext)
	}
	return name + datasetExt
}

// Discover はモデルファイル一覧を返します。1件も無い場合はNoModelsFoundErrorです。
func (s *ArtifactService) Discover() ([]string, error) {
	files, err := ListModelFiles(s.modelsDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &NoModelsFoundError{Dir: s.modelsDir}
	}
	return files, nil
}

// Resolve は選択されたモデルのパスと、対応するデータセットのパスを解決します。
func (s *ArtifactService) Resolve(modelFile string) (*models.ModelSelection, error) {
	files, err := s.Discover()
	if err != nil {
		return nil, err
	}

	found := false
	for _, f := range files {
		if f == modelFile {
			found = true
			break
		}
	}
	if !found {
		return nil, &ValidationError{
			Field:   "model",
			Message: fmt.Sprintf("Model '%s' is not available in the '%s' folder.", modelFile, s.modelsDir),
		}
	}

	datasetFile := DeriveDatasetPath(modelFile)
	datasetPath := filepath.Join(s.datasetDir, datasetFile)
	if info, err := os.Stat(datasetPath); err != nil || info.IsDir() {
		return nil, &MissingDatasetFileError{ModelFile: modelFile, DatasetFile: datasetFile}
	}

	return &models.ModelSelection{
		ModelFile:   modelFile,
		ModelPath:   filepath.Join(s.modelsDir, modelFile),
		DatasetFile: datasetFile,
		DatasetPath: datasetPath,
	}, nil
}

func isModelFile(name string) bool {
	return isModelExt(filepath.Ext(name))
}

func isModelExt(ext string) bool {
	for _, e := range ModelExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
