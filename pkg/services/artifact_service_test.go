package services

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListModelFilesMissingDirectory(t *testing.T) {
	files, err := ListModelFiles(filepath.Join(t.TempDir(), "models"))
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NotNil(t, files)
}

func TestListModelFilesFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "model_b.bin"), "x")
	writeFile(t, filepath.Join(dir, "model_a.txt"), "x")
	writeFile(t, filepath.Join(dir, "notes.md"), "x")
	writeFile(t, filepath.Join(dir, "model_c.json"), "x")
	// サブディレクトリは探索しない
	writeFile(t, filepath.Join(dir, "nested", "model_d.txt"), "x")

	files, err := ListModelFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"model_a.txt", "model_b.bin"}, files)
}

func TestDeriveDatasetPath(t *testing.T) {
	testCases := []struct {
		model    string
		expected string
	}{
		{"model_store1.txt", "detailed_predictions_store1.csv"},
		{"model_storeA.bin", "detailed_predictions_storeA.csv"},
		{"model_lgbm_v2.txt", "detailed_predictions_lgbm_v2.csv"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, DeriveDatasetPath(tc.model), tc.model)
	}
}

func TestDiscoverNoModels(t *testing.T) {
	svc := NewArtifactService(filepath.Join(t.TempDir(), "models"), t.TempDir())

	_, err := svc.Discover()
	var noModels *NoModelsFoundError
	require.True(t, errors.As(err, &noModels))
	assert.Equal(t, "no_models_found", ErrorKind(err))
}

func TestResolveMissingDataset(t *testing.T) {
	root := t.TempDir()
	modelsDir := filepath.Join(root, "models")
	writeFile(t, filepath.Join(modelsDir, "model_storeA.bin"), "x")

	svc := NewArtifactService(modelsDir, root)
	_, err := svc.Resolve("model_storeA.bin")

	var missing *MissingDatasetFileError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "detailed_predictions_storeA.csv", missing.DatasetFile)
	assert.Contains(t, err.Error(), "'detailed_predictions_storeA.csv'")
}

func TestResolveSuccess(t *testing.T) {
	root := t.TempDir()
	modelsDir := filepath.Join(root, "models")
	writeFile(t, filepath.Join(modelsDir, "model_store1.txt"), "x")
	writeFile(t, filepath.Join(root, "detailed_predictions_store1.csv"), store1CSV)

	svc := NewArtifactService(modelsDir, root)
	sel, err := svc.Resolve("model_store1.txt")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(modelsDir, "model_store1.txt"), sel.ModelPath)
	assert.Equal(t, "detailed_predictions_store1.csv", sel.DatasetFile)
	assert.Equal(t, filepath.Join(root, "detailed_predictions_store1.csv"), sel.DatasetPath)
}

func TestResolveUnknownModel(t *testing.T) {
	root := t.TempDir()
	modelsDir := filepath.Join(root, "models")
	writeFile(t, filepath.Join(modelsDir, "model_store1.txt"), "x")

	svc := NewArtifactService(modelsDir, root)
	_, err := svc.Resolve("../secret.txt")
	assert.True(t, IsValidation(err))
}
