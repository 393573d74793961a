package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	config "sales-forecaster/configs"
	"sales-forecaster/pkg/handlers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// テスト環境の設定
	gin.SetMode(gin.TestMode)

	// .envファイルを読み込み（テスト環境では無視される可能性がある）
	godotenv.Load("../../.env")

	// テスト実行
	code := m.Run()

	// 終了
	os.Exit(code)
}

func TestApplicationSetup(t *testing.T) {
	// 設定の読み込みテスト
	cfg := config.LoadConfig()
	assert.NotNil(t, cfg, "Config should not be nil")

	ui, err := config.LoadDashboardConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	// サービスの初期化テスト
	deps := handlers.NewDependencies(cfg, ui)
	assert.NotNil(t, deps.Dashboard, "DashboardService should not be nil")
	assert.NotNil(t, deps.Export, "ExportService should not be nil")
	assert.NotNil(t, deps.Dashboard.Monitoring(), "MonitoringService should not be nil")
	assert.Equal(t, cfg.ModelsDir, deps.Dashboard.Artifacts().ModelsDir())
}

func TestRouterSetup(t *testing.T) {
	root := t.TempDir()
	modelsDir := filepath.Join(root, "models")
	require.NoError(t, os.MkdirAll(modelsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modelsDir, "model_store1.txt"), []byte("x"), 0o644))

	cfg := &config.Config{
		Port:           "0",
		ModelsDir:      modelsDir,
		DatasetDir:     root,
		ModelRMSE:      config.DefaultModelRMSE,
		MaxHorizonDays: 366,
	}

	// ルーターの初期化
	r, err := handlers.NewRouter(handlers.NewDependencies(cfg, nil))
	require.NoError(t, err)

	// ヘルスチェックのテスト
	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// モデル一覧のテスト
	req, _ = http.NewRequest("GET", "/api/v1/models", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "model_store1.txt")

	// データセットが無いのでダッシュボードはエラーのみ表示
	req, _ = http.NewRequest("GET", "/", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "detailed_predictions_store1.csv")
}

func TestEnvironmentVariables(t *testing.T) {
	// テスト用の環境変数を設定
	testEnvVars := map[string]string{
		"MODELS_DIR":  "/tmp/forecaster-models",
		"DATASET_DIR": "/tmp/forecaster-data",
		"MODEL_RMSE":  "21.5",
	}

	// 環境変数を設定
	for key, value := range testEnvVars {
		os.Setenv(key, value)
	}

	// テスト後にクリーンアップ
	defer func() {
		for key := range testEnvVars {
			os.Unsetenv(key)
		}
	}()

	cfg := config.LoadConfig()
	assert.Equal(t, "/tmp/forecaster-models", cfg.ModelsDir)
	assert.Equal(t, "/tmp/forecaster-data", cfg.DatasetDir)
	assert.Equal(t, 21.5, cfg.ModelRMSE)
}
