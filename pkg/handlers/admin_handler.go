package handlers

import (
	"net/http"

	"sales-forecaster/pkg/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler は運用向け操作のハンドラです。
type AdminHandler struct {
	dashboard *services.DashboardService
}

// NewAdminHandler は新しいAdminHandlerを生成します。
func NewAdminHandler(dashboard *services.DashboardService) *AdminHandler {
	return &AdminHandler{dashboard: dashboard}
}

// GetCacheStatus はモデル・データセットのキャッシュ内容を返します。
// キャッシュは無期限で保持され、自動では破棄されません（WATCH_ARTIFACTS 有効時を除く）。
func (h *AdminHandler) GetCacheStatus(c *gin.Context) {
	modelPaths := h.dashboard.Models().CachedPaths()
	datasetFiles := h.dashboard.Datasets().CachedFiles()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"models":        modelPaths,
			"datasets":      datasetFiles,
			"model_count":   len(modelPaths),
			"dataset_count": len(datasetFiles),
		},
	})
}

// HealthCheck は外部のヘルスチェッカー（例: ロードバランサー）からのリクエストに応答します。
func (h *AdminHandler) HealthCheck(c *gin.Context) {
	files, err := h.dashboard.Artifacts().Discover()
	if err != nil {
		c.JSON(statusForError(err), gin.H{"status": "unavailable", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "models": len(files)})
}
