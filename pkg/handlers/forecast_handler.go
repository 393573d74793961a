package handlers

import (
	"fmt"
	"net/http"

	"sales-forecaster/pkg/models"
	"sales-forecaster/pkg/services"

	"github.com/gin-gonic/gin"
)

// ForecastHandler 売上予測APIハンドラー
type ForecastHandler struct {
	dashboard *services.DashboardService
	export    *services.ExportService
}

// NewForecastHandler 新しい売上予測ハンドラーを作成
func NewForecastHandler(dashboard *services.DashboardService, export *services.ExportService) *ForecastHandler {
	return &ForecastHandler{
		dashboard: dashboard,
		export:    export,
	}
}

// ForecastAPIRequest 予測APIのリクエスト
type ForecastAPIRequest struct {
	Model     string `json:"model" form:"model" binding:"required"`
	StoreNbr  *int64 `json:"store_nbr" form:"store_nbr" binding:"required"`
	ItemNbr   *int64 `json:"item_nbr" form:"item_nbr" binding:"required"`
	StartDate string `json:"start_date" form:"start_date" binding:"required"`
	EndDate   string `json:"end_date" form:"end_date" binding:"required"`
}

// ListModels 利用可能なモデルファイルの一覧を返す
func (h *ForecastHandler) ListModels(c *gin.Context) {
	files, err := h.dashboard.Artifacts().Discover()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"models":     files,
			"models_dir": h.dashboard.Artifacts().ModelsDir(),
		},
	})
}

// GetModelOptions モデルに対応するデータセットの店舗・商品一覧を返す
func (h *ForecastHandler) GetModelOptions(c *gin.Context) {
	sel, model, summary, err := h.dashboard.Prepare(c.Param("model"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"selection": sel,
			"rmse":      model.RMSE,
			"stores":    summary.Stores,
			"items":     summary.Items,
			"rows":      summary.Rows,
		},
	})
}

// PredictSales 売上予測を実行
func (h *ForecastHandler) PredictSales(c *gin.Context) {
	var request ForecastAPIRequest

	// リクエストボディをバインド
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, &services.ValidationError{Field: "body", Message: "リクエストの解析に失敗しました: " + err.Error()})
		return
	}

	result, ok := h.run(c, "api", request)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
		"summary": services.SummaryMarkdown(result),
	})
}

// ExportForecast 予測結果をExcelファイルとしてダウンロード
func (h *ForecastHandler) ExportForecast(c *gin.Context) {
	var request ForecastAPIRequest
	if err := c.ShouldBindQuery(&request); err != nil {
		respondError(c, &services.ValidationError{Field: "query", Message: "クエリの解析に失敗しました: " + err.Error()})
		return
	}

	result, ok := h.run(c, "export", request)
	if !ok {
		return
	}

	buf, err := h.export.BuildWorkbook(result)
	if err != nil {
		respondError(c, fmt.Errorf("Excelファイルの作成に失敗しました: %w", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.export.Filename(result)))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// run resolves the model, validates the request, and forecasts.
// On failure it writes the error response and returns false.
func (h *ForecastHandler) run(c *gin.Context, source string, request ForecastAPIRequest) (*models.ForecastResult, bool) {
	start, err := services.ParseDate("start_date", request.StartDate)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	end, err := services.ParseDate("end_date", request.EndDate)
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	_, model, summary, err := h.dashboard.Prepare(request.Model)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if err := services.CheckIdentifiers(summary, *request.StoreNbr, *request.ItemNbr); err != nil {
		respondError(c, err)
		return nil, false
	}

	result, err := h.dashboard.RunForecast(c.Request.Context(), source, model, models.ForecastRequest{
		ModelFile: request.Model,
		StoreNbr:  *request.StoreNbr,
		ItemNbr:   *request.ItemNbr,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return result, true
}
