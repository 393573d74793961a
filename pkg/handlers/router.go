package handlers

import (
	config "sales-forecaster/configs"
	"sales-forecaster/pkg/metrics"
	"sales-forecaster/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies はルーターが必要とするサービス一式です。
type Dependencies struct {
	Dashboard *services.DashboardService
	Export    *services.ExportService
	UI        *config.DashboardConfig
}

// NewDependencies は設定からサービスを組み立てます。
func NewDependencies(cfg *config.Config, ui *config.DashboardConfig) Dependencies {
	if ui == nil {
		ui = config.DefaultDashboardConfig()
	}
	artifacts := services.NewArtifactService(cfg.ModelsDir, cfg.DatasetDir)
	dashboard := services.NewDashboardService(
		artifacts,
		services.NewModelService(cfg.ModelRMSE),
		services.NewDatasetService(),
		services.NewForecastService(cfg.MaxHorizonDays),
		services.NewMonitoringService(),
		ui.Forecast.DefaultHorizonDays,
	)
	return Dependencies{
		Dashboard: dashboard,
		Export:    services.NewExportService(),
		UI:        ui,
	}
}

// NewRouter はGinルーターを初期化し、全ルートを登録します。
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	r := gin.Default()

	tmpl, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	// ミドルウェアの登録
	r.Use(metrics.Middleware())
	r.Use(cors.Default())

	// ハンドラーの初期化
	dashboardHandler := NewDashboardHandler(deps.Dashboard, deps.UI)
	forecastHandler := NewForecastHandler(deps.Dashboard, deps.Export)
	adminHandler := NewAdminHandler(deps.Dashboard)
	monitoringHandler := NewMonitoringHandler(deps.Dashboard.Monitoring())

	// ダッシュボード画面
	r.GET("/", dashboardHandler.Index)

	// ヘルスチェック・メトリクス
	r.GET("/health", adminHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1")
	{
		// 売上予測API
		v1.GET("/models", forecastHandler.ListModels)
		v1.GET("/models/:model/options", forecastHandler.GetModelOptions)
		v1.POST("/forecast", forecastHandler.PredictSales)
		v1.GET("/forecast/export", forecastHandler.ExportForecast)

		// 管理者向けAPI
		admin := v1.Group("/admin")
		{
			admin.GET("/cache", adminHandler.GetCacheStatus)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
			monitoring.GET("/runs", monitoringHandler.GetRecentRuns)
		}
	}

	return r, nil
}
