package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"

	config "sales-forecaster/configs"
	"sales-forecaster/pkg/models"
	"sales-forecaster/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
)

//go:embed templates/*.html
var templatesFS embed.FS

// LoadTemplates parses the embedded page templates.
func LoadTemplates() (*template.Template, error) {
	return template.ParseFS(templatesFS, "templates/*.html")
}

// DashboardHandler はHTMLダッシュボードを描画します。
type DashboardHandler struct {
	dashboard *services.DashboardService
	cfg       *config.DashboardConfig
	md        goldmark.Markdown
}

// NewDashboardHandler 新しいDashboardHandlerを作成
func NewDashboardHandler(dashboard *services.DashboardService, cfg *config.DashboardConfig) *DashboardHandler {
	if cfg == nil {
		cfg = config.DefaultDashboardConfig()
	}
	return &DashboardHandler{
		dashboard: dashboard,
		cfg:       cfg,
		md:        goldmark.New(),
	}
}

type dashboardQuery struct {
	Model     string `form:"model"`
	Store     string `form:"store"`
	Item      string `form:"item"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Run       string `form:"run"`
}

// dashboardPage is the template model.
type dashboardPage struct {
	Config           *config.DashboardConfig
	View             *services.DashboardView
	SummaryHTML      template.HTML
	TotalLabel       string
	UncertaintyLabel string
	ChartSpec        template.JS
}

// Index は入力のたびにパイプライン全体を再実行して画面を返します。
func (h *DashboardHandler) Index(c *gin.Context) {
	var q dashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		log.Printf("⚠️ [ダッシュボード] クエリの解析に失敗: %v", err)
	}

	view := h.dashboard.Run(c.Request.Context(), services.DashboardInputs{
		ModelFile: q.Model,
		Store:     q.Store,
		Item:      q.Item,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Submit:    q.Run != "",
	})

	page := dashboardPage{Config: h.cfg, View: view}
	if view.Result != nil {
		page.TotalLabel = fmt.Sprintf("%.0f units", view.Result.Total)
		page.UncertaintyLabel = fmt.Sprintf("± %.0f units", view.Result.Uncertainty)
		page.SummaryHTML = h.renderMarkdown(view.Summary)
		spec, err := ChartSpec(view.Result, h.cfg)
		if err != nil {
			log.Printf("❌ [ダッシュボード] グラフ定義の生成に失敗: %v", err)
		} else {
			page.ChartSpec = template.JS(spec)
		}
	}

	c.HTML(statusForKind(view.FatalKind), "dashboard.html", page)
}

// renderMarkdown converts the summary; raw HTML in the source is not passed through.
func (h *DashboardHandler) renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// ChartSpec returns an interactive Vega-Lite line-and-point chart of date vs predicted sales.
func ChartSpec(result *models.ForecastResult, cfg *config.DashboardConfig) ([]byte, error) {
	spec := map[string]interface{}{
		"$schema": "https://vega.github.io/schema/vega-lite/v5.json",
		"width":   "container",
		"height":  cfg.Chart.Height,
		"data":    map[string]interface{}{"values": result.Points},
		"mark": map[string]interface{}{
			"type":    "line",
			"point":   true,
			"tooltip": true,
		},
		"encoding": map[string]interface{}{
			"x": map[string]interface{}{"field": "date", "type": "temporal", "title": cfg.Chart.XAxisTitle},
			"y": map[string]interface{}{"field": "predicted_sales", "type": "quantitative", "title": cfg.Chart.YAxisTitle},
		},
		// pan/zoom
		"params": []interface{}{
			map[string]interface{}{"name": "zoom", "select": "interval", "bind": "scales"},
		},
	}
	return json.Marshal(spec)
}
