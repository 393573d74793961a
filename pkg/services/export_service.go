package services

import (
	"bytes"
	"fmt"

	"sales-forecaster/pkg/models"

	"github.com/xuri/excelize/v2"
)

const (
	forecastSheet = "Forecast"
	summarySheet  = "Summary"
)

// ExportService は予測結果をExcelブックに書き出します。
type ExportService struct{}

// NewExportService 新しいExportServiceを作成
func NewExportService() *ExportService {
	return &ExportService{}
}

// Filename returns the download name for a result.
func (s *ExportService) Filename(result *models.ForecastResult) string {
	return fmt.Sprintf("forecast_store%d_item%d_%s_%s.xlsx", result.StoreNbr, result.ItemNbr, result.StartDate, result.EndDate)
}

// BuildWorkbook writes the daily forecast, a summary sheet, and a line chart.
func (s *ExportService) BuildWorkbook(result *models.ForecastResult) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", forecastSheet); err != nil {
		return nil, fmt.Errorf("シート名の設定に失敗: %w", err)
	}
	if err := f.SetSheetRow(forecastSheet, "A1", &[]interface{}{"Date", "Predicted Sales"}); err != nil {
		return nil, err
	}
	for i, p := range result.Points {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(forecastSheet, cell, &[]interface{}{p.Date, p.PredictedSales}); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(forecastSheet, "A", "B", 16); err != nil {
		return nil, err
	}

	if len(result.Points) > 0 {
		last := len(result.Points) + 1
		chart := &excelize.Chart{
			Type: excelize.Line,
			Series: []excelize.ChartSeries{
				{
					Name:       fmt.Sprintf("%s!$B$1", forecastSheet),
					Categories: fmt.Sprintf("%s!$A$2:$A$%d", forecastSheet, last),
					Values:     fmt.Sprintf("%s!$B$2:$B$%d", forecastSheet, last),
					Marker:     excelize.ChartMarker{Symbol: "circle", Size: 5},
				},
			},
			Title: []excelize.RichTextRun{{Text: fmt.Sprintf("Forecast for Item %d in Store %d", result.ItemNbr, result.StoreNbr)}},
			XAxis: excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Date"}}},
			YAxis: excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Predicted Unit Sales"}}},
		}
		if err := f.AddChart(forecastSheet, "D2", chart); err != nil {
			return nil, fmt.Errorf("グラフの追加に失敗: %w", err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	rows := [][]interface{}{
		{"Model", result.ModelFile},
		{"Store", result.StoreNbr},
		{"Item", result.ItemNbr},
		{"Start Date", result.StartDate},
		{"End Date", result.EndDate},
		{"Days", result.Days},
		{"Total Forecasted Sales", result.Total},
		{"Average Daily Sales", result.Average},
		{"Estimated Uncertainty", result.Uncertainty},
		{"Lower Bound", result.Lower},
		{"Upper Bound", result.Upper},
		{"Generated At", result.GeneratedAt},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 24); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}
