package models

import "time"

// DateLayout はAPIとダッシュボードで使う日付フォーマットです。
const DateLayout = "2006-01-02"

// FeatureColumns is the exact column order the trained model expects.
var FeatureColumns = []string{
	"store_nbr",
	"item_nbr",
	"onpromotion",
	"year",
	"month",
	"day_of_week",
	"week_of_year",
}

// ModelSelection 選択されたモデルファイルと対応するデータセットのパス
type ModelSelection struct {
	ModelFile   string `json:"model_file"`
	ModelPath   string `json:"model_path"`
	DatasetFile string `json:"dataset_file"`
	DatasetPath string `json:"dataset_path"`
}

// DatasetSummary データセットから抽出した店舗・商品の一覧
type DatasetSummary struct {
	Filename string  `json:"filename"`
	Stores   []int64 `json:"stores"`
	Items    []int64 `json:"items"`
	Rows     int     `json:"rows"`
}

// ForecastRequest 予測リクエスト（店舗・商品・期間）
type ForecastRequest struct {
	ModelFile string
	StoreNbr  int64
	ItemNbr   int64
	StartDate time.Time
	EndDate   time.Time
}

// FeatureRow is one day of model input.
// DayOfWeek uses Monday = 0 through Sunday = 6; WeekOfYear is the ISO 8601 week.
type FeatureRow struct {
	Date        time.Time `json:"date"`
	StoreNbr    int64     `json:"store_nbr"`
	ItemNbr     int64     `json:"item_nbr"`
	OnPromotion bool      `json:"onpromotion"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	DayOfWeek   int       `json:"day_of_week"`
	WeekOfYear  int       `json:"week_of_year"`
}

// Vector returns the row in FeatureColumns order.
func (r FeatureRow) Vector() []float64 {
	promo := 0.0
	if r.OnPromotion {
		promo = 1.0
	}
	return []float64{
		float64(r.StoreNbr),
		float64(r.ItemNbr),
		promo,
		float64(r.Year),
		float64(r.Month),
		float64(r.DayOfWeek),
		float64(r.WeekOfYear),
	}
}

// ForecastPoint 1日分の予測値
type ForecastPoint struct {
	Date           string  `json:"date"`
	PredictedSales float64 `json:"predicted_sales"`
}

// ForecastResult 予測結果と集計値
type ForecastResult struct {
	ModelFile   string          `json:"model_file"`
	StoreNbr    int64           `json:"store_nbr"`
	ItemNbr     int64           `json:"item_nbr"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Days        int             `json:"days"`
	Points      []ForecastPoint `json:"points"`
	Total       float64         `json:"total"`
	Average     float64         `json:"average"`
	Uncertainty float64         `json:"uncertainty"`
	Lower       float64         `json:"lower"`
	Upper       float64         `json:"upper"`
	RMSE        float64         `json:"rmse"`
	GeneratedAt string          `json:"generated_at"`
}

// Values returns the predicted sales in date order.
func (r *ForecastResult) Values() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.PredictedSales
	}
	return out
}
