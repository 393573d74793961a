package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"sales-forecaster/pkg/metrics"
	"sales-forecaster/pkg/models"
)

// ForecastService は読み込み済みモデルで日次の売上予測を行います。
type ForecastService struct {
	maxHorizonDays int
}

// NewForecastService 新しいForecastServiceを作成。maxHorizonDays が0以下なら上限なし。
func NewForecastService(maxHorizonDays int) *ForecastService {
	return &ForecastService{maxHorizonDays: maxHorizonDays}
}

// Forecast runs the model over every day in [StartDate, EndDate].
// The predictor is never called when the request is invalid.
func (s *ForecastService) Forecast(ctx context.Context, model *LoadedModel, req models.ForecastRequest) (*models.ForecastResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if model == nil || model.Predictor == nil {
		return nil, &InferenceError{Err: fmt.Errorf("no model loaded")}
	}

	dates := DateRange(req.StartDate, req.EndDate)
	rows := BuildFeatures(dates, req.StoreNbr, req.ItemNbr)
	metrics.ForecastHorizonDays.Observe(float64(len(rows)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	predictions, err := model.Predictor.Predict(FeatureMatrix(rows))
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	if len(predictions) != len(rows) {
		return nil, &InferenceError{Err: fmt.Errorf("model returned %d predictions for %d rows", len(predictions), len(rows))}
	}
	for i, p := range predictions {
		if math.IsNaN(p) {
			return nil, &InferenceError{Err: fmt.Errorf("model returned NaN for %s", dates[i].Format(models.DateLayout))}
		}
	}

	clipped := ClipNegative(predictions)
	total, average, uncertainty := Summarize(clipped, model.RMSE)

	points := make([]models.ForecastPoint, len(rows))
	for i, r := range rows {
		points[i] = models.ForecastPoint{
			Date:           r.Date.Format(models.DateLayout),
			PredictedSales: clipped[i],
		}
	}

	return &models.ForecastResult{
		ModelFile:   req.ModelFile,
		StoreNbr:    req.StoreNbr,
		ItemNbr:     req.ItemNbr,
		StartDate:   dates[0].Format(models.DateLayout),
		EndDate:     dates[len(dates)-1].Format(models.DateLayout),
		Days:        len(points),
		Points:      points,
		Total:       total,
		Average:     average,
		Uncertainty: uncertainty,
		Lower:       math.Max(0, total-uncertainty),
		Upper:       total + uncertainty,
		RMSE:        model.RMSE,
		GeneratedAt: time.Now().Format(time.RFC3339),
	}, nil
}

func (s *ForecastService) validate(req models.ForecastRequest) error {
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return &ValidationError{Field: "date", Message: "Error: Start date and end date are required."}
	}
	if day(req.StartDate).After(day(req.EndDate)) {
		return &ValidationError{Field: "end_date", Message: "Error: End date must be after start date."}
	}
	days := int(day(req.EndDate).Sub(day(req.StartDate)).Hours()/24) + 1
	if s.maxHorizonDays > 0 && days > s.maxHorizonDays {
		return &ValidationError{
			Field:   "end_date",
			Message: fmt.Sprintf("Error: Forecast horizon of %d days exceeds the limit of %d days.", days, s.maxHorizonDays),
		}
	}
	return nil
}

// ClipNegative returns a copy of values with every negative entry raised to zero.
func ClipNegative(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}

// Summarize returns the sum, the mean, and rmse·√n for values.
func Summarize(values []float64, rmse float64) (total, average, uncertainty float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0
	}
	for _, v := range values {
		total += v
	}
	average = total / float64(n)
	uncertainty = rmse * math.Sqrt(float64(n))
	return total, average, uncertainty
}
