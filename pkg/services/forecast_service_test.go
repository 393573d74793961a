package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"sales-forecaster/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loaded(p Predictor) *LoadedModel {
	return &LoadedModel{Path: "models/model_test.txt", Predictor: p, RMSE: 19.0}
}

func TestForecastClipsNegatives(t *testing.T) {
	p := &fakePredictor{values: []float64{-3.5, 0, 2.25, -0.0001, 10}}
	svc := NewForecastService(0)

	result, err := svc.Forecast(context.Background(), loaded(p), models.ForecastRequest{
		ModelFile: "model_test.txt",
		StoreNbr:  1,
		ItemNbr:   100,
		StartDate: date(t, "2024-01-01"),
		EndDate:   date(t, "2024-01-05"),
	})
	require.NoError(t, err)

	values := result.Values()
	assert.Equal(t, []float64{0, 0, 2.25, 0, 10}, values)
	for _, v := range values {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestForecastAggregates(t *testing.T) {
	p := &fakePredictor{values: []float64{4, -2, 6, 10}}
	svc := NewForecastService(0)

	result, err := svc.Forecast(context.Background(), loaded(p), models.ForecastRequest{
		StoreNbr:  1,
		ItemNbr:   100,
		StartDate: date(t, "2024-01-01"),
		EndDate:   date(t, "2024-01-04"),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Days)
	assert.Equal(t, 20.0, result.Total)
	assert.Equal(t, 5.0, result.Average)
	assert.Equal(t, 19.0*math.Sqrt(4), result.Uncertainty)
	assert.Equal(t, 0.0, result.Lower)
	assert.Equal(t, 58.0, result.Upper)
	assert.Equal(t, "2024-01-01", result.Points[0].Date)
	assert.Equal(t, "2024-01-04", result.Points[3].Date)
}

func TestForecastStartAfterEnd(t *testing.T) {
	p := &fakePredictor{}
	svc := NewForecastService(0)

	_, err := svc.Forecast(context.Background(), loaded(p), models.ForecastRequest{
		StoreNbr:  1,
		ItemNbr:   100,
		StartDate: date(t, "2024-01-05"),
		EndDate:   date(t, "2024-01-01"),
	})

	var invalid *ValidationError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "Error: End date must be after start date.", err.Error())
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestForecastSingleDay(t *testing.T) {
	p := &fakePredictor{values: []float64{7}}
	result, err := NewForecastService(0).Forecast(context.Background(), loaded(p), models.ForecastRequest{
		StartDate: date(t, "2024-06-01"),
		EndDate:   date(t, "2024-06-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Days)
	assert.Equal(t, 19.0, result.Uncertainty)
}

func TestForecastHorizonLimit(t *testing.T) {
	p := &fakePredictor{}
	svc := NewForecastService(7)

	_, err := svc.Forecast(context.Background(), loaded(p), models.ForecastRequest{
		StartDate: date(t, "2024-01-01"),
		EndDate:   date(t, "2024-01-08"),
	})
	assert.True(t, IsValidation(err))
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestForecastPredictFailure(t *testing.T) {
	p := &fakePredictor{err: errors.New("shape mismatch")}

	_, err := NewForecastService(0).Forecast(context.Background(), loaded(p), models.ForecastRequest{
		StartDate: date(t, "2024-01-01"),
		EndDate:   date(t, "2024-01-02"),
	})

	var infer *InferenceError
	require.True(t, errors.As(err, &infer))
	assert.Equal(t, "inference", ErrorKind(err))
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestForecastPredictionLengthMismatch(t *testing.T) {
	p := &fakePredictor{values: []float64{1}}

	_, err := NewForecastService(0).Forecast(context.Background(), loaded(p), models.ForecastRequest{
		StartDate: date(t, "2024-01-01"),
		EndDate:   date(t, "2024-01-03"),
	})
	assert.Equal(t, "inference", ErrorKind(err))
}

func TestForecastPassesFeatureMatrix(t *testing.T) {
	p := &fakePredictor{}
	_, err := NewForecastService(0).Forecast(context.Background(), loaded(p), models.ForecastRequest{
		StoreNbr:  2,
		ItemNbr:   200,
		StartDate: date(t, "2024-01-01"),
		EndDate:   date(t, "2024-01-02"),
	})
	require.NoError(t, err)

	require.Len(t, p.rows, 2)
	assert.Equal(t, []float64{2, 200, 0, 2024, 1, 0, 1}, p.rows[0])
	assert.Equal(t, []float64{2, 200, 0, 2024, 1, 1, 1}, p.rows[1])
}

func TestForecastCanceledContext(t *testing.T) {
	p := &fakePredictor{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewForecastService(0).Forecast(ctx, loaded(p), models.ForecastRequest{
		StartDate: date(t, "2024-01-01"),
		EndDate:   date(t, "2024-01-02"),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestSummarizeEmpty(t *testing.T) {
	total, avg, unc := Summarize(nil, 19.0)
	assert.Zero(t, total)
	assert.Zero(t, avg)
	assert.Zero(t, unc)
}
