package services

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakePredictor returns fixed values per row and counts calls.
type fakePredictor struct {
	values []float64
	err    error
	calls  atomic.Int32
	rows   [][]float64
}

func (p *fakePredictor) Predict(rows [][]float64) ([]float64, error) {
	p.calls.Add(1)
	p.rows = rows
	if p.err != nil {
		return nil, p.err
	}
	if p.values == nil {
		out := make([]float64, len(rows))
		for i := range out {
			out[i] = float64(i + 1)
		}
		return out, nil
	}
	return p.values, nil
}

// countingDecoder builds a decoder that returns a new fakePredictor per call.
func countingDecoder(count *atomic.Int32) ModelDecoder {
	return func(path string) (Predictor, error) {
		count.Add(1)
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		return &fakePredictor{}, nil
	}
}

func failingDecoder(path string) (Predictor, error) {
	return nil, errors.New("not a valid model")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const store1CSV = "date,store_nbr,item_nbr,unit_sales,predicted_sales\n" +
	"2023-12-01,2,200,3,2.5\n" +
	"2023-12-01,1,100,5,4.8\n" +
	"2023-12-02,1,200,1,1.2\n" +
	"2023-12-02,2,100,7,6.9\n"
