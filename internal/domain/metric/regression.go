package metric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MeanSquaredError is the mean of squared residuals over column 0.
func MeanSquaredError(truth, pred Frame, _ Params) (float64, error) {
	y, yhat, err := numericColumns(truth, pred)
	if err != nil {
		return 0, err
	}
	return mse(y, yhat), nil
}

// RootMeanSquaredError is the square root of MeanSquaredError.
func RootMeanSquaredError(truth, pred Frame, _ Params) (float64, error) {
	y, yhat, err := numericColumns(truth, pred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse(y, yhat)), nil
}

// MeanAbsoluteError is the mean absolute residual over column 0.
func MeanAbsoluteError(truth, pred Frame, _ Params) (float64, error) {
	y, yhat, err := numericColumns(truth, pred)
	if err != nil {
		return 0, err
	}
	return floats.Distance(y, yhat, 1) / float64(len(y)), nil
}

// RSquared is the coefficient of determination. Constant truth scores 1 when
// predicted exactly and 0 otherwise.
func RSquared(truth, pred Frame, _ Params) (float64, error) {
	y, yhat, err := numericColumns(truth, pred)
	if err != nil {
		return 0, err
	}
	res := floats.Distance(y, yhat, 2)
	ssRes := res * res

	dev := make([]float64, len(y))
	copy(dev, y)
	floats.AddConst(-stat.Mean(y, nil), dev)
	ssTot := floats.Dot(dev, dev)

	if ssTot == 0 {
		if ssRes == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}

// RootMeanSquaredErrorAvg treats every column as one output and returns the
// mean of the per-output RMSEs.
func RootMeanSquaredErrorAvg(truth, pred Frame, _ Params) (float64, error) {
	if err := checkAligned(truth, pred); err != nil {
		return 0, err
	}
	y, err := denseOf(truth)
	if err != nil {
		return 0, fmt.Errorf("ground truth: %w", err)
	}
	yhat, err := denseOf(pred)
	if err != nil {
		return 0, fmt.Errorf("predictions: %w", err)
	}
	n, w := y.Dims()
	if _, pw := yhat.Dims(); pw != w {
		return 0, fmt.Errorf("%d vs %d outputs: %w", w, pw, ErrLengthMismatch)
	}

	rmses := make([]float64, w)
	col, colHat := make([]float64, n), make([]float64, n)
	for j := 0; j < w; j++ {
		mat.Col(col, j, y)
		mat.Col(colHat, j, yhat)
		rmses[j] = math.Sqrt(mse(col, colHat))
	}
	return stat.Mean(rmses, nil), nil
}

func denseOf(f Frame) (*mat.Dense, error) {
	data, w, err := f.Floats()
	if err != nil {
		return nil, err
	}
	if w == 0 {
		return nil, ErrEmptyInput
	}
	return mat.NewDense(len(f), w, data), nil
}

func mse(y, yhat []float64) float64 {
	d := floats.Distance(y, yhat, 2)
	return d * d / float64(len(y))
}
