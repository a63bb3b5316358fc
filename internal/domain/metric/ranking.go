package metric

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// DefaultTopK is the K of precisionAtTopK when none is given.
const DefaultTopK = 20

// PrecisionAtTopK ranks truth and predictions independently by descending
// value and reports the share of the top K sample indices they have in
// common. The share is always taken over K, so inputs shorter than K cannot
// reach 1.
func PrecisionAtTopK(truth, pred Frame, params Params) (float64, error) {
	k, err := topK(params)
	if err != nil {
		return 0, err
	}
	y, yhat, err := numericColumns(truth, pred)
	if err != nil {
		return 0, err
	}

	top := make(map[int]struct{}, min(k, len(y)))
	for _, i := range topIndices(y, k) {
		top[i] = struct{}{}
	}
	var shared float64
	for _, i := range topIndices(yhat, k) {
		if _, ok := top[i]; ok {
			shared++
		}
	}
	return shared / float64(k), nil
}

func topK(params Params) (int, error) {
	key := ParamK
	if !params.Has(key) && params.Has("k") {
		key = "k"
	}
	k, err := params.Int(key, DefaultTopK)
	if err != nil {
		return 0, err
	}
	if k < 1 {
		return 0, fmt.Errorf("K=%d must be at least 1: %w", k, ErrInvalidParam)
	}
	return k, nil
}

// topIndices returns the indices of the k largest values, largest first.
// Among equal values the later index ranks first.
func topIndices(values []float64, k int) []int {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	inds := make([]int, len(values))
	floats.ArgsortStable(sorted, inds)

	if k > len(inds) {
		k = len(inds)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = inds[len(inds)-1-i]
	}
	return out
}
