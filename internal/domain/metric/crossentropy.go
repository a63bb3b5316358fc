package metric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ProbabilityFloor replaces predicted probabilities below it, bounding the
// per-sample loss at -log2(ProbabilityFloor) = 100 bits.
const ProbabilityFloor = 0x1p-100

// CrossEntropy is the class-balanced multiclass log-loss in bits. Truth is a
// label column; predictions hold one probability column per class, ordered as
// the classes param (default: sorted distinct truth labels). Each sample
// contributes log2(sum(p) / p[true]); losses are averaged within each truth
// class and the class means are averaged without weighting.
func CrossEntropy(truth, pred Frame, params Params) (float64, error) {
	if err := checkAligned(truth, pred); err != nil {
		return 0, err
	}
	gt, err := truth.scalars()
	if err != nil {
		return 0, fmt.Errorf("ground truth: %w", err)
	}
	gt = canonicalLabels(gt)
	classes, err := crossEntropyClasses(gt, params)
	if err != nil {
		return 0, err
	}

	probs, w, err := pred.Floats()
	if err != nil {
		return 0, fmt.Errorf("predictions: %w", err)
	}
	if w != len(classes) {
		return 0, fmt.Errorf("%d probability columns for %d classes: %w", w, len(classes), ErrLengthMismatch)
	}
	return classBalancedLoss(gt, classes, probs)
}

// CrossEntropyNonBinarized scores hard label predictions by one-hot encoding
// them over the truth classes before delegating to CrossEntropy.
func CrossEntropyNonBinarized(truth, pred Frame, params Params) (float64, error) {
	gt, pd, err := labelColumns(truth, pred)
	if err != nil {
		return 0, err
	}
	classes, err := crossEntropyClasses(gt, params)
	if err != nil {
		return 0, err
	}
	probs := make([]float64, 0, len(pd)*len(classes))
	for _, label := range pd {
		for _, c := range classes {
			if label == c {
				probs = append(probs, 1)
			} else {
				probs = append(probs, 0)
			}
		}
	}
	return classBalancedLoss(gt, classes, probs)
}

func crossEntropyClasses(gt []string, params Params) ([]string, error) {
	classes, ok, err := params.Strings(ParamClasses)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Classes(gt), nil
	}
	return canonicalLabels(classes), nil
}

// classBalancedLoss evaluates row-major probs of width len(classes).
func classBalancedLoss(gt, classes []string, probs []float64) (float64, error) {
	index := indexOf(classes)
	w := len(classes)

	byClass := make(map[int][]float64)
	var order []int
	row := make([]float64, w)
	for i, label := range gt {
		k, ok := index[label]
		if !ok {
			return 0, fmt.Errorf("truth label %q is not among classes %v: %w", label, classes, ErrInvalidParam)
		}
		copy(row, probs[i*w:(i+1)*w])
		for j, p := range row {
			if p < ProbabilityFloor {
				row[j] = ProbabilityFloor
			}
		}
		if _, seen := byClass[k]; !seen {
			order = append(order, k)
		}
		byClass[k] = append(byClass[k], math.Log2(floats.Sum(row)/row[k]))
	}

	means := make([]float64, len(order))
	for i, k := range order {
		means[i] = stat.Mean(byClass[k], nil)
	}
	return stat.Mean(means, nil), nil
}
