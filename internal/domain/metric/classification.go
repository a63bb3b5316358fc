package metric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// defaultPosLabel is the positive class of binary metrics without pos_label.
const defaultPosLabel = "1"

// confusion holds one-vs-rest counts for a single class.
type confusion struct {
	tp, fp, fn float64
}

func countFor(gt, pd []string, label string) confusion {
	var c confusion
	for i := range gt {
		switch {
		case gt[i] == label && pd[i] == label:
			c.tp++
		case pd[i] == label:
			c.fp++
		case gt[i] == label:
			c.fn++
		}
	}
	return c
}

// ratio divides, reporting 0 when the denominator is 0.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func (c confusion) precision() float64 { return ratio(c.tp, c.tp+c.fp) }
func (c confusion) recall() float64    { return ratio(c.tp, c.tp+c.fn) }
func (c confusion) f1() float64 {
	p, r := c.precision(), c.recall()
	return ratio(2*p*r, p+r)
}

// Accuracy is the fraction of samples whose predicted label equals the truth.
func Accuracy(truth, pred Frame, _ Params) (float64, error) {
	gt, pd, err := labelColumns(truth, pred)
	if err != nil {
		return 0, err
	}
	var hits float64
	for i := range gt {
		if gt[i] == pd[i] {
			hits++
		}
	}
	return hits / float64(len(gt)), nil
}

// JaccardSimilarity on single-label columns reduces to the fraction of exact
// matches, the per-sample Jaccard index of two singleton sets.
func JaccardSimilarity(truth, pred Frame, params Params) (float64, error) {
	return Accuracy(truth, pred, params)
}

func binaryCounts(truth, pred Frame, params Params) (confusion, error) {
	gt, pd, err := labelColumns(truth, pred)
	if err != nil {
		return confusion{}, err
	}
	return countFor(gt, pd, posLabel(params, defaultPosLabel)), nil
}

// F1 is the binary F1 score of the pos_label class (default "1").
func F1(truth, pred Frame, params Params) (float64, error) {
	c, err := binaryCounts(truth, pred, params)
	if err != nil {
		return 0, err
	}
	return c.f1(), nil
}

// Precision is the binary precision of the pos_label class.
func Precision(truth, pred Frame, params Params) (float64, error) {
	c, err := binaryCounts(truth, pred, params)
	if err != nil {
		return 0, err
	}
	return c.precision(), nil
}

// Recall is the binary recall of the pos_label class.
func Recall(truth, pred Frame, params Params) (float64, error) {
	c, err := binaryCounts(truth, pred, params)
	if err != nil {
		return 0, err
	}
	return c.recall(), nil
}

// F1Micro pools counts over every label. For single-label data it equals accuracy.
func F1Micro(truth, pred Frame, _ Params) (float64, error) {
	gt, pd, err := labelColumns(truth, pred)
	if err != nil {
		return 0, err
	}
	var total confusion
	for _, label := range Classes(gt, pd) {
		c := countFor(gt, pd, label)
		total.tp += c.tp
		total.fp += c.fp
		total.fn += c.fn
	}
	return total.f1(), nil
}

// F1Macro is the unweighted mean of per-label F1 over labels seen in either column.
func F1Macro(truth, pred Frame, _ Params) (float64, error) {
	gt, pd, err := labelColumns(truth, pred)
	if err != nil {
		return 0, err
	}
	classes := Classes(gt, pd)
	scores := make([]float64, len(classes))
	for k, label := range classes {
		scores[k] = countFor(gt, pd, label).f1()
	}
	return stat.Mean(scores, nil), nil
}

// RocAuc scores a binary ranking.
//
// With pos_label, truth and predictions are both reduced to indicators of that
// class. Without it, the larger of the two truth classes is positive and
// numeric predictions are used as scores directly. More than two truth
// classes are scored one-vs-rest and macro-averaged.
func RocAuc(truth, pred Frame, params Params) (float64, error) {
	gt, pd, err := labelColumns(truth, pred)
	if err != nil {
		return 0, err
	}
	classes := Classes(gt)
	if len(classes) < 2 {
		return 0, fmt.Errorf("rocAuc needs two truth classes, got %d: %w", len(classes), ErrUndefinedMetric)
	}
	if len(classes) > 2 {
		y, s := binarize(gt, classes, false), binarize(pd, classes, false)
		if params.Has(ParamPosLabel) && posLabel(params, "") == classes[0] {
			invert(y)
			invert(s)
		}
		return macroAUC(y, s)
	}

	if params.Has(ParamPosLabel) {
		pos := posLabel(params, defaultPosLabel)
		return auc(indicator(gt, pos), indicator(pd, pos))
	}
	pos := classes[1]
	scores, err := parseFloats(pd)
	if err != nil {
		scores = indicator(pd, pos)
	}
	return auc(indicator(gt, pos), scores)
}

// RocAucMicro binarizes truth and predictions over the truth classes and
// scores the flattened indicator matrix as one ranking.
func RocAucMicro(truth, pred Frame, _ Params) (float64, error) {
	gt, pd, err := labelColumns(truth, pred)
	if err != nil {
		return 0, err
	}
	classes := Classes(gt)
	if len(classes) < 2 {
		return 0, fmt.Errorf("rocAucMicro needs two truth classes: %w", ErrUndefinedMetric)
	}
	var y, s []float64
	for _, col := range binarize(gt, classes, true) {
		y = append(y, col...)
	}
	for _, col := range binarize(pd, classes, true) {
		s = append(s, col...)
	}
	return auc(y, s)
}

// RocAucMacro averages per-class one-vs-rest AUCs over the truth classes.
func RocAucMacro(truth, pred Frame, _ Params) (float64, error) {
	gt, pd, err := labelColumns(truth, pred)
	if err != nil {
		return 0, err
	}
	classes := Classes(gt)
	if len(classes) < 2 {
		return 0, fmt.Errorf("rocAucMacro needs two truth classes: %w", ErrUndefinedMetric)
	}
	return macroAUC(binarize(gt, classes, true), binarize(pd, classes, true))
}

func invert(cols [][]float64) {
	for _, col := range cols {
		for i, v := range col {
			col[i] = 1 - v
		}
	}
}

func macroAUC(y, s [][]float64) (float64, error) {
	aucs := make([]float64, len(y))
	for k := range y {
		a, err := auc(y[k], s[k])
		if err != nil {
			return 0, fmt.Errorf("class column %d: %w", k, err)
		}
		aucs[k] = a
	}
	return stat.Mean(aucs, nil), nil
}

// auc is the Mann-Whitney statistic: the probability that a random positive
// outranks a random negative, ties counting one half.
func auc(y, scores []float64) (float64, error) {
	npos := floats.Sum(y)
	nneg := float64(len(y)) - npos
	if npos == 0 || nneg == 0 {
		return 0, fmt.Errorf("auc needs both positive and negative samples: %w", ErrUndefinedMetric)
	}
	ranks := averageRanks(scores)
	var posRanks float64
	for i, v := range y {
		if v == 1 {
			posRanks += ranks[i]
		}
	}
	return (posRanks - npos*(npos+1)/2) / (npos * nneg), nil
}

// averageRanks returns 1-based ranks of values, ties sharing their mean rank.
func averageRanks(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	inds := make([]int, len(values))
	floats.ArgsortStable(sorted, inds)

	ranks := make([]float64, len(values))
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1] == sorted[i] {
			j++
		}
		r := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[inds[k]] = r
		}
		i = j + 1
	}
	return ranks
}

// NormalizedMutualInformation is the mutual information of the two labelings
// normalized by the arithmetic mean of their entropies.
func NormalizedMutualInformation(truth, pred Frame, _ Params) (float64, error) {
	gt, pd, err := labelColumns(truth, pred)
	if err != nil {
		return 0, err
	}
	rows, cols := Classes(gt), Classes(pd)
	if len(rows) == 1 && len(cols) == 1 {
		return 1, nil
	}
	ri, ci := indexOf(rows), indexOf(cols)
	joint := make([]float64, len(rows)*len(cols))
	for i := range gt {
		joint[ri[gt[i]]*len(cols)+ci[pd[i]]]++
	}
	n := float64(len(gt))
	floats.Scale(1/n, joint)

	pu := make([]float64, len(rows))
	pv := make([]float64, len(cols))
	for r := range rows {
		for c := range cols {
			p := joint[r*len(cols)+c]
			pu[r] += p
			pv[c] += p
		}
	}

	var mi float64
	for r := range rows {
		for c := range cols {
			if p := joint[r*len(cols)+c]; p > 0 {
				mi += p * math.Log(p/(pu[r]*pv[c]))
			}
		}
	}
	if mi <= 0 {
		return 0, nil
	}
	norm := (stat.Entropy(pu) + stat.Entropy(pv)) / 2
	return mi / math.Max(norm, machineEpsilon), nil
}

const machineEpsilon = 2.220446049250313e-16

func indexOf(labels []string) map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}
