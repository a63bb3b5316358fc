package metric

import (
	"sort"
	"strconv"
	"strings"
)

// canonicalLabel maps numerically equal labels to one spelling, so "1", "1.0"
// and 1 name the same class. Non-numeric labels are only trimmed.
func canonicalLabel(s string) string {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return formatNumber(f)
	}
	return s
}

func canonicalLabels(col []string) []string {
	out := make([]string, len(col))
	for i, v := range col {
		out[i] = canonicalLabel(v)
	}
	return out
}

// labelColumns is columns with every cell passed through canonicalLabel.
func labelColumns(truth, pred Frame) ([]string, []string, error) {
	gt, pd, err := columns(truth, pred)
	if err != nil {
		return nil, nil, err
	}
	return canonicalLabels(gt), canonicalLabels(pd), nil
}

// Classes returns the distinct labels of every given column in sorted order.
// Labels sort numerically when all of them parse as numbers and
// lexicographically otherwise, so "10" follows "9" for numeric classes.
func Classes(cols ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, col := range cols {
		for _, v := range col {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sortLabels(out)
	return out
}

func sortLabels(labels []string) {
	nums := make([]float64, len(labels))
	for i, l := range labels {
		f, err := strconv.ParseFloat(l, 64)
		if err != nil {
			sort.Strings(labels)
			return
		}
		nums[i] = f
	}
	sort.Sort(byValue{labels: labels, nums: nums})
}

type byValue struct {
	labels []string
	nums   []float64
}

func (b byValue) Len() int           { return len(b.labels) }
func (b byValue) Less(i, j int) bool { return b.nums[i] < b.nums[j] }
func (b byValue) Swap(i, j int) {
	b.labels[i], b.labels[j] = b.labels[j], b.labels[i]
	b.nums[i], b.nums[j] = b.nums[j], b.nums[i]
}

// indicator returns 1 where col holds label and 0 elsewhere.
func indicator(col []string, label string) []float64 {
	out := make([]float64, len(col))
	for i, v := range col {
		if v == label {
			out[i] = 1
		}
	}
	return out
}

// binarize one-hot encodes col over classes, one indicator column per class.
// With collapse set, two classes reduce to a single column for the larger one.
func binarize(col, classes []string, collapse bool) [][]float64 {
	if collapse && len(classes) == 2 {
		return [][]float64{indicator(col, classes[1])}
	}
	out := make([][]float64, len(classes))
	for k, c := range classes {
		out[k] = indicator(col, c)
	}
	return out
}

// posLabel resolves the positive class from params, falling back to def.
func posLabel(params Params, def string) string {
	if p, ok := params.String(ParamPosLabel); ok {
		return canonicalLabel(p)
	}
	return def
}
