package metric

import "strings"

// Canonical metric names, as written in problem documents.
const (
	MetricAccuracy                        = "accuracy"
	MetricF1                              = "f1"
	MetricF1Micro                         = "f1Micro"
	MetricF1Macro                         = "f1Macro"
	MetricRocAuc                          = "rocAuc"
	MetricRocAucMicro                     = "rocAucMicro"
	MetricRocAucMacro                     = "rocAucMacro"
	MetricMeanSquaredError                = "meanSquaredError"
	MetricRootMeanSquaredError            = "rootMeanSquaredError"
	MetricRootMeanSquaredErrorAvg         = "rootMeanSquaredErrorAvg"
	MetricMeanAbsoluteError               = "meanAbsoluteError"
	MetricRSquared                        = "rSquared"
	MetricNormalizedMutualInformation     = "normalizedMutualInformation"
	MetricJaccardSimilarityScore          = "jaccardSimilarityScore"
	MetricPrecisionAtTopK                 = "precisionAtTopK"
	MetricObjectDetectionAP               = "objectDetectionAP"
	MetricObjectDetectionAveragePrecision = "object_detection_average_precision"
	MetricPrecision                       = "precision"
	MetricRecall                          = "recall"
	MetricCrossEntropy                    = "crossEntropy"
	MetricCrossEntropyNonBinarized        = "crossEntropyNonBinarized"
)

// CanonicalName folds a metric name for lookup: lowercase with underscores
// removed, so "f1_macro", "F1Macro" and "f1macro" compare equal.
func CanonicalName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "")
}
