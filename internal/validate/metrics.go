package validate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/model"
)

func meanAbsoluteError(preds, actuals []float64) float64 {
	if len(preds) == 0 {
		return 0
	}
	var sum float64
	for i := range preds {
		sum += math.Abs(preds[i] - actuals[i])
	}
	return sum / float64(len(preds))
}

func rSquared(preds, actuals []float64) float64 {
	if len(preds) < 2 {
		return 0
	}
	return stat.RSquaredFrom(preds, actuals, nil)
}

// classificationPrecision maps predicted and actual hourly view rates to
// performance buckets and returns the fraction that land in the same bucket.
func classificationPrecision(preds, actuals []float64, t model.BucketThresholds) float64 {
	if len(preds) == 0 {
		return 0
	}
	var hits int
	for i := range preds {
		if model.ClassifyVPH(preds[i], t) == model.ClassifyVPH(actuals[i], t) {
			hits++
		}
	}
	return float64(hits) / float64(len(preds))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
