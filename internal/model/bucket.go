package model

// Bucket is the three-way performance classification applied to both
// predicted and realized VPH. The labels are the legacy values keyed on by
// the dashboards and historical metadata rows, so they are kept verbatim.
type Bucket string

const (
	BucketHigh    Bucket = "EXITOSO"
	BucketAverage Bucket = "PROMEDIO"
	BucketLow     Bucket = "FRACASO"
)

// BucketThresholds holds the VPH cutoffs for the classifier. Defaults come
// from configuration (120 / 60), never from package constants.
type BucketThresholds struct {
	High float64
	Mid  float64
}

// ClassifyVPH maps a VPH value to its performance bucket.
func ClassifyVPH(vph float64, t BucketThresholds) Bucket {
	switch {
	case vph >= t.High:
		return BucketHigh
	case vph >= t.Mid:
		return BucketAverage
	default:
		return BucketLow
	}
}
