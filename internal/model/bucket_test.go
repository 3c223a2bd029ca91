package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyVPH(t *testing.T) {
	thresholds := BucketThresholds{High: 120, Mid: 60}

	tests := []struct {
		name string
		vph  float64
		want Bucket
	}{
		{"well above high", 500, BucketHigh},
		{"exactly high", 120, BucketHigh},
		{"just under high", 119.99, BucketAverage},
		{"exactly mid", 60, BucketAverage},
		{"just under mid", 59.99, BucketLow},
		{"zero", 0, BucketLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyVPH(tt.vph, thresholds))
		})
	}
}
