package tqi

import (
	"fmt"

	"github.com/okian/tqi/internal/domain/model"
	"github.com/okian/tqi/internal/domain/types"
)

// DefaultBucketWidth is used when BucketedAgeHistogram gets a non-positive width.
const DefaultBucketWidth = 5

// BucketedAgeHistogram counts existing and simulated records per age bucket.
// Buckets are contiguous from the youngest to the oldest record, aligned to
// multiples of bucketWidth and labelled "lower-upper". It performs no scoring.
func BucketedAgeHistogram(records []model.StaffRecord, bucketWidth int) []types.HistogramBucket {
	if len(records) == 0 {
		return []types.HistogramBucket{}
	}
	if bucketWidth <= 0 {
		bucketWidth = DefaultBucketWidth
	}

	lo, hi := records[0].Age, records[0].Age
	for _, r := range records[1:] {
		lo = min(lo, r.Age)
		hi = max(hi, r.Age)
	}
	first := floorDiv(lo, bucketWidth)
	last := floorDiv(hi, bucketWidth)

	out := make([]types.HistogramBucket, last-first+1)
	for i := range out {
		lower := (first + i) * bucketWidth
		upper := lower + bucketWidth - 1
		out[i] = types.HistogramBucket{
			Label: fmt.Sprintf("%d-%d", lower, upper),
			Lower: lower,
			Upper: upper,
		}
	}
	for _, r := range records {
		b := &out[floorDiv(r.Age, bucketWidth)-first]
		if r.Origin == model.OriginSimulated {
			b.Simulated++
		} else {
			b.Existing++
		}
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
