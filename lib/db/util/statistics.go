package util

import (
	"math"

	"github.com/rcrowley/go-metrics"
)

// CollectionStats summarizes the document counts of the collections of a database
type CollectionStats struct {
	Min    int64   `json:"min"`
	Max    int64   `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_deviation"`
	// Balance is 1 if all collections hold the same number of documents and
	// approaches 0 the more skewed the counts are
	Balance float64 `json:"balance"`
}

// NewCollectionStats computes the statistics for the given document counts (population std deviation)
func NewCollectionStats(counts []int64) CollectionStats {
	if len(counts) == 0 {
		return CollectionStats{}
	}

	s := CollectionStats{
		Min:    metrics.SampleMin(counts),
		Max:    metrics.SampleMax(counts),
		Mean:   metrics.SampleMean(counts),
		StdDev: metrics.SampleStdDev(counts),
	}

	ratio := 1.0
	if s.Max > 0 {
		ratio = float64(s.Min) / float64(s.Max)
	}
	var cv float64
	if s.Mean > 0 {
		cv = s.StdDev / s.Mean
	}
	s.Balance = (1-math.Min(1, cv))/2 + ratio/2
	return s
}

// ----------------------------------------------------------------------------
// Document size estimation
// ----------------------------------------------------------------------------

// SizeEstimator estimates the typical encoded size of a document from samples.
// It keeps a bounded uniform sample, so any number of documents can be added.
type SizeEstimator struct {
	h metrics.Histogram
}

func NewSizeEstimator() *SizeEstimator {
	return &SizeEstimator{h: metrics.NewHistogram(metrics.NewUniformSample(1028))}
}

// Add records the size of one encoded document, safe for concurrent use
func (e *SizeEstimator) Add(size int) {
	e.h.Update(int64(size))
}

func (e *SizeEstimator) Count() int64 {
	return e.h.Count()
}

// Estimate weights the median with 60% and the mean with 40%, large outliers
// would otherwise dominate the estimate
func (e *SizeEstimator) Estimate() int {
	if e.h.Count() == 0 {
		return 0
	}
	return int(math.Round(0.6*e.h.Percentile(0.5) + 0.4*e.h.Mean()))
}
