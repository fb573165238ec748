package blockchain

import (
	"math"
)

// Smoothing factors of the false positive estimator.
const (
	// FPEstimatorAlpha weighs each observation into the rate.
	FPEstimatorAlpha = 0.0001

	// FPEstimatorBeta weighs rate changes into the trend.
	FPEstimatorBeta = 0.01
)

// fpEstimator tracks the rate of false positives among filtered transactions
// with double exponential smoothing. Relevant transactions count as zero and
// false positives as one.
type fpEstimator struct {
	rate         float64
	trend        float64
	previousRate float64
}

func (e *fpEstimator) trackFiltered(count int) {
	alphaDecay := math.Pow(1-FPEstimatorAlpha, float64(count))
	e.rate = alphaDecay * e.rate

	betaDecay := math.Pow(1-FPEstimatorBeta, float64(count))
	e.trend = FPEstimatorBeta*float64(count)*(e.rate-e.previousRate) + betaDecay*e.trend

	e.rate += alphaDecay * e.trend
	e.previousRate = e.rate
}

func (e *fpEstimator) trackFalsePositives(count int) {
	e.rate += FPEstimatorAlpha * float64(count)
}

// TrackFilteredTransactions folds a batch of count filtered transactions that
// were relevant into the false positive estimate.
//
// This function is safe for concurrent access.
func (b *BlockChain) TrackFilteredTransactions(count int) {
	b.fpLock.Lock()
	defer b.fpLock.Unlock()
	b.fp.trackFiltered(count)
}

// TrackFalsePositives adds count false positives to the estimate.
//
// This function is safe for concurrent access.
func (b *BlockChain) TrackFalsePositives(count int) {
	b.fpLock.Lock()
	defer b.fpLock.Unlock()
	b.fp.trackFalsePositives(count)
	if count > 0 {
		log.Debugf("%d false positives, current rate = %f trend = %f",
			count, b.fp.rate, b.fp.trend)
	}
}

// FalsePositiveRate returns the current false positive rate estimate.
//
// This function is safe for concurrent access.
func (b *BlockChain) FalsePositiveRate() float64 {
	b.fpLock.Lock()
	defer b.fpLock.Unlock()
	return b.fp.rate
}

// ResetFalsePositiveEstimate clears the estimate, as is needed after the
// filter was replaced.
//
// This function is safe for concurrent access.
func (b *BlockChain) ResetFalsePositiveEstimate() {
	b.fpLock.Lock()
	defer b.fpLock.Unlock()
	b.fp = fpEstimator{}
}
