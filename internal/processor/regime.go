// Package processor implements the market-context processor's pure
// operators (spec §4.5): regime detection, anomaly detection, correlation
// analysis, and Granger causality approximation. None of these perform I/O;
// all are deterministic functions of their input slices, grounded on
// original_source/services/market-context-processor/src/{analyzer,correlation}.py
// translated into the teacher's idiom (exported package functions returning
// value types, pointer fields for "not computable").
package processor

import (
	"math"

	"github.com/aristath/marketcore/internal/analysis/indicators"
	"github.com/aristath/marketcore/internal/domain"
)

// MinRegimeSampleSize is the minimum price-series length the regime
// detector requires (spec §4.5).
const MinRegimeSampleSize = 50

// DetectRegime classifies market behaviour from a price series. Inputs
// shorter than MinRegimeSampleSize still produce a result (regime=neutral,
// confidence=0) rather than an error, per spec §4.5's sentinel-result
// failure semantics; SampleSize on the result tells the caller how much
// data actually fed the computation.
func DetectRegime(symbol string, marketType domain.MarketType, prices []float64) domain.RegimeAnalysis {
	result := domain.RegimeAnalysis{
		Symbol:     symbol,
		MarketType: marketType,
		Regime:     domain.RegimeNeutral,
		SampleSize: len(prices),
	}
	if len(prices) < MinRegimeSampleSize {
		result.TrendDirection = domain.TrendSideways
		result.VolatilityRegime = domain.VolatilityLow
		return result
	}

	rsi14 := indicators.RSI(prices, 14)
	sma20 := indicators.SMA(prices, 20)
	sma50 := indicators.SMA(prices, 50)
	sma200 := indicators.SMA(prices, 200)
	ema20 := indicators.EMA(prices, 20)
	result.RSI14, result.SMA50, result.SMA200, result.EMA20 = rsi14, sma50, sma200, ema20

	lastPrice := prices[len(prices)-1]

	volRegime, volFraction := volatilityRegime(prices)
	result.VolatilityRegime = volRegime

	trendDir, trendStrength := trendDirection(sma20, sma50)
	result.TrendDirection = trendDir
	result.TrendStrength = trendStrength

	support, resistance := supportResistance(prices)
	result.SupportLevel = &support
	result.ResistanceLevel = &resistance

	regime := domain.RegimeNeutral
	switch {
	case sma50 != nil && sma200 != nil && rsi14 != nil &&
		*sma50 > *sma200 && *rsi14 > 40 && *rsi14 < 75 && lastPrice > *sma50:
		regime = domain.RegimeBull
	case sma50 != nil && sma200 != nil && rsi14 != nil &&
		*sma50 < *sma200 && *rsi14 > 25 && *rsi14 < 60 && lastPrice < *sma50:
		regime = domain.RegimeBear
	case volRegime == domain.VolatilityExtreme:
		regime = domain.RegimeVolatile
	}
	result.Regime = regime

	result.Confidence = regimeConfidence(rsi14, regime, trendStrength, volFraction)
	return result
}

// volatilityRegime computes ATR-like average absolute 1-period change over
// the last 14 points, expressed as a % of current price.
func volatilityRegime(prices []float64) (domain.VolatilityRegime, float64) {
	window := prices
	if len(window) > 15 {
		window = window[len(window)-15:]
	}
	if len(window) < 2 {
		return domain.VolatilityLow, 0
	}
	var sumAbsChange float64
	for i := 1; i < len(window); i++ {
		sumAbsChange += math.Abs(window[i] - window[i-1])
	}
	avgChange := sumAbsChange / float64(len(window)-1)
	current := prices[len(prices)-1]
	if current == 0 {
		return domain.VolatilityLow, 0
	}
	fraction := avgChange / current

	switch {
	case fraction >= 0.03:
		return domain.VolatilityExtreme, fraction
	case fraction >= 0.015:
		return domain.VolatilityHigh, fraction
	case fraction >= 0.005:
		return domain.VolatilityMedium, fraction
	default:
		return domain.VolatilityLow, fraction
	}
}

// trendDirection compares SMA20 against SMA50 within a +/-0.5% band (spec
// §4.5), per original_source's gold-route trend computation.
func trendDirection(sma20, sma50 *float64) (domain.TrendDirection, float64) {
	if sma20 == nil || sma50 == nil || *sma50 == 0 {
		return domain.TrendSideways, 0
	}
	gap := (*sma20 - *sma50) / *sma50
	strength := math.Min(math.Abs(gap), 1.0)
	switch {
	case gap > 0.005:
		return domain.TrendUp, strength
	case gap < -0.005:
		return domain.TrendDown, strength
	default:
		return domain.TrendSideways, strength
	}
}

// supportResistance computes classical pivot S1/R1 over the recent
// 30-point window.
func supportResistance(prices []float64) (support, resistance float64) {
	window := prices
	if len(window) > 30 {
		window = window[len(window)-30:]
	}
	high, low := window[0], window[0]
	for _, p := range window {
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
	}
	close := window[len(window)-1]
	pivots := indicators.ClassicalPivots(high, low, close)
	return pivots.S1, pivots.R1
}

// regimeConfidence is a weighted average of RSI-within-range (0.3),
// trend-strength (0.3), and regime-indicator-agreement (0.4).
func regimeConfidence(rsi14 *float64, regime domain.Regime, trendStrength, volFraction float64) float64 {
	rsiScore := 0.0
	if rsi14 != nil && *rsi14 > 30 && *rsi14 < 70 {
		rsiScore = 1.0
	} else if rsi14 != nil {
		rsiScore = 0.3
	}

	agreementScore := 0.2
	switch regime {
	case domain.RegimeBull, domain.RegimeBear:
		agreementScore = 0.9
	case domain.RegimeVolatile:
		agreementScore = 0.7
	case domain.RegimeNeutral:
		agreementScore = 0.2
	}

	confidence := rsiScore*0.3 + trendStrength*0.3 + agreementScore*0.4
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}
