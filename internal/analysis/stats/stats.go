// Package stats provides the statistical primitives the correlation and
// Granger-causality operators need (spec §4.5). Pearson correlation and
// mean/stddev delegate to gonum/stat (grounded on the sibling-module
// trader-go/pkg/formulas/stats.go wrapper); the operators specific to this
// domain -- rolling correlation, lead/lag scanning, and the banded F-test --
// have no ecosystem equivalent and are implemented by hand per spec §9's
// "statistics without libraries" note. Rolling and lead/lag coefficients
// are rounded to three decimals.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// StdDev returns the sample standard deviation, or 0 for fewer than two points.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// Returns computes period-to-period percentage returns from a price series:
// returns[i] = (prices[i+1]-prices[i]) / prices[i].
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			out[i-1] = 0
			continue
		}
		out[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
	}
	return out
}

// Correlation returns the Pearson correlation coefficient, or 0 when the
// inputs are empty, of unequal length, or have zero variance.
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	if StdDev(x) == 0 || StdDev(y) == 0 {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// RollingPoint is one window's coefficient in a rolling-correlation series.
type RollingPoint struct {
	Index       int
	Correlation float64
}

// RollingCorrelation slides a window of the given size over x and y,
// computing Pearson correlation per window (spec §4.5: window=10).
func RollingCorrelation(x, y []float64, window int) []RollingPoint {
	n := len(x)
	if n != len(y) || window <= 1 || n < window {
		return nil
	}
	out := make([]RollingPoint, 0, n-window+1)
	for start := 0; start+window <= n; start++ {
		out = append(out, RollingPoint{
			Index:       start,
			Correlation: round3(Correlation(x[start:start+window], y[start:start+window])),
		})
	}
	return out
}

// LagResult is the outcome of a lead/lag cross-correlation scan.
type LagResult struct {
	OptimalLag         int
	OptimalCorrelation float64
	Leader             string // "primary" | "secondary" | "none"
	Lagger             string
	AllCorrelations    map[int]float64
}

// LeadLag scans lag in [-maxLag, maxLag] (spec §4.5: positive lag shifts the
// primary series forward, negative shifts the secondary forward), and picks
// the lag maximizing |r|.
func LeadLag(primary, secondary []float64, maxLag int) LagResult {
	all := make(map[int]float64, 2*maxLag+1)
	bestLag := 0
	bestCorr := 0.0
	bestAbs := -1.0
	for lag := -maxLag; lag <= maxLag; lag++ {
		var x, y []float64
		switch {
		case lag == 0:
			x, y = primary, secondary
		case lag > 0:
			if lag >= len(primary) {
				continue
			}
			x, y = primary[lag:], secondary[:len(secondary)-lag]
		default:
			absLag := -lag
			if absLag >= len(secondary) {
				continue
			}
			x, y = primary[:len(primary)-absLag], secondary[absLag:]
		}
		corr := Correlation(x, y)
		all[lag] = round3(corr)
		if math.Abs(corr) > bestAbs {
			bestAbs = math.Abs(corr)
			bestCorr = corr
			bestLag = lag
		}
	}
	leader, lagger := "none", "none"
	switch {
	case bestLag > 0:
		leader, lagger = "secondary", "primary"
	case bestLag < 0:
		leader, lagger = "primary", "secondary"
	}
	return LagResult{
		OptimalLag:         bestLag,
		OptimalCorrelation: round3(bestCorr),
		Leader:             leader,
		Lagger:             lagger,
		AllCorrelations:    all,
	}
}

// FTestResult is a single-variable OLS regression's F-statistic and its
// banded p-value approximation.
type FTestResult struct {
	FStatistic float64
	PValue     float64
}

// SimpleFTest regresses dependent on independent via least squares and
// returns the F-statistic MSreg/MSres with the banded p-value approximation
// from spec §4.5 (>10 -> 0.001, >5 -> 0.01, >2 -> 0.05, else 0.2).
func SimpleFTest(dependent, independent []float64) FTestResult {
	n := len(dependent)
	if n != len(independent) || n < 3 {
		return FTestResult{FStatistic: 0, PValue: 0.2}
	}
	slope, intercept := leastSquares(independent, dependent)
	meanY := Mean(dependent)

	var ssRes, ssTot float64
	for i := range dependent {
		predicted := slope*independent[i] + intercept
		ssRes += (dependent[i] - predicted) * (dependent[i] - predicted)
		ssTot += (dependent[i] - meanY) * (dependent[i] - meanY)
	}
	if ssRes == 0 {
		return FTestResult{FStatistic: 999.0, PValue: 0.001}
	}
	msReg := (ssTot - ssRes) / 1
	msRes := ssRes / float64(n-2)
	if msRes == 0 {
		return FTestResult{FStatistic: 999.0, PValue: 0.001}
	}
	f := msReg / msRes
	return FTestResult{FStatistic: f, PValue: bandedPValue(f)}
}

func bandedPValue(f float64) float64 {
	switch {
	case f > 10:
		return 0.001
	case f > 5:
		return 0.01
	case f > 2:
		return 0.05
	default:
		return 0.2
	}
}

// leastSquares fits y = slope*x + intercept by ordinary least squares.
func leastSquares(x, y []float64) (slope, intercept float64) {
	meanX, meanY := Mean(x), Mean(y)
	var num, den float64
	for i := range x {
		num += (x[i] - meanX) * (y[i] - meanY)
		den += (x[i] - meanX) * (x[i] - meanX)
	}
	if den == 0 {
		return 0, meanY
	}
	slope = num / den
	intercept = meanY - slope*meanX
	return slope, intercept
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
