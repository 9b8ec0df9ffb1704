package processor

import (
	"fmt"

	"github.com/aristath/marketcore/internal/analysis/stats"
	"github.com/aristath/marketcore/internal/domain"
)

// MinGrangerSampleSize is the minimum aligned sample length the Granger
// causality operator requires (spec §4.5).
const MinGrangerSampleSize = 30

// AnalyzeGrangerCausality approximates Granger causality between a price
// series and an aligned sentiment series via a banded F-test on lagged
// single-variable regressions. Sequences shorter than MinGrangerSampleSize
// or of unequal length return a sentinel, non-causal result rather than an
// error (spec §4.5/§8).
func AnalyzeGrangerCausality(primarySymbol, secondarySymbol string, prices, sentiments []float64, maxLagHours int) domain.GrangerCausalityResult {
	if len(prices) != len(sentiments) || len(prices) < MinGrangerSampleSize {
		return domain.GrangerCausalityResult{
			PrimarySymbol:   primarySymbol,
			SecondarySymbol: secondarySymbol,
			IsCausal:        false,
			Interpretation:  fmt.Sprintf("insufficient aligned samples to test causality (minimum %d required)", MinGrangerSampleSize),
			DataSource:      "unavailable",
		}
	}

	returns := stats.Returns(prices)
	maxLag := maxLagHours
	if bound := len(returns) / 4; bound < maxLag {
		maxLag = bound
	}
	if maxLag < 1 {
		maxLag = 1
	}

	bestLag := 1
	bestF := 0.0
	bestP := 1.0
	found := false
	for lag := 1; lag <= maxLag; lag++ {
		if lag >= len(returns) || lag >= len(sentiments) {
			break
		}
		dependent := returns[lag:]
		independent := sentiments[:len(sentiments)-lag]
		if len(independent) > len(dependent) {
			independent = independent[len(independent)-len(dependent):]
		} else if len(dependent) > len(independent) {
			dependent = dependent[len(dependent)-len(independent):]
		}
		test := stats.SimpleFTest(dependent, independent)
		if !found || (test.PValue < bestP && test.FStatistic > bestF) {
			bestLag, bestF, bestP = lag, test.FStatistic, test.PValue
			found = true
		}
	}

	isCausal := bestP < 0.05 && bestF > 2.0
	return domain.GrangerCausalityResult{
		PrimarySymbol:   primarySymbol,
		SecondarySymbol: secondarySymbol,
		OptimalLag:      bestLag,
		FStatistic:      bestF,
		PValue:          bestP,
		IsCausal:        isCausal,
		Interpretation:  interpretGranger(isCausal, bestLag, bestF, bestP),
		SampleSize:      len(prices),
		DataSource:      "computed",
	}
}

func interpretGranger(isCausal bool, lag int, f, p float64) string {
	if !isCausal {
		return fmt.Sprintf("no significant causal relationship detected (best lag=%d, F=%.2f, p=%.3f)", lag, f, p)
	}
	return fmt.Sprintf("sentiment appears to Granger-cause price movement at lag=%d (F=%.2f, p=%.3f)", lag, f, p)
}
