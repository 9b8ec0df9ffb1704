package processor

import (
	"fmt"
	"math"

	"github.com/aristath/marketcore/internal/analysis/stats"
	"github.com/aristath/marketcore/internal/domain"
)

// MinCorrelationSampleSize is the minimum aligned sample length the
// correlation analyzer requires (spec §4.5).
const MinCorrelationSampleSize = 30

// LeadLagWindow is the lag range [-5, 5] scanned by the lead/lag analysis.
const LeadLagWindow = 5

// RollingWindow is the window size used for the rolling-correlation series.
const RollingWindow = 10

// AnalyzeCorrelation computes the Pearson correlation between two aligned
// price sequences plus its rolling and lead/lag breakdowns. Sequences
// shorter than MinCorrelationSampleSize or of unequal length return a
// sentinel result (correlation=0, sample_size=0, data_source="unavailable")
// rather than an error, per spec §4.5/§8.
func AnalyzeCorrelation(primarySymbol, secondarySymbol string, primary, secondary []float64, periodDays int) domain.CorrelationResult {
	if len(primary) != len(secondary) || len(primary) < MinCorrelationSampleSize {
		return insufficientCorrelationResult(primarySymbol, secondarySymbol, periodDays)
	}

	corr := stats.Correlation(primary, secondary)
	strength := classifyCorrelationStrength(corr)

	rolling := stats.RollingCorrelation(primary, secondary, RollingWindow)
	rollingPoints := make([]domain.RollingCorrelationPoint, 0, len(rolling))
	for _, p := range rolling {
		rollingPoints = append(rollingPoints, domain.RollingCorrelationPoint{Index: p.Index, Correlation: p.Correlation})
	}

	lag := stats.LeadLag(primary, secondary, LeadLagWindow)
	lagResult := &domain.LagAnalysis{
		OptimalLag:         lag.OptimalLag,
		OptimalCorrelation: lag.OptimalCorrelation,
		Leader:             lag.Leader,
		Lagger:             lag.Lagger,
		AllCorrelations:    lag.AllCorrelations,
	}

	return domain.CorrelationResult{
		PrimarySymbol:       primarySymbol,
		SecondarySymbol:     secondarySymbol,
		Correlation:         corr,
		CorrelationStrength: strength,
		SampleSize:          len(primary),
		PeriodDays:          periodDays,
		RollingCorrelations: rollingPoints,
		LagAnalysis:         lagResult,
		Interpretation:      interpretCorrelation(corr, strength, lag),
		DataSource:          "computed",
	}
}

func insufficientCorrelationResult(primarySymbol, secondarySymbol string, periodDays int) domain.CorrelationResult {
	return domain.CorrelationResult{
		PrimarySymbol:       primarySymbol,
		SecondarySymbol:     secondarySymbol,
		Correlation:         0.0,
		CorrelationStrength: domain.CorrelationWeak,
		SampleSize:          0,
		PeriodDays:          periodDays,
		Interpretation:      fmt.Sprintf("insufficient aligned samples to compute correlation (minimum %d required)", MinCorrelationSampleSize),
		DataSource:          "unavailable",
	}
}

func classifyCorrelationStrength(corr float64) domain.CorrelationStrength {
	abs := math.Abs(corr)
	positive := corr >= 0
	switch {
	case abs >= 0.8:
		if positive {
			return domain.CorrelationVeryStrongPositive
		}
		return domain.CorrelationVeryStrongNegative
	case abs >= 0.6:
		if positive {
			return domain.CorrelationStrongPositive
		}
		return domain.CorrelationStrongNegative
	case abs >= 0.4:
		if positive {
			return domain.CorrelationModeratePositive
		}
		return domain.CorrelationModerateNegative
	default:
		return domain.CorrelationWeak
	}
}

func interpretCorrelation(corr float64, strength domain.CorrelationStrength, lag stats.LagResult) string {
	magnitude := "weak"
	abs := math.Abs(corr)
	switch {
	case abs > 0.7:
		magnitude = "strong"
	case abs > 0.4:
		magnitude = "moderate"
	}
	direction := "positive"
	if corr < 0 {
		direction = "negative"
	}
	text := fmt.Sprintf("%s %s correlation (r=%.3f, %s)", magnitude, direction, corr, strength)
	if lag.OptimalLag != 0 {
		text += fmt.Sprintf("; %s leads %s by %d period(s)", lag.Leader, lag.Lagger, abs64(lag.OptimalLag))
	}
	return text
}

func abs64(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
