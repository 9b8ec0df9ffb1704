package processor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aristath/marketcore/internal/analysis/stats"
	"github.com/aristath/marketcore/internal/domain"
)

// DefaultAnomalyLookback is the lookback window for rolling statistics
// (spec §4.5: lookback=20).
const DefaultAnomalyLookback = 20

// AnomalyInput bundles the optional series the anomaly detector accepts.
// Only Prices is required; Timestamps/Sentiments/Volumes/SupportLevel/
// ResistanceLevel may be nil or shorter, in which case the sub-detector
// that needs them is skipped rather than erroring (spec §4.5 "operators
// ... never perform I/O" + §8 "sequences shorter than minimum sample size
// return sentinel results, not exceptions").
type AnomalyInput struct {
	Symbol          string
	MarketType      domain.MarketType
	Prices          []float64
	Timestamps      []time.Time // aligned with Prices; optional
	Sentiments      []float64   // aligned with Prices; optional
	Volumes         []float64   // aligned with Prices; optional
	SupportLevel    *float64
	ResistanceLevel *float64
	Lookback        int
}

// DetectAnomalies runs every sub-detector and returns an ordered list: by
// severity (critical > high > medium > low), then by timestamp descending.
func DetectAnomalies(in AnomalyInput) []domain.AnomalyDetection {
	lookback := in.Lookback
	if lookback <= 0 {
		lookback = DefaultAnomalyLookback
	}

	var findings []domain.AnomalyDetection
	findings = append(findings, detectSuddenPriceMoves(in, lookback)...)
	findings = append(findings, detectSentimentDivergence(in)...)
	findings = append(findings, detectVolumeSpikes(in, lookback)...)
	findings = append(findings, detectLevelBreaks(in)...)
	findings = append(findings, detectVolatilitySpikes(in, lookback)...)

	sort.SliceStable(findings, func(i, j int) bool {
		ri, rj := domain.SeverityRank(findings[i].Severity), domain.SeverityRank(findings[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return findings[i].Timestamp.After(findings[j].Timestamp)
	})
	return findings
}

func timestampAt(in AnomalyInput, index int) time.Time {
	if index >= 0 && index < len(in.Timestamps) {
		return in.Timestamps[index]
	}
	return time.Time{}
}

func priceMoveSeverity(absZ float64) domain.AnomalySeverity {
	switch {
	case absZ > 4:
		return domain.SeverityCritical
	case absZ > 3:
		return domain.SeverityHigh
	case absZ > 2:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// detectSuddenPriceMoves scans period-to-period returns for z-score
// outliers against a trailing rolling mean/std.
func detectSuddenPriceMoves(in AnomalyInput, lookback int) []domain.AnomalyDetection {
	returns := stats.Returns(in.Prices)
	var out []domain.AnomalyDetection
	for i := lookback; i < len(returns); i++ {
		window := returns[i-lookback : i]
		mean := stats.Mean(window)
		std := stats.StdDev(window)
		if std == 0 {
			continue
		}
		current := returns[i]
		z := (current - mean) / std
		absZ := math.Abs(z)
		if absZ <= 2 {
			continue
		}
		severity := priceMoveSeverity(absZ)
		anomalyType := domain.AnomalySuddenPriceMove
		direction := "up"
		if z < 0 {
			direction = "down"
			if current < -0.02 {
				anomalyType = domain.AnomalyFlashCrash
			}
		} else if current > 0.02 {
			anomalyType = domain.AnomalyFlashPump
		}
		zCopy := z
		out = append(out, domain.AnomalyDetection{
			AnomalyType:        anomalyType,
			Severity:           severity,
			Symbol:             in.Symbol,
			MarketType:         in.MarketType,
			Timestamp:          timestampAt(in, i+1),
			Description:        fmt.Sprintf("price moved %s %.2f%% (z-score %.2f) against trailing %d-period baseline", direction, current*100, z, lookback),
			Recommendation:     "review position sizing and confirm against a secondary price feed",
			PriceAtDetection:   in.Prices[i+1],
			PriceChangePercent: current * 100,
			ZScore:             &zCopy,
		})
	}
	return out
}

// detectSentimentDivergence flags points where price and sentiment move in
// opposing directions beyond the spec's thresholds.
func detectSentimentDivergence(in AnomalyInput) []domain.AnomalyDetection {
	if len(in.Sentiments) != len(in.Prices) || len(in.Prices) < 2 {
		return nil
	}
	var out []domain.AnomalyDetection
	for i := 1; i < len(in.Prices); i++ {
		if in.Prices[i-1] == 0 {
			continue
		}
		priceChange := (in.Prices[i] - in.Prices[i-1]) / in.Prices[i-1] * 100
		if math.Abs(priceChange) <= 0.3 {
			continue
		}
		sentimentChange := in.Sentiments[i] - in.Sentiments[i-1]

		var label string
		switch {
		case priceChange > 0 && sentimentChange < -0.1:
			label = "bearish"
		case priceChange < 0 && sentimentChange > 0.1:
			label = "bullish"
		default:
			continue
		}

		severity := domain.SeverityMedium
		if math.Abs(priceChange) > 1.0 && math.Abs(sentimentChange) > 0.2 {
			severity = domain.SeverityHigh
		}

		expected := in.Sentiments[i-1] + priceChange/100
		sentimentScore := in.Sentiments[i]
		out = append(out, domain.AnomalyDetection{
			AnomalyType:        domain.AnomalyPriceSentimentDivergence,
			Severity:           severity,
			Symbol:             in.Symbol,
			MarketType:         in.MarketType,
			Timestamp:          timestampAt(in, i),
			Description:        fmt.Sprintf("%s divergence: price moved %.2f%% while sentiment shifted %.2f", label, priceChange, sentimentChange),
			Recommendation:     "reconcile against independent sentiment sources before acting",
			PriceAtDetection:   in.Prices[i],
			PriceChangePercent: priceChange,
			SentimentScore:     &sentimentScore,
			ExpectedSentiment:  &expected,
		})
	}
	return out
}

// detectVolumeSpikes flags volume >= 3x its trailing mean (>=5x raises
// severity to high).
func detectVolumeSpikes(in AnomalyInput, lookback int) []domain.AnomalyDetection {
	if len(in.Volumes) != len(in.Prices) {
		return nil
	}
	var out []domain.AnomalyDetection
	for i := lookback; i < len(in.Volumes); i++ {
		trailing := in.Volumes[i-lookback : i]
		meanVol := stats.Mean(trailing)
		if meanVol == 0 {
			continue
		}
		ratio := in.Volumes[i] / meanVol
		if ratio < 3 {
			continue
		}
		severity := domain.SeverityMedium
		if ratio >= 5 {
			severity = domain.SeverityHigh
		}
		ratioCopy := ratio
		priceChange := 0.0
		if in.Prices[i-1] != 0 {
			priceChange = (in.Prices[i] - in.Prices[i-1]) / in.Prices[i-1] * 100
		}
		out = append(out, domain.AnomalyDetection{
			AnomalyType:        domain.AnomalyVolumeSpike,
			Severity:           severity,
			Symbol:             in.Symbol,
			MarketType:         in.MarketType,
			Timestamp:          timestampAt(in, i),
			Description:        fmt.Sprintf("volume %.2fx trailing %d-period mean", ratio, lookback),
			Recommendation:     "check for a catalyst (news, listing event) before trading into the spike",
			PriceAtDetection:   in.Prices[i],
			PriceChangePercent: priceChange,
			VolumeRatio:        &ratioCopy,
		})
	}
	return out
}

// detectLevelBreaks flags the last close crossing a provided support or
// resistance level by more than 0.3%.
func detectLevelBreaks(in AnomalyInput) []domain.AnomalyDetection {
	if len(in.Prices) == 0 {
		return nil
	}
	last := in.Prices[len(in.Prices)-1]
	lastIdx := len(in.Prices) - 1
	var out []domain.AnomalyDetection

	if in.SupportLevel != nil && *in.SupportLevel != 0 {
		breach := (*in.SupportLevel - last) / *in.SupportLevel * 100
		if breach > 0.3 {
			out = append(out, domain.AnomalyDetection{
				AnomalyType:        domain.AnomalySupportBreak,
				Severity:           domain.SeverityHigh,
				Symbol:             in.Symbol,
				MarketType:         in.MarketType,
				Timestamp:          timestampAt(in, lastIdx),
				Description:        fmt.Sprintf("price broke support level %.4f by %.2f%%", *in.SupportLevel, breach),
				Recommendation:     "reassess downside risk; support has failed to hold",
				PriceAtDetection:   last,
				PriceChangePercent: -breach,
			})
		}
	}
	if in.ResistanceLevel != nil && *in.ResistanceLevel != 0 {
		breach := (last - *in.ResistanceLevel) / *in.ResistanceLevel * 100
		if breach > 0.3 {
			out = append(out, domain.AnomalyDetection{
				AnomalyType:        domain.AnomalyResistanceBreak,
				Severity:           domain.SeverityHigh,
				Symbol:             in.Symbol,
				MarketType:         in.MarketType,
				Timestamp:          timestampAt(in, lastIdx),
				Description:        fmt.Sprintf("price broke resistance level %.4f by %.2f%%", *in.ResistanceLevel, breach),
				Recommendation:     "confirm breakout with volume before adding exposure",
				PriceAtDetection:   last,
				PriceChangePercent: breach,
			})
		}
	}
	return out
}

// detectVolatilitySpikes flags a rolling std of returns jumping above its
// own rolling median by a factor of 2 or more.
func detectVolatilitySpikes(in AnomalyInput, lookback int) []domain.AnomalyDetection {
	returns := stats.Returns(in.Prices)
	if len(returns) < lookback*2 {
		return nil
	}
	rollingStds := make([]float64, 0, len(returns)-lookback+1)
	for i := lookback; i <= len(returns); i++ {
		rollingStds = append(rollingStds, stats.StdDev(returns[i-lookback:i]))
	}
	var out []domain.AnomalyDetection
	for i := lookback; i < len(rollingStds); i++ {
		history := rollingStds[:i]
		median := medianOf(history)
		if median == 0 {
			continue
		}
		current := rollingStds[i]
		if current/median < 2 {
			continue
		}
		returnIdx := i + lookback - 1
		priceIdx := returnIdx + 1
		if priceIdx >= len(in.Prices) {
			priceIdx = len(in.Prices) - 1
		}
		out = append(out, domain.AnomalyDetection{
			AnomalyType:        domain.AnomalyVolatilitySpike,
			Severity:           domain.SeverityMedium,
			Symbol:             in.Symbol,
			MarketType:         in.MarketType,
			Timestamp:          timestampAt(in, priceIdx),
			Description:        fmt.Sprintf("rolling volatility %.5f is %.2fx its own rolling median", current, current/median),
			Recommendation:     "widen stop-loss bands until volatility normalizes",
			PriceAtDetection:   in.Prices[priceIdx],
			PriceChangePercent: returns[returnIdx] * 100,
		})
	}
	return out
}

func medianOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
