package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketcore/internal/domain"
)

func TestDetectRegimeBelowMinimumSampleSize(t *testing.T) {
	prices := make([]float64, 10)
	for i := range prices {
		prices[i] = 100.0
	}
	result := DetectRegime("BTC", domain.MarketCrypto, prices)

	assert.Equal(t, domain.RegimeNeutral, result.Regime)
	assert.Equal(t, float64(0), result.Confidence)
	assert.Equal(t, 10, result.SampleSize)
	assert.Equal(t, domain.TrendSideways, result.TrendDirection)
}

func TestDetectRegimeFlatSeriesIsNeutralLowVolatility(t *testing.T) {
	prices := make([]float64, 200)
	for i := range prices {
		prices[i] = 2000.0
	}
	result := DetectRegime("XAU", domain.MarketGold, prices)

	assert.Equal(t, domain.RegimeNeutral, result.Regime)
	assert.Equal(t, domain.VolatilityLow, result.VolatilityRegime)
	assert.LessOrEqual(t, result.Confidence, 0.3)
}

func TestDetectRegimeBullishUptrend(t *testing.T) {
	prices := make([]float64, 250)
	for i := range prices {
		// Net +0.25 per step, alternating +1.5/-1.0 so RSI(14) settles
		// near 60 rather than pinning at 100.
		prices[i] = 100.0 + float64(i)*0.25 + 1.25*float64(i%2)
	}
	result := DetectRegime("BTC", domain.MarketCrypto, prices)

	require.NotNil(t, result.SMA50)
	require.NotNil(t, result.SMA200)
	assert.Equal(t, domain.RegimeBull, result.Regime)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestDetectRegimeSupportResistancePopulated(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100.0 + float64(i%5)
	}
	result := DetectRegime("BTC", domain.MarketCrypto, prices)
	require.NotNil(t, result.SupportLevel)
	require.NotNil(t, result.ResistanceLevel)
	assert.LessOrEqual(t, *result.SupportLevel, *result.ResistanceLevel)
}
