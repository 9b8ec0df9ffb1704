package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeGrangerCausalitySentinelOnShortInput(t *testing.T) {
	prices := make([]float64, 10)
	sentiments := make([]float64, 10)
	result := AnalyzeGrangerCausality("BTC", "sentiment", prices, sentiments, 5)

	assert.Equal(t, "unavailable", result.DataSource)
	assert.False(t, result.IsCausal)
}

func TestAnalyzeGrangerCausalityMismatchedLengths(t *testing.T) {
	prices := make([]float64, 40)
	sentiments := make([]float64, 35)
	result := AnalyzeGrangerCausality("BTC", "sentiment", prices, sentiments, 5)
	assert.Equal(t, "unavailable", result.DataSource)
}

func TestAnalyzeGrangerCausalityComputesWithSufficientData(t *testing.T) {
	prices := make([]float64, 50)
	sentiments := make([]float64, 50)
	for i := range prices {
		prices[i] = 100 + float64(i%7)
		sentiments[i] = float64(i%3) * 0.1
	}

	result := AnalyzeGrangerCausality("BTC", "sentiment", prices, sentiments, 5)
	assert.Equal(t, "computed", result.DataSource)
	assert.Equal(t, 50, result.SampleSize)
	assert.GreaterOrEqual(t, result.OptimalLag, 1)
}
