// Package indicators wraps go-talib for the technical indicators the regime
// detector needs (spec §4.5: RSI(14), SMA(50/200), EMA(20)). Grounded on the
// sibling-module trader-go/pkg/formulas/{rsi,ema}.go pattern: NaN-checked,
// pointer-returning (nil means "not computable from this input"), with an
// SMA fallback when EMA's input is shorter than its period.
package indicators

import "github.com/markcheno/go-talib"

func isNaN(f float64) bool { return f != f }

// RSI computes the most recent RSI(length) value, or nil if there are fewer
// than length+1 closes.
func RSI(closes []float64, length int) *float64 {
	if len(closes) < length+1 {
		return nil
	}
	values := talib.Rsi(closes, length)
	if n := len(values); n > 0 && !isNaN(values[n-1]) {
		v := values[n-1]
		return &v
	}
	return nil
}

// SMA computes the most recent SMA(length) value, or nil if there are fewer
// than length closes.
func SMA(closes []float64, length int) *float64 {
	if len(closes) < length {
		return nil
	}
	values := talib.Sma(closes, length)
	if n := len(values); n > 0 && !isNaN(values[n-1]) {
		v := values[n-1]
		return &v
	}
	return nil
}

// EMA computes the most recent EMA(length) value. When the series is
// shorter than length it falls back to the plain mean of what's available,
// matching the teacher's formulas.CalculateEMA degraded-input behaviour.
func EMA(closes []float64, length int) *float64 {
	if len(closes) == 0 {
		return nil
	}
	if len(closes) < length {
		v := mean(closes)
		return &v
	}
	values := talib.Ema(closes, length)
	if n := len(values); n > 0 && !isNaN(values[n-1]) {
		v := values[n-1]
		return &v
	}
	v := mean(closes[len(closes)-length:])
	return &v
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// PivotPoints computes classical pivot, support, and resistance levels over
// a high/low/close triple (spec §4.5: "classical pivot P=(H+L+C)/3 ... with
// S1/R1/S2/R2").
type PivotPoints struct {
	Pivot float64
	S1    float64
	R1    float64
	S2    float64
	R2    float64
}

// ClassicalPivots computes pivots from the high, low, and close of a
// lookback window (the recent-30-window per spec §4.5).
func ClassicalPivots(high, low, close float64) PivotPoints {
	pivot := (high + low + close) / 3
	return PivotPoints{
		Pivot: pivot,
		R1:    2*pivot - low,
		S1:    2*pivot - high,
		R2:    pivot + (high - low),
		S2:    pivot - (high - low),
	}
}
