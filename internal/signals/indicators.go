// Package signals computes technical indicators from daily bars.
// Bars are ordered most recent first, as the provider returns them.
package signals

import (
	"math"
	"strconv"

	"github.com/bobmcallan/fleece/internal/models"
)

// Indicator is one technical series shown on the stock detail view. Function
// and Period match the provider's /technical parameters.
type Indicator struct {
	Key      string
	Function string
	Period   int
}

// Standard MACD periods.
const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// Detail lists the indicators of the stock detail view.
var Detail = []Indicator{
	{Key: "sma_50", Function: "sma", Period: 50},
	{Key: "sma_200", Function: "sma", Period: 200},
	{Key: "ema_20", Function: "ema", Period: 20},
	{Key: "rsi_14", Function: "rsi", Period: 14},
	{Key: "macd", Function: "macd"},
	{Key: "adx_14", Function: "adx", Period: 14},
}

// Params returns the provider query parameters for the indicator.
func (ind Indicator) Params() map[string]string {
	if ind.Function == "macd" {
		return map[string]string{
			"fast_period":   strconv.Itoa(macdFast),
			"slow_period":   strconv.Itoa(macdSlow),
			"signal_period": strconv.Itoa(macdSignal),
		}
	}
	return map[string]string{"period": strconv.Itoa(ind.Period)}
}

// Compute evaluates the indicator at the most recent bar, keyed the way the
// provider keys its values. Returns nil when there are too few bars.
func Compute(ind Indicator, bars []models.EODBar) map[string]float64 {
	switch ind.Function {
	case "sma":
		if len(bars) < ind.Period {
			return nil
		}
		return map[string]float64{"sma": SMA(bars, ind.Period)}
	case "ema":
		if len(bars) < ind.Period {
			return nil
		}
		return map[string]float64{"ema": EMA(bars, ind.Period)}
	case "rsi":
		if len(bars) < ind.Period+1 {
			return nil
		}
		return map[string]float64{"rsi": RSI(bars, ind.Period)}
	case "macd":
		if len(bars) < macdSlow+macdSignal-1 {
			return nil
		}
		line, signal, hist := MACD(bars, macdFast, macdSlow, macdSignal)
		return map[string]float64{"macd": line, "signal": signal, "divergence": hist}
	case "adx":
		if len(bars) < 2*ind.Period+1 {
			return nil
		}
		return map[string]float64{"adx": ADX(bars, ind.Period)}
	}
	return nil
}

// closesOldestFirst flips the bar order for the running calculations.
func closesOldestFirst(bars []models.EODBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[len(bars)-1-i] = b.Close
	}
	return out
}

// SMA calculates Simple Moving Average for the given period
func SMA(bars []models.EODBar, period int) float64 {
	if period <= 0 || len(bars) < period {
		return 0
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += bars[i].Close
	}
	return sum / float64(period)
}

// emaSeries returns the EMA at every index from period-1 onward, seeded
// with the SMA of the first period values.
func emaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	k := 2.0 / float64(period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	ema := seed / float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, ema)
	for _, v := range values[period:] {
		ema = (v-ema)*k + ema
		out = append(out, ema)
	}
	return out
}

// EMA calculates Exponential Moving Average for the given period over the
// whole series.
func EMA(bars []models.EODBar, period int) float64 {
	series := emaSeries(closesOldestFirst(bars), period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// RSI calculates the Wilder Relative Strength Index
func RSI(bars []models.EODBar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 50 // Neutral default
	}
	closes := closesOldestFirst(bars)

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACD calculates Moving Average Convergence Divergence.
// Returns MACD line, Signal line, and Histogram
func MACD(bars []models.EODBar, fastPeriod, slowPeriod, signalPeriod int) (float64, float64, float64) {
	closes := closesOldestFirst(bars)
	fast := emaSeries(closes, fastPeriod)
	slow := emaSeries(closes, slowPeriod)
	if len(slow) == 0 || len(fast) < len(slow) {
		return 0, 0, 0
	}

	// Align fast to slow: both end at the newest bar
	offset := len(fast) - len(slow)
	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i+offset] - slow[i]
	}

	signal := emaSeries(line, signalPeriod)
	if len(signal) == 0 {
		return line[len(line)-1], 0, 0
	}
	m := line[len(line)-1]
	s := signal[len(signal)-1]
	return m, s, m - s
}

// ADX calculates Wilder's Average Directional Index
func ADX(bars []models.EODBar, period int) float64 {
	n := len(bars)
	if period <= 0 || n < 2*period+1 {
		return 0
	}

	// oldest first
	asc := make([]models.EODBar, n)
	for i, b := range bars {
		asc[n-1-i] = b
	}

	var trSum, plusSum, minusSum float64
	dx := make([]float64, 0, n-period)
	for i := 1; i < n; i++ {
		cur, prev := asc[i], asc[i-1]
		tr := math.Max(cur.High-cur.Low, math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
		up := cur.High - prev.High
		down := prev.Low - cur.Low
		plusDM, minusDM := 0.0, 0.0
		if up > down && up > 0 {
			plusDM = up
		}
		if down > up && down > 0 {
			minusDM = down
		}

		if i <= period {
			trSum += tr
			plusSum += plusDM
			minusSum += minusDM
			if i < period {
				continue
			}
		} else {
			p := float64(period)
			trSum = trSum - trSum/p + tr
			plusSum = plusSum - plusSum/p + plusDM
			minusSum = minusSum - minusSum/p + minusDM
		}

		if trSum == 0 {
			dx = append(dx, 0)
			continue
		}
		plusDI := 100 * plusSum / trSum
		minusDI := 100 * minusSum / trSum
		if plusDI+minusDI == 0 {
			dx = append(dx, 0)
			continue
		}
		dx = append(dx, 100*math.Abs(plusDI-minusDI)/(plusDI+minusDI))
	}

	if len(dx) < period {
		return 0
	}
	adx := 0.0
	for _, v := range dx[:period] {
		adx += v
	}
	adx /= float64(period)
	for _, v := range dx[period:] {
		adx = (adx*float64(period-1) + v) / float64(period)
	}
	return adx
}

// High52Week returns the highest high over the most recent 252 bars
func High52Week(bars []models.EODBar) float64 {
	if len(bars) == 0 {
		return 0
	}
	limit := min(len(bars), 252)
	high := bars[0].High
	for _, b := range bars[1:limit] {
		high = math.Max(high, b.High)
	}
	return high
}

// Low52Week returns the lowest low over the most recent 252 bars
func Low52Week(bars []models.EODBar) float64 {
	if len(bars) == 0 {
		return 0
	}
	limit := min(len(bars), 252)
	low := bars[0].Low
	for _, b := range bars[1:limit] {
		if b.Low > 0 {
			low = math.Min(low, b.Low)
		}
	}
	return low
}
