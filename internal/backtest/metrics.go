package backtest

import (
	"math"
	"time"
)

// periodReturns returns the simple per-bar returns of the equity curve
func (b *BacktestResults) periodReturns() []float64 {
	if len(b.EquityCurve) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(b.EquityCurve)-1)
	for i := 1; i < len(b.EquityCurve); i++ {
		if b.EquityCurve[i-1].Equity > 0 {
			ret := (b.EquityCurve[i].Equity - b.EquityCurve[i-1].Equity) / b.EquityCurve[i-1].Equity
			returns = append(returns, ret)
		}
	}
	return returns
}

// CalculateSharpeRatio calculates the per-bar Sharpe ratio of the equity curve
func (b *BacktestResults) CalculateSharpeRatio() float64 {
	returns := b.periodReturns()
	if len(returns) == 0 {
		return 0
	}

	avgReturn := mean(returns)

	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-avgReturn, 2)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-10 {
		return 0
	}

	// risk-free rate assumed to be zero
	return avgReturn / stdDev
}

// CalculateMaxDrawdown returns the largest peak-to-trough decline of the equity curve as a fraction
func (b *BacktestResults) CalculateMaxDrawdown() float64 {
	maxDrawdown := 0.0
	peak := 0.0
	for _, point := range b.EquityCurve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - point.Equity) / peak; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// CalculateProfitFactor calculates gross profit over gross loss of completed round trips
func (b *BacktestResults) CalculateProfitFactor() float64 {
	if len(b.RoundTrips) == 0 {
		return 0
	}

	totalProfit := 0.0
	totalLoss := 0.0
	for _, rt := range b.RoundTrips {
		if rt.PnL > 0 {
			totalProfit += rt.PnL
		} else {
			totalLoss += math.Abs(rt.PnL)
		}
	}

	if totalLoss == 0 {
		if totalProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}

	return totalProfit / totalLoss
}

// CalculateWinRate calculates the win rate percentage of completed round trips
func (b *BacktestResults) CalculateWinRate() float64 {
	if len(b.RoundTrips) == 0 {
		return 0
	}
	wins := 0
	for _, rt := range b.RoundTrips {
		if rt.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(b.RoundTrips)) * 100
}

// UpdateMetrics updates all calculated metrics
func (b *BacktestResults) UpdateMetrics() {
	if b.StartBalance > 0 {
		b.TotalReturn = (b.EndBalance - b.StartBalance) / b.StartBalance
	}
	b.MaxDrawdown = b.CalculateMaxDrawdown()
	b.SharpeRatio = b.CalculateSharpeRatio()
	b.ProfitFactor = b.CalculateProfitFactor()
	b.WinRate = b.CalculateWinRate()

	b.calculateEnhancedMetrics()

	wins := 0
	for _, rt := range b.RoundTrips {
		if rt.PnL > 0 {
			wins++
		}
	}
	b.TotalTrades = len(b.RoundTrips)
	b.WinningTrades = wins
	b.LosingTrades = len(b.RoundTrips) - wins
}

// calculateEnhancedMetrics computes time-aware and advanced metrics from equity curve
func (b *BacktestResults) calculateEnhancedMetrics() {
	if len(b.EquityCurve) == 0 {
		return
	}

	b.calculateAnnualizedMetrics()
	b.SortinoRatio = b.calculateSortinoRatio()
	b.CalmarRatio = b.calculateCalmarRatio()
	b.calculateExposureMetrics()
	b.TotalTurnover = b.calculateTurnover()
}

// calculateAnnualizedMetrics computes annualized return and Sharpe ratio
func (b *BacktestResults) calculateAnnualizedMetrics() {
	if len(b.EquityCurve) < 2 {
		return
	}

	first := b.EquityCurve[0]
	last := b.EquityCurve[len(b.EquityCurve)-1]

	duration := last.Timestamp.Sub(first.Timestamp)
	years := duration.Hours() / (24 * 365.25)
	if years <= 0 {
		return
	}

	if first.Equity > 0 && last.Equity > 0 {
		b.AnnualizedReturn = math.Pow(last.Equity/first.Equity, 1.0/years) - 1.0
	}

	// bar frequency is estimated from the curve itself
	avgInterval := duration / time.Duration(len(b.EquityCurve)-1)
	if avgInterval > 0 {
		periodsPerYear := (24 * 365.25) / avgInterval.Hours()
		b.AnnualizedSharpe = b.SharpeRatio * math.Sqrt(periodsPerYear)
	}
}

// calculateSortinoRatio computes Sortino ratio (return / downside deviation)
func (b *BacktestResults) calculateSortinoRatio() float64 {
	returns := b.periodReturns()
	if len(returns) == 0 {
		return 0
	}

	avgReturn := mean(returns)

	downsideVariance := 0.0
	downsideCount := 0
	for _, r := range returns {
		if r < 0 {
			downsideVariance += r * r
			downsideCount++
		}
	}

	if downsideCount == 0 || downsideVariance == 0 {
		if avgReturn > 0 {
			return math.Inf(1)
		}
		return 0
	}

	downsideStdDev := math.Sqrt(downsideVariance / float64(downsideCount))
	return avgReturn / downsideStdDev
}

// calculateCalmarRatio computes Calmar ratio (annualized return / max drawdown)
func (b *BacktestResults) calculateCalmarRatio() float64 {
	if b.MaxDrawdown == 0 {
		if b.AnnualizedReturn > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return b.AnnualizedReturn / b.MaxDrawdown
}

// calculateExposureMetrics computes max and average exposure
func (b *BacktestResults) calculateExposureMetrics() {
	maxExp := 0.0
	totalExp := 0.0

	for _, point := range b.EquityCurve {
		if point.Exposure > maxExp {
			maxExp = point.Exposure
		}
		totalExp += point.Exposure
	}

	b.MaxExposure = maxExp
	b.AvgExposure = totalExp / float64(len(b.EquityCurve))
}

// calculateTurnover computes total traded value over average equity
func (b *BacktestResults) calculateTurnover() float64 {
	totalVolume := 0.0
	for _, trade := range b.Trades {
		totalVolume += trade.Value
	}

	avgEquity := mean(b.Equities())
	if avgEquity == 0 {
		return 0
	}

	return totalVolume / avgEquity
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
