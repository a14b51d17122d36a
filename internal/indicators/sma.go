package indicators

import (
	"errors"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// SMA represents the Simple Moving Average technical indicator
type SMA struct {
	period    int
	lastValue float64
}

// NewSMA creates a new SMA indicator
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
	}
}

// Series returns the trailing mean over period values. A window containing
// an undefined value yields NaN.
func (s *SMA) Series(values []float64) []float64 {
	out := NaNSeries(len(values))
	if s.period <= 0 {
		return out
	}

	for i := s.period - 1; i < len(values); i++ {
		window := values[i-s.period+1 : i+1]
		if !windowDefined(window) {
			continue
		}
		sum := 0.0
		for _, v := range window {
			sum += v
		}
		out[i] = sum / float64(s.period)
	}

	if n := len(out); n > 0 {
		s.lastValue = out[n-1]
	}
	return out
}

// Calculate calculates the SMA of the closes of the last period bars
func (s *SMA) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < s.period || s.period <= 0 {
		return 0, errors.New("insufficient data for SMA calculation")
	}

	sum := 0.0
	for i := len(data) - s.period; i < len(data); i++ {
		sum += data[i].Close
	}

	s.lastValue = sum / float64(s.period)
	return s.lastValue, nil
}

// GetName returns the indicator name
func (s *SMA) GetName() string {
	return "SMA"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}

// GetLastValue returns the last calculated SMA value
func (s *SMA) GetLastValue() float64 {
	return s.lastValue
}
