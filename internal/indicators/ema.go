package indicators

// EMA represents the Exponential Moving Average technical indicator.
// It is seeded with the first defined value and then applies
// EMA = value*alpha + previous*(1-alpha) on every subsequent value.
type EMA struct {
	period      int
	alpha       float64
	lastValue   float64
	initialized bool
}

// NewEMA creates a new EMA indicator
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1), // Standard EMA alpha calculation
	}
}

// Series computes the EMA over values. Leading undefined values stay NaN;
// undefined values after the seed carry the previous EMA forward.
func (e *EMA) Series(values []float64) []float64 {
	e.ResetState()
	out := NaNSeries(len(values))
	for i, v := range values {
		if !IsDefined(v) {
			if e.initialized {
				out[i] = e.lastValue
			}
			continue
		}
		out[i] = e.UpdateSingle(v)
	}
	return out
}

// UpdateSingle updates the EMA with a single data point
func (e *EMA) UpdateSingle(value float64) float64 {
	if !e.initialized {
		e.lastValue = value
		e.initialized = true
	} else {
		e.lastValue = (value * e.alpha) + (e.lastValue * (1 - e.alpha))
	}

	return e.lastValue
}

// IsInitialized returns whether the EMA has been initialized
func (e *EMA) IsInitialized() bool {
	return e.initialized
}

// GetName returns the indicator name
func (e *EMA) GetName() string {
	return "EMA"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (e *EMA) GetRequiredPeriods() int {
	return 1
}

// GetLastValue returns the last calculated EMA value
func (e *EMA) GetLastValue() float64 {
	return e.lastValue
}

// ResetState resets the EMA internal state for new data periods
func (e *EMA) ResetState() {
	e.lastValue = 0.0
	e.initialized = false
}
