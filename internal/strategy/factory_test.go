package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_KnownStrategies(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{name: "ma_crossover", expected: NameMACrossover},
		{name: "  MA  ", expected: NameMACrossover},
		{name: "asymmetric_ema", expected: NameAsymmetricEMA},
		{name: "asymmetrical_ema", expected: NameAsymmetricEMA},
		{name: "sopr_ema", expected: NameSOPREMA},
		{name: "SOPR", expected: NameSOPREMA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := New(tt.name, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, gen.Name())
		})
	}
}

func TestNew_UnknownStrategy(t *testing.T) {
	_, err := New("martingale", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy")
	assert.Contains(t, err.Error(), NameSOPREMA)
}

func TestNew_ParameterTypes(t *testing.T) {
	// YAML decodes integers as int, JSON as float64
	gen, err := New(NameMACrossover, map[string]any{"short_window": 3, "long_window": 8.0})
	require.NoError(t, err)
	assert.Equal(t, "ma_crossover(3,8)", gen.(*MACrossover).String())

	_, err = New(NameMACrossover, map[string]any{"short_window": 2.5})
	assert.Error(t, err)

	_, err = New(NameMACrossover, map[string]any{"short_window": "fast"})
	assert.Error(t, err)

	_, err = New(NameSOPREMA, map[string]any{"column": 7})
	assert.Error(t, err)

	gen, err = New(NameSOPREMA, map[string]any{"column": "sopr_7d", "sopr_threshold": 1})
	require.NoError(t, err)
	assert.Equal(t, "sopr_7d", gen.(*SOPREMA).Column())
}

func TestNew_InvalidParameters(t *testing.T) {
	_, err := New(NameAsymmetricEMA, map[string]any{"short_ema": 60, "long_ema": 55})
	assert.Error(t, err)

	_, err = New(NameAsymmetricEMA, map[string]any{"slope_window": 1})
	assert.Error(t, err)

	_, err = New(NameSOPREMA, map[string]any{"arm_window": 0})
	assert.Error(t, err)
}

func TestDefaultParametersBuildEveryStrategy(t *testing.T) {
	for _, name := range Available() {
		assert.NotEqual(t, "Unknown strategy", Describe(name))

		params := DefaultParameters(name)
		assert.NotEmpty(t, params)

		_, err := New(name, params)
		assert.NoError(t, err, name)
	}

	assert.Empty(t, DefaultParameters("nope"))
	assert.Equal(t, "Unknown strategy", Describe("nope"))
}
