package capacity

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentage(t *testing.T) {
	maxUint64 := "18446744073709551615"
	maxInt64 := "9223372036854775807"

	tests := []struct {
		name     string
		counter  string
		ceiling  string
		expected float64
	}{
		{name: "empty table", counter: "0", ceiling: "2147483647", expected: 0},
		{name: "unsigned int at ceiling", counter: "4294967295", ceiling: "4294967295", expected: 100},
		{name: "signed smallint", counter: "16000", ceiling: "32767", expected: 48.82},
		{name: "half of tinyint", counter: "64", ceiling: "127", expected: 50.39},
		{name: "unsigned bigint at ceiling", counter: maxUint64, ceiling: maxUint64, expected: 100},
		{name: "unsigned bigint one below ceiling", counter: "18446744073709551614", ceiling: maxUint64, expected: 99.99},
		{name: "signed bigint at ceiling", counter: maxInt64, ceiling: maxInt64, expected: 100},
		{name: "signed bigint one below ceiling", counter: "9223372036854775806", ceiling: maxInt64, expected: 99.99},
		{name: "bigint counter in unsigned bigint", counter: maxInt64, ceiling: maxUint64, expected: 49.99},
		{name: "past ceiling", counter: "300", ceiling: "255", expected: 117.64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Percentage(mustBig(t, tt.counter), mustBig(t, tt.ceiling))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPercentage_MatchesScaledIntegerFormula(t *testing.T) {
	ceiling := mustBig(t, "18446744073709551615")
	step := new(big.Int).Div(ceiling, big.NewInt(97))

	for counter := big.NewInt(0); counter.Cmp(ceiling) <= 0; counter = new(big.Int).Add(counter, step) {
		expected := new(big.Int).Mul(counter, big.NewInt(10000))
		expected.Quo(expected, ceiling)

		got, err := Percentage(counter, ceiling)
		require.NoError(t, err)
		assert.Equal(t, float64(expected.Int64())/100, got, "counter %s", counter)
	}
}

func TestPercentage_Deterministic(t *testing.T) {
	counter := mustBig(t, "12345678901234567890")
	ceiling := mustBig(t, "18446744073709551615")

	first, err := Percentage(counter, ceiling)
	require.NoError(t, err)
	second, err := Percentage(counter, ceiling)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "12345678901234567890", counter.String(), "counter must not be mutated")
}

func TestPercentage_Errors(t *testing.T) {
	_, err := Percentage(big.NewInt(1), big.NewInt(0))
	assert.ErrorIs(t, err, ErrDegenerateCeiling)

	_, err = Percentage(big.NewInt(1), big.NewInt(-5))
	assert.ErrorIs(t, err, ErrDegenerateCeiling)

	_, err = Percentage(big.NewInt(1), nil)
	assert.ErrorIs(t, err, ErrDegenerateCeiling)

	_, err = Percentage(big.NewInt(-1), big.NewInt(10))
	assert.ErrorIs(t, err, ErrNegativeCounter)

	_, err = Percentage(nil, big.NewInt(10))
	assert.ErrorIs(t, err, ErrNegativeCounter)
}
