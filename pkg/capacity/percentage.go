package capacity

import (
	"errors"
	"math/big"
)

var (
	// ErrDegenerateCeiling is returned when a ceiling is nil, zero or negative.
	ErrDegenerateCeiling = errors.New("ceiling must be positive")
	// ErrNegativeCounter is returned for a nil or negative counter.
	ErrNegativeCounter = errors.New("counter must be non-negative")
)

var (
	scale   = big.NewInt(10000)
	hundred = 100.0
)

// Percentage returns counter/ceiling as a percentage with two decimals of
// precision. The counter is scaled by 10000 and divided by the ceiling with
// truncating integer division before any conversion to float, so values near
// 2^64 keep their precision.
func Percentage(counter, ceiling *big.Int) (float64, error) {
	if ceiling == nil || ceiling.Sign() <= 0 {
		return 0, ErrDegenerateCeiling
	}
	if counter == nil || counter.Sign() < 0 {
		return 0, ErrNegativeCounter
	}

	scaled := new(big.Int).Mul(counter, scale)
	scaled.Quo(scaled, ceiling)

	// scaled fits in a float64 exactly unless the counter is far past its
	// ceiling, where precision no longer matters.
	basisPoints, _ := new(big.Float).SetInt(scaled).Float64()
	return basisPoints / hundred, nil
}
