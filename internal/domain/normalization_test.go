package domain_test

import (
	"math"
	"testing"

	"medrag/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestNormalizationMethod_Normalize(t *testing.T) {
	t.Run("none returns the raw total", func(t *testing.T) {
		got, err := domain.NormalizationNone.Normalize(2.4, 3)
		assert.NoError(t, err)
		assert.Equal(t, 2.4, got)
	})

	t.Run("linear divides by count", func(t *testing.T) {
		got, err := domain.NormalizationLinear.Normalize(2.4, 3)
		assert.NoError(t, err)
		assert.InDelta(t, 0.8, got, 1e-9)
	})

	t.Run("sqrt divides by root of count", func(t *testing.T) {
		got, err := domain.NormalizationSqrt.Normalize(1.7, 2)
		assert.NoError(t, err)
		assert.InDelta(t, 1.7/math.Sqrt(2), got, 1e-9)
		assert.InDelta(t, 1.202, got, 1e-3)
	})

	t.Run("log divides by ln of count plus one", func(t *testing.T) {
		got, err := domain.NormalizationLog.Normalize(3.0, 4)
		assert.NoError(t, err)
		assert.InDelta(t, 3.0/math.Log(5), got, 1e-9)
	})

	t.Run("unknown method is a configuration error", func(t *testing.T) {
		_, err := domain.NormalizationMethod("zscore").Normalize(1.0, 1)
		assert.ErrorIs(t, err, domain.ErrUnknownNormalization)
	})
}

func TestParseNormalizationMethod(t *testing.T) {
	for _, valid := range []string{"none", "linear", "sqrt", "log"} {
		m, err := domain.ParseNormalizationMethod(valid)
		assert.NoError(t, err)
		assert.Equal(t, valid, string(m))
	}

	_, err := domain.ParseNormalizationMethod("softmax")
	assert.ErrorIs(t, err, domain.ErrUnknownNormalization)
}
