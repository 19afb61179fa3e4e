package domain

import (
	"fmt"
	"math"
)

// NormalizationMethod converts a document's aggregated chunk scores and
// chunk count into one comparable ranking score.
type NormalizationMethod string

const (
	NormalizationNone   NormalizationMethod = "none"
	NormalizationLinear NormalizationMethod = "linear"
	NormalizationSqrt   NormalizationMethod = "sqrt"
	NormalizationLog    NormalizationMethod = "log"
)

// ErrUnknownNormalization marks a normalization method outside the
// supported set. It is a configuration error, never silently defaulted.
var ErrUnknownNormalization = fmt.Errorf("unknown normalization method")

// ParseNormalizationMethod validates a configured method name.
func ParseNormalizationMethod(s string) (NormalizationMethod, error) {
	switch m := NormalizationMethod(s); m {
	case NormalizationNone, NormalizationLinear, NormalizationSqrt, NormalizationLog:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownNormalization, s)
	}
}

// Normalize applies the method to a document's summed score and chunk count.
func (m NormalizationMethod) Normalize(total float64, count int) (float64, error) {
	switch m {
	case NormalizationNone:
		return total, nil
	case NormalizationLinear:
		return total / float64(count), nil
	case NormalizationSqrt:
		return total / math.Sqrt(float64(count)), nil
	case NormalizationLog:
		return total / math.Log(float64(count)+1), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownNormalization, string(m))
	}
}
