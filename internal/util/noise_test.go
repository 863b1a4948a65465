package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoise_RangeAndDeterminism(t *testing.T) {
	for _, kind := range []string{NoisePerlin, NoiseSimplex} {
		t.Run(kind, func(t *testing.T) {
			a, err := NewNoise(kind, 99)
			require.NoError(t, err)
			b, err := NewNoise(kind, 99)
			require.NoError(t, err)

			for i := 0; i < 200; i++ {
				x, y := float64(i)*0.37, float64(i)*-0.21
				v := a.Noise2D(x, y)
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
				assert.Equal(t, v, b.Noise2D(x, y))
			}
		})
	}
}

func TestNewNoise_UnknownKind(t *testing.T) {
	_, err := NewNoise("value", 1)
	assert.Error(t, err)
}
