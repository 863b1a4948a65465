package util

import (
	"fmt"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Noise - источник двумерного когерентного шума со значениями от 0 до 1.
// Реализации безопасны для одновременного чтения из нескольких горутин.
type Noise interface {
	Noise2D(x, y float64) float64
}

// Типы шума
const (
	NoisePerlin  = "perlin"
	NoiseSimplex = "simplex"
)

type perlinNoise struct {
	p *perlin.Perlin
}

// NewPerlinNoise создаёт генератор шума Перлина с указанным сидом
func NewPerlinNoise(seed int64) Noise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &perlinNoise{p: perlin.NewPerlin(alpha, beta, n, seed)}
}

// Noise2D возвращает значение шума Перлина для указанных координат (от 0 до 1)
func (n *perlinNoise) Noise2D(x, y float64) float64 {
	// Шум Перлина лежит в диапазоне от -1 до 1
	return clamp01((n.p.Noise2D(x, y) + 1.0) / 2.0)
}

type simplexNoise struct {
	s opensimplex.Noise
}

// NewSimplexNoise создаёт генератор шума OpenSimplex
func NewSimplexNoise(seed int64) Noise {
	return &simplexNoise{s: opensimplex.New(seed)}
}

func (n *simplexNoise) Noise2D(x, y float64) float64 {
	return clamp01((n.s.Eval2(x, y) + 1.0) / 2.0)
}

// NewNoise создаёт генератор шума по имени типа
func NewNoise(kind string, seed int64) (Noise, error) {
	switch kind {
	case "", NoisePerlin:
		return NewPerlinNoise(seed), nil
	case NoiseSimplex:
		return NewSimplexNoise(seed), nil
	default:
		return nil, fmt.Errorf("неизвестный тип шума %q", kind)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
