package world

import (
	"math/rand"

	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Generator создаёт блоки чанка по координатам. Вызывается из воркеров,
// реализация должна быть безопасна для параллельного использования.
type Generator interface {
	Generate(coords vec.Vec2, dims Dimensions) []Block
}

// GeneratorFunc позволяет использовать функцию как Generator
type GeneratorFunc func(coords vec.Vec2, dims Dimensions) []Block

// Generate вызывает f
func (f GeneratorFunc) Generate(coords vec.Vec2, dims Dimensions) []Block {
	return f(coords, dims)
}

// TerrainSettings - параметры ландшафта
type TerrainSettings struct {
	NoiseScale float64 // Масштаб шума высоты
	BaseHeight int     // Минимальная высота поверхности
	Amplitude  int     // Размах высот над BaseHeight
	SeaLevel   int     // Ниже уровня моря пустоты заполняются водой
	LampChance float64 // Вероятность фонаря на поверхности столба
}

// DefaultTerrainSettings возвращает параметры ландшафта по умолчанию
func DefaultTerrainSettings() TerrainSettings {
	return TerrainSettings{
		NoiseScale: 0.05,
		BaseHeight: 40,
		Amplitude:  24,
		SeaLevel:   48,
		LampChance: 0.002,
	}
}

// WorldGenerator генерирует ландшафт мира по карте высот
type WorldGenerator struct {
	Seed     int64
	Settings TerrainSettings
	noise    util.Noise
}

// NewWorldGenerator создаёт новый генератор мира
func NewWorldGenerator(seed int64, noise util.Noise, settings TerrainSettings) *WorldGenerator {
	if noise == nil {
		noise = util.NewPerlinNoise(seed)
	}
	return &WorldGenerator{
		Seed:     seed,
		Settings: settings,
		noise:    noise,
	}
}

// Generate генерирует блоки чанка. Результат детерминирован по сиду и координатам.
func (wg *WorldGenerator) Generate(coords vec.Vec2, dims Dimensions) []Block {
	blocks := make([]Block, dims.Volume())

	// Для каждого чанка создаем уникальный сид на основе глобального сида и координат
	chunkSeed := wg.Seed + int64(coords.X*31) + int64(coords.Y*17)
	rng := rand.New(rand.NewSource(chunkSeed))

	origin := dims.Origin(coords)
	s := wg.Settings

	for y := 0; y < dims.Width; y++ {
		for x := 0; x < dims.Width; x++ {
			nx := float64(origin.X+x) * s.NoiseScale
			ny := float64(origin.Y+y) * s.NoiseScale

			surface := s.BaseHeight + int(wg.noise.Noise2D(nx, ny)*float64(s.Amplitude))
			if surface >= dims.Height {
				surface = dims.Height - 1
			}
			if surface < 0 {
				surface = 0
			}

			for z := 0; z <= surface; z++ {
				blocks[dims.Index(x, y, z)] = NewBlock(wg.blockForDepth(z, surface))
			}
			for z := surface + 1; z < s.SeaLevel && z < dims.Height; z++ {
				blocks[dims.Index(x, y, z)] = NewBlock(block.WaterBlockID)
			}

			if surface+1 >= s.SeaLevel && surface+1 < dims.Height && rng.Float64() < s.LampChance {
				blocks[dims.Index(x, y, surface+1)] = NewBlock(block.TorchBlockID)
			}
		}
	}
	return blocks
}

// blockForDepth возвращает материал слоя на высоте z для столба с поверхностью surface
func (wg *WorldGenerator) blockForDepth(z, surface int) block.BlockID {
	switch {
	case z == 0:
		return block.BedrockBlockID
	case z == surface && surface < wg.Settings.SeaLevel:
		return block.SandBlockID
	case z == surface:
		return block.GrassBlockID
	case z >= surface-3:
		return block.DirtBlockID
	default:
		return block.StoneBlockID
	}
}
