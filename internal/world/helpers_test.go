package world

import (
	"testing"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/stretchr/testify/require"
)

// fillBlocks строит массив блоков чанка по функции материала
func fillBlocks(dims Dimensions, fn func(x, y, z int) block.BlockID) []Block {
	blocks := make([]Block, dims.Volume())
	for z := 0; z < dims.Height; z++ {
		for y := 0; y < dims.Width; y++ {
			for x := 0; x < dims.Width; x++ {
				blocks[dims.Index(x, y, z)] = NewBlock(fn(x, y, z))
			}
		}
	}
	return blocks
}

func airBlocks(dims Dimensions) []Block {
	return fillBlocks(dims, func(x, y, z int) block.BlockID { return block.AirBlockID })
}

func newTestWorld(t *testing.T, dims Dimensions) *World {
	t.Helper()
	w, err := New(dims)
	require.NoError(t, err)
	return w
}

func install(t *testing.T, w *World, coords vec.Vec2, blocks []Block) *Chunk {
	t.Helper()
	c, err := w.InstallChunk(coords, blocks)
	require.NoError(t, err)
	return c
}

// requireRelaxed проверяет, что после опустошения очереди каждое значение
// освещения совпадает с пересчитанным по соседям
func requireRelaxed(t *testing.T, w *World) {
	t.Helper()
	require.Zero(t, w.Lighting().Pending())
	w.Grid().Range(func(c *Chunk) bool {
		for i := range c.Blocks {
			ref := w.Grid().RefIn(c, i)
			indoor, outdoor := Evaluate(ref)
			b := ref.Block()
			if indoor != b.Indoor || outdoor != b.Outdoor {
				require.Failf(t, "освещение не релаксировано",
					"блок %v: хранится (%d,%d), ожидается (%d,%d)",
					ref.Position(), b.Indoor, b.Outdoor, indoor, outdoor)
			}
		}
		return true
	})
}

// snapshotWorld копирует все блоки мира для сравнения
func snapshotWorld(w *World) map[vec.Vec2][]Block {
	out := make(map[vec.Vec2][]Block)
	w.Grid().Range(func(c *Chunk) bool {
		out[c.Coords] = c.Snapshot()
		return true
	})
	return out
}
