package world

import (
	"github.com/annel0/voxel-world/internal/vec"
)

// Direction - одно из шести направлений вдоль осей
type Direction uint8

const (
	East  Direction = iota // +X
	West                   // -X
	North                  // +Y
	South                  // -Y
	Up                     // +Z
	Down                   // -Z
)

// Directions перечисляет все шесть направлений
var Directions = [6]Direction{East, West, North, South, Up, Down}

var directionOffsets = [6]vec.Vec3{
	East:  {X: 1},
	West:  {X: -1},
	North: {Y: 1},
	South: {Y: -1},
	Up:    {Z: 1},
	Down:  {Z: -1},
}

// Offset возвращает единичный вектор направления
func (d Direction) Offset() vec.Vec3 {
	return directionOffsets[d]
}

// Opposite возвращает противоположное направление
func (d Direction) Opposite() Direction {
	return d ^ 1
}

// BlockRef - разрешённая ссылка на блок: чанк и локальный индекс.
// Ссылка действительна, пока чанк находится в сетке.
type BlockRef struct {
	grid  *Grid
	chunk *Chunk
	index int
}

// Valid возвращает true для непустой ссылки
func (r BlockRef) Valid() bool {
	return r.chunk != nil
}

// Chunk возвращает чанк, содержащий блок
func (r BlockRef) Chunk() *Chunk {
	return r.chunk
}

// Coords возвращает координаты чанка
func (r BlockRef) Coords() vec.Vec2 {
	return r.chunk.Coords
}

// Index возвращает локальный индекс блока
func (r BlockRef) Index() int {
	return r.index
}

// Position возвращает мировую позицию блока
func (r BlockRef) Position() vec.Vec3 {
	d := r.chunk.dims
	x, y, z := d.Local(r.index)
	return vec.Vec3{X: r.chunk.Coords.X*d.Width + x, Y: r.chunk.Coords.Y*d.Width + y, Z: z}
}

// Block читает блок
func (r BlockRef) Block() Block {
	return r.chunk.Blocks[r.index]
}

// SetBlock записывает блок без побочных эффектов (освещение, флаг сохранения)
func (r BlockRef) SetBlock(b Block) {
	r.chunk.Blocks[r.index] = b
}

// SkyExposed возвращает true, если блок открыт небу
func (r BlockRef) SkyExposed() bool {
	return r.chunk.SkyExposed(r.index)
}

// Step переходит к соседнему блоку. Возвращает false, если соседний чанк
// не загружен или шаг выходит за пределы высоты мира.
func (r BlockRef) Step(d Direction) (BlockRef, bool) {
	dims := r.chunk.dims
	w := dims.Width
	x, y, z := dims.Local(r.index)

	switch d {
	case Up:
		if z+1 >= dims.Height {
			return BlockRef{}, false
		}
		return BlockRef{grid: r.grid, chunk: r.chunk, index: r.index + dims.Layer()}, true
	case Down:
		if z == 0 {
			return BlockRef{}, false
		}
		return BlockRef{grid: r.grid, chunk: r.chunk, index: r.index - dims.Layer()}, true
	case East:
		if x+1 < w {
			return BlockRef{grid: r.grid, chunk: r.chunk, index: r.index + 1}, true
		}
		return r.cross(vec.Vec2{X: r.chunk.Coords.X + 1, Y: r.chunk.Coords.Y}, dims.Index(0, y, z))
	case West:
		if x > 0 {
			return BlockRef{grid: r.grid, chunk: r.chunk, index: r.index - 1}, true
		}
		return r.cross(vec.Vec2{X: r.chunk.Coords.X - 1, Y: r.chunk.Coords.Y}, dims.Index(w-1, y, z))
	case North:
		if y+1 < w {
			return BlockRef{grid: r.grid, chunk: r.chunk, index: r.index + w}, true
		}
		return r.cross(vec.Vec2{X: r.chunk.Coords.X, Y: r.chunk.Coords.Y + 1}, dims.Index(x, 0, z))
	case South:
		if y > 0 {
			return BlockRef{grid: r.grid, chunk: r.chunk, index: r.index - w}, true
		}
		return r.cross(vec.Vec2{X: r.chunk.Coords.X, Y: r.chunk.Coords.Y - 1}, dims.Index(x, w-1, z))
	}
	return BlockRef{}, false
}

// cross выполняет единственный поиск в сетке при переходе через границу чанка
func (r BlockRef) cross(coords vec.Vec2, index int) (BlockRef, bool) {
	if r.grid == nil {
		return BlockRef{}, false
	}
	next, ok := r.grid.Get(coords)
	if !ok {
		return BlockRef{}, false
	}
	return BlockRef{grid: r.grid, chunk: next, index: index}, true
}

// RefAt строит ссылку на блок по мировой позиции
func (g *Grid) RefAt(dims Dimensions, pos vec.Vec3) (BlockRef, error) {
	if !dims.InHeight(pos.Z) {
		return BlockRef{}, ErrInvalidPosition
	}
	coords := dims.ChunkOf(pos)
	c, ok := g.Get(coords)
	if !ok {
		return BlockRef{}, ErrChunkNotLoaded
	}
	local := pos.LocalInChunk(dims.Width)
	return BlockRef{grid: g, chunk: c, index: dims.Index(local.X, local.Y, local.Z)}, nil
}

// RefIn строит ссылку на блок чанка по локальному индексу
func (g *Grid) RefIn(c *Chunk, index int) BlockRef {
	return BlockRef{grid: g, chunk: c, index: index}
}
