package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/annel0/voxel-world/internal/vec"
)

// ErrChunkExists возвращается при попытке вставить второй чанк с теми же координатами
var ErrChunkExists = errors.New("чанк с такими координатами уже есть в сетке")

// Grid - индекс чанков по координатам. Единственный владелец памяти чанков.
// Все мутации выполняются только в главном потоке.
type Grid struct {
	chunks map[vec.Vec2]*Chunk
}

// NewGrid создаёт пустую сетку
func NewGrid() *Grid {
	return &Grid{chunks: make(map[vec.Vec2]*Chunk)}
}

// Get возвращает чанк по координатам
func (g *Grid) Get(coords vec.Vec2) (*Chunk, bool) {
	c, ok := g.chunks[coords]
	return c, ok
}

// Contains проверяет наличие чанка
func (g *Grid) Contains(coords vec.Vec2) bool {
	_, ok := g.chunks[coords]
	return ok
}

// Insert добавляет чанк. Координаты должны совпадать с chunk.Coords.
func (g *Grid) Insert(coords vec.Vec2, chunk *Chunk) error {
	if chunk.Coords != coords {
		return fmt.Errorf("координаты %v не совпадают с координатами чанка %v", coords, chunk.Coords)
	}
	if _, exists := g.chunks[coords]; exists {
		return fmt.Errorf("%w: %v", ErrChunkExists, coords)
	}
	g.chunks[coords] = chunk
	return nil
}

// Remove удаляет чанк из сетки и возвращает его
func (g *Grid) Remove(coords vec.Vec2) (*Chunk, bool) {
	c, ok := g.chunks[coords]
	if ok {
		delete(g.chunks, coords)
	}
	return c, ok
}

// Len возвращает количество чанков в сетке
func (g *Grid) Len() int {
	return len(g.chunks)
}

// Range обходит чанки в произвольном порядке, пока fn возвращает true
func (g *Grid) Range(fn func(c *Chunk) bool) {
	for _, c := range g.chunks {
		if !fn(c) {
			return
		}
	}
}

// Coords возвращает отсортированный список координат загруженных чанков
func (g *Grid) Coords() []vec.Vec2 {
	keys := make([]vec.Vec2, 0, len(g.chunks))
	for k := range g.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Y < keys[j].Y
	})
	return keys
}
