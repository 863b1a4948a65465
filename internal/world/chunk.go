package world

import (
	"fmt"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// ChunkState - состояние чанка в жизненном цикле
type ChunkState uint8

const (
	StateNotPresent   ChunkState = iota // чанка нет нигде
	StateRequested                      // задание в очереди, воркер ещё не взял
	StateGenerating                     // задание выполняется воркером
	StateActive                         // чанк в сетке и участвует в мире
	StateDeactivating                   // чанк вне радиуса, ждёт выгрузки
)

// String возвращает строковое представление состояния
func (s ChunkState) String() string {
	switch s {
	case StateNotPresent:
		return "NotPresent"
	case StateRequested:
		return "Requested"
	case StateGenerating:
		return "Generating"
	case StateActive:
		return "Active"
	case StateDeactivating:
		return "Deactivating"
	default:
		return "Unknown"
	}
}

// Chunk представляет вертикальный столб блоков Width x Width x Height.
// Чанк не хранит ссылку на мир: владелец - Grid, связь только через Coords.
type Chunk struct {
	Coords vec.Vec2 // Координаты чанка в мире
	Blocks []Block  // Blocks[x + y*W + z*W*W]
	State  ChunkState

	ChangeCounter int // Счетчик изменений блоков с последнего сохранения

	dims Dimensions

	// skyFloor[x + y*W] - наименьшая z, начиная с которой столб открыт небу
	skyFloor []int

	// Флаги присутствия блока в очереди освещения
	queued      []uint64
	queuedCount int

	savePending bool
}

// NewChunk создаёт пустой (воздух) чанк с указанными координатами
func NewChunk(coords vec.Vec2, dims Dimensions) *Chunk {
	c := &Chunk{
		Coords:   coords,
		Blocks:   make([]Block, dims.Volume()),
		State:    StateActive,
		dims:     dims,
		skyFloor: make([]int, dims.Layer()),
		queued:   make([]uint64, (dims.Volume()+63)/64),
	}
	return c
}

// NewChunkFromBlocks создаёт чанк поверх готового массива блоков
func NewChunkFromBlocks(coords vec.Vec2, dims Dimensions, blocks []Block) (*Chunk, error) {
	if len(blocks) != dims.Volume() {
		return nil, fmt.Errorf("чанк %v: ожидается %d блоков, получено %d", coords, dims.Volume(), len(blocks))
	}
	c := &Chunk{
		Coords:   coords,
		Blocks:   blocks,
		State:    StateActive,
		dims:     dims,
		skyFloor: make([]int, dims.Layer()),
		queued:   make([]uint64, (dims.Volume()+63)/64),
	}
	c.RecomputeSkyFloors()
	return c, nil
}

// Dims возвращает размеры чанка
func (c *Chunk) Dims() Dimensions {
	return c.dims
}

// GetBlock возвращает блок по локальным координатам
func (c *Chunk) GetBlock(x, y, z int) Block {
	return c.Blocks[c.dims.Index(x, y, z)]
}

// SetBlock устанавливает блок по локальным координатам и отмечает чанк изменённым.
// Освещение и открытость небу не пересчитываются - это делает World.SetBlock.
func (c *Chunk) SetBlock(x, y, z int, b Block) {
	c.Blocks[c.dims.Index(x, y, z)] = b
	c.ChangeCounter++
}

// HasChanges возвращает true, если чанк нужно сохранить
func (c *Chunk) HasChanges() bool {
	return c.ChangeCounter > 0
}

// ClearChanges сбрасывает счетчик изменений
func (c *Chunk) ClearChanges() {
	c.ChangeCounter = 0
}

// SavePending сообщает, что снимок чанка ещё записывается на диск
func (c *Chunk) SavePending() bool {
	return c.savePending
}

// SetSavePending отмечает начало или конец асинхронного сохранения
func (c *Chunk) SetSavePending(v bool) {
	c.savePending = v
}

// QueuedLighting возвращает количество блоков чанка в очереди освещения
func (c *Chunk) QueuedLighting() int {
	return c.queuedCount
}

// Snapshot возвращает копию массива блоков для сериализации вне главного потока
func (c *Chunk) Snapshot() []Block {
	out := make([]Block, len(c.Blocks))
	copy(out, c.Blocks)
	return out
}

// SkyFloor возвращает наименьшую z, открытую небу, для столба (x, y)
func (c *Chunk) SkyFloor(x, y int) int {
	return c.skyFloor[x+y*c.dims.Width]
}

// SkyExposed возвращает true, если над блоком нет непрозрачных блоков
func (c *Chunk) SkyExposed(index int) bool {
	x, y, z := c.dims.Local(index)
	return z >= c.skyFloor[x+y*c.dims.Width]
}

// RecomputeSkyFloors пересчитывает открытость небу для всех столбов
func (c *Chunk) RecomputeSkyFloors() {
	for y := 0; y < c.dims.Width; y++ {
		for x := 0; x < c.dims.Width; x++ {
			c.skyFloor[x+y*c.dims.Width] = c.scanSkyFloor(x, y, c.dims.Height-1)
		}
	}
}

// scanSkyFloor ищет сверху вниз первый непрозрачный блок начиная с top
func (c *Chunk) scanSkyFloor(x, y, top int) int {
	for z := top; z >= 0; z-- {
		if block.IsOpaque(c.Blocks[c.dims.Index(x, y, z)].ID) {
			return z + 1
		}
	}
	return 0
}

// updateSkyFloor обновляет столб после изменения блока на высоте z.
// Возвращает старое и новое значение.
func (c *Chunk) updateSkyFloor(x, y, z int) (oldFloor, newFloor int) {
	col := x + y*c.dims.Width
	oldFloor = c.skyFloor[col]
	newFloor = oldFloor

	opaque := block.IsOpaque(c.Blocks[c.dims.Index(x, y, z)].ID)
	switch {
	case opaque && z >= oldFloor:
		newFloor = z + 1
	case !opaque && z == oldFloor-1:
		newFloor = c.scanSkyFloor(x, y, z-1)
	}
	c.skyFloor[col] = newFloor
	return oldFloor, newFloor
}

func (c *Chunk) isQueued(index int) bool {
	return c.queued[index>>6]&(1<<(uint(index)&63)) != 0
}

func (c *Chunk) markQueued(index int) {
	c.queued[index>>6] |= 1 << (uint(index) & 63)
	c.queuedCount++
}

func (c *Chunk) unmarkQueued(index int) {
	c.queued[index>>6] &^= 1 << (uint(index) & 63)
	c.queuedCount--
}
