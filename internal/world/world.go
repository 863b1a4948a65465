package world

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-world/internal/vec"
)

var (
	// ErrInvalidPosition - позиция за пределами высоты мира
	ErrInvalidPosition = errors.New("позиция за пределами мира")
	// ErrChunkNotLoaded - чанк, содержащий позицию, не загружен
	ErrChunkNotLoaded = errors.New("чанк не загружен")
	// ErrChunkBusy - чанк нельзя выгрузить, пока его блоки в очереди освещения
	ErrChunkBusy = errors.New("блоки чанка ещё в очереди освещения")
)

// World объединяет сетку чанков и движок освещения. Все методы вызываются
// из главного потока.
type World struct {
	dims  Dimensions
	grid  *Grid
	light *LightEngine
}

// New создаёт пустой мир с указанными размерами чанка
func New(dims Dimensions) (*World, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	grid := NewGrid()
	return &World{
		dims:  dims,
		grid:  grid,
		light: NewLightEngine(grid),
	}, nil
}

// Dims возвращает размеры чанка
func (w *World) Dims() Dimensions {
	return w.dims
}

// Grid возвращает сетку чанков
func (w *World) Grid() *Grid {
	return w.grid
}

// Lighting возвращает движок освещения
func (w *World) Lighting() *LightEngine {
	return w.light
}

// Ref строит ссылку на блок по мировой позиции
func (w *World) Ref(pos vec.Vec3) (BlockRef, error) {
	return w.grid.RefAt(w.dims, pos)
}

// GetBlock возвращает блок по мировой позиции или NoBlock, если позиция
// вне мира или чанк не загружен
func (w *World) GetBlock(pos vec.Vec3) Block {
	ref, err := w.Ref(pos)
	if err != nil {
		return NoBlock
	}
	return ref.Block()
}

// ChunkExists проверяет, находится ли чанк в сетке
func (w *World) ChunkExists(coords vec.Vec2) bool {
	return w.grid.Contains(coords)
}

// SetBlock меняет материал блока, отмечает чанк изменённым, обновляет
// открытость неба в столбе и ставит затронутые блоки в очередь освещения.
// Текущие значения освещения сохраняются до релаксации.
func (w *World) SetBlock(pos vec.Vec3, b Block) error {
	ref, err := w.Ref(pos)
	if err != nil {
		return fmt.Errorf("установка блока %v: %w", pos, err)
	}

	old := ref.Block()
	if old.ID == b.ID {
		return nil
	}

	c := ref.chunk
	x, y, z := w.dims.Local(ref.index)
	c.SetBlock(x, y, z, Block{ID: b.ID, Indoor: old.Indoor, Outdoor: old.Outdoor})

	oldFloor, newFloor := c.updateSkyFloor(x, y, z)
	if oldFloor != newFloor {
		w.light.EnqueueColumn(c, x, y, oldFloor, newFloor)
	}
	w.light.EnqueueNeighborhood(ref)
	return nil
}

// InstallChunk помещает готовый массив блоков в сетку как активный чанк
// и готовит освещение
func (w *World) InstallChunk(coords vec.Vec2, blocks []Block) (*Chunk, error) {
	c, err := NewChunkFromBlocks(coords, w.dims, blocks)
	if err != nil {
		return nil, err
	}
	if err := w.grid.Insert(coords, c); err != nil {
		return nil, err
	}
	c.State = StateActive
	w.light.SeedChunk(c)
	return c, nil
}

// RemoveChunk удаляет чанк из сетки. Пока блоки чанка в очереди освещения,
// возвращает ErrChunkBusy. Грани оставшихся соседей ставятся в очередь.
func (w *World) RemoveChunk(coords vec.Vec2) (*Chunk, error) {
	c, ok := w.grid.Get(coords)
	if !ok {
		return nil, fmt.Errorf("выгрузка %v: %w", coords, ErrChunkNotLoaded)
	}
	if c.QueuedLighting() > 0 {
		return nil, fmt.Errorf("выгрузка %v: %w", coords, ErrChunkBusy)
	}
	w.grid.Remove(coords)
	c.State = StateNotPresent
	w.light.SeedNeighborFaces(coords)
	return c, nil
}

// ProcessLighting выполняет не более budget шагов релаксации освещения
func (w *World) ProcessLighting(budget int) int {
	return w.light.Process(budget)
}
