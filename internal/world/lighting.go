package world

import (
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// compactThreshold - после скольких обработанных записей очередь уплотняется
const compactThreshold = 4096

// LightEngine поддерживает два канала освещения и релаксирует их через очередь
// "грязных" блоков. Работает только в главном потоке, без блокировок.
// Каждый блок находится в очереди не более одного раза: флаг хранится в чанке.
type LightEngine struct {
	grid  *Grid
	queue []BlockRef
	head  int

	steps   uint64
	updates uint64
}

// NewLightEngine создаёт движок освещения поверх сетки чанков
func NewLightEngine(grid *Grid) *LightEngine {
	return &LightEngine{grid: grid}
}

// Enqueue ставит блок в очередь. Возвращает false, если блок уже в очереди.
func (e *LightEngine) Enqueue(r BlockRef) bool {
	if !r.Valid() || r.chunk.isQueued(r.index) {
		return false
	}
	r.chunk.markQueued(r.index)
	e.queue = append(e.queue, r)
	return true
}

// EnqueueNeighborhood ставит в очередь блок и шесть его соседей
func (e *LightEngine) EnqueueNeighborhood(r BlockRef) {
	e.Enqueue(r)
	for _, d := range Directions {
		if n, ok := r.Step(d); ok {
			e.Enqueue(n)
		}
	}
}

// Pending возвращает количество блоков в очереди
func (e *LightEngine) Pending() int {
	return len(e.queue) - e.head
}

// Steps возвращает общее число выполненных шагов релаксации
func (e *LightEngine) Steps() uint64 {
	return e.steps
}

// Updates возвращает общее число изменённых значений освещения
func (e *LightEngine) Updates() uint64 {
	return e.updates
}

// Process извлекает из очереди не более budget блоков и пересчитывает их.
// Если значение изменилось, соседи ставятся в очередь. Возвращает число шагов.
func (e *LightEngine) Process(budget int) int {
	n := 0
	for n < budget && e.head < len(e.queue) {
		r := e.queue[e.head]
		e.queue[e.head] = BlockRef{}
		e.head++
		n++

		r.chunk.unmarkQueued(r.index)
		if !e.relax(r) {
			continue
		}
		e.updates++
		for _, d := range Directions {
			if nb, ok := r.Step(d); ok {
				e.Enqueue(nb)
			}
		}
	}
	e.steps += uint64(n)
	e.compact()
	return n
}

// Drain обрабатывает очередь до конца. Используется при выгрузке и в тестах.
func (e *LightEngine) Drain() int {
	total := 0
	for e.Pending() > 0 {
		total += e.Process(compactThreshold)
	}
	return total
}

func (e *LightEngine) compact() {
	if e.head == len(e.queue) {
		e.queue = e.queue[:0]
		e.head = 0
		return
	}
	if e.head >= compactThreshold && e.head*2 >= len(e.queue) {
		n := copy(e.queue, e.queue[e.head:])
		for i := n; i < len(e.queue); i++ {
			e.queue[i] = BlockRef{}
		}
		e.queue = e.queue[:n]
		e.head = 0
	}
}

func (e *LightEngine) relax(r BlockRef) bool {
	cur := r.Block()
	indoor, outdoor := Evaluate(r)
	if indoor == cur.Indoor && outdoor == cur.Outdoor {
		return false
	}
	cur.Indoor = indoor
	cur.Outdoor = outdoor
	r.SetBlock(cur)
	return true
}

// Evaluate вычисляет целевые значения обоих каналов для блока:
// непрозрачный блок хранит только собственное излучение, прозрачный берёт
// max(пол, max соседей - 1). Пол outdoor равен 15 для блоков, открытых небу,
// пол indoor равен излучению материала. Незагруженные соседи не учитываются.
func Evaluate(r BlockRef) (indoor, outdoor uint8) {
	id := r.Block().ID
	indoor = block.Emission(id)
	if block.IsOpaque(id) {
		return indoor, 0
	}
	if r.SkyExposed() {
		outdoor = block.MaxLight
	}
	if indoor == block.MaxLight && outdoor == block.MaxLight {
		return indoor, outdoor
	}
	for _, d := range Directions {
		n, ok := r.Step(d)
		if !ok {
			continue
		}
		nb := n.Block()
		if nb.Indoor > indoor+1 {
			indoor = nb.Indoor - 1
		}
		if nb.Outdoor > outdoor+1 {
			outdoor = nb.Outdoor - 1
		}
	}
	return indoor, outdoor
}

// SeedChunk готовит только что активированный чанк: заливает небесный свет в
// открытые небу блоки и ставит в очередь граничные грани, края теней под
// навесами, излучающие блоки и обращённые к нему грани соседних чанков.
func (e *LightEngine) SeedChunk(c *Chunk) {
	dims := c.dims
	w := dims.Width

	for i := range c.Blocks {
		b := &c.Blocks[i]
		if block.IsOpaque(b.ID) {
			if block.Emission(b.ID) > 0 {
				e.Enqueue(e.grid.RefIn(c, i))
			}
			continue
		}
		if c.SkyExposed(i) {
			b.Outdoor = block.MaxLight
		}
		if block.Emission(b.ID) > 0 {
			e.Enqueue(e.grid.RefIn(c, i))
		}
	}

	// Свет неба заходит сбоку под навесы соседних столбов
	for y := 0; y < w; y++ {
		for x := 0; x < w; x++ {
			floor := c.SkyFloor(x, y)
			for _, d := range [4]Direction{East, West, North, South} {
				off := d.Offset()
				nx, ny := x+off.X, y+off.Y
				if nx < 0 || ny < 0 || nx >= w || ny >= w {
					continue
				}
				for z := floor; z < c.SkyFloor(nx, ny) && z < dims.Height; z++ {
					e.enqueueTransparent(c, dims.Index(nx, ny, z))
				}
			}
		}
	}

	for _, d := range [4]Direction{East, West, North, South} {
		e.enqueueFace(c, d)
	}
	e.SeedNeighborFaces(c.Coords)
}

// SeedNeighborFaces ставит в очередь грани соседних чанков, обращённые к coords.
// Вызывается при появлении и при выгрузке чанка.
func (e *LightEngine) SeedNeighborFaces(coords vec.Vec2) {
	for _, d := range [4]Direction{East, West, North, South} {
		off := d.Offset()
		n, ok := e.grid.Get(vec.Vec2{X: coords.X + off.X, Y: coords.Y + off.Y})
		if !ok {
			continue
		}
		e.enqueueFace(n, d.Opposite())
	}
}

// enqueueFace ставит в очередь все прозрачные блоки грани side чанка c
func (e *LightEngine) enqueueFace(c *Chunk, side Direction) {
	dims := c.dims
	w := dims.Width
	for z := 0; z < dims.Height; z++ {
		for t := 0; t < w; t++ {
			var idx int
			switch side {
			case East:
				idx = dims.Index(w-1, t, z)
			case West:
				idx = dims.Index(0, t, z)
			case North:
				idx = dims.Index(t, w-1, z)
			case South:
				idx = dims.Index(t, 0, z)
			default:
				return
			}
			e.enqueueTransparent(c, idx)
		}
	}
}

func (e *LightEngine) enqueueTransparent(c *Chunk, idx int) {
	id := c.Blocks[idx].ID
	if block.IsOpaque(id) && block.Emission(id) == 0 {
		return
	}
	e.Enqueue(e.grid.RefIn(c, idx))
}

// EnqueueColumn ставит в очередь блоки столба с высотами [from, to)
func (e *LightEngine) EnqueueColumn(c *Chunk, x, y, from, to int) {
	if from > to {
		from, to = to, from
	}
	for z := from; z < to && z < c.dims.Height; z++ {
		e.Enqueue(e.grid.RefIn(c, c.dims.Index(x, y, z)))
	}
}
