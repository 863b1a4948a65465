package stream

import (
	"sync"
	"testing"
	"time"

	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/stretchr/testify/require"
)

var testDims = world.Dimensions{Width: 8, Height: 16}

// flatBlocks - камень ниже z=4, выше воздух
func flatBlocks(coords vec.Vec2, dims world.Dimensions) []world.Block {
	blocks := make([]world.Block, dims.Volume())
	for z := 0; z < 4; z++ {
		for y := 0; y < dims.Width; y++ {
			for x := 0; x < dims.Width; x++ {
				blocks[dims.Index(x, y, z)] = world.NewBlock(block.StoneBlockID)
			}
		}
	}
	return blocks
}

var flatGenerator = world.GeneratorFunc(flatBlocks)

// gatedGenerator блокирует генерацию каждого чанка до вызова release
type gatedGenerator struct {
	mu    sync.Mutex
	gates map[vec.Vec2]chan struct{}
}

func newGatedGenerator() *gatedGenerator {
	return &gatedGenerator{gates: make(map[vec.Vec2]chan struct{})}
}

func (g *gatedGenerator) gate(coords vec.Vec2) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[coords]
	if !ok {
		ch = make(chan struct{})
		g.gates[coords] = ch
	}
	return ch
}

func (g *gatedGenerator) release(coords vec.Vec2) {
	close(g.gate(coords))
}

func (g *gatedGenerator) Generate(coords vec.Vec2, dims world.Dimensions) []world.Block {
	<-g.gate(coords)
	return flatBlocks(coords, dims)
}

func newTestWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(testDims)
	require.NoError(t, err)
	return w
}

func newTestPipeline(t *testing.T, w *world.World, gen world.Generator, store storage.ChunkStore, workers, queue int) *Pipeline {
	t.Helper()
	p, err := NewPipeline(PipelineConfig{Workers: workers, QueueSize: queue}, w, gen, store, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

// waitCompleted ждёт, пока в очереди завершённых окажется n результатов
func waitCompleted(t *testing.T, p *Pipeline, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(p.done) >= n }, 5*time.Second, time.Millisecond)
}

func waitStarted(t *testing.T, p *Pipeline, coords vec.Vec2) {
	t.Helper()
	require.Eventually(t, func() bool { return p.State(coords) == world.StateGenerating }, 5*time.Second, time.Millisecond)
}

// runUntil выполняет кадры, пока cond не станет истинным
func runUntil(t *testing.T, m *Manager, pos vec.Vec3, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			require.FailNow(t, "условие не выполнено за отведённое время", "статус: %+v", m.Status())
		}
		m.Update(pos)
		time.Sleep(200 * time.Microsecond)
	}
}
