package stream

import (
	"errors"
	"testing"

	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_DuplicateRequestIsNoop(t *testing.T) {
	gen := newGatedGenerator()
	p := newTestPipeline(t, newTestWorld(t), gen, nil, 1, 4)

	a := vec.Vec2{X: 1, Y: 2}
	require.NoError(t, p.RequestChunk(a))
	require.NoError(t, p.RequestChunk(a))
	assert.Equal(t, 1, p.Pending())
	assert.True(t, p.InFlight(a))

	gen.release(a)
	waitCompleted(t, p, 1)
	assert.Equal(t, 1, p.IntegrateCompleted(10))
	assert.Zero(t, p.Pending())
}

func TestPipeline_StatesAndQueueFull(t *testing.T) {
	gen := newGatedGenerator()
	p := newTestPipeline(t, newTestWorld(t), gen, nil, 1, 1)

	a, b, c := vec.Vec2{X: 0}, vec.Vec2{X: 1}, vec.Vec2{X: 2}
	require.NoError(t, p.RequestChunk(a))
	waitStarted(t, p, a)

	require.NoError(t, p.RequestChunk(b))
	assert.Equal(t, world.StateRequested, p.State(b))

	err := p.RequestChunk(c)
	assert.True(t, errors.Is(err, ErrJobQueueFull))
	assert.False(t, p.InFlight(c), "отклонённый запрос не должен попадать в список заданий")
	assert.Equal(t, world.StateNotPresent, p.State(c))

	gen.release(a)
	gen.release(b)
	waitCompleted(t, p, 2)
	assert.Equal(t, 2, p.IntegrateCompleted(10))
}

func TestPipeline_IntegrateBudget(t *testing.T) {
	w := newTestWorld(t)
	p := newTestPipeline(t, w, flatGenerator, nil, 4, 16)

	for i := 0; i < 10; i++ {
		require.NoError(t, p.RequestChunk(vec.Vec2{X: i, Y: -i}))
	}
	waitCompleted(t, p, 10)

	assert.Equal(t, 3, p.IntegrateCompleted(3))
	assert.Equal(t, 3, w.Grid().Len())
	assert.Equal(t, 7, p.Pending())

	assert.Equal(t, 0, p.IntegrateCompleted(0))
	assert.Equal(t, 3, w.Grid().Len())

	assert.Equal(t, 7, p.IntegrateCompleted(100))
	assert.Equal(t, 10, w.Grid().Len())
	assert.Zero(t, p.IntegrateCompleted(100))

	for i := 0; i < 10; i++ {
		c, ok := w.Grid().Get(vec.Vec2{X: i, Y: -i})
		require.True(t, ok)
		assert.Equal(t, world.StateActive, c.State)
		assert.False(t, c.HasChanges(), "сгенерированный чанк не требует сохранения")
	}
}

func TestPipeline_OutOfOrderCompletion(t *testing.T) {
	gen := newGatedGenerator()
	w := newTestWorld(t)
	p := newTestPipeline(t, w, gen, nil, 2, 4)

	first, second := vec.Vec2{X: 5}, vec.Vec2{X: 6}
	require.NoError(t, p.RequestChunk(first))
	require.NoError(t, p.RequestChunk(second))

	gen.release(second)
	waitCompleted(t, p, 1)
	assert.Equal(t, 1, p.IntegrateCompleted(1))
	assert.True(t, w.ChunkExists(second))
	assert.False(t, w.ChunkExists(first))
	assert.True(t, p.InFlight(first))

	gen.release(first)
	waitCompleted(t, p, 1)
	assert.Equal(t, 1, p.IntegrateCompleted(1))
	assert.True(t, w.ChunkExists(first))
}

func TestPipeline_LoadAndDecodeFallback(t *testing.T) {
	store := storage.NewMemoryStore()
	w := newTestWorld(t)

	good := vec.Vec2{X: 1}
	blocks := flatBlocks(good, testDims)
	blocks[testDims.Index(0, 0, 10)] = world.NewBlock(block.SandBlockID)
	data, err := storage.Encode(good, testDims, blocks)
	require.NoError(t, err)
	require.NoError(t, store.Save(good, data))

	corrupt := vec.Vec2{X: 2}
	require.NoError(t, store.Save(corrupt, []byte("мусор вместо записи")))

	stale := vec.Vec2{X: 3}
	old, err := storage.Encode(stale, testDims, flatBlocks(stale, testDims))
	require.NoError(t, err)
	old[0] = 99 // другая версия формата
	require.NoError(t, store.Save(stale, old))

	foreign := vec.Vec2{X: 4}
	require.NoError(t, store.Save(foreign, data)) // запись чанка good

	missing := vec.Vec2{X: 5}

	p := newTestPipeline(t, w, flatGenerator, store, 2, 8)
	all := []vec.Vec2{good, corrupt, stale, foreign, missing}
	for _, c := range all {
		require.NoError(t, p.RequestChunk(c))
	}
	waitCompleted(t, p, len(all))
	assert.Equal(t, len(all), p.IntegrateCompleted(10))

	assert.Equal(t, block.SandBlockID, w.GetBlock(vec.Vec3{X: 8, Y: 0, Z: 10}).ID)
	goodChunk, _ := w.Grid().Get(good)
	assert.False(t, goodChunk.HasChanges())

	for _, c := range []vec.Vec2{corrupt, stale, foreign} {
		ch, ok := w.Grid().Get(c)
		require.True(t, ok, "чанк %v должен быть сгенерирован", c)
		assert.True(t, ch.HasChanges(), "испорченная запись %v должна быть перезаписана", c)
		assert.Equal(t, block.StoneBlockID, ch.GetBlock(0, 0, 0).ID)
	}
	missingChunk, _ := w.Grid().Get(missing)
	assert.False(t, missingChunk.HasChanges())
}

func TestPipeline_RetireFlag(t *testing.T) {
	gen := newGatedGenerator()
	w := newTestWorld(t)
	p := newTestPipeline(t, w, gen, nil, 2, 4)

	gone, back := vec.Vec2{X: 10}, vec.Vec2{X: 11}
	require.NoError(t, p.RequestChunk(gone))
	require.NoError(t, p.RequestChunk(back))

	assert.Equal(t, 2, p.MarkRetire(func(vec.Vec2) bool { return true }))
	assert.True(t, p.Retiring(gone))

	// повторный запрос снимает отметку
	require.NoError(t, p.RequestChunk(back))
	assert.False(t, p.Retiring(back))

	gen.release(gone)
	gen.release(back)
	waitCompleted(t, p, 2)
	assert.Equal(t, 1, p.IntegrateCompleted(10))

	assert.False(t, w.ChunkExists(gone))
	assert.True(t, w.ChunkExists(back))
	assert.Zero(t, p.Pending())
}

func TestPipeline_GeneratorFailure(t *testing.T) {
	w := newTestWorld(t)
	bad := world.GeneratorFunc(func(coords vec.Vec2, dims world.Dimensions) []world.Block {
		if coords.X == 0 {
			panic("шум не инициализирован")
		}
		return make([]world.Block, 3)
	})
	p := newTestPipeline(t, w, bad, nil, 1, 4)

	require.NoError(t, p.RequestChunk(vec.Vec2{X: 0}))
	require.NoError(t, p.RequestChunk(vec.Vec2{X: 1}))
	waitCompleted(t, p, 2)

	assert.Zero(t, p.IntegrateCompleted(10))
	assert.Zero(t, w.Grid().Len())
	assert.Zero(t, p.Pending(), "после ошибки чанк можно запросить снова")
}

func TestPipeline_Close(t *testing.T) {
	gen := newGatedGenerator()
	p, err := NewPipeline(PipelineConfig{Workers: 1, QueueSize: 2}, newTestWorld(t), gen, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, p.RequestChunk(vec.Vec2{}))
	waitStarted(t, p, vec.Vec2{})
	gen.release(vec.Vec2{})

	require.NoError(t, p.Close())
	assert.True(t, errors.Is(p.RequestChunk(vec.Vec2{X: 1}), ErrPipelineClosed))
	assert.NoError(t, p.Close())
}

func TestNewPipeline_Validation(t *testing.T) {
	w := newTestWorld(t)
	_, err := NewPipeline(PipelineConfig{Workers: 0, QueueSize: 1}, w, flatGenerator, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewPipeline(PipelineConfig{Workers: 1, QueueSize: 0}, w, flatGenerator, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewPipeline(PipelineConfig{Workers: 1, QueueSize: 1}, w, nil, nil, nil, nil)
	assert.Error(t, err)
}
