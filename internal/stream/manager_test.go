package stream

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testManagerConfig = ManagerConfig{
	ActivationRadius:          1,
	DeactivationRadius:        2,
	MaxJobsIntegratedPerFrame: 2,
	MaxLightingStepsPerFrame:  50000,
}

type testStack struct {
	world    *world.World
	pipeline *Pipeline
	saver    *Saver
	store    storage.ChunkStore
	manager  *Manager
}

func newTestStack(t *testing.T, cfg ManagerConfig, store storage.ChunkStore) *testStack {
	t.Helper()
	w := newTestWorld(t)
	p := newTestPipeline(t, w, flatGenerator, store, 2, 32)
	var saver *Saver
	if store != nil {
		var err error
		saver, err = NewSaver(store, 1, 8)
		require.NoError(t, err)
	}
	m, err := NewManager(cfg, w, p, saver, store, nil, nil)
	require.NoError(t, err)
	return &testStack{world: w, pipeline: p, saver: saver, store: store, manager: m}
}

// chunkCenter возвращает мировую позицию в середине чанка
func chunkCenter(c vec.Vec2) vec.Vec3 {
	return vec.Vec3{X: c.X*testDims.Width + testDims.Width/2, Y: c.Y*testDims.Width + testDims.Width/2, Z: 8}
}

// settled - все чанки в радиусе активации загружены и освещение рассчитано
func (s *testStack) settled(center vec.Vec2) func() bool {
	return func() bool {
		for _, off := range s.manager.offsets {
			c, ok := s.world.Grid().Get(center.Add(off))
			if !ok || c.State != world.StateActive {
				return false
			}
		}
		return s.world.Lighting().Pending() == 0
	}
}

func TestManagerConfig_Validate(t *testing.T) {
	assert.NoError(t, testManagerConfig.Validate())

	bad := testManagerConfig
	bad.DeactivationRadius = bad.ActivationRadius
	assert.Error(t, bad.Validate())

	bad = testManagerConfig
	bad.MaxJobsIntegratedPerFrame = 0
	assert.Error(t, bad.Validate())

	bad = testManagerConfig
	bad.MaxLightingStepsPerFrame = -1
	assert.Error(t, bad.Validate())
}

func TestActivationOffsets(t *testing.T) {
	assert.Len(t, activationOffsets(0), 1)
	assert.Len(t, activationOffsets(1), 5)
	offsets := activationOffsets(2)
	assert.Len(t, offsets, 13)
	assert.Equal(t, vec.Vec2{}, offsets[0])

	for i := 1; i < len(offsets); i++ {
		assert.LessOrEqual(t, offsets[i-1].DistanceSq(vec.Vec2{}), offsets[i].DistanceSq(vec.Vec2{}))
	}
}

func TestManager_ActivatesAroundPlayer(t *testing.T) {
	s := newTestStack(t, testManagerConfig, nil)
	origin := vec.Vec2{}
	runUntil(t, s.manager, chunkCenter(origin), s.settled(origin))

	assert.Equal(t, 5, s.world.Grid().Len())
	assert.Equal(t, world.StateActive, s.manager.State(origin))
	assert.Equal(t, world.StateNotPresent, s.manager.State(vec.Vec2{X: 5, Y: 5}))

	st := s.manager.Status()
	assert.Equal(t, 5, st.Active)
	assert.Zero(t, st.PendingJobs)
	assert.Positive(t, st.Frame)
}

func TestManager_IntegrationBudgetPerFrame(t *testing.T) {
	cfg := testManagerConfig
	cfg.ActivationRadius = 3
	cfg.DeactivationRadius = 5
	s := newTestStack(t, cfg, nil)

	origin := vec.Vec2{}
	pos := chunkCenter(origin)
	done := s.settled(origin)
	for i := 0; i < 20000 && !done(); i++ {
		stats := s.manager.Update(pos)
		require.LessOrEqual(t, stats.Integrated, cfg.MaxJobsIntegratedPerFrame)
		require.LessOrEqual(t, stats.LightingSteps, cfg.MaxLightingStepsPerFrame)
	}
	require.True(t, done())
	assert.Equal(t, len(activationOffsets(3)), s.world.Grid().Len())
}

func TestManager_Hysteresis(t *testing.T) {
	s := newTestStack(t, testManagerConfig, nil)
	origin := vec.Vec2{}
	runUntil(t, s.manager, chunkCenter(origin), s.settled(origin))
	kept, _ := s.world.Grid().Get(origin)

	// шаг на два чанка: (0,0) остаётся в радиусе деактивации
	moved := vec.Vec2{X: 2}
	check := func() bool {
		s.world.Grid().Range(func(c *world.Chunk) bool {
			if c.State == world.StateDeactivating {
				require.False(t, c.Coords.WithinRadius(moved, testManagerConfig.ActivationRadius),
					"чанк %v одновременно в радиусе активации и в выгрузке", c.Coords)
			}
			return true
		})
		return s.settled(moved)() && !s.world.ChunkExists(vec.Vec2{X: -1})
	}
	runUntil(t, s.manager, chunkCenter(moved), check)

	same, ok := s.world.Grid().Get(origin)
	require.True(t, ok, "чанк в полосе гистерезиса не выгружается")
	assert.Same(t, kept, same)
	assert.Equal(t, world.StateActive, same.State)
}

func TestManager_ReactivatesDeactivating(t *testing.T) {
	s := newTestStack(t, testManagerConfig, nil)
	origin := vec.Vec2{}
	runUntil(t, s.manager, chunkCenter(origin), s.settled(origin))

	c, _ := s.world.Grid().Get(origin)
	// держим чанк в очереди освещения, чтобы он не выгрузился сразу
	ref := s.world.Grid().RefIn(c, 0)
	require.True(t, s.world.Lighting().Enqueue(ref))
	s.manager.deactivate(vec.Vec2{X: 10})
	require.Equal(t, world.StateDeactivating, c.State)

	s.manager.activate(origin)
	assert.Equal(t, world.StateActive, c.State)
}

func TestManager_SavesDirtyChunkOnRetire(t *testing.T) {
	store := storage.NewMemoryStore()
	s := newTestStack(t, testManagerConfig, store)
	origin := vec.Vec2{}
	runUntil(t, s.manager, chunkCenter(origin), s.settled(origin))

	edit := vec.Vec3{X: 3, Y: 3, Z: 9}
	require.NoError(t, s.world.SetBlock(edit, world.NewBlock(block.LampBlockID)))

	far := vec.Vec2{X: 20}
	runUntil(t, s.manager, chunkCenter(far), func() bool {
		return !s.world.ChunkExists(origin) && s.settled(far)()
	})
	assert.Equal(t, 1, store.Len(), "сохраняется только изменённый чанк")

	data, err := store.Load(origin)
	require.NoError(t, err)
	blocks, err := storage.DecodeChunk(data, origin, testDims)
	require.NoError(t, err)
	assert.Equal(t, block.LampBlockID, blocks[testDims.Index(3, 3, 9)].ID)

	// возвращаемся: чанк читается из хранилища
	runUntil(t, s.manager, chunkCenter(origin), s.settled(origin))
	assert.Equal(t, block.LampBlockID, s.world.GetBlock(edit).ID)
	assert.Equal(t, uint8(15), s.world.GetBlock(edit).Indoor)
	c, _ := s.world.Grid().Get(origin)
	assert.False(t, c.HasChanges())
}

// failingStore отказывает при записи
type failingStore struct {
	storage.ChunkStore
	saves atomic.Int32
}

func (f *failingStore) Save(coords vec.Vec2, data []byte) error {
	f.saves.Add(1)
	return errors.New("диск заполнен")
}

func TestManager_SaveFailureDiscardsChunk(t *testing.T) {
	store := &failingStore{ChunkStore: storage.NewMemoryStore()}
	s := newTestStack(t, testManagerConfig, store)
	origin := vec.Vec2{}
	runUntil(t, s.manager, chunkCenter(origin), s.settled(origin))

	require.NoError(t, s.world.SetBlock(vec.Vec3{X: 1, Y: 1, Z: 5}, world.NewBlock(block.DirtBlockID)))

	far := vec.Vec2{X: 20}
	runUntil(t, s.manager, chunkCenter(far), func() bool { return !s.world.ChunkExists(origin) })

	assert.Equal(t, int32(1), store.saves.Load())
	assert.Equal(t, uint64(1), s.manager.Status().SaveFailures)
}

func TestManager_RetireWhilePendingPanics(t *testing.T) {
	s := newTestStack(t, testManagerConfig, nil)

	coords := vec.Vec2{X: 7}
	c, err := s.world.InstallChunk(coords, flatBlocks(coords, testDims))
	require.NoError(t, err)
	s.world.Lighting().Drain()
	c.State = world.StateDeactivating
	s.pipeline.pending[coords] = &job{coords: coords}

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrRetireWhilePending))
		delete(s.pipeline.pending, coords)
	}()
	s.manager.retire()
}

func TestManager_CloseFlushesDirtyChunks(t *testing.T) {
	store := storage.NewMemoryStore()
	s := newTestStack(t, testManagerConfig, store)
	origin := vec.Vec2{}
	runUntil(t, s.manager, chunkCenter(origin), s.settled(origin))

	require.NoError(t, s.world.SetBlock(vec.Vec3{X: 2, Y: 2, Z: 6}, world.NewBlock(block.GlassBlockID)))
	require.NoError(t, s.world.SetBlock(vec.Vec3{X: 9, Y: 2, Z: 6}, world.NewBlock(block.GlassBlockID)))

	require.NoError(t, s.manager.Close())
	assert.Equal(t, 2, store.Len())

	data, err := store.Load(vec.Vec2{X: 1})
	require.NoError(t, err)
	blocks, err := storage.DecodeChunk(data, vec.Vec2{X: 1}, testDims)
	require.NoError(t, err)
	assert.Equal(t, block.GlassBlockID, blocks[testDims.Index(1, 2, 6)].ID)
}
