package stream

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/metrics"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

// ErrRetireWhilePending - попытка выгрузить чанк, для которого есть задание.
// Означает ошибку в автомате состояний, менеджер паникует с этой ошибкой.
var ErrRetireWhilePending = errors.New("выгрузка чанка с незавершённым заданием")

// ManagerConfig - параметры жизненного цикла чанков
type ManagerConfig struct {
	ActivationRadius          int
	DeactivationRadius        int
	MaxJobsIntegratedPerFrame int
	MaxLightingStepsPerFrame  int
}

// Validate проверяет параметры
func (c ManagerConfig) Validate() error {
	if c.ActivationRadius < 0 {
		return fmt.Errorf("радиус активации не может быть отрицательным: %d", c.ActivationRadius)
	}
	if c.DeactivationRadius <= c.ActivationRadius {
		return fmt.Errorf("радиус деактивации (%d) должен быть больше радиуса активации (%d)",
			c.DeactivationRadius, c.ActivationRadius)
	}
	if c.MaxJobsIntegratedPerFrame <= 0 {
		return fmt.Errorf("бюджет интеграции должен быть положительным: %d", c.MaxJobsIntegratedPerFrame)
	}
	if c.MaxLightingStepsPerFrame <= 0 {
		return fmt.Errorf("бюджет освещения должен быть положительным: %d", c.MaxLightingStepsPerFrame)
	}
	return nil
}

// FrameStats - что произошло за один кадр
type FrameStats struct {
	Requested     int
	Reactivated   int
	Integrated    int
	Deactivated   int
	LightingSteps int
	SavesQueued   int
	SavesDone     int
	Retired       int
}

// Status - снимок состояния для внешних наблюдателей
type Status struct {
	Frame         uint64     `json:"frame"`
	PlayerChunk   vec.Vec2   `json:"player_chunk"`
	Active        int        `json:"active"`
	Deactivating  int        `json:"deactivating"`
	PendingJobs   int        `json:"pending_jobs"`
	PendingSaves  int        `json:"pending_saves"`
	LightingQueue int        `json:"lighting_queue"`
	LastFrame     FrameStats `json:"last_frame"`
	Retired       uint64     `json:"retired_total"`
	SaveFailures  uint64     `json:"save_failures_total"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Manager решает каждый кадр, какие чанки запросить и какие выгрузить.
// Update и Close вызываются из главного потока, Status - из любого.
type Manager struct {
	cfg      ManagerConfig
	world    *world.World
	pipeline *Pipeline
	saver    *Saver
	store    storage.ChunkStore

	// смещения в радиусе активации, от ближних к дальним
	offsets []vec.Vec2

	frame        uint64
	retired      uint64
	saveFailures uint64
	status       atomic.Pointer[Status]

	logger  *logging.Logger
	metrics *metrics.StreamMetrics
}

// NewManager создаёт менеджер. saver и store могут быть nil: тогда изменённые
// чанки выгружаются без сохранения.
func NewManager(cfg ManagerConfig, w *world.World, pipeline *Pipeline, saver *Saver, store storage.ChunkStore,
	logger *logging.Logger, m *metrics.StreamMetrics) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	mgr := &Manager{
		cfg:      cfg,
		world:    w,
		pipeline: pipeline,
		saver:    saver,
		store:    store,
		offsets:  activationOffsets(cfg.ActivationRadius),
		logger:   logger,
		metrics:  m,
	}
	mgr.status.Store(&Status{})
	return mgr, nil
}

// activationOffsets перечисляет смещения чанков в круге радиуса r,
// упорядоченные по расстоянию от центра
func activationOffsets(r int) []vec.Vec2 {
	var out []vec.Vec2
	center := vec.Vec2{}
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			off := vec.Vec2{X: x, Y: y}
			if off.WithinRadius(center, r) {
				out = append(out, off)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceSq(center) < out[j].DistanceSq(center)
	})
	return out
}

// Update выполняет один кадр для позиции игрока
func (m *Manager) Update(playerPos vec.Vec3) FrameStats {
	var stats FrameStats
	m.frame++
	center := m.world.Dims().ChunkOf(playerPos)

	stats.SavesDone = m.drainSaves()
	stats.Requested, stats.Reactivated = m.activate(center)
	stats.Integrated = m.pipeline.IntegrateCompleted(m.cfg.MaxJobsIntegratedPerFrame)
	stats.Deactivated = m.deactivate(center)
	stats.LightingSteps = m.world.ProcessLighting(m.cfg.MaxLightingStepsPerFrame)
	stats.SavesQueued, stats.Retired = m.retire()

	m.metrics.LightingSteps(stats.LightingSteps)
	m.publish(center, stats)
	return stats
}

// activate запрашивает недостающие чанки в радиусе активации, ближние первыми,
// и возвращает к жизни чанки, ожидавшие выгрузки
func (m *Manager) activate(center vec.Vec2) (requested, reactivated int) {
	queueFull := false
	for _, off := range m.offsets {
		coords := center.Add(off)

		if c, ok := m.world.Grid().Get(coords); ok {
			if c.State == world.StateDeactivating {
				c.State = world.StateActive
				reactivated++
			}
			continue
		}
		if queueFull {
			continue
		}

		wasPending := m.pipeline.InFlight(coords)
		err := m.pipeline.RequestChunk(coords)
		switch {
		case err == nil:
			if !wasPending {
				requested++
			}
		case errors.Is(err, ErrJobQueueFull):
			// остальные запросы откладываются до следующего кадра
			queueFull = true
		default:
			m.logger.Error("Запрос чанка %v: %v", coords, err)
			queueFull = true
		}
	}
	return requested, reactivated
}

// deactivate отмечает активные чанки и задания за радиусом деактивации
func (m *Manager) deactivate(center vec.Vec2) int {
	r := m.cfg.DeactivationRadius
	outside := func(c vec.Vec2) bool { return !c.WithinRadius(center, r) }

	n := 0
	m.world.Grid().Range(func(c *world.Chunk) bool {
		if c.State == world.StateActive && outside(c.Coords) {
			c.State = world.StateDeactivating
			n++
		}
		return true
	})
	m.pipeline.MarkRetire(outside)
	return n
}

// retire выгружает чанки в состоянии Deactivating без работы освещения и без
// незавершённой записи. Изменённый чанк сначала отправляется на запись.
func (m *Manager) retire() (savesQueued, retired int) {
	var ready []*world.Chunk
	m.world.Grid().Range(func(c *world.Chunk) bool {
		if c.State == world.StateDeactivating {
			ready = append(ready, c)
		}
		return true
	})

	for _, c := range ready {
		if m.pipeline.InFlight(c.Coords) {
			panic(fmt.Errorf("%w: %v", ErrRetireWhilePending, c.Coords))
		}
		if c.QueuedLighting() > 0 || c.SavePending() {
			continue
		}

		if c.HasChanges() && m.saver != nil {
			data, err := storage.Encode(c.Coords, c.Dims(), c.Blocks)
			if err != nil {
				m.logger.Error("Не удалось закодировать чанк %v, выгружается без сохранения: %v", c.Coords, err)
			} else {
				if err := m.saver.Submit(c.Coords, data); err != nil {
					// повторим в следующем кадре
					continue
				}
				c.ClearChanges()
				c.SetSavePending(true)
				savesQueued++
				continue
			}
		}

		if _, err := m.world.RemoveChunk(c.Coords); err != nil {
			m.logger.Error("Выгрузка чанка %v: %v", c.Coords, err)
			continue
		}
		retired++
		m.retired++
		m.metrics.ChunkRetired()
	}
	return savesQueued, retired
}

// drainSaves забирает результаты записи. Чанк с неудачной записью
// выгружается без сохранения, если к этому времени не стал снова активным.
func (m *Manager) drainSaves() int {
	if m.saver == nil {
		return 0
	}
	return m.saver.Drain(func(res SaveResult) {
		m.metrics.ChunkSaved(res.Err)
		c, ok := m.world.Grid().Get(res.Coords)
		if ok {
			c.SetSavePending(false)
		}
		if res.Err == nil {
			m.logger.Debug("Чанк %v сохранён (%d байт)", res.Coords, res.Bytes)
			return
		}
		m.saveFailures++
		if ok && c.State == world.StateActive {
			m.logger.Error("Ошибка сохранения чанка %v, повтор при следующей выгрузке: %v", res.Coords, res.Err)
			c.ChangeCounter++
			return
		}
		m.logger.Error("Ошибка сохранения чанка %v, чанк выгружается без сохранения: %v", res.Coords, res.Err)
	})
}

// State возвращает состояние чанка в жизненном цикле
func (m *Manager) State(coords vec.Vec2) world.ChunkState {
	if c, ok := m.world.Grid().Get(coords); ok {
		return c.State
	}
	return m.pipeline.State(coords)
}

func (m *Manager) publish(center vec.Vec2, stats FrameStats) {
	st := &Status{
		Frame:         m.frame,
		PlayerChunk:   center,
		PendingJobs:   m.pipeline.Pending(),
		LightingQueue: m.world.Lighting().Pending(),
		LastFrame:     stats,
		Retired:       m.retired,
		SaveFailures:  m.saveFailures,
		UpdatedAt:     time.Now(),
	}
	if m.saver != nil {
		st.PendingSaves = m.saver.Outstanding()
	}
	m.world.Grid().Range(func(c *world.Chunk) bool {
		if c.State == world.StateDeactivating {
			st.Deactivating++
		} else {
			st.Active++
		}
		return true
	})
	m.status.Store(st)
	m.metrics.SetGauges(m.world.Grid().Len(), st.PendingJobs, st.LightingQueue)
}

// Status возвращает снимок состояния после последнего кадра
func (m *Manager) Status() Status {
	return *m.status.Load()
}

// Close останавливает воркеры, дожидается фоновых записей и синхронно
// сохраняет все изменённые чанки
func (m *Manager) Close() error {
	var errs []error
	if err := m.pipeline.Close(); err != nil {
		errs = append(errs, err)
	}
	if m.saver != nil {
		if err := m.saver.Close(); err != nil {
			errs = append(errs, err)
		}
		m.drainSaves()
	}

	if m.store != nil {
		saved := 0
		for _, coords := range m.world.Grid().Coords() {
			c, _ := m.world.Grid().Get(coords)
			if !c.HasChanges() {
				continue
			}
			data, err := storage.Encode(c.Coords, c.Dims(), c.Blocks)
			if err == nil {
				err = m.store.Save(c.Coords, data)
			}
			m.metrics.ChunkSaved(err)
			if err != nil {
				errs = append(errs, fmt.Errorf("сохранение чанка %v: %w", c.Coords, err))
				continue
			}
			c.ClearChanges()
			saved++
		}
		m.logger.Info("Сохранено чанков при остановке: %d", saved)
	}
	return errors.Join(errs...)
}
