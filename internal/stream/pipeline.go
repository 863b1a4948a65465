package stream

import (
	"context"
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
	"golang.org/x/sync/errgroup"
)

var (
	// ErrJobQueueFull - очередь заданий заполнена, запрос нужно повторить в следующем кадре
	ErrJobQueueFull = errors.New("очередь заданий заполнена")
	// ErrPipelineClosed - конвейер остановлен
	ErrPipelineClosed = errors.New("конвейер остановлен")
)

// JobKind - тип задания
type JobKind uint8

const (
	JobGenerate JobKind = iota // сгенерировать ландшафт
	JobLoad                    // прочитать из хранилища, при неудаче сгенерировать
)

func (k JobKind) String() string {
	if k == JobLoad {
		return "load"
	}
	return "generate"
}

// job - задание на один чанк. Поле retire меняется только главным потоком,
// started выставляет воркер.
type job struct {
	coords  vec.Vec2
	kind    JobKind
	started atomic.Bool
	retire  bool
}

// Result - результат задания, передаваемый из воркера в главный поток
type Result struct {
	Coords   vec.Vec2
	Kind     JobKind
	Loaded   bool          // блоки прочитаны из хранилища
	Blocks   []world.Block // nil при ошибке
	LoadErr  error         // причина перехода к генерации для задания Load
	Err      error         // задание не дало блоков
	Duration time.Duration
}

// PipelineConfig - параметры конвейера
type PipelineConfig struct {
	Workers   int
	QueueSize int
}

// Pipeline выполняет задания генерации и загрузки в фоновых воркерах.
// RequestChunk, IntegrateCompleted и остальные методы, кроме Close,
// вызываются только из главного потока.
type Pipeline struct {
	world *world.World
	gen   world.Generator
	store storage.ChunkStore // nil - только генерация

	jobs chan *job
	done chan Result

	pending map[vec.Vec2]*job
	closed  bool

	group  *errgroup.Group
	cancel context.CancelFunc

	logger  *logging.Logger
	metrics *metrics.StreamMetrics
}

// NewPipeline создаёт конвейер и запускает воркеры
func NewPipeline(cfg PipelineConfig, w *world.World, gen world.Generator, store storage.ChunkStore,
	logger *logging.Logger, m *metrics.StreamMetrics) (*Pipeline, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("число воркеров должно быть положительным: %d", cfg.Workers)
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("размер очереди должен быть положительным: %d", cfg.QueueSize)
	}
	if gen == nil {
		return nil, errors.New("не задан генератор ландшафта")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	p := &Pipeline{
		world:   w,
		gen:     gen,
		store:   store,
		jobs:    make(chan *job, cfg.QueueSize),
		done:    make(chan Result, cfg.QueueSize+cfg.Workers),
		pending: make(map[vec.Vec2]*job),
		group:   group,
		cancel:  cancel,
		logger:  logger,
		metrics: m,
	}

	for i := 0; i < cfg.Workers; i++ {
		group.Go(func() error {
			p.worker(ctx)
			return nil
		})
	}
	return p, nil
}

func (p *Pipeline) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			j.started.Store(true)
			res := p.run(j)
			select {
			case p.done <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

// run выполняет задание. Воркер не обращается к сетке мира.
func (p *Pipeline) run(j *job) (res Result) {
	start := time.Now()
	res = Result{Coords: j.coords, Kind: j.kind}
	defer func() {
		if r := recover(); r != nil {
			res.Blocks = nil
			res.Err = fmt.Errorf("сбой генерации чанка %v: %v", j.coords, r)
		}
		res.Duration = time.Since(start)
	}()

	dims := p.world.Dims()
	if j.kind == JobLoad && p.store != nil {
		blocks, err := p.load(j.coords, dims)
		if err == nil {
			res.Loaded = true
			res.Blocks = blocks
			return res
		}
		res.LoadErr = err
	}

	blocks := p.gen.Generate(j.coords, dims)
	if len(blocks) != dims.Volume() {
		res.Err = fmt.Errorf("генератор вернул %d блоков для чанка %v, ожидается %d", len(blocks), j.coords, dims.Volume())
		return res
	}
	res.Blocks = blocks
	return res
}

func (p *Pipeline) load(coords vec.Vec2, dims world.Dimensions) ([]world.Block, error) {
	data, err := p.store.Load(coords)
	if err != nil {
		return nil, err
	}
	blocks, err := storage.DecodeChunk(data, coords, dims)
	if err != nil {
		p.logger.Trace("Запись чанка %v:\n%s", coords, logging.HexDump(data))
		return nil, err
	}
	return blocks, nil
}

// RequestChunk ставит задание для чанка. Повторный запрос для чанка, задание
// которого уже в работе, ничего не делает, кроме снятия отметки о выгрузке.
func (p *Pipeline) RequestChunk(coords vec.Vec2) error {
	if p.closed {
		return ErrPipelineClosed
	}
	if j, ok := p.pending[coords]; ok {
		j.retire = false
		return nil
	}

	kind := JobGenerate
	if p.store != nil {
		kind = JobLoad
	}
	j := &job{coords: coords, kind: kind}

	select {
	case p.jobs <- j:
	default:
		return ErrJobQueueFull
	}
	p.pending[coords] = j
	p.metrics.ChunkRequested()
	return nil
}

// IntegrateCompleted извлекает не более maxJobs завершённых заданий и
// устанавливает их чанки в мир. Задания, отмеченные к выгрузке, отбрасываются.
// Возвращает число установленных чанков.
func (p *Pipeline) IntegrateCompleted(maxJobs int) int {
	installed := 0
	for popped := 0; popped < maxJobs; popped++ {
		var res Result
		select {
		case res = <-p.done:
		default:
			return installed
		}
		if p.integrate(res) {
			installed++
		}
	}
	return installed
}

func (p *Pipeline) integrate(res Result) bool {
	j, ok := p.pending[res.Coords]
	if !ok {
		p.logger.Warn("Результат для чанка %v без задания", res.Coords)
		return false
	}
	delete(p.pending, res.Coords)

	p.noteLoadError(res)

	if res.Err != nil {
		p.logger.Error("Задание %s для чанка %v: %v", res.Kind, res.Coords, res.Err)
		p.metrics.JobDiscarded()
		return false
	}
	p.metrics.JobFinished(res.Loaded, res.Duration)

	if j.retire {
		p.logger.Debug("Чанк %v вышел за радиус до завершения задания, отброшен", res.Coords)
		p.metrics.JobDiscarded()
		return false
	}

	c, err := p.world.InstallChunk(res.Coords, res.Blocks)
	if err != nil {
		p.logger.Error("Не удалось установить чанк %v: %v", res.Coords, err)
		p.metrics.JobDiscarded()
		return false
	}

	// испорченную запись нужно перезаписать при выгрузке
	var de *storage.DecodeError
	if errors.As(res.LoadErr, &de) {
		c.ChangeCounter++
	}

	p.metrics.ChunkIntegrated()
	return true
}

func (p *Pipeline) noteLoadError(res Result) {
	if res.LoadErr == nil || errors.Is(res.LoadErr, storage.ErrNotFound) {
		return
	}
	var de *storage.DecodeError
	if errors.As(res.LoadErr, &de) {
		p.logger.Warn("Запись чанка %v отброшена (%s), чанк будет сгенерирован заново", res.Coords, de.Kind)
		p.metrics.DecodeFailed(de.Kind.String())
		return
	}
	p.logger.Warn("Ошибка чтения чанка %v, чанк будет сгенерирован: %v", res.Coords, res.LoadErr)
	p.metrics.DecodeFailed("io")
}

// InFlight сообщает, есть ли незавершённое или неинтегрированное задание для чанка
func (p *Pipeline) InFlight(coords vec.Vec2) bool {
	_, ok := p.pending[coords]
	return ok
}

// State возвращает состояние задания: Requested, Generating или NotPresent
func (p *Pipeline) State(coords vec.Vec2) world.ChunkState {
	j, ok := p.pending[coords]
	if !ok {
		return world.StateNotPresent
	}
	if j.started.Load() {
		return world.StateGenerating
	}
	return world.StateRequested
}

// MarkRetire отмечает задания, для которых outside возвращает true, к выгрузке
// при завершении. Возвращает число отмеченных.
func (p *Pipeline) MarkRetire(outside func(vec.Vec2) bool) int {
	n := 0
	for coords, j := range p.pending {
		if !j.retire && outside(coords) {
			j.retire = true
			n++
		}
	}
	return n
}

// Retiring сообщает, отмечено ли задание чанка к выгрузке
func (p *Pipeline) Retiring(coords vec.Vec2) bool {
	j, ok := p.pending[coords]
	return ok && j.retire
}

// Pending возвращает число незавершённых заданий
func (p *Pipeline) Pending() int {
	return len(p.pending)
}

// PendingCoords возвращает отсортированные координаты незавершённых заданий
func (p *Pipeline) PendingCoords() []vec.Vec2 {
	out := make([]vec.Vec2, 0, len(p.pending))
	for c := range p.pending {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// Close останавливает воркеры. Незавершённые задания отбрасываются.
func (p *Pipeline) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.cancel()
	close(p.jobs)
	err := p.group.Wait()
	p.pending = make(map[vec.Vec2]*job)
	return err
}
