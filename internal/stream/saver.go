package stream

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/vec"
	"golang.org/x/sync/errgroup"
)

// ErrSaveQueueFull - очередь записи заполнена, сохранение откладывается
var ErrSaveQueueFull = errors.New("очередь сохранения заполнена")

// SaveResult - итог записи одного чанка
type SaveResult struct {
	Coords vec.Vec2
	Bytes  int
	Err    error
}

type saveRequest struct {
	coords vec.Vec2
	data   []byte
}

// Saver записывает закодированные чанки в хранилище в фоновых горутинах.
// Submit и Drain вызываются из главного потока.
type Saver struct {
	store   storage.ChunkStore
	reqs    chan saveRequest
	results chan SaveResult
	group   errgroup.Group

	// Отправлено, но результат ещё не получен. Не больше cap(results).
	outstanding int
	closed      bool
}

// NewSaver запускает writers горутин записи
func NewSaver(store storage.ChunkStore, writers, queueSize int) (*Saver, error) {
	if store == nil {
		return nil, errors.New("не задано хранилище")
	}
	if writers <= 0 || queueSize <= 0 {
		return nil, fmt.Errorf("некорректные параметры записи: writers=%d queue=%d", writers, queueSize)
	}
	s := &Saver{
		store:   store,
		reqs:    make(chan saveRequest, queueSize),
		results: make(chan SaveResult, queueSize+writers),
	}
	for i := 0; i < writers; i++ {
		s.group.Go(func() error {
			for req := range s.reqs {
				err := s.store.Save(req.coords, req.data)
				s.results <- SaveResult{Coords: req.coords, Bytes: len(req.data), Err: err}
			}
			return nil
		})
	}
	return s, nil
}

// Submit ставит запись в очередь без блокировки
func (s *Saver) Submit(coords vec.Vec2, data []byte) error {
	if s.closed {
		return ErrPipelineClosed
	}
	if s.outstanding >= cap(s.results) {
		return ErrSaveQueueFull
	}
	select {
	case s.reqs <- saveRequest{coords: coords, data: data}:
		s.outstanding++
		return nil
	default:
		return ErrSaveQueueFull
	}
}

// Drain передаёт fn все готовые результаты без ожидания и возвращает их число
func (s *Saver) Drain(fn func(SaveResult)) int {
	n := 0
	for {
		select {
		case res := <-s.results:
			s.outstanding--
			n++
			fn(res)
		default:
			return n
		}
	}
}

// Outstanding возвращает число записей, результат которых ещё не получен
func (s *Saver) Outstanding() int {
	return s.outstanding
}

// Close дожидается завершения всех поставленных записей. Результаты остаются
// доступны через Drain.
func (s *Saver) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.reqs)
	return s.group.Wait()
}
